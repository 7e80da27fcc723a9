package anchor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

type stubProvider struct {
	id      string
	receipt domain.AnchorReceipt
	delay   time.Duration
}

func (s stubProvider) ProviderName() string { return s.id }
func (s stubProvider) Anchor(ctx context.Context, payload Payload) domain.AnchorReceipt {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.AnchorReceipt{Status: domain.AnchorStatusFailed, Error: ctx.Err().Error()}
		case <-time.After(s.delay):
		}
	}
	return s.receipt
}

var testCaseID = uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")

func TestBuildPayloadStable(t *testing.T) {
	dh := domain.SumDigest([]byte("decision"))
	first, err := BuildPayload(testCaseID, dh)
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	second, err := BuildPayload(testCaseID, dh)
	if err != nil {
		t.Fatalf("build payload again: %v", err)
	}
	if first.HashHex != second.HashHex {
		t.Fatalf("expected stable hash, got %s vs %s", first.HashHex, second.HashHex)
	}
	if !bytes.Equal(first.Canonical, second.Canonical) {
		t.Fatal("expected stable canonical encoding")
	}
	other, err := BuildPayload(testCaseID, domain.SumDigest([]byte("other")))
	if err != nil {
		t.Fatalf("build other payload: %v", err)
	}
	if other.HashHex == first.HashHex {
		t.Fatal("expected payload hash to depend on decision hash")
	}
}

func TestBuildPayloadRequiresInputs(t *testing.T) {
	if _, err := BuildPayload(uuid.Nil, domain.SumDigest([]byte("x"))); err == nil {
		t.Fatal("expected error for missing case id")
	}
	if _, err := BuildPayload(testCaseID, domain.Digest{}); err == nil {
		t.Fatal("expected error for zero decision hash")
	}
}

func TestServiceFansOutInOrder(t *testing.T) {
	failing := stubProvider{id: "blockchain", receipt: domain.AnchorReceipt{Status: domain.AnchorStatusFailed, Error: "not implemented"}}
	ok := stubProvider{id: "journal", receipt: domain.AnchorReceipt{TxID: "0xabc"}}
	svc, err := NewService([]Provider{failing, ok}, []string{"blockchain", "missing", "journal"}, time.Second)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	receipts, err := svc.Anchor(context.Background(), testCaseID, domain.SumDigest([]byte("decision")))
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if len(receipts) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(receipts))
	}
	if receipts[0].Status != domain.AnchorStatusFailed || receipts[1].Status != domain.AnchorStatusFailed {
		t.Fatalf("expected first two receipts to fail: %+v", receipts[:2])
	}
	if receipts[1].Provider != "missing" || receipts[1].Error != "unknown provider" {
		t.Fatalf("unexpected unknown provider receipt: %+v", receipts[1])
	}
	first, found := domain.FirstAnchored(receipts)
	if !found {
		t.Fatal("expected an anchored receipt")
	}
	if first.Provider != "journal" || first.TxID != "0xabc" {
		t.Fatalf("unexpected anchored receipt: %+v", first)
	}
	if first.AnchoredAt.IsZero() {
		t.Fatal("expected anchored_at to be set")
	}
}

func TestServiceMarksTimeouts(t *testing.T) {
	slow := stubProvider{id: "slow", delay: time.Second}
	svc, err := NewService([]Provider{slow}, []string{"slow"}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	receipts, err := svc.Anchor(context.Background(), testCaseID, domain.SumDigest([]byte("decision")))
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if receipts[0].Status != domain.AnchorStatusTimeout {
		t.Fatalf("expected TIMEOUT, got %s", receipts[0].Status)
	}
	if receipts[0].Provider != "slow" {
		t.Fatalf("expected provider name to be filled in, got %q", receipts[0].Provider)
	}
}

func TestNewServiceRejectsDuplicates(t *testing.T) {
	p := stubProvider{id: "journal"}
	if _, err := NewService([]Provider{p, p}, nil, 0); err == nil {
		t.Fatal("expected duplicate provider error")
	}
	if _, err := NewService([]Provider{stubProvider{}}, nil, 0); err == nil {
		t.Fatal("expected missing id error")
	}
}
