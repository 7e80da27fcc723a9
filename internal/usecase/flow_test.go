package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/domain"
	"arbiter/internal/infra/merkle"
)

type presetStub struct {
	items []domain.Preset
}

func (p presetStub) Get(key string) (domain.Preset, bool) {
	for _, item := range p.items {
		if item.Key == key {
			return item, true
		}
	}
	return domain.Preset{}, false
}

func (p presetStub) Default() domain.Preset { return p.items[0] }

func (p presetStub) List() []domain.Preset { return p.items }

type proofStub struct {
	produced int
	reject   bool
	err      error
}

func (p *proofStub) Produce(ctx context.Context, claim domain.Claim) (domain.Proof, error) {
	if p.err != nil {
		return domain.Proof{}, p.err
	}
	p.produced++
	return domain.Proof{
		Backend:      "stub",
		Claim:        claim,
		DecisionHash: domain.SumDigest(append([]byte("decision:"), claim.MerkleRoot[:]...)),
	}, nil
}

func (p *proofStub) Verify(ctx context.Context, proof domain.Proof) (bool, error) {
	return !p.reject, nil
}

type signerStub struct {
	subjects []domain.Digest
	short    bool
}

func (s *signerStub) Collect(ctx context.Context, caseID uuid.UUID, subject domain.Digest, quorum domain.Quorum) ([]domain.Signature, error) {
	s.subjects = append(s.subjects, subject)
	n := quorum.Required
	if s.short {
		n--
	}
	out := make([]domain.Signature, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Signature{Signer: "0x" + strings.Repeat(string(rune('a'+i)), 40), Sig: "0x01", Subject: subject})
	}
	return out, nil
}

type anchorStub struct {
	receipts []domain.AnchorReceipt
	calls    int
}

func (a *anchorStub) Anchor(ctx context.Context, caseID uuid.UUID, decisionHash domain.Digest) ([]domain.AnchorReceipt, error) {
	a.calls++
	return a.receipts, nil
}

type escrowStub struct {
	released []*domain.Digest
}

func (e *escrowStub) Lock(ctx context.Context, caseID uuid.UUID, terms domain.EscrowTerms) (string, error) {
	return "0xlock-" + terms.Currency, nil
}

func (e *escrowStub) Release(ctx context.Context, caseID uuid.UUID, decisionHash *domain.Digest) (string, error) {
	e.released = append(e.released, decisionHash)
	return "0xrelease", nil
}

type flowFixture struct {
	flow    *Flow
	proofs  *proofStub
	signers *signerStub
	anchors *anchorStub
	escrow  *escrowStub
}

func newFlowFixture() flowFixture {
	fx := flowFixture{
		proofs:  &proofStub{},
		signers: &signerStub{},
		anchors: &anchorStub{receipts: []domain.AnchorReceipt{
			{Provider: "blockchain", Status: domain.AnchorStatusFailed, Error: "not implemented"},
			{Provider: "journal", Status: domain.AnchorStatusAnchored, TxID: "0xjournal"},
		}},
		escrow: &escrowStub{},
	}
	fx.flow = &Flow{
		Presets: presetStub{items: []domain.Preset{
			{Key: "construction", Label: "Construction delay", Escrow: domain.EscrowTerms{Currency: "KRW", Amount: "₩1"}, Quorum: "2 of 3", Notes: "default notes"},
			{Key: "milestone", Label: "Milestone", Escrow: domain.EscrowTerms{Currency: "USD", Amount: "$1"}, Quorum: "1 of 1 (sole arb)"},
		}},
		Proofs:  fx.proofs,
		Signers: fx.signers,
		Anchors: fx.anchors,
		Escrow:  fx.escrow,
		Clock:   func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return fx
}

func evidenceFiles(names ...string) []domain.EvidenceFile {
	out := make([]domain.EvidenceFile, 0, len(names))
	for _, name := range names {
		out = append(out, domain.EvidenceFile{Name: name, Size: int64(len(name)), Hash: domain.SumDigest([]byte(name))})
	}
	return out
}

func TestFlowOpenUsesPresetDefaults(t *testing.T) {
	fx := newFlowFixture()
	c, err := fx.flow.Open(context.Background(), OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Preset != "construction" || c.Notes != "default notes" {
		t.Fatalf("unexpected preset/notes %q %q", c.Preset, c.Notes)
	}
	if c.Status != domain.CaseStatusOpened {
		t.Fatalf("expected opened, got %s", c.Status)
	}
	if c.EscrowLockTx != "0xlock-KRW" {
		t.Fatalf("unexpected lock tx %q", c.EscrowLockTx)
	}
	if len(c.Audit) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(c.Audit))
	}
	if !strings.HasPrefix(c.Audit[1].Message, "Case "+c.ID.String()+" opened") {
		t.Fatalf("unexpected audit message %q", c.Audit[1].Message)
	}
	if err := VerifyAuditChain(c.Audit); err != nil {
		t.Fatalf("audit chain: %v", err)
	}
}

func TestFlowOpenRejectsUnknownPreset(t *testing.T) {
	fx := newFlowFixture()
	_, err := fx.flow.Open(context.Background(), OpenInput{Preset: "nope"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestFlowHappyPath(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	c, err := fx.flow.Open(ctx, OpenInput{Preset: "construction", Notes: "late delivery"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	opened := c

	files := evidenceFiles("A", "B", "C")
	c, err = fx.flow.AttachEvidence(ctx, c, files)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	wantRoot, _ := merkle.Root([]domain.Digest{files[0].Hash, files[1].Hash, files[2].Hash})
	if c.MerkleRoot == nil || *c.MerkleRoot != wantRoot {
		t.Fatalf("unexpected merkle root")
	}
	if c.Status != domain.CaseStatusEvidenceAttached {
		t.Fatalf("expected evidence_attached, got %s", c.Status)
	}
	if opened.MerkleRoot != nil || len(opened.Evidence) != 0 {
		t.Fatal("attach must not modify the input snapshot")
	}

	for _, step := range []domain.Step{domain.StepProof, domain.StepDeliberation, domain.StepAnchor, domain.StepExecution} {
		c, err = fx.flow.Apply(ctx, c, step)
		if err != nil {
			t.Fatalf("%s: %v", step, err)
		}
	}
	if c.Status != domain.CaseStatusExecuted {
		t.Fatalf("expected executed, got %s", c.Status)
	}
	if len(c.Signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(c.Signatures))
	}
	if fx.signers.subjects[0] != *c.DecisionHash {
		t.Fatal("deliberation after proof must sign the decision hash")
	}
	if c.AnchorTx != "0xjournal" || len(c.Anchors) != 2 {
		t.Fatalf("unexpected anchor result %q %d", c.AnchorTx, len(c.Anchors))
	}
	if c.ExecTx != "0xrelease" || fx.escrow.released[0] == nil {
		t.Fatal("expected release with decision hash")
	}
	if err := VerifyAuditChain(c.Audit); err != nil {
		t.Fatalf("audit chain: %v", err)
	}
	last := c.Audit[len(c.Audit)-1].Message
	if last != "Escrow released (tx: 0xrelease)" {
		t.Fatalf("unexpected last audit message %q", last)
	}
}

func TestFlowStepsRunOnce(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{})
	c, _ = fx.flow.AttachEvidence(ctx, c, evidenceFiles("A"))
	for _, step := range []domain.Step{domain.StepProof, domain.StepDeliberation, domain.StepAnchor, domain.StepExecution} {
		next, err := fx.flow.Apply(ctx, c, step)
		if err != nil {
			t.Fatalf("%s: %v", step, err)
		}
		if _, err := fx.flow.Apply(ctx, next, step); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("%s twice: expected conflict, got %v", step, err)
		}
		c = next
	}
	if fx.proofs.produced != 1 || fx.anchors.calls != 1 {
		t.Fatalf("backends called more than once: proofs=%d anchors=%d", fx.proofs.produced, fx.anchors.calls)
	}
}

func TestFlowPreconditions(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{})

	if _, err := fx.flow.Prove(ctx, c); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("prove without evidence: %v", err)
	}
	if _, err := fx.flow.Anchor(ctx, c); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("anchor without proof: %v", err)
	}
	if _, _, err := fx.flow.RecordInclusion(c, 0); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("inclusion without evidence: %v", err)
	}
	if _, err := fx.flow.AttachEvidence(ctx, c, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("attach nothing: %v", err)
	}
	if _, err := fx.flow.Apply(ctx, c, domain.StepEvidence); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("apply evidence: %v", err)
	}
}

func TestFlowDeliberationBeforeProofSignsRoot(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{Preset: "milestone"})

	deliberated, err := fx.flow.Deliberate(ctx, c)
	if err != nil {
		t.Fatalf("deliberate: %v", err)
	}
	if fx.signers.subjects[0] != domain.SumDigest([]byte(c.ID.String())) {
		t.Fatal("expected case id digest as subject without evidence")
	}
	if deliberated.Status != domain.CaseStatusDeliberated || len(deliberated.Signatures) != 1 {
		t.Fatalf("unexpected deliberation result %s %d", deliberated.Status, len(deliberated.Signatures))
	}
	if !strings.HasPrefix(deliberated.Audit[len(deliberated.Audit)-1].Message, "Collected 1/1 arbitrator signatures:\n - 0x") {
		t.Fatalf("unexpected audit %q", deliberated.Audit[len(deliberated.Audit)-1].Message)
	}

	withEvidence, _ := fx.flow.AttachEvidence(ctx, deliberated, evidenceFiles("A", "B"))
	if withEvidence.Status != domain.CaseStatusDeliberated {
		t.Fatalf("status must not move backwards, got %s", withEvidence.Status)
	}
	proven, err := fx.flow.Prove(ctx, withEvidence)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if proven.Status != domain.CaseStatusDeliberated {
		t.Fatalf("expected deliberated, got %s", proven.Status)
	}
}

func TestFlowShortQuorumFails(t *testing.T) {
	fx := newFlowFixture()
	fx.signers.short = true
	c, _ := fx.flow.Open(context.Background(), OpenInput{})
	if _, err := fx.flow.Deliberate(context.Background(), c); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestFlowRejectedProof(t *testing.T) {
	fx := newFlowFixture()
	fx.proofs.reject = true
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{})
	c, _ = fx.flow.AttachEvidence(ctx, c, evidenceFiles("A"))
	if _, err := fx.flow.Prove(ctx, c); !errors.Is(err, domain.ErrProofRejected) {
		t.Fatalf("expected rejected proof, got %v", err)
	}
}

func TestFlowAnchorWithoutSuccess(t *testing.T) {
	fx := newFlowFixture()
	fx.anchors.receipts = []domain.AnchorReceipt{{Provider: "blockchain", Status: domain.AnchorStatusFailed}}
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{})
	c, _ = fx.flow.AttachEvidence(ctx, c, evidenceFiles("A"))
	c, _ = fx.flow.Prove(ctx, c)
	if _, err := fx.flow.Anchor(ctx, c); !errors.Is(err, domain.ErrNotAnchored) {
		t.Fatalf("expected not anchored, got %v", err)
	}
}

func TestFlowEvidenceReplacement(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	c, _ := fx.flow.Open(ctx, OpenInput{})
	c, _ = fx.flow.AttachEvidence(ctx, c, evidenceFiles("A", "B", "C"))
	c, rec, err := fx.flow.RecordInclusion(c, 2)
	if err != nil {
		t.Fatalf("inclusion: %v", err)
	}
	ok, err := merkle.VerifyInclusion(rec.Leaf, rec.Index, rec.Path, rec.Root)
	if err != nil || !ok {
		t.Fatalf("recorded path does not verify: %v", err)
	}
	again, rec2, err := fx.flow.RecordInclusion(c, 2)
	if err != nil || len(again.Inclusions) != 1 || rec2.Root != rec.Root {
		t.Fatalf("repeat inclusion should return the stored record: %v", err)
	}
	if _, _, err := fx.flow.RecordInclusion(c, 3); !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}

	replaced, err := fx.flow.AttachEvidence(ctx, c, evidenceFiles("D"))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(replaced.Inclusions) != 0 || *replaced.MerkleRoot != domain.SumDigest([]byte("D")) {
		t.Fatal("replacing evidence must reset root and inclusions")
	}

	proven, _ := fx.flow.Prove(ctx, replaced)
	if _, err := fx.flow.AttachEvidence(ctx, proven, evidenceFiles("E")); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict after proof, got %v", err)
	}
}

func TestFlowRequiresBackends(t *testing.T) {
	var f Flow
	if _, err := f.Open(context.Background(), OpenInput{}); err == nil {
		t.Fatal("expected error for unconfigured flow")
	}
}
