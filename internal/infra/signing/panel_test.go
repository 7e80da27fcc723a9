package signing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/domain"
)

func newTestPanel(t *testing.T, size int) *Panel {
	t.Helper()
	p, err := NewPanelFromSeed([]byte("arbiter-test-panel"), size)
	require.NoError(t, err)
	return p
}

func TestCollectAndVerify(t *testing.T) {
	p := newTestPanel(t, 3)
	caseID := uuid.New()
	subject := domain.SumDigest([]byte("decision"))
	quorum := domain.Quorum{Required: 2, Total: 3}

	sigs, err := p.Collect(context.Background(), caseID, subject, quorum)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	for _, sig := range sigs {
		assert.Equal(t, Scheme, sig.Scheme)
		assert.Len(t, sig.Signer, 42)
		assert.Len(t, sig.Sig, 2+128)
		require.NoError(t, p.Verify(caseID, sig))
	}

	n, err := p.VerifyQuorum(caseID, sigs, quorum)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPanelIsDeterministicFromSeed(t *testing.T) {
	a := newTestPanel(t, 3)
	b := newTestPanel(t, 3)
	for i := range a.Arbitrators() {
		assert.Equal(t, a.Arbitrators()[i].Address, b.Arbitrators()[i].Address)
	}
	assert.NotEqual(t, a.Arbitrators()[0].Address, a.Arbitrators()[1].Address)
}

func TestVerifyRejectsTampering(t *testing.T) {
	p := newTestPanel(t, 3)
	caseID := uuid.New()
	sigs, err := p.Collect(context.Background(), caseID, domain.SumDigest([]byte("decision")), domain.Quorum{Required: 1, Total: 1})
	require.NoError(t, err)
	sig := sigs[0]

	require.ErrorIs(t, p.Verify(uuid.New(), sig), ErrBadSignature, "different case")

	wrongSubject := sig.Clone()
	wrongSubject.Subject[0] ^= 0x01
	require.ErrorIs(t, p.Verify(caseID, wrongSubject), ErrBadSignature)

	flipped := sig.Clone()
	flipped.Envelope[len(flipped.Envelope)-1] ^= 0x01
	require.ErrorIs(t, p.Verify(caseID, flipped), ErrBadSignature)

	stranger := sig.Clone()
	stranger.Signer = "0x0000000000000000000000000000000000000000"
	require.ErrorIs(t, p.Verify(caseID, stranger), ErrUnknownSigner)

	other := newTestPanelWithSeed(t, "another-panel")
	require.ErrorIs(t, other.Verify(caseID, sig), ErrUnknownSigner)
}

func TestQuorumLargerThanPanel(t *testing.T) {
	p := newTestPanel(t, 3)
	_, err := p.Collect(context.Background(), uuid.New(), domain.SumDigest([]byte("x")), domain.Quorum{Required: 3, Total: 5})
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestVerifyQuorumCountsDistinctSigners(t *testing.T) {
	p := newTestPanel(t, 3)
	caseID := uuid.New()
	sigs, err := p.Collect(context.Background(), caseID, domain.SumDigest([]byte("x")), domain.Quorum{Required: 1, Total: 3})
	require.NoError(t, err)
	duplicated := []domain.Signature{sigs[0], sigs[0]}
	n, err := p.VerifyQuorum(caseID, duplicated, domain.Quorum{Required: 2, Total: 3})
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Equal(t, 1, n)
}

func newTestPanelWithSeed(t *testing.T, seed string) *Panel {
	t.Helper()
	p, err := NewPanelFromSeed([]byte(seed), 3)
	require.NoError(t, err)
	return p
}
