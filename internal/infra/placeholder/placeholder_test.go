package placeholder

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/domain"
	"arbiter/internal/infra/anchor"
)

var hexPattern = regexp.MustCompile(`^0x[0-9a-f]+$`)

func TestShapes(t *testing.T) {
	ctx := context.Background()
	tx, err := Escrow{}.Lock(ctx, uuid.New(), domain.EscrowTerms{})
	require.NoError(t, err)
	assert.Regexp(t, hexPattern, tx)
	assert.Len(t, tx, 2+64)

	sigs, err := Signers{}.Collect(ctx, uuid.New(), domain.SumDigest([]byte("x")), domain.Quorum{Required: 2, Total: 3})
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Len(t, sigs[0].Signer, 2+40)
	assert.Len(t, sigs[0].Sig, 2+130)
	assert.NotEqual(t, sigs[0].Signer, sigs[1].Signer)
}

func TestProofsVerifyOnlyIssued(t *testing.T) {
	ctx := context.Background()
	p := NewProofs()
	claim := domain.Claim{CaseID: uuid.New(), MerkleRoot: domain.SumDigest([]byte("root")), Preset: "saas"}

	proof, err := p.Produce(ctx, claim)
	require.NoError(t, err)

	forged := proof.Clone()
	forged.DecisionHash[0] ^= 0x01
	ok, err := p.Verify(ctx, forged)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Pending(), "a rejected proof keeps the issued record")

	ok, err = p.Verify(ctx, proof)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, p.Pending())

	ok, err = p.Verify(ctx, proof)
	require.NoError(t, err)
	assert.False(t, ok, "an issued proof verifies once")

	_, err = p.Produce(ctx, domain.Claim{CaseID: claim.CaseID})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAnchorProvider(t *testing.T) {
	payload, err := anchor.BuildPayload(uuid.New(), domain.SumDigest([]byte("decision")))
	require.NoError(t, err)
	receipt := AnchorProvider{}.Anchor(context.Background(), payload)
	assert.Equal(t, domain.AnchorStatusAnchored, receipt.Status)
	assert.Regexp(t, hexPattern, receipt.TxID)
}
