// Package placeholder provides stand-in backends that return random values with the shapes
// real integrations would produce: 32-byte transaction and decision hashes, 20-byte signer
// addresses and 65-byte signatures.
package placeholder

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"arbiter/internal/domain"
	"arbiter/internal/infra/anchor"
)

const Name = "placeholder"

// RandomHex returns n random bytes in 0x-prefixed hex.
func RandomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("placeholder: read random: %v", err))
	}
	return "0x" + hex.EncodeToString(buf)
}

func randomDigest() domain.Digest {
	var d domain.Digest
	if _, err := rand.Read(d[:]); err != nil {
		panic(fmt.Sprintf("placeholder: read random: %v", err))
	}
	return d
}

// Proofs issues random decision hashes and only verifies proofs it issued itself. An issued
// proof verifies once; the record is dropped when it is checked.
type Proofs struct {
	mu     sync.Mutex
	issued map[domain.Digest][]byte
}

func NewProofs() *Proofs {
	return &Proofs{issued: make(map[domain.Digest][]byte)}
}

func (p *Proofs) Produce(ctx context.Context, claim domain.Claim) (domain.Proof, error) {
	if err := ctx.Err(); err != nil {
		return domain.Proof{}, err
	}
	if claim.MerkleRoot.IsZero() {
		return domain.Proof{}, fmt.Errorf("%w: claim has no merkle root", domain.ErrInvalidArgument)
	}
	proof := domain.Proof{
		Backend:      Name,
		Claim:        claim,
		DecisionHash: randomDigest(),
		Payload:      []byte(RandomHex(64)),
	}
	p.mu.Lock()
	p.issued[proof.DecisionHash] = bytes.Clone(proof.Payload)
	p.mu.Unlock()
	return proof, nil
}

// Pending is the number of issued proofs not yet verified.
func (p *Proofs) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.issued)
}

func (p *Proofs) Verify(ctx context.Context, proof domain.Proof) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.issued[proof.DecisionHash]
	if !ok || proof.Backend != Name || !bytes.Equal(payload, proof.Payload) {
		return false, nil
	}
	delete(p.issued, proof.DecisionHash)
	return true, nil
}

// Signers returns exactly the required number of random signatures.
type Signers struct{}

func (Signers) Collect(ctx context.Context, caseID uuid.UUID, subject domain.Digest, quorum domain.Quorum) ([]domain.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Signature, quorum.Required)
	for i := range out {
		out[i] = domain.Signature{
			Signer:  RandomHex(20),
			Sig:     RandomHex(65),
			Subject: subject,
			Scheme:  Name,
		}
	}
	return out, nil
}

type Escrow struct{}

func (Escrow) Lock(ctx context.Context, caseID uuid.UUID, terms domain.EscrowTerms) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return RandomHex(32), nil
}

func (Escrow) Release(ctx context.Context, caseID uuid.UUID, decisionHash *domain.Digest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return RandomHex(32), nil
}

// AnchorProvider answers every anchor request with a random transaction hash.
type AnchorProvider struct{}

func (AnchorProvider) ProviderName() string { return Name }

func (AnchorProvider) Anchor(ctx context.Context, payload anchor.Payload) domain.AnchorReceipt {
	if err := ctx.Err(); err != nil {
		return domain.AnchorReceipt{Status: domain.AnchorStatusFailed, Error: err.Error()}
	}
	return domain.AnchorReceipt{Provider: Name, Status: domain.AnchorStatusAnchored, TxID: RandomHex(32)}
}
