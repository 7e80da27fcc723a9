package domain

import (
	"bytes"
	"context"

	"github.com/google/uuid"
)

// Claim is what a proof attests to.
type Claim struct {
	CaseID     uuid.UUID `json:"case_id"`
	MerkleRoot Digest    `json:"merkle_root"`
	Preset     string    `json:"preset"`
}

type Proof struct {
	Backend      string `json:"backend"`
	Claim        Claim  `json:"claim"`
	DecisionHash Digest `json:"decision_hash"`
	Payload      []byte `json:"payload"`
}

func (p Proof) Clone() Proof {
	out := p
	out.Payload = bytes.Clone(p.Payload)
	return out
}

// Signature is one arbitrator's endorsement. Signer is a 20-byte address in 0x-hex form.
type Signature struct {
	Signer  string `json:"signer"`
	Sig     string `json:"sig"`
	Subject Digest `json:"subject"`
	Scheme  string `json:"scheme,omitempty"`
	// Envelope carries the full COSE_Sign1 message when the scheme produces one.
	Envelope []byte `json:"envelope,omitempty"`
}

func (s Signature) Clone() Signature {
	out := s
	out.Envelope = bytes.Clone(s.Envelope)
	return out
}

type EscrowTerms struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type ProofBackend interface {
	Produce(ctx context.Context, claim Claim) (Proof, error)
	Verify(ctx context.Context, proof Proof) (bool, error)
}

type SignatureCollector interface {
	Collect(ctx context.Context, caseID uuid.UUID, subject Digest, quorum Quorum) ([]Signature, error)
}

type Anchorer interface {
	Anchor(ctx context.Context, caseID uuid.UUID, decisionHash Digest) ([]AnchorReceipt, error)
}

type EscrowExecutor interface {
	Lock(ctx context.Context, caseID uuid.UUID, terms EscrowTerms) (string, error)
	Release(ctx context.Context, caseID uuid.UUID, decisionHash *Digest) (string, error)
}
