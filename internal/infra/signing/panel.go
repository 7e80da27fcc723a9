package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"
	"golang.org/x/crypto/sha3"

	"arbiter/internal/domain"
)

const Scheme = "cose-sign1-ed25519"

var (
	ErrUnknownSigner = errors.New("unknown signer")
	ErrBadSignature  = errors.New("signature does not verify")
)

// Statement is the CBOR payload every arbitrator signs.
type Statement struct {
	CaseID  string `cbor:"1,keyasint"`
	Subject []byte `cbor:"2,keyasint"`
}

type Arbitrator struct {
	Address string
	key     ed25519.PrivateKey
}

func (a Arbitrator) PublicKey() ed25519.PublicKey {
	return a.key.Public().(ed25519.PublicKey)
}

// Panel is a fixed set of arbitrators that endorse a subject with COSE_Sign1 signatures.
type Panel struct {
	arbitrators []Arbitrator
	byAddress   map[string]int
	encMode     cbor.EncMode
	decMode     cbor.DecMode
}

// NewPanelFromSeed derives size arbitrator keys from seed, so a panel can be recreated to
// verify signatures it produced earlier.
func NewPanelFromSeed(seed []byte, size int) (*Panel, error) {
	if len(seed) == 0 {
		return nil, errors.New("panel seed is required")
	}
	keys := make([]ed25519.PrivateKey, size)
	for i := range keys {
		h := sha256.New()
		h.Write(seed)
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], uint32(i))
		h.Write(idx[:])
		keys[i] = ed25519.NewKeyFromSeed(h.Sum(nil))
	}
	return newPanel(keys)
}

func NewRandomPanel(size int) (*Panel, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewPanelFromSeed(seed, size)
}

func newPanel(keys []ed25519.PrivateKey) (*Panel, error) {
	if len(keys) == 0 {
		return nil, errors.New("panel needs at least one arbitrator")
	}
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	decMode, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	p := &Panel{byAddress: make(map[string]int, len(keys)), encMode: encMode, decMode: decMode}
	for i, key := range keys {
		arb := Arbitrator{Address: Address(key.Public().(ed25519.PublicKey)), key: key}
		p.arbitrators = append(p.arbitrators, arb)
		p.byAddress[arb.Address] = i
	}
	return p, nil
}

// Address is the 0x-prefixed last 20 bytes of the Keccak-256 hash of a public key.
func Address(pub ed25519.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}

func (p *Panel) Size() int {
	return len(p.arbitrators)
}

func (p *Panel) Arbitrators() []Arbitrator {
	return append([]Arbitrator(nil), p.arbitrators...)
}

// Collect signs subject with the first quorum.Required arbitrators of the panel.
func (p *Panel) Collect(ctx context.Context, caseID uuid.UUID, subject domain.Digest, quorum domain.Quorum) ([]domain.Signature, error) {
	if quorum.Total > len(p.arbitrators) {
		return nil, fmt.Errorf("%w: quorum needs %d arbitrators, panel has %d", domain.ErrPreconditionFailed, quorum.Total, len(p.arbitrators))
	}
	payload, err := p.encMode.Marshal(Statement{CaseID: caseID.String(), Subject: subject[:]})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Signature, 0, quorum.Required)
	for _, arb := range p.arbitrators[:quorum.Required] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sig, err := p.sign(arb, payload)
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", arb.Address, err)
		}
		sig.Subject = subject
		out = append(out, sig)
	}
	return out, nil
}

func (p *Panel) sign(arb Arbitrator, payload []byte) (domain.Signature, error) {
	signer, err := cose.NewSigner(cose.AlgorithmEd25519, arb.key)
	if err != nil {
		return domain.Signature{}, err
	}
	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmEd25519)
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = []byte(arb.Address)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return domain.Signature{}, err
	}
	envelope, err := msg.MarshalCBOR()
	if err != nil {
		return domain.Signature{}, err
	}
	return domain.Signature{
		Signer:   arb.Address,
		Sig:      "0x" + hex.EncodeToString(msg.Signature),
		Scheme:   Scheme,
		Envelope: envelope,
	}, nil
}

// Verify checks that sig is a panel member's COSE_Sign1 over caseID and sig.Subject.
func (p *Panel) Verify(caseID uuid.UUID, sig domain.Signature) error {
	idx, ok := p.byAddress[sig.Signer]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, sig.Signer)
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sig.Envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	kid, _ := msg.Headers.Unprotected[cose.HeaderLabelKeyID].([]byte)
	if string(kid) != sig.Signer {
		return fmt.Errorf("%w: key id does not match signer", ErrBadSignature)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmEd25519, p.arbitrators[idx].PublicKey())
	if err != nil {
		return err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	var stmt Statement
	if err := p.decMode.Unmarshal(msg.Payload, &stmt); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrBadSignature, err)
	}
	if stmt.CaseID != caseID.String() || string(stmt.Subject) != string(sig.Subject[:]) {
		return fmt.Errorf("%w: statement does not match case", ErrBadSignature)
	}
	return nil
}

// VerifyQuorum counts distinct valid signers and fails when fewer than quorum.Required.
func (p *Panel) VerifyQuorum(caseID uuid.UUID, sigs []domain.Signature, quorum domain.Quorum) (int, error) {
	seen := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		if seen[sig.Signer] {
			continue
		}
		if err := p.Verify(caseID, sig); err != nil {
			return len(seen), err
		}
		seen[sig.Signer] = true
	}
	if len(seen) < quorum.Required {
		return len(seen), fmt.Errorf("%w: %d of %d signatures", domain.ErrPreconditionFailed, len(seen), quorum.Required)
	}
	return len(seen), nil
}
