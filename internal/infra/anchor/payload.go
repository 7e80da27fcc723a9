package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"arbiter/internal/domain"
)

const payloadVersion = "arbiter_anchor_v1"

// Payload is what providers commit to: a deterministic CBOR map binding a case to its
// decision hash.
type Payload struct {
	CaseID       uuid.UUID
	DecisionHash domain.Digest
	Canonical    []byte
	HashHex      string
}

type payloadBody struct {
	Version      string `cbor:"v"`
	CaseID       string `cbor:"case_id"`
	DecisionHash string `cbor:"decision_hash"`
}

var detEncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

func BuildPayload(caseID uuid.UUID, decisionHash domain.Digest) (Payload, error) {
	if caseID == uuid.Nil {
		return Payload{}, errors.New("case_id is required")
	}
	if decisionHash.IsZero() {
		return Payload{}, errors.New("decision_hash is required")
	}
	canonical, err := detEncMode.Marshal(payloadBody{
		Version:      payloadVersion,
		CaseID:       caseID.String(),
		DecisionHash: decisionHash.String(),
	})
	if err != nil {
		return Payload{}, err
	}
	sum := sha256.Sum256(canonical)
	return Payload{
		CaseID:       caseID,
		DecisionHash: decisionHash,
		Canonical:    canonical,
		HashHex:      hex.EncodeToString(sum[:]),
	}, nil
}
