package domain

import (
	"time"

	"github.com/google/uuid"
)

type CaseStatus string

const (
	CaseStatusOpened           CaseStatus = "opened"
	CaseStatusEvidenceAttached CaseStatus = "evidence_attached"
	CaseStatusProven           CaseStatus = "proven"
	CaseStatusDeliberated      CaseStatus = "deliberated"
	CaseStatusAnchored         CaseStatus = "anchored"
	CaseStatusExecuted         CaseStatus = "executed"
)

// Step names a transition of the arbitration flow. Each step runs at most once per case.
type Step string

const (
	StepEvidence     Step = "evidence"
	StepProof        Step = "proof"
	StepDeliberation Step = "deliberation"
	StepAnchor       Step = "anchor"
	StepExecution    Step = "execution"
)

// FlowSteps lists the steps in the order the orchestrator drives them.
var FlowSteps = []Step{StepEvidence, StepProof, StepDeliberation, StepAnchor, StepExecution}

type EvidenceFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash Digest `json:"hash"`
}

// Case is a snapshot of one arbitration. Transitions return a new snapshot and never
// modify the one they were given; use Clone before changing any slice.
type Case struct {
	ID           uuid.UUID         `json:"id"`
	Preset       string            `json:"preset"`
	Notes        string            `json:"notes"`
	Status       CaseStatus        `json:"status"`
	Version      int               `json:"version"`
	Evidence     []EvidenceFile    `json:"evidence"`
	MerkleRoot   *Digest           `json:"merkle_root,omitempty"`
	Inclusions   []InclusionRecord `json:"inclusions,omitempty"`
	Proof        *Proof            `json:"proof,omitempty"`
	DecisionHash *Digest           `json:"decision_hash,omitempty"`
	Signatures   []Signature       `json:"signatures,omitempty"`
	EscrowLockTx string            `json:"escrow_lock_tx,omitempty"`
	AnchorTx     string            `json:"anchor_tx,omitempty"`
	Anchors      []AnchorReceipt   `json:"anchors,omitempty"`
	ExecTx       string            `json:"exec_tx,omitempty"`
	Audit        []AuditEntry      `json:"audit"`
	OpenedAt     time.Time         `json:"opened_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Done reports whether step has already been applied to the case.
func (c Case) Done(step Step) bool {
	switch step {
	case StepEvidence:
		return c.MerkleRoot != nil
	case StepProof:
		return c.DecisionHash != nil
	case StepDeliberation:
		return len(c.Signatures) > 0
	case StepAnchor:
		return c.AnchorTx != ""
	case StepExecution:
		return c.ExecTx != ""
	default:
		return false
	}
}

// Progress is the furthest status the case has reached. Deliberation may happen before the
// proof, so status never moves backwards.
func (c Case) Progress() CaseStatus {
	switch {
	case c.Done(StepExecution):
		return CaseStatusExecuted
	case c.Done(StepAnchor):
		return CaseStatusAnchored
	case c.Done(StepDeliberation):
		return CaseStatusDeliberated
	case c.Done(StepProof):
		return CaseStatusProven
	case c.Done(StepEvidence):
		return CaseStatusEvidenceAttached
	default:
		return CaseStatusOpened
	}
}

// Leaves returns the evidence hashes in selection order.
func (c Case) Leaves() []Digest {
	out := make([]Digest, len(c.Evidence))
	for i, file := range c.Evidence {
		out[i] = file.Hash
	}
	return out
}

func (c Case) Clone() Case {
	out := c
	if c.Evidence != nil {
		out.Evidence = append([]EvidenceFile(nil), c.Evidence...)
	}
	if c.MerkleRoot != nil {
		root := *c.MerkleRoot
		out.MerkleRoot = &root
	}
	if c.Inclusions != nil {
		out.Inclusions = make([]InclusionRecord, len(c.Inclusions))
		for i, rec := range c.Inclusions {
			rec.Path = ClonePath(rec.Path)
			out.Inclusions[i] = rec
		}
	}
	if c.Proof != nil {
		proof := c.Proof.Clone()
		out.Proof = &proof
	}
	if c.DecisionHash != nil {
		dh := *c.DecisionHash
		out.DecisionHash = &dh
	}
	if c.Signatures != nil {
		out.Signatures = make([]Signature, len(c.Signatures))
		for i, sig := range c.Signatures {
			out.Signatures[i] = sig.Clone()
		}
	}
	if c.Anchors != nil {
		out.Anchors = append([]AnchorReceipt(nil), c.Anchors...)
	}
	if c.Audit != nil {
		out.Audit = append([]AuditEntry(nil), c.Audit...)
	}
	return out
}

// Inclusion returns the recorded path for a leaf index, if any.
func (c Case) Inclusion(index int) (InclusionRecord, bool) {
	for _, rec := range c.Inclusions {
		if rec.Index == index {
			return rec, true
		}
	}
	return InclusionRecord{}, false
}
