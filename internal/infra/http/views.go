package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"arbiter/internal/domain"
)

const (
	sectionSummary    = "summary"
	sectionEvidence   = "evidence"
	sectionInclusions = "inclusions"
	sectionSignatures = "signatures"
	sectionAudit      = "audit"
)

var partiesAndPanel = []string{string(domain.RoleClaimant), string(domain.RoleRespondent), string(domain.RoleArbitrator)}

// caseSections names the owners of each part of a case view.
var caseSections = map[string][]string{
	sectionSummary:    {domain.SectionOwnerAny},
	sectionEvidence:   partiesAndPanel,
	sectionInclusions: partiesAndPanel,
	sectionSignatures: {string(domain.RoleArbitrator)},
	sectionAudit:      {string(domain.RoleArbitrator)},
}

type caseView struct {
	CaseID       string                   `json:"case_id"`
	Preset       string                   `json:"preset"`
	Status       domain.CaseStatus        `json:"status"`
	Version      int                      `json:"version"`
	Notes        string                   `json:"notes"`
	MerkleRoot   *domain.Digest           `json:"merkle_root"`
	DecisionHash *domain.Digest           `json:"decision_hash"`
	EscrowLockTx string                   `json:"escrow_lock_tx,omitempty"`
	AnchorTx     string                   `json:"anchor_tx,omitempty"`
	ExecTx       string                   `json:"exec_tx,omitempty"`
	Anchors      []domain.AnchorReceipt   `json:"anchors,omitempty"`
	Evidence     []domain.EvidenceFile    `json:"evidence,omitempty"`
	Inclusions   []domain.InclusionRecord `json:"inclusions,omitempty"`
	Signatures   []signatureView          `json:"signatures,omitempty"`
	Audit        []string                 `json:"audit,omitempty"`
	Role         domain.Role              `json:"role"`
	Redacted     []string                 `json:"redacted,omitempty"`
	OpenedAt     time.Time                `json:"opened_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type signatureView struct {
	Signer string `json:"signer"`
	Sig    string `json:"sig"`
	Scheme string `json:"scheme,omitempty"`
}

func buildCaseView(c domain.Case, vis domain.Visibility) caseView {
	view := caseView{
		CaseID:    c.ID.String(),
		Preset:    c.Preset,
		Status:    c.Status,
		Version:   c.Version,
		Role:      vis.Role,
		OpenedAt:  c.OpenedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if vis.Allows(sectionSummary) {
		view.Notes = c.Notes
		view.MerkleRoot = c.MerkleRoot
		view.DecisionHash = c.DecisionHash
		view.EscrowLockTx = c.EscrowLockTx
		view.AnchorTx = c.AnchorTx
		view.ExecTx = c.ExecTx
		view.Anchors = c.Anchors
	}
	if vis.Allows(sectionEvidence) {
		view.Evidence = c.Evidence
	}
	if vis.Allows(sectionInclusions) {
		view.Inclusions = c.Inclusions
	}
	if vis.Allows(sectionSignatures) {
		for _, sig := range c.Signatures {
			view.Signatures = append(view.Signatures, signatureView{Signer: sig.Signer, Sig: sig.Sig, Scheme: sig.Scheme})
		}
	}
	if vis.Allows(sectionAudit) {
		for _, entry := range c.Audit {
			view.Audit = append(view.Audit, entry.Line())
		}
	}
	for _, name := range []string{sectionSummary, sectionEvidence, sectionInclusions, sectionSignatures, sectionAudit} {
		if !vis.Allows(name) {
			view.Redacted = append(view.Redacted, name)
		}
	}
	return view
}

func requestRole(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Role"))
}

// visibilityFor evaluates the caller's role. Without a policy engine every section is shown.
func (s *Server) visibilityFor(c *gin.Context) (domain.Visibility, error) {
	if s.visibility == nil {
		all := make([]string, 0, len(caseSections))
		for name := range caseSections {
			all = append(all, name)
		}
		return domain.Visibility{Role: domain.RoleArbitrator, Visible: all}, nil
	}
	return s.visibility.Evaluate(c.Request.Context(), requestRole(c), caseSections)
}
