package bundles

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"arbiter/internal/domain"
)

const AuditBundleVersion = "v1"

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("%w: export format %q", domain.ErrInvalidArgument, value)
	}
}

func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

type AuditBundle struct {
	Meta  Meta  `json:"meta"`
	State State `json:"state"`
}

type Meta struct {
	Version    string    `json:"version"`
	ExportID   string    `json:"export_id"`
	Preset     string    `json:"preset"`
	Notes      string    `json:"notes"`
	ExportedAt time.Time `json:"exported_at"`
}

type State struct {
	CaseID         string                   `json:"case_id"`
	Status         domain.CaseStatus        `json:"status"`
	Files          []domain.EvidenceFile    `json:"files"`
	Merkle         *domain.Digest           `json:"merkle"`
	DecisionHash   *domain.Digest           `json:"decision_hash"`
	EscrowTx       string                   `json:"escrow_tx,omitempty"`
	AnchorTx       string                   `json:"anchor_tx,omitempty"`
	ExecTx         string                   `json:"exec_tx,omitempty"`
	Signatures     []SignatureEntry         `json:"signatures"`
	InclusionPaths []domain.InclusionRecord `json:"inclusion_paths"`
	Anchors        []domain.AnchorReceipt   `json:"anchors,omitempty"`
	Audit          []string                 `json:"audit"`
	AuditChain     []domain.AuditEntry      `json:"audit_chain"`
}

type SignatureEntry struct {
	Signer string `json:"signer"`
	Sig    string `json:"sig"`
	Scheme string `json:"scheme,omitempty"`
}

// Document is a serialized bundle ready for download.
type Document struct {
	FileName    string
	ContentType string
	Body        []byte
	Digest      domain.Digest
}

func Build(c domain.Case, exportedAt time.Time) AuditBundle {
	c = c.Clone()
	state := State{
		CaseID:         c.ID.String(),
		Status:         c.Status,
		Files:          c.Evidence,
		Merkle:         c.MerkleRoot,
		DecisionHash:   c.DecisionHash,
		EscrowTx:       c.EscrowLockTx,
		AnchorTx:       c.AnchorTx,
		ExecTx:         c.ExecTx,
		Signatures:     make([]SignatureEntry, 0, len(c.Signatures)),
		InclusionPaths: c.Inclusions,
		Anchors:        c.Anchors,
		Audit:          make([]string, 0, len(c.Audit)),
		AuditChain:     c.Audit,
	}
	if state.Files == nil {
		state.Files = []domain.EvidenceFile{}
	}
	if state.InclusionPaths == nil {
		state.InclusionPaths = []domain.InclusionRecord{}
	}
	for _, sig := range c.Signatures {
		state.Signatures = append(state.Signatures, SignatureEntry{Signer: sig.Signer, Sig: sig.Sig, Scheme: sig.Scheme})
	}
	for _, entry := range c.Audit {
		state.Audit = append(state.Audit, entry.Line())
	}
	return AuditBundle{
		Meta: Meta{
			Version:    AuditBundleVersion,
			ExportID:   uuid.NewString(),
			Preset:     c.Preset,
			Notes:      c.Notes,
			ExportedAt: exportedAt.UTC(),
		},
		State: state,
	}
}

var cborEncMode = mustCBOREncMode()

func mustCBOREncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

func Marshal(bundle AuditBundle, format Format) ([]byte, error) {
	switch format {
	case FormatCBOR:
		return cborEncMode.Marshal(bundle)
	case FormatJSON, "":
		return json.MarshalIndent(bundle, "", "  ")
	default:
		return nil, fmt.Errorf("%w: export format %q", domain.ErrInvalidArgument, format)
	}
}

// Export serializes the case and names the file after the export time in unix milliseconds.
func Export(c domain.Case, format Format, exportedAt time.Time) (Document, error) {
	if format == "" {
		format = FormatJSON
	}
	body, err := Marshal(Build(c, exportedAt), format)
	if err != nil {
		return Document{}, err
	}
	return Document{
		FileName:    fmt.Sprintf("adr-audit-%d.%s", exportedAt.UnixMilli(), format),
		ContentType: format.ContentType(),
		Body:        body,
		Digest:      domain.Digest(sha256.Sum256(body)),
	}, nil
}
