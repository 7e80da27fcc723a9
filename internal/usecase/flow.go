package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/domain"
	"arbiter/internal/infra/merkle"
)

// Flow applies the arbitration steps to case snapshots. Every method returns a new snapshot
// and leaves its input untouched, so callers decide when and where a result is stored.
type Flow struct {
	Presets domain.PresetCatalog
	Proofs  domain.ProofBackend
	Signers domain.SignatureCollector
	Anchors domain.Anchorer
	Escrow  domain.EscrowExecutor
	Clock   func() time.Time
}

type OpenInput struct {
	Preset string
	Notes  string
}

func (f *Flow) now() time.Time {
	if f.Clock != nil {
		return f.Clock().UTC()
	}
	return time.Now().UTC()
}

func (f *Flow) validate() error {
	if f.Presets == nil || f.Proofs == nil || f.Signers == nil || f.Anchors == nil || f.Escrow == nil {
		return errors.New("flow backends not configured")
	}
	return nil
}

func (f *Flow) preset(key string) (domain.Preset, error) {
	if strings.TrimSpace(key) == "" {
		return f.Presets.Default(), nil
	}
	p, ok := f.Presets.Get(key)
	if !ok {
		return domain.Preset{}, fmt.Errorf("%w: unknown preset %q", domain.ErrInvalidArgument, key)
	}
	return p, nil
}

func (f *Flow) Open(ctx context.Context, input OpenInput) (domain.Case, error) {
	if err := f.validate(); err != nil {
		return domain.Case{}, err
	}
	preset, err := f.preset(input.Preset)
	if err != nil {
		return domain.Case{}, err
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		notes = preset.Notes
	}
	now := f.now()
	c := domain.Case{
		ID:       uuid.New(),
		Preset:   preset.Key,
		Notes:    notes,
		OpenedAt: now,
	}
	c.Audit = appendAudit(c.Audit, now, "Opening case and locking escrow…")
	tx, err := f.Escrow.Lock(ctx, c.ID, preset.Escrow)
	if err != nil {
		return domain.Case{}, fmt.Errorf("lock escrow: %w", err)
	}
	c.EscrowLockTx = tx
	c.Audit = appendAudit(c.Audit, now, fmt.Sprintf("Case %s opened (tx: %s)", c.ID, tx))
	c.Audit = appendAudit(c.Audit, now, "Preset: "+preset.Label)
	c.Audit = appendAudit(c.Audit, now, "Notes: "+notes)
	return f.finish(c, now), nil
}

// AttachEvidence replaces the case's evidence with files, in the given order, and recomputes
// the Merkle root. Recorded inclusion paths belong to the previous leaf set and are dropped.
// Once a proof has committed to the root the evidence can no longer change.
func (f *Flow) AttachEvidence(ctx context.Context, c domain.Case, files []domain.EvidenceFile) (domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return domain.Case{}, err
	}
	if len(files) == 0 {
		return domain.Case{}, fmt.Errorf("%w: add at least one evidence file", domain.ErrInvalidArgument)
	}
	if c.Done(domain.StepProof) {
		return domain.Case{}, fmt.Errorf("%w: evidence is fixed once a proof exists", domain.ErrConflict)
	}
	next := c.Clone()
	next.Evidence = append([]domain.EvidenceFile(nil), files...)
	root, ok := merkle.Root(next.Leaves())
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: no merkle root", domain.ErrInvalidArgument)
	}
	next.MerkleRoot = &root
	next.Inclusions = nil
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, fmt.Sprintf("Evidence uploaded: %d file(s). Merkle root computed.", len(files)))
	return f.finish(next, now), nil
}

// RecordInclusion stores the inclusion path of one evidence file against the current root.
// Asking again for a recorded index returns the stored record unchanged.
func (f *Flow) RecordInclusion(c domain.Case, index int) (domain.Case, domain.InclusionRecord, error) {
	if c.MerkleRoot == nil {
		return domain.Case{}, domain.InclusionRecord{}, fmt.Errorf("%w: add at least one evidence file to compute the Merkle root", domain.ErrPreconditionFailed)
	}
	if rec, ok := c.Inclusion(index); ok {
		return c, rec, nil
	}
	tree := merkle.NewTree(c.Leaves())
	path, err := tree.Path(index)
	if err != nil {
		return domain.Case{}, domain.InclusionRecord{}, err
	}
	rec := domain.InclusionRecord{
		Index: index,
		Leaf:  c.Evidence[index].Hash,
		Path:  path,
		Root:  *c.MerkleRoot,
	}
	next := c.Clone()
	next.Inclusions = append(next.Inclusions, rec)
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, fmt.Sprintf("Inclusion path recorded for evidence #%d (%s).", index, c.Evidence[index].Name))
	return f.finish(next, now), rec, nil
}

func (f *Flow) Prove(ctx context.Context, c domain.Case) (domain.Case, error) {
	if err := f.validate(); err != nil {
		return domain.Case{}, err
	}
	if c.Done(domain.StepProof) {
		return domain.Case{}, fmt.Errorf("%w: proof already generated", domain.ErrConflict)
	}
	if c.MerkleRoot == nil {
		return domain.Case{}, fmt.Errorf("%w: add at least one evidence file to compute the Merkle root", domain.ErrPreconditionFailed)
	}
	next := c.Clone()
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, "Generating proof from Merkle root…")
	proof, err := f.Proofs.Produce(ctx, domain.Claim{CaseID: c.ID, MerkleRoot: *c.MerkleRoot, Preset: c.Preset})
	if err != nil {
		return domain.Case{}, fmt.Errorf("produce proof: %w", err)
	}
	ok, err := f.Proofs.Verify(ctx, proof)
	if err != nil {
		return domain.Case{}, fmt.Errorf("verify proof: %w", err)
	}
	if !ok {
		return domain.Case{}, domain.ErrProofRejected
	}
	dh := proof.DecisionHash
	next.Proof = &proof
	next.DecisionHash = &dh
	next.Audit = appendAudit(next.Audit, now, "Proof verified. Decision hash: "+dh.String())
	return f.finish(next, now), nil
}

// Deliberate collects the preset's quorum of arbitrator signatures. The signed subject is the
// decision hash when one exists, otherwise the Merkle root, otherwise the case ID digest.
func (f *Flow) Deliberate(ctx context.Context, c domain.Case) (domain.Case, error) {
	if err := f.validate(); err != nil {
		return domain.Case{}, err
	}
	if c.Done(domain.StepDeliberation) {
		return domain.Case{}, fmt.Errorf("%w: deliberation already held", domain.ErrConflict)
	}
	preset, err := f.preset(c.Preset)
	if err != nil {
		return domain.Case{}, err
	}
	quorum, err := domain.ParseQuorum(preset.Quorum)
	if err != nil {
		return domain.Case{}, err
	}
	next := c.Clone()
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, "Starting arbitrator deliberation…")
	sigs, err := f.Signers.Collect(ctx, c.ID, DeliberationSubject(c), quorum)
	if err != nil {
		return domain.Case{}, fmt.Errorf("collect signatures: %w", err)
	}
	if len(sigs) < quorum.Required {
		return domain.Case{}, fmt.Errorf("%w: collected %d of %d required signatures", domain.ErrPreconditionFailed, len(sigs), quorum.Required)
	}
	next.Signatures = sigs
	var msg strings.Builder
	fmt.Fprintf(&msg, "Collected %d/%d arbitrator signatures:", len(sigs), quorum.Total)
	for _, sig := range sigs {
		msg.WriteString("\n - " + sig.Signer)
	}
	next.Audit = appendAudit(next.Audit, now, msg.String())
	return f.finish(next, now), nil
}

func DeliberationSubject(c domain.Case) domain.Digest {
	switch {
	case c.DecisionHash != nil:
		return *c.DecisionHash
	case c.MerkleRoot != nil:
		return *c.MerkleRoot
	default:
		return domain.SumDigest([]byte(c.ID.String()))
	}
}

func (f *Flow) Anchor(ctx context.Context, c domain.Case) (domain.Case, error) {
	if err := f.validate(); err != nil {
		return domain.Case{}, err
	}
	if c.Done(domain.StepAnchor) {
		return domain.Case{}, fmt.Errorf("%w: decision already anchored", domain.ErrConflict)
	}
	if c.DecisionHash == nil {
		return domain.Case{}, fmt.Errorf("%w: generate proof first", domain.ErrPreconditionFailed)
	}
	next := c.Clone()
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, "Anchoring decision hash…")
	receipts, err := f.Anchors.Anchor(ctx, c.ID, *c.DecisionHash)
	if err != nil {
		return domain.Case{}, fmt.Errorf("anchor decision: %w", err)
	}
	receipt, ok := domain.FirstAnchored(receipts)
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: %d provider(s) attempted", domain.ErrNotAnchored, len(receipts))
	}
	next.Anchors = receipts
	next.AnchorTx = receipt.TxID
	next.Audit = appendAudit(next.Audit, now, fmt.Sprintf("Decision anchored via %s (tx: %s)", receipt.Provider, receipt.TxID))
	return f.finish(next, now), nil
}

func (f *Flow) Execute(ctx context.Context, c domain.Case) (domain.Case, error) {
	if err := f.validate(); err != nil {
		return domain.Case{}, err
	}
	if c.Done(domain.StepExecution) {
		return domain.Case{}, fmt.Errorf("%w: award already executed", domain.ErrConflict)
	}
	next := c.Clone()
	now := f.now()
	next.Audit = appendAudit(next.Audit, now, "Executing award (escrow release)…")
	tx, err := f.Escrow.Release(ctx, c.ID, c.DecisionHash)
	if err != nil {
		return domain.Case{}, fmt.Errorf("release escrow: %w", err)
	}
	next.ExecTx = tx
	next.Audit = appendAudit(next.Audit, now, fmt.Sprintf("Escrow released (tx: %s)", tx))
	return f.finish(next, now), nil
}

// Apply runs a single named step. Evidence is not a step Apply can run, it needs files.
func (f *Flow) Apply(ctx context.Context, c domain.Case, step domain.Step) (domain.Case, error) {
	switch step {
	case domain.StepProof:
		return f.Prove(ctx, c)
	case domain.StepDeliberation:
		return f.Deliberate(ctx, c)
	case domain.StepAnchor:
		return f.Anchor(ctx, c)
	case domain.StepExecution:
		return f.Execute(ctx, c)
	default:
		return domain.Case{}, fmt.Errorf("%w: step %q", domain.ErrInvalidArgument, step)
	}
}

func (f *Flow) finish(c domain.Case, now time.Time) domain.Case {
	c.Status = c.Progress()
	c.UpdatedAt = now
	return c
}
