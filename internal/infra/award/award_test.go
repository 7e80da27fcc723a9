package award

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/domain"
)

func decidedCase() domain.Case {
	root := domain.SumDigest([]byte("root"))
	dh := domain.SumDigest([]byte("decision"))
	return domain.Case{
		ID:           uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"),
		Preset:       "construction",
		Notes:        "Owner claims LD (liquidated damages)",
		Evidence:     []domain.EvidenceFile{{Name: "schedule.pdf", Size: 10, Hash: domain.SumDigest([]byte("A"))}},
		MerkleRoot:   &root,
		DecisionHash: &dh,
		Signatures:   []domain.Signature{{Signer: "0x1111111111111111111111111111111111111111"}},
		AnchorTx:     "0xabc",
	}
}

func render(t *testing.T, c domain.Case, preset domain.Preset, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c, preset, opts))
	return buf.String()
}

func TestRenderProducesPDF(t *testing.T) {
	preset := domain.Preset{Label: "Construction delay (Owner vs Contractor)", Quorum: "2 of 3", Escrow: domain.EscrowTerms{Currency: "KRW", Amount: "₩3,000,000,000"}}
	pdf := render(t, decidedCase(), preset, Options{IssuedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})

	assert.True(t, strings.HasPrefix(pdf, "%PDF-1."))
	assert.Contains(t, pdf, "(Arbitral Award)")
	assert.Contains(t, pdf, "(DEMO \x96 NOT A LEGAL AWARD) Tj")
	assert.Contains(t, pdf, `LD \(liquidated damages\)`)
	assert.Contains(t, pdf, "KRW 3,000,000,000")
	assert.Contains(t, pdf, "schedule.pdf")
	assert.Contains(t, pdf, "Signed by 0x1111111111111111111111111111111111111111")
	assert.Contains(t, pdf, domain.SumDigest([]byte("decision")).String())
	assert.Contains(t, pdf, "%%EOF")
}

func TestRenderIsDeterministic(t *testing.T) {
	opts := Options{IssuedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, render(t, decidedCase(), domain.Preset{}, opts), render(t, decidedCase(), domain.Preset{}, opts))
}

func TestRenderCustomWatermark(t *testing.T) {
	assert.Contains(t, render(t, decidedCase(), domain.Preset{}, Options{Watermark: "SPECIMEN"}), "(SPECIMEN) Tj")
}

func TestRenderRequiresDecision(t *testing.T) {
	c := decidedCase()
	c.DecisionHash = nil
	err := Render(&bytes.Buffer{}, c, domain.Preset{}, Options{})
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestRenderPaginatesLongEvidence(t *testing.T) {
	c := decidedCase()
	c.Evidence = nil
	for i := 0; i < 80; i++ {
		name := fmt.Sprintf("exhibit-%02d.txt", i)
		c.Evidence = append(c.Evidence, domain.EvidenceFile{Name: name, Size: int64(i), Hash: domain.SumDigest([]byte(name))})
	}

	doc, err := build(c, domain.Preset{}, Options{})
	require.NoError(t, err)
	assert.Greater(t, doc.PageCount(), 1)

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	pdf := buf.String()
	assert.Contains(t, pdf, "exhibit-79.txt")
	assert.Contains(t, pdf, "(Arbitrators)")
	assert.Contains(t, pdf, "Signed by 0x1111111111111111111111111111111111111111")
	assert.Equal(t, doc.PageCount(), strings.Count(pdf, "(DEMO \x96 NOT A LEGAL AWARD) Tj"), "every page carries the watermark")
}

func TestRenderOmitsWithheldSections(t *testing.T) {
	pdf := render(t, decidedCase(), domain.Preset{}, Options{OmitEvidence: true, OmitSignatures: true})

	assert.NotContains(t, pdf, "schedule.pdf")
	assert.NotContains(t, pdf, domain.SumDigest([]byte("A")).String())
	assert.NotContains(t, pdf, "0x1111111111111111111111111111111111111111")
	assert.Contains(t, pdf, "1 file(s), listing withheld.")
	assert.Contains(t, pdf, "1 signature(s), signers withheld.")
	assert.Contains(t, pdf, domain.SumDigest([]byte("decision")).String())
}

func TestPlainReplacesUndrawableRunes(t *testing.T) {
	assert.Equal(t, ">= 4h", plain("≥ 4h"))
	assert.Equal(t, "KRW 5 a b", plain("₩5 a\nb"))
}
