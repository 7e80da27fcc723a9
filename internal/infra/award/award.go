package award

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"arbiter/internal/domain"
)

const DefaultWatermark = "DEMO – NOT A LEGAL AWARD"

const (
	marginLeft   = 56.0
	marginTop    = 72.0
	marginBottom = 56.0
)

type Options struct {
	Watermark string
	IssuedAt  time.Time
	// OmitEvidence and OmitSignatures withhold sections the reader may not see.
	OmitEvidence   bool
	OmitSignatures bool
}

// Render writes the award for c as an A4 PDF, continuing onto further pages when the
// evidence list is long. The case must carry a decision hash.
func Render(w io.Writer, c domain.Case, preset domain.Preset, opts Options) error {
	doc, err := build(c, preset, opts)
	if err != nil {
		return err
	}
	return doc.Output(w)
}

func build(c domain.Case, preset domain.Preset, opts Options) (*fpdf.Fpdf, error) {
	if c.DecisionHash == nil {
		return nil, fmt.Errorf("%w: generate proof first", domain.ErrPreconditionFailed)
	}
	watermark := opts.Watermark
	if watermark == "" {
		watermark = DefaultWatermark
	}
	issued := opts.IssuedAt
	if issued.IsZero() {
		issued = c.UpdatedAt
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetCompression(false)
	doc.SetCatalogSort(true)
	doc.SetTitle("Arbitral Award – Case "+c.ID.String(), true)
	doc.SetProducer("arbiter", false)
	doc.SetCreationDate(issued.UTC())
	doc.SetMargins(marginLeft, marginTop, marginLeft)
	doc.SetAutoPageBreak(true, marginBottom)

	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetHeaderFunc(func() {
		drawWatermark(doc, tr(plain(watermark)))
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-marginBottom + 16)
		doc.SetFont("Helvetica", "", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("Case %s, page %d", c.ID, doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	for _, line := range lines(c, preset, issued, opts) {
		if line.gap > 0 {
			doc.Ln(line.gap)
		}
		style := ""
		if line.size >= 14 {
			style = "B"
		}
		doc.SetFont("Helvetica", style, line.size)
		doc.MultiCell(0, line.size+4, tr(plain(line.text)), "", "L", false)
	}
	return doc, doc.Error()
}

// drawWatermark sets the text diagonally across the page, behind the page body.
func drawWatermark(doc *fpdf.Fpdf, text string) {
	if text == "" {
		return
	}
	w, h := doc.GetPageSize()
	doc.SetFont("Helvetica", "B", 42)
	doc.SetTextColor(150, 150, 150)
	doc.SetAlpha(0.18, "Normal")
	doc.TransformBegin()
	doc.TransformRotate(45, w/2, h/2)
	doc.Text(w/2-doc.GetStringWidth(text)/2, h/2, text)
	doc.TransformEnd()
	doc.SetAlpha(1, "Normal")
	doc.SetTextColor(0, 0, 0)
}

type textLine struct {
	size float64
	text string
	gap  float64
}

func lines(c domain.Case, preset domain.Preset, issued time.Time, opts Options) []textLine {
	out := []textLine{
		{size: 20, text: "Arbitral Award"},
		{size: 11, text: "Case " + c.ID.String(), gap: 4},
		{size: 11, text: "Issued " + issued.UTC().Format(time.RFC3339)},
		{size: 14, text: "Dispute", gap: 14},
		{size: 10, text: presetLabel(c, preset)},
		{size: 10, text: "Escrow: " + preset.Escrow.Amount + " (" + preset.Escrow.Currency + ") • Quorum: " + preset.Quorum},
		{size: 10, text: "Notes: " + c.Notes},
		{size: 14, text: "Evidence", gap: 14},
	}
	if opts.OmitEvidence {
		out = append(out, textLine{size: 10, text: fmt.Sprintf("%d file(s), listing withheld.", len(c.Evidence))})
	} else {
		for i, f := range c.Evidence {
			out = append(out, textLine{size: 9, text: fmt.Sprintf("%d. %s • %dB • %s", i+1, f.Name, f.Size, f.Hash)})
		}
	}
	out = append(out,
		textLine{size: 10, text: "Merkle root: " + digestOrDash(c.MerkleRoot)},
		textLine{size: 14, text: "Decision", gap: 14},
		textLine{size: 10, text: "Decision hash: " + digestOrDash(c.DecisionHash)},
		textLine{size: 10, text: "Anchor tx: " + orDash(c.AnchorTx)},
		textLine{size: 10, text: "Escrow release tx: " + orDash(c.ExecTx)},
		textLine{size: 14, text: "Arbitrators", gap: 14},
	)
	switch {
	case len(c.Signatures) == 0:
		out = append(out, textLine{size: 10, text: "No signatures collected."})
	case opts.OmitSignatures:
		out = append(out, textLine{size: 10, text: fmt.Sprintf("%d signature(s), signers withheld.", len(c.Signatures))})
	default:
		for _, sig := range c.Signatures {
			out = append(out, textLine{size: 9, text: "Signed by " + sig.Signer + schemeSuffix(sig.Scheme)})
		}
	}
	return out
}

// Runes the core fonts cannot draw.
var textReplacements = strings.NewReplacer(
	"≥", ">=",
	"≤", "<=",
	"₩", "KRW ",
	"\t", " ",
	"\r", " ",
	"\n", " ",
)

func plain(s string) string {
	return textReplacements.Replace(s)
}

func presetLabel(c domain.Case, preset domain.Preset) string {
	if preset.Label == "" {
		return c.Preset
	}
	return preset.Label
}

func schemeSuffix(scheme string) string {
	if scheme == "" {
		return ""
	}
	return " (" + scheme + ")"
}

func digestOrDash(d *domain.Digest) string {
	if d == nil {
		return "–"
	}
	return d.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "–"
	}
	return s
}
