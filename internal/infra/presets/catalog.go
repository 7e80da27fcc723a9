package presets

import (
	"fmt"

	"arbiter/internal/domain"
)

const DefaultKey = "construction"

var builtin = []domain.Preset{
	{
		Key:    "construction",
		Label:  "Construction delay (Owner vs Contractor)",
		Icon:   "🏗️",
		Escrow: domain.EscrowTerms{Currency: "KRW", Amount: "₩3,000,000,000"},
		Quorum: "2 of 3",
		Notes:  "Owner claims LD for 3-month delay; contractor invokes force majeure.",
	},
	{
		Key:    "saas",
		Label:  "SaaS outage SLA (Customer vs Provider)",
		Icon:   "🖥️",
		Escrow: domain.EscrowTerms{Currency: "USD", Amount: "$200,000"},
		Quorum: "2 of 3",
		Notes:  "Customer alleges downtime ≥ 4h; provider reports 3h50m.",
	},
	{
		Key:    "ipRoyalty",
		Label:  "Cross-border IP licensing (Royalty underreporting)",
		Icon:   "📄",
		Escrow: domain.EscrowTerms{Currency: "USD", Amount: "$500,000"},
		Quorum: "3 of 5",
		Notes:  "Underreported APAC sales; audited deltas disputed.",
	},
	{
		Key:    "supplyDefect",
		Label:  "Supply-chain quality defect (OEM vs Supplier)",
		Icon:   "🔧",
		Escrow: domain.EscrowTerms{Currency: "EUR", Amount: "€350,000"},
		Quorum: "2 of 3",
		Notes:  "OEM claims defect rate exceeded 1.5%; Supplier submits QC reports and rework logs.",
	},
	{
		Key:    "milestone",
		Label:  "Freelance milestone non-payment",
		Icon:   "🧾",
		Escrow: domain.EscrowTerms{Currency: "USD", Amount: "$30,000"},
		Quorum: "1 of 1 (sole arb)",
		Notes:  "Client refuses to pay final milestone. Contractor submits delivery hashes & acceptance emails.",
	},
}

// Catalog is a fixed, ordered set of case presets.
type Catalog struct {
	items      []domain.Preset
	byKey      map[string]int
	defaultKey string
}

// NewCatalog returns the built-in presets with construction as the default.
func NewCatalog() *Catalog {
	c, err := NewCustomCatalog(builtin, DefaultKey)
	if err != nil {
		panic(err)
	}
	return c
}

func NewCustomCatalog(items []domain.Preset, defaultKey string) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]int, len(items)), defaultKey: defaultKey}
	for _, p := range items {
		if p.Key == "" {
			return nil, fmt.Errorf("%w: preset without key", domain.ErrInvalidArgument)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate preset %q", domain.ErrInvalidArgument, p.Key)
		}
		if _, err := domain.ParseQuorum(p.Quorum); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Key, err)
		}
		p.Default = p.Key == defaultKey
		c.byKey[p.Key] = len(c.items)
		c.items = append(c.items, p)
	}
	if _, ok := c.byKey[defaultKey]; !ok {
		return nil, fmt.Errorf("%w: default preset %q not in catalog", domain.ErrInvalidArgument, defaultKey)
	}
	return c, nil
}

func (c *Catalog) Get(key string) (domain.Preset, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return domain.Preset{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Default() domain.Preset {
	return c.items[c.byKey[c.defaultKey]]
}

func (c *Catalog) List() []domain.Preset {
	return append([]domain.Preset(nil), c.items...)
}

// Describe renders the one-line summary shown next to a preset selector.
func Describe(p domain.Preset) string {
	return fmt.Sprintf("Escrow: %s • Quorum: %s • Currency: %s", p.Escrow.Amount, p.Quorum, p.Escrow.Currency)
}
