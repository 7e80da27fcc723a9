// Package app assembles the arbitration flow from configuration. The server, the worker and
// the CLI share it so every entry point drives the same backends.
package app

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"arbiter/internal/config"
	"arbiter/internal/domain"
	"arbiter/internal/infra/anchor"
	"arbiter/internal/infra/anchor/blockchain"
	"arbiter/internal/infra/anchor/journal"
	"arbiter/internal/infra/placeholder"
	"arbiter/internal/infra/presets"
	"arbiter/internal/infra/signing"
	"arbiter/internal/usecase"
)

// Backends holds the flow and the pieces callers may need directly.
type Backends struct {
	Flow    *usecase.Flow
	Presets *presets.Catalog
	Panel   *signing.Panel
}

// NewBackends builds the flow. journalLog may be nil, in which case the journal anchor
// provider is left out.
func NewBackends(cfg config.Config, journalLog journal.Appender) (*Backends, error) {
	catalog := presets.NewCatalog()

	out := &Backends{Presets: catalog}
	var signers domain.SignatureCollector = placeholder.Signers{}
	switch cfg.SigningMode {
	case "", config.SigningModePlaceholder:
	case config.SigningModeCOSE:
		panel, err := newPanel(cfg.PanelSeedHex, panelSize(catalog))
		if err != nil {
			return nil, err
		}
		out.Panel = panel
		signers = panel
	default:
		return nil, fmt.Errorf("%w: signing mode %q", domain.ErrInvalidArgument, cfg.SigningMode)
	}

	providers := []anchor.Provider{blockchain.NewProvider(), placeholder.AnchorProvider{}}
	if journalLog != nil {
		providers = append(providers, journal.NewProvider(journalLog))
	}
	anchors, err := anchor.NewService(providers, enabledProviders(cfg.AnchorProviders, providers), cfg.AnchorTimeout())
	if err != nil {
		return nil, err
	}

	out.Flow = &usecase.Flow{
		Presets: catalog,
		Proofs:  placeholder.NewProofs(),
		Signers: signers,
		Anchors: anchors,
		Escrow:  placeholder.Escrow{},
	}
	return out, nil
}

func newPanel(seedHex string, size int) (*signing.Panel, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	if seedHex == "" {
		log.Printf("ARBITER_PANEL_SEED_HEX not set; using a random arbitrator panel.")
		return signing.NewRandomPanel(size)
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: panel seed: %v", domain.ErrInvalidArgument, err)
	}
	return signing.NewPanelFromSeed(seed, size)
}

// panelSize is the largest quorum total any preset asks for.
func panelSize(catalog domain.PresetCatalog) int {
	size := 1
	for _, p := range catalog.List() {
		q, err := domain.ParseQuorum(p.Quorum)
		if err == nil && q.Total > size {
			size = q.Total
		}
	}
	return size
}

// enabledProviders keeps the configured order and drops the journal when it is not wired.
func enabledProviders(ids []string, providers []anchor.Provider) []string {
	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p.ProviderName()] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "journal" && !known[id] {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		out = append(out, placeholder.Name)
	}
	return out
}
