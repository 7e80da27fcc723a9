package journal

import (
	"context"

	"arbiter/internal/domain"
	"arbiter/internal/infra/anchor"
)

// Appender is a tamper-evident append-only log, such as the LevelDB anchor journal.
type Appender interface {
	AppendJournal(ctx context.Context, payload []byte) (string, error)
}

// Provider anchors decision payloads into a local journal.
type Provider struct {
	log Appender
}

func NewProvider(log Appender) *Provider {
	return &Provider{log: log}
}

func (p *Provider) ProviderName() string {
	return "journal"
}

func (p *Provider) Anchor(ctx context.Context, payload anchor.Payload) domain.AnchorReceipt {
	receipt := domain.AnchorReceipt{Provider: p.ProviderName()}
	if p.log == nil {
		receipt.Status = domain.AnchorStatusFailed
		receipt.Error = "journal not configured"
		return receipt
	}
	tx, err := p.log.AppendJournal(ctx, payload.Canonical)
	if err != nil {
		receipt.Status = domain.AnchorStatusFailed
		receipt.Error = err.Error()
		return receipt
	}
	receipt.Status = domain.AnchorStatusAnchored
	receipt.TxID = tx
	return receipt
}
