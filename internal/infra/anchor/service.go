package anchor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

const DefaultTimeout = 2 * time.Second

type Provider interface {
	ProviderName() string
	Anchor(ctx context.Context, payload Payload) domain.AnchorReceipt
}

// Service anchors a decision hash with every configured provider in order and reports one
// receipt per provider. A provider that overruns its timeout is marked TIMEOUT.
type Service struct {
	providers          map[string]Provider
	defaultProviderIDs []string
	timeout            time.Duration
	now                func() time.Time
}

func NewService(providers []Provider, defaultProviderIDs []string, timeout time.Duration) (*Service, error) {
	index := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		if provider == nil {
			return nil, errors.New("provider is nil")
		}
		id := provider.ProviderName()
		if id == "" {
			return nil, errors.New("provider id is required")
		}
		if _, exists := index[id]; exists {
			return nil, errors.New("duplicate provider id: " + id)
		}
		index[id] = provider
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		providers:          index,
		defaultProviderIDs: defaultProviderIDs,
		timeout:            timeout,
		now:                time.Now,
	}, nil
}

func (s *Service) Anchor(ctx context.Context, caseID uuid.UUID, decisionHash domain.Digest) ([]domain.AnchorReceipt, error) {
	if s == nil {
		return nil, errors.New("anchor service is nil")
	}
	payload, err := BuildPayload(caseID, decisionHash)
	if err != nil {
		return nil, err
	}
	receipts := make([]domain.AnchorReceipt, 0, len(s.defaultProviderIDs))
	for _, id := range s.defaultProviderIDs {
		provider, ok := s.providers[id]
		if !ok {
			receipts = append(receipts, domain.AnchorReceipt{
				Provider:   id,
				Status:     domain.AnchorStatusFailed,
				Error:      "unknown provider",
				AnchoredAt: s.now().UTC(),
			})
			continue
		}
		providerCtx, cancel := context.WithTimeout(ctx, s.timeout)
		receipt := provider.Anchor(providerCtx, payload)
		cancel()
		if receipt.Provider == "" {
			receipt.Provider = provider.ProviderName()
		}
		if receipt.Status == "" {
			receipt.Status = domain.AnchorStatusAnchored
		}
		if errors.Is(providerCtx.Err(), context.DeadlineExceeded) && receipt.Status != domain.AnchorStatusAnchored {
			receipt.Status = domain.AnchorStatusTimeout
		}
		if receipt.AnchoredAt.IsZero() {
			receipt.AnchoredAt = s.now().UTC()
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}
