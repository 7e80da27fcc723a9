package usecase

import (
	"context"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

// CaseRepository persists case snapshots. Update must fail with domain.ErrStaleVersion when the
// stored version differs from expectedVersion, and returns the snapshot with its new version.
type CaseRepository interface {
	Create(ctx context.Context, c domain.Case) (domain.Case, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Case, error)
	Update(ctx context.Context, c domain.Case, expectedVersion int) (domain.Case, error)
	List(ctx context.Context, limit int) ([]domain.Case, error)
}
