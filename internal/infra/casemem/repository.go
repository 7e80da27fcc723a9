package casemem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

// Repository keeps cases in process memory. It backs the server when no database is set.
type Repository struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]domain.Case
}

func New() *Repository {
	return &Repository{cases: make(map[uuid.UUID]domain.Case)}
}

func (r *Repository) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cases[c.ID]; exists {
		return domain.Case{}, fmt.Errorf("%w: case %s exists", domain.ErrConflict, c.ID)
	}
	c = c.Clone()
	c.Version = 1
	r.cases[c.ID] = c
	return c.Clone(), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: case %s", domain.ErrNotFound, id)
	}
	return c.Clone(), nil
}

func (r *Repository) Update(ctx context.Context, c domain.Case, expectedVersion int) (domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: case %s", domain.ErrNotFound, c.ID)
	}
	if stored.Version != expectedVersion {
		return domain.Case{}, fmt.Errorf("%w: case %s is at version %d", domain.ErrStaleVersion, c.ID, stored.Version)
	}
	c = c.Clone()
	c.Version = expectedVersion + 1
	r.cases[c.ID] = c
	return c.Clone(), nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Case, error) {
	r.mu.RLock()
	out := make([]domain.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, c.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].OpenedAt.After(out[j].OpenedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
