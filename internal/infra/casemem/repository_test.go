package casemem

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

func TestRepositoryVersioning(t *testing.T) {
	ctx := context.Background()
	repo := New()
	c := domain.Case{ID: uuid.New(), Preset: "construction"}

	created, err := repo.Create(ctx, c)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}
	if _, err := repo.Create(ctx, c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}

	created.Notes = "first"
	if _, err := repo.Update(ctx, created, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	created.Notes = "stale"
	if _, err := repo.Update(ctx, created, 1); !errors.Is(err, domain.ErrStaleVersion) {
		t.Fatalf("expected conflict on stale update, got %v", err)
	}
	got, err := repo.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Notes != "first" || got.Version != 2 {
		t.Fatalf("unexpected stored case: %+v", got)
	}
	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := New()
	c := domain.Case{ID: uuid.New(), Evidence: []domain.EvidenceFile{{Name: "a"}}}
	if _, err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := repo.Get(ctx, c.ID)
	got.Evidence[0].Name = "mutated"
	again, _ := repo.Get(ctx, c.ID)
	if again.Evidence[0].Name != "a" {
		t.Fatal("repository leaked internal state")
	}
}
