package ldb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCaseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	root := domain.SumDigest([]byte("root"))
	c := domain.Case{
		ID:         uuid.New(),
		Preset:     "saas",
		Status:     domain.CaseStatusEvidenceAttached,
		Evidence:   []domain.EvidenceFile{{Name: "log.csv", Size: 10, Hash: domain.SumDigest([]byte("log"))}},
		MerkleRoot: &root,
		OpenedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	created, err := s.Create(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)

	_, err = s.Create(ctx, c)
	require.ErrorIs(t, err, domain.ErrConflict)

	loaded, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, root, *loaded.MerkleRoot)
	assert.Equal(t, c.Evidence, loaded.Evidence)

	loaded.Notes = "updated"
	updated, err := s.Update(ctx, loaded, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = s.Update(ctx, loaded, 1)
	require.ErrorIs(t, err, domain.ErrStaleVersion)

	_, err = s.Get(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, domain.Case{ID: uuid.New(), Preset: "saas", OpenedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].OpenedAt.After(list[1].OpenedAt))
}

func TestJournalChainsEntries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.AppendJournal(ctx, []byte("payload-1"))
	require.NoError(t, err)
	second, err := s.AppendJournal(ctx, []byte("payload-1"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "same payload appended twice yields distinct references")
	assert.Len(t, first, 66)

	n, err := s.JournalLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	entry, err := s.JournalEntry(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-1"), entry)

	_, err = s.JournalEntry(3)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
