package ldb

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"arbiter/internal/domain"
)

var (
	casePrefix    = []byte("case/")
	journalPrefix = []byte("journal/")
	journalHead   = []byte("journal-head")
)

// Store keeps case snapshots and the local anchor journal in one LevelDB database.
type Store struct {
	db *leveldb.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenMemory returns a store backed by in-memory storage.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func caseKey(id uuid.UUID) []byte {
	return append(append([]byte(nil), casePrefix...), id.String()...)
}

func (s *Store) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return domain.Case{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := caseKey(c.ID)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return domain.Case{}, err
	}
	if exists {
		return domain.Case{}, fmt.Errorf("%w: case %s exists", domain.ErrConflict, c.ID)
	}
	c.Version = 1
	if err := s.put(key, c); err != nil {
		return domain.Case{}, err
	}
	return c.Clone(), nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return domain.Case{}, err
	}
	return s.get(id)
}

func (s *Store) Update(ctx context.Context, c domain.Case, expectedVersion int) (domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return domain.Case{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.get(c.ID)
	if err != nil {
		return domain.Case{}, err
	}
	if stored.Version != expectedVersion {
		return domain.Case{}, fmt.Errorf("%w: case %s is at version %d", domain.ErrStaleVersion, c.ID, stored.Version)
	}
	c.Version = expectedVersion + 1
	if err := s.put(caseKey(c.ID), c); err != nil {
		return domain.Case{}, err
	}
	return c.Clone(), nil
}

// List returns up to limit cases, most recently opened first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter := s.db.NewIterator(util.BytesPrefix(casePrefix), nil)
	defer iter.Release()
	var out []domain.Case
	for iter.Next() {
		var c domain.Case
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) get(id uuid.UUID) (domain.Case, error) {
	raw, err := s.db.Get(caseKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return domain.Case{}, fmt.Errorf("%w: case %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Case{}, err
	}
	var c domain.Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Case{}, fmt.Errorf("decode case %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) put(key []byte, c domain.Case) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw, nil)
}

type journalState struct {
	Seq uint64 `json:"seq"`
	Tx  string `json:"tx"`
}

// AppendJournal appends payload to the anchor journal and returns its transaction reference:
// SHA-256 over the previous reference and the payload, so each entry commits to all before it.
func (s *Store) AppendJournal(ctx context.Context, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	head, err := s.journalHead()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(head.Tx))
	h.Write(payload)
	next := journalState{Seq: head.Seq + 1, Tx: "0x" + hex.EncodeToString(h.Sum(nil))}
	rawHead, err := json.Marshal(next)
	if err != nil {
		return "", err
	}
	batch := new(leveldb.Batch)
	batch.Put(journalKey(next.Seq), payload)
	batch.Put(journalHead, rawHead)
	if err := s.db.Write(batch, nil); err != nil {
		return "", err
	}
	return next.Tx, nil
}

// JournalLen reports how many payloads the journal holds.
func (s *Store) JournalLen() (uint64, error) {
	head, err := s.journalHead()
	if err != nil {
		return 0, err
	}
	return head.Seq, nil
}

func (s *Store) JournalEntry(seq uint64) ([]byte, error) {
	raw, err := s.db.Get(journalKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: journal entry %d", domain.ErrNotFound, seq)
	}
	return raw, err
}

func (s *Store) journalHead() (journalState, error) {
	raw, err := s.db.Get(journalHead, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return journalState{}, nil
	}
	if err != nil {
		return journalState{}, err
	}
	var head journalState
	if err := json.Unmarshal(raw, &head); err != nil {
		return journalState{}, fmt.Errorf("decode journal head: %w", err)
	}
	return head, nil
}

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], seq)
	return key
}
