package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"arbiter/internal/config"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to Postgres. Without POSTGRES_DSN the store has no DB and callers fall
// back to the in-memory case repository.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Mode() string {
	if s == nil || s.DB == nil {
		return "no-db"
	}
	return "postgres"
}
