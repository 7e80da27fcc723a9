package main

import (
	"context"
	"log"

	"arbiter/internal/app"
	"arbiter/internal/config"
	"arbiter/internal/infra/casemem"
	"arbiter/internal/infra/db"
	httpinfra "arbiter/internal/infra/http"
	"arbiter/internal/infra/ldb"
	"arbiter/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	var repo usecase.CaseRepository = casemem.New()
	if store.DB != nil {
		repo = db.NewCaseRepository(store.DB)
	}

	journal, err := ldb.Open(cfg.LevelDBPath)
	if err != nil {
		log.Fatalf("failed to open journal at %s: %v", cfg.LevelDBPath, err)
	}
	defer journal.Close()

	backends, err := app.NewBackends(cfg, journal)
	if err != nil {
		log.Fatalf("failed to build backends: %v", err)
	}

	srv, err := httpinfra.NewServer(ctx, cfg, httpinfra.ServerDeps{
		Cases:   usecase.NewCaseService(repo, backends.Flow),
		Presets: backends.Presets,
		Mode:    store.Mode(),
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	log.Printf("arbiterd listening on %s (%s)", cfg.HTTPAddr, store.Mode())
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
