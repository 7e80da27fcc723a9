package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"arbiter/internal/app"
	"arbiter/internal/config"
	"arbiter/internal/infra/db"
	"arbiter/internal/infra/ldb"
	"arbiter/internal/orchestrator/activities"
	"arbiter/internal/orchestrator/workflows"
	"arbiter/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthSrv := startHealthServer(cfg.WorkerHealthAddr)
	defer func() {
		_ = healthSrv.Shutdown(context.Background())
	}()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	local, err := ldb.Open(cfg.LevelDBPath)
	if err != nil {
		log.Fatalf("failed to open leveldb at %s: %v", cfg.LevelDBPath, err)
	}
	defer local.Close()

	var repo usecase.CaseRepository = local
	if store.DB != nil {
		repo = db.NewCaseRepository(store.DB)
	} else {
		log.Printf("worker keeps cases in %s; set POSTGRES_DSN to share them with arbiterd.", cfg.LevelDBPath)
	}

	backends, err := app.NewBackends(cfg, local)
	if err != nil {
		log.Fatalf("failed to build backends: %v", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("failed to create temporal client: %v", err)
	}
	defer temporalClient.Close()

	acts := activities.New(usecase.NewCaseService(repo, backends.Flow))
	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ArbitrationWorkflow)
	w.RegisterActivityWithOptions(acts.ProveCase, activity.RegisterOptions{Name: activities.ProveCaseActivityName})
	w.RegisterActivityWithOptions(acts.DeliberateCase, activity.RegisterOptions{Name: activities.DeliberateCaseActivityName})
	w.RegisterActivityWithOptions(acts.AnchorCase, activity.RegisterOptions{Name: activities.AnchorCaseActivityName})
	w.RegisterActivityWithOptions(acts.ExecuteCase, activity.RegisterOptions{Name: activities.ExecuteCaseActivityName})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	log.Printf("arbitration worker listening on task queue %s", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

func startHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()
	return srv
}
