package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"arbiter/internal/app"
	"arbiter/internal/config"
	"arbiter/internal/domain"
	"arbiter/internal/infra/bundles"
	"arbiter/internal/infra/evidence"
	"arbiter/internal/infra/ldb"
	"arbiter/internal/orchestrator/workflows"
	"arbiter/internal/usecase"
)

var runSteps = []domain.Step{domain.StepProof, domain.StepDeliberation, domain.StepAnchor, domain.StepExecution}

func runCaseRun(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("case run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var presetKey, notes, dbPath, formatName, outPath string
	fs.StringVar(&presetKey, "preset", "", "preset key (default construction)")
	fs.StringVar(&notes, "notes", "", "case notes (default preset notes)")
	fs.StringVar(&dbPath, "db", cfg.LevelDBPath, "leveldb directory for cases and the anchor journal")
	fs.StringVar(&formatName, "format", string(bundles.FormatJSON), "export format: json or cbor")
	fs.StringVar(&outPath, "out", "", "export path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "case run requires at least one evidence file")
		return 1
	}
	format, err := bundles.ParseFormat(formatName)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	store, err := ldb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer store.Close()
	backends, err := app.NewBackends(cfg, store)
	if err != nil {
		fmt.Fprintf(stderr, "build backends: %v\n", err)
		return 1
	}
	cases := usecase.NewCaseService(store, backends.Flow)
	ctx := context.Background()

	opened, err := cases.Open(ctx, usecase.OpenInput{Preset: presetKey, Notes: notes})
	if err != nil {
		fmt.Fprintf(stderr, "open case: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "case_id=%s preset=%s escrow_tx=%s\n", opened.ID, opened.Preset, opened.EscrowLockTx)

	sources := make([]evidence.Source, 0, fs.NArg())
	for _, path := range fs.Args() {
		sources = append(sources, evidence.FileSource(path))
	}
	hasher := evidence.Hasher{Workers: cfg.HashWorkers, MaxBytes: cfg.EvidenceMaxBytes}
	files, err := hasher.HashFiles(ctx, sources)
	if err != nil {
		fmt.Fprintf(stderr, "hash evidence: %v\n", err)
		return 1
	}
	current, err := cases.AttachEvidence(ctx, opened.ID, files)
	if err != nil {
		fmt.Fprintf(stderr, "attach evidence: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "evidence=%d merkle_root=%s\n", len(files), current.MerkleRoot)
	for i := range files {
		if _, err := cases.Inclusion(ctx, opened.ID, i); err != nil {
			fmt.Fprintf(stderr, "inclusion %d: %v\n", i, err)
			return 1
		}
	}

	for _, step := range runSteps {
		current, err = cases.Advance(ctx, opened.ID, step)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", step, err)
			return 1
		}
		fmt.Fprintf(stderr, "step=%s status=%s\n", step, current.Status)
	}

	doc, err := bundles.Export(current, format, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	if err := writeOutput(stdout, outPath, doc.Body); err != nil {
		fmt.Fprintf(stderr, "write export: %v\n", err)
		return 1
	}
	if outPath != "" {
		fmt.Fprintf(stdout, "export=%s sha256=%s\n", outPath, doc.Digest.Hex())
	}
	return 0
}

func runCaseShow(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("case show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var caseID, dbPath string
	fs.StringVar(&caseID, "case-id", "", "case id")
	fs.StringVar(&dbPath, "db", cfg.LevelDBPath, "leveldb directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	found, code := loadCase(caseID, dbPath, stderr)
	if code != 0 {
		return code
	}
	payload, err := json.MarshalIndent(found, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "encode case: %v\n", err)
		return 1
	}
	if err := writeOutput(stdout, "", payload); err != nil {
		fmt.Fprintf(stderr, "write case: %v\n", err)
		return 1
	}
	return 0
}

func loadCase(caseID, dbPath string, stderr io.Writer) (domain.Case, int) {
	id, err := uuid.Parse(caseID)
	if err != nil {
		fmt.Fprintln(stderr, "--case-id must be a UUID")
		return domain.Case{}, 1
	}
	store, err := ldb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return domain.Case{}, 1
	}
	defer store.Close()
	found, err := store.Get(context.Background(), id)
	if err != nil {
		fmt.Fprintf(stderr, "load case: %v\n", err)
		return domain.Case{}, 1
	}
	return found, 0
}

func runCaseArbitrate(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("case arbitrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var caseID string
	var noWait bool
	fs.StringVar(&caseID, "case-id", "", "case id")
	fs.BoolVar(&noWait, "no-wait", false, "return once the workflow has started")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := uuid.Parse(caseID); err != nil {
		fmt.Fprintln(stderr, "--case-id must be a UUID")
		return 1
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress, Namespace: cfg.TemporalNamespace})
	if err != nil {
		fmt.Fprintf(stderr, "connect temporal: %v\n", err)
		return 1
	}
	defer c.Close()

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(caseID),
		TaskQueue: cfg.TemporalTaskQueue,
	}, workflows.ArbitrationWorkflow, workflows.ArbitrationInput{CaseID: caseID})
	if err != nil {
		fmt.Fprintf(stderr, "start workflow: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "workflow_id=%s run_id=%s\n", run.GetID(), run.GetRunID())
	if noWait {
		return 0
	}

	var result workflows.ArbitrationResult
	if err := run.Get(ctx, &result); err != nil {
		fmt.Fprintf(stderr, "arbitration failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "status=%s completed=%d resumed=%d\n", result.Status, len(result.Completed), len(result.Resumed))
	return 0
}
