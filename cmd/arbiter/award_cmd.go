package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"time"

	"arbiter/internal/config"
	"arbiter/internal/infra/award"
	"arbiter/internal/infra/presets"
)

func runAward(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("award", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var caseID, dbPath, watermark, outPath string
	fs.StringVar(&caseID, "case-id", "", "case id")
	fs.StringVar(&dbPath, "db", cfg.LevelDBPath, "leveldb directory")
	fs.StringVar(&watermark, "watermark", cfg.AwardWatermark, "watermark text (default demo notice)")
	fs.StringVar(&outPath, "out", "", "pdf path (default award-<case-id>.pdf)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	found, code := loadCase(caseID, dbPath, stderr)
	if code != 0 {
		return code
	}
	preset, _ := presets.NewCatalog().Get(found.Preset)

	var buf bytes.Buffer
	if err := award.Render(&buf, found, preset, award.Options{Watermark: watermark, IssuedAt: time.Now()}); err != nil {
		fmt.Fprintf(stderr, "render award: %v\n", err)
		return 1
	}
	if outPath == "" {
		outPath = "award-" + found.ID.String() + ".pdf"
	}
	if err := writeOutput(stdout, outPath, buf.Bytes()); err != nil {
		fmt.Fprintf(stderr, "write award: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "award=%s\n", outPath)
	return 0
}
