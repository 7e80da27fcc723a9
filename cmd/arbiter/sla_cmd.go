package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"arbiter/internal/infra/sla"
)

func runSLACheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sla check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var threshold time.Duration
	fs.DurationVar(&threshold, "threshold", sla.DefaultThreshold, "downtime at which the SLA is breached")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "sla check requires <outages.csv>")
		return 1
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "open report: %v\n", err)
		return 1
	}
	defer f.Close()

	report, err := sla.Check(f, threshold)
	if err != nil {
		fmt.Fprintf(stderr, "check report: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, report.Summary())
	if report.Breached {
		return 2
	}
	return 0
}
