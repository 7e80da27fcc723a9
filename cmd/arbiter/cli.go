package main

import (
	"fmt"
	"io"
	"path/filepath"
)

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(args, stderr)
		return 1
	}

	switch args[1] {
	case "merkle":
		if len(args) >= 3 {
			switch args[2] {
			case "root":
				return runMerkleRoot(args[3:], stdout, stderr)
			case "prove":
				return runMerkleProve(args[3:], stdout, stderr)
			case "verify":
				return runMerkleVerify(args[3:], stdout, stderr)
			}
		}
	case "case":
		if len(args) >= 3 {
			switch args[2] {
			case "run":
				return runCaseRun(args[3:], stdout, stderr)
			case "show":
				return runCaseShow(args[3:], stdout, stderr)
			case "arbitrate":
				return runCaseArbitrate(args[3:], stdout, stderr)
			}
		}
	case "sla":
		if len(args) >= 3 && args[2] == "check" {
			return runSLACheck(args[3:], stdout, stderr)
		}
	case "award":
		return runAward(args[2:], stdout, stderr)
	}

	usage(args, stderr)
	return 1
}

func usage(args []string, w io.Writer) {
	name := "arbiter"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(w, "usage:\n")
	fmt.Fprintf(w, "  %s merkle root [--files] <leaf|file>...\n", name)
	fmt.Fprintf(w, "  %s merkle prove --index <n> [--files] <leaf|file>...\n", name)
	fmt.Fprintf(w, "  %s merkle verify --leaf <hex> --index <n> --root <hex> [--path <side:sibling,...>]\n", name)
	fmt.Fprintf(w, "  %s case run [--preset <key>] [--notes <text>] [--db <dir>] [--format json|cbor] [--out <file>] <evidence file>...\n", name)
	fmt.Fprintf(w, "  %s case show --case-id <uuid> [--db <dir>]\n", name)
	fmt.Fprintf(w, "  %s case arbitrate --case-id <uuid> [--no-wait]\n", name)
	fmt.Fprintf(w, "  %s sla check [--threshold <duration>] <outages.csv>\n", name)
	fmt.Fprintf(w, "  %s award --case-id <uuid> [--db <dir>] [--watermark <text>] [--out <file>]\n", name)
}
