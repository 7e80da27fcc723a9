package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"arbiter/internal/domain"
	"arbiter/internal/infra/evidence"
	"arbiter/internal/infra/merkle"
)

func runMerkleRoot(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merkle root", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var fromFiles bool
	fs.BoolVar(&fromFiles, "files", false, "treat arguments as files and hash their contents")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	leaves, err := leavesFromArgs(fs.Args(), fromFiles)
	if err != nil {
		fmt.Fprintf(stderr, "read leaves: %v\n", err)
		return 1
	}
	root, ok := merkle.Root(leaves)
	if !ok {
		fmt.Fprintf(stdout, "tree_size=0 root=none\n")
		return 0
	}
	fmt.Fprintf(stdout, "tree_size=%d root=%s\n", len(leaves), root)
	return 0
}

type proofOutput struct {
	TreeSize int               `json:"tree_size"`
	Index    int               `json:"index"`
	Leaf     domain.Digest     `json:"leaf"`
	Path     []domain.PathStep `json:"path"`
	Root     domain.Digest     `json:"root"`
}

func runMerkleProve(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merkle prove", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var index int
	var fromFiles bool
	fs.IntVar(&index, "index", 0, "leaf index")
	fs.BoolVar(&fromFiles, "files", false, "treat arguments as files and hash their contents")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	leaves, err := leavesFromArgs(fs.Args(), fromFiles)
	if err != nil {
		fmt.Fprintf(stderr, "read leaves: %v\n", err)
		return 1
	}
	if len(leaves) == 0 {
		fmt.Fprintln(stderr, "merkle prove requires at least one leaf")
		return 1
	}
	tree := merkle.NewTree(leaves)
	path, err := tree.Path(index)
	if err != nil {
		fmt.Fprintf(stderr, "inclusion path: %v\n", err)
		return 1
	}
	root, _ := tree.Root()
	payload, err := json.MarshalIndent(proofOutput{
		TreeSize: tree.Len(),
		Index:    index,
		Leaf:     leaves[index],
		Path:     path,
		Root:     root,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "encode proof: %v\n", err)
		return 1
	}
	if err := writeOutput(stdout, "", payload); err != nil {
		fmt.Fprintf(stderr, "write proof: %v\n", err)
		return 1
	}
	return 0
}

func runMerkleVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merkle verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var leafHex, rootHex, pathSpec string
	var index int
	fs.StringVar(&leafHex, "leaf", "", "leaf digest")
	fs.IntVar(&index, "index", 0, "leaf index")
	fs.StringVar(&rootHex, "root", "", "expected root digest")
	fs.StringVar(&pathSpec, "path", "", "comma separated side:sibling steps, leaf level first")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if leafHex == "" || rootHex == "" {
		fmt.Fprintln(stderr, "merkle verify requires --leaf and --root")
		return 1
	}

	leaf, err := domain.ParseDigest(leafHex)
	if err != nil {
		fmt.Fprintf(stderr, "parse leaf: %v\n", err)
		return 1
	}
	root, err := domain.ParseDigest(rootHex)
	if err != nil {
		fmt.Fprintf(stderr, "parse root: %v\n", err)
		return 1
	}
	path, err := parsePathSpec(pathSpec)
	if err != nil {
		fmt.Fprintf(stderr, "parse path: %v\n", err)
		return 1
	}
	valid, err := merkle.VerifyInclusion(leaf, index, path, root)
	if err != nil {
		fmt.Fprintf(stderr, "verify: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "valid=%t\n", valid)
	if !valid {
		return 1
	}
	return 0
}

func leavesFromArgs(args []string, fromFiles bool) ([]domain.Digest, error) {
	if !fromFiles {
		return domain.ParseDigests(args)
	}
	sources := make([]evidence.Source, 0, len(args))
	for _, path := range args {
		sources = append(sources, evidence.FileSource(path))
	}
	files, err := evidence.Hasher{}.HashFiles(context.Background(), sources)
	if err != nil {
		return nil, err
	}
	return domain.Case{Evidence: files}.Leaves(), nil
}

// parsePathSpec reads "right:0xab..,left:0xcd..". An empty spec is an empty path.
func parsePathSpec(spec string) ([]domain.PathStep, error) {
	path := []domain.PathStep{}
	if strings.TrimSpace(spec) == "" {
		return path, nil
	}
	for i, part := range strings.Split(spec, ",") {
		sideText, siblingHex, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: step %d must be side:sibling", domain.ErrInvalidArgument, i)
		}
		side, err := domain.ParseSide(sideText)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		sibling, err := domain.ParseDigest(siblingHex)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		path = append(path, domain.PathStep{Sibling: sibling, Side: side})
	}
	return path, nil
}
