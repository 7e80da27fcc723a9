package evidence

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"arbiter/internal/domain"
)

var ErrTooLarge = errors.New("evidence file too large")

// Source is one selected evidence file. Open is called once, from a worker goroutine.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource opens a file from disk and names it by its base name.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Hasher computes leaf digests over full file contents.
type Hasher struct {
	// Workers bounds concurrent hashing; zero means one worker per file.
	Workers int
	// MaxBytes rejects files larger than this; zero means no limit.
	MaxBytes int64
}

// HashFiles hashes every source concurrently and returns results in selection order. The
// first failure cancels the files not yet started and is returned.
func (h Hasher) HashFiles(ctx context.Context, sources []Source) ([]domain.EvidenceFile, error) {
	results := make([]domain.EvidenceFile, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if h.Workers > 0 {
		g.SetLimit(h.Workers)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := h.hashOne(gctx, src)
			if err != nil {
				return fmt.Errorf("hash %s: %w", src.Name, err)
			}
			results[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h Hasher) hashOne(ctx context.Context, src Source) (domain.EvidenceFile, error) {
	if src.Open == nil {
		return domain.EvidenceFile{}, fmt.Errorf("%w: no content", domain.ErrInvalidArgument)
	}
	rc, err := src.Open()
	if err != nil {
		return domain.EvidenceFile{}, err
	}
	defer rc.Close()

	var r io.Reader = &ctxReader{ctx: ctx, r: rc}
	if h.MaxBytes > 0 {
		r = io.LimitReader(r, h.MaxBytes+1)
	}
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return domain.EvidenceFile{}, err
	}
	if h.MaxBytes > 0 && n > h.MaxBytes {
		return domain.EvidenceFile{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, h.MaxBytes)
	}
	var digest domain.Digest
	copy(digest[:], hasher.Sum(nil))
	return domain.EvidenceFile{Name: src.Name, Size: n, Hash: digest}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
