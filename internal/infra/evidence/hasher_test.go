package evidence

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/domain"
)

func memSource(name, content string, delay time.Duration) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			time.Sleep(delay)
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestHashFilesPreservesSelectionOrder(t *testing.T) {
	sources := []Source{
		memSource("a.txt", "A", 30*time.Millisecond),
		memSource("b.txt", "B", 0),
		memSource("c.txt", "C", 10*time.Millisecond),
	}
	files, err := Hasher{Workers: 3}.HashFiles(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "b.txt", files[1].Name)
	assert.Equal(t, "c.txt", files[2].Name)
	assert.Equal(t, "0x559aead08264d5795d3909718cdd05abd49572e84fe55590eef31a88a08fdffd", files[0].Hash.String())
	assert.Equal(t, "0xdf7e70e5021544f4834bbee64a9e3789febc4be81470df629cad6ddb03320a5c", files[1].Hash.String())
	assert.Equal(t, int64(1), files[2].Size)
}

func TestHashFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.pdf")
	content := bytes.Repeat([]byte("clause "), 10000)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	files, err := Hasher{}.HashFiles(context.Background(), []Source{FileSource(path)})
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", files[0].Name)
	assert.Equal(t, int64(len(content)), files[0].Size)
	assert.Equal(t, domain.SumDigest(content), files[0].Hash)
}

func TestHashFilesFailsOnFirstError(t *testing.T) {
	boom := errors.New("unreadable")
	sources := []Source{
		memSource("ok.txt", "fine", 0),
		{Name: "bad.txt", Open: func() (io.ReadCloser, error) { return nil, boom }},
	}
	_, err := Hasher{Workers: 1}.HashFiles(context.Background(), sources)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad.txt")
}

func TestHashFilesEnforcesLimit(t *testing.T) {
	_, err := Hasher{MaxBytes: 4}.HashFiles(context.Background(), []Source{memSource("big.bin", "12345", 0)})
	require.ErrorIs(t, err, ErrTooLarge)

	files, err := Hasher{MaxBytes: 5}.HashFiles(context.Background(), []Source{memSource("fits.bin", "12345", 0)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), files[0].Size)
}

func TestHashFilesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Hasher{}.HashFiles(ctx, []Source{memSource("a.txt", "A", 0)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestHashFilesEmpty(t *testing.T) {
	files, err := Hasher{}.HashFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
