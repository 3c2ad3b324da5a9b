package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestNew_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	s, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Root())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_PutGetOverwrite(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "documents/1/manual.pdf", []byte("v1"), "application/pdf"))
	require.NoError(t, s.Put(ctx, "documents/1/manual.pdf", []byte("v2"), "application/pdf"))

	got, err := s.Get(ctx, "documents/1/manual.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "documents", "1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_GetMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "documents/missing/a.txt")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestStore_DeletePrunesEmptyDirs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "documents/1/a.txt", []byte("a"), ""))
	require.NoError(t, s.Put(ctx, "documents/2/b.txt", []byte("b"), ""))
	require.NoError(t, s.Delete(ctx, "documents/1/a.txt"))

	_, err = os.Stat(filepath.Join(s.Root(), "documents", "1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.Root(), "documents", "2", "b.txt"))
	assert.NoError(t, err)

	// Idempotent.
	assert.NoError(t, s.Delete(ctx, "documents/1/a.txt"))
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "../escape.txt", []byte("x"), ""), domain.ErrInvalidInput)
	_, err = s.Get(ctx, "/etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Delete(ctx, "a/../../b"), domain.ErrInvalidInput)
}
