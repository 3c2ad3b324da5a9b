package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func writeWatched(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWatchCmd_Flags(t *testing.T) {
	flags := watchCmd.Flags()
	require.NotNil(t, flags.Lookup("pattern"))
	assert.Equal(t, defaultWatchCategory, flags.Lookup("category").DefValue)
	assert.Equal(t, filesystem.DefaultDebounce.String(), flags.Lookup("debounce").DefValue)
	assert.Equal(t, "false", flags.Lookup("once").DefValue)
}

func TestFolderIngester_SyncUploadsNewFiles(t *testing.T) {
	root := t.TempDir()
	path := writeWatched(t, root, "guides/bleeding.md", "Open the valve a quarter turn.")
	svc := newMockDocumentService()

	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)
	ing.sync(context.Background(), path)

	require.Len(t, svc.uploads, 1)
	assert.Equal(t, "guides/bleeding.md", svc.uploads[0].Filename)
	assert.Equal(t, "watched", svc.uploads[0].Category)
	assert.Equal(t, []string{"doc-new-1"}, svc.processed)
	assert.Equal(t, "doc-new-1", ing.known["guides/bleeding.md"].ID)
	assert.Equal(t, "watched", svc.lastFilter.Category)
}

func TestFolderIngester_SyncSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	content := "Open the valve a quarter turn."
	path := writeWatched(t, root, "bleeding.md", content)
	svc := newMockDocumentService(domain.Document{
		ID:               "doc-old",
		OriginalFilename: "bleeding.md",
		Category:         "watched",
		Size:             int64(len(content)),
		Status:           domain.StatusProcessed,
	})

	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)
	ing.sync(context.Background(), path)

	assert.Empty(t, svc.uploads)
	assert.Empty(t, svc.deleted)
}

func TestFolderIngester_SyncRetriesFailedDocuments(t *testing.T) {
	root := t.TempDir()
	content := "Open the valve a quarter turn."
	path := writeWatched(t, root, "bleeding.md", content)
	svc := newMockDocumentService(domain.Document{
		ID:               "doc-old",
		OriginalFilename: "bleeding.md",
		Category:         "watched",
		Size:             int64(len(content)),
		Status:           domain.StatusError,
	})

	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)
	ing.sync(context.Background(), path)

	assert.Len(t, svc.uploads, 1)
	assert.Equal(t, []string{"doc-old"}, svc.deleted)
}

func TestFolderIngester_IgnoresOtherCategories(t *testing.T) {
	root := t.TempDir()
	path := writeWatched(t, root, "bleeding.md", "same")
	svc := newMockDocumentService(domain.Document{
		ID:               "doc-manual",
		OriginalFilename: "bleeding.md",
		Category:         "manuals",
		Size:             4,
		Status:           domain.StatusProcessed,
	})

	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)
	ing.sync(context.Background(), path)

	assert.Len(t, svc.uploads, 1)
	assert.Empty(t, svc.deleted)
}

func TestFolderIngester_UpdateReplacesPreviousVersion(t *testing.T) {
	root := t.TempDir()
	path := writeWatched(t, root, "bleeding.md", "v1")
	svc := newMockDocumentService()
	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)

	var reported []string
	ing.report = func(p string, doc *domain.Document, err error) {
		require.NoError(t, err)
		require.NotNil(t, doc)
		reported = append(reported, p+"="+doc.ID)
	}

	ing.apply(context.Background(), filesystem.Change{Path: path, Type: filesystem.ChangeCreated})
	writeWatched(t, root, "bleeding.md", "v2 with more text")
	ing.apply(context.Background(), filesystem.Change{Path: path, Type: filesystem.ChangeUpdated})

	assert.Equal(t, []string{"bleeding.md=doc-new-1", "bleeding.md=doc-new-2"}, reported)
	assert.Equal(t, []string{"doc-new-1"}, svc.deleted)
	assert.Equal(t, "doc-new-2", ing.known["bleeding.md"].ID)
}

func TestFolderIngester_Remove(t *testing.T) {
	root := t.TempDir()
	path := writeWatched(t, root, "bleeding.md", "v1")
	svc := newMockDocumentService()
	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)
	ing.sync(context.Background(), path)

	require.NoError(t, os.Remove(path))
	ing.apply(context.Background(), filesystem.Change{Path: path, Type: filesystem.ChangeDeleted})
	// Unknown paths are ignored.
	ing.apply(context.Background(), filesystem.Change{Path: filepath.Join(root, "other.md"), Type: filesystem.ChangeDeleted})

	assert.Equal(t, []string{"doc-new-1"}, svc.deleted)
	assert.NotContains(t, ing.known, "bleeding.md")
}

func TestFolderIngester_ProcessingErrorKeepsDocument(t *testing.T) {
	root := t.TempDir()
	path := writeWatched(t, root, "empty.txt", " ")
	svc := newMockDocumentService()
	svc.processErr = domain.NewProcessingError(domain.CodeNoContent, "The document contains no extractable text.")
	ing, err := newFolderIngester(context.Background(), svc, root, "watched")
	require.NoError(t, err)

	var got *domain.Document
	ing.report = func(_ string, doc *domain.Document, err error) {
		assert.NoError(t, err)
		got = doc
	}
	ing.sync(context.Background(), path)

	require.NotNil(t, got)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, domain.StatusError, ing.known["empty.txt"].Status)
}

func TestWatchCmd_Once(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	root := t.TempDir()
	writeWatched(t, root, "a.md", "alpha")
	writeWatched(t, root, "sub/b.md", "beta")
	writeWatched(t, root, "skip.pdf", "%PDF-1.4")
	writeWatched(t, root, ".hidden/c.md", "hidden")

	out, err := execute(t, "watch", "--once", "--pattern", "*.md", root)

	require.NoError(t, err)
	require.Len(t, ts.docs.uploads, 2)
	assert.Equal(t, "a.md", ts.docs.uploads[0].Filename)
	assert.Equal(t, "sub/b.md", ts.docs.uploads[1].Filename)
	assert.Contains(t, out, "processed  a.md")
	assert.Contains(t, out, "processed  sub/b.md")
	assert.NotContains(t, out, "Watching")
}

func TestWatchCmd_StopsWithContext(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	root := t.TempDir()
	writeWatched(t, root, "a.md", "alpha")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"watch", "--debounce", "20ms", root})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	assert.Len(t, ts.docs.uploads, 1)
	assert.Contains(t, buf.String(), "Watching "+root)
}

func TestWatchCmd_NotADirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	file := writeTempFile(t, "file.txt", "x")

	_, err := execute(t, "watch", "--once", file)

	assert.Error(t, err)
}
