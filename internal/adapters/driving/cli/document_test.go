package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUploadCmd_Flags(t *testing.T) {
	flags := uploadCmd.Flags()
	require.NotNil(t, flags.Lookup("category"))
	require.NotNil(t, flags.Lookup("content-type"))
	assert.Equal(t, "t", flags.Lookup("tag").Shorthand)
	assert.Equal(t, "true", flags.Lookup("process").DefValue)
}

func TestUploadCmd_RequiresFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "upload")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestUploadCmd_UploadsAndProcesses(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "notes.md", "# Servicing\n\nBleed radiators every autumn.")

	out, err := execute(t, "upload", "--category", "manuals", "-t", "heating", "-t", "radiators", path)

	require.NoError(t, err)
	require.Len(t, ts.docs.uploads, 1)
	req := ts.docs.uploads[0]
	assert.Equal(t, "notes.md", req.Filename)
	assert.Equal(t, "manuals", req.Category)
	assert.Equal(t, []string{"heating", "radiators"}, req.Tags)
	assert.Equal(t, "# Servicing\n\nBleed radiators every autumn.", string(req.Data))
	assert.Equal(t, []string{"doc-new-1"}, ts.docs.processed)
	assert.Contains(t, out, "doc-new-1  processed  notes.md")
}

func TestUploadCmd_ProcessDisabled(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "notes.txt", "plain text")

	out, err := execute(t, "upload", "--process=false", path)

	require.NoError(t, err)
	assert.Len(t, ts.docs.uploads, 1)
	assert.Empty(t, ts.docs.processed)
	assert.Contains(t, out, "uploaded")
}

func TestUploadCmd_AutoProcessFromConfig(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	off := false
	appConfig.Ingest.AutoProcess = &off
	path := writeTempFile(t, "notes.txt", "plain text")

	_, err := execute(t, "upload", path)

	require.NoError(t, err)
	assert.Empty(t, ts.docs.processed)
}

func TestUploadCmd_ProcessingErrorIsReported(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.docs.processErr = domain.NewProcessingError(domain.CodeNoContent, "The document contains no extractable text.")
	path := writeTempFile(t, "empty.txt", "   ")

	out, err := execute(t, "upload", path)

	require.NoError(t, err)
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "NO_CONTENT The document contains no extractable text.")
	assert.Contains(t, out, "1 of 1 documents failed to process.")
}

func TestUploadCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "upload", filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestUploadCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "notes.txt", "plain text")

	out, err := execute(t, "upload", "--json", path)

	require.NoError(t, err)
	var views []documentView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "notes.txt", views[0].Filename)
	assert.Equal(t, "processed", views[0].Status)
}

func TestProcessCmd_Pending(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.docs.outcomes = []driving.ProcessOutcome{
		{DocumentID: "doc-1", Status: domain.StatusProcessed},
		{DocumentID: "doc-2", Status: domain.StatusError, Err: errors.New("PDF_ENCRYPTED: password protected")},
	}

	out, err := execute(t, "process", "--pending")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-1  processed")
	assert.Contains(t, out, "doc-2  error  PDF_ENCRYPTED: password protected")
}

func TestProcessCmd_NoPending(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "process")

	require.NoError(t, err)
	assert.Contains(t, out, "No pending documents.")
}

func TestProcessCmd_ByID(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "process", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, ts.docs.processed)
	assert.Contains(t, out, "doc-1  processed  Boiler Manual.pdf")
}

func TestProcessCmd_UnknownID(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "process", "nope")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCmd_ShowsDetails(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Filename:     Boiler Manual.pdf")
	assert.Contains(t, out, "Tags:         boiler, heating")
	assert.Contains(t, out, "Format:       pdf (pdf)")
	assert.Contains(t, out, "author: Acme Heating")
}

func TestGetCmd_ErrorDocumentHidesMetadata(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	doc := ts.docs.docs["doc-1"]
	doc.Status = domain.StatusError
	doc.ParsedMetadata = map[string]any{
		"error": map[string]any{"code": "PDF_ENCRYPTED", "message": "The PDF is password protected."},
	}

	out, err := execute(t, "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "PDF_ENCRYPTED The PDF is password protected.")
	assert.NotContains(t, out, "Metadata:")
}

func TestGetCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "get", "--json", "doc-1")

	require.NoError(t, err)
	var view documentView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "doc-1", view.ID)
	assert.Equal(t, "boiler-manual.pdf", view.StoredFilename)
	assert.Nil(t, view.Error)
	assert.Equal(t, "Acme Heating", view.Metadata["author"])
}

func TestListCmd_Filters(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "list", "--category", "manuals", "--status", "Processed,error", "-n", "5")

	require.NoError(t, err)
	assert.Equal(t, domain.ListFilter{
		Category: "manuals",
		Statuses: []domain.DocumentStatus{domain.StatusProcessed, domain.StatusError},
		Limit:    5,
	}, ts.docs.lastFilter)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "[manuals]")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestListCmd_InvalidStatus(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "list", "--status", "archived")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "archived"`)
}

func TestListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "list", "--category", "invoices")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}

func TestPagesCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.docs.pages = []domain.Page{
		{DocumentID: "doc-1", PageNumber: 1, Content: "Contents"},
		{DocumentID: "doc-1", PageNumber: 2, Content: "Safety notices"},
	}
	ts.docs.chunks = []domain.Chunk{
		{DocumentID: "doc-1", Index: 0, PageNumber: intPtr(1), Text: "Contents Safety"},
		{DocumentID: "doc-1", Index: 1, Text: "notices"},
	}

	out, err := execute(t, "pages", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "--- page 1 ---\nContents")
	assert.Contains(t, out, "--- page 2 ---\nSafety notices")

	resetFlags(rootCmd)
	out, err = execute(t, "pages", "--chunks", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "--- chunk 0 (page 1) ---")
	assert.Contains(t, out, "--- chunk 1 ---\nnotices")
}

func TestDeleteCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "delete", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, ts.docs.deleted)
	assert.Contains(t, out, "Deleted doc-1")

	_, err = execute(t, "delete", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentCommands_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	documentService = nil
	// setup would otherwise build a real app.
	rootCmd.PersistentPreRunE = nil
	defer func() { rootCmd.PersistentPreRunE = setup }()

	_, err := execute(t, "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}
