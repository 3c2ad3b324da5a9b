package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/normalisers/text"
)

const boilerNotes = `# Boiler maintenance

The pressure relief valve opens when boiler pressure exceeds the rated limit.

## Low pressure

Low pressure is usually caused by a leak in the system or a faulty expansion vessel.
`

func uploadText(t *testing.T, f *fixture, name, content string) *domain.Document {
	t.Helper()
	doc, err := f.docs.Upload(context.Background(), driving.UploadRequest{
		Filename:    name,
		ContentType: "text/markdown",
		Category:    "manuals",
		Tags:        []string{"boiler", " boiler ", ""},
		Data:        []byte(content),
	})
	require.NoError(t, err)
	return doc
}

func TestDocumentService_Upload(t *testing.T) {
	f := newFixture(false, WithIDGenerator(func() string { return "doc-1" }))
	ctx := context.Background()

	doc := uploadText(t, f, "../notes/Boiler Notes.md", boilerNotes)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, domain.StatusUploaded, doc.Status)
	assert.Equal(t, "Boiler_Notes.md", doc.Filename)
	assert.Equal(t, "../notes/Boiler Notes.md", doc.OriginalFilename)
	assert.Equal(t, "documents/doc-1/Boiler_Notes.md", doc.BlobKey)
	assert.Equal(t, []string{"boiler"}, doc.Tags)
	assert.Equal(t, "manuals", doc.Category)

	data, err := f.blobs.Get(ctx, doc.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, boilerNotes, string(data))

	pages, err := f.docs.Pages(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, PlaceholderContent, pages[0].Content)

	health, err := f.index.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestDocumentService_Upload_RejectsBeforeIO(t *testing.T) {
	tests := []struct {
		name     string
		req      driving.UploadRequest
		wantErr  error
		wantCode domain.ErrorCode
	}{
		{
			name:    "missing filename",
			req:     driving.UploadRequest{Filename: "  ", Data: []byte("hello")},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty file",
			req:     driving.UploadRequest{Filename: "empty.txt", Data: nil},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "oversized file",
			req:     driving.UploadRequest{Filename: "big.txt", Data: []byte(strings.Repeat("a", 65))},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "signature mismatch",
			req: driving.UploadRequest{
				Filename:    "photo.pdf",
				ContentType: "application/pdf",
				Data:        []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
			},
			wantCode: domain.CodeSignatureMismatch,
		},
		{
			name: "unsupported binary",
			req: driving.UploadRequest{
				Filename: "image.png",
				Data:     []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0},
			},
			wantCode: domain.CodeUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false, WithMaxUploadBytes(64))

			_, err := f.docs.Upload(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantCode != "" {
				pe, ok := domain.AsProcessingError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, pe.Code)
			}
			assert.Zero(t, f.blobs.puts)
			assert.Zero(t, f.blobs.Len())
		})
	}
}

func TestDocumentService_Upload_DeletesBlobWhenInsertFails(t *testing.T) {
	f := newFixture(false)
	failing := &failingDocumentStore{DocumentStore: f.store, insertErr: errors.New("disk full")}
	svc := NewDocumentService(failing, f.blobs, f.lexical, f.parsers, nil)

	_, err := svc.Upload(context.Background(), driving.UploadRequest{Filename: "a.txt", Data: []byte("hello world")})
	require.Error(t, err)
	assert.Equal(t, 1, f.blobs.puts)
	assert.Zero(t, f.blobs.Len())
}

func TestDocumentService_Upload_BlobFailure(t *testing.T) {
	f := newFixture(false)
	f.blobs.putErr = errors.New("bucket gone")

	_, err := f.docs.Upload(context.Background(), driving.UploadRequest{Filename: "a.txt", Data: []byte("hello world")})
	require.Error(t, err)

	docs, err := f.docs.List(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentService_Process(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	doc := uploadText(t, f, "boiler.md", boilerNotes)

	processed, err := f.docs.Process(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, processed.Status)
	assert.Equal(t, domain.FormatText, processed.Format)
	assert.Equal(t, "markdown", processed.SubFormat)
	assert.Equal(t, "en", processed.Language)
	assert.NotZero(t, processed.WordCount)
	assert.NotZero(t, processed.CharacterCount)
	assert.NotNil(t, processed.ParsedAt)
	assert.Equal(t, "Boiler maintenance", processed.ParsedMetadata["title"])
	assert.Equal(t, 2, processed.ParsedStructure["page_count"])

	pages, err := f.docs.Pages(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0].Content, "pressure relief valve")
	assert.Equal(t, []string{"Low pressure"}, pages[1].Metadata.Headers)

	chunks, err := f.docs.Chunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Index)
	require.NotNil(t, chunks[0].PageNumber)
	assert.Equal(t, 1, *chunks[0].PageNumber)

	health, err := f.index.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Equal(t, domain.IndexCounts{Pages: 2, Chunks: len(chunks)}, health.Indexed)
}

func TestDocumentService_Process_Idempotent(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	doc := uploadText(t, f, "boiler.md", boilerNotes)

	_, err := f.docs.Process(ctx, doc.ID)
	require.NoError(t, err)
	firstPages, _ := f.docs.Pages(ctx, doc.ID)
	firstChunks, _ := f.docs.Chunks(ctx, doc.ID)

	_, err = f.docs.Process(ctx, doc.ID)
	require.NoError(t, err)
	secondPages, _ := f.docs.Pages(ctx, doc.ID)
	secondChunks, _ := f.docs.Chunks(ctx, doc.ID)

	assert.Equal(t, firstPages, secondPages)
	assert.Equal(t, firstChunks, secondChunks)

	health, err := f.index.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestDocumentService_Process_Failures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		ctype    string
		data     []byte
		parser   *stubParser
		timeout  time.Duration
		wantCode domain.ErrorCode
	}{
		{
			name:     "invalid pdf",
			filename: "report.pdf",
			ctype:    "application/pdf",
			data:     []byte("%PDF-1.4\n1 0 obj << >> endobj\n"),
			wantCode: domain.CodePDFCorrupted,
		},
		{
			name:     "encrypted pdf",
			filename: "secret.pdf",
			ctype:    "application/pdf",
			data:     []byte("%PDF-1.7\ntrailer << /Encrypt 5 0 R >>\n%%EOF\n"),
			wantCode: domain.CodePDFEncrypted,
		},
		{
			name:     "whitespace only",
			filename: "blank.txt",
			ctype:    "text/plain",
			data:     []byte("   \n\n\t  \n"),
			wantCode: domain.CodeNoContent,
		},
		{
			name:     "parser panic",
			filename: "a.txt",
			ctype:    "text/plain",
			data:     []byte("hello world"),
			parser:   &stubParser{panicWith: "boom"},
			wantCode: domain.CodeParseError,
		},
		{
			name:     "parser timeout",
			filename: "a.txt",
			ctype:    "text/plain",
			data:     []byte("hello world"),
			parser:   &stubParser{block: true},
			timeout:  20 * time.Millisecond,
			wantCode: domain.CodeParseError,
		},
		{
			name:     "parser returns nothing",
			filename: "a.txt",
			ctype:    "text/plain",
			data:     []byte("hello world"),
			parser:   &stubParser{},
			wantCode: domain.CodeNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false, WithProcessTimeout(tt.timeout))
			if tt.parser != nil {
				f.parsers.Register(tt.parser)
			}
			ctx := context.Background()

			doc, err := f.docs.Upload(ctx, driving.UploadRequest{Filename: tt.filename, ContentType: tt.ctype, Data: tt.data})
			require.NoError(t, err)

			_, err = f.docs.Process(ctx, doc.ID)
			require.Error(t, err)
			pe, ok := domain.AsProcessingError(err)
			require.True(t, ok, "expected processing error, got %v", err)
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.NotEmpty(t, pe.Message)

			stored, err := f.docs.Get(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusError, stored.Status)
			code, msg, ok := stored.ErrorDetail()
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, pe.Message, msg)
		})
	}
}

func TestDocumentService_Process_MissingBlob(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	doc := uploadText(t, f, "a.md", boilerNotes)
	require.NoError(t, f.blobs.Store.Delete(ctx, doc.BlobKey))

	_, err := f.docs.Process(ctx, doc.ID)
	assert.ErrorIs(t, err, &domain.ProcessingError{Code: domain.CodeParseError})
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestDocumentService_Process_ReplaceFailureKeepsStatus(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	doc := uploadText(t, f, "a.md", boilerNotes)

	failing := &failingDocumentStore{DocumentStore: f.store, replaceErr: errors.New("locked")}
	svc := NewDocumentService(failing, f.blobs, f.lexical, f.parsers, f.docs.chunker)

	_, err := svc.Process(ctx, doc.ID)
	require.Error(t, err)

	stored, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, stored.Status)

	health, err := f.index.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy, "index entries for surviving rows must remain")
	assert.Len(t, f.lexical.pages[doc.ID], 1)
}

func TestDocumentService_Process_RecoversAfterError(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.parsers.Register(&stubParser{panicWith: "boom"})

	doc, err := f.docs.Upload(ctx, driving.UploadRequest{Filename: "a.txt", ContentType: "text/plain", Data: []byte("valve notes")})
	require.NoError(t, err)
	_, err = f.docs.Process(ctx, doc.ID)
	require.Error(t, err)

	f.parsers.Register(text.New())
	outcomes, err := f.docs.ProcessPending(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, domain.StatusProcessed, outcomes[0].Status)

	stored, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, stored.Status)
	_, _, hasErr := stored.ErrorDetail()
	assert.False(t, hasErr)
}

func TestDocumentService_Process_NotFound(t *testing.T) {
	f := newFixture(false)
	_, err := f.docs.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Delete(t *testing.T) {
	f := newFixture(true)
	defer f.close()
	ctx := context.Background()

	doc := uploadText(t, f, "boiler.md", boilerNotes)
	_, err := f.docs.Process(ctx, doc.ID)
	require.NoError(t, err)
	f.indexer.Wait()

	require.NoError(t, f.docs.Delete(ctx, doc.ID))

	_, err = f.docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.docs.Pages(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.docs.Process(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.blobs.Len())

	n, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	results, err := f.search.Retrieve(ctx, "pressure relief valve", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.ErrorIs(t, f.docs.Delete(ctx, doc.ID), domain.ErrNotFound)
}

func TestDocumentService_Delete_BlobFailureDoesNotBlock(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	doc := uploadText(t, f, "a.md", boilerNotes)
	f.blobs.deleteErr = errors.New("unreachable")

	require.NoError(t, f.docs.Delete(ctx, doc.ID))
	_, err := f.docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_List(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	a := uploadText(t, f, "a.md", boilerNotes)
	uploadText(t, f, "b.md", boilerNotes)
	_, err := f.docs.Process(ctx, a.ID)
	require.NoError(t, err)

	docs, err := f.docs.List(ctx, domain.ListFilter{Statuses: []domain.DocumentStatus{domain.StatusProcessed}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, a.ID, docs[0].ID)

	docs, err = f.docs.List(ctx, domain.ListFilter{Category: "manuals"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "My Report (final).pdf", want: "My_Report__final_.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\notes.txt`, want: "notes.txt"},
		{in: "résumé.txt", want: "r_sum_.txt"},
		{in: "...", want: "file"},
		{in: ".hidden", want: "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.in))
		})
	}
}
