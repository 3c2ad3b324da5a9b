package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// UploadRequest carries an uploaded file and its caller-supplied metadata.
type UploadRequest struct {
	Filename    string
	ContentType string
	Category    string
	Tags        []string
	Data        []byte
}

// DocumentService manages the document lifecycle:
// uploaded → processing → processed | error.
type DocumentService interface {
	// Upload validates and stores a file and creates its document row.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Process parses a document and replaces its pages and chunks.
	// Failures return a *domain.ProcessingError and leave the document in error status.
	Process(ctx context.Context, documentID string) (*domain.Document, error)

	// ProcessPending processes every document that is uploaded or in error.
	ProcessPending(ctx context.Context) ([]ProcessOutcome, error)

	// Delete removes a document, its blob and its derived index entries.
	Delete(ctx context.Context, documentID string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents matching the filter.
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error)

	// Pages returns a document's pages in order.
	Pages(ctx context.Context, documentID string) ([]domain.Page, error)

	// Chunks returns a document's chunks in order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// ProcessOutcome reports the result of processing one document.
type ProcessOutcome struct {
	DocumentID string
	Status     domain.DocumentStatus
	Err        error
}
