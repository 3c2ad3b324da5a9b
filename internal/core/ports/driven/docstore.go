package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// DocumentStore persists documents, pages and chunks.
// It is the source of truth every derived index is rebuilt from.
type DocumentStore interface {
	// InsertDocument stores a new document together with its initial pages.
	InsertDocument(ctx context.Context, doc *domain.Document, pages []domain.Page) error

	// UpdateDocument overwrites the document row's mutable columns.
	// Returns domain.ErrNotFound if the document does not exist.
	UpdateDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns documents matching the filter, newest first.
	ListDocuments(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error)

	// ReplaceContent deletes every page and chunk of a document and inserts
	// the given ones in a single transaction.
	ReplaceContent(ctx context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error

	// GetPages returns a document's pages ordered by page number.
	GetPages(ctx context.Context, documentID string) ([]domain.Page, error)

	// GetChunks returns a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and, by cascade, its pages and chunks.
	DeleteDocument(ctx context.Context, id string) error

	// CountContent returns the total number of page and chunk rows.
	CountContent(ctx context.Context) (domain.IndexCounts, error)
}
