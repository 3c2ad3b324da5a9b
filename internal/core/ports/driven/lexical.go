package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// LexicalIndex is a derived full-text index over page and chunk content.
// Entries correspond 1:1 with DocumentStore rows. Maintenance is explicit:
// callers Remove before replacing or deleting content and Index after.
type LexicalIndex interface {
	// Index adds entries for the given pages and chunks of a document.
	Index(ctx context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error

	// Remove deletes every entry belonging to a document.
	Remove(ctx context.Context, documentID string) error

	// Search matches any of the query keywords and returns hits ranked
	// by the index's native relevance score.
	Search(ctx context.Context, q domain.LexicalQuery) ([]domain.LexicalHit, error)

	// Counts returns the number of page and chunk entries.
	Counts(ctx context.Context) (domain.IndexCounts, error)

	// Reset removes every entry.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}
