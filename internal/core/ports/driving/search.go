package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// RetrievalService answers retrieval queries with attributed excerpts.
type RetrievalService interface {
	// Retrieve returns up to limit ranked excerpts for a free-text query.
	Retrieve(ctx context.Context, query string, limit int) ([]domain.RetrievalResult, error)
}

// IndexService reports on and repairs the derived indexes.
type IndexService interface {
	// Health compares lexical index entries with source rows.
	Health(ctx context.Context) (*domain.IndexHealth, error)

	// Rebuild clears the lexical index and re-populates it from source rows.
	Rebuild(ctx context.Context) (*domain.IndexHealth, error)

	// ReindexVectors re-embeds every chunk into the vector index.
	// Returns the number of records written.
	ReindexVectors(ctx context.Context) (int, error)
}
