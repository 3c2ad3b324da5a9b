package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// VectorIndex stores chunk embeddings for similarity search.
// Records are keyed by domain.VectorKey and are never authoritative.
type VectorIndex interface {
	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to topK records most similar to vec, best first.
	Query(ctx context.Context, vec []float32, topK int) ([]domain.VectorMatch, error)

	// DeleteDocument removes every record belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
