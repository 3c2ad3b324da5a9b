// Package chromem implements the vector index on chromem-go, an embedded
// vector database persisted to a local directory.
package chromem

import (
	"context"
	"fmt"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "document_chunks"

// Index stores chunk vectors in a chromem collection.
type Index struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
}

// New opens the database at path, or an in-memory database when path is
// empty, and gets or creates the named collection.
func New(path, collection string) (*Index, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	var (
		db  *chromemgo.DB
		err error
	)
	if path == "" {
		db = chromemgo.NewDB()
	} else {
		db, err = chromemgo.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
	}

	coll, err := db.GetOrCreateCollection(collection, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collection, err)
	}
	return &Index{db: db, collection: coll}, nil
}

// Upsert inserts or replaces records by ID.
func (i *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]string, len(records))
	contents := make([]string, len(records))
	for n, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("%w: record %s has no embedding", domain.ErrInvalidInput, r.ID)
		}
		ids[n] = r.ID
		embeddings[n] = r.Embedding
		metadatas[n] = vector.Metadata(r)
		contents[n] = r.Text
	}
	if err := i.collection.Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Query returns up to topK records by cosine similarity, best first.
func (i *Index) Query(ctx context.Context, vec []float32, topK int) ([]domain.VectorMatch, error) {
	if len(vec) == 0 || topK <= 0 {
		return nil, nil
	}
	// chromem rejects result counts above the collection size.
	n := min(topK, i.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := i.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	matches := make([]domain.VectorMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, domain.VectorMatch{
			Record:     vector.RecordFromMetadata(r.ID, r.Metadata, r.Content),
			Similarity: float64(r.Similarity),
		})
	}
	return matches, nil
}

// DeleteDocument removes every record of a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if err := i.collection.Delete(ctx, map[string]string{vector.KeyDocumentID: documentID}, nil); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Count returns the number of stored records.
func (i *Index) Count(_ context.Context) (int, error) {
	return i.collection.Count(), nil
}

// Close is a no-op; chromem persists on every write.
func (i *Index) Close() error {
	return nil
}
