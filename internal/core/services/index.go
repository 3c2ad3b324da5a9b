package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService reports on and repairs the derived indexes. Repairs hold
// the derived-index lock exclusively, so they never interleave with
// ordinary processing.
type IndexService struct {
	store   driven.DocumentStore
	lexical driven.LexicalIndex
	vectors *VectorIndexer
	guard   *sync.RWMutex
}

// NewIndexService creates an index service. vectors may be nil.
// guard must be the lock shared with DocumentService; nil creates a private one.
func NewIndexService(store driven.DocumentStore, lexical driven.LexicalIndex, vectors *VectorIndexer, guard *sync.RWMutex) *IndexService {
	if guard == nil {
		guard = &sync.RWMutex{}
	}
	return &IndexService{
		store:   store,
		lexical: lexical,
		vectors: vectors,
		guard:   guard,
	}
}

// Health compares lexical index entries with source rows. It does not
// wait for repairs in progress.
func (s *IndexService) Health(ctx context.Context) (*domain.IndexHealth, error) {
	return s.health(ctx)
}

func (s *IndexService) health(ctx context.Context) (*domain.IndexHealth, error) {
	source, err := s.store.CountContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("count source rows: %w", err)
	}
	indexed, err := s.lexical.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index entries: %w", err)
	}
	return domain.NewIndexHealth(source, indexed), nil
}

// Rebuild clears the lexical index and re-populates it from every
// stored page and chunk. Safe to call repeatedly.
func (s *IndexService) Rebuild(ctx context.Context) (*domain.IndexHealth, error) {
	s.guard.Lock()
	defer s.guard.Unlock()

	logger.Info("rebuilding lexical index")
	if err := s.lexical.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset lexical index: %w", err)
	}

	docs, err := s.store.ListDocuments(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		id := docs[i].ID
		pages, err := s.store.GetPages(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load pages for %s: %w", id, err)
		}
		chunks, err := s.store.GetChunks(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load chunks for %s: %w", id, err)
		}
		if err := s.lexical.Index(ctx, id, pages, chunks); err != nil {
			return nil, fmt.Errorf("index %s: %w", id, err)
		}
	}

	health, err := s.health(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("lexical index rebuilt: %d documents, %d pages, %d chunks",
		len(docs), health.Indexed.Pages, health.Indexed.Chunks)
	return health, nil
}

// ReindexVectors re-embeds the chunks of every processed document.
func (s *IndexService) ReindexVectors(ctx context.Context) (int, error) {
	if s.vectors == nil {
		return 0, fmt.Errorf("%w: no vector index configured", domain.ErrVectorIndexUnavailable)
	}
	s.vectors.Wait()

	s.guard.Lock()
	defer s.guard.Unlock()

	docs, err := s.store.ListDocuments(ctx, domain.ListFilter{
		Statuses: []domain.DocumentStatus{domain.StatusProcessed},
	})
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	total := 0
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		chunks, err := s.store.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return total, fmt.Errorf("load chunks for %s: %w", docs[i].ID, err)
		}
		n, err := s.vectors.IndexDocument(ctx, docs[i], chunks)
		if err != nil {
			logger.With(logger.Fields{"document_id": docs[i].ID, "stage": "vector"}).
				Warn("reindex failed: %v", err)
			continue
		}
		total += n
	}
	logger.Info("vector index rebuilt: %d records from %d documents", total, len(docs))
	return total, nil
}
