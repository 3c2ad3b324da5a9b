package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Retrieval limits.
const (
	DefaultRetrieveLimit = 10
	MaxRetrieveLimit     = 100
)

// VectorSearcher answers similarity queries for free text.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.VectorMatch, error)
}

// RetrievalService answers queries from the vector index when available,
// falling back to lexical search.
type RetrievalService struct {
	store       driven.DocumentStore
	lexical     driven.LexicalIndex
	vectors     VectorSearcher
	vectorTopK  int
	maxKeywords int
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithVectorSearcher enables the vector path.
func WithVectorSearcher(v VectorSearcher) RetrievalOption {
	return func(s *RetrievalService) {
		s.vectors = v
	}
}

// WithVectorTopK sets the minimum number of vector candidates fetched per
// query. Candidates for deleted documents are dropped before the limit applies.
func WithVectorTopK(k int) RetrievalOption {
	return func(s *RetrievalService) {
		if k > 0 {
			s.vectorTopK = k
		}
	}
}

// WithMaxKeywords caps the keywords used for lexical queries.
func WithMaxKeywords(n int) RetrievalOption {
	return func(s *RetrievalService) {
		if n > 0 {
			s.maxKeywords = n
		}
	}
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(store driven.DocumentStore, lexical driven.LexicalIndex, opts ...RetrievalOption) *RetrievalService {
	s := &RetrievalService{
		store:       store,
		lexical:     lexical,
		maxKeywords: DefaultMaxKeywords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns up to limit excerpts for query.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, limit int) ([]domain.RetrievalResult, error) {
	limit = clampLimit(limit)
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, nil
	}

	if s.vectors != nil {
		results, err := s.vectorRetrieve(ctx, query, limit)
		switch {
		case err != nil:
			logger.Warn("vector retrieval failed, using lexical search: %v", err)
		case len(results) > 0:
			return results, nil
		default:
			logger.Debug("vector retrieval returned no results, using lexical search")
		}
	}

	return s.lexicalRetrieve(ctx, query, limit)
}

func (s *RetrievalService) vectorRetrieve(ctx context.Context, query string, limit int) ([]domain.RetrievalResult, error) {
	matches, err := s.vectors.Search(ctx, query, max(limit, s.vectorTopK))
	if err != nil {
		return nil, err
	}

	docs := newDocumentCache(s.store)
	results := make([]domain.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		doc, err := docs.get(ctx, m.Record.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		if len(results) == limit {
			break
		}
		results = append(results, domain.RetrievalResult{
			Text:       m.Record.Text,
			DocumentID: doc.ID,
			PageNumber: m.Record.PageNumber,
			ChunkIndex: m.Record.ChunkIndex,
			Filename:   doc.OriginalFilename,
			Category:   doc.Category,
			Score:      m.Similarity,
			Source:     domain.SourceVector,
		})
	}
	return results, nil
}

func (s *RetrievalService) lexicalRetrieve(ctx context.Context, query string, limit int) ([]domain.RetrievalResult, error) {
	keywords := ExtractKeywords(query, s.maxKeywords)
	if len(keywords) == 0 {
		return []domain.RetrievalResult{}, nil
	}

	hits, err := s.lexical.Search(ctx, domain.LexicalQuery{
		Keywords: keywords,
		Target:   domain.TargetChunks,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	if len(hits) == 0 {
		hits, err = s.lexical.Search(ctx, domain.LexicalQuery{
			Keywords: keywords,
			Target:   domain.TargetPages,
			Limit:    limit,
		})
		if err != nil {
			return nil, fmt.Errorf("lexical search: %w", err)
		}
	}

	docs := newDocumentCache(s.store)
	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		doc, err := docs.get(ctx, h.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Text:       h.Text,
			DocumentID: doc.ID,
			PageNumber: h.PageNumber,
			ChunkIndex: h.ChunkIndex,
			Filename:   doc.OriginalFilename,
			Category:   doc.Category,
			Score:      h.Score,
			Snippet:    h.Snippet,
			Source:     domain.SourceLexical,
		})
	}
	return results, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRetrieveLimit
	}
	return min(limit, MaxRetrieveLimit)
}

// documentCache memoises document lookups for one query. A nil entry
// marks a document that no longer exists.
type documentCache struct {
	store driven.DocumentStore
	docs  map[string]*domain.Document
}

func newDocumentCache(store driven.DocumentStore) *documentCache {
	return &documentCache{store: store, docs: make(map[string]*domain.Document)}
}

func (c *documentCache) get(ctx context.Context, id string) (*domain.Document, error) {
	if doc, ok := c.docs[id]; ok {
		return doc, nil
	}
	doc, err := c.store.GetDocument(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		c.docs[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	c.docs[id] = doc
	return doc, nil
}
