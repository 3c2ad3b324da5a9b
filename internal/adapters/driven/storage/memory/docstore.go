package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Values are copied on the way in and out so callers never share state
// with the store.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	pages     map[string][]domain.Page
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		pages:     make(map[string][]domain.Page),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// InsertDocument stores a new document together with its initial pages.
func (s *DocumentStore) InsertDocument(_ context.Context, doc *domain.Document, pages []domain.Page) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if doc.Status == domain.StatusProcessing {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return domain.ErrInvalidInput
	}
	if err := checkPages(pages); err != nil {
		return err
	}
	s.documents[doc.ID] = cloneDocument(*doc)
	s.pages[doc.ID] = append([]domain.Page(nil), pages...)
	s.chunks[doc.ID] = nil
	return nil
}

// UpdateDocument overwrites an existing document.
func (s *DocumentStore) UpdateDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" || doc.Status == domain.StatusProcessing {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	s.documents[doc.ID] = cloneDocument(*doc)
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

// ListDocuments returns documents matching the filter, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range s.documents {
		if filter.Category != "" && doc.Category != filter.Category {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, doc.Status) {
			continue
		}
		docs = append(docs, cloneDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

// ReplaceContent swaps a document's pages and chunks atomically.
func (s *DocumentStore) ReplaceContent(_ context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return domain.ErrNotFound
	}
	if err := checkPages(pages); err != nil {
		return err
	}
	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		if c.Index < 0 || seen[c.Index] {
			return domain.ErrInvalidInput
		}
		seen[c.Index] = true
	}

	s.pages[documentID] = append([]domain.Page(nil), pages...)
	s.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// GetPages returns a document's pages ordered by page number.
func (s *DocumentStore) GetPages(_ context.Context, documentID string) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := append([]domain.Page(nil), s.pages[documentID]...)
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
	return pages, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// DeleteDocument removes a document with its pages and chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.pages, id)
	delete(s.chunks, id)
	return nil
}

// CountContent returns the total number of pages and chunks.
func (s *DocumentStore) CountContent(_ context.Context) (domain.IndexCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts domain.IndexCounts
	for _, p := range s.pages {
		counts.Pages += len(p)
	}
	for _, c := range s.chunks {
		counts.Chunks += len(c)
	}
	return counts, nil
}

func checkPages(pages []domain.Page) error {
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p.PageNumber < 1 || seen[p.PageNumber] {
			return domain.ErrInvalidInput
		}
		seen[p.PageNumber] = true
	}
	return nil
}

func hasStatus(statuses []domain.DocumentStatus, s domain.DocumentStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func cloneDocument(d domain.Document) domain.Document {
	d.Tags = append([]string(nil), d.Tags...)
	d.ParsedMetadata = cloneMap(d.ParsedMetadata)
	d.ParsedStructure = cloneMap(d.ParsedStructure)
	if d.ParsedAt != nil {
		t := *d.ParsedAt
		d.ParsedAt = &t
	}
	return d
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
