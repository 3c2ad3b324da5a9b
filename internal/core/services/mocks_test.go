package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	blobmemory "github.com/custodia-labs/sercha-docs/internal/adapters/driven/blob/memory"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/normalisers"
	"github.com/custodia-labs/sercha-docs/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-docs/internal/normalisers/text"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// mockLexicalIndex implements driven.LexicalIndex with substring matching.
type mockLexicalIndex struct {
	mu        sync.Mutex
	pages     map[string][]domain.Page
	chunks    map[string][]domain.Chunk
	indexErr  error
	searchErr error
	queries   []domain.LexicalQuery
}

func newMockLexicalIndex() *mockLexicalIndex {
	return &mockLexicalIndex{
		pages:  make(map[string][]domain.Page),
		chunks: make(map[string][]domain.Chunk),
	}
}

func (m *mockLexicalIndex) Index(_ context.Context, id string, pages []domain.Page, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.pages[id] = append(m.pages[id], pages...)
	m.chunks[id] = append(m.chunks[id], chunks...)
	return nil
}

func (m *mockLexicalIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	delete(m.chunks, id)
	return nil
}

func (m *mockLexicalIndex) Search(_ context.Context, q domain.LexicalQuery) ([]domain.LexicalHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	matches := func(content string) int {
		n := 0
		lower := strings.ToLower(content)
		for _, k := range q.Keywords {
			if strings.Contains(lower, k) {
				n++
			}
		}
		return n
	}

	var hits []domain.LexicalHit
	ids := make([]string, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if q.Target == domain.TargetPages {
			for _, p := range m.pages[id] {
				if n := matches(p.Content); n > 0 {
					num := p.PageNumber
					hits = append(hits, domain.LexicalHit{DocumentID: id, PageNumber: &num, ChunkIndex: -1,
						Text: p.Content, Snippet: p.Content, Score: float64(n)})
				}
			}
			continue
		}
		for _, c := range m.chunks[id] {
			if n := matches(c.Text); n > 0 {
				hits = append(hits, domain.LexicalHit{DocumentID: id, PageNumber: c.PageNumber, ChunkIndex: c.Index,
					Text: c.Text, Snippet: c.Text, Score: float64(n)})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (m *mockLexicalIndex) Counts(_ context.Context) (domain.IndexCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c domain.IndexCounts
	for _, p := range m.pages {
		c.Pages += len(p)
	}
	for _, ch := range m.chunks {
		c.Chunks += len(ch)
	}
	return c, nil
}

func (m *mockLexicalIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string][]domain.Page)
	m.chunks = make(map[string][]domain.Chunk)
	return nil
}

func (m *mockLexicalIndex) Close() error { return nil }

// mockEmbeddingService implements driven.EmbeddingService with a
// bag-of-words hash so texts sharing words are similar.
type mockEmbeddingService struct {
	mu       sync.Mutex
	calls    int
	err      error
	failOn   string
	inflight int
	peak     int
	delay    time.Duration
}

const mockDims = 16

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	m.calls++
	m.inflight++
	m.peak = max(m.peak, m.inflight)
	err := m.err
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		err = errors.New("embedding rejected")
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()
	if err != nil {
		return nil, err
	}

	vec := make([]float32, mockDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%mockDims]++
	}
	return vec, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return mockDims }
func (m *mockEmbeddingService) ModelName() string            { return "mock" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockVectorIndex implements driven.VectorIndex in memory.
type mockVectorIndex struct {
	mu       sync.Mutex
	records  map[string]domain.VectorRecord
	queryErr error
	upserts  int
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{records: make(map[string]domain.VectorRecord)}
}

func (m *mockVectorIndex) Upsert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *mockVectorIndex) Query(_ context.Context, vec []float32, topK int) ([]domain.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []domain.VectorMatch
	for _, r := range m.records {
		var dot float64
		for i := range vec {
			dot += float64(vec[i] * r.Embedding[i])
		}
		out = append(out, domain.VectorMatch{Record: r, Similarity: dot})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Record.ID < out[j].Record.ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *mockVectorIndex) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if r.DocumentID == id {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *mockVectorIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockBlobStore wraps the in-memory blob store with injectable failures.
type mockBlobStore struct {
	*blobmemory.Store
	putErr    error
	deleteErr error
	puts      int
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	return m.Store.Put(ctx, key, data, contentType)
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	return m.Store.Delete(ctx, key)
}

// failingDocumentStore fails selected writes.
type failingDocumentStore struct {
	driven.DocumentStore
	insertErr  error
	replaceErr error
}

func (f *failingDocumentStore) InsertDocument(ctx context.Context, doc *domain.Document, pages []domain.Page) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.DocumentStore.InsertDocument(ctx, doc, pages)
}

func (f *failingDocumentStore) ReplaceContent(ctx context.Context, id string, pages []domain.Page, chunks []domain.Chunk) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	return f.DocumentStore.ReplaceContent(ctx, id, pages, chunks)
}

// stubParser replaces the text parser to simulate misbehaviour.
type stubParser struct {
	panicWith any
	block     bool
}

func (p *stubParser) Format() domain.Format { return domain.FormatText }

func (p *stubParser) Parse(ctx context.Context, _ []byte, _ domain.FileInfo) (*domain.ParsedDocument, error) {
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &domain.ParsedDocument{}, nil
}

// --- Fixture ---

type fixture struct {
	store   *memory.DocumentStore
	blobs   *mockBlobStore
	lexical *mockLexicalIndex
	parsers *normalisers.Registry
	embed   *mockEmbeddingService
	vectors *mockVectorIndex
	indexer *VectorIndexer
	guard   *sync.RWMutex
	docs    *DocumentService
	index   *IndexService
	search  *RetrievalService
}

func newFixture(withVectors bool, opts ...DocumentOption) *fixture {
	f := &fixture{
		store:   memory.NewDocumentStore(),
		blobs:   &mockBlobStore{Store: blobmemory.New()},
		lexical: newMockLexicalIndex(),
		parsers: normalisers.NewRegistry(pdf.New(), text.New()),
		embed:   &mockEmbeddingService{},
		vectors: newMockVectorIndex(),
		guard:   &sync.RWMutex{},
	}

	docOpts := []DocumentOption{WithIndexGuard(f.guard)}
	searchOpts := []RetrievalOption{}
	if withVectors {
		f.indexer = NewVectorIndexer(f.embed, f.vectors, WithVectorGuard(f.guard), WithConcurrency(2))
		docOpts = append(docOpts, WithVectorIndexer(f.indexer))
		searchOpts = append(searchOpts, WithVectorSearcher(f.indexer))
	}
	docOpts = append(docOpts, opts...)

	f.docs = NewDocumentService(f.store, f.blobs, f.lexical, f.parsers, chunker.New(), docOpts...)
	f.index = NewIndexService(f.store, f.lexical, f.indexer, f.guard)
	f.search = NewRetrievalService(f.store, f.lexical, searchOpts...)
	return f
}

func (f *fixture) close() {
	if f.indexer != nil {
		f.indexer.Close()
	}
}
