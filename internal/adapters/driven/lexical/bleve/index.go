// Package bleve implements the lexical index on a Bleve full-text index.
//
// Pages and chunks are indexed as separate entries distinguished by a
// keyword "kind" field. Content is analysed with the English analyser so
// queries match stemmed forms, and hits carry <mark> highlighted fragments.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

const (
	kindPage  = "page"
	kindChunk = "chunk"

	batchSize  = 500
	deletePage = 1000
)

// entry is the indexed representation of a page or chunk.
// PageNumber is zero when a chunk has no page.
type entry struct {
	Kind       string `json:"kind"`
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// Index is a Bleve-backed driven.LexicalIndex.
type Index struct {
	mu    sync.RWMutex
	index blevesearch.Index
}

// New opens the index at path, creating it when missing. An empty path
// creates an in-memory index.
func New(path string) (*Index, error) {
	m := buildMapping()
	if path == "" {
		idx, err := blevesearch.NewMemOnly(m)
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := blevesearch.Open(path)
	if errors.Is(err, blevesearch.ErrorIndexPathDoesNotExist) {
		logger.Debug("bleve: creating index at %s", path)
		idx, err = blevesearch.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	return &Index{index: idx}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	content := blevesearch.NewTextFieldMapping()
	content.Analyzer = en.AnalyzerName
	content.Store = true
	content.IncludeTermVectors = true

	keyword := blevesearch.NewKeywordFieldMapping()
	keyword.Store = true

	number := blevesearch.NewNumericFieldMapping()
	number.Store = true
	number.Index = false

	doc := blevesearch.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt("kind", keyword)
	doc.AddFieldMappingsAt("document_id", keyword)
	doc.AddFieldMappingsAt("page_number", number)
	doc.AddFieldMappingsAt("chunk_index", number)
	doc.AddFieldMappingsAt("content", content)

	m := blevesearch.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Index adds entries for the given pages and chunks of a document.
func (i *Index) Index(ctx context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("indexing batch: %w", err)
		}
		batch = i.index.NewBatch()
		return nil
	}

	for _, p := range pages {
		e := entry{Kind: kindPage, DocumentID: documentID, PageNumber: p.PageNumber, ChunkIndex: -1, Content: p.Content}
		if err := batch.Index(pageID(documentID, p.PageNumber), e); err != nil {
			return fmt.Errorf("adding page %d: %w", p.PageNumber, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for _, c := range chunks {
		e := entry{Kind: kindChunk, DocumentID: documentID, ChunkIndex: c.Index, Content: c.Text}
		if c.PageNumber != nil {
			e.PageNumber = *c.PageNumber
		}
		if err := batch.Index(chunkID(documentID, c.Index), e); err != nil {
			return fmt.Errorf("adding chunk %d: %w", c.Index, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return flush()
}

// Remove deletes every entry belonging to a document.
func (i *Index) Remove(ctx context.Context, documentID string) error {
	q := blevesearch.NewTermQuery(documentID)
	q.SetField("document_id")

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deleteMatching(ctx, q)
}

// Search matches any keyword against page or chunk content.
func (i *Index) Search(ctx context.Context, q domain.LexicalQuery) ([]domain.LexicalHit, error) {
	var keywords []query.Query
	for _, kw := range q.Keywords {
		if kw == "" {
			continue
		}
		mq := blevesearch.NewMatchQuery(kw)
		mq.SetField("content")
		keywords = append(keywords, mq)
	}
	if len(keywords) == 0 {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	kind := kindChunk
	if q.Target == domain.TargetPages {
		kind = kindPage
	}
	kindQuery := blevesearch.NewTermQuery(kind)
	kindQuery.SetField("kind")

	req := blevesearch.NewSearchRequestOptions(
		blevesearch.NewConjunctionQuery(kindQuery, blevesearch.NewDisjunctionQuery(keywords...)),
		limit, 0, false)
	req.Fields = []string{"document_id", "page_number", "chunk_index", "content"}
	req.Highlight = blevesearch.NewHighlightWithStyle("html")
	req.Highlight.AddField("content")

	i.mu.RLock()
	res, err := i.index.SearchInContext(ctx, req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	hits := make([]domain.LexicalHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := domain.LexicalHit{Score: h.Score, ChunkIndex: -1}
		hit.DocumentID, _ = h.Fields["document_id"].(string)
		hit.Text, _ = h.Fields["content"].(string)
		if n, ok := h.Fields["page_number"].(float64); ok && n > 0 {
			page := int(n)
			hit.PageNumber = &page
		}
		if kind == kindChunk {
			if n, ok := h.Fields["chunk_index"].(float64); ok {
				hit.ChunkIndex = int(n)
			}
		}
		if frags := h.Fragments["content"]; len(frags) > 0 {
			hit.Snippet = frags[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Counts returns the number of page and chunk entries.
func (i *Index) Counts(ctx context.Context) (domain.IndexCounts, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	pages, err := i.countKind(ctx, kindPage)
	if err != nil {
		return domain.IndexCounts{}, err
	}
	chunks, err := i.countKind(ctx, kindChunk)
	if err != nil {
		return domain.IndexCounts{}, err
	}
	return domain.IndexCounts{Pages: pages, Chunks: chunks}, nil
}

// Reset removes every entry.
func (i *Index) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deleteMatching(ctx, blevesearch.NewMatchAllQuery())
}

// Close closes the underlying index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

func (i *Index) countKind(ctx context.Context, kind string) (int, error) {
	q := blevesearch.NewTermQuery(kind)
	q.SetField("kind")
	req := blevesearch.NewSearchRequestOptions(q, 0, 0, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("counting %s entries: %w", kind, err)
	}
	return int(res.Total), nil
}

// deleteMatching removes all entries matching q. Callers hold the write lock.
func (i *Index) deleteMatching(ctx context.Context, q query.Query) error {
	for {
		req := blevesearch.NewSearchRequestOptions(q, deletePage, 0, false)
		res, err := i.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("finding entries: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := i.index.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("deleting entries: %w", err)
		}
	}
}

func pageID(documentID string, page int) string {
	return fmt.Sprintf("%s/page/%d", documentID, page)
}

func chunkID(documentID string, index int) string {
	return fmt.Sprintf("%s/chunk/%d", documentID, index)
}
