// Package milvus implements the vector index on a Milvus collection.
//
// The collection is created on first use with an HNSW index over cosine
// similarity. When the embedding dimension is not configured, creation is
// deferred until the first upsert reveals it.
package milvus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Schema field names.
const (
	FieldID         = "id"
	FieldDocumentID = vector.KeyDocumentID
	FieldChunkIndex = vector.KeyChunkIndex
	FieldPageNumber = vector.KeyPageNumber
	FieldFilename   = vector.KeyFilename
	FieldCategory   = vector.KeyCategory
	FieldText       = "text"
	FieldEmbedding  = "embedding"
)

const (
	maxTextLength = 65535
	hnswM         = 16
	hnswEF        = 200
	searchEF      = 64
)

var outputFields = []string{FieldDocumentID, FieldChunkIndex, FieldPageNumber, FieldFilename, FieldCategory, FieldText}

// Config holds connection and collection settings.
type Config struct {
	Address    string
	Username   string
	Password   string
	Collection string
	// Dimensions is the embedding size. Zero defers collection creation
	// until the first upsert.
	Dimensions int
}

// Index stores chunk vectors in a Milvus collection.
type Index struct {
	client     client.Client
	collection string

	mu    sync.Mutex
	dim   int
	ready bool
}

// New connects to Milvus and prepares the collection when its dimension
// is known.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: milvus address is required", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		cfg.Collection = "document_chunks"
	}

	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus: %w", err)
	}

	idx := &Index{client: c, collection: cfg.Collection, dim: cfg.Dimensions}
	exists, err := c.HasCollection(ctx, cfg.Collection)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("checking collection %s: %w", cfg.Collection, err)
	}
	if exists || cfg.Dimensions > 0 {
		if err := idx.ensureCollection(ctx, cfg.Dimensions); err != nil {
			c.Close()
			return nil, err
		}
	}
	return idx, nil
}

// ensureCollection creates, indexes and loads the collection once.
func (i *Index) ensureCollection(ctx context.Context, dim int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready {
		return nil
	}

	exists, err := i.client.HasCollection(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", i.collection, err)
	}
	if !exists {
		if dim <= 0 {
			return fmt.Errorf("%w: embedding dimension unknown for new collection", domain.ErrInvalidInput)
		}
		if err := i.client.CreateCollection(ctx, Schema(i.collection, dim), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("creating collection %s: %w", i.collection, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEF)
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		if err := i.client.CreateIndex(ctx, i.collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("creating index on %s: %w", FieldEmbedding, err)
		}
		logger.Info("milvus: created collection %s (dim %d)", i.collection, dim)
		i.dim = dim
	}

	if err := i.client.LoadCollection(ctx, i.collection, false); err != nil {
		return fmt.Errorf("loading collection %s: %w", i.collection, err)
	}
	i.ready = true
	return nil
}

// Schema describes the collection layout for the given dimension.
func Schema(name string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDescription("document chunk embeddings").
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(256).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
		WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldPageNumber).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldFilename).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024)).
		WithField(entity.NewField().WithName(FieldCategory).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
		WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// Upsert inserts or replaces records by ID.
func (i *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	cols, dim, err := Columns(records)
	if err != nil {
		return err
	}
	if err := i.ensureCollection(ctx, dim); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	if _, err := i.client.Upsert(ctx, i.collection, "", cols...); err != nil {
		return fmt.Errorf("%w: upserting: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Columns converts records into column data. All embeddings must share
// one dimension.
func Columns(records []domain.VectorRecord) ([]entity.Column, int, error) {
	n := len(records)
	var (
		ids        = make([]string, n)
		docIDs     = make([]string, n)
		chunkIdx   = make([]int64, n)
		pages      = make([]int64, n)
		filenames  = make([]string, n)
		categories = make([]string, n)
		texts      = make([]string, n)
		embeddings = make([][]float32, n)
	)
	dim := len(records[0].Embedding)
	for k, r := range records {
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			return nil, 0, fmt.Errorf("%w: record %s has embedding size %d, want %d",
				domain.ErrInvalidInput, r.ID, len(r.Embedding), dim)
		}
		ids[k] = r.ID
		docIDs[k] = r.DocumentID
		chunkIdx[k] = int64(r.ChunkIndex)
		if r.PageNumber != nil {
			pages[k] = int64(*r.PageNumber)
		}
		filenames[k] = r.Filename
		categories[k] = r.Category
		texts[k] = truncate(r.Text, maxTextLength)
		embeddings[k] = r.Embedding
	}
	return []entity.Column{
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldDocumentID, docIDs),
		entity.NewColumnInt64(FieldChunkIndex, chunkIdx),
		entity.NewColumnInt64(FieldPageNumber, pages),
		entity.NewColumnVarChar(FieldFilename, filenames),
		entity.NewColumnVarChar(FieldCategory, categories),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings),
	}, dim, nil
}

// Query returns up to topK records by cosine similarity, best first.
func (i *Index) Query(ctx context.Context, vec []float32, topK int) ([]domain.VectorMatch, error) {
	if len(vec) == 0 || topK <= 0 {
		return nil, nil
	}
	if !i.isReady() {
		return nil, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(searchEF, topK))
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}
	results, err := i.client.Search(ctx, i.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vec)}, FieldEmbedding, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return Matches(results)
}

// Matches converts search results into vector matches.
func Matches(results []client.SearchResult) ([]domain.VectorMatch, error) {
	var matches []domain.VectorMatch
	for _, res := range results {
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, res.Err)
		}
		ids, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		docIDs := varChars(res.Fields, FieldDocumentID)
		filenames := varChars(res.Fields, FieldFilename)
		categories := varChars(res.Fields, FieldCategory)
		texts := varChars(res.Fields, FieldText)
		chunkIdx := int64s(res.Fields, FieldChunkIndex)
		pages := int64s(res.Fields, FieldPageNumber)

		for k := 0; k < res.ResultCount && k < ids.Len(); k++ {
			rec := domain.VectorRecord{
				ID:         ids.Data()[k],
				DocumentID: at(docIDs, k),
				Filename:   at(filenames, k),
				Category:   at(categories, k),
				Text:       at(texts, k),
				ChunkIndex: int(at(chunkIdx, k)),
				PageNumber: vector.PageFromInt(at(pages, k)),
			}
			var score float64
			if k < len(res.Scores) {
				score = float64(res.Scores[k])
			}
			matches = append(matches, domain.VectorMatch{Record: rec, Similarity: score})
		}
	}
	return matches, nil
}

// DeleteDocument removes every record of a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if !i.isReady() {
		return nil
	}
	if err := i.client.Delete(ctx, i.collection, "", DocumentFilter(documentID)); err != nil {
		return fmt.Errorf("%w: deleting: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// DocumentFilter builds the boolean expression selecting a document's records.
func DocumentFilter(documentID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(documentID)
	return fmt.Sprintf(`%s == "%s"`, FieldDocumentID, escaped)
}

// Count returns the number of stored records.
func (i *Index) Count(ctx context.Context) (int, error) {
	if !i.isReady() {
		return 0, nil
	}
	rs, err := i.client.Query(ctx, i.collection, nil, "", []string{"count(*)"})
	if err != nil {
		return 0, fmt.Errorf("%w: counting: %w", domain.ErrVectorIndexUnavailable, err)
	}
	col, ok := rs.GetColumn("count(*)").(*entity.ColumnInt64)
	if !ok || col.Len() == 0 {
		return 0, nil
	}
	return int(col.Data()[0]), nil
}

// Close closes the client connection.
func (i *Index) Close() error {
	return i.client.Close()
}

func (i *Index) isReady() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ready
}

func varChars(rs client.ResultSet, name string) []string {
	if col, ok := rs.GetColumn(name).(*entity.ColumnVarChar); ok {
		return col.Data()
	}
	return nil
}

func int64s(rs client.ResultSet, name string) []int64 {
	if col, ok := rs.GetColumn(name).(*entity.ColumnInt64); ok {
		return col.Data()
	}
	return nil
}

func at[T any](s []T, k int) T {
	var zero T
	if k < len(s) {
		return s[k]
	}
	return zero
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
