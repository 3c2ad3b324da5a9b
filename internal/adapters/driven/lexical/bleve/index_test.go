package bleve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func intp(n int) *int { return &n }

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, "doc-1",
		[]domain.Page{
			{PageNumber: 1, Content: "Installing the boiler requires a flat wall."},
			{PageNumber: 2, Content: "Troubleshooting low pressure in the heating circuit."},
		},
		[]domain.Chunk{
			{Index: 0, PageNumber: intp(1), Text: "Installing the boiler requires a flat wall."},
			{Index: 1, PageNumber: intp(2), Text: "Troubleshooting low pressure in the heating circuit."},
		}))
	require.NoError(t, idx.Index(ctx, "doc-2",
		[]domain.Page{{PageNumber: 1, Content: "Invoice for pressure gauge replacement."}},
		[]domain.Chunk{{Index: 0, Text: "Invoice for pressure gauge replacement."}}))
	return idx
}

func TestIndex_SearchChunks(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.LexicalQuery{
		Keywords: []string{"pressure"},
		Target:   domain.TargetChunks,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	byDoc := map[string]domain.LexicalHit{}
	for _, h := range hits {
		byDoc[h.DocumentID] = h
		assert.Greater(t, h.Score, 0.0)
		assert.Contains(t, h.Snippet, "<mark>pressure</mark>")
	}
	require.Contains(t, byDoc, "doc-1")
	assert.Equal(t, 1, byDoc["doc-1"].ChunkIndex)
	require.NotNil(t, byDoc["doc-1"].PageNumber)
	assert.Equal(t, 2, *byDoc["doc-1"].PageNumber)
	assert.Contains(t, byDoc["doc-1"].Text, "heating circuit")
	assert.Nil(t, byDoc["doc-2"].PageNumber)
}

func TestIndex_SearchPages(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.LexicalQuery{
		Keywords: []string{"boiler"},
		Target:   domain.TargetPages,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].DocumentID)
	assert.Equal(t, -1, hits[0].ChunkIndex)
	require.NotNil(t, hits[0].PageNumber)
	assert.Equal(t, 1, *hits[0].PageNumber)
}

func TestIndex_SearchStemmedAnyOf(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.LexicalQuery{
		Keywords: []string{"install", "invoices"},
		Target:   domain.TargetChunks,
	})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	hits, err := idx.Search(ctx, domain.LexicalQuery{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, domain.LexicalQuery{Keywords: []string{"pressure"}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, domain.LexicalQuery{Keywords: []string{"nonexistentterm"}})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_RemoveCountsReset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexCounts{Pages: 3, Chunks: 3}, counts)

	require.NoError(t, idx.Remove(ctx, "doc-1"))
	counts, err = idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexCounts{Pages: 1, Chunks: 1}, counts)

	require.NoError(t, idx.Reset(ctx))
	counts, err = idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexCounts{}, counts)
}

func TestIndex_ReindexReplacesEntries(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "doc-2",
		[]domain.Page{{PageNumber: 1, Content: "Updated invoice text."}}, nil))
	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Pages)
}

func TestNew_PersistentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexical.bleve")
	ctx := context.Background()

	idx, err := New(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, "doc-1", []domain.Page{{PageNumber: 1, Content: "persisted page"}}, nil))
	require.NoError(t, idx.Close())

	idx, err = New(path)
	require.NoError(t, err)
	defer idx.Close()
	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pages)
}
