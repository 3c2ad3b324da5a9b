package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestIndexService_HealthAndRebuild(t *testing.T) {
	tests := []struct {
		name    string
		diverge func(t *testing.T, f *fixture)
	}{
		{
			name: "index wiped",
			diverge: func(t *testing.T, f *fixture) {
				require.NoError(t, f.lexical.Reset(context.Background()))
			},
		},
		{
			name: "duplicate entries",
			diverge: func(t *testing.T, f *fixture) {
				ctx := context.Background()
				docs, err := f.store.ListDocuments(ctx, domain.ListFilter{})
				require.NoError(t, err)
				pages, err := f.store.GetPages(ctx, docs[0].ID)
				require.NoError(t, err)
				require.NoError(t, f.lexical.Index(ctx, docs[0].ID, pages, nil))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			ctx := context.Background()

			a := uploadText(t, f, "a.md", boilerNotes)
			uploadText(t, f, "b.md", boilerNotes)
			_, err := f.docs.Process(ctx, a.ID)
			require.NoError(t, err)

			health, err := f.index.Health(ctx)
			require.NoError(t, err)
			require.True(t, health.Healthy)
			want := health.Source

			tt.diverge(t, f)
			health, err = f.index.Health(ctx)
			require.NoError(t, err)
			assert.False(t, health.Healthy)

			health, err = f.index.Rebuild(ctx)
			require.NoError(t, err)
			assert.True(t, health.Healthy)
			assert.Equal(t, want, health.Indexed)

			results, err := f.search.Retrieve(ctx, "relief valve", 5)
			require.NoError(t, err)
			assert.NotEmpty(t, results)
		})
	}
}

func TestIndexService_ReindexVectors(t *testing.T) {
	f := newFixture(true)
	defer f.close()
	ctx := context.Background()

	a := uploadText(t, f, "a.md", boilerNotes)
	uploadText(t, f, "pending.md", boilerNotes)
	_, err := f.docs.Process(ctx, a.ID)
	require.NoError(t, err)
	f.indexer.Wait()

	chunks, err := f.store.GetChunks(ctx, a.ID)
	require.NoError(t, err)

	f.vectors.records = make(map[string]domain.VectorRecord)
	n, err := f.index.ReindexVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)

	count, err := f.indexer.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)
}

func TestIndexService_ReindexVectorsWithoutIndex(t *testing.T) {
	f := newFixture(false)
	_, err := f.index.ReindexVectors(context.Background())
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}
