package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// DefaultVectorConcurrency bounds concurrent embedding calls per document.
const DefaultVectorConcurrency = 4

// VectorIndexer embeds chunks and keeps the vector index in step with
// processed documents. Failures are logged and never surface as
// processing failures.
type VectorIndexer struct {
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	concurrency int
	limiter     *rate.Limiter
	guard       *sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// generations invalidates in-flight jobs for a document when it is
	// reprocessed or deleted.
	mu          sync.Mutex
	generations map[string]uint64
}

// VectorOption configures a VectorIndexer.
type VectorOption func(*VectorIndexer)

// WithConcurrency sets the maximum number of concurrent embedding calls.
func WithConcurrency(n int) VectorOption {
	return func(v *VectorIndexer) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithRequestsPerSecond limits embedding calls. Zero means unlimited.
func WithRequestsPerSecond(rps float64) VectorOption {
	return func(v *VectorIndexer) {
		if rps > 0 {
			v.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithVectorGuard shares the derived-index lock with other services.
func WithVectorGuard(guard *sync.RWMutex) VectorOption {
	return func(v *VectorIndexer) {
		if guard != nil {
			v.guard = guard
		}
	}
}

// NewVectorIndexer creates a vector indexer.
func NewVectorIndexer(embedder driven.EmbeddingService, index driven.VectorIndex, opts ...VectorOption) *VectorIndexer {
	ctx, cancel := context.WithCancel(context.Background())
	v := &VectorIndexer{
		embedder:    embedder,
		index:       index,
		concurrency: DefaultVectorConcurrency,
		guard:       &sync.RWMutex{},
		ctx:         ctx,
		cancel:      cancel,
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enqueue re-indexes a document's chunks in the background.
// A later Enqueue or Forget for the same document supersedes this one.
func (v *VectorIndexer) Enqueue(doc domain.Document, chunks []domain.Chunk) {
	gen := v.bump(doc.ID)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		v.guard.RLock()
		defer v.guard.RUnlock()

		if !v.current(doc.ID, gen) {
			return
		}
		n, err := v.indexDocument(v.ctx, doc, chunks, gen)
		if err != nil {
			logger.With(logger.Fields{"document_id": doc.ID, "stage": "vector"}).
				Warn("vector upsert failed: %v", err)
			return
		}
		logger.Debug("vector index: %d records for %s", n, doc.ID)
	}()
}

// IndexDocument replaces a document's records synchronously and returns
// the number written. The caller is responsible for the derived-index lock.
func (v *VectorIndexer) IndexDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) (int, error) {
	return v.indexDocument(ctx, doc, chunks, v.bump(doc.ID))
}

func (v *VectorIndexer) indexDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk, gen uint64) (int, error) {
	if err := v.index.DeleteDocument(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("delete previous records: %w", err)
	}

	records := v.Embed(ctx, doc, chunks)
	if len(records) == 0 {
		return 0, nil
	}
	if !v.current(doc.ID, gen) {
		return 0, nil
	}
	if err := v.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return len(records), nil
}

// Embed embeds every non-empty chunk with bounded concurrency.
// Records are returned in chunk order; chunks whose embedding fails are
// logged and skipped.
func (v *VectorIndexer) Embed(ctx context.Context, doc domain.Document, chunks []domain.Chunk) []domain.VectorRecord {
	slots := make([]*domain.VectorRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		g.Go(func() error {
			if v.limiter != nil {
				if err := v.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			vec, err := v.embedder.Embed(gctx, c.Text)
			if err != nil {
				logger.With(logger.Fields{"document_id": doc.ID, "chunk_index": c.Index}).
					Warn("embedding failed: %v", err)
				return nil
			}
			slots[i] = &domain.VectorRecord{
				ID:         domain.VectorKey(doc.ID, c.Index),
				DocumentID: doc.ID,
				ChunkIndex: c.Index,
				PageNumber: c.PageNumber,
				Filename:   doc.OriginalFilename,
				Category:   doc.Category,
				Text:       c.Text,
				Embedding:  vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.With(logger.Fields{"document_id": doc.ID}).Warn("embedding stopped: %v", err)
	}

	records := make([]domain.VectorRecord, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

// Search embeds query and returns the topK most similar records.
func (v *VectorIndexer) Search(ctx context.Context, query string, topK int) ([]domain.VectorMatch, error) {
	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := v.index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return matches, nil
}

// Forget cancels pending work for a document and removes its records.
func (v *VectorIndexer) Forget(ctx context.Context, documentID string) error {
	v.bump(documentID)
	return v.index.DeleteDocument(ctx, documentID)
}

// Count returns the number of records in the vector index.
func (v *VectorIndexer) Count(ctx context.Context) (int, error) {
	return v.index.Count(ctx)
}

// Wait blocks until every enqueued job has finished.
func (v *VectorIndexer) Wait() {
	v.wg.Wait()
}

// Drain lets every enqueued job finish, then releases the indexer.
// Short-lived processes call it before exiting so queued upserts land.
func (v *VectorIndexer) Drain() {
	v.wg.Wait()
	v.cancel()
}

// Close cancels in-flight jobs and waits for them to stop.
func (v *VectorIndexer) Close() {
	v.cancel()
	v.wg.Wait()
}

func (v *VectorIndexer) bump(documentID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generations[documentID]++
	return v.generations[documentID]
}

func (v *VectorIndexer) current(documentID string, gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generations[documentID] == gen
}
