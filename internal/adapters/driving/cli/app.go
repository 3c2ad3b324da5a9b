package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/ai"
	blobfs "github.com/custodia-labs/sercha-docs/internal/adapters/driven/blob/filesystem"
	blobmemory "github.com/custodia-labs/sercha-docs/internal/adapters/driven/blob/memory"
	blobminio "github.com/custodia-labs/sercha-docs/internal/adapters/driven/blob/minio"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/lexical/bleve"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-docs/internal/config"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/services"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/normalisers"
	"github.com/custodia-labs/sercha-docs/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-docs/internal/normalisers/text"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/chunker"
)

// App owns the adapters and services built from a configuration.
type App struct {
	Config    *config.Config
	Documents *services.DocumentService
	Retrieval *services.RetrievalService
	Index     *services.IndexService
	Vectors   *services.VectorIndexer
	AI        *ai.InitResult

	closers []func() error
}

// NewApp wires storage, indexes, parsers and services from cfg.
// An unreachable embedding provider or vector backend is not an error;
// retrieval falls back to lexical search and the reason is logged.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	lexical, err := a.lexicalIndex(store, cfg.Lexical)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	parsers := normalisers.NewRegistry(
		pdf.New(pdf.WithMaxBytes(cfg.PDF.MaxBytes), pdf.WithMaxPages(cfg.PDF.MaxPages)),
		text.New(text.WithPageChars(cfg.Text.PageChars), text.WithCSVRowsPerPage(cfg.Text.CSVRowsPerPage)),
	)
	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunker.Size),
		chunker.WithOverlap(cfg.Chunker.OverlapOrDefault()),
	)

	a.AI = ai.Initialise(ctx, cfg)
	for _, w := range a.AI.Warnings {
		logger.Warn("%s", w)
	}
	a.closers = append(a.closers, func() error { a.AI.Close(); return nil })

	guard := &sync.RWMutex{}
	docOpts := []services.DocumentOption{
		services.WithMaxUploadBytes(cfg.Ingest.MaxUploadBytes),
		services.WithProcessTimeout(cfg.Ingest.ProcessTimeout.Std()),
		services.WithIndexGuard(guard),
	}
	searchOpts := []services.RetrievalOption{
		services.WithMaxKeywords(cfg.Lexical.MaxKeywords),
	}

	if a.AI.VectorEnabled() {
		a.useVectors(services.NewVectorIndexer(a.AI.EmbeddingService, a.AI.VectorIndex,
			services.WithConcurrency(cfg.Vector.Concurrency),
			services.WithRequestsPerSecond(cfg.Vector.RequestsPerSecond),
			services.WithVectorGuard(guard),
		))
		docOpts = append(docOpts, services.WithVectorIndexer(a.Vectors))
		searchOpts = append(searchOpts,
			services.WithVectorSearcher(a.Vectors),
			services.WithVectorTopK(cfg.Vector.TopK),
		)
	}

	a.Documents = services.NewDocumentService(store.DocumentStore(), blobs, lexical, parsers, chunks, docOpts...)
	a.Retrieval = services.NewRetrievalService(store.DocumentStore(), lexical, searchOpts...)
	a.Index = services.NewIndexService(store.DocumentStore(), lexical, a.Vectors, guard)

	logger.Debug("wired app: data=%s lexical=%s blob=%s vector=%t",
		cfg.Storage.DataDir, cfg.Lexical.Backend, cfg.Blob.Backend, a.AI.VectorEnabled())
	return a, nil
}

// useVectors installs the vector indexer. Queued embedding jobs are
// drained on Close, before the vector index itself is closed.
func (a *App) useVectors(v *services.VectorIndexer) {
	a.Vectors = v
	a.closers = append(a.closers, func() error { v.Drain(); return nil })
}

// Services returns the driving ports.
func (a *App) Services() Services {
	return Services{Documents: a.Documents, Retrieval: a.Retrieval, Index: a.Index}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) lexicalIndex(store *sqlite.Store, cfg config.LexicalConfig) (driven.LexicalIndex, error) {
	switch cfg.Backend {
	case domain.LexicalBackendBleve:
		idx, err := bleve.New(cfg.BlevePath)
		if err != nil {
			return nil, fmt.Errorf("opening bleve index: %w", err)
		}
		a.closers = append(a.closers, idx.Close)
		return idx, nil
	default:
		return store.LexicalIndex(), nil
	}
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig) (driven.BlobStore, error) {
	switch cfg.Backend {
	case domain.BlobBackendMemory:
		return blobmemory.New(), nil
	case domain.BlobBackendMinio:
		store, err := blobminio.New(ctx, blobminio.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			Secure:    cfg.Minio.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to minio: %w", err)
		}
		return store, nil
	default:
		store, err := blobfs.New(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening blob directory: %w", err)
		}
		return store, nil
	}
}
