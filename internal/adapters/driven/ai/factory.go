// Package ai provides factory functions for creating embedding and vector index adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vector/milvus"
	"github.com/custodia-labs/sercha-docs/internal/config"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to lexical-only retrieval.
}

// VectorEnabled reports whether both halves of the vector path are available.
func (r *InitResult) VectorEnabled() bool {
	return r != nil && r.EmbeddingService != nil && r.VectorIndex != nil
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Close(); err != nil {
			logger.Warn("close embedding service: %v", err)
		}
	}
	if r.VectorIndex != nil {
		if err := r.VectorIndex.Close(); err != nil {
			logger.Warn("close vector index: %v", err)
		}
	}
}

// Initialise builds the embedding service and vector index described by cfg.
// Any failure is recorded as a warning and the result falls back to
// lexical-only retrieval; Initialise itself never fails.
func Initialise(ctx context.Context, cfg *config.Config) *InitResult {
	result := &InitResult{}
	if cfg.Vector.Backend == domain.VectorBackendNone {
		return result
	}

	fallBack := func(format string, args ...any) *InitResult {
		msg := fmt.Sprintf(format, args...)
		logger.Warn("%s; using lexical retrieval only", msg)
		result.Close()
		return &InitResult{Warnings: append(result.Warnings, msg), FellBack: true}
	}

	embedder, err := CreateAndValidateEmbeddingService(ctx, cfg.Embedding)
	if err != nil {
		return fallBack("embedding: %v", err)
	}
	if embedder == nil {
		return fallBack("embedding provider %q is not configured", cfg.Embedding.Provider)
	}
	result.EmbeddingService = embedder

	index, err := CreateVectorIndex(ctx, cfg.Vector, embedder.Dimensions())
	if err != nil {
		return fallBack("vector index: %v", err)
	}
	result.VectorIndex = index

	logger.Debug("vector retrieval enabled: %s via %s (%d dims)",
		embedder.ModelName(), cfg.Vector.Backend, embedder.Dimensions())
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil, nil when no provider is configured.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on cfg.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	settings := cfg.Settings()
	if !settings.IsConfigured() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%s requires an api key", settings.Provider)
		}
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.ResolvedModel(),
			Timeout:    cfg.Timeout.Std(),
			Dimensions: settings.ResolvedDimensions(),
		})

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.ResolvedModel(),
			Timeout:    cfg.Timeout.Std(),
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      settings.ResolvedModel(),
			Dimensions: settings.ResolvedDimensions(),
			Endpoint:   settings.BaseURL,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateVectorIndex creates the vector index selected by cfg.
// dims may be zero when the embedding size is learned from the first response.
func CreateVectorIndex(ctx context.Context, cfg config.VectorConfig, dims int) (driven.VectorIndex, error) {
	switch cfg.Backend {
	case domain.VectorBackendNone:
		return nil, nil

	case domain.VectorBackendChromem:
		return chromem.New(cfg.ChromemPath, cfg.Collection)

	case domain.VectorBackendMilvus:
		return milvus.New(ctx, milvus.Config{
			Address:    cfg.Milvus.Address,
			Username:   cfg.Milvus.Username,
			Password:   cfg.Milvus.Password,
			Collection: cfg.Collection,
			Dimensions: dims,
		})

	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}
