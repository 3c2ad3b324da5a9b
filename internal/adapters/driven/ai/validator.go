package ai

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/config"
)

// EmbeddingStatus describes whether the configured embedding provider answers.
type EmbeddingStatus struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Reachable  bool   `json:"reachable"`
	Error      string `json:"error,omitempty"`
}

// ValidateEmbeddingConfig creates the configured service, pings it and closes it.
// Returns nil when no provider is configured.
func ValidateEmbeddingConfig(ctx context.Context, cfg config.EmbeddingConfig) *EmbeddingStatus {
	settings := cfg.Settings()
	if settings.Provider == "" {
		return nil
	}

	status := &EmbeddingStatus{
		Provider:   settings.Provider.String(),
		Model:      settings.ResolvedModel(),
		Dimensions: settings.ResolvedDimensions(),
	}

	svc, err := CreateAndValidateEmbeddingService(ctx, cfg)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	if svc == nil {
		status.Error = "provider is not configured"
		return status
	}
	defer svc.Close() //nolint:errcheck

	status.Reachable = true
	if d := svc.Dimensions(); d > 0 {
		status.Dimensions = d
	}
	return status
}
