package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "gemini is valid", provider: AIProviderGemini, expected: true},
		{name: "none is invalid", provider: AIProviderNone, expected: false},
		{name: "anthropic is invalid", provider: AIProvider("anthropic"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Traits(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())

	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderGemini.IsLocal())

	assert.Equal(t, "gemini", AIProviderGemini.String())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestBackends_IsValid(t *testing.T) {
	assert.True(t, VectorBackendNone.IsValid())
	assert.True(t, VectorBackendChromem.IsValid())
	assert.True(t, VectorBackendMilvus.IsValid())
	assert.False(t, VectorBackend("qdrant").IsValid())

	assert.True(t, LexicalBackendSQLite.IsValid())
	assert.True(t, LexicalBackendBleve.IsValid())
	assert.False(t, LexicalBackend("").IsValid())

	assert.True(t, BlobBackendFilesystem.IsValid())
	assert.True(t, BlobBackendMemory.IsValid())
	assert.True(t, BlobBackendMinio.IsValid())
	assert.False(t, BlobBackend("s3").IsValid())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{
			name:     "ollama without api key",
			settings: EmbeddingSettings{Provider: AIProviderOllama},
			expected: true,
		},
		{
			name:     "openai with api key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"},
			expected: true,
		},
		{
			name:     "openai without api key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI},
			expected: false,
		},
		{
			name:     "gemini without api key",
			settings: EmbeddingSettings{Provider: AIProviderGemini},
			expected: false,
		},
		{
			name:     "empty settings",
			settings: EmbeddingSettings{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestEmbeddingSettings_Resolved(t *testing.T) {
	tests := []struct {
		name      string
		settings  EmbeddingSettings
		wantModel string
		wantDims  int
	}{
		{
			name:      "provider default model",
			settings:  EmbeddingSettings{Provider: AIProviderOllama},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name:      "explicit model",
			settings:  EmbeddingSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-large"},
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name:      "explicit dimensions win",
			settings:  EmbeddingSettings{Provider: AIProviderOpenAI, Dimensions: 256},
			wantModel: "text-embedding-3-small",
			wantDims:  256,
		},
		{
			name:      "unknown model",
			settings:  EmbeddingSettings{Provider: AIProviderOllama, Model: "custom"},
			wantModel: "custom",
			wantDims:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantModel, tt.settings.ResolvedModel())
			assert.Equal(t, tt.wantDims, tt.settings.ResolvedDimensions())
		})
	}
}

func TestAllEmbeddingProviders(t *testing.T) {
	providers := AllEmbeddingProviders()
	assert.Len(t, providers, 3)
	for _, p := range providers {
		assert.True(t, p.IsValid())
		assert.NotEmpty(t, DefaultEmbeddingModels()[p])
	}
}
