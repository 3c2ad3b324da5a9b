package domain

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables embeddings; retrieval is lexical only.
	AIProviderNone AIProvider = ""

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies where chunk embeddings are stored.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendNone    VectorBackend = "none"
	VectorBackendChromem VectorBackend = "chromem"
	VectorBackendMilvus  VectorBackend = "milvus"
)

// IsValid returns true if the vector backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendNone, VectorBackendChromem, VectorBackendMilvus:
		return true
	default:
		return false
	}
}

// LexicalBackend identifies the full-text index implementation.
type LexicalBackend string

// Available lexical backends.
const (
	LexicalBackendSQLite LexicalBackend = "sqlite"
	LexicalBackendBleve  LexicalBackend = "bleve"
)

// IsValid returns true if the lexical backend is recognised.
func (b LexicalBackend) IsValid() bool {
	return b == LexicalBackendSQLite || b == LexicalBackendBleve
}

// BlobBackend identifies where original upload bytes are kept.
type BlobBackend string

// Available blob backends.
const (
	BlobBackendFilesystem BlobBackend = "filesystem"
	BlobBackendMemory     BlobBackend = "memory"
	BlobBackendMinio      BlobBackend = "minio"
)

// IsValid returns true if the blob backend is recognised.
func (b BlobBackend) IsValid() bool {
	switch b {
	case BlobBackendFilesystem, BlobBackendMemory, BlobBackendMinio:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (OpenAI, Gemini).
	APIKey string

	// Dimensions is the expected vector size. Zero means learned or model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedModel returns the configured model or the provider default.
func (e EmbeddingSettings) ResolvedModel() string {
	if e.Model != "" {
		return e.Model
	}
	return DefaultEmbeddingModels()[e.Provider]
}

// ResolvedDimensions returns the configured size or the known size for the model.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.ResolvedModel()]
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}
