// Package config loads sercha-docs configuration from TOML.
//
// Every field has a default, so a missing file yields a working local
// setup: SQLite storage and FTS5 search under ~/.sercha-docs, filesystem
// blobs, and no vector retrieval. Secrets are never read from the file
// directly when an *_env field names an environment variable; .env files
// are loaded first so those variables can live next to the config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// DirName is the per-user directory holding config and data.
const DirName = ".sercha-docs"

// FileName is the config file inside DirName.
const FileName = "config.toml"

// Default values applied to unset fields.
const (
	DefaultMaxUploadBytes   int64 = 50 << 20
	DefaultProcessTimeout         = 2 * time.Minute
	DefaultPDFMaxPages            = 2000
	DefaultPageChars              = 3000
	DefaultCSVRowsPerPage         = 50
	DefaultChunkSize              = 1000
	DefaultChunkOverlap           = 200
	DefaultMaxKeywords            = 5
	DefaultVectorTopK             = 10
	DefaultVectorWorkers          = 4
	DefaultEmbeddingTimeout       = 30 * time.Second
	DefaultMinioBucket            = "sercha-docs"
	DefaultMilvusAddress          = "localhost:19530"
	DefaultCollection             = "document_chunks"
	DefaultLogLevel               = "warn"
)

// Duration is a time.Duration written as a string such as "90s" or "2m".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full application configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Blob      BlobConfig      `toml:"blob"`
	Ingest    IngestConfig    `toml:"ingest"`
	PDF       PDFConfig       `toml:"pdf"`
	Text      TextConfig      `toml:"text"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	Lexical   LexicalConfig   `toml:"lexical"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Log       LogConfig       `toml:"log"`
}

// StorageConfig locates the relational store.
type StorageConfig struct {
	// DataDir holds documents.db and local indexes.
	DataDir string `toml:"data_dir"`
}

// BlobConfig selects where original bytes are kept.
type BlobConfig struct {
	Backend domain.BlobBackend `toml:"backend"`
	// Dir is the root for the filesystem backend.
	Dir   string      `toml:"dir"`
	Minio MinioConfig `toml:"minio"`
}

// MinioConfig configures the S3-compatible blob backend.
type MinioConfig struct {
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	AccessKeyEnv string `toml:"access_key_env"`
	SecretKey    string `toml:"secret_key"`
	SecretKeyEnv string `toml:"secret_key_env"`
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Secure       bool   `toml:"secure"`
}

// IngestConfig bounds uploads and processing.
type IngestConfig struct {
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	ProcessTimeout Duration `toml:"process_timeout"`
	// AutoProcess runs Process right after a successful upload.
	AutoProcess *bool `toml:"auto_process"`
}

// PDFConfig bounds PDF parsing.
type PDFConfig struct {
	MaxBytes int64 `toml:"max_bytes"`
	MaxPages int   `toml:"max_pages"`
}

// TextConfig tunes text-family page splitting.
type TextConfig struct {
	PageChars      int `toml:"page_chars"`
	CSVRowsPerPage int `toml:"csv_rows_per_page"`
}

// ChunkerConfig tunes chunking.
type ChunkerConfig struct {
	Size int `toml:"size"`
	// Overlap is a pointer so an explicit zero survives defaulting.
	Overlap *int `toml:"overlap"`
}

// OverlapOrDefault returns the configured overlap or DefaultChunkOverlap.
func (c ChunkerConfig) OverlapOrDefault() int {
	if c.Overlap == nil || *c.Overlap < 0 {
		return DefaultChunkOverlap
	}
	return *c.Overlap
}

// LexicalConfig selects the full-text backend.
type LexicalConfig struct {
	Backend     domain.LexicalBackend `toml:"backend"`
	MaxKeywords int                   `toml:"max_keywords"`
	// BlevePath is the index directory for the bleve backend.
	// Empty means <data_dir>/bleve.
	BlevePath string `toml:"bleve_path"`
}

// VectorConfig selects the vector backend and indexing throughput.
type VectorConfig struct {
	Backend           domain.VectorBackend `toml:"backend"`
	TopK              int                  `toml:"top_k"`
	Concurrency       int                  `toml:"concurrency"`
	RequestsPerSecond float64              `toml:"requests_per_second"`
	// ChromemPath is the persistence directory for chromem.
	// Empty means <data_dir>/vectors.
	ChromemPath string       `toml:"chromem_path"`
	Collection  string       `toml:"collection"`
	Milvus      MilvusConfig `toml:"milvus"`
}

// MilvusConfig configures the remote vector backend.
type MilvusConfig struct {
	Address     string `toml:"address"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	PasswordEnv string `toml:"password_env"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   domain.AIProvider `toml:"provider"`
	Model      string            `toml:"model"`
	BaseURL    string            `toml:"base_url"`
	APIKey     string            `toml:"api_key"`
	APIKeyEnv  string            `toml:"api_key_env"`
	Dimensions int               `toml:"dimensions"`
	Timeout    Duration          `toml:"timeout"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Settings returns the embedding settings with secrets resolved.
func (e EmbeddingConfig) Settings() domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:   e.Provider,
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		APIKey:     e.APIKey,
		Dimensions: e.Dimensions,
	}
}

// ShouldAutoProcess reports whether uploads are processed immediately.
func (i IngestConfig) ShouldAutoProcess() bool {
	return i.AutoProcess == nil || *i.AutoProcess
}

// DefaultDir returns ~/.sercha-docs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.sercha-docs/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Load reads the config at path. An empty path means DefaultPath, and a
// missing default file is not an error. .env files in the working
// directory and next to the config are loaded before secrets are resolved.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.resolveSecrets()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data and applies defaults relative to baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults(baseDir)
	cfg.resolveSecrets()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// loadDotEnv loads the files that exist. Variables already set win.
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

// applyDefaults fills unset fields. baseDir is the config directory and
// anchors relative paths; empty means ~/.sercha-docs.
func (c *Config) applyDefaults(baseDir string) {
	if baseDir == "" {
		if d, err := DefaultDir(); err == nil {
			baseDir = d
		} else {
			baseDir = DirName
		}
	}

	c.Storage.DataDir = resolvePath(baseDir, c.Storage.DataDir, "data")

	if c.Blob.Backend == "" {
		c.Blob.Backend = domain.BlobBackendFilesystem
	}
	c.Blob.Dir = resolvePath(baseDir, c.Blob.Dir, "blobs")
	if c.Blob.Minio.Bucket == "" {
		c.Blob.Minio.Bucket = DefaultMinioBucket
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Ingest.ProcessTimeout <= 0 {
		c.Ingest.ProcessTimeout = Duration(DefaultProcessTimeout)
	}

	if c.PDF.MaxBytes <= 0 {
		c.PDF.MaxBytes = c.Ingest.MaxUploadBytes
	}
	if c.PDF.MaxPages <= 0 {
		c.PDF.MaxPages = DefaultPDFMaxPages
	}

	if c.Text.PageChars <= 0 {
		c.Text.PageChars = DefaultPageChars
	}
	if c.Text.CSVRowsPerPage <= 0 {
		c.Text.CSVRowsPerPage = DefaultCSVRowsPerPage
	}

	if c.Chunker.Size <= 0 {
		c.Chunker.Size = DefaultChunkSize
	}
	if c.Chunker.Overlap == nil || *c.Chunker.Overlap < 0 {
		overlap := DefaultChunkOverlap
		c.Chunker.Overlap = &overlap
	}

	if c.Lexical.Backend == "" {
		c.Lexical.Backend = domain.LexicalBackendSQLite
	}
	if c.Lexical.MaxKeywords <= 0 {
		c.Lexical.MaxKeywords = DefaultMaxKeywords
	}
	if c.Lexical.BlevePath == "" {
		c.Lexical.BlevePath = filepath.Join(c.Storage.DataDir, "bleve")
	}

	if c.Vector.Backend == "" {
		if c.Embedding.Provider.IsValid() {
			c.Vector.Backend = domain.VectorBackendChromem
		} else {
			c.Vector.Backend = domain.VectorBackendNone
		}
	}
	if c.Vector.TopK <= 0 {
		c.Vector.TopK = DefaultVectorTopK
	}
	if c.Vector.Concurrency <= 0 {
		c.Vector.Concurrency = DefaultVectorWorkers
	}
	if c.Vector.ChromemPath == "" {
		c.Vector.ChromemPath = filepath.Join(c.Storage.DataDir, "vectors")
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = DefaultCollection
	}
	if c.Vector.Milvus.Address == "" {
		c.Vector.Milvus.Address = DefaultMilvusAddress
	}

	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = Duration(DefaultEmbeddingTimeout)
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// resolvePath returns value, or baseDir/fallback when empty. Relative
// values are anchored at baseDir and a leading ~ expands to the home dir.
func resolvePath(baseDir, value, fallback string) string {
	if value == "" {
		return filepath.Join(baseDir, fallback)
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}

// resolveSecrets fills secrets from the environment variables named in
// *_env fields. A variable that is set overrides the literal value.
func (c *Config) resolveSecrets() {
	fromEnv := func(dst *string, name string) {
		if name == "" {
			return
		}
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	fromEnv(&c.Embedding.APIKey, c.Embedding.APIKeyEnv)
	fromEnv(&c.Blob.Minio.AccessKey, c.Blob.Minio.AccessKeyEnv)
	fromEnv(&c.Blob.Minio.SecretKey, c.Blob.Minio.SecretKeyEnv)
	fromEnv(&c.Vector.Milvus.Password, c.Vector.Milvus.PasswordEnv)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !c.Blob.Backend.IsValid() {
		return fmt.Errorf("%w: blob.backend %q", domain.ErrInvalidInput, c.Blob.Backend)
	}
	if c.Blob.Backend == domain.BlobBackendMinio && c.Blob.Minio.Endpoint == "" {
		return fmt.Errorf("%w: blob.minio.endpoint is required", domain.ErrInvalidInput)
	}
	if !c.Lexical.Backend.IsValid() {
		return fmt.Errorf("%w: lexical.backend %q", domain.ErrInvalidInput, c.Lexical.Backend)
	}
	if !c.Vector.Backend.IsValid() {
		return fmt.Errorf("%w: vector.backend %q", domain.ErrInvalidInput, c.Vector.Backend)
	}
	if c.Embedding.Provider != domain.AIProviderNone && !c.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding.provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	if c.Vector.Backend != domain.VectorBackendNone && c.Embedding.Provider == domain.AIProviderNone {
		return fmt.Errorf("%w: vector.backend %q requires embedding.provider", domain.ErrInvalidInput, c.Vector.Backend)
	}
	if c.Vector.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: vector.requests_per_second must not be negative", domain.ErrInvalidInput)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", domain.ErrInvalidInput, c.Log.Level)
	}
	return nil
}
