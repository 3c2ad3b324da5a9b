package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/config"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, maskAPIKey(tt.key))
		})
	}
}

func TestRedacted_MasksSecretsWithoutMutating(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.APIKey = "sk-live-0123456789"
	cfg.Blob.Minio.AccessKey = "AKIAEXAMPLEKEY"
	cfg.Blob.Minio.SecretKey = "wJalrXUtnFEMIK7MDENG"
	cfg.Vector.Milvus.Password = "milvus-password"

	r := redacted(cfg)

	assert.Equal(t, "sk-l...6789", r.Embedding.APIKey)
	assert.Equal(t, "AKIA...EKEY", r.Blob.Minio.AccessKey)
	assert.Equal(t, "wJal...DENG", r.Blob.Minio.SecretKey)
	assert.Equal(t, "milv...word", r.Vector.Milvus.Password)
	assert.Equal(t, "sk-live-0123456789", cfg.Embedding.APIKey)
}

func TestConfigShowCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	appConfig.Embedding.Provider = domain.AIProviderOpenAI
	appConfig.Embedding.APIKey = "sk-live-0123456789"

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Configuration")
	assert.Contains(t, out, "[Storage]")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-l...6789")
	assert.NotContains(t, out, "sk-live-0123456789")
}

func TestConfigCmd_DefaultsToShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "[Indexes]")
}

func TestConfigShowCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	appConfig.Embedding.APIKey = "sk-live-0123456789"

	out, err := execute(t, "config", "show", "--json")

	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "sk-l...6789", cfg.Embedding.APIKey)
}

func TestConfigInitCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed, err := config.Parse(data, filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Chunker.Size, parsed.Chunker.Size)

	resetFlags(rootCmd)
	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	resetFlags(rootCmd)
	_, err = execute(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigCheckCmd_NoProvider(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "check")

	require.NoError(t, err)
	assert.Contains(t, out, "No embedding provider configured")
}
