package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[graph]
backend = "falkordb"
address = "redis://falkordb.internal:6379"
name = "docs_graph"

[llm]
provider = "ollama"
model = "gemma3:12b"
embedding_model = "qwen3-embedding:4b"
embedding_dim = 2560
base_url = "http://localhost:11434"

[extractor]
backend = "keyword"

[ingest]
namespace = "bookstack-episodic"
export_dir = "/data/export"
refresh_interval = "90s"

[bookstack]
base_url = "https://wiki.example.com"
token_id = "id123"
token_secret = "secret456"
rate_limit = 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "falkordb", cfg.Graph.Backend)
	assert.Equal(t, "redis://falkordb.internal:6379", cfg.Graph.Address)
	assert.Equal(t, "docs_graph", cfg.Graph.Name)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 2560, cfg.LLM.EmbeddingDim)
	assert.Equal(t, 90*time.Second, cfg.Ingest.RefreshInterval.Duration)
	assert.Equal(t, 2.5, cfg.BookStack.RateLimit)

	// Omitted values fall back to defaults.
	assert.Equal(t, 4096, cfg.Extractor.CacheCapacity)
	assert.Equal(t, "bookstack", cfg.Ingest.Source)
	assert.Equal(t, 3, cfg.BookStack.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[graph\nbackend"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "falkordb", cfg.Graph.Backend)
	assert.Equal(t, "redis://localhost:6379", cfg.Graph.Address)
	assert.Equal(t, "graphiti_migration", cfg.Graph.Name)
	assert.Equal(t, "keyword", cfg.Extractor.Backend)
	assert.Equal(t, "bookstack-episodic", cfg.Ingest.Namespace)
	assert.Equal(t, 2*time.Minute, cfg.Ingest.RefreshInterval.Duration)
	assert.Equal(t, 5.0, cfg.BookStack.RateLimit)
}

func TestDuration_RejectsBadValue(t *testing.T) {
	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("soon")))
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, d.Duration)
}
