package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type GraphConfig struct {
	// Backend selects the graph store driver: "falkordb" (Cypher over the
	// Redis protocol) or "bolt" (Memgraph/Neo4j).
	Backend  string `toml:"backend"`
	Address  string `toml:"address"` // redis://host:port or bolt://host:port
	Name     string `toml:"name"`    // FalkorDB graph key
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"` // openai, gemini, claude, ollama
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	// EmbeddingDim must match across every writer to a given group_id.
	EmbeddingDim int    `toml:"embedding_dim"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
}

type ExtractorConfig struct {
	// Backend selects the entity extractor: "keyword" or "llm".
	Backend       string `toml:"backend"`
	Prompt        string `toml:"prompt"`
	CacheCapacity int    `toml:"cache_capacity"` // embedding cache entries
}

type IngestConfig struct {
	Namespace       string   `toml:"namespace"`        // e.g. "bookstack-episodic"
	Source          string   `toml:"source"`           // e.g. "bookstack"
	SourceDesc      string   `toml:"source_desc"`      // source_description value
	ExportDir       string   `toml:"export_dir"`       // local JSON export directory
	RefreshInterval Duration `toml:"refresh_interval"` // connector poll period
}

// Duration accepts "90s" / "2m" style values in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type SourceAPIConfig struct {
	BaseURL     string  `toml:"base_url"`
	TokenID     string  `toml:"token_id"`
	TokenSecret string  `toml:"token_secret"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second
	MaxRetries  int     `toml:"max_retries"`
}

type Config struct {
	Graph     GraphConfig     `toml:"graph"`
	LLM       LLMConfig       `toml:"llm"`
	Extractor ExtractorConfig `toml:"extractor"`
	Ingest    IngestConfig    `toml:"ingest"`
	BookStack SourceAPIConfig `toml:"bookstack"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills in values a minimal config file may omit.
func (c *Config) ApplyDefaults() {
	if c.Graph.Backend == "" {
		c.Graph.Backend = "falkordb"
	}
	if c.Graph.Address == "" {
		c.Graph.Address = "redis://localhost:6379"
	}
	if c.Graph.Name == "" {
		c.Graph.Name = "graphiti_migration"
	}
	if c.Extractor.Backend == "" {
		c.Extractor.Backend = "keyword"
	}
	if c.Extractor.CacheCapacity == 0 {
		c.Extractor.CacheCapacity = 4096
	}
	if c.Ingest.Namespace == "" {
		c.Ingest.Namespace = "bookstack-episodic"
	}
	if c.Ingest.Source == "" {
		c.Ingest.Source = "bookstack"
	}
	if c.Ingest.SourceDesc == "" {
		c.Ingest.SourceDesc = "BookStack knowledge base content"
	}
	if c.Ingest.RefreshInterval.Duration == 0 {
		c.Ingest.RefreshInterval.Duration = 2 * time.Minute
	}
	if c.BookStack.RateLimit == 0 {
		c.BookStack.RateLimit = 5
	}
	if c.BookStack.MaxRetries == 0 {
		c.BookStack.MaxRetries = 3
	}
}
