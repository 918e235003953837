package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/quarry/internal/backfill"
	"github.com/agenthands/quarry/internal/config"
	"github.com/agenthands/quarry/internal/connector"
	"github.com/agenthands/quarry/internal/core"
	"github.com/agenthands/quarry/internal/core/extraction"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
	"github.com/agenthands/quarry/internal/llm"
)

type Server struct {
	Ingestor *core.Ingestor
	Driver   driver.GraphDriver
	Config   *config.Config

	mu    sync.Mutex
	stats model.RunStats
}

// NewServer wires the full pipeline from configuration: graph driver, LLM
// clients, extractor backend, bounded embedding cache, ingestor.
func NewServer(cfg *config.Config) *Server {
	d, err := driver.New(cfg.Graph)
	if err != nil {
		log.Fatalf("Failed to connect to graph store: %v", err)
	}

	if err := d.BuildIndices(context.Background()); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}

	var llmClient llm.LLMClient
	var embedder llm.EmbedderClient
	if cfg.LLM.Provider != "" {
		llmClient, embedder, err = llm.NewClient(context.Background(), cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
	}

	extractor, err := extraction.New(cfg.Extractor, llmClient)
	if err != nil {
		log.Fatalf("Failed to initialize extractor: %v", err)
	}

	cache := llm.NewCachingEmbedder(embedder, cfg.Extractor.CacheCapacity)

	ing := core.NewIngestor(d, extractor, cache,
		cfg.Ingest.Namespace, cfg.Ingest.Source, cfg.Ingest.SourceDesc)

	return &Server{
		Ingestor: ing,
		Driver:   d,
		Config:   cfg,
	}
}

// LoadConfig resolves the config path from CONFIG_PATH or the default
// location and applies env-var overrides.
func LoadConfig() *config.Config {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults.", cfgPath, err)
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	if v := os.Getenv("FALKOR_ADDR"); v != "" {
		cfg.Graph.Address = v
	}
	if v := os.Getenv("FALKOR_GRAPH"); v != "" {
		cfg.Graph.Name = v
	}
	if v := os.Getenv("GRAPH_BACKEND"); v != "" {
		cfg.Graph.Backend = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("EXTRACTOR_BACKEND"); v != "" {
		cfg.Extractor.Backend = v
	}

	return cfg
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/documents", s.IngestDocument)
	r.POST("/ingest", s.RunExportDir)
	r.GET("/stats", s.Stats)
	r.POST("/backfill/timestamps", s.BackfillTimestamps)
	r.GET("/compliance", s.Compliance)

	return r
}

// IngestDocument accepts one normalized source record and upserts it.
func (s *Server) IngestDocument(c *gin.Context) {
	var record model.SourceRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	stats, err := s.Ingestor.Ingest(c.Request.Context(), record)
	s.addStats(stats)
	if err != nil {
		log.Printf("Failed to ingest document %s: %v", record.NativeID, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "stats": stats})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "stats": stats})
}

type runRequest struct {
	Dir    string `json:"dir"`
	Source string `json:"source"` // "bookstack" (default) or "huly"
}

// RunExportDir ingests every record in a local export directory.
func (s *Server) RunExportDir(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Dir == "" {
		req.Dir = s.Config.Ingest.ExportDir
	}
	if req.Dir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No export directory configured"})
		return
	}

	load := connector.LoadBookStackDir
	if req.Source == "huly" {
		load = connector.LoadHulyDir
	}

	records, err := load(req.Dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var total model.RunStats
	for _, rec := range records {
		stats, err := s.Ingestor.Ingest(c.Request.Context(), rec)
		if err != nil {
			log.Printf("Failed to ingest %s: %v", rec.NativeID, err)
		}
		total.Add(stats)
	}
	s.addStats(total)

	c.JSON(http.StatusOK, gin.H{"status": "success", "stats": total})
}

// Stats reports cumulative counters since process start.
func (s *Server) Stats(c *gin.Context) {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	c.JSON(http.StatusOK, stats)
}

func (s *Server) BackfillTimestamps(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	report, err := backfill.Timestamps(c.Request.Context(), s.Driver, dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dry_run": dryRun, "report": report})
}

func (s *Server) Compliance(c *gin.Context) {
	report, err := backfill.Validate(c.Request.Context(), s.Driver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clean": report.Clean(), "report": report})
}

func (s *Server) addStats(stats model.RunStats) {
	s.mu.Lock()
	s.stats.Add(stats)
	s.mu.Unlock()
}
