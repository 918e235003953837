// Package extraction turns document text into entity and relationship
// candidates. Two backends exist: a deterministic keyword table for LLM-free
// deployments and an LLM-driven analyzer. Both are best-effort collaborators;
// the ingest path treats any extractor error as a soft failure and still
// writes the document itself.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/quarry/internal/config"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/llm"
)

type Extractor interface {
	Extract(ctx context.Context, content string, tags []string) (*model.DocumentAnalysis, error)
}

// New builds the extractor selected by cfg.Backend. The "llm" backend
// requires a chat client.
func New(cfg config.ExtractorConfig, llmClient llm.LLMClient) (Extractor, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "keyword":
		return NewKeywordExtractor(), nil
	case "llm":
		if llmClient == nil {
			return nil, fmt.Errorf("llm extractor backend requires an llm client")
		}
		return NewLLMExtractor(llmClient, cfg.Prompt), nil
	default:
		return nil, fmt.Errorf("unsupported extractor backend: %s", cfg.Backend)
	}
}
