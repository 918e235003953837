package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/quarry/internal/core/common"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/llm"
)

const defaultAnalysisPrompt = `You are an expert knowledge graph entity extractor. Analyze this documentation and extract:

1. ENTITIES: Extract important entities and classify them:
   - TECHNOLOGY: Software, frameworks, tools, programming languages, databases
   - CONCEPT: Abstract ideas, methodologies, processes, principles
   - PERSON: Individual people, authors, developers
   - ORGANIZATION: Companies, institutions, teams
   - LOCATION: Places, regions, countries
   - TAG: Labels or categories

2. RELATIONSHIPS: Identify meaningful relationships between entities:
   - Use predicates like: uses, implements, part_of, depends_on, created_by, relates_to
   - Provide supporting facts from the text

3. SUMMARY: Create a clear title and brief 2-3 sentence summary.

Focus on technical and domain-specific entities. Normalize entity names to lowercase.

Respond with one JSON object:
{"entities": [{"name": "...", "type": "...", "description": "..."}],
 "relationships": [{"subject": "...", "predicate": "...", "object": "...", "fact": "..."}],
 "summary": {"title": "...", "summary": "..."}}

<DOCUMENT>
%s
</DOCUMENT>`

// LLMExtractor asks a chat model for a full DocumentAnalysis. Output carries
// no determinism or uniqueness guarantee; the mapper deduplicates.
type LLMExtractor struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewLLMExtractor(llmClient llm.LLMClient, prompt string) *LLMExtractor {
	if prompt == "" {
		prompt = defaultAnalysisPrompt
	}
	return &LLMExtractor{
		LLM:    llmClient,
		Prompt: prompt,
	}
}

func (e *LLMExtractor) Extract(ctx context.Context, content string, tags []string) (*model.DocumentAnalysis, error) {
	doc := content
	if len(tags) > 0 {
		doc = fmt.Sprintf("%s\n\nTags: %s", content, strings.Join(tags, ", "))
	}

	response, err := e.LLM.Generate(ctx, fmt.Sprintf(e.Prompt, doc))
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis: %w", err)
	}

	analysis, err := common.ParseJSON[model.DocumentAnalysis](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	return &analysis, nil
}
