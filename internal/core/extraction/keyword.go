package extraction

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/agenthands/quarry/internal/core/identity"
	"github.com/agenthands/quarry/internal/core/model"
)

type keywordEntry struct {
	entityType  string
	description string
}

// Built-in vocabulary for the LLM-free backend. Keys are already normalized.
var defaultKeywords = map[string]keywordEntry{
	"docker":     {"TECHNOLOGY", "Containerization platform"},
	"kubernetes": {"TECHNOLOGY", "Container orchestration"},
	"python":     {"TECHNOLOGY", "Programming language"},
	"go":         {"TECHNOLOGY", "Programming language"},
	"api":        {"CONCEPT", "Application Programming Interface"},
	"database":   {"CONCEPT", "Data storage system"},
	"redis":      {"TECHNOLOGY", "In-memory data store"},
	"postgresql": {"TECHNOLOGY", "Relational database"},
	"falkordb":   {"TECHNOLOGY", "Graph database"},
	"graphiti":   {"TECHNOLOGY", "Knowledge graph framework"},
	"bookstack":  {"TECHNOLOGY", "Documentation platform"},
	"ollama":     {"TECHNOLOGY", "Local LLM runtime"},
}

// KeywordExtractor matches a fixed vocabulary against document text and turns
// source tags into TAG entities. Deterministic and offline; it never fails.
type KeywordExtractor struct {
	keywords map[string]keywordEntry
}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{keywords: defaultKeywords}
}

// NewKeywordExtractorWithVocabulary builds an extractor over a caller-supplied
// table of name -> (type, description).
func NewKeywordExtractorWithVocabulary(vocab map[string][2]string) *KeywordExtractor {
	kw := make(map[string]keywordEntry, len(vocab))
	for name, v := range vocab {
		kw[identity.NormalizeName(name)] = keywordEntry{entityType: v[0], description: v[1]}
	}
	return &KeywordExtractor{keywords: kw}
}

func (e *KeywordExtractor) Extract(ctx context.Context, content string, tags []string) (*model.DocumentAnalysis, error) {
	analysis := &model.DocumentAnalysis{}

	// Whole-word matching: "go" must not fire on "google" or "algorithm".
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	// Stable iteration order keeps output deterministic for identical input.
	names := make([]string, 0, len(e.keywords))
	for name := range e.keywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if words[name] {
			entry := e.keywords[name]
			analysis.Entities = append(analysis.Entities, model.EntityCandidate{
				Name:        name,
				Type:        entry.entityType,
				Description: entry.description,
			})
		}
	}

	for _, tag := range tags {
		name := identity.NormalizeName(tag)
		if name == "" {
			continue
		}
		analysis.Entities = append(analysis.Entities, model.EntityCandidate{
			Name:        name,
			Type:        "TAG",
			Description: "Source tag",
		})
	}

	return analysis, nil
}
