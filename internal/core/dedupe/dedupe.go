// Package dedupe collapses extractor output within a single document before
// it reaches the graph. Extractor backends guarantee nothing about
// uniqueness; without this pass a chatty LLM response produces one upsert per
// repeated mention.
package dedupe

import (
	"fmt"

	"github.com/agenthands/quarry/internal/core/identity"
	"github.com/agenthands/quarry/internal/core/model"
)

// Entities groups candidates by normalized name and keeps exactly one per
// group: the one with the longest description. On an exact length tie the
// first candidate in input order wins, which keeps the pass deterministic for
// identical extractor output. Output order follows first appearance of each
// name.
func Entities(candidates []model.EntityCandidate) []model.EntityCandidate {
	byName := make(map[string]int)
	var kept []model.EntityCandidate

	for _, c := range candidates {
		name := identity.NormalizeName(c.Name)
		if name == "" {
			continue
		}
		c.Name = name

		idx, seen := byName[name]
		if !seen {
			byName[name] = len(kept)
			kept = append(kept, c)
			continue
		}
		if len(c.Description) > len(kept[idx].Description) {
			kept[idx] = c
		}
	}

	return kept
}

// Relationships applies the same keep-longest policy to relationship
// candidates, keyed by (normalized subject, predicate, normalized object)
// with the fact string as the tie-break field. Candidates missing a subject
// or object are dropped.
func Relationships(candidates []model.RelationshipCandidate) []model.RelationshipCandidate {
	byKey := make(map[string]int)
	var kept []model.RelationshipCandidate

	for _, c := range candidates {
		c.Subject = identity.NormalizeName(c.Subject)
		c.Object = identity.NormalizeName(c.Object)
		if c.Subject == "" || c.Object == "" {
			continue
		}
		if c.Predicate == "" {
			c.Predicate = "relates_to"
		}

		key := fmt.Sprintf("%s|%s|%s", c.Subject, c.Predicate, c.Object)
		idx, seen := byKey[key]
		if !seen {
			byKey[key] = len(kept)
			kept = append(kept, c)
			continue
		}
		if len(c.Fact) > len(kept[idx].Fact) {
			kept[idx] = c
		}
	}

	return kept
}
