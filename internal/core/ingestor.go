// Package core maps normalized source records onto the shared knowledge
// graph schema: deterministic identity, canonical properties, idempotent
// MERGE operations.
package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"

	"github.com/agenthands/quarry/internal/core/common"
	"github.com/agenthands/quarry/internal/core/dedupe"
	"github.com/agenthands/quarry/internal/core/extraction"
	"github.com/agenthands/quarry/internal/core/identity"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
	"github.com/agenthands/quarry/internal/llm"
)

// Names longer than this are truncated on the Episodic node; the full title
// stays in the content.
const maxNodeNameLen = 100

var attributeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Ingestor owns one ingestion pipeline: derive identity for a source record,
// enrich it through the extractor, and emit idempotent upserts. The extractor
// and embedder are optional collaborators; either failing degrades the run to
// document-only ingestion instead of blocking it.
type Ingestor struct {
	Driver     driver.GraphDriver
	Extractor  extraction.Extractor
	Embedder   llm.EmbedderClient
	Namespace  string // episodic uuid namespace, e.g. "bookstack-episodic"
	Source     string // source tag written on Episodic nodes
	SourceDesc string

	// Now is injectable for tests; defaults to common.NowISO.
	Now func() string
}

func NewIngestor(d driver.GraphDriver, ex extraction.Extractor, em llm.EmbedderClient, namespace, source, sourceDesc string) *Ingestor {
	return &Ingestor{
		Driver:     d,
		Extractor:  ex,
		Embedder:   em,
		Namespace:  namespace,
		Source:     source,
		SourceDesc: sourceDesc,
		Now:        common.NowISO,
	}
}

// Ingest maps one record and applies the resulting plan. The group_id is
// derived from the record's collection name.
func (g *Ingestor) Ingest(ctx context.Context, record model.SourceRecord) (model.RunStats, error) {
	groupID := identity.Partition(record.Collection)

	plan, err := g.MapDocument(ctx, record, groupID)
	if err != nil {
		return model.RunStats{Skipped: 1}, err
	}

	return plan.Apply(ctx, g.Driver)
}

// MapDocument transforms one normalized source record into an ordered
// sequence of idempotent graph operations. A malformed record (empty native
// id, unparseable timestamp) is rejected here, before anything touches the
// store.
func (g *Ingestor) MapDocument(ctx context.Context, record model.SourceRecord, groupID string) (*Plan, error) {
	episodicUUID, err := identity.EpisodicUUID(g.Namespace, record.NativeID)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", record.Title, err)
	}

	now := g.Now()
	validAt := now
	if record.UpdatedAt != "" {
		normalized, _, err := common.NormalizeTimestamp(record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad updated_at: %w", record.NativeID, err)
		}
		validAt = normalized
	}

	plan := &Plan{EpisodicUUID: episodicUUID, GroupID: groupID}

	source := record.Source
	if source == "" {
		source = g.Source
	}
	sourceDesc := record.SourceDesc
	if sourceDesc == "" {
		sourceDesc = g.SourceDesc
	}

	plan.Ops = append(plan.Ops, Operation{
		Kind:  OpEpisodic,
		Query: driver.SaveEpisodicNodeQuery,
		Params: map[string]interface{}{
			"uuid":               episodicUUID,
			"name":               truncate(record.Title, maxNodeNameLen),
			"group_id":           groupID,
			"created_at":         now,
			"valid_at":           validAt,
			"content":            record.Body,
			"source":             source,
			"source_description": sourceDesc,
		},
	})

	if op, ok := g.attributeOp(episodicUUID, record.Metadata); ok {
		plan.Ops = append(plan.Ops, op)
	}

	if g.Extractor == nil {
		return plan, nil
	}

	analysis, err := g.Extractor.Extract(ctx, record.Body, record.Tags)
	if err != nil {
		// Soft failure: the document still lands, enrichment is skipped.
		log.Printf("Warning: extraction failed for %s, ingesting document only: %v", record.NativeID, err)
		return plan, nil
	}

	entities := dedupe.Entities(analysis.Entities)
	relationships := dedupe.Relationships(analysis.Relationships)

	for _, ent := range entities {
		entityUUID := identity.EntityUUID(ent.Name, groupID)

		labels := []string{"Entity"}
		if ent.Type != "" {
			labels = append(labels, ent.Type)
		}

		plan.Ops = append(plan.Ops, Operation{
			Kind:  OpEntity,
			Query: driver.SaveEntityNodeQuery,
			Params: map[string]interface{}{
				"uuid":           entityUUID,
				"name":           ent.Name,
				"group_id":       groupID,
				"created_at":     now,
				"summary":        ent.Description,
				"entity_type":    ent.Type,
				"labels":         labels,
				"name_embedding": g.embed(ctx, ent.Name),
			},
		})

		plan.Ops = append(plan.Ops, Operation{
			Kind:  OpMentions,
			Query: driver.SaveMentionsEdgeQuery,
			Params: map[string]interface{}{
				"uuid":        identity.EdgeUUID(identity.EdgeMentions, episodicUUID, entityUUID, ""),
				"source_uuid": episodicUUID,
				"target_uuid": entityUUID,
				"group_id":    groupID,
				"created_at":  now,
			},
		})
	}

	for _, rel := range relationships {
		subjectUUID := identity.EntityUUID(rel.Subject, groupID)
		objectUUID := identity.EntityUUID(rel.Object, groupID)

		plan.Ops = append(plan.Ops, Operation{
			Kind:  OpRelatesTo,
			Query: driver.SaveRelatesToEdgeQuery,
			Params: map[string]interface{}{
				"uuid":           identity.EdgeUUID(identity.EdgeRelatesTo, subjectUUID, objectUUID, rel.Predicate),
				"source_uuid":    subjectUUID,
				"target_uuid":    objectUUID,
				"group_id":       groupID,
				"predicate":      rel.Predicate,
				"fact":           rel.Fact,
				"confidence":     rel.Confidence,
				"created_at":     now,
				"episode_uuid":   episodicUUID,
				"fact_embedding": g.embed(ctx, rel.Fact),
			},
		})
	}

	return plan, nil
}

// attributeOp builds the SET statement for custom source metadata. Keys must
// be lowercase identifiers and must not shadow schema properties; offenders
// are dropped with a warning rather than failing the record.
func (g *Ingestor) attributeOp(episodicUUID string, metadata map[string]interface{}) (Operation, bool) {
	if len(metadata) == 0 {
		return Operation{}, false
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if model.ReservedKeys[k] {
			log.Printf("Warning: dropping custom field %q: reserved property name", k)
			continue
		}
		if !attributeKeyPattern.MatchString(k) {
			log.Printf("Warning: dropping custom field %q: invalid property name", k)
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return Operation{}, false
	}
	sort.Strings(keys)

	query := "MATCH (e:Episodic {uuid: $uuid})\nSET "
	params := map[string]interface{}{"uuid": episodicUUID}
	for i, k := range keys {
		if i > 0 {
			query += ",\n    "
		}
		query += fmt.Sprintf("e.%s = $attr_%s", k, k)
		params["attr_"+k] = metadata[k]
	}
	query += "\nRETURN e.uuid AS uuid"

	return Operation{Kind: OpEpisodicAttributes, Query: query, Params: params}, true
}

// embed returns a vector for text, or nil when no embedder is configured or
// the call fails. nil serializes as an explicit null, never a zero-length
// placeholder.
func (g *Ingestor) embed(ctx context.Context, text string) interface{} {
	if g.Embedder == nil || text == "" {
		return nil
	}
	vec, err := g.Embedder.Embed(ctx, text)
	if err != nil || len(vec) == 0 {
		return nil
	}
	return vec
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
