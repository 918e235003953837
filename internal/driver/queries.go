package driver

import (
	"fmt"
	"strings"
)

// The statement shapes below are the idempotency contract: MERGE on a derived
// key, ON CREATE SET for immutable fields, plain SET for fields every ingest
// refreshes. Running any of them N times with the same input is equivalent to
// running it once.
const (
	// Episodic nodes merge on their derived uuid. Only created_at is fixed at
	// first ingest; everything else tracks the current source record.
	SaveEpisodicNodeQuery = `
		MERGE (e:Episodic {uuid: $uuid})
		ON CREATE SET e.created_at = $created_at
		SET e.name = $name,
		    e.group_id = $group_id,
		    e.content = $content,
		    e.valid_at = $valid_at,
		    e.source = $source,
		    e.source_description = $source_description
		RETURN e.uuid AS uuid
	`

	// Entity nodes merge on their identity key (name, group_id), not the
	// uuid, so two writers racing on the same name collapse to one node. The
	// summary guard keeps the longest description across runs: a later, terser
	// extraction never clobbers a better stored one.
	SaveEntityNodeQuery = `
		MERGE (ent:Entity {name: $name, group_id: $group_id})
		ON CREATE SET ent.uuid = $uuid,
		              ent.created_at = $created_at,
		              ent.labels = $labels
		SET ent.entity_type = CASE
		        WHEN $entity_type <> '' THEN $entity_type
		        ELSE ent.entity_type END,
		    ent.summary = CASE
		        WHEN ent.summary IS NULL OR size(ent.summary) < size($summary) THEN $summary
		        ELSE ent.summary END,
		    ent.name_embedding = $name_embedding
		RETURN ent.uuid AS uuid
	`

	SaveMentionsEdgeQuery = `
		MATCH (ep:Episodic {uuid: $source_uuid})
		MATCH (ent:Entity {uuid: $target_uuid})
		MERGE (ep)-[r:MENTIONS {uuid: $uuid}]->(ent)
		ON CREATE SET r.group_id = $group_id,
		              r.created_at = $created_at
		RETURN r.uuid AS uuid
	`

	// The episodes list grows only when this episode is not already a
	// supporter, so re-ingestion cannot grow it without bound.
	SaveRelatesToEdgeQuery = `
		MATCH (s:Entity {uuid: $source_uuid})
		MATCH (o:Entity {uuid: $target_uuid})
		MERGE (s)-[r:RELATES_TO {uuid: $uuid}]->(o)
		ON CREATE SET r.group_id = $group_id,
		              r.created_at = $created_at
		SET r.predicate = $predicate,
		    r.confidence = $confidence,
		    r.fact = CASE
		        WHEN r.fact IS NULL OR size(r.fact) < size($fact) THEN $fact
		        ELSE r.fact END,
		    r.fact_embedding = $fact_embedding,
		    r.episodes = CASE
		        WHEN r.episodes IS NULL THEN [$episode_uuid]
		        WHEN $episode_uuid IN r.episodes THEN r.episodes
		        ELSE r.episodes + [$episode_uuid] END
		RETURN r.uuid AS uuid
	`

	GetEntityByNameQuery = `
		MATCH (ent:Entity {name: $name, group_id: $group_id})
		RETURN ent.uuid AS uuid, ent.name AS name, ent.summary AS summary, ent.entity_type AS entity_type
	`

	GetGroupEntitiesQuery = `
		MATCH (ent:Entity {group_id: $group_id})
		RETURN ent.uuid AS uuid, ent.name AS name, ent.summary AS summary
	`

	GetEpisodicByUUIDQuery = `
		MATCH (e:Episodic {uuid: $uuid})
		RETURN e.uuid AS uuid, e.name AS name, e.group_id AS group_id, e.content AS content,
		       e.created_at AS created_at, e.valid_at AS valid_at
	`

	// Backfill scans for the timestamp remediation pass.
	ListNodeTimestampsQuery = `
		MATCH (n)
		WHERE n.created_at IS NOT NULL OR n.valid_at IS NOT NULL
		RETURN id(n) AS id, n.uuid AS uuid, n.created_at AS created_at, n.valid_at AS valid_at
	`

	ListRelationshipTimestampsQuery = `
		MATCH ()-[r]->()
		WHERE r.created_at IS NOT NULL OR r.valid_at IS NOT NULL OR r.observed_at IS NOT NULL
		RETURN id(r) AS id, r.uuid AS uuid,
		       r.created_at AS created_at, r.valid_at AS valid_at, r.observed_at AS observed_at
	`

	UpdateNodeTimestampsQuery = `
		MATCH (n)
		WHERE id(n) = $id
		SET n.created_at = $created_at, n.valid_at = $valid_at
		RETURN n.uuid AS uuid
	`

	UpdateNodeCreatedAtQuery = `
		MATCH (n)
		WHERE id(n) = $id
		SET n.created_at = $created_at
		RETURN n.uuid AS uuid
	`

	UpdateNodeValidAtQuery = `
		MATCH (n)
		WHERE id(n) = $id
		SET n.valid_at = $valid_at
		RETURN n.uuid AS uuid
	`

	// Compliance checks: nodes missing fields the schema requires.
	CountEpisodicMissingFieldsQuery = `
		MATCH (e:Episodic)
		WHERE e.uuid IS NULL OR e.group_id IS NULL OR e.created_at IS NULL
		RETURN count(e) AS count
	`

	CountEntityMissingFieldsQuery = `
		MATCH (ent:Entity)
		WHERE ent.uuid IS NULL OR ent.name IS NULL OR ent.group_id IS NULL
		RETURN count(ent) AS count
	`
)

// UpdateRelationshipTimestampsQuery builds the targeted update statement for
// the given relationship temporal fields, each bound to a parameter of the
// same name. Fields are caller-supplied constants, never user input.
func UpdateRelationshipTimestampsQuery(fields []string) string {
	assignments := make([]string, len(fields))
	for i, f := range fields {
		assignments[i] = fmt.Sprintf("r.%s = $%s", f, f)
	}
	return fmt.Sprintf(`
		MATCH ()-[r]->()
		WHERE id(r) = $id
		SET %s
		RETURN r.uuid AS uuid
	`, strings.Join(assignments, ", "))
}
