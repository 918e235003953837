package model

// MentionsEdge links an Episodic node to an Entity it references.
// The UUID is derived from (episodic_uuid, entity_uuid), so repeated
// extraction passes merge onto the same edge instead of creating duplicates.
type MentionsEdge struct {
	UUID       string  `json:"uuid"`
	SourceUUID string  `json:"source_node_uuid"` // Episodic
	TargetUUID string  `json:"target_node_uuid"` // Entity
	GroupID    string  `json:"group_id"`
	CreatedAt  string  `json:"created_at"`
	Confidence float64 `json:"confidence,omitempty"`
	Context    string  `json:"context,omitempty"`
}

// RelatesToEdge records a semantic relationship between two entities. The
// UUID is derived from (subject_uuid, predicate, object_uuid), so the same
// fact re-extracted from any document merges onto one edge.
type RelatesToEdge struct {
	UUID          string    `json:"uuid"`
	SourceUUID    string    `json:"source_node_uuid"` // subject Entity
	TargetUUID    string    `json:"target_node_uuid"` // object Entity
	GroupID       string    `json:"group_id"`
	Predicate     string    `json:"predicate"` // uses, part_of, depends_on, ...
	Fact          string    `json:"fact"`
	CreatedAt     string    `json:"created_at"`
	Confidence    float64   `json:"confidence,omitempty"`
	Episodes      []string  `json:"episodes,omitempty"` // supporting Episodic UUIDs
	FactEmbedding []float32 `json:"fact_embedding,omitempty"`
}
