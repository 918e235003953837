package model

// Reserved property names on nodes. Custom source metadata must not collide
// with these.
var ReservedKeys = map[string]bool{
	"uuid":               true,
	"name":               true,
	"group_id":           true,
	"created_at":         true,
	"valid_at":           true,
	"content":            true,
	"source":             true,
	"source_description": true,
	"summary":            true,
	"entity_type":        true,
	"labels":             true,
	"name_embedding":     true,
}

// EpisodicNode represents one ingested document or event. Its UUID is a
// deterministic function of (source namespace, native id), so re-ingesting
// the same source record always lands on the same node.
type EpisodicNode struct {
	UUID              string                 `json:"uuid"`
	Name              string                 `json:"name"`
	GroupID           string                 `json:"group_id"`
	CreatedAt         string                 `json:"created_at"` // RFC3339, never epoch
	ValidAt           string                 `json:"valid_at"`   // source last-modified time
	Content           string                 `json:"content"`
	Source            string                 `json:"source"`
	SourceDescription string                 `json:"source_description"`
	Attributes        map[string]interface{} `json:"attributes,omitempty"`
}

// EntityNode represents a persistent, deduplicated concept. Identity key is
// (normalized name, group_id); the UUID is derived from the same pair.
type EntityNode struct {
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"` // normalized: lowercase, trimmed
	GroupID       string    `json:"group_id"`
	CreatedAt     string    `json:"created_at"`
	Summary       string    `json:"summary,omitempty"`
	EntityType    string    `json:"entity_type,omitempty"`
	Labels        []string  `json:"labels,omitempty"`
	NameEmbedding []float32 `json:"name_embedding,omitempty"`
}
