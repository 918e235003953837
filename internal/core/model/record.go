package model

// SourceRecord is the normalized shape every connector produces. NativeID is
// the source system's own identifier for the document (page id, issue id);
// Collection maps to a group_id partition.
type SourceRecord struct {
	NativeID   string                 `json:"native_id"`
	Title      string                 `json:"title"`
	UpdatedAt  string                 `json:"updated_at"` // RFC3339
	Body       string                 `json:"body"`       // plain text, markup already stripped
	Tags       []string               `json:"tags,omitempty"`
	Collection string                 `json:"collection"`
	Source     string                 `json:"source"`             // e.g. "bookstack", "huly"
	SourceDesc string                 `json:"source_description"` // free-text origin tag
	Metadata   map[string]interface{} `json:"metadata,omitempty"` // extra scalar properties
}

// RunStats summarizes one ingestion run. Exposed so an operator can detect
// silent mass-failure without inspecting the graph store.
type RunStats struct {
	Processed       int `json:"processed"`
	Skipped         int `json:"skipped"`
	EntitiesCreated int `json:"entities_created"`
	EntitiesUpdated int `json:"entities_updated"`
	EdgesCreated    int `json:"edges_created"`
}

// Add accumulates another run's counters into s.
func (s *RunStats) Add(other RunStats) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.EntitiesCreated += other.EntitiesCreated
	s.EntitiesUpdated += other.EntitiesUpdated
	s.EdgesCreated += other.EdgesCreated
}
