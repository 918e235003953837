package model

// EntityCandidate is one entity proposed by an extractor backend. Candidates
// carry no uniqueness guarantee; document-level deduplication happens in the
// mapper.
type EntityCandidate struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // TECHNOLOGY, CONCEPT, PERSON, ORGANIZATION, LOCATION, TAG, ...
	Description string `json:"description"`
}

// RelationshipCandidate is one subject-predicate-object triple proposed by an
// extractor backend, with a supporting fact from the text.
type RelationshipCandidate struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Fact       string  `json:"fact"`
	Confidence float64 `json:"confidence,omitempty"`
}

// DocumentSummary is the title/summary pair an LLM extractor produces for a
// document.
type DocumentSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// DocumentAnalysis is the complete extractor output for one document.
type DocumentAnalysis struct {
	Entities      []EntityCandidate       `json:"entities"`
	Relationships []RelationshipCandidate `json:"relationships"`
	Summary       DocumentSummary         `json:"summary"`
}
