package driver

import (
	"context"
)

// Record is one result row keyed by the query's RETURN columns.
type Record struct {
	Keys   []string
	Values []interface{}
}

// Get returns the value for a column name.
func (r *Record) Get(key string) (interface{}, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Counters carries the write statistics a graph store reports for one
// statement. The ingest path uses NodesCreated to distinguish created from
// updated entities.
type Counters struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
	LabelsAdded          int
}

type QueryResult struct {
	Records  []*Record
	Counters Counters
}

// GraphDriver abstracts the Cypher endpoint. Every statement is independently
// transactional; the MERGE-by-derived-key statements this service issues stay
// correct without cross-statement transactions.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*QueryResult, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
