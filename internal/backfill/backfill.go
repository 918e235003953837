// Package backfill repairs historical data defects in an existing graph.
// Every pass is idempotent: running it against already-correct data updates
// nothing, so operators can re-run until the reported update count converges
// to zero.
package backfill

import (
	"context"
	"fmt"
	"log"

	"github.com/agenthands/quarry/internal/core/common"
	"github.com/agenthands/quarry/internal/driver"
)

// Report counts the work one remediation pass examined and performed.
type Report struct {
	NodesExamined      int `json:"nodes_examined"`
	NodesUpdated       int `json:"nodes_updated"`
	RelsExamined       int `json:"relationships_examined"`
	RelsUpdated        int `json:"relationships_updated"`
	SkippedUnparseable int `json:"skipped_unparseable"`
}

// Timestamps normalizes every epoch-valued created_at/valid_at property to an
// RFC3339 string. Older writers stored raw millisecond epochs, which break
// downstream consumers that parse these fields as date-times. With dryRun set
// the pass only reports what it would change.
func Timestamps(ctx context.Context, d driver.GraphDriver, dryRun bool) (*Report, error) {
	report := &Report{}

	nodes, err := d.ExecuteQuery(ctx, driver.ListNodeTimestampsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list node timestamps: %w", err)
	}

	for _, rec := range nodes.Records {
		report.NodesExamined++

		id, ok := recordID(rec)
		if !ok {
			continue
		}

		createdAt, _ := rec.Get("created_at")
		validAt, _ := rec.Get("valid_at")

		newCreated, changedCreated, err := common.NormalizeTimestamp(createdAt)
		if err != nil {
			report.SkippedUnparseable++
			log.Printf("Warning: node %v has unparseable created_at: %v", id, err)
			continue
		}
		newValid, changedValid, err := common.NormalizeTimestamp(validAt)
		if err != nil {
			report.SkippedUnparseable++
			log.Printf("Warning: node %v has unparseable valid_at: %v", id, err)
			continue
		}

		if !changedCreated && !changedValid {
			continue
		}
		report.NodesUpdated++
		if dryRun {
			continue
		}

		switch {
		case changedCreated && changedValid:
			_, err = d.ExecuteQuery(ctx, driver.UpdateNodeTimestampsQuery, map[string]interface{}{
				"id": id, "created_at": newCreated, "valid_at": newValid,
			})
		case changedCreated:
			_, err = d.ExecuteQuery(ctx, driver.UpdateNodeCreatedAtQuery, map[string]interface{}{
				"id": id, "created_at": newCreated,
			})
		default:
			_, err = d.ExecuteQuery(ctx, driver.UpdateNodeValidAtQuery, map[string]interface{}{
				"id": id, "valid_at": newValid,
			})
		}
		if err != nil {
			return report, fmt.Errorf("failed to update node %v: %w", id, err)
		}
	}

	rels, err := d.ExecuteQuery(ctx, driver.ListRelationshipTimestampsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationship timestamps: %w", err)
	}

	for _, rec := range rels.Records {
		report.RelsExamined++

		id, ok := recordID(rec)
		if !ok {
			continue
		}

		fields, bad := changedFields(rec, "created_at", "valid_at", "observed_at")
		if bad != "" {
			report.SkippedUnparseable++
			log.Printf("Warning: relationship %v has unparseable %s", id, bad)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		report.RelsUpdated++
		if dryRun {
			continue
		}

		names := make([]string, 0, len(fields))
		params := map[string]interface{}{"id": id}
		for _, f := range fields {
			names = append(names, f.name)
			params[f.name] = f.value
		}
		_, err = d.ExecuteQuery(ctx, driver.UpdateRelationshipTimestampsQuery(names), params)
		if err != nil {
			return report, fmt.Errorf("failed to update relationship %v: %w", id, err)
		}
	}

	return report, nil
}

type changedField struct {
	name  string
	value string
}

// changedFields normalizes the named temporal properties of one record and
// returns the ones that need rewriting, in input order. The second return
// value names the first unparseable property, if any.
func changedFields(rec *driver.Record, names ...string) ([]changedField, string) {
	var out []changedField
	for _, name := range names {
		v, _ := rec.Get(name)
		normalized, changed, err := common.NormalizeTimestamp(v)
		if err != nil {
			return nil, name
		}
		if changed {
			out = append(out, changedField{name: name, value: normalized})
		}
	}
	return out, ""
}

func recordID(rec *driver.Record) (int64, bool) {
	v, ok := rec.Get("id")
	if !ok {
		return 0, false
	}
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		return int64(id), true
	default:
		return 0, false
	}
}
