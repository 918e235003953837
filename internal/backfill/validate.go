package backfill

import (
	"context"
	"fmt"

	"github.com/agenthands/quarry/internal/driver"
)

// ComplianceReport counts nodes missing properties the schema requires.
// Non-zero counts point at data written by a non-conformant writer.
type ComplianceReport struct {
	EpisodicMissingFields int `json:"episodic_missing_fields"`
	EntityMissingFields   int `json:"entity_missing_fields"`
}

func (r *ComplianceReport) Clean() bool {
	return r.EpisodicMissingFields == 0 && r.EntityMissingFields == 0
}

// Validate checks the graph for schema-conformance violations.
func Validate(ctx context.Context, d driver.GraphDriver) (*ComplianceReport, error) {
	report := &ComplianceReport{}

	n, err := countQuery(ctx, d, driver.CountEpisodicMissingFieldsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to check episodic nodes: %w", err)
	}
	report.EpisodicMissingFields = n

	n, err = countQuery(ctx, d, driver.CountEntityMissingFieldsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to check entity nodes: %w", err)
	}
	report.EntityMissingFields = n

	return report, nil
}

func countQuery(ctx context.Context, d driver.GraphDriver, query string) (int, error) {
	result, err := d.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	v, _ := result.Records[0].Get("count")
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, nil
}
