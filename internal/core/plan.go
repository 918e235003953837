package core

import (
	"context"
	"fmt"

	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
)

type OpKind int

const (
	OpEpisodic OpKind = iota
	OpEpisodicAttributes
	OpEntity
	OpMentions
	OpRelatesTo
)

// Operation is one idempotent graph statement. Operations never depend on
// being part of a transaction: each is safe to replay alone.
type Operation struct {
	Kind   OpKind
	Query  string
	Params map[string]interface{}
}

// Plan is the ordered operation sequence MapDocument derives from one source
// record. Applying the same plan twice yields the same final graph state as
// applying it once.
type Plan struct {
	EpisodicUUID string
	GroupID      string
	Ops          []Operation
}

// Apply executes the plan's operations in order as independent statements and
// aggregates write counters. A failed entity or edge statement is logged into
// the returned error but does not stop the remaining operations; the base
// document upsert failing does, since everything after it references the
// episodic node.
func (p *Plan) Apply(ctx context.Context, d driver.GraphDriver) (model.RunStats, error) {
	var stats model.RunStats
	var firstErr error

	for _, op := range p.Ops {
		result, err := d.ExecuteQuery(ctx, op.Query, op.Params)
		if err != nil {
			if op.Kind == OpEpisodic {
				return stats, fmt.Errorf("failed to upsert episodic node %s: %w", p.EpisodicUUID, err)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		switch op.Kind {
		case OpEntity:
			if result.Counters.NodesCreated > 0 {
				stats.EntitiesCreated++
			} else {
				stats.EntitiesUpdated++
			}
		case OpMentions, OpRelatesTo:
			stats.EdgesCreated += result.Counters.RelationshipsCreated
		}
	}

	stats.Processed = 1
	return stats, firstErr
}
