package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// BoltDriver serves deployments running Memgraph or Neo4j instead of
// FalkorDB. Same statements, bolt transport.
type BoltDriver struct {
	driver neo4j.DriverWithContext
}

func NewBoltDriver(uri, username, password string) (*BoltDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Printf("Connected to graph store at %s", uri)
	return &BoltDriver{driver: driver}, nil
}

func (d *BoltDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *BoltDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*QueryResult, error) {
	eager, err := neo4j.ExecuteQuery(ctx, d.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	result := &QueryResult{}
	for _, rec := range eager.Records {
		result.Records = append(result.Records, &Record{Keys: rec.Keys, Values: rec.Values})
	}
	if eager.Summary != nil {
		counters := eager.Summary.Counters()
		result.Counters = Counters{
			NodesCreated:         counters.NodesCreated(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			PropertiesSet:        counters.PropertiesSet(),
			LabelsAdded:          counters.LabelsAdded(),
		}
	}
	return result, nil
}

func (d *BoltDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Episodic(uuid);",
		"CREATE INDEX ON :Episodic(group_id);",
		"CREATE INDEX ON :Entity(uuid);",
		"CREATE INDEX ON :Entity(name);",
		"CREATE INDEX ON :Entity(group_id);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Usually means the index already exists.
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}

	return nil
}
