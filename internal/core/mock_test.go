package core

import (
	"context"
	"strings"

	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
)

// fakeGraph is an in-memory stand-in for the graph store that honors the
// MERGE semantics of the save statements: nodes and edges are keyed the same
// way the real statements key them, so replaying a plan against it exercises
// the same idempotency the database would.
type fakeGraph struct {
	episodic map[string]map[string]interface{} // uuid -> props
	entities map[string]map[string]interface{} // name|group_id -> props
	mentions map[string]map[string]interface{} // edge uuid -> props
	relates  map[string]map[string]interface{} // edge uuid -> props

	queries []string
	failOn  map[string]error // query substring -> injected error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		episodic: make(map[string]map[string]interface{}),
		entities: make(map[string]map[string]interface{}),
		mentions: make(map[string]map[string]interface{}),
		relates:  make(map[string]map[string]interface{}),
		failOn:   make(map[string]error),
	}
}

func (f *fakeGraph) Close(ctx context.Context) error        { return nil }
func (f *fakeGraph) BuildIndices(ctx context.Context) error { return nil }

func (f *fakeGraph) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*driver.QueryResult, error) {
	f.queries = append(f.queries, query)
	for sub, err := range f.failOn {
		if strings.Contains(query, sub) {
			return nil, err
		}
	}

	switch query {
	case driver.SaveEpisodicNodeQuery:
		return f.saveEpisodic(params), nil
	case driver.SaveEntityNodeQuery:
		return f.saveEntity(params), nil
	case driver.SaveMentionsEdgeQuery:
		return f.saveMentions(params), nil
	case driver.SaveRelatesToEdgeQuery:
		return f.saveRelates(params), nil
	}

	// Attribute SET statements are generated per record; apply them to the
	// matched episodic node.
	if strings.HasPrefix(query, "MATCH (e:Episodic {uuid: $uuid})") {
		uuid, _ := params["uuid"].(string)
		node, ok := f.episodic[uuid]
		if ok {
			for k, v := range params {
				if strings.HasPrefix(k, "attr_") {
					node[strings.TrimPrefix(k, "attr_")] = v
				}
			}
		}
		return &driver.QueryResult{}, nil
	}

	return &driver.QueryResult{}, nil
}

func (f *fakeGraph) saveEpisodic(params map[string]interface{}) *driver.QueryResult {
	uuid := params["uuid"].(string)
	var c driver.Counters

	node, ok := f.episodic[uuid]
	if !ok {
		node = map[string]interface{}{
			"uuid":       uuid,
			"created_at": params["created_at"],
		}
		f.episodic[uuid] = node
		c.NodesCreated = 1
	}
	node["name"] = params["name"]
	node["group_id"] = params["group_id"]
	node["content"] = params["content"]
	node["valid_at"] = params["valid_at"]
	node["source"] = params["source"]
	node["source_description"] = params["source_description"]
	c.PropertiesSet = 6

	return &driver.QueryResult{Counters: c}
}

func (f *fakeGraph) saveEntity(params map[string]interface{}) *driver.QueryResult {
	key := params["name"].(string) + "|" + params["group_id"].(string)
	var c driver.Counters

	node, ok := f.entities[key]
	if !ok {
		node = map[string]interface{}{
			"uuid":       params["uuid"],
			"name":       params["name"],
			"group_id":   params["group_id"],
			"created_at": params["created_at"],
			"labels":     params["labels"],
		}
		f.entities[key] = node
		c.NodesCreated = 1
	}

	if t, _ := params["entity_type"].(string); t != "" {
		node["entity_type"] = t
	}
	summary, _ := params["summary"].(string)
	stored, _ := node["summary"].(string)
	if len(stored) < len(summary) {
		node["summary"] = summary
	}
	node["name_embedding"] = params["name_embedding"]

	return &driver.QueryResult{Counters: c}
}

func (f *fakeGraph) saveMentions(params map[string]interface{}) *driver.QueryResult {
	uuid := params["uuid"].(string)
	var c driver.Counters

	if _, ok := f.mentions[uuid]; !ok {
		f.mentions[uuid] = map[string]interface{}{
			"uuid":        uuid,
			"source_uuid": params["source_uuid"],
			"target_uuid": params["target_uuid"],
			"group_id":    params["group_id"],
			"created_at":  params["created_at"],
		}
		c.RelationshipsCreated = 1
	}

	return &driver.QueryResult{Counters: c}
}

func (f *fakeGraph) saveRelates(params map[string]interface{}) *driver.QueryResult {
	uuid := params["uuid"].(string)
	var c driver.Counters

	edge, ok := f.relates[uuid]
	if !ok {
		edge = map[string]interface{}{
			"uuid":        uuid,
			"source_uuid": params["source_uuid"],
			"target_uuid": params["target_uuid"],
			"group_id":    params["group_id"],
			"created_at":  params["created_at"],
		}
		f.relates[uuid] = edge
		c.RelationshipsCreated = 1
	}

	edge["predicate"] = params["predicate"]
	edge["confidence"] = params["confidence"]
	fact, _ := params["fact"].(string)
	stored, _ := edge["fact"].(string)
	if len(stored) < len(fact) {
		edge["fact"] = fact
	}

	episode, _ := params["episode_uuid"].(string)
	episodes, _ := edge["episodes"].([]string)
	found := false
	for _, e := range episodes {
		if e == episode {
			found = true
			break
		}
	}
	if !found {
		edge["episodes"] = append(episodes, episode)
	}

	return &driver.QueryResult{Counters: c}
}

// stubExtractor returns a fixed analysis or error.
type stubExtractor struct {
	analysis *model.DocumentAnalysis
	err      error
}

func (s *stubExtractor) Extract(ctx context.Context, content string, tags []string) (*model.DocumentAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

// stubEmbedder returns a fixed vector for any text.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}
