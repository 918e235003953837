package driver

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// FalkorDriver talks to FalkorDB: Cypher statements issued as GRAPH.QUERY
// commands over the Redis protocol. Parameters are serialized into the CYPHER
// prefix the server understands, which also keeps user text out of the query
// body entirely.
type FalkorDriver struct {
	client *redis.Client
	graph  string
}

func NewFalkorDriver(address, graphName string) (*FalkorDriver, error) {
	if !strings.Contains(address, "://") {
		address = "redis://" + address
	}
	opts, err := redis.ParseURL(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FalkorDB address: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to FalkorDB: %w", err)
	}

	log.Printf("Connected to FalkorDB at %s (graph %q)", address, graphName)
	return &FalkorDriver{client: client, graph: graphName}, nil
}

func (d *FalkorDriver) Close(ctx context.Context) error {
	return d.client.Close()
}

func (d *FalkorDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*QueryResult, error) {
	full := query
	if len(params) > 0 {
		prefix, err := serializeParams(params)
		if err != nil {
			return nil, err
		}
		full = prefix + " " + query
	}

	reply, err := d.client.Do(ctx, "GRAPH.QUERY", d.graph, full).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return parseReply(reply)
}

// BuildIndices creates the exact-match indices and uniqueness constraints the
// upsert statements rely on. Errors are logged, not returned: most mean the
// index already exists.
func (d *FalkorDriver) BuildIndices(ctx context.Context) error {
	indices := []string{
		"CREATE INDEX FOR (e:Episodic) ON (e.uuid)",
		"CREATE INDEX FOR (e:Episodic) ON (e.group_id)",
		"CREATE INDEX FOR (ent:Entity) ON (ent.uuid)",
		"CREATE INDEX FOR (ent:Entity) ON (ent.name)",
		"CREATE INDEX FOR (ent:Entity) ON (ent.group_id)",
	}
	for _, q := range indices {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}

	constraints := [][]interface{}{
		{"GRAPH.CONSTRAINT", "CREATE", d.graph, "UNIQUE", "NODE", "Episodic", "PROPERTIES", "1", "uuid"},
		{"GRAPH.CONSTRAINT", "CREATE", d.graph, "UNIQUE", "NODE", "Entity", "PROPERTIES", "1", "uuid"},
		{"GRAPH.CONSTRAINT", "CREATE", d.graph, "UNIQUE", "NODE", "Entity", "PROPERTIES", "2", "name", "group_id"},
	}
	for _, args := range constraints {
		if err := d.client.Do(ctx, args...).Err(); err != nil {
			log.Printf("Warning: failed to create constraint %v: %v", args, err)
		}
	}

	return nil
}

// serializeParams renders params as a "CYPHER k=v ..." prefix. Keys are
// emitted in sorted order so identical params always produce an identical
// statement.
func serializeParams(params map[string]interface{}) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("CYPHER")
	for _, k := range keys {
		v, err := serializeValue(params[k])
		if err != nil {
			return "", fmt.Errorf("param %q: %w", k, err)
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String(), nil
}

func serializeValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return quoteString(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = quoteString(s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case []float32:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			s, err := serializeValue(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", value)
	}
}

func quoteString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return `"` + r.Replace(s) + `"`
}

// parseReply decodes a GRAPH.QUERY response. Read queries reply with
// [header, rows, statistics]; write-only queries reply with [statistics].
func parseReply(reply interface{}) (*QueryResult, error) {
	top, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T", reply)
	}

	result := &QueryResult{}

	switch len(top) {
	case 1:
		result.Counters = parseCounters(top[0])
	case 3:
		keys := parseHeader(top[0])
		rows, _ := top[1].([]interface{})
		for _, row := range rows {
			values, _ := row.([]interface{})
			result.Records = append(result.Records, &Record{Keys: keys, Values: values})
		}
		result.Counters = parseCounters(top[2])
	default:
		return nil, fmt.Errorf("unexpected reply shape: %d elements", len(top))
	}

	return result, nil
}

func parseHeader(header interface{}) []string {
	entries, _ := header.([]interface{})
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		switch col := e.(type) {
		case string:
			keys = append(keys, col)
		case []interface{}:
			// Compact mode wraps each column as [type, name].
			if len(col) > 0 {
				if name, ok := col[len(col)-1].(string); ok {
					keys = append(keys, name)
				}
			}
		}
	}
	return keys
}

func parseCounters(stats interface{}) Counters {
	var c Counters
	entries, _ := stats.([]interface{})
	for _, e := range entries {
		line, ok := e.(string)
		if !ok {
			continue
		}
		name, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		switch name {
		case "Nodes created":
			c.NodesCreated = n
		case "Relationships created":
			c.RelationshipsCreated = n
		case "Properties set":
			c.PropertiesSet = n
		case "Labels added":
			c.LabelsAdded = n
		}
	}
	return c
}
