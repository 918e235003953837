package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/quarry/internal/core/identity"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
)

const fixedNow = "2026-01-02T03:04:05.000Z"

func newTestIngestor(g driver.GraphDriver, ex *stubExtractor) *Ingestor {
	ing := NewIngestor(g, nil, nil, "bookstack-episodic", "bookstack", "BookStack wiki page")
	if ex != nil {
		ing.Extractor = ex
	}
	ing.Now = func() string { return fixedNow }
	return ing
}

func sampleAnalysis() *model.DocumentAnalysis {
	return &model.DocumentAnalysis{
		Entities: []model.EntityCandidate{
			{Name: "docker", Type: "TECHNOLOGY", Description: "Container runtime"},
			{Name: "falkordb", Type: "TECHNOLOGY", Description: "Graph database"},
		},
		Relationships: []model.RelationshipCandidate{
			{Subject: "docker", Predicate: "integrates_with", Object: "falkordb",
				Fact: "Docker and FalkorDB integrate well.", Confidence: 0.9},
		},
	}
}

func sampleRecord() model.SourceRecord {
	return model.SourceRecord{
		NativeID:   "42",
		Title:      "Getting Started",
		Body:       "Docker and FalkorDB integrate well.",
		Tags:       []string{"docker", "falkordb"},
		Collection: "AI Handbook",
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, &stubExtractor{analysis: sampleAnalysis()})

	stats, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 2, stats.EntitiesCreated)
	assert.Equal(t, 0, stats.EntitiesUpdated)
	assert.Equal(t, 3, stats.EdgesCreated) // 2 MENTIONS + 1 RELATES_TO

	assert.Len(t, graph.episodic, 1)
	assert.Len(t, graph.entities, 2)
	assert.Len(t, graph.mentions, 2)
	assert.Len(t, graph.relates, 1)

	// Collection display name becomes the partition key.
	for _, node := range graph.episodic {
		assert.Equal(t, "ai-handbook", node["group_id"])
		assert.Equal(t, "bookstack", node["source"])
		assert.Equal(t, fixedNow, node["valid_at"])
	}
}

func TestIngest_SecondRunIsIdempotent(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, &stubExtractor{analysis: sampleAnalysis()})

	_, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	stats, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.EntitiesCreated)
	assert.Equal(t, 2, stats.EntitiesUpdated)
	assert.Equal(t, 0, stats.EdgesCreated)

	assert.Len(t, graph.episodic, 1)
	assert.Len(t, graph.entities, 2)
	assert.Len(t, graph.mentions, 2)
	assert.Len(t, graph.relates, 1)

	// Re-ingesting the same episode must not grow the supporting list.
	for _, edge := range graph.relates {
		assert.Len(t, edge["episodes"], 1)
	}
}

func TestIngest_ReingestRefreshesSourceFields(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, nil)

	_, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	// The same document arrives again through a different connector.
	record := sampleRecord()
	record.Source = "huly"
	record.SourceDesc = "Huly project tracker content"

	_, err = ing.Ingest(context.Background(), record)
	require.NoError(t, err)

	require.Len(t, graph.episodic, 1)
	for _, node := range graph.episodic {
		assert.Equal(t, "huly", node["source"])
		assert.Equal(t, "Huly project tracker content", node["source_description"])
		assert.Equal(t, fixedNow, node["created_at"])
	}
}

func TestIngest_MalformedRecordSkipped(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, nil)

	record := sampleRecord()
	record.NativeID = ""

	stats, err := ing.Ingest(context.Background(), record)
	assert.Error(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, graph.queries)
}

func TestMapDocument_BadTimestampRejected(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), nil)

	record := sampleRecord()
	record.UpdatedAt = "not a timestamp"

	_, err := ing.MapDocument(context.Background(), record, "ai-handbook")
	assert.Error(t, err)
}

func TestMapDocument_EpochTimestampNormalized(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), nil)

	record := sampleRecord()
	record.UpdatedAt = "1758464374756"

	plan, err := ing.MapDocument(context.Background(), record, "ai-handbook")
	require.NoError(t, err)
	require.NotEmpty(t, plan.Ops)
	assert.Equal(t, "2025-09-21T14:19:34.756Z", plan.Ops[0].Params["valid_at"])
	assert.Equal(t, fixedNow, plan.Ops[0].Params["created_at"])
}

func TestMapDocument_TitleTruncated(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), nil)

	record := sampleRecord()
	record.Title = strings.Repeat("x", 150)

	plan, err := ing.MapDocument(context.Background(), record, "ai-handbook")
	require.NoError(t, err)

	name := plan.Ops[0].Params["name"].(string)
	assert.Len(t, name, 100)
}

func TestMapDocument_ExtractorFailureKeepsDocument(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, &stubExtractor{err: errors.New("model unavailable")})

	stats, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.EntitiesCreated)
	assert.Len(t, graph.episodic, 1)
	assert.Empty(t, graph.entities)
}

func TestMapDocument_NoExtractorIsDocumentOnly(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), nil)

	plan, err := ing.MapDocument(context.Background(), sampleRecord(), "ai-handbook")
	require.NoError(t, err)
	require.Len(t, plan.Ops, 1)
	assert.Equal(t, OpEpisodic, plan.Ops[0].Kind)
}

func TestMapDocument_DedupesEntityCase(t *testing.T) {
	analysis := &model.DocumentAnalysis{
		Entities: []model.EntityCandidate{
			{Name: "docker", Type: "TECHNOLOGY", Description: "short"},
			{Name: "DOCKER", Type: "TECHNOLOGY", Description: "a much longer description"},
		},
	}
	ing := newTestIngestor(newFakeGraph(), &stubExtractor{analysis: analysis})

	plan, err := ing.MapDocument(context.Background(), sampleRecord(), "ai-handbook")
	require.NoError(t, err)

	var entityOps []Operation
	for _, op := range plan.Ops {
		if op.Kind == OpEntity {
			entityOps = append(entityOps, op)
		}
	}
	require.Len(t, entityOps, 1)
	assert.Equal(t, "a much longer description", entityOps[0].Params["summary"])
}

func TestMapDocument_CustomAttributes(t *testing.T) {
	graph := newFakeGraph()
	ing := newTestIngestor(graph, nil)

	record := sampleRecord()
	record.Metadata = map[string]interface{}{
		"bookstack_id": "42",
		"uuid":         "spoofed",  // reserved, dropped
		"Bad-Key":      "whatever", // invalid identifier, dropped
	}

	plan, err := ing.MapDocument(context.Background(), record, "ai-handbook")
	require.NoError(t, err)
	require.Len(t, plan.Ops, 2)

	attrOp := plan.Ops[1]
	assert.Equal(t, OpEpisodicAttributes, attrOp.Kind)
	assert.Equal(t, "42", attrOp.Params["attr_bookstack_id"])
	assert.NotContains(t, attrOp.Params, "attr_uuid")
	assert.NotContains(t, attrOp.Params, "attr_Bad-Key")

	_, err = plan.Apply(context.Background(), graph)
	require.NoError(t, err)

	node := graph.episodic[plan.EpisodicUUID]
	require.NotNil(t, node)
	assert.Equal(t, "42", node["bookstack_id"])
	assert.NotEqual(t, "spoofed", node["uuid"])
}

func TestMapDocument_AllReservedAttributesMeansNoOp(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), nil)

	record := sampleRecord()
	record.Metadata = map[string]interface{}{"uuid": "x", "group_id": "y"}

	plan, err := ing.MapDocument(context.Background(), record, "ai-handbook")
	require.NoError(t, err)
	assert.Len(t, plan.Ops, 1)
}

func TestMapDocument_EmbeddingFailureWritesNull(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), &stubExtractor{analysis: sampleAnalysis()})
	ing.Embedder = &stubEmbedder{err: errors.New("embedder down")}

	plan, err := ing.MapDocument(context.Background(), sampleRecord(), "ai-handbook")
	require.NoError(t, err)

	for _, op := range plan.Ops {
		if op.Kind == OpEntity {
			assert.Nil(t, op.Params["name_embedding"])
		}
	}
}

func TestMapDocument_EmbeddingAttached(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), &stubExtractor{analysis: sampleAnalysis()})
	ing.Embedder = &stubEmbedder{vec: []float32{0.1, 0.2}}

	plan, err := ing.MapDocument(context.Background(), sampleRecord(), "ai-handbook")
	require.NoError(t, err)

	found := false
	for _, op := range plan.Ops {
		if op.Kind == OpEntity {
			assert.Equal(t, []float32{0.1, 0.2}, op.Params["name_embedding"])
			found = true
		}
	}
	assert.True(t, found)
}

func TestMapDocument_RelationshipIdentity(t *testing.T) {
	ing := newTestIngestor(newFakeGraph(), &stubExtractor{analysis: sampleAnalysis()})

	plan, err := ing.MapDocument(context.Background(), sampleRecord(), "ai-handbook")
	require.NoError(t, err)

	subject := identity.EntityUUID("docker", "ai-handbook")
	object := identity.EntityUUID("falkordb", "ai-handbook")
	want := identity.EdgeUUID(identity.EdgeRelatesTo, subject, object, "integrates_with")

	found := false
	for _, op := range plan.Ops {
		if op.Kind == OpRelatesTo {
			assert.Equal(t, want, op.Params["uuid"])
			assert.Equal(t, plan.EpisodicUUID, op.Params["episode_uuid"])
			found = true
		}
	}
	assert.True(t, found)
}

func TestPlanApply_EpisodicFailureAborts(t *testing.T) {
	graph := newFakeGraph()
	graph.failOn["MERGE (e:Episodic"] = errors.New("connection reset")
	ing := newTestIngestor(graph, &stubExtractor{analysis: sampleAnalysis()})

	stats, err := ing.Ingest(context.Background(), sampleRecord())
	assert.Error(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, graph.entities)
	assert.Len(t, graph.queries, 1)
}

func TestPlanApply_EntityFailureContinues(t *testing.T) {
	graph := newFakeGraph()
	graph.failOn["MERGE (ent:Entity"] = errors.New("write conflict")
	ing := newTestIngestor(graph, &stubExtractor{analysis: sampleAnalysis()})

	stats, err := ing.Ingest(context.Background(), sampleRecord())
	assert.Error(t, err)

	// The document landed and the remaining statements were still attempted.
	assert.Equal(t, 1, stats.Processed)
	assert.Len(t, graph.episodic, 1)
	assert.Len(t, graph.mentions, 2)
}

func TestEntitySummaryNeverShrinks(t *testing.T) {
	graph := newFakeGraph()

	long := sampleAnalysis()
	long.Entities[0].Description = "a long and detailed description"
	ing := newTestIngestor(graph, &stubExtractor{analysis: long})
	_, err := ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	short := sampleAnalysis()
	short.Entities[0].Description = "terse"
	ing.Extractor = &stubExtractor{analysis: short}
	_, err = ing.Ingest(context.Background(), sampleRecord())
	require.NoError(t, err)

	node := graph.entities["docker|ai-handbook"]
	require.NotNil(t, node)
	assert.Equal(t, "a long and detailed description", node["summary"])
}
