package export

import (
	"testing"

	"github.com/abekenov/termgraph/graph"
)

func exportGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	tier := 3
	g.AddNode(graph.Node{
		ID:          "n1",
		Name:        "метанаблюдение",
		Type:        graph.NodePractice,
		Description: "наблюдение за наблюдающим",
		Terms:       []string{"метанаблюдение", "наблюдатель"},
		Tier:        &tier,
		Confidence:  0.85,
	})
	g.AddNode(graph.Node{
		ID:         "n2",
		Name:       "присутствие",
		Type:       graph.NodeConcept,
		Confidence: 0.5,
	})
	if err := g.AddEdge(graph.Edge{FromID: "n1", ToID: "n2", Type: graph.EdgeEnables}); err != nil {
		t.Fatalf("seeding edge: %v", err)
	}
	return g
}

func TestFormatGraph(t *testing.T) {
	docs := FormatGraph(exportGraph(t))
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	if docs[0].ID != "n1" || docs[1].ID != "n2" {
		t.Errorf("order = %q, %q", docs[0].ID, docs[1].ID)
	}

	first := docs[0]
	want := "метанаблюдение. наблюдение за наблюдающим. Термины: метанаблюдение, наблюдатель"
	if first.Content != want {
		t.Errorf("content = %q, want %q", first.Content, want)
	}
	if first.Metadata["name"] != "метанаблюдение" || first.Metadata["type"] != "practice" {
		t.Errorf("metadata = %v", first.Metadata)
	}
	if first.Metadata["confidence"] != "0.850" {
		t.Errorf("confidence = %q", first.Metadata["confidence"])
	}
	if first.Metadata["tier"] != "3" {
		t.Errorf("tier = %q", first.Metadata["tier"])
	}
	if first.Metadata["relations"] != "enables:присутствие" {
		t.Errorf("relations = %q", first.Metadata["relations"])
	}

	second := docs[1]
	if second.Content != "присутствие" {
		t.Errorf("bare node content = %q", second.Content)
	}
	if _, ok := second.Metadata["tier"]; ok {
		t.Error("tier set for untiered node")
	}
	if _, ok := second.Metadata["relations"]; ok {
		t.Error("relations set for node without outgoing edges")
	}
}

func TestFormatGraphEmpty(t *testing.T) {
	if docs := FormatGraph(graph.New()); len(docs) != 0 {
		t.Errorf("docs = %v, want none", docs)
	}
}
