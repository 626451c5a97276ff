package graph

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
)

func seedGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	g.AddNode(Node{ID: "r", Name: "нейро-сталкинг", Type: NodeConcept, Tier: intPtr(1), Confidence: 0.9})
	g.AddNode(Node{ID: "d", Name: "поле внимания", Type: NodeConcept, Tier: intPtr(2), Terms: []string{"поле внимания"}, Confidence: 0.8})
	g.AddNode(Node{ID: "p", Name: "центрирование", Type: NodePractice, Confidence: 0.7, Metadata: map[string]any{"text_id": "t1"}})
	for _, e := range []Edge{
		{FromID: "d", ToID: "r", Type: EdgeIsCoreComponentOf, Explanation: "домен", Confidence: 0.8},
		{FromID: "p", ToID: "d", Type: EdgeIsPracticeFor, Confidence: 0.7},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestJSONRoundTrip(t *testing.T) {
	g := seedGraph(t)
	path := filepath.Join(t.TempDir(), "graph.json")

	if err := g.SaveJSON(path); err != nil {
		t.Fatalf("saving: %v", err)
	}
	restored, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	before, after := g.ToDocument(), restored.ToDocument()
	if !reflect.DeepEqual(before.Edges, after.Edges) {
		t.Errorf("edges differ:\n%+v\n%+v", before.Edges, after.Edges)
	}
	if !reflect.DeepEqual(before.Statistics, after.Statistics) {
		t.Errorf("statistics differ:\n%+v\n%+v", before.Statistics, after.Statistics)
	}
	if len(before.Nodes) != len(after.Nodes) {
		t.Fatalf("node counts differ: %d vs %d", len(before.Nodes), len(after.Nodes))
	}
	for i := range before.Nodes {
		b, a := before.Nodes[i], after.Nodes[i]
		if b.ID != a.ID || b.Name != a.Name || b.Type != a.Type || b.Confidence != a.Confidence {
			t.Errorf("node %d differs: %+v vs %+v", i, b, a)
		}
		if (b.Tier == nil) != (a.Tier == nil) || (b.Tier != nil && *b.Tier != *a.Tier) {
			t.Errorf("node %d tier differs", i)
		}
	}

	// Adjacency survives the round trip.
	if path := restored.FindPath("p", "r", 0); len(path) != 3 {
		t.Errorf("restored path = %v, want 3 ids", path)
	}
}

func TestEnumTypesSerializeAsStrings(t *testing.T) {
	g := seedGraph(t)
	raw, err := json.Marshal(g.ToDocument())
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	nodes := doc["nodes"].([]any)
	first := nodes[0].(map[string]any)
	if first["type"] != "concept" {
		t.Errorf("node type serialized as %v, want the string value", first["type"])
	}
	edges := doc["edges"].([]any)
	edge := edges[0].(map[string]any)
	if edge["type"] != "is_core_component_of" {
		t.Errorf("edge type serialized as %v, want the string value", edge["type"])
	}
}

func TestFromDocumentRejectsDanglingEdge(t *testing.T) {
	doc := Document{
		Nodes: []Node{{ID: "a", Name: "а-узел", Type: NodeConcept}},
		Edges: []Edge{{FromID: "a", ToID: "ghost", Type: EdgeRelatedTo}},
	}
	if _, err := FromDocument(doc); err == nil {
		t.Fatal("dangling edge accepted")
	}
}
