//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/abekenov/termgraph/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	tier := 3
	g.AddNode(graph.Node{
		ID:          "n1",
		Name:        "метанаблюдение",
		Type:        graph.NodePractice,
		Description: "наблюдение за наблюдающим",
		Terms:       []string{"метанаблюдение"},
		Tier:        &tier,
		Confidence:  0.8,
		Metadata:    map[string]any{"text_id": "t1"},
	})
	g.AddNode(graph.Node{
		ID:         "n2",
		Name:       "присутствие",
		Type:       graph.NodeConcept,
		Terms:      []string{"присутствие"},
		Confidence: 0.6,
	})
	if err := g.AddEdge(graph.Edge{
		FromID:      "n1",
		ToID:        "n2",
		Type:        graph.EdgeEnables,
		Explanation: "практика ведёт к состоянию",
		Confidence:  0.7,
		Metadata:    map[string]any{"context": "тест"},
	}); err != nil {
		t.Fatalf("seeding edge: %v", err)
	}
	return g
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "graph.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	defer s.Close()
	if s.DB() == nil {
		t.Fatal("nil *sql.DB")
	}
}

func TestSaveLoadGraphRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t)

	if err := s.SaveGraph(ctx, g); err != nil {
		t.Fatalf("saving graph: %v", err)
	}
	loaded, err := s.LoadGraph(ctx)
	if err != nil {
		t.Fatalf("loading graph: %v", err)
	}

	nodes := loaded.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}
	if nodes[0].ID != "n1" || nodes[1].ID != "n2" {
		t.Errorf("node order = %q, %q", nodes[0].ID, nodes[1].ID)
	}
	n1 := nodes[0]
	if n1.Type != graph.NodePractice || n1.Description != "наблюдение за наблюдающим" {
		t.Errorf("node fields lost: %+v", n1)
	}
	if n1.Tier == nil || *n1.Tier != 3 {
		t.Errorf("tier = %v, want 3", n1.Tier)
	}
	if n1.Metadata["text_id"] != "t1" {
		t.Errorf("metadata = %v", n1.Metadata)
	}
	if nodes[1].Tier != nil {
		t.Errorf("absent tier restored as %v", *nodes[1].Tier)
	}

	edges := loaded.Edges()
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}
	e := edges[0]
	if e.FromID != "n1" || e.ToID != "n2" || e.Type != graph.EdgeEnables {
		t.Errorf("edge fields lost: %+v", e)
	}
	if e.Metadata["context"] != "тест" {
		t.Errorf("edge metadata = %v", e.Metadata)
	}
}

func TestSaveGraphReplacesSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveGraph(ctx, seedGraph(t)); err != nil {
		t.Fatal(err)
	}
	small := graph.New()
	small.AddNode(graph.Node{ID: "only", Name: "ясность", Type: graph.NodeConcept})
	if err := s.SaveGraph(ctx, small); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadGraph(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Statistics(); got.TotalNodes != 1 || got.TotalEdges != 0 {
		t.Errorf("stale snapshot survived: %+v", got)
	}
}

func TestRecordTextUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := TextRecord{TextID: "t1", IsValid: false, Reason: "terminology density 0.050 below required 0.15"}
	if err := s.RecordText(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := TextRecord{TextID: "t1", IsValid: true, Density: 0.4, PatternCount: 2, NodesAdded: 5}
	if err := s.RecordText(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordText(ctx, TextRecord{TextID: "t2", IsValid: true, Density: 0.3}); err != nil {
		t.Fatal(err)
	}

	texts, err := s.ListTexts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(texts) != 2 {
		t.Fatalf("texts = %d, want 2", len(texts))
	}
	if texts[0].TextID != "t1" || !texts[0].IsValid || texts[0].PatternCount != 2 {
		t.Errorf("upsert did not replace row: %+v", texts[0])
	}
	if texts[0].CreatedAt == "" {
		t.Error("created_at not populated")
	}
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.SaveGraph(ctx, graph.New()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("SaveGraph after close: %v", err)
	}
	if _, err := s.LoadGraph(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("LoadGraph after close: %v", err)
	}
	if err := s.RecordText(ctx, TextRecord{TextID: "t"}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("RecordText after close: %v", err)
	}
	if _, err := s.ListTexts(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("ListTexts after close: %v", err)
	}
}
