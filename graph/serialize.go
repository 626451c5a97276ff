package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the JSON form of a graph. Round-tripping through it is
// lossless for nodes, edges, and statistics.
type Document struct {
	Nodes      []Node     `json:"nodes"`
	Edges      []Edge     `json:"edges"`
	Statistics Statistics `json:"statistics"`
}

// ToDocument snapshots the graph in insertion order.
func (g *Graph) ToDocument() Document {
	return Document{
		Nodes:      g.Nodes(),
		Edges:      g.Edges(),
		Statistics: g.Statistics(),
	}
}

// FromDocument rebuilds a graph from a snapshot.
func FromDocument(doc Document) (*Graph, error) {
	g := New()
	for _, n := range doc.Nodes {
		g.AddNode(n)
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SaveJSON writes the graph snapshot to path.
func (g *Graph) SaveJSON(path string) error {
	raw, err := json.MarshalIndent(g.ToDocument(), "", "  ")
	if err != nil {
		return fmt.Errorf("graph: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("graph: write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a graph snapshot from path.
func LoadJSON(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("graph: unmarshal %s: %w", path, err)
	}
	return FromDocument(doc)
}
