// Package export flattens the knowledge graph into downstream formats:
// embedding-ready documents and an XLSX report.
package export

import (
	"fmt"
	"strings"

	"github.com/abekenov/termgraph/graph"
)

// RAGDocument is one embedding-ready document derived from a graph node.
// Content holds the text to embed; Metadata travels alongside it into
// whatever index consumes the export.
type RAGDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// FormatGraph flattens every node into a RAGDocument, in graph insertion
// order. Outgoing relations are folded into the metadata so a retriever
// can follow them without loading the graph.
func FormatGraph(g *graph.Graph) []RAGDocument {
	nodes := g.Nodes()
	out := make([]RAGDocument, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, formatNode(g, n))
	}
	return out
}

func formatNode(g *graph.Graph, n graph.Node) RAGDocument {
	var b strings.Builder
	b.WriteString(n.Name)
	if n.Description != "" {
		b.WriteString(". ")
		b.WriteString(n.Description)
	}
	if len(n.Terms) > 0 {
		b.WriteString(". Термины: ")
		b.WriteString(strings.Join(n.Terms, ", "))
	}

	meta := map[string]string{
		"name":       n.Name,
		"type":       string(n.Type),
		"confidence": fmt.Sprintf("%.3f", n.Confidence),
	}
	if n.Tier != nil {
		meta["tier"] = fmt.Sprintf("%d", *n.Tier)
	}

	var relations []string
	for _, e := range g.Outgoing(n.ID) {
		target, ok := g.Node(e.ToID)
		if !ok {
			continue
		}
		relations = append(relations, fmt.Sprintf("%s:%s", e.Type, target.Name))
	}
	if len(relations) > 0 {
		meta["relations"] = strings.Join(relations, "; ")
	}

	return RAGDocument{ID: n.ID, Content: b.String(), Metadata: meta}
}
