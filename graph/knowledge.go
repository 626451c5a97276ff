// Package graph is a typed node/edge store with name-based deduplication,
// adjacency indices, and BFS path queries. It is not safe for concurrent
// mutation; callers serialize writers.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned when an edge references a missing node id.
var ErrNodeNotFound = errors.New("graph: node not found")

// NodeType classifies graph nodes.
type NodeType string

const (
	NodeConcept      NodeType = "concept"
	NodePattern      NodeType = "pattern"
	NodeProcessStage NodeType = "process_stage"
	NodePractice     NodeType = "practice"
	NodeTechnique    NodeType = "technique"
	NodeExercise     NodeType = "exercise"
)

// EdgeType classifies graph edges.
type EdgeType string

const (
	EdgeIsCoreComponentOf EdgeType = "is_core_component_of"
	EdgeIsPracticeFor     EdgeType = "is_practice_for"
	EdgeIsTechniqueFor    EdgeType = "is_technique_for"
	EdgeIsExerciseFor     EdgeType = "is_exercise_for"
	EdgeRelatedTo         EdgeType = "related_to"
	EdgeEmergesFrom       EdgeType = "emerges_from"
	EdgeEnables           EdgeType = "enables"
	EdgeRequires          EdgeType = "requires"
	EdgeLeadsTo           EdgeType = "leads_to"
	EdgeTransformsInto    EdgeType = "transforms_into"
)

// Node is one concept in the knowledge graph. Name is the natural dedup
// key: adding a second node with an existing name merges into the first.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        NodeType       `json:"type"`
	Description string         `json:"description,omitempty"`
	Terms       []string       `json:"terms,omitempty"`
	Tier        *int           `json:"tier,omitempty"`
	Confidence  float64        `json:"confidence"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Edge is a typed, directed relation between two existing nodes.
type Edge struct {
	FromID      string         `json:"from_id"`
	ToID        string         `json:"to_id"`
	Type        EdgeType       `json:"type"`
	Explanation string         `json:"explanation,omitempty"`
	Confidence  float64        `json:"confidence"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type edgeKey struct {
	from, to string
	typ      EdgeType
}

// Graph is the mutable knowledge graph. The zero value is not usable;
// construct with New.
type Graph struct {
	nodes    map[string]*Node
	order    []string // insertion order of node ids
	byName   map[string]string
	edges    []*Edge
	edgeKeys map[edgeKey]struct{}
	outgoing map[string][]*Edge
	incoming map[string][]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		byName:   make(map[string]string),
		edgeKeys: make(map[edgeKey]struct{}),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
	}
}

// AddNode inserts the node and returns its id. If a node with the same
// name (case-insensitive) already exists, the metadata maps are unioned,
// the higher confidence wins, and the existing id is returned. Same name
// means same concept here, by construction of the vocabulary.
func (g *Graph) AddNode(n Node) string {
	key := strings.ToLower(n.Name)
	if existingID, ok := g.byName[key]; ok {
		existing := g.nodes[existingID]
		if n.Confidence > existing.Confidence {
			existing.Confidence = n.Confidence
		}
		if len(n.Metadata) > 0 {
			if existing.Metadata == nil {
				existing.Metadata = make(map[string]any, len(n.Metadata))
			}
			for k, v := range n.Metadata {
				existing.Metadata[k] = v
			}
		}
		return existingID
	}

	stored := n
	g.nodes[n.ID] = &stored
	g.order = append(g.order, n.ID)
	g.byName[key] = n.ID
	return n.ID
}

// AddEdge inserts the edge. Both endpoints must already exist. An exact
// duplicate (same from, to, type) is silently ignored.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.FromID]; !ok {
		return fmt.Errorf("%w: edge source %q", ErrNodeNotFound, e.FromID)
	}
	if _, ok := g.nodes[e.ToID]; !ok {
		return fmt.Errorf("%w: edge target %q", ErrNodeNotFound, e.ToID)
	}
	key := edgeKey{from: e.FromID, to: e.ToID, typ: e.Type}
	if _, dup := g.edgeKeys[key]; dup {
		return nil
	}
	stored := e
	g.edges = append(g.edges, &stored)
	g.edgeKeys[key] = struct{}{}
	g.outgoing[e.FromID] = append(g.outgoing[e.FromID], &stored)
	g.incoming[e.ToID] = append(g.incoming[e.ToID], &stored)
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// NodeByName resolves a node by case-insensitive name.
func (g *Graph) NodeByName(name string) (Node, bool) {
	id, ok := g.byName[strings.ToLower(name)]
	if !ok {
		return Node{}, false
	}
	return *g.nodes[id], true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// Outgoing returns the edges leaving the node.
func (g *Graph) Outgoing(id string) []Edge {
	src := g.outgoing[id]
	out := make([]Edge, 0, len(src))
	for _, e := range src {
		out = append(out, *e)
	}
	return out
}

// Incoming returns the edges entering the node.
func (g *Graph) Incoming(id string) []Edge {
	src := g.incoming[id]
	out := make([]Edge, 0, len(src))
	for _, e := range src {
		out = append(out, *e)
	}
	return out
}

// DefaultMaxDepth bounds FindPath when the caller passes no depth.
const DefaultMaxDepth = 5

// FindPath returns the first-found shortest path of node ids from fromID
// to toID over outgoing edges only, or nil if unreachable within
// maxDepth. Non-positive maxDepth means DefaultMaxDepth.
func (g *Graph) FindPath(fromID, toID string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if _, ok := g.nodes[fromID]; !ok {
		return nil
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil
	}
	if fromID == toID {
		return []string{fromID}
	}

	type item struct {
		id   string
		path []string
	}
	visited := map[string]struct{}{fromID: {}}
	queue := []item{{id: fromID, path: []string{fromID}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path) > maxDepth {
			continue
		}
		for _, e := range g.outgoing[cur.id] {
			if _, seen := visited[e.ToID]; seen {
				continue
			}
			next := append(append([]string{}, cur.path...), e.ToID)
			if e.ToID == toID {
				return next
			}
			visited[e.ToID] = struct{}{}
			queue = append(queue, item{id: e.ToID, path: next})
		}
	}
	return nil
}

// ReasoningStep is one edge of a reasoning chain, labeled with its
// relation.
type ReasoningStep struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Relation    string `json:"relation"`
	Explanation string `json:"explanation,omitempty"`
}

// ReasoningChain is a name-resolved path projected onto edge labels.
type ReasoningChain struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Steps  []ReasoningStep `json:"steps"`
	Length int             `json:"length"`
}

// BuildReasoningChain resolves both names, finds a directed path, and
// projects it into labeled steps. Returns nil if either name is unknown
// or no path exists.
func (g *Graph) BuildReasoningChain(fromName, toName string) *ReasoningChain {
	from, ok := g.NodeByName(fromName)
	if !ok {
		return nil
	}
	to, ok := g.NodeByName(toName)
	if !ok {
		return nil
	}
	path := g.FindPath(from.ID, to.ID, DefaultMaxDepth)
	if path == nil {
		return nil
	}

	chain := &ReasoningChain{From: from.Name, To: to.Name, Length: len(path) - 1}
	for i := 0; i+1 < len(path); i++ {
		edge := g.edgeBetween(path[i], path[i+1])
		chain.Steps = append(chain.Steps, ReasoningStep{
			From:        g.nodes[path[i]].Name,
			To:          g.nodes[path[i+1]].Name,
			Relation:    string(edge.Type),
			Explanation: edge.Explanation,
		})
	}
	return chain
}

func (g *Graph) edgeBetween(fromID, toID string) *Edge {
	for _, e := range g.outgoing[fromID] {
		if e.ToID == toID {
			return e
		}
	}
	return &Edge{}
}

// Statistics summarizes the graph, computed on demand.
type Statistics struct {
	TotalNodes            int            `json:"total_nodes"`
	TotalEdges            int            `json:"total_edges"`
	NodesByType           map[string]int `json:"nodes_by_type"`
	AvgConnectionsPerNode float64        `json:"avg_connections_per_node"`
}

// Statistics computes node and edge counts and the edge-to-node ratio.
func (g *Graph) Statistics() Statistics {
	s := Statistics{
		TotalNodes:  len(g.nodes),
		TotalEdges:  len(g.edges),
		NodesByType: make(map[string]int),
	}
	for _, id := range g.order {
		s.NodesByType[string(g.nodes[id].Type)]++
	}
	if s.TotalNodes > 0 {
		s.AvgConnectionsPerNode = float64(s.TotalEdges) / float64(s.TotalNodes)
	}
	return s
}
