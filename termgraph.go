// Package termgraph turns lecture transcripts into a validated knowledge
// graph. One validator gates each text; three extractors consume the
// validated entity list; the processor folds their outputs into a single
// cumulative graph with weighted co-occurrence edges.
package termgraph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/abekenov/termgraph/extract"
	"github.com/abekenov/termgraph/graph"
	"github.com/abekenov/termgraph/terminology"
)

// Processor is the single entry point. It owns the knowledge graph and
// grows it monotonically across ProcessText calls. Not safe for
// concurrent use.
type Processor struct {
	cfg Config
	lem terminology.Lemmatizer

	idx         *terminology.Index
	validator   *terminology.Validator
	patterns    *extract.PatternExtractor
	chains      *extract.ChainExtractor
	hierarchies *extract.HierarchyExtractor

	graph   *graph.Graph
	weights *WeightCalculator

	blockCount int
}

// Option customizes Processor construction.
type Option func(*Processor)

// WithLemmatizer replaces the default dictionary lemmatizer. Tests use
// terminology.Passthrough for deterministic exact matching.
func WithLemmatizer(l terminology.Lemmatizer) Option {
	return func(p *Processor) { p.lem = l }
}

// WithGraph resumes processing into an existing graph.
func WithGraph(g *graph.Graph) Option {
	return func(p *Processor) { p.graph = g }
}

// New builds a Processor from the configuration.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	lem := p.lem
	if lem == nil {
		lem = terminology.NewLemmatizer()
	}
	idx, err := terminology.Load(cfg.TermsPath, cfg.ForbiddenPath, cfg.CategoriesPath, lem)
	if err != nil {
		return nil, fmt.Errorf("termgraph: loading vocabularies: %w", err)
	}

	p.idx = idx
	p.validator = terminology.NewValidator(idx)
	p.patterns = extract.NewPatternExtractor(idx)
	p.chains = extract.NewChainExtractor(idx)
	p.hierarchies = extract.NewHierarchyExtractor(idx)
	if p.graph == nil {
		p.graph = graph.New()
	}
	p.weights = NewWeightCalculator(idx)
	return p, nil
}

// Index exposes the loaded vocabulary index.
func (p *Processor) Index() *terminology.Index { return p.idx }

// Graph exposes the cumulative knowledge graph.
func (p *Processor) Graph() *graph.Graph { return p.graph }

// Weights exposes the co-occurrence weight calculator.
func (p *Processor) Weights() *WeightCalculator { return p.weights }

// ProcessingResult summarizes one ProcessText call.
type ProcessingResult struct {
	TextID         string   `json:"text_id"`
	IsValid        bool     `json:"is_valid"`
	Reason         string   `json:"reason"`
	Density        float64  `json:"density"`
	Entities       []string `json:"entities,omitempty"`
	PatternCount   int      `json:"pattern_count"`
	ChainCount     int      `json:"chain_count"`
	HierarchyValid bool     `json:"hierarchy_valid"`
	NodesAdded     int      `json:"nodes_added"`
	EdgesAdded     int      `json:"edges_added"`
}

// ProcessText gates the text, runs all three extractors against the same
// validated entity list, and folds their outputs into the graph. A
// rejected text leaves the graph unchanged. Empty textID gets a fresh
// UUID.
func (p *Processor) ProcessText(text, textID string, metadata map[string]any) ProcessingResult {
	if textID == "" {
		textID = uuid.NewString()
	}

	res := p.validate(text)
	if !res.IsValid {
		slog.Info("processor: text rejected", "text_id", textID, "reason", res.Reason)
		return ProcessingResult{TextID: textID, Reason: res.Reason, Density: res.Density}
	}

	before := p.graph.Statistics()

	hierRes := p.hierarchies.ExtractValidated(text, res, p.cfg.ExpectedRoot)
	patRes := p.patterns.ExtractValidated(text, res, nil)
	chainRes := p.chains.ExtractValidated(text, res, "", p.cfg.MinStages, p.cfg.MaxStages)

	if hierRes.Valid {
		p.mergeHierarchy(hierRes.Hierarchy, textID, metadata)
	}
	p.mergePatterns(patRes.Patterns, textID)
	p.mergeChains(chainRes.Chains, textID)
	p.mergeEntities(res.Entities, textID)
	p.observeBlock(text, res.Entities)

	after := p.graph.Statistics()
	out := ProcessingResult{
		TextID:         textID,
		IsValid:        true,
		Reason:         res.Reason,
		Density:        res.Density,
		Entities:       res.Entities,
		PatternCount:   len(patRes.Patterns),
		ChainCount:     len(chainRes.Chains),
		HierarchyValid: hierRes.Valid,
		NodesAdded:     after.TotalNodes - before.TotalNodes,
		EdgesAdded:     after.TotalEdges - before.TotalEdges,
	}
	slog.Info("processor: text folded into graph",
		"text_id", textID,
		"density", fmt.Sprintf("%.3f", res.Density),
		"patterns", out.PatternCount,
		"chains", out.ChainCount,
		"nodes_added", out.NodesAdded,
		"edges_added", out.EdgesAdded)
	return out
}

// ProcessCorpus runs ProcessText over blocks in document order. Block ids
// derive from baseID and the block index.
func (p *Processor) ProcessCorpus(blocks []string, baseID string) ([]ProcessingResult, error) {
	if len(blocks) == 0 {
		return nil, ErrEmptyCorpus
	}
	if baseID == "" {
		baseID = uuid.NewString()
	}
	out := make([]ProcessingResult, 0, len(blocks))
	for i, block := range blocks {
		out = append(out, p.ProcessText(block, fmt.Sprintf("%s-%03d", baseID, i), nil))
	}
	return out, nil
}

func (p *Processor) validate(text string) terminology.Result {
	if p.cfg.MinDensity > 0 {
		return p.validator.Validate(text, p.cfg.MinDensity, p.cfg.ValidationMode == terminology.ModeStrict)
	}
	return p.validator.ValidateMode(text, p.cfg.ValidationMode)
}

func (p *Processor) mergeHierarchy(h *extract.ConceptHierarchy, textID string, metadata map[string]any) {
	meta := func() map[string]any {
		m := map[string]any{"text_id": textID}
		for k, v := range metadata {
			m[k] = v
		}
		return m
	}

	for _, node := range h.Nodes() {
		tier := node.Tier
		gn := graph.Node{
			ID:          uuid.NewString(),
			Name:        node.Name,
			Type:        nodeTypeForLevel(node.Level),
			Description: node.Description,
			Terms:       node.Terms,
			Confidence:  h.Confidence,
			Metadata:    meta(),
		}
		if tier > 0 {
			gn.Tier = &tier
		}
		if node.Level == extract.LevelExercise {
			gn.Metadata["duration"] = node.Duration
			gn.Metadata["frequency"] = node.Frequency
			gn.Metadata["instructions"] = node.Instructions
		}
		id := p.graph.AddNode(gn)

		if node.Level == extract.LevelRoot {
			continue
		}
		parent, ok := p.graph.NodeByName(node.Parent)
		if !ok {
			continue
		}
		edge := graph.Edge{
			FromID:      id,
			ToID:        parent.ID,
			Type:        edgeTypeForLevel(node.Level),
			Explanation: fmt.Sprintf("%s входит в %s", node.Name, parent.Name),
			Confidence:  h.Confidence,
		}
		if err := p.graph.AddEdge(edge); err != nil {
			slog.Warn("processor: hierarchy edge skipped", "error", err)
		}
	}

	for _, cc := range h.CrossConnections {
		from, okFrom := p.graph.NodeByName(cc.From)
		to, okTo := p.graph.NodeByName(cc.To)
		if !okFrom || !okTo {
			continue
		}
		edge := graph.Edge{
			FromID:      from.ID,
			ToID:        to.ID,
			Type:        edgeTypeForRelation(cc.Relation),
			Explanation: cc.Explanation,
			Confidence:  h.Confidence,
			Metadata:    map[string]any{"context": cc.Context},
		}
		if err := p.graph.AddEdge(edge); err != nil {
			slog.Warn("processor: cross-connection skipped", "error", err)
		}
	}
}

func (p *Processor) mergePatterns(patterns []extract.Pattern, textID string) {
	for _, pat := range patterns {
		id := p.graph.AddNode(graph.Node{
			ID:          uuid.NewString(),
			Name:        pat.Name,
			Type:        graph.NodePattern,
			Description: pat.Description,
			Terms:       pat.KeyTerms,
			Confidence:  pat.Confidence,
			Metadata:    map[string]any{"text_id": textID, "category": pat.Category, "source_quote": pat.SourceQuote},
		})
		for _, practice := range pat.RelatedPractices {
			pn, ok := p.graph.NodeByName(practice)
			if !ok {
				continue
			}
			edge := graph.Edge{
				FromID:      id,
				ToID:        pn.ID,
				Type:        graph.EdgeRelatedTo,
				Explanation: fmt.Sprintf("паттерн упоминает практику %s", practice),
				Confidence:  pat.Confidence,
			}
			if err := p.graph.AddEdge(edge); err != nil {
				slog.Warn("processor: pattern edge skipped", "error", err)
			}
		}
	}
}

// mergeChains adds one node per stage, id-scoped by text and chain index
// so stages never collide across chains or texts, and links consecutive
// stages in process order.
func (p *Processor) mergeChains(chains []extract.CausalChain, textID string) {
	for ci, chain := range chains {
		ids := make([]string, len(chain.Stages))
		for si, stage := range chain.Stages {
			ids[si] = p.graph.AddNode(graph.Node{
				ID:          fmt.Sprintf("%s:chain%d:stage%d", textID, ci, stage.Index),
				Name:        fmt.Sprintf("%s: этап %d", chain.ProcessName, stage.Index),
				Type:        graph.NodeProcessStage,
				Description: stage.Description,
				Terms:       stage.Terms,
				Confidence:  chain.Confidence,
				Metadata:    map[string]any{"text_id": textID, "category": chain.Category, "stage_name": stage.Name},
			})
		}
		for si := 0; si+1 < len(ids); si++ {
			edge := graph.Edge{
				FromID:      ids[si],
				ToID:        ids[si+1],
				Type:        graph.EdgeEmergesFrom,
				Explanation: fmt.Sprintf("этап %d порождает этап %d", si+1, si+2),
				Confidence:  chain.Confidence,
			}
			if err := p.graph.AddEdge(edge); err != nil {
				slog.Warn("processor: chain edge skipped", "error", err)
			}
		}
		p.mergeInterventions(chain, textID)
	}
}

// mergeInterventions turns each intervention point into practice, trigger
// and outcome nodes: trigger requires practice, practice enables outcome.
// These edges back the symptom and exercise query helpers.
func (p *Processor) mergeInterventions(chain extract.CausalChain, textID string) {
	for _, ip := range chain.InterventionPoints {
		practiceID := p.graph.AddNode(graph.Node{
			ID:         uuid.NewString(),
			Name:       ip.PracticeName,
			Type:       graph.NodePractice,
			Confidence: chain.Confidence,
			Metadata:   map[string]any{"text_id": textID},
		})
		for _, trigger := range ip.Triggers {
			triggerID := p.graph.AddNode(graph.Node{
				ID:         uuid.NewString(),
				Name:       trigger,
				Type:       graph.NodeConcept,
				Confidence: chain.Confidence,
				Metadata:   map[string]any{"text_id": textID},
			})
			edge := graph.Edge{
				FromID:      triggerID,
				ToID:        practiceID,
				Type:        graph.EdgeRequires,
				Explanation: fmt.Sprintf("%s требует практики %s", trigger, ip.PracticeName),
				Confidence:  chain.Confidence,
			}
			if err := p.graph.AddEdge(edge); err != nil {
				slog.Warn("processor: intervention edge skipped", "error", err)
			}
		}
		if ip.ExpectedOutcome != "" {
			outcomeID := p.graph.AddNode(graph.Node{
				ID:         uuid.NewString(),
				Name:       ip.ExpectedOutcome,
				Type:       graph.NodeConcept,
				Confidence: chain.Confidence,
				Metadata:   map[string]any{"text_id": textID},
			})
			edge := graph.Edge{
				FromID:      practiceID,
				ToID:        outcomeID,
				Type:        graph.EdgeEnables,
				Explanation: fmt.Sprintf("%s ведёт к состоянию %s", ip.PracticeName, ip.ExpectedOutcome),
				Confidence:  chain.Confidence,
			}
			if err := p.graph.AddEdge(edge); err != nil {
				slog.Warn("processor: intervention edge skipped", "error", err)
			}
		}
	}
}

// mergeEntities ensures every validated entity exists as a concept node,
// so co-occurrence edges have endpoints even when an entity joined no
// hierarchy or chain.
func (p *Processor) mergeEntities(entities []string, textID string) {
	for _, e := range entities {
		if _, ok := p.graph.NodeByName(e); ok {
			continue
		}
		node := graph.Node{
			ID:       uuid.NewString(),
			Name:     e,
			Type:     graph.NodeConcept,
			Terms:    []string{e},
			Metadata: map[string]any{"text_id": textID},
		}
		if tier, ok := p.idx.TermTier(e); ok {
			t := tier
			node.Tier = &t
		}
		p.graph.AddNode(node)
	}
}

// observeBlock feeds the weight calculator and adds weighted related_to
// edges between co-occurring entities that exist as graph nodes.
func (p *Processor) observeBlock(text string, entities []string) {
	p.weights.Observe(text, entities, p.blockCount)
	p.blockCount++

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, okA := p.graph.NodeByName(entities[i])
			b, okB := p.graph.NodeByName(entities[j])
			if !okA || !okB || a.ID == b.ID {
				continue
			}
			if p.weights.CoOccurrence(entities[i], entities[j]) == 0 {
				continue
			}
			edge := graph.Edge{
				FromID:      a.ID,
				ToID:        b.ID,
				Type:        graph.EdgeRelatedTo,
				Explanation: "совместная встречаемость в корпусе",
				Confidence:  p.weights.CombinedWeight(entities[i], entities[j], p.blockCount),
			}
			if err := p.graph.AddEdge(edge); err != nil {
				slog.Warn("processor: co-occurrence edge skipped", "error", err)
			}
		}
	}
}

// FindPracticesForSymptom returns practice node names connected to the
// symptom through enables or requires edges, in either direction. Empty
// when the symptom is unknown or unconnected.
func (p *Processor) FindPracticesForSymptom(symptom string) []string {
	node, ok := p.graph.NodeByName(symptom)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	consider := func(id string) {
		n, ok := p.graph.Node(id)
		if !ok || n.Type != graph.NodePractice {
			return
		}
		key := strings.ToLower(n.Name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, n.Name)
	}
	for _, e := range p.graph.Outgoing(node.ID) {
		if e.Type == graph.EdgeEnables || e.Type == graph.EdgeRequires {
			consider(e.ToID)
		}
	}
	for _, e := range p.graph.Incoming(node.ID) {
		if e.Type == graph.EdgeEnables || e.Type == graph.EdgeRequires {
			consider(e.FromID)
		}
	}
	return out
}

// RecommendExercise walks practice -> technique -> exercise incoming
// links and returns the first exercise, optionally filtered by a duration
// substring. Nil when nothing matches.
func (p *Processor) RecommendExercise(practiceName, duration string) *graph.Node {
	practice, ok := p.graph.NodeByName(practiceName)
	if !ok {
		return nil
	}
	for _, te := range p.graph.Incoming(practice.ID) {
		if te.Type != graph.EdgeIsTechniqueFor {
			continue
		}
		for _, ee := range p.graph.Incoming(te.FromID) {
			if ee.Type != graph.EdgeIsExerciseFor {
				continue
			}
			exercise, ok := p.graph.Node(ee.FromID)
			if !ok {
				continue
			}
			if duration != "" {
				d, _ := exercise.Metadata["duration"].(string)
				if !strings.Contains(d, duration) {
					continue
				}
			}
			return &exercise
		}
	}
	return nil
}

// BuildReasoningChain resolves both concept names and projects the
// shortest directed path between them into labeled steps.
func (p *Processor) BuildReasoningChain(fromName, toName string) *graph.ReasoningChain {
	return p.graph.BuildReasoningChain(fromName, toName)
}

func nodeTypeForLevel(level string) graph.NodeType {
	switch level {
	case extract.LevelPractice:
		return graph.NodePractice
	case extract.LevelTechnique:
		return graph.NodeTechnique
	case extract.LevelExercise:
		return graph.NodeExercise
	default:
		return graph.NodeConcept
	}
}

func edgeTypeForLevel(level string) graph.EdgeType {
	switch level {
	case extract.LevelDomain:
		return graph.EdgeIsCoreComponentOf
	case extract.LevelPractice:
		return graph.EdgeIsPracticeFor
	case extract.LevelTechnique:
		return graph.EdgeIsTechniqueFor
	case extract.LevelExercise:
		return graph.EdgeIsExerciseFor
	default:
		return graph.EdgeRelatedTo
	}
}

func edgeTypeForRelation(relation string) graph.EdgeType {
	switch relation {
	case extract.RelationEnables:
		return graph.EdgeEnables
	case extract.RelationRequires:
		return graph.EdgeRequires
	case extract.RelationLeadsTo:
		return graph.EdgeLeadsTo
	case extract.RelationTransformsInto:
		return graph.EdgeTransformsInto
	default:
		return graph.EdgeRelatedTo
	}
}
