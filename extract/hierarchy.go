package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/abekenov/termgraph/terminology"
)

// Hierarchy level names, top to bottom.
const (
	LevelRoot      = "root"
	LevelDomain    = "domain"
	LevelPractice  = "practice"
	LevelTechnique = "technique"
	LevelExercise  = "exercise"
)

// Cross-connection relation kinds.
const (
	RelationEnables        = "enables"
	RelationRequires       = "requires"
	RelationLeadsTo        = "leads_to"
	RelationTransformsInto = "transforms_into"
)

// AllowedRoots is the closed list of canonical root concept names. A
// hierarchy whose root is not on this list is rejected.
var AllowedRoots = []string{"нейро-сталкинг", "нео-сталкинг", "сталкинг ума"}

// defaultTechniqueConcepts supplements the base vocabulary, which carries
// few technique-level terms. Known limitation: techniques absent from the
// configured list and from the vocabulary are never extracted.
var defaultTechniqueConcepts = []string{
	"наблюдение мыслительного потока",
	"отслеживание автоматизмов",
	"остановка внутреннего диалога",
	"центрирование на дыхании",
	"сканирование телесных ощущений",
}

// exerciseMarkers are imperative words that introduce an exercise.
var exerciseMarkers = []string{
	"практикуй", "делай", "попробуй", "упражнение",
	"тренируй", "выполняй", "наблюдай",
}

// relationMarker maps a marker phrase to its relation kind, checked in
// this order.
type relationMarker struct {
	marker   string
	relation string
}

var relationMarkers = []relationMarker{
	{"превращается в", RelationTransformsInto},
	{"становится", RelationTransformsInto},
	{"приводит к", RelationLeadsTo},
	{"ведёт к", RelationLeadsTo},
	{"ведет к", RelationLeadsTo},
	{"требует", RelationRequires},
	{"необходимо для", RelationRequires},
	{"позволяет", RelationEnables},
	{"открывает", RelationEnables},
	{"даёт возможность", RelationEnables},
}

var (
	durationRe  = regexp.MustCompile(`\d+[\d\-.]*\s*(?:минут|час|секунд)[а-я]*`)
	frequencyRe = regexp.MustCompile(`\d+\s*раза?\s*(?:в|на)\s*(?:день|неделю|месяц)`)
)

// HierarchyNode is one node of a concept hierarchy. Duration, Frequency
// and Instructions are set on exercise nodes only.
type HierarchyNode struct {
	Name         string   `json:"name"`
	Level        string   `json:"level"`
	Parent       string   `json:"parent,omitempty"`
	RelationType string   `json:"relation_type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Terms        []string `json:"terms,omitempty"`
	Tier         int      `json:"tier,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// CrossConnection links two hierarchy nodes at any level with a typed
// relation.
type CrossConnection struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Relation    string `json:"relation"`
	Explanation string `json:"explanation"`
	Context     string `json:"context"`
}

// ConceptHierarchy is a strict five-level tree plus cross-connections.
type ConceptHierarchy struct {
	Root             HierarchyNode     `json:"root"`
	Domains          []HierarchyNode   `json:"domains,omitempty"`
	Practices        []HierarchyNode   `json:"practices,omitempty"`
	Techniques       []HierarchyNode   `json:"techniques,omitempty"`
	Exercises        []HierarchyNode   `json:"exercises,omitempty"`
	CrossConnections []CrossConnection `json:"cross_connections,omitempty"`
	Confidence       float64           `json:"confidence"`
}

// Nodes returns all hierarchy nodes top-down, root first.
func (h *ConceptHierarchy) Nodes() []HierarchyNode {
	out := make([]HierarchyNode, 0, 1+len(h.Domains)+len(h.Practices)+len(h.Techniques)+len(h.Exercises))
	out = append(out, h.Root)
	out = append(out, h.Domains...)
	out = append(out, h.Practices...)
	out = append(out, h.Techniques...)
	out = append(out, h.Exercises...)
	return out
}

// HierarchyResult carries the extraction outcome together with the gating
// validation. Hierarchy is nil unless Valid.
type HierarchyResult struct {
	Valid      bool               `json:"valid"`
	Reason     string             `json:"reason"`
	Hierarchy  *ConceptHierarchy  `json:"hierarchy,omitempty"`
	Validation terminology.Result `json:"validation"`
}

// HierarchyExtractor builds concept hierarchies and rejects any result
// that violates the tree invariants.
type HierarchyExtractor struct {
	idx        *terminology.Index
	val        *terminology.Validator
	techniques []string
}

// HierarchyOption customizes HierarchyExtractor construction.
type HierarchyOption func(*HierarchyExtractor)

// WithTechniqueConcepts replaces the default supplementary technique list.
func WithTechniqueConcepts(concepts []string) HierarchyOption {
	return func(h *HierarchyExtractor) { h.techniques = concepts }
}

// NewHierarchyExtractor returns a HierarchyExtractor over the given index.
func NewHierarchyExtractor(idx *terminology.Index, opts ...HierarchyOption) *HierarchyExtractor {
	h := &HierarchyExtractor{
		idx:        idx,
		val:        terminology.NewValidator(idx),
		techniques: defaultTechniqueConcepts,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Extract gates the text and builds the hierarchy. If expectedRoot is
// non-empty, only that root concept is accepted.
func (h *HierarchyExtractor) Extract(text, expectedRoot string) HierarchyResult {
	res := h.val.Validate(text, terminology.DefaultMinDensity, false)
	if !res.IsValid {
		return HierarchyResult{Reason: res.Reason, Validation: res}
	}
	return h.ExtractValidated(text, res, expectedRoot)
}

// ExtractValidated builds a hierarchy over text already accepted by the
// validator, reusing its entity list.
func (h *HierarchyExtractor) ExtractValidated(text string, res terminology.Result, expectedRoot string) HierarchyResult {
	rootName := h.findRoot(text, expectedRoot)
	if rootName == "" {
		return HierarchyResult{Reason: "no root concept found in text", Validation: res}
	}

	sentences := SplitSentences(text)
	hier := &ConceptHierarchy{
		Root: HierarchyNode{
			Name:        rootName,
			Level:       LevelRoot,
			Tier:        1,
			Description: firstSentenceWith(h.idx, sentences, rootName),
			Terms:       []string{rootName},
		},
	}

	for _, e := range res.Entities {
		level, ok := h.idx.TermLevel(e)
		if !ok {
			continue
		}
		tier, _ := h.idx.TermTier(e)
		switch level {
		case LevelDomain:
			hier.Domains = append(hier.Domains, HierarchyNode{
				Name:         e,
				Level:        LevelDomain,
				Parent:       rootName,
				RelationType: "is_core_component_of",
				Description:  firstSentenceWith(h.idx, sentences, e),
				Terms:        []string{e},
				Tier:         tier,
			})
		case LevelPractice:
			parent := h.nearestParent(sentences, e, hier.Domains)
			if parent == "" {
				continue
			}
			hier.Practices = append(hier.Practices, HierarchyNode{
				Name:         e,
				Level:        LevelPractice,
				Parent:       parent,
				RelationType: "is_practice_for",
				Description:  firstSentenceWith(h.idx, sentences, e),
				Terms:        []string{e},
				Tier:         tier,
			})
		}
	}

	for _, tc := range h.techniques {
		if !h.idx.ContainsTerm(text, tc) {
			continue
		}
		parent := h.nearestParent(sentences, tc, hier.Practices)
		if parent == "" {
			continue
		}
		hier.Techniques = append(hier.Techniques, HierarchyNode{
			Name:         tc,
			Level:        LevelTechnique,
			Parent:       parent,
			RelationType: "is_technique_for",
			Description:  firstSentenceWith(h.idx, sentences, tc),
			Terms:        []string{tc},
		})
	}

	hier.Exercises = h.extractExercises(sentences, hier.Techniques)
	hier.CrossConnections = h.crossConnections(sentences, hier)

	if reason := h.validateTree(hier); reason != "" {
		slog.Debug("extract: hierarchy rejected", "reason", reason)
		return HierarchyResult{Reason: reason, Validation: res}
	}

	hier.Confidence = hierarchyConfidence(len(hier.Domains), len(hier.Practices), len(hier.Techniques))
	slog.Debug("extract: hierarchy built",
		"root", rootName,
		"domains", len(hier.Domains),
		"practices", len(hier.Practices),
		"techniques", len(hier.Techniques),
		"exercises", len(hier.Exercises))
	return HierarchyResult{Valid: true, Reason: res.Reason, Hierarchy: hier, Validation: res}
}

func (h *HierarchyExtractor) findRoot(text, expectedRoot string) string {
	if expectedRoot != "" {
		for _, r := range AllowedRoots {
			if strings.EqualFold(r, expectedRoot) && h.idx.ContainsTerm(text, r) {
				return r
			}
		}
		return ""
	}
	for _, r := range AllowedRoots {
		if h.idx.ContainsTerm(text, r) {
			return r
		}
	}
	return ""
}

// nearestParent returns the name of the first candidate parent sharing a
// sentence with the child, falling back to the first candidate. Empty
// when there are no candidates.
func (h *HierarchyExtractor) nearestParent(sentences []string, child string, candidates []HierarchyNode) string {
	if len(candidates) == 0 {
		return ""
	}
	for _, s := range sentences {
		if !h.idx.ContainsTerm(s, child) {
			continue
		}
		for _, c := range candidates {
			if h.idx.ContainsTerm(s, c.Name) {
				return c.Name
			}
		}
	}
	return candidates[0].Name
}

// extractExercises finds sentences with an imperative marker that mention
// a technique in the same or immediately preceding sentence.
func (h *HierarchyExtractor) extractExercises(sentences []string, techniques []HierarchyNode) []HierarchyNode {
	var out []HierarchyNode
	for i, s := range sentences {
		lower := strings.ToLower(s)
		if !hasExerciseMarker(lower) {
			continue
		}
		var parent string
		for _, t := range techniques {
			if h.idx.ContainsTerm(s, t.Name) || (i > 0 && h.idx.ContainsTerm(sentences[i-1], t.Name)) {
				parent = t.Name
				break
			}
		}
		if parent == "" {
			continue
		}
		node := HierarchyNode{
			Name:         fmt.Sprintf("Упражнение: %s", parent),
			Level:        LevelExercise,
			Parent:       parent,
			RelationType: "is_exercise_for",
			Instructions: s,
			Terms:        termsInSentence(h.idx, s, h.techniques),
		}
		if d := durationRe.FindString(lower); d != "" {
			node.Duration = d
		}
		if f := frequencyRe.FindString(lower); f != "" {
			node.Frequency = f
		} else if strings.Contains(lower, "ежедневно") {
			node.Frequency = "ежедневно"
		}
		out = append(out, node)
	}
	return out
}

// crossConnections links the first two node names mentioned in any
// sentence that also carries a relation marker.
func (h *HierarchyExtractor) crossConnections(sentences []string, hier *ConceptHierarchy) []CrossConnection {
	names := make([]string, 0, 1+len(hier.Domains)+len(hier.Practices)+len(hier.Techniques))
	names = append(names, hier.Root.Name)
	for _, n := range hier.Domains {
		names = append(names, n.Name)
	}
	for _, n := range hier.Practices {
		names = append(names, n.Name)
	}
	for _, n := range hier.Techniques {
		names = append(names, n.Name)
	}

	var out []CrossConnection
	for _, s := range sentences {
		lower := strings.ToLower(s)
		relation := ""
		marker := ""
		for _, rm := range relationMarkers {
			if strings.Contains(lower, rm.marker) {
				relation = rm.relation
				marker = rm.marker
				break
			}
		}
		if relation == "" {
			continue
		}
		mentioned := mentionOrder(lower, names, h.idx, s)
		if len(mentioned) < 2 {
			continue
		}
		out = append(out, CrossConnection{
			From:        mentioned[0],
			To:          mentioned[1],
			Relation:    relation,
			Explanation: fmt.Sprintf("%s %s %s", mentioned[0], marker, mentioned[1]),
			Context:     s,
		})
	}
	return out
}

// mentionOrder returns the node names present in the sentence ordered by
// their literal position, with lemma-only matches appended last in node
// order.
func mentionOrder(lower string, names []string, idx *terminology.Index, sentence string) []string {
	type mention struct {
		name string
		pos  int
	}
	var found []mention
	rank := len(lower) + 1
	for _, name := range names {
		if !idx.ContainsTerm(sentence, name) {
			continue
		}
		pos := strings.Index(lower, strings.ToLower(name))
		if pos < 0 {
			pos = rank
			rank++
		}
		found = append(found, mention{name: name, pos: pos})
	}
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	out := make([]string, len(found))
	for i, m := range found {
		out[i] = m.name
	}
	return out
}

func hasExerciseMarker(lower string) bool {
	for _, m := range exerciseMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func firstSentenceWith(idx *terminology.Index, sentences []string, term string) string {
	for _, s := range sentences {
		if idx.ContainsTerm(s, term) {
			return s
		}
	}
	return ""
}

// validateTree enforces the tree invariants. It returns an empty string
// when the hierarchy is valid, otherwise a diagnostic naming the
// offending node or the shortfall.
func (h *HierarchyExtractor) validateTree(hier *ConceptHierarchy) string {
	rootOK := false
	for _, r := range AllowedRoots {
		if strings.EqualFold(hier.Root.Name, r) {
			rootOK = true
			break
		}
	}
	if !rootOK {
		return fmt.Sprintf("root concept %q is not an allowed root", hier.Root.Name)
	}

	known := map[string]struct{}{strings.ToLower(hier.Root.Name): {}}
	for _, n := range hier.Nodes()[1:] {
		known[strings.ToLower(n.Name)] = struct{}{}
	}
	for _, n := range hier.Nodes()[1:] {
		if _, ok := known[strings.ToLower(n.Parent)]; !ok {
			return fmt.Sprintf("node %q references missing parent %q", n.Name, n.Parent)
		}
	}

	distinct := make(map[string]struct{})
	for _, n := range hier.Nodes() {
		for _, t := range n.Terms {
			distinct[strings.ToLower(t)] = struct{}{}
		}
	}
	if len(distinct) < minChainTerms {
		return fmt.Sprintf("hierarchy carries %d distinct domain terms, need %d", len(distinct), minChainTerms)
	}
	return ""
}

func hierarchyConfidence(domains, practices, techniques int) float64 {
	c := 0.5 +
		min2(0.1*float64(domains), 0.2) +
		min2(0.05*float64(practices), 0.15) +
		min2(0.02*float64(techniques), 0.1)
	if domains > 0 && practices > 0 && techniques > 0 {
		c += 0.05
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
