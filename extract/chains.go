package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abekenov/termgraph/terminology"
)

// Chain extraction bounds.
const (
	DefaultMinStages = 2
	DefaultMaxStages = 10

	// minChainTerms is the distinct-domain-term floor a constructed
	// chain must reach across all of its stages to survive.
	minChainTerms = 3
)

// chainCategory pairs a process category with the key terms that signal
// it.
type chainCategory struct {
	name     string
	keyTerms []string
}

// chainCategories are the process categories recognized by the chain
// extractor, checked in this order.
var chainCategories = []chainCategory{
	{"триада_трансформации", []string{"наблюдение", "метанаблюдение", "разотождествление", "центрирование", "свидетельствование"}},
	{"работа_с_вниманием", []string{"поле внимания", "захват внимания", "свободное внимание", "расширение поля", "рассеянность"}},
	{"разотождествление", []string{"разотождествление", "отождествление", "идентификация", "я-образ", "наблюдатель"}},
	{"пробуждение_сознания", []string{"пробуждение", "пробуждение сознания", "прозрение", "ясность", "присутствие"}},
	{"интеграция_целостности", []string{"целостность", "интеграция опыта", "эмерджентность", "гомеостаз", "самодостаточность"}},
}

// practiceEntry describes a known intervention practice.
type practiceEntry struct {
	name     string
	triggers []string
	outcome  string
}

// practiceTable maps practices to their trigger phrases and expected
// outcomes, checked in this order.
var practiceTable = []practiceEntry{
	{"метанаблюдение", []string{"захват внимания", "внутренний диалог"}, "свободное внимание"},
	{"центрирование", []string{"рассеянность", "захват внимания"}, "присутствие"},
	{"разотождествление", []string{"отождествление", "идентификация"}, "ясность"},
	{"интеграция опыта", []string{"прозрение", "трансформация"}, "целостность"},
	{"свидетельствование", []string{"автоматическая реакция", "внутренний диалог"}, "чистое осознавание"},
}

// cyclicalMarkers flag a recurring process.
var cyclicalMarkers = []string{
	"снова", "возвращается", "спираль", "цикл", "вновь",
	"повторяется", "периодически", "раз за разом", "каждый раз",
}

// wholenessMarkers flag a systemic, whole-forming process.
var wholenessMarkers = []string{
	"целостность", "интеграция", "эмерджентность", "единство",
	"всё вместе", "как одно", "нераздельность", "полнота",
}

// Stage is one step of a causal chain. EmergesFrom and Enables hold
// 1-based indices of predecessor and successor stages, so the lattice can
// later carry non-linear links even though the current builder only ever
// produces adjacency.
type Stage struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Terms       []string `json:"terms,omitempty"`
	EmergesFrom []int    `json:"emerges_from,omitempty"`
	Enables     []int    `json:"enables,omitempty"`
}

// InterventionPoint marks a stage where a known practice applies.
type InterventionPoint struct {
	StageIndex      int      `json:"stage_index"`
	PracticeName    string   `json:"practice_name"`
	Triggers        []string `json:"triggers,omitempty"`
	ExpectedOutcome string   `json:"expected_outcome"`
}

// CausalChain is one extracted multi-stage process description.
type CausalChain struct {
	ProcessName        string              `json:"process_name"`
	Category           string              `json:"category"`
	Stages             []Stage             `json:"stages"`
	InterventionPoints []InterventionPoint `json:"intervention_points,omitempty"`
	Context            string              `json:"context"`
	SourceQuote        string              `json:"source_quote"`
	Confidence         float64             `json:"confidence"`
	IsCyclical         bool                `json:"is_cyclical"`
	WholenessMarkers   []string            `json:"wholeness_markers,omitempty"`
	TermDensity        float64             `json:"term_density"`
}

// ChainsResult carries the extraction outcome together with the gating
// validation.
type ChainsResult struct {
	Valid      bool               `json:"valid"`
	Reason     string             `json:"reason"`
	Chains     []CausalChain      `json:"chains,omitempty"`
	Validation terminology.Result `json:"validation"`
}

// ChainExtractor finds multi-stage process descriptions and expresses
// them as stage lattices with intervention points.
type ChainExtractor struct {
	idx *terminology.Index
	val *terminology.Validator
}

// NewChainExtractor returns a ChainExtractor over the given index.
func NewChainExtractor(idx *terminology.Index) *ChainExtractor {
	return &ChainExtractor{idx: idx, val: terminology.NewValidator(idx)}
}

// Extract gates the text on density alone (forbidden terms never block
// chain extraction) and builds one chain per relevant category. Passing
// category restricts extraction to that category; empty means all.
func (c *ChainExtractor) Extract(text, category string, minStages, maxStages int) ChainsResult {
	res := c.val.Validate(text, terminology.DefaultMinDensity, false)
	if !res.IsValid {
		return ChainsResult{Reason: res.Reason, Validation: res}
	}
	return c.ExtractValidated(text, res, category, minStages, maxStages)
}

// ExtractValidated builds chains over text already accepted by the
// validator, reusing its entity list.
func (c *ChainExtractor) ExtractValidated(text string, res terminology.Result, category string, minStages, maxStages int) ChainsResult {
	if minStages <= 0 {
		minStages = DefaultMinStages
	}
	if maxStages <= 0 {
		maxStages = DefaultMaxStages
	}

	entitySet := make(map[string]struct{}, len(res.Entities))
	for _, e := range res.Entities {
		entitySet[e] = struct{}{}
	}
	sentences := SplitSentences(text)

	var chains []CausalChain
	for _, cat := range chainCategories {
		if category != "" && cat.name != category {
			continue
		}
		if countKeyTermHits(cat.keyTerms, entitySet) < 2 {
			continue
		}
		chain, ok := c.buildChain(cat, sentences, res, minStages, maxStages)
		if !ok {
			continue
		}
		chains = append(chains, chain)
	}

	slog.Debug("extract: causal chains built", "count", len(chains))
	return ChainsResult{Valid: true, Reason: res.Reason, Chains: chains, Validation: res}
}

func (c *ChainExtractor) buildChain(cat chainCategory, sentences []string, res terminology.Result, minStages, maxStages int) (CausalChain, bool) {
	var stageSentences []string
	for _, s := range sentences {
		if len(termsInSentence(c.idx, s, cat.keyTerms)) > 0 || len(termsInSentence(c.idx, s, res.Entities)) > 0 {
			stageSentences = append(stageSentences, s)
		}
		if len(stageSentences) == maxStages {
			break
		}
	}
	if len(stageSentences) < minStages {
		return CausalChain{}, false
	}

	distinct := make(map[string]struct{})
	stages := make([]Stage, 0, len(stageSentences))
	for i, s := range stageSentences {
		terms := termsInSentence(c.idx, s, res.Entities)
		for _, t := range terms {
			distinct[strings.ToLower(t)] = struct{}{}
		}
		stage := Stage{
			Index:       i + 1,
			Name:        stageName(i+1, terms),
			Description: s,
			Terms:       terms,
		}
		if i > 0 {
			stage.EmergesFrom = []int{i}
		}
		if i < len(stageSentences)-1 {
			stage.Enables = []int{i + 2}
		}
		stages = append(stages, stage)
	}
	if len(distinct) < minChainTerms {
		return CausalChain{}, false
	}

	joined := strings.Join(stageSentences, ". ")
	chain := CausalChain{
		ProcessName:      "Процесс: " + strings.ReplaceAll(cat.name, "_", " "),
		Category:         cat.name,
		Stages:           stages,
		Context:          joined,
		SourceQuote:      stageSentences[0],
		IsCyclical:       containsAnyMarker(joined, cyclicalMarkers),
		WholenessMarkers: presentMarkers(joined, wholenessMarkers),
		TermDensity:      res.Density,
	}
	chain.InterventionPoints = c.interventionPoints(stages, distinct)
	chain.Confidence = chainConfidence(len(stages), len(distinct), systemicStageCount(stages))
	return chain, true
}

func stageName(index int, terms []string) string {
	if len(terms) > 0 {
		return fmt.Sprintf("Этап %d: %s", index, terms[0])
	}
	return fmt.Sprintf("Этап %d", index)
}

// interventionPoints attaches each known practice found among the chain's
// terms to the first stage that mentions it.
func (c *ChainExtractor) interventionPoints(stages []Stage, distinct map[string]struct{}) []InterventionPoint {
	var points []InterventionPoint
	for _, p := range practiceTable {
		if _, ok := distinct[p.name]; !ok {
			continue
		}
		for _, st := range stages {
			if c.idx.ContainsTerm(st.Description, p.name) {
				points = append(points, InterventionPoint{
					StageIndex:      st.Index,
					PracticeName:    p.name,
					Triggers:        p.triggers,
					ExpectedOutcome: p.outcome,
				})
				break
			}
		}
	}
	return points
}

func systemicStageCount(stages []Stage) int {
	n := 0
	for _, s := range stages {
		if len(s.EmergesFrom) > 0 || len(s.Enables) > 0 {
			n++
		}
	}
	return n
}

func chainConfidence(stageCount, termCount, systemicCount int) float64 {
	c := 0.5 +
		min2(0.05*float64(stageCount), 0.2) +
		min2(0.02*float64(termCount), 0.2) +
		min2(0.05*float64(systemicCount), 0.1)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func countKeyTermHits(keyTerms []string, entities map[string]struct{}) int {
	hits := 0
	for _, kt := range keyTerms {
		for e := range entities {
			if strings.EqualFold(e, kt) {
				hits++
				break
			}
		}
	}
	return hits
}

func containsAnyMarker(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func presentMarkers(text string, markers []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, m := range markers {
		if strings.Contains(lower, m) {
			out = append(out, m)
		}
	}
	return out
}
