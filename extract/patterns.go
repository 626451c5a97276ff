package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abekenov/termgraph/terminology"
)

// Pattern is one recognized narrative pattern instance, produced per
// matching sentence.
type Pattern struct {
	Category           string   `json:"category"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	KeyTerms           []string `json:"key_terms"`
	Context            string   `json:"context"`
	RecognitionMarkers []string `json:"recognition_markers"`
	RelatedPractices   []string `json:"related_practices,omitempty"`
	SourceQuote        string   `json:"source_quote"`
	Confidence         float64  `json:"confidence"`
}

// PatternsResult carries the extraction outcome together with the gating
// validation.
type PatternsResult struct {
	Valid      bool               `json:"valid"`
	Reason     string             `json:"reason"`
	Patterns   []Pattern          `json:"patterns,omitempty"`
	Validation terminology.Result `json:"validation"`
}

// PatternExtractor recognizes instances of the closed category set inside
// validated text.
type PatternExtractor struct {
	idx *terminology.Index
	val *terminology.Validator
}

// NewPatternExtractor returns a PatternExtractor over the given index.
func NewPatternExtractor(idx *terminology.Index) *PatternExtractor {
	return &PatternExtractor{idx: idx, val: terminology.NewValidator(idx)}
}

// Extract gates the text, then scans category by category, sentence by
// sentence. A pattern is synthesized for every sentence where at least
// two of a relevant category's key terms appear. Passing categories
// restricts the scan to those names; nil means all.
func (p *PatternExtractor) Extract(text string, minDensity float64, categories []string) PatternsResult {
	res := p.val.Validate(text, minDensity, false)
	if !res.IsValid {
		return PatternsResult{Reason: res.Reason, Validation: res}
	}
	return p.ExtractValidated(text, res, categories)
}

// ExtractValidated runs pattern recognition over text already accepted by
// the validator, reusing its entity list.
func (p *PatternExtractor) ExtractValidated(text string, res terminology.Result, categories []string) PatternsResult {
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	entitySet := make(map[string]struct{}, len(res.Entities))
	for _, e := range res.Entities {
		entitySet[e] = struct{}{}
	}

	sentences := SplitSentences(text)
	var patterns []Pattern
	for _, cat := range p.idx.Categories() {
		if len(wanted) > 0 {
			if _, ok := wanted[cat.Name]; !ok {
				continue
			}
		}
		if !categoryRelevant(cat, entitySet, 1) {
			continue
		}
		for _, sentence := range sentences {
			matched := termsInSentence(p.idx, sentence, cat.KeyTerms)
			if len(matched) < 2 {
				continue
			}
			sentenceEntities := termsInSentence(p.idx, sentence, res.Entities)
			patterns = append(patterns, Pattern{
				Category:           cat.Name,
				Name:               fmt.Sprintf("%s + %s", matched[0], matched[1]),
				Description:        cat.Description,
				KeyTerms:           sentenceEntities,
				Context:            sentence,
				RecognitionMarkers: matched,
				RelatedPractices:   practicesAmong(p.idx, sentenceEntities),
				SourceQuote:        sentence,
				Confidence:         patternConfidence(len(sentenceEntities), len(matched)),
			})
		}
	}

	slog.Debug("extract: patterns recognized", "count", len(patterns))
	return PatternsResult{Valid: true, Reason: res.Reason, Patterns: patterns, Validation: res}
}

func patternConfidence(entityCount, matchedCount int) float64 {
	c := min2(0.15*float64(entityCount), 0.7) + min2(0.1*float64(matchedCount), 0.3)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// categoryRelevant reports whether at least minHits of the category's key
// terms appear in the entity set, case-insensitively.
func categoryRelevant(cat terminology.Category, entities map[string]struct{}, minHits int) bool {
	hits := 0
	for _, kt := range cat.KeyTerms {
		for e := range entities {
			if strings.EqualFold(e, kt) {
				hits++
				break
			}
		}
		if hits >= minHits {
			return true
		}
	}
	return false
}

// termsInSentence returns the subset of terms whose lemmas occur in the
// sentence, preserving the order of terms.
func termsInSentence(idx *terminology.Index, sentence string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if idx.ContainsTerm(sentence, t) {
			out = append(out, t)
		}
	}
	return out
}

func practicesAmong(idx *terminology.Index, terms []string) []string {
	var out []string
	for _, t := range terms {
		if level, ok := idx.TermLevel(t); ok && level == "practice" {
			out = append(out, t)
		}
	}
	return out
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
