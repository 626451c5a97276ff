package terminology

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Validation mode names accepted in configuration.
const (
	ModeSmart  = "smart"  // density floor only, forbidden terms ignored
	ModeSoft   = "soft"   // forbidden terms allowed in explanatory context
	ModeStrict = "strict" // forbidden terms reject before density is computed
	ModeOff    = "off"    // alias of smart; the density floor always applies
)

// Density floors per mode.
const (
	DefaultMinDensity = 0.25
	SmartMinDensity   = 0.15

	// contextualDensity is the floor above which soft mode excuses
	// forbidden terms without further context checks.
	contextualDensity = 0.35

	// Soft-mode proximity windows, in runes.
	replacementWindow = 100
	explanationWindow = 50
)

// explanationMarkers signal that a forbidden term is being discussed or
// translated rather than used.
var explanationMarkers = []string{
	"то есть",
	"другими словами",
	"иначе говоря",
	"так называем",
	"не путать",
	"в отличие от",
}

// Result is the outcome of one validation call. A rejection is a normal
// result with IsValid=false, never an error.
type Result struct {
	IsValid              bool        `json:"is_valid"`
	Reason               string      `json:"reason"`
	Density              float64     `json:"density"`
	Occurrences          int         `json:"occurrences"`
	SignificantWordCount int         `json:"significant_word_count"`
	FoundTerms           []FoundTerm `json:"found_terms,omitempty"`
	ForbiddenTermsFound  []string    `json:"forbidden_terms_found,omitempty"`
	Entities             []string    `json:"entities,omitempty"`
}

// Validator gates text on domain-term density and, optionally, on
// forbidden-vocabulary purity. Extractors must not run on text it has
// not accepted.
type Validator struct {
	idx *Index
}

// NewValidator returns a Validator over the given vocabulary index.
func NewValidator(idx *Index) *Validator {
	return &Validator{idx: idx}
}

// Validate checks the text against the density floor and, when strictMode
// is set, against the forbidden vocabulary. The forbidden check runs
// first and short-circuits: density is not computed for a strict
// rejection.
func (v *Validator) Validate(text string, minDensity float64, strictMode bool) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Reason: "empty text"}
	}

	if strictMode {
		if forbidden := v.idx.ForbiddenIn(text); len(forbidden) > 0 {
			slog.Debug("validator: text rejected", "reason", "forbidden terms", "terms", forbidden)
			return Result{
				Reason:              fmt.Sprintf("forbidden terms found: %s", strings.Join(forbidden, ", ")),
				ForbiddenTermsFound: forbidden,
			}
		}
	}

	return v.densityResult(text, minDensity)
}

// ValidateMode runs Validate with the mode's floor and forbidden policy.
// Unknown modes fall back to smart.
func (v *Validator) ValidateMode(text string, mode string) Result {
	switch mode {
	case ModeStrict:
		return v.Validate(text, DefaultMinDensity, true)
	case ModeSoft:
		return v.validateSoft(text)
	case ModeSmart, ModeOff:
		return v.Validate(text, SmartMinDensity, false)
	default:
		slog.Warn("validator: unknown mode, using smart", "mode", mode)
		return v.Validate(text, SmartMinDensity, false)
	}
}

// validateSoft accepts forbidden terms that appear in explanatory context:
// high overall density, an approved replacement nearby, or an explanation
// marker nearby. Any other forbidden use rejects.
func (v *Validator) validateSoft(text string) Result {
	forbidden := v.idx.ForbiddenIn(text)
	if len(forbidden) == 0 {
		return v.densityResult(text, SmartMinDensity)
	}

	res := v.densityResult(text, SmartMinDensity)
	if res.Density >= contextualDensity {
		res.ForbiddenTermsFound = forbidden
		return res
	}

	lower := []rune(strings.ToLower(text))
	var blocked []string
	for _, term := range forbidden {
		if v.excusedInContext(lower, term) {
			continue
		}
		blocked = append(blocked, term)
	}
	if len(blocked) > 0 {
		return Result{
			Reason:              fmt.Sprintf("forbidden terms found: %s", strings.Join(blocked, ", ")),
			ForbiddenTermsFound: blocked,
		}
	}
	res.ForbiddenTermsFound = forbidden
	return res
}

// excusedInContext reports whether every literal occurrence of the term
// sits near its approved replacement or an explanation marker. Inflected
// occurrences have no literal position and are not excusable.
func (v *Validator) excusedInContext(lower []rune, term string) bool {
	termRunes := []rune(strings.ToLower(term))
	positions := runeIndexAll(lower, termRunes)
	if len(positions) == 0 {
		return false
	}
	replacement, hasRepl := v.idx.ReplacementFor(term)
	for _, pos := range positions {
		ok := false
		if hasRepl && nearbyContains(lower, pos, replacementWindow, strings.ToLower(replacement)) {
			ok = true
		}
		if !ok {
			for _, marker := range explanationMarkers {
				if nearbyContains(lower, pos, explanationWindow, marker) {
					ok = true
					break
				}
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func runeIndexAll(haystack, needle []rune) []int {
	var out []int
	if len(needle) == 0 {
		return out
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

func nearbyContains(text []rune, pos, window int, needle string) bool {
	lo := pos - window
	if lo < 0 {
		lo = 0
	}
	hi := pos + window
	if hi > len(text) {
		hi = len(text)
	}
	return strings.Contains(string(text[lo:hi]), needle)
}

func (v *Validator) densityResult(text string, minDensity float64) Result {
	significant := v.idx.SignificantWords(text)
	found := v.idx.FindTerms(text)

	occurrences := 0
	for _, f := range found {
		occurrences += f.Count
	}

	density := 0.0
	if len(significant) > 0 {
		density = float64(occurrences) / float64(len(significant))
	}

	res := Result{
		Density:              density,
		Occurrences:          occurrences,
		SignificantWordCount: len(significant),
		FoundTerms:           found,
	}
	if density < minDensity {
		res.Reason = fmt.Sprintf("terminology density %.3f below required %.2f", density, minDensity)
		slog.Debug("validator: text rejected", "reason", "low density", "density", density, "required", minDensity)
		return res
	}

	res.IsValid = true
	res.Reason = fmt.Sprintf("terminology density %.3f meets required %.2f", density, minDensity)
	res.Entities = v.idx.ExtractEntities(text)
	return res
}

// ReplaceForbiddenTerms substitutes approved terminology for forbidden
// terms, whole-word and case-insensitive. Remediation utility only; it
// plays no part in gating.
func (v *Validator) ReplaceForbiddenTerms(text string) string {
	for _, src := range v.idx.Replacements() {
		repl, _ := v.idx.ReplacementFor(src)
		re := regexp.MustCompile(`(?i)(^|[^\p{L}-])` + regexp.QuoteMeta(src) + `($|[^\p{L}-])`)
		// Two passes: the closing boundary of one match can swallow the
		// opening boundary of an adjacent occurrence.
		for i := 0; i < 2; i++ {
			replaced := re.ReplaceAllString(text, "${1}"+repl+"${2}")
			if replaced == text {
				break
			}
			text = replaced
		}
	}
	return text
}
