// Package terminology loads the three domain vocabularies (tiered terms,
// forbidden terms, categories) and answers lemma-normalized membership
// queries. The loaded Index is immutable and safe for concurrent readers.
package terminology

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrVocabularyNotFound is returned when a vocabulary file is missing.
	ErrVocabularyNotFound = errors.New("terminology: vocabulary file not found")

	// ErrVocabularyMalformed is returned when a vocabulary file is not
	// valid JSON or lacks the expected top-level keys.
	ErrVocabularyMalformed = errors.New("terminology: vocabulary file malformed")
)

//go:embed data/terms.json
var defaultTerms []byte

//go:embed data/forbidden.json
var defaultForbidden []byte

//go:embed data/categories.json
var defaultCategories []byte

// wordRe matches a plain Cyrillic word, used for the significant-word
// denominator.
var wordRe = regexp.MustCompile(`[а-яёА-ЯЁ]+`)

// streamRe matches Cyrillic tokens keeping internal hyphens, so compound
// terms like "нейро-сталкинг" survive tokenization as one token.
var streamRe = regexp.MustCompile(`[а-яёА-ЯЁ-]+`)

// tierKeyRe pulls the tier number out of keys like "tier_3_practice".
var tierKeyRe = regexp.MustCompile(`^tier_(\d)_`)

// Term is one vocabulary entry pinned to a tier.
type Term struct {
	Name  string `json:"term"`
	Tier  int    `json:"tier"`
	Level string `json:"level"`
}

// Category groups key terms used to classify patterns and causal chains.
type Category struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	KeyTerms    []string `json:"key_terms"`
}

type termEntry struct {
	term  Term
	lemma string
}

// Index holds the normalized vocabularies. Construct with Load or Default;
// never mutate after construction.
type Index struct {
	lem Lemmatizer

	terms   map[string]Term // lowercase surface form -> entry
	byLemma map[string]Term // lemmatized form -> entry
	entries []termEntry     // longest lemma first, ties by name

	forbidden       []string          // load order
	forbiddenLemmas map[string]string // lemma -> surface form
	allowedGeneral  map[string]struct{}
	replacements    map[string]string
	replaceOrder    []string // longest source first

	categories []Category
}

type tierJSON struct {
	Level       string   `json:"level"`
	Description string   `json:"description"`
	Terms       []string `json:"terms"`
}

type forbiddenJSON struct {
	ForbiddenTerms      []string          `json:"forbidden_terms"`
	AllowedGeneralTerms []string          `json:"allowed_general_terms"`
	Replacements        map[string]string `json:"replacements"`
}

type categoriesJSON struct {
	Categories map[string]struct {
		Description string   `json:"description"`
		KeyTerms    []string `json:"key_terms"`
	} `json:"categories"`
}

// Load reads the three vocabulary files and builds an Index. Any empty
// path falls back to the embedded default vocabulary for that source.
func Load(termsPath, forbiddenPath, categoriesPath string, lem Lemmatizer) (*Index, error) {
	if lem == nil {
		lem = Passthrough{}
	}
	termsRaw, err := readSource(termsPath, defaultTerms)
	if err != nil {
		return nil, err
	}
	forbiddenRaw, err := readSource(forbiddenPath, defaultForbidden)
	if err != nil {
		return nil, err
	}
	categoriesRaw, err := readSource(categoriesPath, defaultCategories)
	if err != nil {
		return nil, err
	}
	return build(termsRaw, forbiddenRaw, categoriesRaw, lem)
}

// Default builds an Index from the embedded vocabularies.
func Default(lem Lemmatizer) *Index {
	idx, err := Load("", "", "", lem)
	if err != nil {
		// Embedded data is validated at build time.
		panic(fmt.Sprintf("terminology: embedded vocabulary invalid: %v", err))
	}
	return idx
}

func readSource(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrVocabularyNotFound, path)
		}
		return nil, fmt.Errorf("terminology: reading %s: %w", path, err)
	}
	return raw, nil
}

func build(termsRaw, forbiddenRaw, categoriesRaw []byte, lem Lemmatizer) (*Index, error) {
	var tiers map[string]tierJSON
	if err := json.Unmarshal(termsRaw, &tiers); err != nil || len(tiers) == 0 {
		return nil, fmt.Errorf("%w: terms", ErrVocabularyMalformed)
	}
	var forb forbiddenJSON
	if err := json.Unmarshal(forbiddenRaw, &forb); err != nil || forb.ForbiddenTerms == nil {
		return nil, fmt.Errorf("%w: forbidden (missing forbidden_terms)", ErrVocabularyMalformed)
	}
	var cats categoriesJSON
	if err := json.Unmarshal(categoriesRaw, &cats); err != nil || cats.Categories == nil {
		return nil, fmt.Errorf("%w: categories (missing categories)", ErrVocabularyMalformed)
	}

	idx := &Index{
		lem:             lem,
		terms:           make(map[string]Term),
		byLemma:         make(map[string]Term),
		forbiddenLemmas: make(map[string]string),
		allowedGeneral:  make(map[string]struct{}),
		replacements:    make(map[string]string),
	}

	tierKeys := make([]string, 0, len(tiers))
	for k := range tiers {
		tierKeys = append(tierKeys, k)
	}
	sort.Strings(tierKeys)
	for _, key := range tierKeys {
		m := tierKeyRe.FindStringSubmatch(key)
		if m == nil {
			return nil, fmt.Errorf("%w: terms key %q", ErrVocabularyMalformed, key)
		}
		tier := int(m[1][0] - '0')
		info := tiers[key]
		if info.Level == "" || len(info.Terms) == 0 {
			return nil, fmt.Errorf("%w: terms key %q", ErrVocabularyMalformed, key)
		}
		for _, name := range info.Terms {
			lower := strings.ToLower(name)
			t := Term{Name: name, Tier: tier, Level: info.Level}
			idx.terms[lower] = t
			lemma := idx.LemmaPhrase(lower)
			idx.byLemma[lemma] = t
			idx.entries = append(idx.entries, termEntry{term: t, lemma: lemma})
		}
	}
	// Longest lemma first so multi-word terms are matched before their
	// component words.
	sort.Slice(idx.entries, func(i, j int) bool {
		if len(idx.entries[i].lemma) != len(idx.entries[j].lemma) {
			return len(idx.entries[i].lemma) > len(idx.entries[j].lemma)
		}
		return idx.entries[i].term.Name < idx.entries[j].term.Name
	})

	for _, f := range forb.ForbiddenTerms {
		lower := strings.ToLower(f)
		idx.forbidden = append(idx.forbidden, lower)
		idx.forbiddenLemmas[idx.LemmaPhrase(lower)] = lower
	}
	for _, a := range forb.AllowedGeneralTerms {
		idx.allowedGeneral[idx.LemmaPhrase(strings.ToLower(a))] = struct{}{}
	}
	for src, dst := range forb.Replacements {
		idx.replacements[strings.ToLower(src)] = dst
	}
	for src := range idx.replacements {
		idx.replaceOrder = append(idx.replaceOrder, src)
	}
	sort.Slice(idx.replaceOrder, func(i, j int) bool {
		if len(idx.replaceOrder[i]) != len(idx.replaceOrder[j]) {
			return len(idx.replaceOrder[i]) > len(idx.replaceOrder[j])
		}
		return idx.replaceOrder[i] < idx.replaceOrder[j]
	})

	catNames := make([]string, 0, len(cats.Categories))
	for name := range cats.Categories {
		catNames = append(catNames, name)
	}
	sort.Strings(catNames)
	for _, name := range catNames {
		c := cats.Categories[name]
		idx.categories = append(idx.categories, Category{
			Name:        name,
			Description: c.Description,
			KeyTerms:    c.KeyTerms,
		})
	}

	return idx, nil
}

// Lemma normalizes a single word.
func (x *Index) Lemma(word string) string { return x.lem.Lemma(strings.ToLower(word)) }

// LemmaPhrase lemmatizes a phrase word-by-word, preserving the original
// space and hyphen separators.
func (x *Index) LemmaPhrase(phrase string) string {
	var b strings.Builder
	start := 0
	flush := func(end int) {
		if end > start {
			b.WriteString(x.Lemma(phrase[start:end]))
		}
	}
	for i, r := range phrase {
		if r == ' ' || r == '-' {
			flush(i)
			b.WriteRune(r)
			start = i + len(" ")
		}
	}
	flush(len(phrase))
	return b.String()
}

// LemmaStream tokenizes text into Cyrillic tokens (hyphens kept) and
// lemmatizes each.
func (x *Index) LemmaStream(text string) []string {
	tokens := streamRe.FindAllString(text, -1)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, x.LemmaPhrase(strings.ToLower(tok)))
	}
	return out
}

// SignificantWords returns lemmatized Cyrillic words with stopwords and
// words of two letters or fewer removed.
func (x *Index) SignificantWords(text string) []string {
	var out []string
	for _, tok := range wordRe.FindAllString(text, -1) {
		lemma := x.Lemma(strings.ToLower(tok))
		if IsStopword(lemma) || len([]rune(lemma)) <= 2 {
			continue
		}
		out = append(out, lemma)
	}
	return out
}

// CountOccurrences counts how many times the term's lemma appears in the
// text. Single-token terms are counted exactly against the lemma stream;
// space-separated terms use substring counting over the joined stream,
// which can overcount at adjacent-lemma collisions.
func (x *Index) CountOccurrences(text, term string) int {
	lemma := x.LemmaPhrase(strings.ToLower(term))
	stream := x.LemmaStream(text)
	return countInStream(stream, lemma)
}

func countInStream(stream []string, lemma string) int {
	if strings.Contains(lemma, " ") {
		return strings.Count(strings.Join(stream, " "), lemma)
	}
	n := 0
	for _, tok := range stream {
		if tok == lemma {
			n++
		}
	}
	return n
}

// FoundTerm is one vocabulary term found in a text with its count.
type FoundTerm struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
	Tier  int    `json:"tier"`
}

// FindTerms scans the text once and returns every vocabulary term present
// with its occurrence count, longest terms first.
func (x *Index) FindTerms(text string) []FoundTerm {
	stream := x.LemmaStream(text)
	var out []FoundTerm
	for _, e := range x.entries {
		if n := countInStream(stream, e.lemma); n > 0 {
			out = append(out, FoundTerm{Term: e.term.Name, Count: n, Tier: e.term.Tier})
		}
	}
	return out
}

// ExtractEntities returns the original-cased vocabulary terms present in
// the text, longest terms checked first, deduplicated case-insensitively
// in first-seen order.
func (x *Index) ExtractEntities(text string) []string {
	stream := x.LemmaStream(text)
	seen := make(map[string]struct{})
	var out []string
	for _, e := range x.entries {
		if countInStream(stream, e.lemma) == 0 {
			continue
		}
		key := strings.ToLower(e.term.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e.term.Name)
	}
	return out
}

// ContainsTerm reports whether the term's lemma occurs in the text.
func (x *Index) ContainsTerm(text, term string) bool {
	return x.CountOccurrences(text, term) > 0
}

// TermTier returns the tier of an exact term string, if it is in the
// vocabulary.
func (x *Index) TermTier(term string) (int, bool) {
	t, ok := x.terms[strings.ToLower(term)]
	if !ok {
		return 0, false
	}
	return t.Tier, true
}

// TermLevel returns the level name of an exact term string.
func (x *Index) TermLevel(term string) (string, bool) {
	t, ok := x.terms[strings.ToLower(term)]
	if !ok {
		return "", false
	}
	return t.Level, true
}

// TermsAtLevel returns all vocabulary terms at the given level, longest
// first.
func (x *Index) TermsAtLevel(level string) []string {
	var out []string
	for _, e := range x.entries {
		if e.term.Level == level {
			out = append(out, e.term.Name)
		}
	}
	return out
}

// ForbiddenIn returns the forbidden terms whose lemmas occur in the text,
// skipping any on the allowed-general override list.
func (x *Index) ForbiddenIn(text string) []string {
	stream := x.LemmaStream(text)
	present := make(map[string]struct{}, len(stream))
	for _, tok := range stream {
		present[tok] = struct{}{}
	}
	joined := " " + strings.Join(stream, " ") + " "
	var out []string
	for lemma, surface := range x.forbiddenLemmas {
		if _, allowed := x.allowedGeneral[lemma]; allowed {
			continue
		}
		if strings.Contains(lemma, " ") {
			if !strings.Contains(joined, " "+lemma+" ") {
				continue
			}
		} else if _, ok := present[lemma]; !ok {
			continue
		}
		out = append(out, surface)
	}
	sort.Strings(out)
	return out
}

// ReplacementFor returns the approved substitute for a forbidden term.
func (x *Index) ReplacementFor(term string) (string, bool) {
	r, ok := x.replacements[strings.ToLower(term)]
	return r, ok
}

// Replacements returns the forbidden-to-approved substitution sources,
// longest first.
func (x *Index) Replacements() []string {
	out := make([]string, len(x.replaceOrder))
	copy(out, x.replaceOrder)
	return out
}

// Categories returns the classification categories in name order.
func (x *Index) Categories() []Category {
	out := make([]Category, len(x.categories))
	copy(out, x.categories)
	return out
}
