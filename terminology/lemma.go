package terminology

import (
	"log/slog"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/ru"
)

// Lemmatizer normalizes a single Russian word to its dictionary form.
// Implementations must be safe for concurrent use.
type Lemmatizer interface {
	Lemma(word string) string
}

// golemLemmatizer wraps the golem dictionary lemmatizer.
type golemLemmatizer struct {
	inner *golem.Lemmatizer
}

func (g *golemLemmatizer) Lemma(word string) string {
	return g.inner.LemmaLower(word)
}

// Passthrough is a no-morphology fallback that only lowercases.
// Matching still works for exact word forms, which is enough for
// transcripts where terms mostly appear in nominative case.
type Passthrough struct{}

func (Passthrough) Lemma(word string) string { return strings.ToLower(word) }

// NewLemmatizer returns a dictionary-backed Russian lemmatizer, or a
// Passthrough fallback if the dictionary fails to load.
func NewLemmatizer() Lemmatizer {
	l, err := golem.New(ru.New())
	if err != nil {
		slog.Warn("terminology: lemmatizer unavailable, falling back to exact matching", "error", err)
		return Passthrough{}
	}
	return &golemLemmatizer{inner: l}
}
