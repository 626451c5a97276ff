// Package extract mines validated transcript text for narrative patterns,
// causal process chains, and concept hierarchies. Every extractor gates
// its input through the terminology validator before doing any work.
package extract

import "strings"

// minSentenceRunes drops fragments too short to carry a full thought.
const minSentenceRunes = 10

// SplitSentences splits text on sentence-ending punctuation and drops
// fragments shorter than ten runes.
func SplitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if len([]rune(s)) >= minSentenceRunes {
			out = append(out, s)
		}
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}
