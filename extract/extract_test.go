package extract

import (
	"testing"

	"github.com/abekenov/termgraph/terminology"
)

// newTestIndex uses the passthrough lemmatizer so matching is exact and
// deterministic.
func newTestIndex(t *testing.T) *terminology.Index {
	t.Helper()
	idx, err := terminology.Load("", "", "", terminology.Passthrough{})
	if err != nil {
		t.Fatalf("loading embedded vocabularies: %v", err)
	}
	return idx
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "mixed punctuation",
			in:   "Первое предложение здесь. Второе предложение тут! Третье предложение там?",
			want: []string{"Первое предложение здесь", "Второе предложение тут", "Третье предложение там"},
		},
		{
			name: "short fragments dropped",
			in:   "Да. Наблюдатель видит всё происходящее. Нет.",
			want: []string{"Наблюдатель видит всё происходящее"},
		},
		{
			name: "trailing text without punctuation",
			in:   "Присутствие ощущается сразу",
			want: []string{"Присутствие ощущается сразу"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSentences(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
