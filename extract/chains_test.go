package extract

import (
	"strings"
	"testing"
)

func TestChainExtract(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	res := c.Extract(patternText, "", 0, 0)
	if !res.Valid {
		t.Fatalf("text rejected: %s", res.Reason)
	}
	if len(res.Chains) != 1 {
		t.Fatalf("chains = %d, want 1", len(res.Chains))
	}

	chain := res.Chains[0]
	if chain.Category != "триада_трансформации" {
		t.Errorf("category = %q", chain.Category)
	}
	if len(chain.Stages) != 3 {
		t.Fatalf("stages = %d, want 3", len(chain.Stages))
	}
	if !chain.IsCyclical {
		t.Error("cyclical marker missed")
	}
	if chain.TermDensity != res.Validation.Density {
		t.Errorf("term density = %.3f, want %.3f", chain.TermDensity, res.Validation.Density)
	}
}

// Stage i records its immediate neighbors only: emerges_from i-1 and
// enables i+1, forming a simple adjacency lattice.
func TestChainStageLattice(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	res := c.Extract(patternText, "", 0, 0)
	if !res.Valid || len(res.Chains) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	stages := res.Chains[0].Stages
	for i, st := range stages {
		if st.Index != i+1 {
			t.Errorf("stage %d has index %d", i, st.Index)
		}
		if i == 0 && st.EmergesFrom != nil {
			t.Errorf("first stage emerges from %v", st.EmergesFrom)
		}
		if i > 0 && (len(st.EmergesFrom) != 1 || st.EmergesFrom[0] != i) {
			t.Errorf("stage %d emerges from %v, want [%d]", st.Index, st.EmergesFrom, i)
		}
		if i < len(stages)-1 && (len(st.Enables) != 1 || st.Enables[0] != i+2) {
			t.Errorf("stage %d enables %v, want [%d]", st.Index, st.Enables, i+2)
		}
		if i == len(stages)-1 && st.Enables != nil {
			t.Errorf("last stage enables %v", st.Enables)
		}
	}
}

func TestChainInterventionPoints(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	res := c.Extract(patternText, "", 0, 0)
	if !res.Valid || len(res.Chains) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	points := res.Chains[0].InterventionPoints
	if len(points) == 0 {
		t.Fatal("no intervention points for a chain mentioning known practices")
	}
	for _, p := range points {
		if p.StageIndex < 1 || p.StageIndex > len(res.Chains[0].Stages) {
			t.Errorf("intervention at stage %d outside chain", p.StageIndex)
		}
		if p.ExpectedOutcome == "" {
			t.Errorf("intervention %q without expected outcome", p.PracticeName)
		}
		if !c.idx.ContainsTerm(res.Chains[0].Stages[p.StageIndex-1].Description, p.PracticeName) {
			t.Errorf("intervention %q attached to a stage that does not mention it", p.PracticeName)
		}
	}
}

// A chain that gathers fewer than three distinct domain terms across all
// stages is discarded after construction.
func TestChainDistinctTermFloor(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	// Only two distinct terms, repeated: a relevant category but a thin
	// chain.
	text := "Метанаблюдение раскрывает разотождествление постепенно. " +
		"Метанаблюдение и разотождествление работают вместе."
	res := c.Extract(text, "", 0, 0)
	if !res.Valid {
		t.Fatalf("text rejected: %s", res.Reason)
	}
	if len(res.Chains) != 0 {
		t.Errorf("thin chain survived: %+v", res.Chains)
	}
}

func TestChainCategoryFilter(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	res := c.Extract(patternText, "работа_с_вниманием", 0, 0)
	if !res.Valid {
		t.Fatalf("text rejected: %s", res.Reason)
	}
	// The category needs two key-term hits in the entity list; this text
	// only has one.
	if len(res.Chains) != 0 {
		t.Errorf("irrelevant category produced chains: %+v", res.Chains)
	}
}

func TestChainMaxStages(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	var b strings.Builder
	b.WriteString("Метанаблюдение открывает разотождествление и присутствие. ")
	for i := 0; i < 10; i++ {
		b.WriteString("Разотождествление углубляет присутствие и ясность каждый раз. ")
	}
	res := c.Extract(b.String(), "триада_трансформации", 2, 4)
	if !res.Valid || len(res.Chains) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := len(res.Chains[0].Stages); got != 4 {
		t.Errorf("stages = %d, want capped at 4", got)
	}
}

func TestWholenessMarkers(t *testing.T) {
	c := NewChainExtractor(newTestIndex(t))
	text := "Метанаблюдение открывает разотождествление и присутствие. " +
		"Целостность и интеграция приходят через единство практики."
	res := c.Extract(text, "триада_трансформации", 0, 0)
	if !res.Valid || len(res.Chains) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	markers := res.Chains[0].WholenessMarkers
	if len(markers) < 2 {
		t.Errorf("wholeness markers = %v, want целостность and интеграция at least", markers)
	}
}
