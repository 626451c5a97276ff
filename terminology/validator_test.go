package terminology

import (
	"strings"
	"testing"
)

// denseText carries ten term occurrences in eighteen significant words,
// a density well above the strict floor.
const denseText = "Нейро-сталкинг открывает поле внимания. " +
	"Метанаблюдение и разотождествление дают присутствие и ясность. " +
	"Захват внимания требует центрирование. " +
	"Наблюдатель видит поле восприятия."

const sparseText = "Сегодня хорошая погода и птицы поют за окном очень громко."

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(newTestIndex(t))
}

func TestValidateDenseText(t *testing.T) {
	v := newTestValidator(t)
	res := v.Validate(denseText, DefaultMinDensity, true)
	if !res.IsValid {
		t.Fatalf("dense text rejected: %s", res.Reason)
	}
	if res.Density < DefaultMinDensity {
		t.Errorf("density = %.3f, want >= %.2f", res.Density, DefaultMinDensity)
	}
	if res.SignificantWordCount == 0 || res.Occurrences == 0 {
		t.Errorf("empty breakdown: %+v", res)
	}
	if len(res.Entities) < 5 {
		t.Errorf("entities = %v, want at least 5", res.Entities)
	}
}

func TestValidateLowDensity(t *testing.T) {
	v := newTestValidator(t)
	res := v.Validate(sparseText, DefaultMinDensity, false)
	if res.IsValid {
		t.Fatal("sparse text accepted")
	}
	if !strings.Contains(res.Reason, "density") {
		t.Errorf("reason = %q, want a density shortfall", res.Reason)
	}
	if len(res.Entities) != 0 {
		t.Errorf("rejected result carries entities: %v", res.Entities)
	}
}

func TestValidateEmptyText(t *testing.T) {
	v := newTestValidator(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		if res := v.Validate(text, DefaultMinDensity, true); res.IsValid {
			t.Errorf("empty input %q accepted", text)
		}
	}
}

func TestStrictModeForbiddenTerms(t *testing.T) {
	v := newTestValidator(t)
	text := "Эго мешает практике. " + denseText

	res := v.Validate(text, DefaultMinDensity, true)
	if res.IsValid {
		t.Fatal("text with forbidden term accepted in strict mode")
	}
	if len(res.ForbiddenTermsFound) == 0 {
		t.Fatal("forbidden terms not reported")
	}
	if !strings.Contains(res.Reason, "forbidden") {
		t.Errorf("reason = %q, want forbidden-terms category", res.Reason)
	}
	// Strict rejection short-circuits before density is computed.
	if res.Density != 0 || res.SignificantWordCount != 0 || res.Occurrences != 0 {
		t.Errorf("density computed on strict rejection: %+v", res)
	}
}

func TestForbiddenTermsIgnoredWithoutStrict(t *testing.T) {
	v := newTestValidator(t)
	text := "Эго мешает практике. " + denseText
	res := v.Validate(text, SmartMinDensity, false)
	if !res.IsValid {
		t.Fatalf("smart mode rejected on forbidden term: %s", res.Reason)
	}
}

// Raising the floor never turns an invalid result valid.
func TestDensityMonotonicity(t *testing.T) {
	v := newTestValidator(t)
	for _, text := range []string{denseText, sparseText, "Наблюдатель видит присутствие и ясность постоянно."} {
		prev := true
		for _, floor := range []float64{0.05, 0.15, 0.25, 0.5, 0.9} {
			valid := v.Validate(text, floor, false).IsValid
			if valid && !prev {
				t.Fatalf("text became valid again at floor %.2f", floor)
			}
			prev = valid
		}
	}
}

func TestValidateModeFloors(t *testing.T) {
	v := newTestValidator(t)
	// Density between the smart and strict floors.
	text := "Наблюдатель смотрит спокойно. Присутствие ощущается в движении тела и дыхании утром."

	smart := v.ValidateMode(text, ModeSmart)
	strict := v.ValidateMode(text, ModeStrict)
	if !smart.IsValid {
		t.Fatalf("smart mode rejected: %s (density %.3f)", smart.Reason, smart.Density)
	}
	if strict.IsValid {
		t.Fatalf("strict mode accepted density %.3f", strict.Density)
	}
	if off := v.ValidateMode(text, ModeOff); off.IsValid != smart.IsValid {
		t.Error("off mode diverges from smart")
	}
}

func TestSoftModeExcusesExplainedForbiddenTerm(t *testing.T) {
	v := newTestValidator(t)

	explained := "Эго, то есть я-образ, растворяется. " + denseText
	if res := v.ValidateMode(explained, ModeSoft); !res.IsValid {
		t.Fatalf("explained forbidden term rejected: %s", res.Reason)
	}

	bare := "Эго очень сильное у всех людей. Сегодня погода хорошая, птицы поют, солнце светит в окно."
	if res := v.ValidateMode(bare, ModeSoft); res.IsValid {
		t.Fatal("bare forbidden term accepted in soft mode")
	}
}

func TestReplaceForbiddenTerms(t *testing.T) {
	v := newTestValidator(t)
	cases := []struct {
		in   string
		want string
	}{
		{"эго мешает", "я-образ мешает"},
		{"Эго мешает", "я-образ мешает"},
		{"альтер-эго мешает", "альтер-эго мешает"}, // compound stays intact
		{"эго эго", "я-образ я-образ"},
		{"медитация каждый день", "центрирование на присутствии каждый день"},
	}
	for _, tc := range cases {
		if got := v.ReplaceForbiddenTerms(tc.in); got != tc.want {
			t.Errorf("ReplaceForbiddenTerms(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
