package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/model"
)

func mustEval(t *testing.T, rule string, answers model.Answers) bool {
	t.Helper()
	ok, err := Eval(rule, answers)
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", rule, err)
	}
	return ok
}

func TestEvaluatorBooleanComparison(t *testing.T) {
	t.Parallel()

	if !mustEval(t, "enabled == true", model.Answers{"enabled": true}) {
		t.Fatalf("expected true")
	}
	if !mustEval(t, "enabled == true", model.Answers{"enabled": "true"}) {
		t.Fatalf("expected true for string true")
	}
	if mustEval(t, "enabled == true", model.Answers{}) {
		t.Fatalf("expected false for missing value")
	}
}

func TestEvaluatorTruthyAndNot(t *testing.T) {
	t.Parallel()

	if !mustEval(t, "enabled", model.Answers{"enabled": true}) {
		t.Fatalf("expected true")
	}
	if !mustEval(t, "!enabled", model.Answers{"enabled": false}) {
		t.Fatalf("expected true for !false")
	}
	if !mustEval(t, "not enabled", model.Answers{}) {
		t.Fatalf("expected true for missing value negated")
	}
}

func TestEvaluatorStringComparison(t *testing.T) {
	t.Parallel()

	answers := model.Answers{"reason": "other"}
	if !mustEval(t, `reason == "other"`, answers) {
		t.Fatalf("expected equality to hold")
	}
	if !mustEval(t, `reason != 'euthanasia'`, answers) {
		t.Fatalf("expected inequality to hold")
	}
	if !mustEval(t, `reason == other`, answers) {
		t.Fatalf("expected bare word to compare as string")
	}
}

func TestEvaluatorNumericComparison(t *testing.T) {
	t.Parallel()

	cases := []struct {
		rule string
		want bool
	}{
		{"weight > 20", true},
		{"weight >= 22.5", true},
		{"weight < 22.5", false},
		{"weight <= 22.5", true},
		{"weight == 22.5", true},
		{"missing > 0", false},
		{"missing < 0", false},
	}
	for _, tc := range cases {
		if got := mustEval(t, tc.rule, model.Answers{"weight": 22.5}); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.rule, tc.want, got)
		}
	}
}

func TestEvaluatorMembership(t *testing.T) {
	t.Parallel()

	answers := model.Answers{
		"reason":   "b",
		"symptoms": []any{"tremor", "lethargy"},
		"count":    3.0,
	}
	if !mustEval(t, `reason in ["a", "b"]`, answers) {
		t.Fatalf("expected reason in list")
	}
	if mustEval(t, `reason in ["x"]`, answers) {
		t.Fatalf("expected reason not in list")
	}
	if !mustEval(t, `count in [1, 3]`, answers) {
		t.Fatalf("expected numeric membership")
	}
	if !mustEval(t, `symptoms contains "tremor"`, answers) {
		t.Fatalf("expected set membership")
	}
	if mustEval(t, `missing in ["a"]`, answers) {
		t.Fatalf("expected missing value to be outside every list")
	}
}

func TestEvaluatorComposition(t *testing.T) {
	t.Parallel()

	answers := model.Answers{"a": true, "b": false, "reason": "x"}
	if !mustEval(t, `a && (b || reason == "x")`, answers) {
		t.Fatalf("expected composed rule to hold")
	}
	if mustEval(t, `a and b`, answers) {
		t.Fatalf("expected keyword and to short-circuit false")
	}
}

func TestEvaluatorDotLookup(t *testing.T) {
	t.Parallel()

	answers := model.Answers{"cta": map[string]any{"headline": "Hello"}}
	if !mustEval(t, `cta.headline == "Hello"`, answers) {
		t.Fatalf("expected nested lookup to match")
	}
	if !mustEval(t, `cta.headline != ""`, model.Answers{"cta.headline": "Hello"}) {
		t.Fatalf("expected flattened dotted key to match")
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		"a = 1",
		"a & b",
		`a == "open`,
		"(a",
		"a > \"x\"",
		"a in b",
		"a in [1, 2",
		"== 1",
	} {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected compile error for %q", rule)
		}
	}
}

func TestProgramIdentifiers(t *testing.T) {
	t.Parallel()

	prog := MustCompile(`reason == "x" || (cta.headline && reason != "y") || weight > 1`)
	if diff := cmp.Diff([]string{"cta", "reason", "weight"}, prog.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyRuleIsAlwaysTrue(t *testing.T) {
	t.Parallel()

	if !mustEval(t, "   ", nil) {
		t.Fatalf("expected empty rule to evaluate true")
	}
}
