package lint

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

func newInstrument(content []model.Field, schema validation.Schema) *instrument.Instrument {
	return &instrument.Instrument{
		Kind:    instrument.KindForm,
		ID:      "cages",
		Details: model.Details{Title: "Cages", Description: "d", License: "MIT", EstimatedDuration: 1},
		Content: content,
		Schema:  schema,
	}
}

func codes(report Report) []string {
	out := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		out = append(out, string(issue.Code)+"@"+issue.Field)
	}
	return out
}

func TestCheckCleanInstrument(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{Name: "smoker", Kind: model.FieldKindBoolean},
		visibility.MustConditional("packs", "smoker == true", model.Field{Kind: model.FieldKindNumber}),
	}, validation.Schema{
		{Field: "smoker", Type: validation.TypeBoolean},
		{Field: "packs", Type: validation.TypeNumber, WhenVisible: true},
	})

	report := Check(inst)
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got:\n%s", report.String())
	}
}

func TestCheckRenderPanicOnAbsentDependency(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{Name: "kind", Kind: model.FieldKindString, Options: model.SameOpts("a", "b")},
		{
			Name: "detail",
			Kind: model.FieldKindDynamic,
			Deps: []string{"kind"},
			Render: func(answers model.Answers) *model.Field {
				if answers["kind"].(string) == "a" {
					return &model.Field{Kind: model.FieldKindString}
				}
				return nil
			},
		},
	}, validation.Schema{
		{Field: "kind", Type: validation.TypeEnum},
		{Field: "detail", Type: validation.TypeString},
	})

	report := Check(inst)
	if !report.HasErrors() || !report.Has(CodeRenderPanic) {
		t.Fatalf("expected render panic error, got:\n%s", report.String())
	}
	if !strings.Contains(report.Issues[0].Message, "no answers") {
		t.Fatalf("expected the failing combination in the message, got %q", report.Issues[0].Message)
	}
}

func TestCheckUndeclaredRead(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{
			Name: "organs",
			Kind: model.FieldKindRecordArray,
			Fieldset: []model.Field{
				{Name: "organ", Kind: model.FieldKindString, Options: model.SameOpts("Brain", "Liver")},
				{
					Name: "motive",
					Kind: model.FieldKindDynamic,
					Render: func(answers model.Answers) *model.Field {
						if answers.Is("organ", "Brain") {
							return &model.Field{Kind: model.FieldKindString}
						}
						return nil
					},
				},
			},
		},
	}, validation.Schema{
		{Field: "organs", Type: validation.TypeRecordArray, Element: validation.Schema{
			{Field: "organ", Type: validation.TypeEnum},
			{Field: "motive", Type: validation.TypeString, Optional: true},
		}},
	})

	report := Check(inst)
	if diff := cmp.Diff([]string{"undeclared_read@organs.motive"}, codes(report)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if report.HasErrors() {
		t.Fatalf("undeclared reads are warnings")
	}
	if !strings.Contains(report.Issues[0].Message, "organ") {
		t.Fatalf("expected the read field in the message, got %q", report.Issues[0].Message)
	}
}

func TestCheckNeverAndAlwaysRendered(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{Name: "flag", Kind: model.FieldKindBoolean},
		{
			Name:   "never",
			Kind:   model.FieldKindDynamic,
			Deps:   []string{"flag"},
			Render: func(model.Answers) *model.Field { return nil },
		},
		{
			Name:   "always",
			Kind:   model.FieldKindDynamic,
			Deps:   []string{"flag"},
			Render: func(model.Answers) *model.Field { return &model.Field{Kind: model.FieldKindString} },
		},
		{Name: "unchecked", Kind: model.FieldKindString},
	}, validation.Schema{
		{Field: "flag", Type: validation.TypeBoolean},
		{Field: "never", Type: validation.TypeString, Optional: true},
		{Field: "always", Type: validation.TypeString},
	})

	want := []string{"never_rendered@never", "always_rendered@always", "missing_rule@unchecked"}
	if diff := cmp.Diff(want, codes(Check(inst))); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckOptionalityFollowsReachability(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{Name: "reason", Kind: model.FieldKindString, Options: model.SameOpts("surgery", "endpoint")},
		visibility.MustConditional("cause", `reason == "surgery"`, model.Field{Kind: model.FieldKindString}),
		visibility.MustConditional("method", `reason != "surgery"`, model.Field{Kind: model.FieldKindString, Options: model.SameOpts("perfusion", "decapitation")}),
		visibility.MustConditional("fixative", `method == "perfusion"`, model.Field{Kind: model.FieldKindString}),
		{
			Name:   "remarks",
			Kind:   model.FieldKindDynamic,
			Deps:   []string{"reason"},
			Render: func(model.Answers) *model.Field { return &model.Field{Kind: model.FieldKindString} },
		},
	}, validation.Schema{
		{Field: "reason", Type: validation.TypeEnum},
		{Field: "cause", Type: validation.TypeString},
		{Field: "method", Type: validation.TypeString, WhenVisible: true},
		{Field: "fixative", Type: validation.TypeString, Optional: true},
		{Field: "remarks", Type: validation.TypeString, Optional: true},
	})

	report := Check(inst)
	want := []string{
		"required_hideable@cause",
		"always_rendered@remarks",
		"optional_always_rendered@remarks",
	}
	if diff := cmp.Diff(want, codes(report)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if !report.HasErrors() {
		t.Fatalf("a required hideable field must be an error")
	}
}

func TestCheckReportsDefinitionErrors(t *testing.T) {
	t.Parallel()

	inst := newInstrument([]model.Field{
		{Name: "a", Kind: model.FieldKindDynamic, Deps: []string{"b"}, Render: func(model.Answers) *model.Field { return nil }},
		{Name: "b", Kind: model.FieldKindString},
	}, nil)

	report := Check(inst)
	if diff := cmp.Diff([]string{"definition@a"}, codes(report)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestCombinationsRespectLimit(t *testing.T) {
	t.Parallel()

	samples := map[string][]any{
		"a": {absent{}, 1.0, 2.0},
		"b": {absent{}, true, false},
	}
	l := &linter{maxCombinations: 100}
	if got := len(l.combinations([]string{"a", "b"}, samples)); got != 9 {
		t.Fatalf("expected 9 combinations, got %d", got)
	}
	l.maxCombinations = 4
	combos := l.combinations([]string{"a", "b"}, samples)
	if len(combos) != 4 {
		t.Fatalf("expected 4 combinations, got %d", len(combos))
	}
	if len(combos[0]) != 0 {
		t.Fatalf("first combination should leave every dependency absent, got %v", combos[0])
	}
}

func TestSampleValues(t *testing.T) {
	t.Parallel()

	got := sampleValues(model.Field{Kind: model.FieldKindNumber, Min: model.Float(0), Max: model.Float(10)})
	want := []any{absent{}, 0.0, 10.0, 5.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("samples mismatch (-want +got):\n%s", diff)
	}
}
