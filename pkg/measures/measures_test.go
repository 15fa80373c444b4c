package measures_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
)

var antibodyColumns = []measures.Column{
	measures.Col("antibodyType", "Antibody Type"),
	measures.Col("antibodyName", "Antibody Name"),
	measures.Col("antibodyConcentration", "Antibody Concentration").WithSuffix(" μg/mL"),
}

func antibodyMeasure() measures.Measure {
	return measures.Computed("antibodiesUsedInfo", "Antibodies", func(in *measures.Input) any {
		return in.Flatten("antibodiesUsedInfo", antibodyColumns...)
	})
}

func TestProject_FlattensAntibodyRecords(t *testing.T) {
	t.Parallel()

	answers := model.Answers{"antibodiesUsedInfo": []any{
		map[string]any{"antibodyType": "Primary", "antibodyName": "GFAP-Ab", "antibodyConcentration": 2.0},
	}}
	proj, err := measures.Project([]measures.Measure{antibodyMeasure()}, answers)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	got, ok := proj.Get("antibodiesUsedInfo")
	if !ok {
		t.Fatalf("expected antibody measure")
	}
	want := "Antibody Type: Primary Antibody Name: GFAP-Ab Antibody Concentration: 2 μg/mL "
	if got != want {
		t.Fatalf("flatten mismatch:\nwant %q\ngot  %q", want, got)
	}
	if len(proj.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", proj.Warnings)
	}
}

func TestProject_MissingSubValueIsPlaceholderWithWarning(t *testing.T) {
	t.Parallel()

	answers := model.Answers{"antibodiesUsedInfo": []any{
		map[string]any{"antibodyType": "Secondary", "antibodyName": "Rb-IgG"},
	}}
	proj, err := measures.Project([]measures.Measure{antibodyMeasure()}, answers)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	got, _ := proj.Get("antibodiesUsedInfo")
	want := "Antibody Type: Secondary Antibody Name: Rb-IgG Antibody Concentration:  "
	if got != want {
		t.Fatalf("flatten mismatch:\nwant %q\ngot  %q", want, got)
	}
	wantWarnings := []measures.Warning{{
		Measure: "antibodiesUsedInfo",
		Path:    "antibodiesUsedInfo.0.antibodyConcentration",
		Message: "value absent, substituted empty string",
	}}
	if diff := cmp.Diff(wantWarnings, proj.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestProject_EmptyRecordArrays(t *testing.T) {
	t.Parallel()

	table := measures.Computed("rows", "Rows", func(in *measures.Input) any {
		return in.Table("antibodiesUsedInfo", antibodyColumns...)
	})

	for _, answers := range []model.Answers{
		{},
		{"antibodiesUsedInfo": []any{}},
		{"antibodiesUsedInfo": "garbage"},
	} {
		proj, err := measures.Project([]measures.Measure{antibodyMeasure(), table}, answers)
		if err != nil {
			t.Fatalf("project: %v", err)
		}
		flat, _ := proj.Get("antibodiesUsedInfo")
		if flat != "" {
			t.Fatalf("expected empty string, got %q", flat)
		}
		rows, _ := proj.Get("rows")
		if list, ok := rows.([]map[string]any); !ok || len(list) != 0 {
			t.Fatalf("expected empty list, got %#v", rows)
		}
	}
}

func TestProject_ConstRoundTripsRawValue(t *testing.T) {
	t.Parallel()

	ms := []measures.Measure{
		measures.Const("mouseWeight", "Weight", "mouseWeight"),
		measures.Const("notes", "Notes", ""),
		measures.Const("hidden", "Hidden", "hidden"),
	}
	answers := model.Answers{"mouseWeight": 25.4, "notes": []any{"a", "b"}}

	proj, err := measures.Project(ms, answers)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	want := map[string]any{"mouseWeight": 25.4, "notes": []any{"a", "b"}}
	if diff := cmp.Diff(want, proj.Map()); diff != "" {
		t.Fatalf("projection mismatch (-want +got):\n%s", diff)
	}
}

func TestProject_ComputePanicIsProjectionError(t *testing.T) {
	t.Parallel()

	bad := measures.Computed("bad", "Bad", func(in *measures.Input) any {
		return in.Answers()["x"].(string)
	})
	_, err := measures.Project([]measures.Measure{bad}, model.Answers{})
	var projErr *measures.ProjectionError
	if !errors.As(err, &projErr) || projErr.Measure != "bad" {
		t.Fatalf("expected ProjectionError for bad, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	if err := measures.Check([]measures.Measure{{Key: "a", Kind: measures.KindComputed}}); err == nil {
		t.Fatalf("expected error for computed measure without function")
	}
	if err := measures.Check([]measures.Measure{measures.Const("a", "A", "a"), measures.Const("a", "A", "a")}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := measures.Check([]measures.Measure{measures.Const("a", "A", "a")}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"2":        2,
		"2.5":      2.5,
		"a, b":     []any{"a", "b"},
		"true":     true,
		"":         nil,
		"GFAP-Ab":  "GFAP-Ab",
		"x, y, z":  []string{"x", "y", "z"},
		"1000000":  1e6,
		"0.000001": 0.000001,
	}
	for want, in := range cases {
		if got := measures.FormatValue(in); got != want {
			t.Fatalf("FormatValue(%#v) = %q, want %q", in, got, want)
		}
	}
}
