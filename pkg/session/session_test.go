package session

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

func sampleInstrument(renders *int) *instrument.Instrument {
	return &instrument.Instrument{
		Kind: instrument.KindForm,
		ID:   "dosing",
		Details: model.Details{
			Title: "Dosing", Description: "d", License: "MIT", EstimatedDuration: 1,
		},
		Content: []model.Field{
			{Name: "treated", Kind: model.FieldKindBoolean},
			{
				Name: "drug",
				Kind: model.FieldKindDynamic,
				Deps: []string{"treated"},
				Render: func(answers model.Answers) *model.Field {
					*renders++
					if !answers.Bool("treated") {
						return nil
					}
					return &model.Field{Kind: model.FieldKindString, Options: model.SameOpts("saline", "drugX")}
				},
			},
			{Name: "notes", Kind: model.FieldKindString},
			{
				Name: "doses",
				Kind: model.FieldKindRecordArray,
				Fieldset: []model.Field{
					{Name: "route", Kind: model.FieldKindString, Options: model.SameOpts("ip", "sc", "other")},
					visibility.MustConditional("routeDetail", `route == "other"`, model.Field{Kind: model.FieldKindString}),
				},
			},
		},
		Schema: validation.Schema{
			{Field: "treated", Type: validation.TypeBoolean},
			{Field: "drug", Type: validation.TypeEnum},
			{Field: "notes", Type: validation.TypeString, Optional: true},
			{Field: "doses", Type: validation.TypeRecordArray, Optional: true, Element: validation.Schema{
				{Field: "route", Type: validation.TypeEnum},
				{Field: "routeDetail", Type: validation.TypeString, NonEmpty: true},
			}},
		},
		Measures: []measures.Measure{
			measures.Const("drug", "Drug", "drug"),
		},
	}
}

func TestSessionSetReportsChanges(t *testing.T) {
	t.Parallel()

	renders := 0
	s, err := New(sampleInstrument(&renders))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if diff := cmp.Diff([]string{"treated", "notes", "doses"}, s.Visible().Names()); diff != "" {
		t.Fatalf("initial visible mismatch (-want +got):\n%s", diff)
	}

	change, err := s.Set("treated", true)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff(Change{Shown: []string{"drug"}}, change); diff != "" {
		t.Fatalf("change mismatch (-want +got):\n%s", diff)
	}

	change, err = s.Set("notes", "calm")
	if err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if !change.Empty() {
		t.Fatalf("expected no change, got %+v", change)
	}
	if !s.Visible().Has("drug") {
		t.Fatalf("drug must stay visible after an unrelated change")
	}

	if _, err := s.Unset("treated"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if diff := cmp.Diff(Change{Hidden: []string{"drug"}}, s.Changes()); diff != "" {
		t.Fatalf("change mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionRecordElements(t *testing.T) {
	t.Parallel()

	renders := 0
	s, err := New(sampleInstrument(&renders))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	idx, _, err := s.Append("doses")
	if err != nil || idx != 0 {
		t.Fatalf("append: idx=%d err=%v", idx, err)
	}
	change, err := s.Set("doses.0.route", "other")
	if err != nil {
		t.Fatalf("set route: %v", err)
	}
	if diff := cmp.Diff(Change{Shown: []string{"doses.0.routeDetail"}}, change); diff != "" {
		t.Fatalf("change mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Set("doses.1.route", "ip"); err != nil {
		t.Fatalf("set second: %v", err)
	}
	if got, _ := s.Value("doses.1.route"); got != "ip" {
		t.Fatalf("expected ip, got %v", got)
	}

	change, err = s.Remove("doses", 0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	doses, _ := s.Visible().Lookup("doses")
	if len(doses.Records) != 1 || doses.Records[0].Has("routeDetail") {
		t.Fatalf("expected one ip element, got %+v", doses.Records)
	}
	if len(change.Hidden) == 0 {
		t.Fatalf("expected hidden paths after removal")
	}

	if _, _, err := s.Append("notes"); !errors.Is(err, ErrNotRecordArray) {
		t.Fatalf("expected ErrNotRecordArray, got %v", err)
	}
	if _, err := s.Set("unknown", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSessionSubmitFinalizes(t *testing.T) {
	t.Parallel()

	renders := 0
	s, err := New(sampleInstrument(&renders), WithAnswers(model.Answers{"treated": true}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = s.Submit()
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"drug": {"Required"}}, verrs.Fields()); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if s.Finalized() {
		t.Fatalf("rejected submission must not finalize")
	}

	if _, err := s.Set("drug", "drugX"); err != nil {
		t.Fatalf("set drug: %v", err)
	}
	result, err := s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := result.Measures.Map()["drug"]; got != "drugX" {
		t.Fatalf("expected drugX measure, got %v", got)
	}

	if _, err := s.Set("notes", "late"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if _, err := s.Submit(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized on resubmit, got %v", err)
	}
}

func TestSessionMatchesFullResolve(t *testing.T) {
	t.Parallel()

	renders := 0
	inst := sampleInstrument(&renders)
	s, err := New(inst)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	steps := []struct {
		path  string
		value any
	}{
		{"treated", true},
		{"doses.0.route", "sc"},
		{"treated", false},
		{"doses.0.route", "other"},
	}
	for _, step := range steps {
		if _, err := s.Set(step.path, step.value); err != nil {
			t.Fatalf("set %s: %v", step.path, err)
		}
		full, err := inst.Resolve(s.Answers())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !full.Equal(s.Visible()) {
			t.Fatalf("after %s: incremental %v != full %v", step.path, s.Visible().Paths(), full.Paths())
		}
	}
}

func TestSetPathGrowsRecords(t *testing.T) {
	t.Parallel()

	root := model.Answers{}
	if err := setPath(root, "items.2.name", "c"); err != nil {
		t.Fatalf("setPath: %v", err)
	}
	want := model.Answers{"items": []any{map[string]any{}, map[string]any{}, map[string]any{"name": "c"}}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if err := setPath(root, "items.x", 1); err == nil {
		t.Fatalf("expected index error")
	}
}

func TestSessionMapErrorsFollowsVisibility(t *testing.T) {
	t.Parallel()

	renders := 0
	s, err := New(sampleInstrument(&renders))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	payload := map[string][]string{"/body/drug": {"not stocked"}}

	hidden := s.MapErrors(payload)
	if len(hidden.Fields) != 0 {
		t.Fatalf("hidden drug must not receive field errors, got %v", hidden.Fields)
	}
	if diff := cmp.Diff([]string{"not stocked"}, hidden.Form); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Set("treated", true); err != nil {
		t.Fatalf("set treated: %v", err)
	}
	shown := s.MapErrors(payload)
	if diff := cmp.Diff(map[string][]string{"drug": {"not stocked"}}, shown.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(shown.Form) != 0 {
		t.Fatalf("expected no form errors, got %v", shown.Form)
	}
}

func TestSessionFollowsUndeclaredReads(t *testing.T) {
	t.Parallel()

	inst := &instrument.Instrument{
		Kind:    instrument.KindForm,
		ID:      "undeclared",
		Details: model.Details{Title: "Undeclared", Description: "d", License: "MIT", EstimatedDuration: 1},
		Content: []model.Field{
			{Name: "a", Kind: model.FieldKindBoolean},
			{Name: "b", Kind: model.FieldKindBoolean},
			{
				Name: "c",
				Kind: model.FieldKindDynamic,
				Deps: []string{"a"},
				Render: func(answers model.Answers) *model.Field {
					if answers.Bool("a") && answers.Bool("b") {
						return &model.Field{Kind: model.FieldKindString}
					}
					return nil
				},
			},
		},
	}
	s, err := New(inst)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	steps := []struct {
		path  string
		value any
		want  []string
	}{
		{"a", true, []string{"a", "b"}},
		{"b", true, []string{"a", "b", "c"}},
		{"b", false, []string{"a", "b"}},
	}
	for _, step := range steps {
		if _, err := s.Set(step.path, step.value); err != nil {
			t.Fatalf("set %s: %v", step.path, err)
		}
		full, err := inst.Resolve(s.Answers())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if diff := cmp.Diff(full.Paths(), s.Visible().Paths()); diff != "" {
			t.Fatalf("after %s=%v session diverged from full resolve (-full +session):\n%s", step.path, step.value, diff)
		}
		if diff := cmp.Diff(step.want, s.Visible().Paths()); diff != "" {
			t.Fatalf("after %s=%v visible mismatch (-want +got):\n%s", step.path, step.value, diff)
		}
	}
}
