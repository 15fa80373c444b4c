package model_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/model"
)

func TestAnswers_AccessorsAreNilSafe(t *testing.T) {
	var answers model.Answers

	if answers.Has("missing") {
		t.Fatalf("expected nil answers to report absent")
	}
	if got := answers.String("missing"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if _, ok := answers.Number("missing"); ok {
		t.Fatalf("expected number lookup to fail")
	}
	if answers.Bool("missing") {
		t.Fatalf("expected false for missing bool")
	}
	if recs := answers.Records("missing"); recs != nil {
		t.Fatalf("expected nil records, got %v", recs)
	}
}

func TestAnswers_WrongTypesDoNotPanic(t *testing.T) {
	answers := model.Answers{
		"reason": 12,
		"flag":   "yes",
		"list":   "not-a-list",
		"weight": "25",
	}

	if got := answers.String("reason"); got != "" {
		t.Fatalf("expected non-string to read as empty, got %q", got)
	}
	if answers.Bool("flag") {
		t.Fatalf("expected string flag to read as false")
	}
	if recs := answers.Records("list"); recs != nil {
		t.Fatalf("expected nil records for scalar value")
	}
	if _, ok := answers.Number("weight"); ok {
		t.Fatalf("numeric strings must not be coerced")
	}
}

func TestAnswers_RecordsFromJSON(t *testing.T) {
	var answers model.Answers
	payload := `{"items":[{"name":"a"},{"name":"b","dose":2}]}`
	if err := json.Unmarshal([]byte(payload), &answers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	recs := answers.Records("items")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if got := recs[1].String("name"); got != "b" {
		t.Fatalf("record name = %q, want b", got)
	}
	if dose, ok := recs[1].Number("dose"); !ok || dose != 2 {
		t.Fatalf("record dose = %v (%v), want 2", dose, ok)
	}
}

func TestAnswers_StringsAndContains(t *testing.T) {
	answers := model.Answers{
		"regions": []any{"cortex", "hippocampus"},
		"checked": map[string]any{"a": true, "b": false},
	}

	if diff := cmp.Diff([]string{"cortex", "hippocampus"}, answers.Strings("regions")); diff != "" {
		t.Fatalf("strings mismatch (-want +got):\n%s", diff)
	}
	if !answers.Contains("regions", "cortex") {
		t.Fatalf("expected cortex to be selected")
	}
	if !answers.Contains("checked", "a") || answers.Contains("checked", "b") {
		t.Fatalf("unexpected map-set membership")
	}
}

func TestAnswers_CloneIsDeep(t *testing.T) {
	original := model.Answers{
		"items": []any{map[string]any{"name": "a"}},
	}
	clone := original.Clone()
	clone.Records("items")[0]["name"] = "changed"

	if got := original.Records("items")[0].String("name"); got != "a" {
		t.Fatalf("clone mutated original: %q", got)
	}
}

func TestOpts(t *testing.T) {
	got := model.Opts("m", "Male", "f", "Female", "x")
	want := []model.Option{
		{Value: "m", Label: "Male"},
		{Value: "f", Label: "Female"},
		{Value: "x", Label: "x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	field := model.Field{Options: got}
	if label := field.OptionLabel("f"); label != "Female" {
		t.Fatalf("OptionLabel = %q", label)
	}
	if label := field.OptionLabel("unknown"); label != "unknown" {
		t.Fatalf("OptionLabel fallback = %q", label)
	}
}
