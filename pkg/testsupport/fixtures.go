// Package testsupport holds golden-file and fixture helpers shared by
// package tests. Set UPDATE_GOLDENS=1 to rewrite goldens from current
// output.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/definition"
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/model"
)

// UpdateGoldens reports whether goldens should be rewritten.
func UpdateGoldens() bool {
	return os.Getenv("UPDATE_GOLDENS") != ""
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if !UpdateGoldens() {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGolden compares got with the golden file byte for byte.
func AssertGolden(t *testing.T, path string, got []byte) {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return
	}
	if diff := cmp.Diff(string(MustReadGolden(t, path)), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// AssertGoldenJSON marshals value and compares it with the golden file as
// decoded JSON, so key order and indentation do not matter.
func AssertGoldenJSON(t *testing.T, path string, value any) {
	t.Helper()
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden value: %v", err)
	}
	if WriteMaybeGolden(t, path, append(payload, '\n')) {
		return
	}

	var want, got any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// MustLoadAnswers reads a JSON answers fixture.
func MustLoadAnswers(t *testing.T, path string) model.Answers {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read answers: %v", err)
	}
	answers := model.Answers{}
	if err := json.Unmarshal(data, &answers); err != nil {
		t.Fatalf("decode answers %s: %v", path, err)
	}
	return answers
}

// MustParseInstrument parses a definition fixture.
func MustParseInstrument(t *testing.T, path string) *instrument.Instrument {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read definition: %v", err)
	}
	inst, err := definition.Parse(data, path)
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	return inst
}
