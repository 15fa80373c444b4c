// Package measures projects a validated answer set into the report-facing
// values an instrument declares. A const measure passes a field value
// through unchanged; a computed measure applies a pure function to the
// whole answer set.
package measures

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Kind distinguishes passthrough from computed measures.
type Kind string

const (
	KindConst    Kind = "const"
	KindComputed Kind = "computed"
)

// ComputeFunc derives a measure value. It must not mutate the answers.
type ComputeFunc func(in *Input) any

// Measure is one declared report value. Ref names the field of a const
// measure and defaults to Key.
type Measure struct {
	Key     string
	Label   string
	Kind    Kind
	Ref     string
	Compute ComputeFunc
}

// Const declares a passthrough measure for field.
func Const(key, label, field string) Measure {
	return Measure{Key: key, Label: label, Kind: KindConst, Ref: field}
}

// Computed declares a measure computed by fn.
func Computed(key, label string, fn ComputeFunc) Measure {
	return Measure{Key: key, Label: label, Kind: KindComputed, Compute: fn}
}

// Field returns the field a const measure reads.
func (m Measure) Field() string {
	if strings.TrimSpace(m.Ref) != "" {
		return m.Ref
	}
	return m.Key
}

// Value is one projected measure.
type Value struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
	Value any    `json:"value"`
}

// Warning notes a placeholder substituted during projection. It is not an
// error.
type Warning struct {
	Measure string `json:"measure"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Measure, w.Path, w.Message)
}

// Projection is the ordered measure view of one submission.
type Projection struct {
	Values   []Value   `json:"values"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Get returns the projected value for key.
func (p Projection) Get(key string) (any, bool) {
	for _, v := range p.Values {
		if v.Key == key {
			return v.Value, true
		}
	}
	return nil, false
}

// Map returns the key to value mapping.
func (p Projection) Map() map[string]any {
	out := make(map[string]any, len(p.Values))
	for _, v := range p.Values {
		out[v.Key] = v.Value
	}
	return out
}

// ProjectionError reports a compute function that panicked.
type ProjectionError struct {
	Measure string
	Reason  string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("measures: compute %s: %s", e.Measure, e.Reason)
}

// Check reports measures that cannot be projected: missing keys, duplicate
// keys, unknown kinds and computed measures without a function.
func Check(ms []Measure) error {
	seen := make(map[string]struct{}, len(ms))
	for idx, m := range ms {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			return fmt.Errorf("measures: measure #%d has no key", idx)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("measures: duplicate measure %s", key)
		}
		seen[key] = struct{}{}
		switch m.Kind {
		case KindConst:
		case KindComputed:
			if m.Compute == nil {
				return fmt.Errorf("measures: computed measure %s has no function", key)
			}
		default:
			return fmt.Errorf("measures: measure %s has unknown kind %q", key, m.Kind)
		}
	}
	return nil
}

// Project computes every measure in declaration order. Const measures whose
// field is absent are omitted. Computed measures returning nil are omitted.
func Project(ms []Measure, answers model.Answers) (Projection, error) {
	out := Projection{Values: make([]Value, 0, len(ms))}
	for _, m := range ms {
		var (
			value any
			ok    bool
		)
		switch m.Kind {
		case KindConst:
			value, ok = answers.Value(m.Field())
		case KindComputed:
			in := &Input{answers: answers, measure: m.Key}
			computed, err := compute(m, in)
			if err != nil {
				return Projection{}, err
			}
			out.Warnings = append(out.Warnings, in.warnings...)
			value, ok = computed, computed != nil
		default:
			return Projection{}, fmt.Errorf("measures: measure %s has unknown kind %q", m.Key, m.Kind)
		}
		if !ok {
			continue
		}
		out.Values = append(out.Values, Value{Key: m.Key, Label: m.Label, Kind: m.Kind, Value: value})
	}
	return out, nil
}

func compute(m Measure, in *Input) (out any, err error) {
	if m.Compute == nil {
		return nil, &ProjectionError{Measure: m.Key, Reason: "no compute function"}
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = &ProjectionError{Measure: m.Key, Reason: fmt.Sprint(rec)}
		}
	}()
	return m.Compute(in), nil
}
