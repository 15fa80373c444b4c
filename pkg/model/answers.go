package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Answers is the field-name to value mapping of one form instance. Fields
// that have not been answered are absent, not nil. Record-array answers are
// stored as []any of map[string]any so they round-trip through JSON.
type Answers map[string]any

// Has reports whether name is present with a non-nil value.
func (a Answers) Has(name string) bool {
	if a == nil {
		return false
	}
	v, ok := a[name]
	return ok && v != nil
}

// Value returns the raw value for name.
func (a Answers) Value(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value as a string. Non-string values yield "".
func (a Answers) String(name string) string {
	v, ok := a.Value(name)
	if !ok {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return ""
	}
}

// Number returns the value as float64. Numeric strings are not coerced; a
// form that stores numbers as text handles the parse in its schema.
func (a Answers) Number(name string) (float64, bool) {
	v, ok := a.Value(name)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Bool returns the value as a bool. Anything else reports false.
func (a Answers) Bool(name string) bool {
	v, ok := a.Value(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Strings returns a set-typed value as a string slice.
func (a Answers) Strings(name string) []string {
	v, ok := a.Value(name)
	if !ok {
		return nil
	}
	switch typed := v.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		// {"a": true, "b": false} style sets
		out := make([]string, 0, len(typed))
		for key, selected := range typed {
			if b, ok := selected.(bool); ok && b {
				out = append(out, key)
			}
		}
		return out
	default:
		return nil
	}
}

// Contains reports whether a set-typed value contains member.
func (a Answers) Contains(name, member string) bool {
	for _, v := range a.Strings(name) {
		if v == member {
			return true
		}
	}
	return false
}

// Is reports whether name holds exactly the string value.
func (a Answers) Is(name, value string) bool {
	return a.Has(name) && a.String(name) == value
}

// Records returns the elements of a record-array value. Each element shares
// storage with the underlying answers. Malformed elements become empty
// records so callers can still index by position.
func (a Answers) Records(name string) []Answers {
	v, ok := a.Value(name)
	if !ok {
		return nil
	}
	return ToRecords(v)
}

// Clone deep-copies the answers.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = deepCopy(v)
	}
	return out
}

// ToRecords converts a record-array value into a slice of Answers.
func ToRecords(value any) []Answers {
	switch typed := value.(type) {
	case []Answers:
		return typed
	case []map[string]any:
		out := make([]Answers, len(typed))
		for i, rec := range typed {
			out[i] = Answers(rec)
		}
		return out
	case []any:
		out := make([]Answers, len(typed))
		for i, item := range typed {
			switch rec := item.(type) {
			case map[string]any:
				out[i] = Answers(rec)
			case Answers:
				out[i] = rec
			default:
				out[i] = Answers{}
			}
		}
		return out
	default:
		return nil
	}
}

// ToFloat converts the numeric Go types a decoder may produce.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseFloat parses a trimmed numeric string. NaN and infinities are not
// numbers an answer can hold.
func ParseFloat(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case Answers:
		return map[string]any(typed.Clone())
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
