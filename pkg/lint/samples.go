package lint

import (
	"github.com/goliatone/go-labforms/pkg/model"
)

const maxOptionSamples = 6

// absent marks "no answer" in a sample pool.
type absent struct{}

func isAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// sampleValues returns the values tried for a field. The first entry is
// always absent.
func sampleValues(field model.Field) []any {
	out := []any{absent{}}
	switch field.Kind {
	case model.FieldKindString:
		if len(field.Options) == 0 {
			return append(out, "", "sample")
		}
		for i, opt := range field.Options {
			if i == maxOptionSamples {
				break
			}
			out = append(out, opt.Value)
		}
		return out
	case model.FieldKindNumber:
		out = append(out, 0.0)
		if field.Min != nil {
			out = append(out, *field.Min)
		}
		if field.Max != nil {
			out = append(out, *field.Max)
		}
		if field.Min != nil && field.Max != nil {
			out = append(out, (*field.Min+*field.Max)/2)
		}
		return dedupe(out)
	case model.FieldKindBoolean:
		return append(out, true, false)
	case model.FieldKindDate:
		return append(out, "2024-01-01")
	case model.FieldKindSet:
		out = append(out, []any{})
		if len(field.Options) > 0 {
			out = append(out, []any{field.Options[0].Value})
		}
		return out
	case model.FieldKindRecordArray:
		return append(out, []any{}, []any{map[string]any{}})
	default:
		return out
	}
}

func dedupe(values []any) []any {
	out := values[:0]
	seen := map[any]bool{}
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
