package visibility

import (
	"reflect"
	"strconv"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Resolved is one visible field with its concrete definition. Records holds
// the per-element resolution of a record-array field, indexed like the
// answers it was computed from.
type Resolved struct {
	Name    string
	Field   model.Field
	Dynamic bool
	Records []Resolution
}

// Resolution is the ordered set of fields that currently render.
type Resolution struct {
	Fields []Resolved
}

// Names lists the visible field names in declaration order.
func (r Resolution) Names() []string {
	out := make([]string, 0, len(r.Fields))
	for _, field := range r.Fields {
		out = append(out, field.Name)
	}
	return out
}

// Lookup returns the resolved entry for name.
func (r Resolution) Lookup(name string) (Resolved, bool) {
	for _, field := range r.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Resolved{}, false
}

// Has reports whether name is visible.
func (r Resolution) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Paths lists every visible dotted path, including record element paths
// such as "items.0.name".
func (r Resolution) Paths() []string {
	var out []string
	collectPaths(r, "", &out)
	return out
}

func collectPaths(r Resolution, prefix string, out *[]string) {
	for _, field := range r.Fields {
		path := joinPath(prefix, field.Name)
		*out = append(*out, path)
		for idx, rec := range field.Records {
			collectPaths(rec, joinPath(path, strconv.Itoa(idx)), out)
		}
	}
}

// Prune restricts answers to the visible fields. Stale answers of hidden
// fields are dropped, recursively for record elements.
func (r Resolution) Prune(answers model.Answers) model.Answers {
	out := make(model.Answers, len(r.Fields))
	for _, field := range r.Fields {
		value, ok := answers[field.Name]
		if !ok {
			continue
		}
		if field.Field.Kind != model.FieldKindRecordArray {
			out[field.Name] = value
			continue
		}
		records := model.ToRecords(value)
		pruned := make([]any, 0, len(records))
		for idx, rec := range records {
			if idx < len(field.Records) {
				pruned = append(pruned, map[string]any(field.Records[idx].Prune(rec)))
				continue
			}
			pruned = append(pruned, map[string]any(rec.Clone()))
		}
		out[field.Name] = pruned
	}
	return out
}

// Equal compares two resolutions by names, kinds, labels and options,
// ignoring render functions which cannot be compared.
func (r Resolution) Equal(other Resolution) bool {
	if len(r.Fields) != len(other.Fields) {
		return false
	}
	for idx := range r.Fields {
		a, b := r.Fields[idx], other.Fields[idx]
		if a.Name != b.Name || a.Dynamic != b.Dynamic || !sameField(a.Field, b.Field) {
			return false
		}
		if len(a.Records) != len(b.Records) {
			return false
		}
		for i := range a.Records {
			if !a.Records[i].Equal(b.Records[i]) {
				return false
			}
		}
	}
	return true
}

func sameField(a, b model.Field) bool {
	a.Render, b.Render = nil, nil
	a.Fieldset, b.Fieldset = stripRender(a.Fieldset), stripRender(b.Fieldset)
	return reflect.DeepEqual(a, b)
}

func stripRender(fields []model.Field) []model.Field {
	if fields == nil {
		return nil
	}
	out := make([]model.Field, len(fields))
	for i, f := range fields {
		f.Render = nil
		f.Fieldset = stripRender(f.Fieldset)
		out[i] = f
	}
	return out
}
