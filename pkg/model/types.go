package model

// FieldKind is the tag of the field variant.
type FieldKind string

const (
	FieldKindString      FieldKind = "string"
	FieldKindNumber      FieldKind = "number"
	FieldKindBoolean     FieldKind = "boolean"
	FieldKindDate        FieldKind = "date"
	FieldKindSet         FieldKind = "set"
	FieldKindRecordArray FieldKind = "record-array"
	FieldKindDynamic     FieldKind = "dynamic"
)

// Presentation hints. They never change evaluation behaviour.
const (
	VariantInput    = "input"
	VariantTextArea = "textarea"
	VariantSelect   = "select"
	VariantRadio    = "radio"
	VariantSlider   = "slider"
	VariantListbox  = "listbox"
	VariantCheckbox = "checkbox"
	VariantDateTime = "datetime"
)

// Option is a single value/label pair. Options are kept in a slice because
// their order is the order a renderer shows them in.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// RenderFunc computes the effective definition of a dynamic field from the
// answers collected so far. It returns nil when the field does not exist in
// the current form state. Implementations must be pure and must not panic
// for absent dependency values; the Answers accessors are nil-safe for that
// reason.
type RenderFunc func(answers Answers) *Field

// Field is a tagged variant over FieldKind. Fieldset is only meaningful for
// record-array fields, Deps and Render only for dynamic fields.
type Field struct {
	Name        string    `json:"name"`
	Kind        FieldKind `json:"kind"`
	Variant     string    `json:"variant,omitempty"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Fieldset    []Field   `json:"fieldset,omitempty"`

	Deps   []string   `json:"deps,omitempty"`
	Render RenderFunc `json:"-"`
}

// IsDynamic reports whether the field must be rendered before use.
func (f Field) IsDynamic() bool {
	return f.Kind == FieldKindDynamic
}

// OptionLabel returns the display label for value, falling back to the
// value itself when the option is unknown.
func (f Field) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			if opt.Label == "" {
				return opt.Value
			}
			return opt.Label
		}
	}
	return value
}

// OptionValues lists option values in declaration order.
func (f Field) OptionValues() []string {
	if len(f.Options) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		out = append(out, opt.Value)
	}
	return out
}

// Lookup finds a field by name within a content slice or fieldset.
func Lookup(fields []Field, name string) (Field, int, bool) {
	for idx, field := range fields {
		if field.Name == name {
			return field, idx, true
		}
	}
	return Field{}, -1, false
}

// Names returns field names in declaration order.
func Names(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, field.Name)
	}
	return out
}

// Float is a convenience for populating Min/Max bounds.
func Float(v float64) *float64 {
	return &v
}

// Opts builds an option slice from alternating value/label pairs. A value
// without a label reuses the value as label.
func Opts(pairs ...string) []Option {
	out := make([]Option, 0, (len(pairs)+1)/2)
	for i := 0; i < len(pairs); i += 2 {
		opt := Option{Value: pairs[i], Label: pairs[i]}
		if i+1 < len(pairs) {
			opt.Label = pairs[i+1]
		}
		out = append(out, opt)
	}
	return out
}

// SameOpts builds options whose label equals their value.
func SameOpts(values ...string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}
