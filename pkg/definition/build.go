package definition

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

var fieldKinds = map[string]model.FieldKind{
	"string":       model.FieldKindString,
	"number":       model.FieldKindNumber,
	"boolean":      model.FieldKindBoolean,
	"date":         model.FieldKindDate,
	"set":          model.FieldKindSet,
	"record-array": model.FieldKindRecordArray,
}

func build(doc documentFile, source string) (*instrument.Instrument, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return nil, fmt.Errorf("definition: %s: id is required", source)
	}

	kind := strings.TrimSpace(doc.Kind)
	if kind == "" {
		kind = instrument.KindForm
	}
	language := strings.TrimSpace(doc.Language)
	if language == "" {
		language = "en"
	}

	b := builder{id: id, source: source, shared: doc.Options, concrete: map[string]model.Field{}}
	content, err := b.fields(doc.Content, "")
	if err != nil {
		return nil, err
	}
	schema, err := b.rules(doc.Validation, "")
	if err != nil {
		return nil, err
	}
	ms, err := b.measures(doc.Measures, content)
	if err != nil {
		return nil, err
	}

	inst := &instrument.Instrument{
		Kind:          kind,
		ID:            id,
		Version:       strings.TrimSpace(doc.Version),
		Language:      language,
		Details:       doc.Details,
		ClientDetails: doc.ClientDetails,
		Content:       content,
		Schema:        schema,
		Measures:      ms,
	}
	if err := inst.Check(); err != nil {
		return nil, fmt.Errorf("definition: %s: %w", source, err)
	}
	return inst, nil
}

// builder converts one document. concrete keeps top-level fields as declared,
// before visibleWhen wrapping, so joins can resolve option labels.
type builder struct {
	id       string
	source   string
	shared   map[string]optionList
	concrete map[string]model.Field
}

func (b builder) errorf(path, format string, args ...any) error {
	return fmt.Errorf("definition: %s: %s: %s", b.source, joinPath(b.id, path), fmt.Sprintf(format, args...))
}

func (b builder) fields(files []fieldFile, path string) ([]model.Field, error) {
	out := make([]model.Field, 0, len(files))
	for _, ff := range files {
		name := strings.TrimSpace(ff.Name)
		fieldPath := joinPath(path, name)
		if name == "" {
			return nil, b.errorf(path, "field without name")
		}

		kind, ok := fieldKinds[strings.ToLower(strings.TrimSpace(ff.Kind))]
		if !ok {
			return nil, b.errorf(fieldPath, "unknown kind %q", ff.Kind)
		}

		options := []model.Option(ff.Options)
		if ref := strings.TrimSpace(ff.OptionsRef); ref != "" {
			shared, ok := b.shared[ref]
			if !ok {
				return nil, b.errorf(fieldPath, "unknown options table %q", ref)
			}
			options = []model.Option(shared)
		}

		field := model.Field{
			Name:        name,
			Kind:        kind,
			Variant:     strings.TrimSpace(ff.Variant),
			Label:       ff.Label,
			Description: ff.Description,
			Options:     options,
			Min:         ff.Min,
			Max:         ff.Max,
		}
		if kind == model.FieldKindRecordArray {
			fieldset, err := b.fields(ff.Fieldset, fieldPath)
			if err != nil {
				return nil, err
			}
			field.Fieldset = fieldset
		} else if len(ff.Fieldset) > 0 {
			return nil, b.errorf(fieldPath, "fieldset on %s field", kind)
		}

		if path == "" {
			b.concrete[name] = field
		}

		rule := strings.TrimSpace(ff.VisibleWhen)
		if rule == "" {
			if len(ff.Deps) > 0 {
				return nil, b.errorf(fieldPath, "deps without visibleWhen")
			}
			out = append(out, field)
			continue
		}

		dynamic, err := visibility.Conditional(name, rule, field)
		if err != nil {
			return nil, b.errorf(fieldPath, "%v", err)
		}
		if len(ff.Deps) > 0 {
			dynamic.Deps = append([]string(nil), ff.Deps...)
		}
		dynamic.Label = field.Label
		out = append(out, dynamic)
	}
	return out, nil
}

func (b builder) rules(files []ruleFile, path string) (validation.Schema, error) {
	if len(files) == 0 {
		return nil, nil
	}
	out := make(validation.Schema, 0, len(files))
	for _, rf := range files {
		element, err := b.rules(rf.Element, joinPath(path, rf.Field))
		if err != nil {
			return nil, err
		}
		out = append(out, validation.Rule{
			Field:       strings.TrimSpace(rf.Field),
			Type:        validation.Type(strings.TrimSpace(rf.Type)),
			Optional:    rf.Optional,
			WhenVisible: rf.WhenVisible,
			NonEmpty:    rf.NonEmpty,
			Min:         rf.Min,
			Max:         rf.Max,
			Enum:        rf.Enum,
			Element:     element,
			Messages:    rf.Messages,
		})
	}
	return out, nil
}

func (b builder) measures(files []measureFile, content []model.Field) ([]measures.Measure, error) {
	out := make([]measures.Measure, 0, len(files))
	for _, mf := range files {
		key := strings.TrimSpace(mf.Key)
		label := mf.Label
		if label == "" {
			label = key
		}

		switch strings.TrimSpace(mf.Kind) {
		case string(measures.KindConst), "":
			if mf.Flatten != nil || mf.Table != nil || mf.Join != nil {
				return nil, b.errorf("measures."+key, "const measure with a projection")
			}
			out = append(out, measures.Const(key, label, strings.TrimSpace(mf.Ref)))
		case string(measures.KindComputed):
			fn, err := b.compute(key, mf, content)
			if err != nil {
				return nil, err
			}
			out = append(out, measures.Computed(key, label, fn))
		default:
			return nil, b.errorf("measures."+key, "unknown kind %q", mf.Kind)
		}
	}
	return out, nil
}

func (b builder) compute(key string, mf measureFile, content []model.Field) (measures.ComputeFunc, error) {
	set := 0
	for _, present := range []bool{mf.Flatten != nil, mf.Table != nil, mf.Join != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, b.errorf("measures."+key, "computed measure needs exactly one of flatten, table or join")
	}

	switch {
	case mf.Flatten != nil:
		field, columns, err := b.projection(key, *mf.Flatten, content)
		if err != nil {
			return nil, err
		}
		return func(in *measures.Input) any { return in.Flatten(field, columns...) }, nil
	case mf.Table != nil:
		field, columns, err := b.projection(key, *mf.Table, content)
		if err != nil {
			return nil, err
		}
		return func(in *measures.Input) any { return in.Table(field, columns...) }, nil
	default:
		return b.join(key, *mf.Join)
	}
}

func (b builder) projection(key string, rf recordsFile, content []model.Field) (string, []measures.Column, error) {
	field := strings.TrimSpace(rf.Field)
	if _, _, ok := model.Lookup(content, field); !ok {
		return "", nil, b.errorf("measures."+key, "projection of undeclared field %q", field)
	}
	if len(rf.Columns) == 0 {
		return "", nil, b.errorf("measures."+key, "projection without columns")
	}
	columns := make([]measures.Column, 0, len(rf.Columns))
	for _, cf := range rf.Columns {
		label := cf.Label
		if label == "" {
			label = cf.Key
		}
		columns = append(columns, measures.Col(cf.Key, label).WithSuffix(cf.Suffix))
	}
	return field, columns, nil
}

func (b builder) join(key string, jf joinFile) (measures.ComputeFunc, error) {
	if len(jf.Fields) == 0 {
		return nil, b.errorf("measures."+key, "join without fields")
	}
	fields := make([]model.Field, 0, len(jf.Fields))
	for _, name := range jf.Fields {
		field, ok := b.concrete[strings.TrimSpace(name)]
		if !ok {
			return nil, b.errorf("measures."+key, "join of undeclared field %q", name)
		}
		fields = append(fields, field)
	}
	separator := jf.Separator
	if separator == "" {
		separator = " "
	}

	return func(in *measures.Input) any {
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			value, ok := in.Answers().Value(field.Name)
			if !ok {
				in.Warn(field.Name, "value absent, skipped")
				continue
			}
			text := measures.FormatValue(value)
			if s, isString := value.(string); isString {
				text = field.OptionLabel(s)
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, separator)
	}, nil
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
