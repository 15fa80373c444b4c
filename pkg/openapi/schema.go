package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
)

const (
	extensionDynamic   = "x-labforms-dynamic"
	extensionDeps      = "x-labforms-deps"
	extensionTransform = "x-labforms-transform"
	extensionVariant   = "x-labforms-variant"
	extensionWhenShown = "x-labforms-required-when-visible"
)

// SubmissionSchema describes the answer set of one instrument scope.
// Static fields whose rule is not optional are required.
func SubmissionSchema(fields []model.Field, schema validation.Schema) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Properties = make(openapi3.Schemas, len(fields))
	for _, field := range fields {
		rule, hasRule := schema.Lookup(field.Name)
		prop := fieldSchema(field, rule, hasRule)
		out.Properties[field.Name] = openapi3.NewSchemaRef("", prop)
		if hasRule && rule.Required() && !field.IsDynamic() {
			out.Required = append(out.Required, field.Name)
		}
		if hasRule && rule.WhenVisible {
			setExtension(prop, extensionWhenShown, true)
		}
	}
	return out
}

func fieldSchema(field model.Field, rule validation.Rule, hasRule bool) *openapi3.Schema {
	var s *openapi3.Schema
	if hasRule {
		s = ruleSchema(field, rule)
	} else {
		s = kindSchema(field)
	}
	s.Title = field.Label
	s.Description = field.Description
	if field.Variant != "" {
		setExtension(s, extensionVariant, field.Variant)
	}
	if field.IsDynamic() {
		setExtension(s, extensionDynamic, true)
		if len(field.Deps) > 0 {
			setExtension(s, extensionDeps, append([]string(nil), field.Deps...))
		}
	}
	return s
}

func ruleSchema(field model.Field, rule validation.Rule) *openapi3.Schema {
	switch rule.Type {
	case validation.TypeString:
		s := openapi3.NewStringSchema()
		if rule.NonEmpty {
			s.MinLength = 1
		}
		if rule.Min != nil && uint64(*rule.Min) > s.MinLength {
			s.MinLength = uint64(*rule.Min)
		}
		if rule.Max != nil {
			s.WithMaxLength(int64(*rule.Max))
		}
		return s
	case validation.TypeNumber:
		return bounded(openapi3.NewFloat64Schema(), rule)
	case validation.TypeInteger:
		return bounded(openapi3.NewIntegerSchema(), rule)
	case validation.TypeBoolean:
		return openapi3.NewBoolSchema()
	case validation.TypeDate:
		s := openapi3.NewStringSchema()
		s.Format = "date"
		return s
	case validation.TypeEnum:
		s := openapi3.NewStringSchema()
		if values := enumValues(field, rule); len(values) > 0 {
			s.WithEnum(values...)
		}
		return s
	case validation.TypeSet:
		item := openapi3.NewStringSchema()
		if values := enumValues(field, rule); len(values) > 0 {
			item.WithEnum(values...)
		}
		s := openapi3.NewArraySchema().WithItems(item)
		s.UniqueItems = true
		if rule.NonEmpty {
			s.MinItems = 1
		}
		return s
	case validation.TypeNumericString:
		s := openapi3.NewAnyOfSchema(openapi3.NewStringSchema(), bounded(openapi3.NewFloat64Schema(), rule))
		setExtension(s, extensionTransform, "number")
		return s
	case validation.TypeRecordArray:
		s := openapi3.NewArraySchema().WithItems(SubmissionSchema(field.Fieldset, rule.Element))
		if rule.NonEmpty {
			s.MinItems = 1
		}
		if rule.Min != nil && uint64(*rule.Min) > s.MinItems {
			s.MinItems = uint64(*rule.Min)
		}
		if rule.Max != nil {
			s.WithMaxItems(int64(*rule.Max))
		}
		return s
	default:
		return kindSchema(field)
	}
}

// kindSchema describes a field that has no rule from its declared kind.
func kindSchema(field model.Field) *openapi3.Schema {
	switch field.Kind {
	case model.FieldKindString:
		return openapi3.NewStringSchema()
	case model.FieldKindNumber:
		return openapi3.NewFloat64Schema()
	case model.FieldKindBoolean:
		return openapi3.NewBoolSchema()
	case model.FieldKindDate:
		s := openapi3.NewStringSchema()
		s.Format = "date"
		return s
	case model.FieldKindSet:
		return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	case model.FieldKindRecordArray:
		return openapi3.NewArraySchema().WithItems(SubmissionSchema(field.Fieldset, nil))
	default:
		return &openapi3.Schema{}
	}
}

func bounded(s *openapi3.Schema, rule validation.Rule) *openapi3.Schema {
	if rule.Min != nil {
		s.WithMin(*rule.Min)
	}
	if rule.Max != nil {
		s.WithMax(*rule.Max)
	}
	return s
}

func enumValues(field model.Field, rule validation.Rule) []any {
	values := rule.Enum
	if len(values) == 0 {
		values = field.OptionValues()
	}
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func setExtension(s *openapi3.Schema, key string, value any) {
	if s.Extensions == nil {
		s.Extensions = make(map[string]any)
	}
	s.Extensions[key] = value
}
