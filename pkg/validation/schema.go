// Package validation is the gate a submission passes before it is accepted.
// Rules are declared per field; only fields the resolver reports as visible
// are checked, so a hidden field never blocks a submission and its stale
// answer never reaches the normalized result.
package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Type names the constraint family of a rule.
type Type string

const (
	TypeString        Type = "string"
	TypeNumber        Type = "number"
	TypeInteger       Type = "integer"
	TypeBoolean       Type = "boolean"
	TypeDate          Type = "date"
	TypeEnum          Type = "enum"
	TypeSet           Type = "set"
	TypeNumericString Type = "numeric-string"
	TypeRecordArray   Type = "record-array"
)

var knownTypes = map[Type]struct{}{
	TypeString: {}, TypeNumber: {}, TypeInteger: {}, TypeBoolean: {},
	TypeDate: {}, TypeEnum: {}, TypeSet: {}, TypeNumericString: {},
	TypeRecordArray: {},
}

// Messages overrides the default human-readable reasons of a rule.
type Messages struct {
	Required string `json:"required,omitempty" yaml:"required,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Range    string `json:"range,omitempty" yaml:"range,omitempty"`
	Enum     string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Parse    string `json:"parse,omitempty" yaml:"parse,omitempty"`
}

// Rule constrains one field. Min and Max bound the value for numeric types,
// the length for strings and the element count for sets and record arrays.
// Enum restricts enum and set values; when empty the options of the
// resolved field are used.
//
// A field that can be hidden must be Optional or WhenVisible. WhenVisible
// marks it absent-by-design while hidden and required while it renders.
type Rule struct {
	Field       string
	Type        Type
	Optional    bool
	WhenVisible bool
	NonEmpty    bool
	Min      *float64
	Max      *float64
	Enum     []string
	Element  Schema
	Messages Messages
}

// Required reports whether a visible field must be answered.
func (r Rule) Required() bool { return !r.Optional }

// Hideable reports whether the rule accepts the field being absent from the
// rendered form.
func (r Rule) Hideable() bool { return r.Optional || r.WhenVisible }

// Schema is the ordered rule list of an instrument or record element.
type Schema []Rule

// Lookup returns the rule for field.
func (s Schema) Lookup(field string) (Rule, bool) {
	for _, rule := range s {
		if rule.Field == field {
			return rule, true
		}
	}
	return Rule{}, false
}

// Fields lists the field names with a rule, in declaration order.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s))
	for _, rule := range s {
		out = append(out, rule.Field)
	}
	return out
}

// Check reports malformed rules: unknown types, duplicate fields, inverted
// bounds and record-array rules without an element schema.
func (s Schema) Check() error {
	return s.check("")
}

func (s Schema) check(path string) error {
	seen := make(map[string]struct{}, len(s))
	for _, rule := range s {
		name := strings.TrimSpace(rule.Field)
		full := joinPath(path, name)
		if name == "" {
			return fmt.Errorf("validation: rule without field name in %q", path)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("validation: duplicate rule for %s", full)
		}
		seen[name] = struct{}{}
		if _, ok := knownTypes[rule.Type]; !ok {
			return fmt.Errorf("validation: %s: unknown type %q", full, rule.Type)
		}
		if rule.Optional && rule.WhenVisible {
			return fmt.Errorf("validation: %s: optional and required while visible are exclusive", full)
		}
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return fmt.Errorf("validation: %s: min %v exceeds max %v", full, *rule.Min, *rule.Max)
		}
		if rule.Type == TypeRecordArray {
			if err := rule.Element.check(full); err != nil {
				return err
			}
		} else if len(rule.Element) > 0 {
			return fmt.Errorf("validation: %s: element schema on %s rule", full, rule.Type)
		}
	}
	return nil
}

// CheckContent reports rules naming fields that content does not declare.
// Element schemas are checked against static record-array fieldsets; the
// fieldset of a dynamic record array is only known once rendered.
func (s Schema) CheckContent(content []model.Field) error {
	return s.checkContent(content, "")
}

func (s Schema) checkContent(content []model.Field, path string) error {
	for _, rule := range s {
		full := joinPath(path, rule.Field)
		field, _, ok := model.Lookup(content, rule.Field)
		if !ok {
			return fmt.Errorf("validation: rule %s names an undeclared field", full)
		}
		if field.Kind == model.FieldKindRecordArray && len(rule.Element) > 0 {
			if err := rule.Element.checkContent(field.Fieldset, full); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r Rule) enumValues(field model.Field) []string {
	if len(r.Enum) > 0 {
		return r.Enum
	}
	return field.OptionValues()
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
