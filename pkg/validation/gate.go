package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

// DateLayouts are the accepted textual date formats, tried in order.
var DateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// Gate validates submissions against a schema restricted to the visible
// fields. It is stateless and safe for concurrent use.
type Gate struct{}

// NewGate constructs a Gate.
func NewGate() *Gate { return &Gate{} }

// Validate is a convenience for NewGate().Validate.
func Validate(res visibility.Resolution, answers model.Answers, schema Schema) (model.Answers, error) {
	return NewGate().Validate(res, answers, schema)
}

// Validate checks every visible field against its rule and returns the
// normalized answer set. Answers of hidden or undeclared fields are
// dropped. Numeric strings with a numeric-string rule are replaced by the
// parsed number; every other value is kept as submitted. All failures are
// collected into a single *Errors.
func (g *Gate) Validate(res visibility.Resolution, answers model.Answers, schema Schema) (model.Answers, error) {
	errs := &Errors{}
	out := g.validateScope(res, answers, schema, "", errs)
	if errs.Len() > 0 {
		return nil, errs
	}
	return out, nil
}

func (g *Gate) validateScope(res visibility.Resolution, answers model.Answers, schema Schema, path string, errs *Errors) model.Answers {
	out := make(model.Answers, len(res.Fields))
	for _, resolved := range res.Fields {
		name := resolved.Name
		fieldPath := joinPath(path, name)
		value, present := answers.Value(name)

		rule, ok := schema.Lookup(name)
		if !ok {
			if present {
				out[name] = value
			}
			continue
		}

		if !present || isBlank(value, rule) {
			if rule.Required() {
				errs.add(newIssue(fieldPath, name, CodeRequired, messageOr(rule.Messages.Required, "Required"), nil))
			}
			continue
		}

		normalized, ok := g.checkValue(resolved, rule, value, fieldPath, errs)
		if ok {
			out[name] = normalized
		}
	}
	return out
}

// isBlank treats an empty string as missing for rules that require content.
func isBlank(value any, rule Rule) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	if strings.TrimSpace(s) != "" {
		return false
	}
	switch rule.Type {
	case TypeString:
		return rule.NonEmpty
	case TypeEnum, TypeNumericString, TypeNumber, TypeInteger, TypeDate:
		return true
	default:
		return false
	}
}

func (g *Gate) checkValue(resolved visibility.Resolved, rule Rule, value any, path string, errs *Errors) (any, bool) {
	name := resolved.Name
	typeIssue := func(expected string) (any, bool) {
		errs.add(newIssue(path, name, CodeType, messageOr(rule.Messages.Type, "Expected "+expected), nil))
		return nil, false
	}
	rangeIssue := func(err error) (any, bool) {
		errs.add(newIssue(path, name, CodeRange, messageOr(rule.Messages.Range, defaultRangeMessage(rule)), err))
		return nil, false
	}

	switch rule.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return typeIssue("string")
		}
		if err := checkBounds(float64(utf8.RuneCountInString(s)), rule.Min, rule.Max); err != nil {
			return rangeIssue(err)
		}
		return value, true

	case TypeNumber, TypeInteger:
		f, ok := model.ToFloat(value)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return typeIssue("number")
		}
		if rule.Type == TypeInteger && f != math.Trunc(f) {
			return typeIssue("integer")
		}
		if err := checkBounds(f, rule.Min, rule.Max); err != nil {
			return rangeIssue(err)
		}
		return value, true

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeIssue("boolean")
		}
		return value, true

	case TypeDate:
		if !isDate(value) {
			return typeIssue("date")
		}
		return value, true

	case TypeEnum:
		s, ok := enumString(value)
		if !ok {
			return typeIssue("one of the listed options")
		}
		if !contains(rule.enumValues(resolved.Field), s) {
			errs.add(newIssue(path, name, CodeEnum, messageOr(rule.Messages.Enum, "Invalid option"), nil))
			return nil, false
		}
		return value, true

	case TypeSet:
		members, ok := setMembers(value)
		if !ok {
			return typeIssue("a set of options")
		}
		allowed := rule.enumValues(resolved.Field)
		for _, member := range members {
			if len(allowed) > 0 && !contains(allowed, member) {
				errs.add(newIssue(path, name, CodeEnum, messageOr(rule.Messages.Enum, fmt.Sprintf("Invalid option %q", member)), nil))
				return nil, false
			}
		}
		if rule.NonEmpty && len(members) == 0 {
			errs.add(newIssue(path, name, CodeRequired, messageOr(rule.Messages.Required, "Select at least one option"), nil))
			return nil, false
		}
		if err := checkBounds(float64(len(members)), rule.Min, rule.Max); err != nil {
			return rangeIssue(err)
		}
		return value, true

	case TypeNumericString:
		parsed, err := ParseBounded(value, rule.Min, rule.Max)
		if err != nil {
			if errors.Is(err, ErrNotANumber) {
				errs.add(newIssue(path, name, CodeParse, messageOr(rule.Messages.Parse, "Not a number"), err))
				return nil, false
			}
			return rangeIssue(err)
		}
		return parsed, true

	case TypeRecordArray:
		return g.checkRecords(resolved, rule, value, path, errs)

	default:
		errs.add(newIssue(path, name, CodeType, fmt.Sprintf("unknown rule type %q", rule.Type), nil))
		return nil, false
	}
}

func (g *Gate) checkRecords(resolved visibility.Resolved, rule Rule, value any, path string, errs *Errors) (any, bool) {
	records := model.ToRecords(value)
	if records == nil {
		errs.add(newIssue(path, resolved.Name, CodeType, messageOr(rule.Messages.Type, "Expected a list of entries"), nil))
		return nil, false
	}
	if rule.NonEmpty && len(records) == 0 {
		errs.add(newIssue(path, resolved.Name, CodeRequired, messageOr(rule.Messages.Required, "Add at least one entry"), nil))
		return nil, false
	}
	if err := checkBounds(float64(len(records)), rule.Min, rule.Max); err != nil {
		errs.add(newIssue(path, resolved.Name, CodeRange, messageOr(rule.Messages.Range, defaultRangeMessage(rule)), err))
		return nil, false
	}

	before := errs.Len()
	out := make([]any, 0, len(records))
	for idx, rec := range records {
		elemPath := joinPath(path, strconv.Itoa(idx))
		scope, err := elementScope(resolved, idx, rec)
		if err != nil {
			errs.add(newIssue(elemPath, resolved.Name, CodeType, messageOr(rule.Messages.Type, "Entry could not be resolved"), err))
			continue
		}
		out = append(out, map[string]any(g.validateScope(scope, rec, rule.Element, elemPath, errs)))
	}
	if errs.Len() > before {
		return nil, false
	}
	return out, true
}

// elementScope returns the resolved fields of one record element. Elements
// the resolution does not cover, such as entries added after it was
// computed, are resolved against the rendered fieldset.
func elementScope(resolved visibility.Resolved, idx int, rec model.Answers) (visibility.Resolution, error) {
	if idx < len(resolved.Records) {
		return resolved.Records[idx], nil
	}
	return visibility.Resolve(resolved.Field.Fieldset, rec)
}

func newIssue(path, field, code, message string, err error) Issue {
	return Issue{Path: path, Field: field, Message: message, Code: code, Err: err}
}

func messageOr(custom, fallback string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return fallback
}

func defaultRangeMessage(rule Rule) string {
	return "Value has to be in range for " + describeBounds(rule.Min, rule.Max)
}

func isDate(value any) bool {
	switch typed := value.(type) {
	case time.Time:
		return !typed.IsZero()
	case string:
		trimmed := strings.TrimSpace(typed)
		for _, layout := range DateLayouts {
			if _, err := time.Parse(layout, trimmed); err == nil {
				return true
			}
		}
	}
	return false
}

func enumString(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		if f, ok := model.ToFloat(value); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return "", false
	}
}

func setMembers(value any) ([]string, bool) {
	switch value.(type) {
	case []string, []any, map[string]any:
		return model.Answers{"v": value}.Strings("v"), true
	default:
		return nil, false
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
