// Package lint runs authoring checks over instruments. Besides the load-time
// checks it renders every dynamic field's render function with sampled
// dependency values, looking for panics, fields that can never appear,
// renders that read answers they do not declare and rules whose optionality
// does not match how often the field renders.
package lint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

// Severity ranks an issue. Errors block registration; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the check that raised an issue.
type Code string

const (
	CodeDefinition     Code = "definition"
	CodeRenderPanic    Code = "render_panic"
	CodeUndeclaredRead Code = "undeclared_read"
	CodeNeverRendered  Code = "never_rendered"
	CodeAlwaysRendered Code = "always_rendered"
	CodeMissingRule    Code = "missing_rule"
	// CodeRequiredHidden: the field can be hidden yet its rule requires it.
	CodeRequiredHidden Code = "required_hideable"
	// CodeOptionalShown: the dynamic field always renders yet its rule is
	// optional.
	CodeOptionalShown Code = "optional_always_rendered"
)

const (
	defaultMaxCombinations = 512
	undeclaredBase   = 8
)

// Issue is a single finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// Report holds the findings for one instrument in discovery order.
type Report struct {
	Instrument string  `json:"instrument"`
	Issues     []Issue `json:"issues"`
}

// HasErrors reports whether any issue has error severity.
func (r Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Has reports whether an issue with code was raised.
func (r Report) Has(code Code) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// String renders one issue per line.
func (r Report) String() string {
	var b strings.Builder
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "%s: %s [%s] %s: %s\n", r.Instrument, issue.Severity, issue.Code, issue.Field, issue.Message)
	}
	return b.String()
}

func (r *Report) add(severity Severity, code Code, field, message string) {
	r.Issues = append(r.Issues, Issue{Severity: severity, Code: code, Field: field, Message: message})
}

// Option configures Check.
type Option func(*linter)

// WithMaxCombinations caps the dependency combinations tried per dynamic field.
func WithMaxCombinations(n int) Option {
	return func(l *linter) {
		if n > 0 {
			l.maxCombinations = n
		}
	}
}

type linter struct {
	maxCombinations int
	report    *Report
}

// Check lints one instrument. A failing load-time check is reported as a
// single definition error and stops the probing.
func Check(inst *instrument.Instrument, options ...Option) Report {
	report := Report{Instrument: inst.ID}
	if err := inst.Check(); err != nil {
		field := ""
		var defErr *visibility.DefinitionError
		if errors.As(err, &defErr) {
			field = defErr.Field
		}
		report.add(SeverityError, CodeDefinition, field, err.Error())
		return report
	}

	l := &linter{maxCombinations: defaultMaxCombinations, report: &report}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	l.scope(inst.Content, inst.Schema, "")
	return report
}

// CheckAll lints every instrument, sorted by id.
func CheckAll(insts []*instrument.Instrument, options ...Option) []Report {
	out := make([]Report, 0, len(insts))
	for _, inst := range insts {
		if inst == nil {
			continue
		}
		out = append(out, Check(inst, options...))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

func (l *linter) scope(fields []model.Field, schema validation.Schema, path string) {
	samples := make(map[string][]any, len(fields))
	for _, field := range fields {
		fieldPath := joinPath(path, field.Name)
		rule, hasRule := schema.Lookup(field.Name)
		if !hasRule {
			l.report.add(SeverityWarning, CodeMissingRule, fieldPath, "no validation rule; answers pass unchecked")
		}

		if !field.IsDynamic() {
			samples[field.Name] = sampleValues(field)
			if field.Kind == model.FieldKindRecordArray {
				l.scope(field.Fieldset, rule.Element, fieldPath)
			}
			continue
		}

		variants, seen := l.sweep(field, fields, samples, fieldPath)
		if hasRule {
			l.optionality(rule, seen, fieldPath)
		}
		values := []any{absent{}}
		known := map[string]bool{}
		for _, variant := range variants {
			for _, v := range sampleValues(variant)[1:] {
				key := fmt.Sprintf("%T:%v", v, v)
				if !known[key] {
					known[key] = true
					values = append(values, v)
				}
			}
			if variant.Kind == model.FieldKindRecordArray {
				l.scope(variant.Fieldset, rule.Element, fieldPath)
			}
		}
		samples[field.Name] = values
	}
}

// reach counts how often a field rendered across its combinations.
type reach struct {
	shown, total int
	panicked     bool
}

func (r reach) hideable() bool { return r.shown < r.total }

// sweep renders field under every combination of sampled dependency values
// and returns the distinct fields it produced.
func (l *linter) sweep(field model.Field, scope []model.Field, samples map[string][]any, path string) ([]model.Field, reach) {
	combos := l.combinations(field.Deps, samples)

	var (
		variants []model.Field
		seen     = map[string]bool{}
		result   = reach{total: len(combos)}
	)
	for _, answers := range combos {
		out, err := render(field, answers)
		if err != nil {
			l.report.add(SeverityError, CodeRenderPanic, path, fmt.Sprintf("render panics with %s: %v", describe(answers), err))
			result.panicked = true
			return variants, result
		}
		if out == nil {
			continue
		}
		result.shown++
		if key := signature(out); !seen[key] {
			seen[key] = true
			variants = append(variants, *out)
		}
	}

	undeclared := l.undeclaredReads(field, scope, samples, combos, path)
	switch {
	case result.shown == 0 && !undeclared:
		l.report.add(SeverityWarning, CodeNeverRendered, path, "never renders for any sampled dependency values")
	case result.shown == result.total && !undeclared:
		l.report.add(SeverityWarning, CodeAlwaysRendered, path, "renders for every sampled value, including absent dependencies; declare it as a static field")
	}
	return variants, result
}

// optionality checks the rule of a dynamic field against how often it
// rendered: a hideable field must accept being absent, and one that always
// renders should not be optional.
func (l *linter) optionality(rule validation.Rule, seen reach, path string) {
	if seen.panicked || seen.total == 0 {
		return
	}
	switch {
	case seen.hideable() && !rule.Hideable():
		l.report.add(SeverityError, CodeRequiredHidden, path,
			fmt.Sprintf("hidden for %d of %d sampled dependency values but its rule is required; mark it optional or whenVisible", seen.total-seen.shown, seen.total))
	case !seen.hideable() && rule.Optional:
		l.report.add(SeverityWarning, CodeOptionalShown, path, "renders for every sampled value but its rule is optional")
	}
}

// undeclaredReads varies every other field of the scope and reports the
// ones that change the render outcome without being declared as deps.
func (l *linter) undeclaredReads(field model.Field, scope []model.Field, samples map[string][]any, combos []model.Answers, path string) bool {
	declared := make(map[string]bool, len(field.Deps))
	for _, dep := range field.Deps {
		declared[dep] = true
	}
	base := combos
	if len(base) > undeclaredBase {
		base = base[:undeclaredBase]
	}

	found := false
	for _, other := range scope {
		if other.Name == field.Name || declared[other.Name] {
			continue
		}
		values, ok := samples[other.Name]
		if !ok {
			if other.IsDynamic() {
				continue
			}
			values = sampleValues(other)
		}
		if reads(field, other.Name, values, base) {
			l.report.add(SeverityWarning, CodeUndeclaredRead, path, fmt.Sprintf("reads %s without declaring it in deps", other.Name))
			found = true
		}
	}
	return found
}

func reads(field model.Field, name string, values []any, base []model.Answers) bool {
	for _, answers := range base {
		out, err := render(field, answers)
		want := outcome(out, err)
		for _, v := range values {
			if _, skip := v.(absent); skip {
				continue
			}
			trial := answers.Clone()
			trial[name] = v
			out, err := render(field, trial)
			if outcome(out, err) != want {
				return true
			}
		}
	}
	return false
}

// combinations enumerates the cartesian product of the dependency samples
// in mixed-radix order, stopping at maxCombinations.
func (l *linter) combinations(deps []string, samples map[string][]any) []model.Answers {
	pools := make([][]any, len(deps))
	for i, dep := range deps {
		pool, ok := samples[dep]
		if !ok || len(pool) == 0 {
			pool = []any{absent{}}
		}
		pools[i] = pool
	}

	var out []model.Answers
	idx := make([]int, len(deps))
	for len(out) < l.maxCombinations {
		answers := model.Answers{}
		for i, dep := range deps {
			if v := pools[i][idx[i]]; !isAbsent(v) {
				answers[dep] = v
			}
		}
		out = append(out, answers)

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(pools[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return out
}

func render(field model.Field, answers model.Answers) (out *model.Field, err error) {
	if field.Render == nil {
		return nil, errors.New("no render function")
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%v", rec)
		}
	}()
	return field.Render(answers), nil
}

func outcome(out *model.Field, err error) string {
	if err != nil {
		return "panic"
	}
	return signature(out)
}

func signature(f *model.Field) string {
	if f == nil {
		return "hidden"
	}
	return fmt.Sprintf("%s|%s|%s|%v|%s|%s|%d",
		f.Kind, f.Variant, f.Label, f.OptionValues(), bound(f.Min), bound(f.Max), len(f.Fieldset))
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func describe(answers model.Answers) string {
	if len(answers) == 0 {
		return "no answers"
	}
	keys := make([]string, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, answers[key]))
	}
	return strings.Join(parts, ", ")
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
