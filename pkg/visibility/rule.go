package visibility

import (
	"fmt"

	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/visibility/expr"
)

// When compiles rule into a RenderFunc that returns field while the rule
// holds and nil otherwise. Evaluation errors panic so the resolver reports
// them as DefinitionErrors.
func When(rule string, field model.Field) (model.RenderFunc, error) {
	prog, err := expr.Compile(rule)
	if err != nil {
		return nil, fmt.Errorf("visibility: compile rule %q: %w", rule, err)
	}
	return whenProgram(prog, field), nil
}

// Conditional builds a dynamic field named name whose deps are the answer
// keys the rule reads.
func Conditional(name, rule string, field model.Field) (model.Field, error) {
	prog, err := expr.Compile(rule)
	if err != nil {
		return model.Field{}, fmt.Errorf("visibility: field %s: compile rule %q: %w", name, rule, err)
	}
	return model.Field{
		Name:   name,
		Kind:   model.FieldKindDynamic,
		Deps:   prog.Identifiers(),
		Render: whenProgram(prog, field),
	}, nil
}

// MustConditional is Conditional that panics on a malformed rule.
func MustConditional(name, rule string, field model.Field) model.Field {
	out, err := Conditional(name, rule, field)
	if err != nil {
		panic(err)
	}
	return out
}

func whenProgram(prog *expr.Program, field model.Field) model.RenderFunc {
	return func(answers model.Answers) *model.Field {
		ok, err := prog.Eval(answers)
		if err != nil {
			panic(fmt.Errorf("rule %q: %w", prog.String(), err))
		}
		if !ok {
			return nil
		}
		out := field
		return &out
	}
}
