// Package visibility resolves which fields of an instrument currently
// render. Static fields are always present; dynamic fields are rendered
// against the answers collected so far and disappear when their render
// function returns nil. Record-array fields are resolved once per element,
// with that element's answers as the evaluation scope.
package visibility

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithInstrument labels DefinitionErrors with the instrument id.
func WithInstrument(id string) Option {
	return func(r *Resolver) {
		r.instrument = strings.TrimSpace(id)
	}
}

// Resolver evaluates dynamic fields. It holds no per-session state and is
// safe for concurrent use.
type Resolver struct {
	instrument string
}

// NewResolver constructs a Resolver.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Resolve is a convenience for NewResolver().Resolve.
func Resolve(content []model.Field, answers model.Answers) (Resolution, error) {
	return NewResolver().Resolve(content, answers)
}

// Resolve computes the visible field set in declaration order. Render
// functions receive the answers of their scope minus every field already
// hidden earlier in the pass, so a stale answer to a hidden field never
// drives another field. Deps only drive re-evaluation. A panicking render
// function is a DefinitionError.
func (r *Resolver) Resolve(content []model.Field, answers model.Answers) (Resolution, error) {
	return r.resolveScope(content, answers, "")
}

// Reresolve recomputes only the named fields, reusing prev for the rest.
// names must hold every dynamic field affected by the change plus any
// record-array field whose element answers changed.
func (r *Resolver) Reresolve(content []model.Field, answers model.Answers, prev Resolution, names []string) (Resolution, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	scope := newScope(answers)
	out := Resolution{Fields: make([]Resolved, 0, len(content))}
	for _, field := range content {
		if _, redo := wanted[field.Name]; !redo {
			if cached, ok := prev.Lookup(field.Name); ok {
				out.Fields = append(out.Fields, cached)
				continue
			}
			if field.IsDynamic() {
				// hidden before and not affected
				scope.hide(field.Name)
				continue
			}
		}
		resolved, visible, err := r.resolveField(field, scope.answers, "")
		if err != nil {
			return Resolution{}, err
		}
		if !visible {
			scope.hide(field.Name)
			continue
		}
		out.Fields = append(out.Fields, resolved)
	}
	return out, nil
}

func (r *Resolver) resolveScope(fields []model.Field, answers model.Answers, path string) (Resolution, error) {
	scope := newScope(answers)
	out := Resolution{Fields: make([]Resolved, 0, len(fields))}
	for _, field := range fields {
		resolved, visible, err := r.resolveField(field, scope.answers, path)
		if err != nil {
			return Resolution{}, err
		}
		if !visible {
			scope.hide(field.Name)
			continue
		}
		out.Fields = append(out.Fields, resolved)
	}
	return out, nil
}

// scope is the answer view renders see during one pass. It shares the
// caller's map until the first hidden field has an answer to drop.
type scope struct {
	answers model.Answers
	owned   bool
}

func newScope(answers model.Answers) *scope {
	return &scope{answers: answers}
}

func (s *scope) hide(name string) {
	if _, ok := s.answers[name]; !ok {
		return
	}
	if !s.owned {
		copied := make(model.Answers, len(s.answers))
		for k, v := range s.answers {
			copied[k] = v
		}
		s.answers = copied
		s.owned = true
	}
	delete(s.answers, name)
}

func (r *Resolver) resolveField(field model.Field, answers model.Answers, path string) (Resolved, bool, error) {
	fieldPath := joinPath(path, field.Name)
	concrete := field
	if field.IsDynamic() {
		rendered, err := r.render(field, answers, fieldPath)
		if err != nil {
			return Resolved{}, false, err
		}
		if rendered == nil {
			return Resolved{}, false, nil
		}
		concrete = *rendered
		concrete.Name = field.Name
		if concrete.IsDynamic() {
			return Resolved{}, false, r.definitionError(fieldPath, "render returned another dynamic field", nil)
		}
	}

	resolved := Resolved{Name: field.Name, Field: concrete, Dynamic: field.IsDynamic()}
	if concrete.Kind == model.FieldKindRecordArray {
		if field.IsDynamic() {
			// fieldsets of static record arrays are checked at load time
			if _, err := newGraph(concrete.Fieldset, fieldPath); err != nil {
				return Resolved{}, false, r.annotate(err)
			}
		}
		records := answers.Records(field.Name)
		resolved.Records = make([]Resolution, 0, len(records))
		for idx, rec := range records {
			sub, err := r.resolveScope(concrete.Fieldset, rec, joinPath(fieldPath, fmt.Sprint(idx)))
			if err != nil {
				return Resolved{}, false, err
			}
			resolved.Records = append(resolved.Records, sub)
		}
	}
	return resolved, true, nil
}

func (r *Resolver) render(field model.Field, answers model.Answers, path string) (out *model.Field, err error) {
	if field.Render == nil {
		return nil, r.definitionError(path, "dynamic field has no render function", nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = r.definitionError(path, fmt.Sprint(rec), ErrRenderPanic)
		}
	}()
	if answers == nil {
		answers = model.Answers{}
	}
	return field.Render(answers), nil
}

func (r *Resolver) definitionError(path, reason string, cause error) error {
	return &DefinitionError{
		Instrument: r.instrument,
		Field:      path,
		Reason:     reason,
		Err:        cause,
	}
}

func (r *Resolver) annotate(err error) error {
	if defErr, ok := err.(*DefinitionError); ok && defErr.Instrument == "" {
		clone := *defErr
		clone.Instrument = r.instrument
		return &clone
	}
	return err
}
