// Package instrument binds a form definition to its validation schema and
// measures and runs the submission pipeline over them.
package instrument

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

// Kind classifies instruments. All built-ins are forms.
const KindForm = "FORM"

// Instrument is an immutable form definition. It is shared read-only by
// every session that renders it.
type Instrument struct {
	Kind          string
	ID            string
	Version       string
	Language      string
	Details       model.Details
	ClientDetails *model.ClientDetails
	Content       []model.Field
	Schema        validation.Schema
	Measures      []measures.Measure
}

// Title prefers the client override.
func (i *Instrument) Title() string {
	if i.ClientDetails != nil && strings.TrimSpace(i.ClientDetails.Title) != "" {
		return i.ClientDetails.Title
	}
	return i.Details.Title
}

// Instructions prefers the client override.
func (i *Instrument) Instructions() []string {
	if i.ClientDetails != nil && len(i.ClientDetails.Instructions) > 0 {
		return i.ClientDetails.Instructions
	}
	return i.Details.Instructions
}

// EstimatedDuration prefers the client override, in minutes.
func (i *Instrument) EstimatedDuration() int {
	if i.ClientDetails != nil && i.ClientDetails.EstimatedDuration > 0 {
		return i.ClientDetails.EstimatedDuration
	}
	return i.Details.EstimatedDuration
}

// Check runs the load-time checks: dependency graph, schema shape, schema
// against content, measures and const measure references. The first
// failure is returned as a *visibility.DefinitionError.
func (i *Instrument) Check() error {
	if strings.TrimSpace(i.ID) == "" {
		return &visibility.DefinitionError{Reason: "instrument id is required"}
	}
	if len(i.Content) == 0 {
		return i.definitionError("", "instrument has no content", nil)
	}
	if _, err := visibility.NewGraph(i.Content); err != nil {
		var defErr *visibility.DefinitionError
		if errors.As(err, &defErr) {
			clone := *defErr
			clone.Instrument = i.ID
			return &clone
		}
		return i.definitionError("", "dependency graph", err)
	}
	if err := i.Schema.Check(); err != nil {
		return i.definitionError("", "validation schema", err)
	}
	if err := i.Schema.CheckContent(i.Content); err != nil {
		return i.definitionError("", "validation schema", err)
	}
	if err := measures.Check(i.Measures); err != nil {
		return i.definitionError("", "measures", err)
	}
	for _, m := range i.Measures {
		if m.Kind != measures.KindConst {
			continue
		}
		if _, _, ok := model.Lookup(i.Content, m.Field()); !ok {
			return i.definitionError(m.Field(), fmt.Sprintf("const measure %s references an undeclared field", m.Key), nil)
		}
	}
	return nil
}

// Graph returns the dependency graph of the content.
func (i *Instrument) Graph() (*visibility.Graph, error) {
	return visibility.NewGraph(i.Content)
}

// Resolve computes the visible fields for answers.
func (i *Instrument) Resolve(answers model.Answers) (visibility.Resolution, error) {
	return i.resolver().Resolve(i.Content, answers)
}

func (i *Instrument) resolver() *visibility.Resolver {
	return visibility.NewResolver(visibility.WithInstrument(i.ID))
}

// Result is the outcome of a successful submission.
type Result struct {
	Instrument string                `json:"instrument"`
	Visible    []string              `json:"visible"`
	Answers    model.Answers         `json:"answers"`
	Measures   measures.Projection   `json:"measures"`
	Resolution visibility.Resolution `json:"-"`
}

// Evaluate runs resolve, validate and project over answers. A rejected
// submission returns a *validation.Errors; definition problems surface as
// *visibility.DefinitionError and compute panics as
// *measures.ProjectionError.
func (i *Instrument) Evaluate(answers model.Answers) (*Result, error) {
	res, err := i.Resolve(answers)
	if err != nil {
		return nil, err
	}
	normalized, err := validation.Validate(res, answers, i.Schema)
	if err != nil {
		return nil, err
	}
	proj, err := measures.Project(i.Measures, normalized)
	if err != nil {
		return nil, err
	}
	return &Result{
		Instrument: i.ID,
		Visible:    res.Names(),
		Answers:    normalized,
		Measures:   proj,
		Resolution: res,
	}, nil
}

func (i *Instrument) definitionError(field, reason string, cause error) error {
	return &visibility.DefinitionError{
		Instrument: i.ID,
		Field:      field,
		Reason:     reason,
		Err:        cause,
	}
}
