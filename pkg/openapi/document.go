package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-labforms/pkg/instrument"
)

const (
	resultSchemaName = "SubmissionResult"
	errorsSchemaName = "ValidationErrors"
	basePath         = "/instruments"
)

// Options configures Build.
type Options struct {
	Title   string
	Version string
	Servers []string
}

// Option mutates Options.
type Option func(*Options)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(o *Options) {
		if title != "" {
			o.Title = title
		}
	}
}

// WithVersion sets info.version.
func WithVersion(version string) Option {
	return func(o *Options) {
		if version != "" {
			o.Version = version
		}
	}
}

// WithServer appends a server URL.
func WithServer(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.Servers = append(o.Servers, url)
		}
	}
}

// Build assembles and validates the document for insts.
func Build(ctx context.Context, insts []*instrument.Instrument, options ...Option) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := Options{Title: "Lab instruments", Version: "1.0.0"}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: opts.Title, Version: opts.Version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				resultSchemaName: openapi3.NewSchemaRef("", resultSchema()),
				errorsSchemaName: openapi3.NewSchemaRef("", errorsSchema()),
			},
		},
	}
	for _, url := range opts.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	for _, inst := range insts {
		if inst == nil {
			continue
		}
		name := SchemaName(inst.ID)
		if _, exists := doc.Components.Schemas[name]; exists {
			return nil, fmt.Errorf("openapi: duplicate instrument %q", inst.ID)
		}
		submission := SubmissionSchema(inst.Content, inst.Schema)
		submission.Title = inst.Title()
		submission.Description = inst.Details.Description
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", submission)
		doc.Paths.Set(SubmissionPath(inst.ID), &openapi3.PathItem{Post: operation(inst, doc.Components.Schemas)})
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

// SchemaName is the component name of an instrument's submission schema.
func SchemaName(id string) string {
	return id + ".Submission"
}

// SubmissionPath is the route an instrument's answers are posted to.
func SubmissionPath(id string) string {
	return basePath + "/" + id + "/submissions"
}

func operation(inst *instrument.Instrument, schemas openapi3.Schemas) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "submit-" + inst.ID
	op.Summary = "Submit " + inst.Title()
	op.Description = inst.Details.Description
	op.Tags = append([]string(nil), inst.Details.Tags...)

	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(componentRef(SchemaName(inst.ID), schemas)),
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Accepted submission with its measures").
				WithJSONSchemaRef(componentRef(resultSchemaName, schemas)),
		}),
		openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Every failing visible field").
				WithJSONSchemaRef(componentRef(errorsSchemaName, schemas)),
		}),
	)
	return op
}

func componentRef(name string, schemas openapi3.Schemas) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if ref, ok := schemas[name]; ok {
		value = ref.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func resultSchema() *openapi3.Schema {
	value := openapi3.NewObjectSchema().
		WithProperty("key", openapi3.NewStringSchema()).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("kind", openapi3.NewStringSchema().WithEnum("const", "computed")).
		WithProperty("value", &openapi3.Schema{})
	value.Required = []string{"key", "kind", "value"}

	warning := openapi3.NewObjectSchema().
		WithProperty("measure", openapi3.NewStringSchema()).
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())

	measures := openapi3.NewObjectSchema().
		WithProperty("values", openapi3.NewArraySchema().WithItems(value)).
		WithProperty("warnings", openapi3.NewArraySchema().WithItems(warning))

	s := openapi3.NewObjectSchema().
		WithProperty("instrument", openapi3.NewStringSchema()).
		WithProperty("visible", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("answers", openapi3.NewObjectSchema()).
		WithProperty("measures", measures)
	s.Required = []string{"instrument", "visible", "answers", "measures"}
	return s
}

func errorsSchema() *openapi3.Schema {
	issue := openapi3.NewObjectSchema().
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema().WithEnum(
			"required", "invalid_type", "out_of_range", "invalid_enum", "not_a_number",
		))
	issue.Required = []string{"path", "message", "code"}

	s := openapi3.NewObjectSchema().
		WithProperty("issues", openapi3.NewArraySchema().WithItems(issue))
	s.Required = []string{"issues"}
	return s
}

// ValidatePayload checks a decoded JSON value against schema. Go values
// are round-tripped through encoding/json first so integers and typed maps
// match what a client would send.
func ValidatePayload(schema *openapi3.Schema, payload any) error {
	if schema == nil {
		return errors.New("openapi: schema is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openapi: encode payload: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("openapi: decode payload: %w", err)
	}
	return schema.VisitJSON(decoded, openapi3.MultiErrors())
}

// Load parses a serialized document and validates it.
func Load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}
