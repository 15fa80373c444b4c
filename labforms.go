// Package labforms wires the built-in lab instruments into a catalog and
// exposes the evaluation pipeline: resolve the visible fields, validate the
// visible answers, then project the measures.
package labforms

import (
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/goliatone/go-labforms/components/instruments"
	"github.com/goliatone/go-labforms/pkg/catalog"
	"github.com/goliatone/go-labforms/pkg/definition"
	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/session"
)

// Instrument aliases instrument.Instrument for callers of the root package.
type Instrument = instrument.Instrument

// Result aliases instrument.Result.
type Result = instrument.Result

// Answers aliases model.Answers.
type Answers = model.Answers

// Option configures Default.
type Option func(*config)

type config struct {
	definitions fs.FS
	logger      *zap.Logger
	lint        bool
	builtins    bool
}

// WithDefinitionsDir registers every definition file found under dir. An
// empty dir is ignored.
func WithDefinitionsDir(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.definitions = os.DirFS(dir)
		}
	}
}

// WithDefinitionsFS registers every definition file found in fsys.
func WithDefinitionsFS(fsys fs.FS) Option {
	return func(c *config) {
		c.definitions = fsys
	}
}

// WithLogger passes logger to the catalog.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLint rejects instruments whose authoring checks report errors.
func WithLint(enabled bool) Option {
	return func(c *config) {
		c.lint = enabled
	}
}

// WithoutBuiltins starts from an empty catalog.
func WithoutBuiltins() Option {
	return func(c *config) {
		c.builtins = false
	}
}

// Default returns a catalog holding the built-in instruments followed by
// any external definitions.
func Default(options ...Option) (*catalog.Registry, error) {
	cfg := config{builtins: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	reg := catalog.New(catalog.WithLogger(cfg.logger), catalog.WithLint(cfg.lint))
	if cfg.builtins {
		if err := instruments.Register(reg); err != nil {
			return nil, err
		}
	}
	if cfg.definitions == nil {
		return reg, nil
	}

	external, err := definition.LoadFS(cfg.definitions)
	if err != nil {
		return nil, err
	}
	for _, inst := range external {
		if err := reg.Register(inst); err != nil {
			return nil, fmt.Errorf("labforms: register %s: %w", inst.ID, err)
		}
	}
	return reg, nil
}

// Evaluate runs the pipeline over answers in one step.
func Evaluate(inst *Instrument, answers Answers) (*Result, error) {
	if inst == nil {
		return nil, fmt.Errorf("labforms: instrument is required")
	}
	return inst.Evaluate(answers)
}

// NewSession starts an incremental answer set for inst, seeded with a copy
// of prefill.
func NewSession(inst *Instrument, prefill Answers) (*session.Session, error) {
	return session.New(inst, session.WithAnswers(prefill))
}
