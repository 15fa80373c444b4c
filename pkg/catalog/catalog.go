// Package catalog keeps the instruments a process serves. Registration runs
// every load-time check, so a registered instrument is known to be
// well-formed; lookups afterwards are read-only and safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/lint"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

var (
	ErrNotFound       = errors.New("catalog: instrument not found")
	ErrDuplicate      = errors.New("catalog: instrument already registered")
	ErrInvalidDetails = errors.New("catalog: invalid details")
	ErrLintFailed     = errors.New("catalog: lint failed")
)

// Registry stores instruments by id.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]*instrument.Instrument
	validate    *validator.Validate
	logger      *zap.Logger
	lint        bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLint runs the lint render checks on registration. Lint errors reject the
// instrument; warnings are logged.
func WithLint(enabled bool) Option {
	return func(r *Registry) {
		r.lint = enabled
	}
}

// New creates an empty registry.
func New(options ...Option) *Registry {
	r := &Registry{
		instruments: make(map[string]*instrument.Instrument),
		validate:    validator.New(),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register checks inst and adds it under its id. Definition problems are
// returned as *visibility.DefinitionError and leave the registry unchanged.
func (r *Registry) Register(inst *instrument.Instrument) error {
	if inst == nil {
		return fmt.Errorf("catalog: instrument is required")
	}
	if err := inst.Check(); err != nil {
		r.logger.Error("instrument rejected", zap.String("instrument", inst.ID), zap.Error(err))
		return err
	}
	if err := r.checkDetails(inst); err != nil {
		r.logger.Error("instrument rejected", zap.String("instrument", inst.ID), zap.Error(err))
		return err
	}
	if r.lint {
		if err := r.runLint(inst); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instruments[inst.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, inst.ID)
	}
	r.instruments[inst.ID] = inst
	r.logger.Debug("instrument registered",
		zap.String("instrument", inst.ID),
		zap.String("version", inst.Version),
		zap.Int("fields", len(inst.Content)),
		zap.Int("measures", len(inst.Measures)),
	)
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(inst *instrument.Instrument) {
	if err := r.Register(inst); err != nil {
		panic(err)
	}
}

// Get retrieves an instrument by id.
func (r *Registry) Get(id string) (*instrument.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instruments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return inst, nil
}

// MustGet panics if the instrument is missing.
func (r *Registry) MustGet(id string) *instrument.Instrument {
	inst, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return inst
}

// List returns the registered ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.instruments))
	for id := range r.instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Instruments returns the registered instruments sorted by id.
func (r *Registry) Instruments() []*instrument.Instrument {
	ids := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*instrument.Instrument, 0, len(ids))
	for _, id := range ids {
		if inst, ok := r.instruments[id]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// Has reports whether an instrument is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.instruments[id]
	return ok
}

func (r *Registry) checkDetails(inst *instrument.Instrument) error {
	err := r.validate.Struct(inst.Details)
	if err == nil && inst.ClientDetails != nil {
		err = r.validate.Struct(inst.ClientDetails)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &visibility.DefinitionError{Instrument: inst.ID, Reason: "details", Err: err}
	}
	first := verrs[0]
	return &visibility.DefinitionError{
		Instrument: inst.ID,
		Field:      "details." + lowerFirst(first.Field()),
		Reason:     detailMessage(verrs),
		Err:        ErrInvalidDetails,
	}
}

func (r *Registry) runLint(inst *instrument.Instrument) error {
	report := lint.Check(inst)
	for _, issue := range report.Issues {
		r.logger.Warn("lint",
			zap.String("instrument", inst.ID),
			zap.String("severity", string(issue.Severity)),
			zap.String("code", string(issue.Code)),
			zap.String("field", issue.Field),
			zap.String("message", issue.Message),
		)
	}
	if report.HasErrors() {
		return fmt.Errorf("%w: %s", ErrLintFailed, strings.TrimSpace(report.String()))
	}
	return nil
}

var detailMessages = map[string]string{
	"required": "is required",
	"gte":      "must be at least %s",
	"url":      "must be a URL",
}

func detailMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := detailMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		parts = append(parts, lowerFirst(fe.Field())+" "+msg)
	}
	return strings.Join(parts, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
