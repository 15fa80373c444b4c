// Package prompt fills a session interactively. Fields are asked in
// declaration order; after every answer the session re-resolves, so a field
// that appears because of an earlier answer is asked next and a field that
// disappears is never asked.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/session"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

var (
	// ErrAborted signals the user interrupted input.
	ErrAborted = errors.New("prompt: aborted")
	// ErrNoDriver is returned when a Filler has no driver.
	ErrNoDriver = errors.New("prompt: driver is nil")
)

const noneOption = "(none)"

// Option configures a Filler.
type Option func(*Filler)

// WithDriver replaces the survey driver.
func WithDriver(driver Driver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithLogger sets the logger used for session events.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxRounds bounds how many rejected submissions are corrected before
// the validation errors are returned.
func WithMaxRounds(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxRounds = n
		}
	}
}

// Filler asks for every visible field of a session and submits it.
type Filler struct {
	driver    Driver
	logger    *zap.Logger
	maxRounds int
}

// New constructs a Filler that prompts on the terminal by default.
func New(options ...Option) *Filler {
	f := &Filler{
		driver:    NewSurveyDriver(nil),
		logger:    zap.NewNop(),
		maxRounds: 3,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fill prompts until the session submits. Rejected submissions are shown
// to the user and only the failing paths are asked again.
func (f *Filler) Fill(ctx context.Context, s *session.Session) (*instrument.Result, error) {
	if f.driver == nil {
		return nil, ErrNoDriver
	}
	if s == nil {
		return nil, errors.New("prompt: session is required")
	}

	if err := f.fillScope(ctx, s); err != nil {
		return nil, err
	}

	for round := 1; ; round++ {
		result, err := s.Submit()
		if err == nil {
			f.logger.Debug("session submitted",
				zap.String("instrument", result.Instrument),
				zap.Int("rounds", round),
			)
			return result, nil
		}
		var verrs *validation.Errors
		if !errors.As(err, &verrs) || round >= f.maxRounds {
			return nil, err
		}
		f.logger.Debug("submission rejected",
			zap.String("instrument", s.Instrument().ID),
			zap.Int("issues", verrs.Len()),
		)
		for _, issue := range verrs.Issues {
			if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", issue.Path, issue.Message)); err != nil {
				return nil, err
			}
		}
		for _, path := range issuePaths(verrs) {
			if err := f.reask(ctx, s, path); err != nil {
				return nil, err
			}
		}
	}
}

// fillScope asks each top-level field once, rescanning the resolution after
// every answer.
func (f *Filler) fillScope(ctx context.Context, s *session.Session) error {
	asked := make(map[string]struct{})
	for {
		next, ok := firstUnasked(s.Visible(), asked)
		if !ok {
			return nil
		}
		asked[next.Name] = struct{}{}

		var err error
		if next.Field.Kind == model.FieldKindRecordArray {
			err = f.fillRecords(ctx, s, next)
		} else {
			err = f.askPath(ctx, s, next.Name, next.Field, f.rule(s, next.Name, ""))
		}
		if err != nil {
			return err
		}
	}
}

func (f *Filler) fillRecords(ctx context.Context, s *session.Session, resolved visibility.Resolved) error {
	name := resolved.Name
	for idx := range resolved.Records {
		if err := f.fillElement(ctx, s, name, idx); err != nil {
			return err
		}
	}

	label := displayLabel(resolved.Field)
	for {
		count := len(recordsOf(s, name))
		message := fmt.Sprintf("Add %s entry?", label)
		if count > 0 {
			message = fmt.Sprintf("Add another %s entry? (%d so far)", label, count)
		}
		more, err := f.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: resolved.Field.Description})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		idx, change, err := s.Append(name)
		if err != nil {
			return err
		}
		f.logChange(name, change)
		if err := f.fillElement(ctx, s, name, idx); err != nil {
			return err
		}
	}
}

func (f *Filler) fillElement(ctx context.Context, s *session.Session, field string, idx int) error {
	asked := make(map[string]struct{})
	for {
		records := recordsOf(s, field)
		if idx >= len(records) {
			return nil
		}
		next, ok := firstUnasked(records[idx], asked)
		if !ok {
			return nil
		}
		asked[next.Name] = struct{}{}
		path := fmt.Sprintf("%s.%d.%s", field, idx, next.Name)
		if err := f.askPath(ctx, s, path, next.Field, f.rule(s, field, next.Name)); err != nil {
			return err
		}
	}
}

// reask prompts for one failing path again.
func (f *Filler) reask(ctx context.Context, s *session.Session, path string) error {
	top, rest, nested := strings.Cut(path, ".")
	resolved, ok := s.Visible().Lookup(top)
	if !ok {
		return nil
	}
	if !nested {
		if resolved.Field.Kind == model.FieldKindRecordArray {
			return f.fillRecords(ctx, s, resolved)
		}
		return f.askPath(ctx, s, top, resolved.Field, f.rule(s, top, ""))
	}

	rawIdx, sub, _ := strings.Cut(rest, ".")
	idx, err := strconv.Atoi(rawIdx)
	if err != nil || idx < 0 || idx >= len(resolved.Records) {
		return nil
	}
	if sub == "" {
		return f.fillElement(ctx, s, top, idx)
	}
	element, ok := resolved.Records[idx].Lookup(sub)
	if !ok {
		return nil
	}
	return f.askPath(ctx, s, path, element.Field, f.rule(s, top, sub))
}

func (f *Filler) askPath(ctx context.Context, s *session.Session, path string, field model.Field, rule *validation.Rule) error {
	current, _ := s.Value(path)
	value, present, err := f.ask(ctx, path, field, rule, current)
	if err != nil {
		return err
	}

	var change session.Change
	switch {
	case present:
		change, err = s.Set(path, value)
	case current != nil:
		change, err = s.Unset(path)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("prompt: %s: %w", path, err)
	}
	f.logChange(path, change)
	return nil
}

func (f *Filler) logChange(path string, change session.Change) {
	if change.Empty() {
		return
	}
	f.logger.Debug("visibility changed",
		zap.String("path", path),
		zap.Strings("shown", change.Shown),
		zap.Strings("hidden", change.Hidden),
	)
}

// rule returns the rule for a top-level field, or for sub inside the
// element schema of field.
func (f *Filler) rule(s *session.Session, field, sub string) *validation.Rule {
	rule, ok := s.Instrument().Schema.Lookup(field)
	if !ok {
		return nil
	}
	if sub == "" {
		return &rule
	}
	element, ok := rule.Element.Lookup(sub)
	if !ok {
		return nil
	}
	return &element
}

func firstUnasked(res visibility.Resolution, asked map[string]struct{}) (visibility.Resolved, bool) {
	for _, field := range res.Fields {
		if _, done := asked[field.Name]; !done {
			return field, true
		}
	}
	return visibility.Resolved{}, false
}

func recordsOf(s *session.Session, field string) []visibility.Resolution {
	resolved, ok := s.Visible().Lookup(field)
	if !ok {
		return nil
	}
	return resolved.Records
}

// issuePaths dedupes issue paths, keeping their order.
func issuePaths(errs *validation.Errors) []string {
	seen := make(map[string]struct{}, len(errs.Issues))
	var out []string
	for _, issue := range errs.Issues {
		if _, ok := seen[issue.Path]; ok {
			continue
		}
		seen[issue.Path] = struct{}{}
		out = append(out, issue.Path)
	}
	return out
}
