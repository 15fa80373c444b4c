// Package session tracks one in-progress answer set. Every mutation
// re-resolves the dynamic fields it can affect before returning, so Visible
// always reflects the current answers.
//
// A Session has a single writer and no locking; the instrument it wraps is
// shared read-only.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/instrument"
	"github.com/goliatone/go-labforms/pkg/measures"
	"github.com/goliatone/go-labforms/pkg/model"
	"github.com/goliatone/go-labforms/pkg/validation"
	"github.com/goliatone/go-labforms/pkg/visibility"
)

var (
	ErrFinalized      = errors.New("session: finalized")
	ErrUnknownField   = errors.New("session: unknown field")
	ErrNotRecordArray = errors.New("session: not a visible record array")
)

// Change lists the field paths that appeared and disappeared with the last
// mutation, in declaration order.
type Change struct {
	Shown  []string `json:"shown,omitempty"`
	Hidden []string `json:"hidden,omitempty"`
}

// Empty reports whether nothing appeared or disappeared.
func (c Change) Empty() bool {
	return len(c.Shown) == 0 && len(c.Hidden) == 0
}

// Session holds answers and the resolution they produce.
type Session struct {
	inst       *instrument.Instrument
	resolver   *visibility.Resolver
	graph      *visibility.Graph
	answers    model.Answers
	resolution visibility.Resolution
	last       Change
	result     *instrument.Result
}

// Option configures a Session.
type Option func(*Session)

// WithResolver replaces the default resolver.
func WithResolver(resolver *visibility.Resolver) Option {
	return func(s *Session) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithAnswers seeds the session with a copy of prefill.
func WithAnswers(prefill model.Answers) Option {
	return func(s *Session) {
		s.answers = prefill.Clone()
	}
}

// New starts a session for inst. It fails with a *visibility.DefinitionError
// when the instrument's dependency graph is invalid or a render panics on
// the initial answers.
func New(inst *instrument.Instrument, options ...Option) (*Session, error) {
	if inst == nil {
		return nil, fmt.Errorf("session: instrument is required")
	}
	graph, err := inst.Graph()
	if err != nil {
		return nil, err
	}

	s := &Session{
		inst:     inst,
		resolver: visibility.NewResolver(visibility.WithInstrument(inst.ID)),
		graph:    graph,
		answers:  model.Answers{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.answers == nil {
		s.answers = model.Answers{}
	}

	res, err := s.resolver.Resolve(inst.Content, s.answers)
	if err != nil {
		return nil, err
	}
	s.resolution = res
	return s, nil
}

// Instrument returns the wrapped instrument.
func (s *Session) Instrument() *instrument.Instrument { return s.inst }

// Visible returns the current resolution.
func (s *Session) Visible() visibility.Resolution { return s.resolution }

// Changes returns what the last mutation showed and hid.
func (s *Session) Changes() Change { return s.last }

// Answers returns a copy of the current answers, hidden ones included.
func (s *Session) Answers() model.Answers { return s.answers.Clone() }

// Value reads a dotted path such as "samples.0.organ".
func (s *Session) Value(path string) (any, bool) {
	return getPath(s.answers, path)
}

// Finalized reports whether Submit has succeeded.
func (s *Session) Finalized() bool { return s.result != nil }

// Set writes value at path and re-resolves. Paths are a top-level field
// name, optionally followed by a record index and a sub-field name.
func (s *Session) Set(path string, value any) (Change, error) {
	top, err := s.mutable(path)
	if err != nil {
		return Change{}, err
	}
	if err := setPath(s.answers, path, value); err != nil {
		return Change{}, err
	}
	return s.refresh(top)
}

// Unset removes the answer at path and re-resolves.
func (s *Session) Unset(path string) (Change, error) {
	top, err := s.mutable(path)
	if err != nil {
		return Change{}, err
	}
	if err := unsetPath(s.answers, path); err != nil {
		return Change{}, err
	}
	return s.refresh(top)
}

// Append adds an empty element to a visible record array and returns its
// index.
func (s *Session) Append(field string) (int, Change, error) {
	if _, err := s.recordField(field); err != nil {
		return -1, Change{}, err
	}
	records := recordSlice(s.answers[field])
	records = append(records, map[string]any{})
	s.answers[field] = records
	change, err := s.refresh(field)
	return len(records) - 1, change, err
}

// Remove deletes element idx of a record array.
func (s *Session) Remove(field string, idx int) (Change, error) {
	if _, err := s.recordField(field); err != nil {
		return Change{}, err
	}
	records := recordSlice(s.answers[field])
	if idx < 0 || idx >= len(records) {
		return Change{}, fmt.Errorf("session: %s has no element %d", field, idx)
	}
	s.answers[field] = append(records[:idx:idx], records[idx+1:]...)
	return s.refresh(field)
}

// Submit validates the visible answers and projects the measures. A
// rejected submission returns *validation.Errors and leaves the session
// open for correction; a successful one finalizes it.
func (s *Session) Submit() (*instrument.Result, error) {
	if s.result != nil {
		return nil, ErrFinalized
	}
	normalized, err := validation.Validate(s.resolution, s.answers, s.inst.Schema)
	if err != nil {
		return nil, err
	}
	proj, err := measures.Project(s.inst.Measures, normalized)
	if err != nil {
		return nil, err
	}
	s.result = &instrument.Result{
		Instrument: s.inst.ID,
		Visible:    s.resolution.Names(),
		Answers:    normalized,
		Measures:   proj,
		Resolution: s.resolution,
	}
	return s.result, nil
}

// MapErrors places errors reported by the receiver of a submission onto
// the currently visible paths.
func (s *Session) MapErrors(payload map[string][]string) validation.Mapping {
	return validation.MapIssues(s.resolution, payload)
}

// Result returns the submitted result, or nil before a successful Submit.
func (s *Session) Result() *instrument.Result { return s.result }

func (s *Session) mutable(path string) (string, error) {
	if s.result != nil {
		return "", ErrFinalized
	}
	top, _, _ := strings.Cut(path, ".")
	if top == "" {
		return "", fmt.Errorf("session: empty path")
	}
	if _, _, ok := model.Lookup(s.inst.Content, top); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, top)
	}
	return top, nil
}

func (s *Session) recordField(field string) (visibility.Resolved, error) {
	if s.result != nil {
		return visibility.Resolved{}, ErrFinalized
	}
	resolved, ok := s.resolution.Lookup(field)
	if !ok || resolved.Field.Kind != model.FieldKindRecordArray {
		return visibility.Resolved{}, fmt.Errorf("%w: %q", ErrNotRecordArray, field)
	}
	return resolved, nil
}

// refresh re-resolves the field that changed and every dynamic field.
// Deps only hint at what a render reads, so a field outside
// graph.Affected(changed) may still flip.
func (s *Session) refresh(changed string) (Change, error) {
	names := append([]string{changed}, s.graph.Dynamic()...)
	next, err := s.resolver.Reresolve(s.inst.Content, s.answers, s.resolution, names)
	if err != nil {
		return Change{}, err
	}
	s.last = diff(s.resolution.Paths(), next.Paths())
	s.resolution = next
	return s.last, nil
}

func diff(before, after []string) Change {
	had := make(map[string]struct{}, len(before))
	for _, p := range before {
		had[p] = struct{}{}
	}
	has := make(map[string]struct{}, len(after))
	for _, p := range after {
		has[p] = struct{}{}
	}

	var change Change
	for _, p := range after {
		if _, ok := had[p]; !ok {
			change.Shown = append(change.Shown, p)
		}
	}
	for _, p := range before {
		if _, ok := has[p]; !ok {
			change.Hidden = append(change.Hidden, p)
		}
	}
	return change
}
