package visibility

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-labforms/pkg/model"
)

func dyn(name string, deps ...string) model.Field {
	return model.Field{
		Name: name,
		Kind: model.FieldKindDynamic,
		Deps: deps,
		Render: func(model.Answers) *model.Field {
			return &model.Field{Kind: model.FieldKindString}
		},
	}
}

func static(name string) model.Field {
	return model.Field{Name: name, Kind: model.FieldKindString}
}

func TestNewGraph_RejectsUndeclaredDependency(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{static("a"), dyn("b", "missing")})
	if !errors.Is(err, ErrUndeclaredDependency) {
		t.Fatalf("expected ErrUndeclaredDependency, got %v", err)
	}
}

func TestNewGraph_RejectsForwardDependency(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{dyn("a", "b"), static("b")})
	if !errors.Is(err, ErrForwardDependency) {
		t.Fatalf("expected ErrForwardDependency, got %v", err)
	}
}

func TestNewGraph_RejectsCycles(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{dyn("a", "c"), dyn("b", "a"), dyn("c", "b")})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError")
	}
	if defErr.Reason != "a -> c -> b -> a" {
		t.Fatalf("unexpected cycle description %q", defErr.Reason)
	}
}

func TestNewGraph_RejectsSelfDependency(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{dyn("a", "a")})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestNewGraph_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{static("a"), static("a")})
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestNewGraph_ChecksStaticFieldsets(t *testing.T) {
	t.Parallel()

	_, err := NewGraph([]model.Field{{
		Name:     "items",
		Kind:     model.FieldKindRecordArray,
		Fieldset: []model.Field{dyn("x", "outer")},
	}})
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
	if defErr.Field != "items.x" {
		t.Fatalf("expected nested field path, got %q", defErr.Field)
	}
}

func TestGraph_AffectedIsTransitiveAndOrdered(t *testing.T) {
	t.Parallel()

	g, err := NewGraph([]model.Field{
		static("a"),
		dyn("b", "a"),
		static("c"),
		dyn("d", "b"),
		dyn("e", "c"),
		dyn("f"),
	})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}

	if diff := cmp.Diff([]string{"b", "d", "f"}, g.Affected("a")); diff != "" {
		t.Fatalf("affected(a) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e", "f"}, g.Affected("c")); diff != "" {
		t.Fatalf("affected(c) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e", "f"}, g.Order()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "d", "e", "f"}, g.Dynamic()); diff != "" {
		t.Fatalf("dynamic mismatch (-want +got):\n%s", diff)
	}
}
