package visibility

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUndeclaredDependency marks a deps entry naming no field in scope.
	ErrUndeclaredDependency = errors.New("undeclared dependency")
	// ErrForwardDependency marks a dependency on a field declared later.
	ErrForwardDependency = errors.New("forward dependency")
	// ErrCyclicDependency marks a dependency cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrRenderPanic marks a render function that panicked.
	ErrRenderPanic = errors.New("render panicked")
	// ErrDuplicateField marks two fields with the same name in one scope.
	ErrDuplicateField = errors.New("duplicate field")
)

// DefinitionError reports a malformed instrument definition. It is fatal at
// load time: callers must not render an instrument that produced one.
type DefinitionError struct {
	Instrument string
	Field      string
	Reason     string
	Err        error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("definition error")
	if e.Instrument != "" {
		fmt.Fprintf(&b, " in %s", e.Instrument)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " at %s", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// IsDefinitionError reports whether err wraps a DefinitionError.
func IsDefinitionError(err error) bool {
	var defErr *DefinitionError
	return errors.As(err, &defErr)
}

func joinPath(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
