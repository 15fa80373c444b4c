package validation

import (
	"fmt"
	"strings"
)

// Issue codes.
const (
	CodeRequired = "required"
	CodeType     = "invalid_type"
	CodeRange    = "out_of_range"
	CodeEnum     = "invalid_enum"
	CodeParse    = "not_a_number"
)

// Issue is one field-level failure. Path is the dotted location
// (`antibodiesUsedInfo.0.antibodyName`); Field is the declared name.
type Issue struct {
	Path    string `json:"path"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

// Errors is the batch of issues a rejected submission produced.
type Errors struct {
	Issues []Issue `json:"issues"`
}

func (e *Errors) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation: no issues"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	noun := "issues"
	if len(parts) == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("validation: %d %s: %s", len(parts), noun, strings.Join(parts, "; "))
}

// Unwrap exposes the typed causes so errors.Is(err, ErrNotANumber) works on
// the batch.
func (e *Errors) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Err != nil {
			out = append(out, issue.Err)
		}
	}
	return out
}

// Len reports the number of issues.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Issues)
}

// Fields groups messages by dotted path for display.
func (e *Errors) Fields() map[string][]string {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e.Issues))
	for _, issue := range e.Issues {
		out[issue.Path] = append(out[issue.Path], issue.Message)
	}
	return out
}

// Lookup returns the issues reported for path.
func (e *Errors) Lookup(path string) []Issue {
	if e == nil {
		return nil
	}
	var out []Issue
	for _, issue := range e.Issues {
		if issue.Path == path {
			out = append(out, issue)
		}
	}
	return out
}

func (e *Errors) add(issue Issue) {
	e.Issues = append(e.Issues, issue)
}
