package measures

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Column projects one sub-field of a record element. Suffix is appended to
// present values only (a unit such as " μg/mL").
type Column struct {
	Key    string
	Label  string
	Suffix string
	Format func(value any) string
}

// Col is shorthand for a labelled column.
func Col(key, label string) Column {
	return Column{Key: key, Label: label}
}

// WithSuffix returns a copy of c with suffix.
func (c Column) WithSuffix(suffix string) Column {
	c.Suffix = suffix
	return c
}

func (c Column) format(value any) string {
	if c.Format != nil {
		return c.Format(value)
	}
	return FormatValue(value)
}

// Input is handed to compute functions. Helpers that substitute a
// placeholder record a Warning on the projection.
type Input struct {
	answers  model.Answers
	measure  string
	warnings []Warning
}

// NewInput wraps answers for direct use of the helpers, outside Project.
func NewInput(answers model.Answers) *Input {
	return &Input{answers: answers}
}

// Answers returns the validated answer set.
func (in *Input) Answers() model.Answers {
	if in == nil {
		return nil
	}
	return in.answers
}

// Records returns the elements of a record-array field; absent or malformed
// values yield an empty slice.
func (in *Input) Records(field string) []model.Answers {
	return in.Answers().Records(field)
}

// Warn records a placeholder note.
func (in *Input) Warn(path, message string) {
	if in == nil {
		return
	}
	in.warnings = append(in.warnings, Warning{Measure: in.measure, Path: path, Message: message})
}

// Warnings returns the notes recorded so far.
func (in *Input) Warnings() []Warning {
	if in == nil {
		return nil
	}
	return append([]Warning(nil), in.warnings...)
}

// Flatten renders every element of field as "Label: value[suffix] " per
// column, concatenated in element order.
func (in *Input) Flatten(field string, columns ...Column) string {
	text, warnings := Flatten(in.Records(field), columns...)
	in.absorb(field, warnings)
	return text
}

// Table projects every element of field to a mapping of the column keys.
func (in *Input) Table(field string, columns ...Column) []map[string]any {
	rows, warnings := Table(in.Records(field), columns...)
	in.absorb(field, warnings)
	return rows
}

func (in *Input) absorb(field string, warnings []Warning) {
	for _, w := range warnings {
		in.Warn(field+"."+w.Path, w.Message)
	}
}

// Flatten renders records as one human-readable string. Missing sub-values
// become "" and are reported. An empty slice yields "".
func Flatten(records []model.Answers, columns ...Column) (string, []Warning) {
	var (
		b        strings.Builder
		warnings []Warning
	)
	for idx, rec := range records {
		for _, col := range columns {
			value, ok := rec.Value(col.Key)
			text := ""
			if ok {
				text = col.format(value) + col.Suffix
			} else {
				warnings = append(warnings, missing(idx, col))
			}
			fmt.Fprintf(&b, "%s: %s ", col.Label, text)
		}
	}
	return b.String(), warnings
}

// Table projects records to ordered per-element mappings. Missing
// sub-values map to "" and are reported. An empty slice yields an empty,
// non-nil list.
func Table(records []model.Answers, columns ...Column) ([]map[string]any, []Warning) {
	rows := make([]map[string]any, 0, len(records))
	var warnings []Warning
	for idx, rec := range records {
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			value, ok := rec.Value(col.Key)
			if !ok {
				warnings = append(warnings, missing(idx, col))
				row[col.Key] = ""
				continue
			}
			row[col.Key] = value
		}
		rows = append(rows, row)
	}
	return rows, warnings
}

func missing(idx int, col Column) Warning {
	return Warning{
		Path:    strconv.Itoa(idx) + "." + col.Key,
		Message: "value absent, substituted empty string",
	}
}

// FormatValue renders an answer for display: numbers without trailing
// zeros, sets joined with ", ".
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case []string:
		return strings.Join(typed, ", ")
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	}
	if f, ok := model.ToFloat(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}
