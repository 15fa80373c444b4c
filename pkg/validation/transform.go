package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

var (
	// ErrNotANumber reports a numeric-string that does not parse.
	ErrNotANumber = errors.New("not a number")
	// ErrOutOfRange reports a number outside the declared bounds.
	ErrOutOfRange = errors.New("out of range")
)

// RangeError carries the bounds a value violated.
type RangeError struct {
	Value float64
	Min   *float64
	Max   *float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s not in %s", formatNumber(e.Value), describeBounds(e.Min, e.Max))
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// ParseBounded parses a free-text number and checks it against min and max
// (inclusive). Parse failures wrap ErrNotANumber and bound failures return a
// *RangeError; the two are never conflated.
func ParseBounded(raw any, min, max *float64) (float64, error) {
	var value float64
	switch typed := raw.(type) {
	case string:
		parsed, ok := model.ParseFloat(typed)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrNotANumber, typed)
		}
		value = parsed
	default:
		parsed, ok := model.ToFloat(raw)
		if !ok {
			return 0, fmt.Errorf("%w: %v", ErrNotANumber, raw)
		}
		value = parsed
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotANumber, value)
	}
	if err := checkBounds(value, min, max); err != nil {
		return 0, err
	}
	return value, nil
}

func checkBounds(value float64, min, max *float64) error {
	if (min != nil && value < *min) || (max != nil && value > *max) {
		return &RangeError{Value: value, Min: min, Max: max}
	}
	return nil
}

func describeBounds(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s to %s", formatNumber(*min), formatNumber(*max))
	case min != nil:
		return fmt.Sprintf("at least %s", formatNumber(*min))
	case max != nil:
		return fmt.Sprintf("at most %s", formatNumber(*max))
	default:
		return "any value"
	}
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', -1, 64), ".0")
}
