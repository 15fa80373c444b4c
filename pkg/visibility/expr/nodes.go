package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

type exprNode interface {
	eval(answers model.Answers) (bool, error)
}

// exprLogic short-circuits: an && stops at the first false operand, an ||
// at the first true one.
type exprLogic struct {
	and         bool
	left, right exprNode
}

func (n exprLogic) eval(answers model.Answers) (bool, error) {
	ok, err := n.left.eval(answers)
	if err != nil || ok != n.and {
		return ok, err
	}
	return n.right.eval(answers)
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(answers model.Answers) (bool, error) {
	ok, err := n.inner.eval(answers)
	return !ok && err == nil, err
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind   literalKind
	raw    string
	number float64
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n exprCompare) eval(answers model.Answers) (bool, error) {
	value, _ := lookup(answers, n.identifier)

	switch n.op {
	case tokenLt, tokenLte, tokenGt, tokenGte:
		got, ok := coerceNumber(value)
		if !ok {
			return false, nil
		}
		return compareOrdered(got, n.literal.number, n.op), nil
	}

	var equal bool
	switch n.literal.kind {
	case litNull:
		equal = isNull(value)
	case litBool:
		got, _ := coerceBool(value)
		equal = got == (n.literal.raw == "true")
	case litNumber:
		got, ok := coerceNumber(value)
		equal = ok && got == n.literal.number
	case litString:
		equal = coerceString(value) == n.literal.raw
	default:
		return false, fmt.Errorf("visibility/expr: unsupported literal")
	}

	if n.op == tokenNeq {
		return !equal, nil
	}
	return equal, nil
}

func compareOrdered(got, want float64, op tokenKind) bool {
	switch op {
	case tokenLt:
		return got < want
	case tokenLte:
		return got <= want
	case tokenGt:
		return got > want
	default:
		return got >= want
	}
}

// exprIn matches a scalar answer against a literal list.
type exprIn struct {
	identifier string
	values     []literal
}

func (n exprIn) eval(answers model.Answers) (bool, error) {
	value, ok := lookup(answers, n.identifier)
	if !ok || isNull(value) {
		return false, nil
	}
	got := coerceString(value)
	for _, lit := range n.values {
		if lit.kind == litNumber {
			if num, ok := coerceNumber(value); ok && num == lit.number {
				return true, nil
			}
			continue
		}
		if got == lit.raw {
			return true, nil
		}
	}
	return false, nil
}

// exprContains matches a set answer (list or map of booleans) against one
// literal member.
type exprContains struct {
	identifier string
	member     string
}

func (n exprContains) eval(answers model.Answers) (bool, error) {
	value, ok := lookup(answers, n.identifier)
	if !ok {
		return false, nil
	}
	holder := model.Answers{"v": value}
	if holder.Contains("v", n.member) {
		return true, nil
	}
	if text, ok := value.(string); ok {
		return strings.Contains(text, n.member), nil
	}
	return false, nil
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(answers model.Answers) (bool, error) {
	value, ok := lookup(answers, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

// lookup reads key from answers. A literal key wins over dot-path traversal
// into nested maps.
func lookup(answers model.Answers, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	if v, ok := answers[key]; ok {
		return v, true
	}

	var current any = answers
	for _, part := range strings.Split(key, ".") {
		next, ok := child(current, strings.TrimSpace(part))
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(container any, name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	switch m := container.(type) {
	case model.Answers:
		v, ok := m[name]
		return v, ok
	case map[string]any:
		v, ok := m[name]
		return v, ok
	case map[string]string:
		v, ok := m[name]
		return v, ok
	}
	return nil, false
}

func isNull(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := model.ToFloat(value); ok {
		return n != 0
	}
	return true
}

func coerceBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
		return strings.TrimSpace(v) != "", true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	if s, ok := value.(string); ok {
		return model.ParseFloat(s)
	}
	return model.ToFloat(value)
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
