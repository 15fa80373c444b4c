// Package expr compiles the small rule language used by declarative
// instruments to decide whether a dynamic field renders.
//
// Supported forms:
//   - truthiness: `enabled`
//   - comparisons: `reason == "other"`, `count != 3`, `weight >= 20`
//   - membership: `reason in ["a", "b"]`, `symptoms contains "tremor"`
//   - composition: `a && !b`, `(a || b) && c`
//
// Identifiers read from the answer set, with dot-path traversal into record
// maps (`items.0.name` is not supported; record scopes are evaluated per
// element by the resolver).
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Program is a compiled rule. It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   exprNode
	idents []string
}

// Compile parses rule. An empty rule compiles to a program that always
// evaluates to true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return prog, nil
	}

	root, idents, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	prog.root = root
	prog.idents = idents
	return prog, nil
}

// MustCompile is Compile that panics on error. Intended for package-level
// rules in Go-defined instruments.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// Eval compiles and evaluates rule in one step.
func Eval(rule string, answers model.Answers) (bool, error) {
	prog, err := Compile(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(answers)
}

// Eval evaluates the program against answers.
func (p *Program) Eval(answers model.Answers) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(answers)
}

// Identifiers lists the top-level answer keys the rule reads, sorted.
// Dotted identifiers contribute their first segment.
func (p *Program) Identifiers() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.idents...)
}

func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenIn
	tokenContains
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	consume := func() byte {
		if i >= len(input) {
			return 0
		}
		ch := input[i]
		i++
		return ch
	}

	for i < len(input) {
		ch := next()
		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '(':
			consume()
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			consume()
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '[':
			consume()
			tokens = append(tokens, token{kind: tokenLBracket, raw: "["})
		case ']':
			consume()
			tokens = append(tokens, token{kind: tokenRBracket, raw: "]"})
		case ',':
			consume()
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
		case '!':
			consume()
			if next() == '=' {
				consume()
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '<', '>':
			consume()
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			if next() == '=' {
				consume()
				kind++
				raw += "="
			}
			tokens = append(tokens, token{kind: kind, raw: raw})
		case '=':
			consume()
			if next() != '=' {
				return nil, fmt.Errorf("visibility/expr: unexpected '='; use '=='")
			}
			consume()
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '&':
			consume()
			if next() != '&' {
				return nil, fmt.Errorf("visibility/expr: unexpected '&'; use '&&'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			consume()
			if next() != '|' {
				return nil, fmt.Errorf("visibility/expr: unexpected '|'; use '||'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, err := readString(input, &i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			if raw == "" {
				return nil, fmt.Errorf("visibility/expr: unexpected character %q", ch)
			}
			tokens = append(tokens, classifyWord(raw))
		}
	}

	return tokens, nil
}

// readString consumes a quoted literal starting at input[*i].
func readString(input string, i *int) (string, error) {
	quote := input[*i]
	*i++
	var b strings.Builder
	escaped := false
	for *i < len(input) {
		c := input[*i]
		*i++
		if escaped {
			switch c {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(c)
			}
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", errors.New("visibility/expr: unterminated string literal")
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	case "in":
		return token{kind: tokenIn, raw: "in"}
	case "contains":
		return token{kind: tokenContains, raw: "contains"}
	case "and":
		return token{kind: tokenAnd, raw: "&&"}
	case "or":
		return token{kind: tokenOr, raw: "||"}
	case "not":
		return token{kind: tokenNot, raw: "!"}
	}
	if looksLikeNumber(raw) {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	if isSpace(ch) {
		return true
	}
	switch ch {
	case '(', ')', '[', ']', ',', '!', '=', '<', '>', '&', '|', '"', '\'':
		return true
	}
	return false
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}
