package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type tokenStream struct {
	tokens []token
	pos    int
	idents map[string]struct{}
}

// parseExpression returns the root node and the top-level answer keys read
// by identifier operands.
func parseExpression(tokens []token) (exprNode, []string, error) {
	stream := &tokenStream{tokens: tokens, idents: make(map[string]struct{})}
	node, err := parseOr(stream)
	if err != nil {
		return nil, nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	idents := make([]string, 0, len(stream.idents))
	for name := range stream.idents {
		idents = append(idents, name)
	}
	sort.Strings(idents)
	return node, idents, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	return parseChain(stream, tokenOr, parseAnd, func(l, r exprNode) exprNode { return exprLogic{left: l, right: r} })
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	return parseChain(stream, tokenAnd, parseUnary, func(l, r exprNode) exprNode { return exprLogic{and: true, left: l, right: r} })
}

// parseChain folds a left-associative run of operands joined by op.
func parseChain(stream *tokenStream, op tokenKind, operand func(*tokenStream) (exprNode, error), join func(l, r exprNode) exprNode) (exprNode, error) {
	node, err := operand(stream)
	for err == nil && stream.match(op) {
		var next exprNode
		if next, err = operand(stream); err == nil {
			node = join(node, next)
		}
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}
	root, _, _ := strings.Cut(ident.raw, ".")
	stream.idents[root] = struct{}{}

	if op, ok := stream.comparison(); ok {
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		if op != tokenEq && op != tokenNeq && lit.kind != litNumber {
			return nil, fmt.Errorf("visibility/expr: %s needs a number literal, got %q", ident.raw, lit.raw)
		}
		return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
	}

	if stream.match(tokenIn) {
		values, err := stream.consumeList()
		if err != nil {
			return nil, err
		}
		return exprIn{identifier: ident.raw, values: values}, nil
	}

	if stream.match(tokenContains) {
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		return exprContains{identifier: ident.raw, member: lit.raw}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	_, ok := s.consume(kind)
	return ok
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos < len(s.tokens) && s.tokens[s.pos].kind == kind {
		s.pos++
		return s.tokens[s.pos-1], true
	}
	return token{}, false
}

// comparison consumes a comparison operator if one is next.
func (s *tokenStream) comparison() (tokenKind, bool) {
	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte} {
		if s.match(op) {
			return op, true
		}
	}
	return 0, false
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("visibility/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		num, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return literal{}, fmt.Errorf("visibility/expr: invalid number literal %q", tok.raw)
		}
		return literal{kind: litNumber, raw: tok.raw, number: num}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	case tokenIdentifier:
		// bare words compare as strings
		return literal{kind: litString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}

// consumeList reads `[lit, lit, ...]`. A trailing comma is accepted.
func (s *tokenStream) consumeList() ([]literal, error) {
	if !s.match(tokenLBracket) {
		return nil, errors.New("visibility/expr: 'in' expects a list such as [\"a\", \"b\"]")
	}
	var out []literal
	for {
		if s.match(tokenRBracket) {
			return out, nil
		}
		lit, err := s.consumeLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		if s.match(tokenComma) {
			continue
		}
		if !s.match(tokenRBracket) {
			return nil, errors.New("visibility/expr: missing closing ']'")
		}
		return out, nil
	}
}
