package template

import (
	"fmt"
	"strconv"
)

// parseExprSource parses the full content of a {{ ... }} tag (already
// stripped of its delimiters) as a single expression: a literal, a
// variable path, or a helper call with positional/named arguments.
func parseExprSource(src string) (Expr, error) {
	s := newExprScanner(src)
	e, err := parseValueOrCall(s, true)
	if err != nil {
		return Expr{}, err
	}
	s.skipSpace()
	if !s.eof() {
		return Expr{}, &unexpectedErr{pos: s.pos, got: fmt.Sprintf("%q", s.cur()), want: "end of expression"}
	}
	return e, nil
}

// parseValueOrCall parses one value. When topLevel is true and the value
// turns out to be a bare identifier followed by more tokens before EOF,
// it is reinterpreted as a helper call consuming the rest of the input
// as arguments — this is how `{{eq a b}}` differs from a lone `{{a}}`.
func parseValueOrCall(s *exprScanner, topLevel bool) (Expr, error) {
	s.skipSpace()

	switch {
	case s.cur() == '(':
		s.next()
		e, err := parseCall(s)
		if err != nil {
			return Expr{}, err
		}
		s.skipSpace()
		if s.cur() != ')' {
			return Expr{}, &unexpectedErr{pos: s.pos, got: fmt.Sprintf("%q", s.cur()), want: "')'"}
		}
		s.next()
		return e, nil

	case s.cur() == '"' || s.cur() == '\'':
		str, err := s.parseString()
		if err != nil {
			return Expr{}, err
		}
		return stringExpr(str), nil

	case isDigitOrMinus(s.cur()):
		num, err := s.parseNumber()
		if err != nil {
			return Expr{}, err
		}
		return numberExpr(num), nil

	case isIdentStart(s.cur()):
		ident, err := s.parseIdentPath()
		if err != nil {
			return Expr{}, err
		}
		switch ident {
		case "true":
			return boolExpr(true), nil
		case "false":
			return boolExpr(false), nil
		}

		if !topLevel {
			return pathExpr(ident), nil
		}

		save := s.pos
		s.skipSpace()
		if s.eof() || s.cur() == ')' {
			s.pos = save
			return pathExpr(ident), nil
		}

		// More tokens follow: ident is a helper name, not a path.
		return parseCallArgs(s, ident)

	default:
		return Expr{}, &unexpectedErr{pos: s.pos, got: fmt.Sprintf("%q", s.cur()), want: "expression"}
	}
}

// parseCall parses a function name followed by its arguments, used
// inside a parenthesized subexpression: (helperName arg1 arg2).
func parseCall(s *exprScanner) (Expr, error) {
	s.skipSpace()
	name, err := s.parseIdentPath()
	if err != nil {
		return Expr{}, err
	}
	return parseCallArgs(s, name)
}

func parseCallArgs(s *exprScanner, function string) (Expr, error) {
	e := Expr{Kind: exprCall, Function: function, NamedArgs: map[string]Expr{}}

	for {
		s.skipSpace()
		if s.eof() || s.cur() == ')' {
			break
		}

		if isIdentStart(s.cur()) {
			save := s.pos
			name, err := s.parseIdentPath()
			if err == nil && s.cur() == '=' {
				s.next()
				val, err := parseValueOrCall(s, false)
				if err != nil {
					return Expr{}, err
				}
				e.NamedArgs[name] = val
				continue
			}
			s.pos = save
		}

		arg, err := parseValueOrCall(s, false)
		if err != nil {
			return Expr{}, err
		}
		e.PosArgs = append(e.PosArgs, arg)
	}

	return e, nil
}

func isDigitOrMinus(r rune) bool {
	return r == '-' || (r >= '0' && r <= '9')
}

// parseNumberLiteral is exposed for helpers that need to coerce an
// argument's raw Num field to a float64 at evaluation time.
func parseNumberLiteral(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
