package symbol

import (
	"math/big"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol/bigmath"
)

// ============================================================
// Parser
// ============================================================

const (
	_ int = iota
	bindLowest
	bindSum     // + -
	bindProduct // * /
	bindPrefix  // -X
	bindPower   // ^ **
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  scanner.Position
}

var precedences = map[string]int{
	"+":  bindSum,
	"-":  bindSum,
	"*":  bindProduct,
	"/":  bindProduct,
	"^":  bindPower,
	"**": bindPower,
}

type parser struct {
	toks []token
	pos  int
}

// Parse reads an expression written with + - * / ^ (or **), parentheses,
// numbers, variable names, pi, E and the functions listed in Arity.
func Parse(src string) (Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExpression(bindLowest)
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.kind != tokEOF {
		return nil, errors.Errorf("unexpected %q at %s", t.text, t.pos)
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(src string) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	s.Filename = "expr"
	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = errors.Errorf("%s: %s", s.Position, msg)
		}
	}
	var toks []token
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		t := token{text: s.TokenText(), pos: s.Position}
		switch r {
		case scanner.Ident:
			t.kind = tokIdent
		case scanner.Int:
			t.kind = tokInt
		case scanner.Float:
			t.kind = tokFloat
		default:
			t.kind = tokOp
			if r == '*' && s.Peek() == '*' {
				s.Next()
				t.text = "**"
			}
		}
		toks = append(toks, t)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return append(toks, token{kind: tokEOF, text: "EOF", pos: s.Position}), nil
}

func (p *parser) cur() token { return p.toks[p.pos] }
func (p *parser) next()      { p.pos++ }

func (p *parser) expectOp(op string) error {
	if t := p.cur(); t.kind != tokOp || t.text != op {
		return errors.Errorf("expected %q at %s, got %q", op, t.pos, t.text)
	}
	p.next()
	return nil
}

func (p *parser) peekPrecedence() int {
	t := p.cur()
	if t.kind != tokOp {
		return bindLowest
	}
	if prec, ok := precedences[t.text]; ok {
		return prec
	}
	return bindLowest
}

func (p *parser) parseExpression(precedence int) (Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for precedence < p.peekPrecedence() {
		op := p.cur().text
		p.next()
		left, err = p.parseInfix(op, left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parsePrefix() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.next()
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, errors.Errorf("invalid integer %q at %s", t.text, t.pos)
		}
		return NRat(r), nil
	case tokFloat:
		p.next()
		return parseFloat(t)
	case tokIdent:
		p.next()
		return p.parseIdentifier(t)
	case tokOp:
		switch t.text {
		case "(":
			p.next()
			e, err := p.parseExpression(bindLowest)
			if err != nil {
				return nil, err
			}
			return e, p.expectOp(")")
		case "-":
			p.next()
			e, err := p.parseExpression(bindPrefix)
			if err != nil {
				return nil, err
			}
			return MulOf(N(-1), e), nil
		case "+":
			p.next()
			return p.parseExpression(bindPrefix)
		}
	}
	return nil, errors.Errorf("unexpected %q at %s", t.text, t.pos)
}

func (p *parser) parseInfix(op string, left Expr) (Expr, error) {
	prec := precedences[op]
	if prec == bindPower {
		// Right associative.
		prec--
	}
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	switch op {
	case "+":
		return AddOf(left, right), nil
	case "-":
		return AddOf(left, MulOf(N(-1), right)), nil
	case "*":
		return MulOf(left, right), nil
	case "/":
		if isExactZero(right) {
			return nil, errors.New("division by zero")
		}
		return MulOf(left, PowOf(right, N(-1))), nil
	}
	return PowOf(left, right), nil
}

func (p *parser) parseIdentifier(t token) (Expr, error) {
	if c := p.cur(); c.kind != tokOp || c.text != "(" {
		switch t.text {
		case "pi":
			return Pi, nil
		case "E":
			return E, nil
		}
		return S(t.text), nil
	}
	p.next()
	var args []Expr
	if c := p.cur(); c.kind != tokOp || c.text != ")" {
		for {
			a, err := p.parseExpression(bindLowest)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if c := p.cur(); c.kind == tokOp && c.text == "," {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	name := t.text
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	want, ok := Arity[name]
	if name == "sqrt" {
		want, ok = 1, true
	}
	if !ok {
		return nil, errors.Errorf("unknown function %q at %s", t.text, t.pos)
	}
	if want != len(args) {
		return nil, errors.Errorf("%s takes %d argument(s), got %d", name, want, len(args))
	}
	return FuncOf(name, args...), nil
}

// parseFloat keeps at least 15 significant digits, more when the literal
// carries more.
func parseFloat(t token) (Expr, error) {
	digits := max(15, significantDigits(t.text))
	v, ok := new(big.Float).SetPrec(bigmath.Digits(digits)).SetString(t.text)
	if !ok {
		return nil, errors.Errorf("invalid float %q at %s", t.text, t.pos)
	}
	return NewFloat(v, digits), nil
}

func significantDigits(lit string) int {
	if i := strings.IndexAny(lit, "eE"); i >= 0 {
		lit = lit[:i]
	}
	lit = strings.Replace(lit, ".", "", 1)
	lit = strings.TrimLeft(lit, "0")
	if lit == "" {
		return 1
	}
	return len(lit)
}
