package symbol

import (
	"math/big"
	"strings"
)

// ============================================================
// Printer
// ============================================================

// Printer renders expressions as infix text. The zero value prints the
// canonical form used by String; the hooks let code emitters print the
// same tree in another dialect.
type Printer struct {
	// Number formats Num and Float leaves.
	Number func(e Expr) string
	// Symbol formats a variable name.
	Symbol func(name string) string
	// Constant formats pi and E.
	Constant func(name string) string
	// Func formats a function application from its printed arguments.
	Func func(name string, args []string) string
	// Pow formats base^exp from unparenthesized operands. When set, powers
	// print as atoms.
	Pow func(base, exp string) string
}

// DefaultPrinter prints the canonical form.
var DefaultPrinter = &Printer{}

const (
	precAdd  = 10
	precMul  = 20
	precPow  = 30
	precAtom = 100
)

// Print returns the text of e.
func (p *Printer) Print(e Expr) string {
	var b strings.Builder
	p.print(&b, e)
	return b.String()
}

func (p *Printer) print(b *strings.Builder, e Expr) {
	switch v := e.(type) {
	case *Num, *Float:
		b.WriteString(p.number(v))
	case *Sym:
		if p.Symbol != nil {
			b.WriteString(p.Symbol(v.name))
		} else {
			b.WriteString(v.name)
		}
	case *Const:
		if p.Constant != nil {
			b.WriteString(p.Constant(v.name))
		} else {
			b.WriteString(v.name)
		}
	case *Add:
		p.printAdd(b, v)
	case *Mul:
		p.printMul(b, v)
	case *Pow:
		p.printPow(b, v)
	case *Func:
		p.printFunc(b, v.name, v.args)
	default:
		b.WriteString(e.String())
	}
}

func (p *Printer) number(e Expr) string {
	if p.Number != nil {
		return p.Number(e)
	}
	switch v := e.(type) {
	case *Num:
		if v.val.IsInt() {
			return v.val.Num().String()
		}
		return v.val.RatString()
	case *Float:
		return FormatFloat(v.val, v.digits)
	}
	return ""
}

// FormatFloat prints v with the given number of significant digits. The
// output always reads back as a float literal.
func FormatFloat(v *big.Float, digits int) string {
	s := v.Text('g', digits)
	if !strings.ContainsAny(s, ".eInf") {
		s += ".0"
	}
	return s
}

func (p *Printer) precedence(e Expr) int {
	switch v := e.(type) {
	case *Add:
		return precAdd
	case *Mul:
		if c, _ := SplitCoeff(v); numberSign(c) < 0 {
			return precAdd
		}
		return precMul
	case *Pow:
		if isHalf(v.exp) || p.Pow != nil {
			return precAtom
		}
		if numberSign(v.exp) < 0 {
			return precMul
		}
		return precPow
	case *Num:
		if v.Sign() < 0 {
			return precAdd
		}
		if !v.IsInteger() {
			return precMul
		}
	case *Float:
		if v.Sign() < 0 {
			return precAdd
		}
	}
	return precAtom
}

// wrap prints e, parenthesized when it binds looser than threshold.
func (p *Printer) wrap(b *strings.Builder, e Expr, threshold int) {
	if p.precedence(e) < threshold {
		b.WriteByte('(')
		p.print(b, e)
		b.WriteByte(')')
		return
	}
	p.print(b, e)
}

func isNegativeTerm(e Expr) bool {
	c, _ := SplitCoeff(e)
	return numberSign(c) < 0
}

func (p *Printer) printAdd(b *strings.Builder, a *Add) {
	for i, t := range a.terms {
		if i == 0 {
			p.print(b, t)
			continue
		}
		if isNegativeTerm(t) {
			b.WriteString(" - ")
			p.wrap(b, MulOf(N(-1), t), precAdd+1)
			continue
		}
		b.WriteString(" + ")
		p.wrap(b, t, precAdd+1)
	}
}

// fraction splits a product into numerator and denominator factors.
// Factors raised to a negative number move to the denominator.
func fraction(m *Mul) (coeff Expr, num, den []Expr) {
	coeff, rest := SplitCoeff(m)
	factors := []Expr{rest}
	if r, ok := rest.(*Mul); ok {
		factors = r.factors
	}
	for _, f := range factors {
		if pw, ok := f.(*Pow); ok && isNumber(pw.exp) && numberSign(pw.exp) < 0 {
			den = append(den, PowOf(pw.base, numberNeg(pw.exp)))
			continue
		}
		num = append(num, f)
	}
	return coeff, num, den
}

func (p *Printer) printMul(b *strings.Builder, m *Mul) {
	coeff, num, den := fraction(m)
	if numberSign(coeff) < 0 {
		b.WriteByte('-')
		coeff = numberNeg(coeff)
	}
	var numItems, denItems []Expr
	switch c := coeff.(type) {
	case *Num:
		if !c.val.Num().IsInt64() || c.val.Num().Int64() != 1 {
			numItems = append(numItems, &Num{val: new(big.Rat).SetInt(c.val.Num())})
		}
		if !c.val.IsInt() {
			denItems = append(denItems, &Num{val: new(big.Rat).SetInt(c.val.Denom())})
		}
	default:
		numItems = append(numItems, coeff)
	}
	numItems = append(numItems, num...)
	denItems = append(denItems, den...)
	if len(numItems) == 0 {
		b.WriteByte('1')
	}
	for i, f := range numItems {
		if i > 0 {
			b.WriteByte('*')
		}
		p.wrap(b, f, precMul)
	}
	if len(denItems) == 0 {
		return
	}
	b.WriteByte('/')
	if len(denItems) == 1 {
		p.wrap(b, denItems[0], precMul+1)
		return
	}
	b.WriteByte('(')
	for i, f := range denItems {
		if i > 0 {
			b.WriteByte('*')
		}
		p.wrap(b, f, precMul)
	}
	b.WriteByte(')')
}

func (p *Printer) printPow(b *strings.Builder, pw *Pow) {
	if isNumber(pw.exp) && numberSign(pw.exp) < 0 {
		b.WriteString("1/")
		p.wrap(b, PowOf(pw.base, numberNeg(pw.exp)), precMul+1)
		return
	}
	if isHalf(pw.exp) {
		p.printFunc(b, "sqrt", []Expr{pw.base})
		return
	}
	if p.Pow != nil {
		b.WriteString(p.Pow(p.Print(pw.base), p.Print(pw.exp)))
		return
	}
	p.wrap(b, pw.base, precPow+1)
	b.WriteByte('^')
	p.wrap(b, pw.exp, precAtom)
}

func (p *Printer) printFunc(b *strings.Builder, name string, args []Expr) {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = p.Print(a)
	}
	if p.Func != nil {
		b.WriteString(p.Func(name, strs))
		return
	}
	b.WriteString(name)
	b.WriteByte('(')
	b.WriteString(strings.Join(strs, ", "))
	b.WriteByte(')')
}
