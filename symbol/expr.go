// Package symbol provides a deterministic symbolic algebra engine.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat) and arbitrary precision floats (math/big.Float)
//   - Canonical construction: structurally equal trees render identically
//   - Immutable expressions, safe to share between goroutines
//   - JSON round trip of every expression
package symbol

import (
	"math/big"
	"sort"

	"github.com/njchilds90/golambdify/symbol/bigmath"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is an immutable node of an expression tree.
type Expr interface {
	String() string
	Equal(other Expr) bool
	// Args returns the direct sub-expressions of the node. Atoms return nil.
	Args() []Expr
	exprType() string
	toJSON() map[string]any
}

// ============================================================
// Num: exact rational number
// ============================================================

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("symbol: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}
func NRat(r *big.Rat) *Num { return &Num{val: new(big.Rat).Set(r)} }

func (n *Num) Args() []Expr          { return nil }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool           { return n.val.Cmp(big.NewRat(1, 1)) == 0 }
func (n *Num) IsNegOne() bool        { return n.val.Cmp(big.NewRat(-1, 1)) == 0 }
func (n *Num) IsInteger() bool       { return n.val.IsInt() }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }
func (n *Num) Sign() int             { return n.val.Sign() }

func (n *Num) String() string { return DefaultPrinter.Print(n) }

func (n *Num) toJSON() map[string]any {
	return map[string]any{"type": "num", "value": n.val.RatString()}
}

// ============================================================
// Float: approximate number with a significant digit count
// ============================================================

type Float struct {
	val    *big.Float
	digits int
}

// NewFloat returns v rounded to the given number of significant digits.
func NewFloat(v *big.Float, digits int) *Float {
	if digits < 1 {
		digits = 1
	}
	return &Float{val: new(big.Float).SetPrec(bigmath.Digits(digits)).Set(v), digits: digits}
}

// FloatOf returns a 15 digit float.
func FloatOf(f float64) *Float { return NewFloat(big.NewFloat(f), 15) }

func (f *Float) Args() []Expr          { return nil }
func (f *Float) Equal(other Expr) bool { o, ok := other.(*Float); return ok && f.val.Cmp(o.val) == 0 }
func (f *Float) exprType() string      { return "float" }
func (f *Float) Digits() int           { return f.digits }
func (f *Float) Prec() uint            { return f.val.Prec() }
func (f *Float) Big() *big.Float       { return new(big.Float).Copy(f.val) }
func (f *Float) Float64() float64      { v, _ := f.val.Float64(); return v }
func (f *Float) Sign() int             { return f.val.Sign() }
func (f *Float) String() string        { return DefaultPrinter.Print(f) }

func (f *Float) toJSON() map[string]any {
	return map[string]any{"type": "float", "value": f.val.Text('g', -1), "digits": f.digits}
}

// ============================================================
// Sym: symbolic variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym              { return &Sym{name: name} }
func (s *Sym) Args() []Expr           { return nil }
func (s *Sym) Equal(other Expr) bool  { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string       { return "sym" }
func (s *Sym) Name() string           { return s.name }
func (s *Sym) String() string         { return DefaultPrinter.Print(s) }
func (s *Sym) toJSON() map[string]any { return map[string]any{"type": "sym", "name": s.name} }

// Symbols returns one symbol per name.
func Symbols(names ...string) []*Sym {
	out := make([]*Sym, len(names))
	for i, n := range names {
		out[i] = S(n)
	}
	return out
}

// ============================================================
// Const: named mathematical constants
// ============================================================

type Const struct{ name string }

var (
	Pi = &Const{name: "pi"}
	E  = &Const{name: "E"}
)

func (c *Const) Args() []Expr           { return nil }
func (c *Const) Equal(other Expr) bool  { o, ok := other.(*Const); return ok && c.name == o.name }
func (c *Const) exprType() string       { return "const" }
func (c *Const) Name() string           { return c.name }
func (c *Const) String() string         { return c.name }
func (c *Const) toJSON() map[string]any { return map[string]any{"type": "const", "name": c.name} }

// Value returns the constant rounded to prec bits.
func (c *Const) Value(prec uint) *big.Float {
	if c.name == "E" {
		return bigmath.E(prec)
	}
	return bigmath.Pi(prec)
}

// IsConst reports whether e is the named constant pi or E.
func IsConst(e Expr) bool {
	_, ok := e.(*Const)
	return ok
}

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

// AddOf returns the canonical sum of terms: nested sums are flattened,
// numbers folded, like terms combined and the remaining terms sorted.
func AddOf(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if inner, ok := t.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, t)
		}
	}
	type group struct {
		coeff Expr
		rest  Expr
	}
	var acc Expr = N(0)
	groups := map[string]*group{}
	order := []string{}
	for _, t := range flat {
		if isNumber(t) {
			acc = numberAdd(acc, t)
			continue
		}
		coeff, rest := SplitCoeff(t)
		key := rest.String()
		g, seen := groups[key]
		if !seen {
			g = &group{coeff: N(0), rest: rest}
			groups[key] = g
			order = append(order, key)
		}
		g.coeff = numberAdd(g.coeff, coeff)
	}
	result := make([]Expr, 0, len(order)+1)
	for _, key := range order {
		g := groups[key]
		if isZero(g.coeff) {
			continue
		}
		result = append(result, MulOf(g.coeff, g.rest))
	}
	if len(result) == 0 {
		return acc
	}
	sortTerms(result)
	if !isZero(acc) {
		result = append(result, acc)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) Args() []Expr     { return a.terms }
func (a *Add) Terms() []Expr    { return a.terms }
func (a *Add) String() string   { return DefaultPrinter.Print(a) }
func (a *Add) exprType() string { return "add" }
func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	return ok && equalSlices(a.terms, o.terms)
}

func (a *Add) toJSON() map[string]any {
	return map[string]any{"type": "add", "terms": argsJSON(a.terms)}
}

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

// MulOf returns the canonical product of factors: nested products are
// flattened, numbers folded into a leading coefficient and equal bases
// combined by summing their exponents. A number times a single sum is
// distributed over the sum.
func MulOf(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if inner, ok := f.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, f)
		}
	}
	type group struct{ base, exp Expr }
	var coeff Expr = N(1)
	groups := map[string]*group{}
	order := []string{}
	for _, f := range flat {
		if isNumber(f) {
			coeff = numberMul(coeff, f)
			continue
		}
		base, exp := f, Expr(N(1))
		if p, ok := f.(*Pow); ok {
			base, exp = p.base, p.exp
		}
		key := base.String()
		g, seen := groups[key]
		if !seen {
			groups[key] = &group{base: base, exp: exp}
			order = append(order, key)
			continue
		}
		g.exp = AddOf(g.exp, exp)
	}
	if isZero(coeff) {
		return coeff
	}
	result := make([]Expr, 0, len(order))
	again := false
	for _, key := range order {
		g := groups[key]
		p := PowOf(g.base, g.exp)
		if isNumber(p) {
			coeff = numberMul(coeff, p)
			continue
		}
		if _, ok := p.(*Mul); ok {
			again = true
		}
		result = append(result, p)
	}
	if again {
		return MulOf(append([]Expr{coeff}, result...)...)
	}
	if len(result) == 0 {
		return coeff
	}
	if len(result) == 1 && !isExactOne(coeff) {
		if sum, ok := result[0].(*Add); ok {
			terms := make([]Expr, len(sum.terms))
			for i, t := range sum.terms {
				terms[i] = MulOf(coeff, t)
			}
			return AddOf(terms...)
		}
	}
	sortOperands(result, factorKey)
	if isExactOne(coeff) {
		if len(result) == 1 {
			return result[0]
		}
		return &Mul{factors: result}
	}
	return &Mul{factors: append([]Expr{coeff}, result...)}
}

func (m *Mul) Args() []Expr     { return m.factors }
func (m *Mul) Factors() []Expr  { return m.factors }
func (m *Mul) String() string   { return DefaultPrinter.Print(m) }
func (m *Mul) exprType() string { return "mul" }
func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	return ok && equalSlices(m.factors, o.factors)
}

func (m *Mul) toJSON() map[string]any {
	return map[string]any{"type": "mul", "factors": argsJSON(m.factors)}
}

// SplitCoeff returns the numeric coefficient of e and the remaining factor.
// A number is returned as its own coefficient with a remainder of 1.
func SplitCoeff(e Expr) (Expr, Expr) {
	if isNumber(e) {
		return e, N(1)
	}
	m, ok := e.(*Mul)
	if !ok || !isNumber(m.factors[0]) {
		return N(1), e
	}
	rest := m.factors[1:]
	if len(rest) == 1 {
		return m.factors[0], rest[0]
	}
	return m.factors[0], &Mul{factors: rest}
}

// ============================================================
// Pow: base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr {
	if isExactZero(exp) {
		return N(1)
	}
	if isExactOne(exp) {
		return base
	}
	if isExactOne(base) {
		return N(1)
	}
	if c, ok := base.(*Const); ok && c.name == "E" {
		return FuncOf("exp", exp)
	}
	if v, ok := numberPow(base, exp); ok {
		return v
	}
	if isInteger(exp) {
		switch b := base.(type) {
		case *Pow:
			return PowOf(b.base, MulOf(b.exp, exp))
		case *Mul:
			factors := make([]Expr, len(b.factors))
			for i, f := range b.factors {
				factors[i] = PowOf(f, exp)
			}
			return MulOf(factors...)
		}
	}
	return &Pow{base: base, exp: exp}
}

func SqrtOf(arg Expr) Expr { return PowOf(arg, F(1, 2)) }

func (p *Pow) Args() []Expr     { return []Expr{p.base, p.exp} }
func (p *Pow) Base() Expr       { return p.base }
func (p *Pow) Exp() Expr        { return p.exp }
func (p *Pow) String() string   { return DefaultPrinter.Print(p) }
func (p *Pow) exprType() string { return "pow" }
func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) toJSON() map[string]any {
	return map[string]any{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}

// ============================================================
// Func: named function applications
// ============================================================

type Func struct {
	name string
	args []Expr
}

// Arity lists the functions known to the engine with their argument count.
var Arity = map[string]int{
	"sin": 1, "cos": 1, "tan": 1,
	"asin": 1, "acos": 1, "atan": 1, "atan2": 2,
	"sinh": 1, "cosh": 1, "tanh": 1,
	"exp": 1, "log": 1,
	"abs": 1, "sign": 1, "floor": 1, "ceil": 1,
}

var aliases = map[string]string{"ln": "log", "Abs": "abs", "arcsin": "asin", "arccos": "acos", "arctan": "atan"}

// FuncOf applies the named function. Numeric arguments holding a Float are
// evaluated, a few exact values are folded and inverse pairs cancelled.
func FuncOf(name string, args ...Expr) Expr {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	if name == "sqrt" && len(args) == 1 {
		return SqrtOf(args[0])
	}
	if v, ok := evalFunc(name, args); ok {
		return v
	}
	if v, ok := exactFunc(name, args); ok {
		return v
	}
	return &Func{name: name, args: args}
}

func SinOf(arg Expr) Expr  { return FuncOf("sin", arg) }
func CosOf(arg Expr) Expr  { return FuncOf("cos", arg) }
func TanOf(arg Expr) Expr  { return FuncOf("tan", arg) }
func ExpOf(arg Expr) Expr  { return FuncOf("exp", arg) }
func LogOf(arg Expr) Expr  { return FuncOf("log", arg) }
func AbsOf(arg Expr) Expr  { return FuncOf("abs", arg) }
func AsinOf(arg Expr) Expr { return FuncOf("asin", arg) }
func AcosOf(arg Expr) Expr { return FuncOf("acos", arg) }
func AtanOf(arg Expr) Expr { return FuncOf("atan", arg) }
func Atan2Of(y, x Expr) Expr {
	return FuncOf("atan2", y, x)
}

func (f *Func) Args() []Expr     { return f.args }
func (f *Func) Name() string     { return f.name }
func (f *Func) Arg() Expr        { return f.args[0] }
func (f *Func) String() string   { return DefaultPrinter.Print(f) }
func (f *Func) exprType() string { return "func" }
func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && equalSlices(f.args, o.args)
}

func (f *Func) toJSON() map[string]any {
	return map[string]any{"type": "func", "name": f.name, "args": argsJSON(f.args)}
}

var oddFuncs = map[string]bool{"sin": true, "tan": true, "asin": true, "atan": true, "sinh": true, "tanh": true}
var evenFuncs = map[string]bool{"cos": true, "cosh": true, "abs": true}

func exactFunc(name string, args []Expr) (Expr, bool) {
	if len(args) != 1 {
		return nil, false
	}
	arg := args[0]
	if n, ok := arg.(*Num); ok {
		switch name {
		case "abs":
			return NRat(new(big.Rat).Abs(n.val)), true
		case "sign":
			return N(int64(n.Sign())), true
		case "floor", "ceil":
			q, r := new(big.Int).QuoRem(n.val.Num(), n.val.Denom(), new(big.Int))
			if r.Sign() != 0 && (name == "ceil") == (r.Sign() > 0) {
				q.Add(q, big.NewInt(int64(r.Sign())))
			}
			return NRat(new(big.Rat).SetInt(q)), true
		}
		if n.IsZero() {
			switch name {
			case "sin", "tan", "asin", "atan", "sinh", "tanh":
				return N(0), true
			case "cos", "cosh", "exp":
				return N(1), true
			}
		}
		if n.IsOne() {
			switch name {
			case "log", "acos":
				return N(0), true
			}
		}
	}
	if arg.Equal(Pi) {
		switch name {
		case "sin", "tan":
			return N(0), true
		case "cos":
			return N(-1), true
		}
	}
	if arg.Equal(E) && name == "log" {
		return N(1), true
	}
	if inner, ok := arg.(*Func); ok {
		if (name == "log" && inner.name == "exp") || (name == "exp" && inner.name == "log") {
			return inner.args[0], true
		}
	}
	if oddFuncs[name] || evenFuncs[name] {
		if coeff, rest := SplitCoeff(arg); numberSign(coeff) < 0 {
			pos := FuncOf(name, MulOf(numberNeg(coeff), rest))
			if oddFuncs[name] {
				return MulOf(N(-1), pos), true
			}
			return pos, true
		}
	}
	return nil, false
}

// ============================================================
// Structural helpers
// ============================================================

// Rebuild returns a node of the same kind as e with new arguments, built
// through the canonical constructors. Atoms are returned unchanged.
func Rebuild(e Expr, args []Expr) Expr {
	switch v := e.(type) {
	case *Add:
		return AddOf(args...)
	case *Mul:
		return MulOf(args...)
	case *Pow:
		return PowOf(args[0], args[1])
	case *Func:
		return FuncOf(v.name, args...)
	}
	return e
}

// IsAtom reports whether e has no sub-expressions.
func IsAtom(e Expr) bool { return len(e.Args()) == 0 }

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func argsJSON(args []Expr) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.toJSON()
	}
	return out
}

// rank groups operands: polynomial-like operands first, then functions and sums.
func rank(e Expr) int {
	switch v := e.(type) {
	case *Sym, *Const:
		return 0
	case *Pow:
		return rank(v.base)
	case *Mul:
		r := 0
		for _, f := range v.factors {
			r = max(r, rank(f))
		}
		return r
	}
	return 1
}

// monomial returns the exponent of each variable and constant of a product
// of powers with numeric exponents.
func monomial(e Expr) (map[string]*big.Rat, bool) {
	factors := []Expr{e}
	if m, ok := e.(*Mul); ok {
		factors = m.factors
	}
	mono := map[string]*big.Rat{}
	for _, f := range factors {
		base, exp := f, Expr(N(1))
		if p, ok := f.(*Pow); ok {
			base, exp = p.base, p.exp
		}
		n, ok := exp.(*Num)
		if !ok {
			return nil, false
		}
		switch b := base.(type) {
		case *Sym:
			mono[b.name] = n.val
		case *Const:
			mono[b.name] = n.val
		default:
			return nil, false
		}
	}
	return mono, true
}

// compareMonomials orders monomials lexicographically on their variables,
// higher powers first.
func compareMonomials(a, b map[string]*big.Rat) int {
	names := make([]string, 0, len(a)+len(b))
	for n := range a {
		names = append(names, n)
	}
	for n := range b {
		if _, ok := a[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	zero := new(big.Rat)
	for _, n := range names {
		ea, eb := a[n], b[n]
		if ea == nil {
			ea = zero
		}
		if eb == nil {
			eb = zero
		}
		if c := ea.Cmp(eb); c != 0 {
			return c
		}
	}
	return 0
}

// sortTerms orders the terms of a sum: monomials first, by decreasing
// degree in lexical variable order, then the other terms by rendering.
func sortTerms(terms []Expr) {
	type keyed struct {
		e    Expr
		rank int
		mono map[string]*big.Rat
		key  string
		full string
	}
	ks := make([]keyed, len(terms))
	for i, e := range terms {
		_, rest := SplitCoeff(e)
		k := keyed{e: e, rank: 2, key: rest.String(), full: e.String()}
		if rank(rest) == 0 {
			k.rank = 1
			if m, ok := monomial(rest); ok {
				k.rank, k.mono = 0, m
			}
		}
		ks[i] = k
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.rank == 0 {
			if c := compareMonomials(a.mono, b.mono); c != 0 {
				return c > 0
			}
		}
		if a.key != b.key {
			return a.key < b.key
		}
		return a.full < b.full
	})
	for i := range ks {
		terms[i] = ks[i].e
	}
}

func factorKey(e Expr) (int, string) {
	if p, ok := e.(*Pow); ok {
		return rank(p.base), p.base.String()
	}
	return rank(e), e.String()
}

// sortOperands sorts operands by key, then by their full rendering.
func sortOperands(ops []Expr, key func(Expr) (int, string)) {
	type keyed struct {
		e    Expr
		rank int
		key  string
		full string
	}
	ks := make([]keyed, len(ops))
	for i, e := range ops {
		r, k := key(e)
		ks[i] = keyed{e: e, rank: r, key: k, full: e.String()}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].rank != ks[j].rank {
			return ks[i].rank < ks[j].rank
		}
		if ks[i].key != ks[j].key {
			return ks[i].key < ks[j].key
		}
		return ks[i].full < ks[j].full
	})
	for i := range ks {
		ops[i] = ks[i].e
	}
}
