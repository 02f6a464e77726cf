package symbol

import (
	"math/big"
)

// ============================================================
// Expansion
// ============================================================

const maxExpandPower = 10

// Expand distributes products over sums and expands small integer powers of sums.
func Expand(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		expanded := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			expanded[i] = Expand(f)
		}
		for i, f := range expanded {
			a, ok := f.(*Add)
			if !ok {
				continue
			}
			rest := make([]Expr, 0, len(expanded)-1)
			rest = append(rest, expanded[:i]...)
			rest = append(rest, expanded[i+1:]...)
			terms := make([]Expr, len(a.terms))
			for k, t := range a.terms {
				terms[k] = Expand(MulOf(append([]Expr{t}, rest...)...))
			}
			return AddOf(terms...)
		}
		return MulOf(expanded...)
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Expand(t)
		}
		return AddOf(terms...)
	case *Pow:
		base := Expand(v.base)
		if n, ok := v.exp.(*Num); ok && n.IsInteger() {
			if k := n.val.Num().Int64(); k >= 2 && k <= maxExpandPower {
				if _, isSum := base.(*Add); isSum {
					result := base
					for i := int64(1); i < k; i++ {
						result = distribute(result, base)
					}
					return result
				}
			}
		}
		return PowOf(base, Expand(v.exp))
	case *Func:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			args[i] = Expand(a)
		}
		return FuncOf(v.name, args...)
	}
	return e
}

// distribute multiplies two sums term by term. MulOf alone would fold
// (a+b)*(a+b) back into a power.
func distribute(a, b Expr) Expr {
	terms := func(e Expr) []Expr {
		if s, ok := e.(*Add); ok {
			return s.terms
		}
		return []Expr{e}
	}
	var products []Expr
	for _, ta := range terms(a) {
		for _, tb := range terms(b) {
			products = append(products, Expand(MulOf(ta, tb)))
		}
	}
	return AddOf(products...)
}

// ============================================================
// Factoring
// ============================================================

// FactorOptions configures Factor.
type FactorOptions struct {
	// Deep factors function arguments and powers as well as the top level.
	Deep bool
	// Fraction lets common factors carry negative exponents, so that
	// x/y + z/y becomes (x + z)/y.
	Fraction bool
}

// Factor pulls the common factors out of sums, including the integer
// content of their coefficients, and factors univariate polynomials with
// rational roots.
func Factor(e Expr, opts FactorOptions) Expr {
	if opts.Deep {
		if args := e.Args(); len(args) > 0 {
			newArgs := make([]Expr, len(args))
			for i, a := range args {
				newArgs[i] = Factor(a, opts)
			}
			e = Rebuild(e, newArgs)
		}
	}
	if a, ok := e.(*Add); ok {
		return factorSum(a, opts)
	}
	return e
}

func powers(e Expr) (keys []string, bases, exps map[string]Expr) {
	_, rest := SplitCoeff(e)
	factors := []Expr{rest}
	if m, ok := rest.(*Mul); ok {
		factors = m.factors
	}
	bases, exps = map[string]Expr{}, map[string]Expr{}
	for _, f := range factors {
		if isExactOne(f) {
			continue
		}
		b, x := f, Expr(N(1))
		if p, ok := f.(*Pow); ok {
			b, x = p.base, p.exp
		}
		k := b.String()
		keys = append(keys, k)
		bases[k], exps[k] = b, x
	}
	return keys, bases, exps
}

func factorSum(a *Add, opts FactorOptions) Expr {
	keys, bases, firstExps := powers(a.terms[0])
	allExps := make([]map[string]Expr, len(a.terms))
	for i, t := range a.terms {
		_, _, allExps[i] = powers(t)
	}
	var common []Expr
	for _, k := range keys {
		exp := firstExps[k]
		shared := true
		for _, exps := range allExps[1:] {
			other, ok := exps[k]
			if !ok {
				shared = false
				break
			}
			if en, ok1 := exp.(*Num); ok1 {
				on, ok2 := other.(*Num)
				if !ok2 {
					shared = false
					break
				}
				if on.val.Cmp(en.val) < 0 {
					exp = on
				}
				continue
			}
			if !other.Equal(exp) {
				shared = false
				break
			}
		}
		if !shared {
			continue
		}
		if numberSign(exp) < 0 && !opts.Fraction {
			continue
		}
		common = append(common, PowOf(bases[k], exp))
	}
	content := integerContent(a.terms)
	if content != nil {
		common = append(common, content)
	}
	if len(common) == 0 {
		if f, ok := factorPolynomial(a); ok {
			return f
		}
		return a
	}
	divisor := PowOf(MulOf(common...), N(-1))
	inner := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		inner[i] = MulOf(t, divisor)
	}
	rest := AddOf(inner...)
	if f, ok := factorPolynomial(rest); ok {
		rest = f
	}
	return MulOf(append(common, rest)...)
}

// integerContent returns the gcd of the coefficients when all of them are
// integers and the gcd is above one.
func integerContent(terms []Expr) Expr {
	g := new(big.Int)
	for _, t := range terms {
		c, _ := SplitCoeff(t)
		n, ok := c.(*Num)
		if !ok || !n.IsInteger() {
			return nil
		}
		g.GCD(nil, nil, g, new(big.Int).Abs(n.val.Num()))
	}
	if g.Cmp(big.NewInt(1)) <= 0 {
		return nil
	}
	return NRat(new(big.Rat).SetInt(g))
}

// ============================================================
// Trigonometric identities and inverse functions
// ============================================================

// TrigSimplify applies sin(u)^2 + cos(u)^2 = 1 throughout e.
func TrigSimplify(e Expr) Expr {
	args := e.Args()
	if len(args) == 0 {
		return e
	}
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		newArgs[i] = TrigSimplify(a)
	}
	e = Rebuild(e, newArgs)
	if a, ok := e.(*Add); ok {
		return trigFindPythagorean(a)
	}
	return e
}

func trigFindPythagorean(add *Add) Expr {
	type trigTerm struct {
		funcName string
		argStr   string
		coeff    Expr
		idx      int
	}
	var trigTerms []trigTerm
	for idx, t := range add.terms {
		coeff, inner := SplitCoeff(t)
		p, ok := inner.(*Pow)
		if !ok || !p.exp.Equal(N(2)) {
			continue
		}
		if fn, ok := p.base.(*Func); ok && (fn.name == "sin" || fn.name == "cos") {
			trigTerms = append(trigTerms, trigTerm{fn.name, fn.args[0].String(), coeff, idx})
		}
	}
	for i := 0; i < len(trigTerms); i++ {
		for j := i + 1; j < len(trigTerms); j++ {
			ti, tj := trigTerms[i], trigTerms[j]
			if ti.argStr == tj.argStr && ti.funcName != tj.funcName && ti.coeff.Equal(tj.coeff) {
				newTerms := []Expr{}
				for idx, t := range add.terms {
					if idx != ti.idx && idx != tj.idx {
						newTerms = append(newTerms, t)
					}
				}
				newTerms = append(newTerms, ti.coeff)
				return TrigSimplify(AddOf(newTerms...))
			}
		}
	}
	return add
}

var inverses = map[string]string{
	"sin": "asin", "asin": "sin",
	"cos": "acos", "acos": "cos",
	"tan": "atan", "atan": "tan",
	"exp": "log", "log": "exp",
}

// CancelInverse rewrites f(g(u)) as u whenever g is the inverse of f,
// without checking the principal branch.
func CancelInverse(e Expr) Expr {
	args := e.Args()
	if len(args) == 0 {
		return e
	}
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		newArgs[i] = CancelInverse(a)
	}
	e = Rebuild(e, newArgs)
	if f, ok := e.(*Func); ok && len(f.args) == 1 {
		if g, ok := f.args[0].(*Func); ok && inverses[f.name] == g.name {
			return g.args[0]
		}
	}
	return e
}

// ============================================================
// Simplification
// ============================================================

// SimplifyOptions configures Simplify.
type SimplifyOptions struct {
	// Measure scores a candidate; lower is better. Defaults to CountOps.
	Measure func(Expr) int
	// Inverse cancels compositions of inverse functions first.
	Inverse bool
	// Rational replaces Floats by the exact rationals they hold.
	Rational bool
	// Ratio bounds the accepted result: a candidate scoring more than Ratio
	// times the input is rejected. Defaults to 1.7.
	Ratio float64
}

// DefaultRatio is the score ratio above which Simplify keeps its input.
const DefaultRatio = 1.7

// Simplify returns the candidate form of e with the lowest measure among
// the input, its expansion, its factorization, the expansion factored and
// its trigonometric simplification. Ties keep the earliest candidate.
func Simplify(e Expr, opts SimplifyOptions) Expr {
	measure := opts.Measure
	if measure == nil {
		measure = CountOps
	}
	ratio := opts.Ratio
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	original := e
	if opts.Rational {
		e = toRational(e)
	}
	if opts.Inverse {
		e = CancelInverse(e)
	}
	e = simplifyArgs(e, opts)
	expanded := Expand(e)
	candidates := []Expr{
		e,
		Factor(e, FactorOptions{}),
		expanded,
		Factor(expanded, FactorOptions{}),
		TrigSimplify(e),
		TrigSimplify(expanded),
	}
	best, bestScore := candidates[0], measure(candidates[0])
	for _, c := range candidates[1:] {
		if s := measure(c); s < bestScore {
			best, bestScore = c, s
		}
	}
	if float64(bestScore) > ratio*float64(measure(original)) {
		return original
	}
	return best
}

// simplifyArgs simplifies the arguments of function applications.
func simplifyArgs(e Expr, opts SimplifyOptions) Expr {
	args := e.Args()
	if len(args) == 0 {
		return e
	}
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		if _, isFunc := e.(*Func); isFunc {
			newArgs[i] = Simplify(a, opts)
		} else {
			newArgs[i] = simplifyArgs(a, opts)
		}
	}
	return Rebuild(e, newArgs)
}

func toRational(e Expr) Expr {
	if f, ok := e.(*Float); ok {
		r, _ := f.val.Rat(nil)
		return NRat(r)
	}
	args := e.Args()
	if len(args) == 0 {
		return e
	}
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		newArgs[i] = toRational(a)
	}
	return Rebuild(e, newArgs)
}
