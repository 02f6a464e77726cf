package symbol

import (
	"math/big"
	"sort"
)

// ============================================================
// Polynomial utilities
// ============================================================

// Degree returns the degree of expr in varName. Terms that are not
// polynomial in varName count as degree zero.
func Degree(expr Expr, varName string) int {
	switch v := expr.(type) {
	case *Sym:
		if v.name == varName {
			return 1
		}
	case *Pow:
		if sym, ok := v.base.(*Sym); ok && sym.name == varName {
			if n, ok2 := v.exp.(*Num); ok2 && n.IsInteger() {
				return int(n.val.Num().Int64())
			}
		}
	case *Add:
		maxDeg := 0
		for _, t := range v.terms {
			maxDeg = max(maxDeg, Degree(t, varName))
		}
		return maxDeg
	case *Mul:
		totalDeg := 0
		for _, f := range v.factors {
			totalDeg += Degree(f, varName)
		}
		return totalDeg
	}
	return 0
}

type PolyCoeffsResult map[int]Expr

// PolyCoeffs returns the coefficient of each power of varName.
func PolyCoeffs(expr Expr, varName string) PolyCoeffsResult {
	result := PolyCoeffsResult{}
	extractCoeffs(expr, varName, result)
	return result
}

// Degrees returns the powers present in the coefficient map, highest first.
func (r PolyCoeffsResult) Degrees() []int {
	degrees := make([]int, 0, len(r))
	for d := range r {
		degrees = append(degrees, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(degrees)))
	return degrees
}

func extractCoeffs(e Expr, varName string, out PolyCoeffsResult) {
	switch v := e.(type) {
	case *Sym:
		if v.name == varName {
			addCoeff(out, 1, N(1))
			return
		}
	case *Pow:
		if sym, ok := v.base.(*Sym); ok && sym.name == varName {
			if n, ok2 := v.exp.(*Num); ok2 && n.IsInteger() {
				addCoeff(out, int(n.val.Num().Int64()), N(1))
				return
			}
		}
	case *Mul:
		deg := 0
		coeffFactors := []Expr{}
		for _, f := range v.factors {
			if d := Degree(f, varName); d > 0 {
				deg += d
			} else {
				coeffFactors = append(coeffFactors, f)
			}
		}
		addCoeff(out, deg, MulOf(coeffFactors...))
		return
	case *Add:
		for _, t := range v.terms {
			extractCoeffs(t, varName, out)
		}
		return
	}
	addCoeff(out, 0, e)
}

func addCoeff(out PolyCoeffsResult, deg int, val Expr) {
	if existing, ok := out[deg]; ok {
		out[deg] = AddOf(existing, val)
	} else {
		out[deg] = val
	}
}

// rationalPoly returns the exact coefficients of e as a polynomial in its
// only free symbol.
func rationalPoly(e Expr) (string, map[int]*big.Rat, bool) {
	syms := SortedSymbols(e)
	if len(syms) != 1 {
		return "", nil, false
	}
	x := syms[0]
	coeffs := map[int]*big.Rat{}
	for d, c := range PolyCoeffs(e, x) {
		n, ok := c.(*Num)
		if !ok || d < 0 {
			return "", nil, false
		}
		coeffs[d] = n.val
	}
	return x, coeffs, true
}

func ratSqrt(r *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	num, ok1 := intRoot(r.Num(), 2)
	den, ok2 := intRoot(r.Denom(), 2)
	if !ok1 || !ok2 {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

func ratCbrt(r *big.Rat) (*big.Rat, bool) {
	abs := new(big.Rat).Abs(r)
	num, ok1 := intRoot(abs.Num(), 3)
	den, ok2 := intRoot(abs.Denom(), 3)
	if !ok1 || !ok2 {
		return nil, false
	}
	root := new(big.Rat).SetFrac(num, den)
	if r.Sign() < 0 {
		root.Neg(root)
	}
	return root, true
}

// linearFactor returns q*x - p for the root p/q.
func linearFactor(x Expr, root *big.Rat) Expr {
	q := NRat(new(big.Rat).SetInt(root.Denom()))
	p := NRat(new(big.Rat).SetInt(root.Num()))
	return AddOf(MulOf(q, x), MulOf(N(-1), p))
}

// factorPolynomial factors univariate polynomials with rational coefficients:
// quadratics with rational roots (including differences of squares and
// perfect squares) and sums or differences of cubes.
func factorPolynomial(e Expr) (Expr, bool) {
	name, c, ok := rationalPoly(e)
	if !ok {
		return e, false
	}
	x := S(name)
	zero := new(big.Rat)
	get := func(d int) *big.Rat {
		if v, ok := c[d]; ok {
			return v
		}
		return zero
	}
	switch Degree(e, name) {
	case 2:
		a, b, cc := get(2), get(1), get(0)
		// D = b^2 - 4ac
		disc := new(big.Rat).Mul(b, b)
		disc.Sub(disc, new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, cc)))
		s, ok := ratSqrt(disc)
		if !ok {
			return e, false
		}
		twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
		r1 := new(big.Rat).Quo(new(big.Rat).Sub(s, b), twoA)
		r2 := new(big.Rat).Quo(new(big.Rat).Sub(new(big.Rat).Neg(s), b), twoA)
		lead := new(big.Rat).Quo(a, new(big.Rat).SetInt(new(big.Int).Mul(r1.Denom(), r2.Denom())))
		return MulOf(NRat(lead), linearFactor(x, r1), linearFactor(x, r2)), true
	case 3:
		if get(2).Sign() != 0 || get(1).Sign() != 0 || get(0).Sign() == 0 {
			return e, false
		}
		a := get(3)
		r, ok := ratCbrt(new(big.Rat).Quo(get(0), a))
		if !ok {
			return e, false
		}
		// a*x^3 + a*r^3 = a*(x + r)*(x^2 - r*x + r^2)
		rr := NRat(r)
		quad := AddOf(PowOf(x, N(2)), MulOf(N(-1), rr, x), PowOf(rr, N(2)))
		return MulOf(NRat(a), AddOf(x, rr), quad), true
	}
	return e, false
}
