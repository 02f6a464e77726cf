package symbol

import (
	"math"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol/bigmath"
)

func errUnknownFunc(name string, n int) error {
	return errors.Errorf("unknown function %s with %d argument(s)", name, n)
}

// ============================================================
// Free Symbols
// ============================================================

// FreeSymbols returns the names of the variables appearing in e.
func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

func collectSymbols(e Expr, out map[string]struct{}) {
	if s, ok := e.(*Sym); ok {
		out[s.name] = struct{}{}
		return
	}
	for _, a := range e.Args() {
		collectSymbols(a, out)
	}
}

// SortedSymbols returns the free symbol names of e in lexical order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the variable name appears in e.
func Has(e Expr, name string) bool {
	if s, ok := e.(*Sym); ok {
		return s.name == name
	}
	for _, a := range e.Args() {
		if Has(a, name) {
			return true
		}
	}
	return false
}

// ============================================================
// Operation counting
// ============================================================

// CountOps returns the number of arithmetic operations and function
// applications needed to evaluate e. Subtraction and division count as one
// operation, like their additive and multiplicative counterparts.
func CountOps(e Expr) int {
	switch v := e.(type) {
	case *Num:
		ops := 0
		if v.Sign() < 0 {
			ops++
		}
		if !v.IsInteger() {
			ops++
		}
		return ops
	case *Float:
		if v.Sign() < 0 {
			return 1
		}
		return 0
	case *Add:
		ops := len(v.terms) - 1
		negatives := 0
		for _, t := range v.terms {
			if isNegativeTerm(t) {
				negatives++
				t = MulOf(N(-1), t)
			}
			ops += CountOps(t)
		}
		if negatives == len(v.terms) {
			ops++
		}
		return ops
	case *Mul:
		return countMulOps(v)
	case *Pow:
		if isNumber(v.exp) && numberSign(v.exp) < 0 {
			return 1 + CountOps(PowOf(v.base, numberNeg(v.exp)))
		}
		return 1 + CountOps(v.base) + CountOps(v.exp)
	case *Func:
		ops := 1
		for _, a := range v.args {
			ops += CountOps(a)
		}
		return ops
	}
	return 0
}

func countMulOps(m *Mul) int {
	coeff, num, den := fraction(m)
	ops := 0
	if numberSign(coeff) < 0 {
		ops++
		coeff = numberNeg(coeff)
	}
	items := len(num)
	switch c := coeff.(type) {
	case *Num:
		if p := c.val.Num(); !p.IsInt64() || p.Int64() != 1 {
			items++
		}
		if !c.IsInteger() {
			// p/q: the denominator divides.
			den = append(den, N(1))
		}
	default:
		items++
	}
	if items > 1 {
		ops += items - 1
	}
	ops += len(den)
	for _, f := range num {
		ops += CountOps(f)
	}
	for _, f := range den {
		ops += CountOps(f)
	}
	return ops
}

// ============================================================
// Substitution
// ============================================================

// Subs replaces every variable named in m, simultaneously.
func Subs(e Expr, m map[string]Expr) Expr {
	if len(m) == 0 {
		return e
	}
	if s, ok := e.(*Sym); ok {
		if v, found := m[s.name]; found {
			return v
		}
		return e
	}
	args := e.Args()
	if len(args) == 0 {
		return e
	}
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		newArgs[i] = Subs(a, m)
	}
	return Rebuild(e, newArgs)
}

// Sub replaces the variable varName by value.
func Sub(e Expr, varName string, value Expr) Expr {
	return Subs(e, map[string]Expr{varName: value})
}

// ============================================================
// Numerical evaluation
// ============================================================

// Evalf evaluates every number and constant of e to the given number of
// significant digits. Exact exponents and unit coefficients are kept, so
// x^2 stays a square and -x stays a negation. Floats already less precise
// than digits keep their precision.
func Evalf(e Expr, digits int) Expr {
	switch v := e.(type) {
	case *Num:
		return NewFloat(toBig(v, bigmath.Digits(digits)+8), digits)
	case *Float:
		if v.digits <= digits {
			return v
		}
		return NewFloat(v.val, digits)
	case *Const:
		return NewFloat(v.Value(bigmath.Digits(digits)+8), digits)
	case *Sym:
		return v
	case *Pow:
		exp := v.exp
		if _, exact := exp.(*Num); !exact {
			exp = Evalf(exp, digits)
		}
		return PowOf(Evalf(v.base, digits), exp)
	case *Mul:
		if c, ok := v.factors[0].(*Num); ok && c.IsNegOne() {
			return MulOf(c, Evalf(MulOf(v.factors[1:]...), digits))
		}
	}
	args := e.Args()
	newArgs := make([]Expr, len(args))
	for i, a := range args {
		newArgs[i] = Evalf(a, digits)
	}
	return Rebuild(e, newArgs)
}

// BigFloat evaluates a closed expression to a big.Float with prec bits.
func BigFloat(e Expr, prec uint) (*big.Float, error) {
	switch v := e.(type) {
	case *Num, *Float, *Const:
		return toBig(v, prec), nil
	case *Sym:
		return nil, errors.Errorf("free symbol %s", v.name)
	}
	work := prec + 16
	args := e.Args()
	xs := make([]*big.Float, len(args))
	for i, a := range args {
		x, err := BigFloat(a, work)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	var res *big.Float
	switch v := e.(type) {
	case *Add:
		res = new(big.Float).SetPrec(work)
		for _, x := range xs {
			res.Add(res, x)
		}
	case *Mul:
		res = new(big.Float).SetPrec(work).SetInt64(1)
		for _, x := range xs {
			res.Mul(res, x)
		}
	case *Pow:
		r, err := bigmath.Pow(xs[0], xs[1], work)
		if err != nil {
			return nil, err
		}
		res = r
	case *Func:
		r, err := ApplyBig(v.name, xs, work)
		if err != nil {
			return nil, err
		}
		res = r
	default:
		return nil, errors.Errorf("cannot evaluate %T", e)
	}
	return new(big.Float).SetPrec(prec).Set(res), nil
}

// ============================================================
// Conversion
// ============================================================

// Sympify converts Go values to expressions. Strings are parsed.
func Sympify(v any) (Expr, error) {
	switch x := v.(type) {
	case Expr:
		return x, nil
	case string:
		return Parse(x)
	case int:
		return N(int64(x)), nil
	case int8:
		return N(int64(x)), nil
	case int16:
		return N(int64(x)), nil
	case int32:
		return N(int64(x)), nil
	case int64:
		return N(x), nil
	case uint:
		return NRat(new(big.Rat).SetUint64(uint64(x))), nil
	case uint8:
		return N(int64(x)), nil
	case uint16:
		return N(int64(x)), nil
	case uint32:
		return N(int64(x)), nil
	case uint64:
		return NRat(new(big.Rat).SetUint64(x)), nil
	case float32:
		return Sympify(float64(x))
	case float64:
		if math.IsNaN(x) {
			return nil, errors.New("cannot convert NaN to an expression")
		}
		return FloatOf(x), nil
	case *big.Int:
		return NRat(new(big.Rat).SetInt(x)), nil
	case *big.Rat:
		return NRat(x), nil
	case *big.Float:
		return NewFloat(x, digitsOf(x.Prec())), nil
	}
	return nil, errors.Errorf("cannot convert %T to an expression", v)
}

// digitsOf is the number of significant decimal digits held by prec bits.
func digitsOf(prec uint) int {
	d := int(float64(prec) * 0.30102999566398120)
	return max(d, 1)
}
