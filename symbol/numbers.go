package symbol

import (
	"math/big"

	"github.com/njchilds90/golambdify/symbol/bigmath"
)

// ============================================================
// Numeric folding shared by the canonical constructors
// ============================================================

func isNumber(e Expr) bool {
	switch e.(type) {
	case *Num, *Float:
		return true
	}
	return false
}

// IsNumber reports whether e is an exact or approximate number.
func IsNumber(e Expr) bool { return isNumber(e) }

func numberSign(e Expr) int {
	switch v := e.(type) {
	case *Num:
		return v.Sign()
	case *Float:
		return v.Sign()
	}
	return 0
}

func isZero(e Expr) bool { return isNumber(e) && numberSign(e) == 0 }

func isExactZero(e Expr) bool { n, ok := e.(*Num); return ok && n.IsZero() }
func isExactOne(e Expr) bool  { n, ok := e.(*Num); return ok && n.IsOne() }
func isInteger(e Expr) bool   { n, ok := e.(*Num); return ok && n.IsInteger() }

func isHalf(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.val.Cmp(big.NewRat(1, 2)) == 0
}

// floatDigits returns the digit count of the least precise Float among es,
// or zero when none of them is a Float.
func floatDigits(es ...Expr) int {
	digits := 0
	for _, e := range es {
		if f, ok := e.(*Float); ok && (digits == 0 || f.digits < digits) {
			digits = f.digits
		}
	}
	return digits
}

// toBig converts a number to a big.Float with the given mantissa size.
func toBig(e Expr, prec uint) *big.Float {
	switch v := e.(type) {
	case *Num:
		return new(big.Float).SetPrec(prec).SetRat(v.val)
	case *Float:
		return new(big.Float).SetPrec(prec).Set(v.val)
	case *Const:
		return v.Value(prec)
	}
	return nil
}

func numberNeg(e Expr) Expr { return numberMul(N(-1), e) }

func numberAdd(a, b Expr) Expr {
	if d := floatDigits(a, b); d > 0 {
		prec := bigmath.Digits(d) + 8
		return NewFloat(new(big.Float).SetPrec(prec).Add(toBig(a, prec), toBig(b, prec)), d)
	}
	return &Num{val: new(big.Rat).Add(a.(*Num).val, b.(*Num).val)}
}

func numberMul(a, b Expr) Expr {
	if isExactOne(a) {
		return b
	}
	if isExactOne(b) {
		return a
	}
	if d := floatDigits(a, b); d > 0 {
		prec := bigmath.Digits(d) + 8
		return NewFloat(new(big.Float).SetPrec(prec).Mul(toBig(a, prec), toBig(b, prec)), d)
	}
	return &Num{val: new(big.Rat).Mul(a.(*Num).val, b.(*Num).val)}
}

const maxExactExponent = 1000

// numberPow folds base^exp when both are numbers and the result is
// representable: exact rationals for integer exponents and perfect roots,
// Floats as soon as one side is a Float.
func numberPow(base, exp Expr) (Expr, bool) {
	if !isNumber(base) || !isNumber(exp) {
		return nil, false
	}
	if d := floatDigits(base, exp); d > 0 {
		prec := bigmath.Digits(d) + 8
		v, err := bigmath.Pow(toBig(base, prec), toBig(exp, prec), prec)
		if err != nil {
			return nil, false
		}
		return NewFloat(v, d), true
	}
	b, e := base.(*Num), exp.(*Num)
	if e.IsInteger() {
		n := e.val.Num()
		if !n.IsInt64() || n.Int64() > maxExactExponent || n.Int64() < -maxExactExponent {
			return nil, false
		}
		if b.IsZero() && n.Sign() < 0 {
			return nil, false
		}
		return ratPow(b.val, n.Int64()), true
	}
	if b.Sign() < 0 {
		return nil, false
	}
	q := e.val.Denom()
	if !q.IsInt64() || q.Int64() > 64 {
		return nil, false
	}
	num, okNum := intRoot(b.val.Num(), int(q.Int64()))
	den, okDen := intRoot(b.val.Denom(), int(q.Int64()))
	if !okNum || !okDen {
		return nil, false
	}
	root := &Num{val: new(big.Rat).SetFrac(num, den)}
	p := e.val.Num()
	if !p.IsInt64() || p.Int64() > maxExactExponent || p.Int64() < -maxExactExponent {
		return nil, false
	}
	if root.IsZero() && p.Sign() < 0 {
		return nil, false
	}
	return ratPow(root.val, p.Int64()), true
}

func ratPow(r *big.Rat, n int64) *Num {
	neg := n < 0
	if neg {
		n = -n
	}
	e := big.NewInt(n)
	num := new(big.Int).Exp(r.Num(), e, nil)
	den := new(big.Int).Exp(r.Denom(), e, nil)
	if neg {
		num, den = den, num
	}
	return &Num{val: new(big.Rat).SetFrac(num, den)}
}

// intRoot returns the k-th root of n when n is a perfect k-th power.
func intRoot(n *big.Int, k int) (*big.Int, bool) {
	if n.Sign() == 0 || k == 1 {
		return new(big.Int).Set(n), true
	}
	x := new(big.Int).Lsh(big.NewInt(1), uint((n.BitLen()+k-1)/k))
	km1 := big.NewInt(int64(k - 1))
	kk := big.NewInt(int64(k))
	for {
		t := new(big.Int).Exp(x, km1, nil)
		t.Quo(n, t)
		y := new(big.Int).Mul(x, km1)
		y.Add(y, t)
		y.Quo(y, kk)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}
	return x, new(big.Int).Exp(x, kk, nil).Cmp(n) == 0
}

// evalFunc evaluates a function whose arguments are numbers, at least one
// of them a Float. Domain errors leave the application unevaluated.
func evalFunc(name string, args []Expr) (Expr, bool) {
	for _, a := range args {
		if !isNumber(a) {
			return nil, false
		}
	}
	d := floatDigits(args...)
	if d == 0 {
		return nil, false
	}
	prec := bigmath.Digits(d) + 8
	xs := make([]*big.Float, len(args))
	for i, a := range args {
		xs[i] = toBig(a, prec)
	}
	v, err := ApplyBig(name, xs, prec)
	if err != nil {
		return nil, false
	}
	return NewFloat(v, d), true
}

// ApplyBig evaluates the named function on big.Float arguments.
func ApplyBig(name string, xs []*big.Float, prec uint) (*big.Float, error) {
	if want, ok := Arity[name]; !ok || want != len(xs) {
		return nil, errUnknownFunc(name, len(xs))
	}
	x := xs[0]
	switch name {
	case "sin":
		return bigmath.Sin(x, prec), nil
	case "cos":
		return bigmath.Cos(x, prec), nil
	case "tan":
		return bigmath.Tan(x, prec)
	case "asin":
		return bigmath.Asin(x, prec)
	case "acos":
		return bigmath.Acos(x, prec)
	case "atan":
		return bigmath.Atan(x, prec), nil
	case "atan2":
		return bigmath.Atan2(x, xs[1], prec), nil
	case "sinh":
		return bigmath.Sinh(x, prec), nil
	case "cosh":
		return bigmath.Cosh(x, prec), nil
	case "tanh":
		return bigmath.Tanh(x, prec), nil
	case "exp":
		return bigmath.Exp(x, prec), nil
	case "log":
		return bigmath.Log(x, prec)
	case "abs":
		return new(big.Float).SetPrec(prec).Abs(x), nil
	case "sign":
		return new(big.Float).SetPrec(prec).SetInt64(int64(x.Sign())), nil
	case "floor", "ceil":
		i, acc := x.Int(nil)
		if name == "floor" && acc == big.Above {
			i.Sub(i, big.NewInt(1))
		}
		if name == "ceil" && acc == big.Below {
			i.Add(i, big.NewInt(1))
		}
		return new(big.Float).SetPrec(prec).SetInt(i), nil
	}
	return nil, errUnknownFunc(name, len(xs))
}
