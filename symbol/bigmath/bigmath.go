// Package bigmath implements elementary functions on math/big.Float values.
//
// Every function computes with a few guard bits above the precision of its
// result and rounds once at the end. Results carry the precision passed by the
// caller, or the precision of the first argument when none is given.
package bigmath

import (
	"math"
	"math/big"
	"sync"

	"github.com/pkg/errors"
)

// ErrDomain is returned when an argument is outside the domain of a function.
var ErrDomain = errors.New("math domain error")

const guardBits = 32

// ============================================================
// Helpers
// ============================================================

func newFloat(prec uint) *big.Float { return new(big.Float).SetPrec(prec) }

func fromInt(v int64, prec uint) *big.Float { return newFloat(prec).SetInt64(v) }

func round(x *big.Float, prec uint) *big.Float { return newFloat(prec).Set(x) }

// negligible reports whether |term| < 2^-bits (relative to one).
func negligible(term *big.Float, bits uint) bool {
	if term.Sign() == 0 {
		return true
	}
	return term.MantExp(nil) < -int(bits)
}

// Digits converts a number of significant decimal digits to a mantissa size in bits.
func Digits(digits int) uint {
	if digits < 1 {
		digits = 1
	}
	return uint(math.Ceil(float64(digits)*math.Log2(10))) + 8
}

// ============================================================
// Constants
// ============================================================

var (
	cacheLock sync.Mutex
	piCache   = map[uint]*big.Float{}
	ln2Cache  = map[uint]*big.Float{}
)

// Pi returns pi rounded to prec bits.
func Pi(prec uint) *big.Float {
	cacheLock.Lock()
	defer cacheLock.Unlock()
	if v, ok := piCache[prec]; ok {
		return round(v, prec)
	}
	// Machin: pi = 16*atan(1/5) - 4*atan(1/239).
	p := prec + guardBits
	a := atanInv(5, p)
	a.Mul(a, fromInt(16, p))
	b := atanInv(239, p)
	b.Mul(b, fromInt(4, p))
	v := round(a.Sub(a, b), prec)
	piCache[prec] = v
	return round(v, prec)
}

// E returns Euler's number rounded to prec bits.
func E(prec uint) *big.Float {
	return Exp(fromInt(1, prec+guardBits), prec)
}

func ln2(prec uint) *big.Float {
	cacheLock.Lock()
	defer cacheLock.Unlock()
	if v, ok := ln2Cache[prec]; ok {
		return round(v, prec)
	}
	// ln(2) = 2*atanh(1/3).
	p := prec + guardBits
	third := newFloat(p).Quo(fromInt(1, p), fromInt(3, p))
	v := atanhSeries(third, p)
	v.Mul(v, fromInt(2, p))
	v = round(v, prec)
	ln2Cache[prec] = v
	return round(v, prec)
}

// atanInv returns atan(1/n) with the Gregory series.
func atanInv(n int64, prec uint) *big.Float {
	x := newFloat(prec).Quo(fromInt(1, prec), fromInt(n, prec))
	x2 := newFloat(prec).Mul(x, x)
	sum := newFloat(prec).Set(x)
	power := newFloat(prec).Set(x)
	for k := int64(1); ; k++ {
		power.Mul(power, x2)
		term := newFloat(prec).Quo(power, fromInt(2*k+1, prec))
		if negligible(term, prec) {
			break
		}
		if k%2 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
	}
	return sum
}

// atanhSeries returns atanh(z) for |z| < 1 as z + z^3/3 + z^5/5 + ...
func atanhSeries(z *big.Float, prec uint) *big.Float {
	z2 := newFloat(prec).Mul(z, z)
	sum := newFloat(prec).Set(z)
	power := newFloat(prec).Set(z)
	for k := int64(1); ; k++ {
		power.Mul(power, z2)
		term := newFloat(prec).Quo(power, fromInt(2*k+1, prec))
		if negligible(term, prec) {
			break
		}
		sum.Add(sum, term)
	}
	return sum
}

// ============================================================
// Exponential and logarithm
// ============================================================

// Exp returns e^x rounded to prec bits.
func Exp(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return fromInt(1, prec)
	}
	// Reduce to |r| < 2^-10 then square k times.
	k := x.MantExp(nil) + 10
	if k < 0 {
		k = 0
	}
	p := prec + guardBits + uint(k)
	r := newFloat(p).SetMantExp(round(x, p), -k)
	sum := fromInt(1, p)
	term := fromInt(1, p)
	for n := int64(1); ; n++ {
		term.Mul(term, r)
		term.Quo(term, fromInt(n, p))
		if negligible(term, p) {
			break
		}
		sum.Add(sum, term)
	}
	for range k {
		sum.Mul(sum, sum)
	}
	return round(sum, prec)
}

// Log returns the natural logarithm of x rounded to prec bits.
func Log(x *big.Float, prec uint) (*big.Float, error) {
	if x.Sign() <= 0 {
		return nil, errors.Wrapf(ErrDomain, "log(%s)", x.Text('g', 10))
	}
	p := prec + guardBits
	// x = m * 2^e with m in [0.5, 1).
	m := newFloat(p)
	e := x.MantExp(m)
	// log(m) = 2*atanh((m-1)/(m+1)).
	num := newFloat(p).Sub(m, fromInt(1, p))
	den := newFloat(p).Add(m, fromInt(1, p))
	z := newFloat(p).Quo(num, den)
	res := atanhSeries(z, p)
	res.Mul(res, fromInt(2, p))
	if e != 0 {
		l2 := ln2(p)
		res.Add(res, l2.Mul(l2, fromInt(int64(e), p)))
	}
	return round(res, prec), nil
}

// Pow returns x^y rounded to prec bits.
func Pow(x, y *big.Float, prec uint) (*big.Float, error) {
	if y.IsInt() {
		if n, acc := y.Int64(); acc == big.Exact && n > -(1<<20) && n < 1<<20 {
			return powInt(x, n, prec)
		}
	}
	switch x.Sign() {
	case 0:
		if y.Sign() > 0 {
			return fromInt(0, prec), nil
		}
		return nil, errors.Wrapf(ErrDomain, "0^%s", y.Text('g', 10))
	case -1:
		return nil, errors.Wrapf(ErrDomain, "%s^%s", x.Text('g', 10), y.Text('g', 10))
	}
	p := prec + guardBits + 16
	l, err := Log(x, p)
	if err != nil {
		return nil, err
	}
	return Exp(l.Mul(l, round(y, p)), prec), nil
}

func powInt(x *big.Float, n int64, prec uint) (*big.Float, error) {
	neg := n < 0
	if neg {
		if x.Sign() == 0 {
			return nil, errors.Wrapf(ErrDomain, "0^%d", n)
		}
		n = -n
	}
	p := prec + guardBits + 64
	base := round(x, p)
	res := fromInt(1, p)
	for n > 0 {
		if n&1 == 1 {
			res.Mul(res, base)
		}
		base.Mul(base, base)
		n >>= 1
	}
	if neg {
		res.Quo(fromInt(1, p), res)
	}
	return round(res, prec), nil
}

// Sqrt returns the square root of x rounded to prec bits.
func Sqrt(x *big.Float, prec uint) (*big.Float, error) {
	if x.Sign() < 0 {
		return nil, errors.Wrapf(ErrDomain, "sqrt(%s)", x.Text('g', 10))
	}
	if x.Sign() == 0 {
		return fromInt(0, prec), nil
	}
	return newFloat(prec).Sqrt(round(x, prec+guardBits)), nil
}

// ============================================================
// Trigonometric functions
// ============================================================

const halvings = 8

// sincos returns sin(x) and cos(x) at precision prec.
func sincos(x *big.Float, prec uint) (*big.Float, *big.Float) {
	p := prec + guardBits + 2*halvings
	r := round(x, p)
	if r.MantExp(nil) > 1 {
		// Reduce modulo 2*pi. Large arguments need extra bits for the quotient.
		extra := uint(r.MantExp(nil))
		p += extra
		twoPi := Pi(p)
		twoPi.Mul(twoPi, fromInt(2, p))
		q := newFloat(p).Quo(round(r, p), twoPi)
		n, _ := q.Int(nil)
		nf := newFloat(p).SetInt(n)
		r = newFloat(p).Sub(round(x, p), nf.Mul(nf, twoPi))
	}
	t := newFloat(p).SetMantExp(r, -halvings)
	t2 := newFloat(p).Mul(t, t)
	s := newFloat(p).Set(t)
	c := fromInt(1, p)
	sTerm := newFloat(p).Set(t)
	cTerm := fromInt(1, p)
	for n := int64(1); ; n++ {
		// sin: t^(2n+1)/(2n+1)!, cos: t^(2n)/(2n)!
		sTerm.Mul(sTerm, t2)
		sTerm.Quo(sTerm, fromInt((2*n)*(2*n+1), p))
		cTerm.Mul(cTerm, t2)
		cTerm.Quo(cTerm, fromInt((2*n-1)*(2*n), p))
		if negligible(sTerm, p) && negligible(cTerm, p) {
			break
		}
		if n%2 == 1 {
			s.Sub(s, sTerm)
			c.Sub(c, cTerm)
		} else {
			s.Add(s, sTerm)
			c.Add(c, cTerm)
		}
	}
	one := fromInt(1, p)
	two := fromInt(2, p)
	for range halvings {
		// sin(2a) = 2 sin(a) cos(a), cos(2a) = 1 - 2 sin(a)^2.
		ns := newFloat(p).Mul(s, c)
		ns.Mul(ns, two)
		nc := newFloat(p).Mul(s, s)
		nc.Mul(nc, two)
		nc.Sub(one, nc)
		s, c = ns, nc
	}
	return round(s, prec), round(c, prec)
}

// Sin returns sin(x) rounded to prec bits.
func Sin(x *big.Float, prec uint) *big.Float {
	s, _ := sincos(x, prec)
	return s
}

// Cos returns cos(x) rounded to prec bits.
func Cos(x *big.Float, prec uint) *big.Float {
	_, c := sincos(x, prec)
	return c
}

// Tan returns tan(x) rounded to prec bits.
func Tan(x *big.Float, prec uint) (*big.Float, error) {
	s, c := sincos(x, prec+guardBits)
	if c.Sign() == 0 {
		return nil, errors.Wrapf(ErrDomain, "tan(%s)", x.Text('g', 10))
	}
	return round(s.Quo(s, c), prec), nil
}

// Atan returns atan(x) rounded to prec bits.
func Atan(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return fromInt(0, prec)
	}
	p := prec + guardBits + 8
	v := round(x, p)
	neg := v.Sign() < 0
	if neg {
		v.Neg(v)
	}
	one := fromInt(1, p)
	invert := v.Cmp(one) > 0
	if invert {
		v.Quo(one, v)
	}
	// atan(v) = 2*atan(v / (1 + sqrt(1 + v^2))), applied four times.
	const steps = 4
	for range steps {
		d := newFloat(p).Mul(v, v)
		d.Add(d, one)
		d.Sqrt(d)
		d.Add(d, one)
		v.Quo(v, d)
	}
	res := newFloat(p)
	v2 := newFloat(p).Mul(v, v)
	power := newFloat(p).Set(v)
	res.Set(v)
	for k := int64(1); ; k++ {
		power.Mul(power, v2)
		term := newFloat(p).Quo(power, fromInt(2*k+1, p))
		if negligible(term, p) {
			break
		}
		if k%2 == 1 {
			res.Sub(res, term)
		} else {
			res.Add(res, term)
		}
	}
	res.SetMantExp(res, steps)
	if invert {
		half := Pi(p)
		half.SetMantExp(half, -1)
		res.Sub(half, res)
	}
	if neg {
		res.Neg(res)
	}
	return round(res, prec)
}

// Atan2 returns the angle of the point (x, y) rounded to prec bits.
func Atan2(y, x *big.Float, prec uint) *big.Float {
	p := prec + guardBits
	switch {
	case x.Sign() > 0:
		return Atan(newFloat(p).Quo(y, x), prec)
	case x.Sign() < 0:
		a := Atan(newFloat(p).Quo(y, x), p)
		if y.Sign() >= 0 {
			return round(a.Add(a, Pi(p)), prec)
		}
		return round(a.Sub(a, Pi(p)), prec)
	case y.Sign() > 0:
		half := Pi(p)
		return round(half.SetMantExp(half, -1), prec)
	case y.Sign() < 0:
		half := Pi(p)
		half.SetMantExp(half, -1)
		return round(half.Neg(half), prec)
	}
	return fromInt(0, prec)
}

// Asin returns asin(x) rounded to prec bits.
func Asin(x *big.Float, prec uint) (*big.Float, error) {
	p := prec + guardBits
	one := fromInt(1, p)
	abs := newFloat(p).Abs(x)
	switch abs.Cmp(one) {
	case 1:
		return nil, errors.Wrapf(ErrDomain, "asin(%s)", x.Text('g', 10))
	case 0:
		half := Pi(p)
		half.SetMantExp(half, -1)
		if x.Sign() < 0 {
			half.Neg(half)
		}
		return round(half, prec), nil
	}
	// asin(x) = atan(x / sqrt(1 - x^2)).
	d := newFloat(p).Mul(x, x)
	d.Sub(one, d)
	d.Sqrt(d)
	return Atan(d.Quo(round(x, p), d), prec), nil
}

// Acos returns acos(x) rounded to prec bits.
func Acos(x *big.Float, prec uint) (*big.Float, error) {
	p := prec + guardBits
	a, err := Asin(x, p)
	if err != nil {
		return nil, errors.Wrapf(ErrDomain, "acos(%s)", x.Text('g', 10))
	}
	half := Pi(p)
	half.SetMantExp(half, -1)
	return round(half.Sub(half, a), prec), nil
}

// ============================================================
// Hyperbolic functions
// ============================================================

func expPair(x *big.Float, prec uint) (*big.Float, *big.Float) {
	p := prec + guardBits
	if e := x.MantExp(nil); e < 0 {
		p += uint(-e)
	}
	ep := Exp(x, p)
	en := newFloat(p).Quo(fromInt(1, p), ep)
	return ep, en
}

// Sinh returns sinh(x) rounded to prec bits.
func Sinh(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return fromInt(0, prec)
	}
	ep, en := expPair(x, prec)
	ep.Sub(ep, en)
	return round(ep.SetMantExp(ep, -1), prec)
}

// Cosh returns cosh(x) rounded to prec bits.
func Cosh(x *big.Float, prec uint) *big.Float {
	ep, en := expPair(x, prec)
	ep.Add(ep, en)
	return round(ep.SetMantExp(ep, -1), prec)
}

// Tanh returns tanh(x) rounded to prec bits.
func Tanh(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return fromInt(0, prec)
	}
	ep, en := expPair(x, prec)
	num := newFloat(ep.Prec()).Sub(ep, en)
	den := newFloat(ep.Prec()).Add(ep, en)
	return round(num.Quo(num, den), prec)
}
