package codegen

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// unaryKernels maps function names to their float64 implementation.
var unaryKernels = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"exp":   math.Exp,
	"log":   math.Log,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sign":  sign,
}

var binaryKernels = map[string]func(float64, float64) float64{
	"atan2": math.Atan2,
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return x
}

func add[T constraints.Float](a, b T) T { return a + b }

func mul[T constraints.Float](a, b T) T { return a * b }

func pow[T constraints.Float](a, b T) T { return T(math.Pow(float64(a), float64(b))) }

func unaryOf[T constraints.Float](f func(float64) float64) func(T) T {
	return func(x T) T { return T(f(float64(x))) }
}

func binaryOf[T constraints.Float](f func(float64, float64) float64) func(T, T) T {
	return func(a, b T) T { return T(f(float64(a), float64(b))) }
}

// powKernel returns a specialized kernel for common constant exponents.
func powKernel[T constraints.Float](exp float64) (func(T) T, bool) {
	switch exp {
	case 2:
		return func(x T) T { return x * x }, true
	case 3:
		return func(x T) T { return x * x * x }, true
	case -1:
		return func(x T) T { return 1 / x }, true
	case -2:
		return func(x T) T { return 1 / (x * x) }, true
	case 0.5:
		return unaryOf[T](math.Sqrt), true
	}
	return nil, false
}

// bufPool recycles arrays by length.
type bufPool[T constraints.Float] struct {
	free map[int][][]T
}

func (p *bufPool[T]) get(n int) []T {
	if bufs := p.free[n]; len(bufs) > 0 {
		b := bufs[len(bufs)-1]
		p.free[n] = bufs[:len(bufs)-1]
		return b
	}
	return make([]T, n)
}

func (p *bufPool[T]) put(b []T) {
	if p.free == nil {
		p.free = map[int][][]T{}
	}
	p.free[len(b)] = append(p.free[len(b)], b)
}

// vm evaluates a program over arrays of length n. Arrays of length one
// broadcast.
type vm[T constraints.Float] struct {
	n     int
	slots [][]T
	pool  bufPool[T]
}

// run evaluates prog over inputs, one array per parameter. Input arrays are
// never written.
func run[T constraints.Float](prog *program, inputs [][]T, n int) ([]T, error) {
	m := &vm[T]{n: n, slots: make([][]T, prog.nslots)}
	copy(m.slots, inputs)
	for _, st := range prog.steps {
		v, owned, err := m.eval(st.node)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating %s", st.sym)
		}
		if !owned {
			v = append(m.pool.get(len(v))[:0], v...)
		}
		m.slots[st.slot] = v
		for _, s := range st.release {
			m.pool.put(m.slots[s])
			m.slots[s] = nil
		}
	}
	return m.slots[prog.result], nil
}

// eval returns the value of nd and whether the caller owns its array.
func (m *vm[T]) eval(nd *node) ([]T, bool, error) {
	switch nd.op {
	case opConst:
		b := m.pool.get(1)
		b[0] = T(nd.value)
		return b, true, nil
	case opLoad:
		return m.slots[nd.slot], false, nil
	case opAdd, opMul:
		f := add[T]
		if nd.op == opMul {
			f = mul[T]
		}
		acc, owned, err := m.eval(nd.args[0])
		if err != nil {
			return nil, false, err
		}
		for _, a := range nd.args[1:] {
			v, vOwned, err := m.eval(a)
			if err != nil {
				return nil, false, err
			}
			acc, owned = m.binary(acc, owned, v, vOwned, f), true
		}
		return acc, owned, nil
	case opPow:
		base, owned, err := m.eval(nd.args[0])
		if err != nil {
			return nil, false, err
		}
		if e := nd.args[1]; e.op == opConst {
			if k, ok := powKernel[T](e.value); ok {
				return m.unary(base, owned, k), true, nil
			}
		}
		exp, expOwned, err := m.eval(nd.args[1])
		if err != nil {
			return nil, false, err
		}
		return m.binary(base, owned, exp, expOwned, pow[T]), true, nil
	case opCall:
		args := make([][]T, len(nd.args))
		owned := make([]bool, len(nd.args))
		for i, a := range nd.args {
			v, o, err := m.eval(a)
			if err != nil {
				return nil, false, err
			}
			args[i], owned[i] = v, o
		}
		if f, ok := unaryKernels[nd.name]; ok && len(args) == 1 {
			return m.unary(args[0], owned[0], unaryOf[T](f)), true, nil
		}
		if f, ok := binaryKernels[nd.name]; ok && len(args) == 2 {
			return m.binary(args[0], owned[0], args[1], owned[1], binaryOf[T](f)), true, nil
		}
		return nil, false, errors.Wrapf(ErrUnsupported, "no kernel for %s/%d", nd.name, len(args))
	}
	return nil, false, errors.Errorf("invalid opcode %d", nd.op)
}

func (m *vm[T]) unary(x []T, owned bool, f func(T) T) []T {
	out := x
	if !owned {
		out = m.pool.get(len(x))
	}
	for i, v := range x {
		out[i] = f(v)
	}
	return out
}

func (m *vm[T]) binary(a []T, aOwned bool, b []T, bOwned bool, f func(T, T) T) []T {
	n := m.n
	if len(a) == 1 && len(b) == 1 {
		n = 1
	}
	var out []T
	reusedA, reusedB := false, false
	switch {
	case aOwned && len(a) == n:
		out, reusedA = a, true
	case bOwned && len(b) == n:
		out, reusedB = b, true
	default:
		out = m.pool.get(n)
	}
	switch {
	case len(a) == n && len(b) == n:
		for i := range out {
			out[i] = f(a[i], b[i])
		}
	case len(a) == n:
		bv := b[0]
		for i := range out {
			out[i] = f(a[i], bv)
		}
	default:
		av := a[0]
		for i := range out {
			out[i] = f(av, b[i])
		}
	}
	if aOwned && !reusedA {
		m.pool.put(a)
	}
	if bOwned && !reusedB {
		m.pool.put(b)
	}
	return out
}

// ============================================================
// Arguments
// ============================================================

// scalar converts a numeric scalar argument to float64.
func scalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case *big.Float:
		f, _ := x.Float64()
		return f, true
	case *big.Rat:
		f, _ := x.Float64()
		return f, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	}
	return 0, false
}

// IsArray reports whether v is an array argument.
func IsArray(v any) bool {
	switch v.(type) {
	case []float64, []float32, Quad:
		return true
	}
	return false
}

// Len returns the length of an array argument, or 0.
func Len(v any) int {
	switch x := v.(type) {
	case []float64:
		return len(x)
	case []float32:
		return len(x)
	case Quad:
		return len(x)
	}
	return 0
}

// broadcastLen returns the common length of the array arguments. Arrays of
// length one broadcast against any length.
func broadcastLen(args []any, params []string) (n int, arrays bool, err error) {
	n = 1
	set := false
	for i, a := range args {
		if !IsArray(a) {
			continue
		}
		arrays = true
		l := Len(a)
		switch {
		case l == 1:
		case !set:
			n, set = l, true
		case l != n:
			return 0, true, errors.Errorf("argument %s: length %d does not broadcast with %d", params[i], l, n)
		}
	}
	return n, arrays, nil
}

// vectors converts args to arrays of T. []T arguments are used in place.
func vectors[T constraints.Float](args []any, params []string) ([][]T, error) {
	out := make([][]T, len(args))
	for i, a := range args {
		if v, ok := a.([]T); ok {
			out[i] = v
			continue
		}
		switch x := a.(type) {
		case []float64:
			out[i] = convert[T](x)
		case []float32:
			out[i] = convert[T](x)
		case Quad:
			out[i] = convert[T](x.Float64s())
		default:
			f, ok := scalar(a)
			if !ok {
				return nil, errors.Wrapf(ErrUnsupported, "argument %s of type %T", params[i], a)
			}
			out[i] = []T{T(f)}
		}
	}
	return out, nil
}

func convert[T, S constraints.Float](xs []S) []T {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = T(x)
	}
	return out
}

// shape returns res as a scalar when no argument was an array, and
// otherwise as an array of length n.
func shape[T constraints.Float](res []T, n int, arrays bool) any {
	if !arrays {
		return float64(res[0])
	}
	if len(res) == 1 && n != 1 {
		out := make([]T, n)
		for i := range out {
			out[i] = res[0]
		}
		return out
	}
	return res
}

// allFloat32 reports whether every array argument is a []float32 and there
// is at least one.
func allFloat32(args []any) bool {
	found := false
	for _, a := range args {
		switch a.(type) {
		case []float32:
			found = true
		case []float64, Quad:
			return false
		}
	}
	return found
}

func float64Call(prog *program) func([]any) (any, error) {
	return func(args []any) (any, error) {
		n, arrays, err := broadcastLen(args, prog.params)
		if err != nil {
			return nil, err
		}
		if allFloat32(args) {
			in, err := vectors[float32](args, prog.params)
			if err != nil {
				return nil, err
			}
			res, err := run(prog, in, n)
			if err != nil {
				return nil, err
			}
			return shape(res, n, arrays), nil
		}
		in, err := vectors[float64](args, prog.params)
		if err != nil {
			return nil, err
		}
		res, err := run(prog, in, n)
		if err != nil {
			return nil, err
		}
		return shape(res, n, arrays), nil
	}
}
