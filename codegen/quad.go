package codegen

import (
	"math"
	"math/big"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol"
	"github.com/njchilds90/golambdify/symbol/bigmath"
)

// quadArg converts a scalar or array argument to extended precision.
func quadArg(v any, param string) ([]*big.Float, error) {
	newQuad := func(f float64) (*big.Float, error) {
		if math.IsNaN(f) {
			return nil, errors.Errorf("argument %s: NaN has no extended precision value", param)
		}
		return new(big.Float).SetPrec(QuadPrec).SetFloat64(f), nil
	}
	switch x := v.(type) {
	case Quad:
		return x, nil
	case *big.Float:
		return []*big.Float{x}, nil
	case *big.Rat:
		return []*big.Float{new(big.Float).SetPrec(QuadPrec).SetRat(x)}, nil
	case *big.Int:
		return []*big.Float{new(big.Float).SetPrec(QuadPrec).SetInt(x)}, nil
	case []float64:
		out := make([]*big.Float, len(x))
		for i, f := range x {
			q, err := newQuad(f)
			if err != nil {
				return nil, err
			}
			out[i] = q
		}
		return out, nil
	case []float32:
		out := make([]*big.Float, len(x))
		for i, f := range x {
			q, err := newQuad(float64(f))
			if err != nil {
				return nil, err
			}
			out[i] = q
		}
		return out, nil
	}
	f, ok := scalar(v)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "argument %s of type %T", param, v)
	}
	q, err := newQuad(f)
	if err != nil {
		return nil, err
	}
	return []*big.Float{q}, nil
}

func quadCall(prog *program) func([]any) (any, error) {
	return func(args []any) (_ any, err error) {
		// big.Float panics on operations without a value, such as Inf - Inf.
		defer func() {
			if r := recover(); r != nil {
				nan, ok := r.(big.ErrNaN)
				if !ok {
					panic(r)
				}
				err = errors.Wrap(bigmath.ErrDomain, nan.Error())
			}
		}()
		n, arrays, err := broadcastLen(args, prog.params)
		if err != nil {
			return nil, err
		}
		in := make([][]*big.Float, len(args))
		for i, a := range args {
			if in[i], err = quadArg(a, prog.params[i]); err != nil {
				return nil, err
			}
		}
		if !arrays {
			n = 1
		}
		out := make(Quad, n)
		slots := make([]*big.Float, prog.nslots)
		for i := range out {
			for p, v := range in {
				if len(v) == 1 {
					slots[p] = v[0]
				} else {
					slots[p] = v[i]
				}
			}
			for _, st := range prog.steps {
				v, err := evalQuad(st.node, slots)
				if err != nil {
					return nil, errors.Wrapf(err, "evaluating %s", st.sym)
				}
				slots[st.slot] = v
				for _, s := range st.release {
					slots[s] = nil
				}
			}
			// The result may be a compiled constant or an argument.
			out[i] = new(big.Float).SetPrec(QuadPrec).Set(slots[prog.result])
		}
		if !arrays {
			return out[0], nil
		}
		return out, nil
	}
}

// evalQuad evaluates nd at QuadPrec. Constants and slots are shared, so
// every operation writes a new value.
func evalQuad(nd *node, slots []*big.Float) (*big.Float, error) {
	switch nd.op {
	case opConst:
		return nd.quad, nil
	case opLoad:
		return slots[nd.slot], nil
	}
	xs := make([]*big.Float, len(nd.args))
	for i, a := range nd.args {
		x, err := evalQuad(a, slots)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	switch nd.op {
	case opAdd:
		acc := new(big.Float).SetPrec(QuadPrec).Set(xs[0])
		for _, x := range xs[1:] {
			acc.Add(acc, x)
		}
		return acc, nil
	case opMul:
		acc := new(big.Float).SetPrec(QuadPrec).Set(xs[0])
		for _, x := range xs[1:] {
			acc.Mul(acc, x)
		}
		return acc, nil
	case opPow:
		return bigmath.Pow(xs[0], xs[1], QuadPrec)
	case opCall:
		return symbol.ApplyBig(nd.name, xs, QuadPrec)
	}
	return nil, errors.Errorf("invalid opcode %d", nd.op)
}
