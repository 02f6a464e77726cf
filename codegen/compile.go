package codegen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol"
)

// Function is an expression compiled for one backend.
type Function struct {
	Backend Backend
	Params  []string
	Source  *Source

	call func([]any) (any, error)
}

// Call evaluates the function with one argument per parameter.
//
// Symbolic functions accept any value symbol.Sympify converts and return a
// symbol.Expr. Numeric functions accept scalars and arrays ([]float64,
// []float32 or Quad); arrays of length one broadcast. Float64 functions
// return a float64 for scalar arguments, and otherwise a []float64, or a
// []float32 when every array is a []float32. Float128 functions return a
// *big.Float or a Quad.
func (f *Function) Call(args ...any) (any, error) {
	if len(args) != len(f.Params) {
		return nil, errors.Errorf("%s: want %d arguments, got %d", f.Backend, len(f.Params), len(args))
	}
	return f.call(args)
}

// Compile compiles expr for backend. Parameters are bound to the arguments
// in order; numeric backends reject expressions with other free symbols.
// Errors wrap ErrUnavailable when the backend cannot run, and ErrUnsupported
// when it cannot evaluate expr.
func Compile(expr symbol.Expr, params []string, backend Backend, opts ...Option) (*Function, error) {
	o := newOptions(opts)
	prog, err := lower(expr, params, o.cse, backend != Symbolic)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling %s for %s", expr, backend)
	}
	f := &Function{Backend: backend, Params: params}
	switch backend {
	case Symbolic:
		f.Source = prog.source(backend.Ident(), "substitutes its arguments into the expression.", symbol.DefaultPrinter)
		f.call = substitute(expr, params)
	case Float64:
		f.Source = prog.source(backend.Ident(), "evaluates float64 scalars and arrays.", Float64Printer)
		f.call = float64Call(prog)
	case Float128:
		f.Source = prog.source(backend.Ident(), fmt.Sprintf("evaluates %d-bit floats.", QuadPrec), Float128Printer)
		f.call = quadCall(prog)
	case FastLargeArray:
		p, err := newParallel(prog, o)
		if err != nil {
			return nil, err
		}
		doc := fmt.Sprintf("evaluates float64 arrays in chunks of at least %d over %d workers.", p.chunkSize, p.workers)
		f.Source = prog.source(backend.Ident(), doc, Float64Printer)
		f.call = p.call
	default:
		return nil, errors.Wrapf(ErrUnavailable, "%s", backend)
	}
	return f, nil
}

func substitute(expr symbol.Expr, params []string) func([]any) (any, error) {
	return func(args []any) (any, error) {
		m := make(map[string]symbol.Expr, len(args))
		for i, a := range args {
			if IsArray(a) {
				return nil, errors.Wrapf(ErrUnsupported, "argument %s: array in a symbolic call", params[i])
			}
			e, err := symbol.Sympify(a)
			if err != nil {
				return nil, errors.Wrapf(err, "argument %s", params[i])
			}
			m[params[i]] = e
		}
		return symbol.Subs(expr, m), nil
	}
}
