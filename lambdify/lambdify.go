// Package lambdify compiles a symbolic expression into a callable that can
// be evaluated symbolically or numerically. Each call picks the cheapest
// numeric backend for the shapes and precisions of its arguments.
//
//	l, err := lambdify.New([]string{"x", "y"}, symbol.MustParse("pi*cos(x + y) + x + y"))
//	l.Call()                  // the stored expression
//	l.Call(symbol.S("y"))     // 2*y + 3.14159265358979323846264338328*cos(2*y)
//	l.Call([]float64{0, 1}, 2) // float64 backend
package lambdify

import (
	"go/token"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/njchilds90/golambdify/codegen"
	"github.com/njchilds90/golambdify/symbol"
)

const (
	// StoredDigits is the precision of the constants of the stored
	// expression.
	StoredDigits = 30
	// FastDigits is the precision of the constants given to the optional
	// backends.
	FastDigits = 15
)

// Lambdify is a compiled expression. It is immutable and safe for
// concurrent calls.
type Lambdify struct {
	vars    []string
	expr    symbol.Expr
	funcs   map[codegen.Backend]*codegen.Function
	missing error
	opts    options
}

type options struct {
	logger   *slog.Logger
	simplify bool
	disabled map[codegen.Backend]bool
	workers  int
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger reporting compilation. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithoutSimplify stores the expression as given, skipping simplification
// and constant evaluation.
func WithoutSimplify() Option {
	return func(o *options) { o.simplify = false }
}

// WithoutBackend disables an optional backend.
func WithoutBackend(b codegen.Backend) Option {
	return func(o *options) { o.disabled[b] = true }
}

// WithWorkers sets the number of workers of the fast-large-array backend.
// The backend is unavailable with fewer than two.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// New compiles expr as a function of vars. Unless WithoutSimplify is given,
// the expression is first rewritten by Simplify and its constants evaluated
// by Evalf to StoredDigits digits. A bare number is stored as given.
//
// The symbolic and float64 backends are required. The float128 and
// fast-large-array backends are optional: when they cannot be built, calls
// skip them and Unavailable reports why.
func New(vars []string, expr symbol.Expr, opts ...Option) (*Lambdify, error) {
	o := options{logger: slog.Default(), simplify: true, disabled: map[codegen.Backend]bool{}}
	for _, opt := range opts {
		opt(&o)
	}
	seen := map[string]bool{}
	for _, v := range vars {
		if !token.IsIdentifier(v) {
			return nil, errors.Errorf("variable name %q is not an identifier", v)
		}
		if seen[v] {
			return nil, errors.Errorf("duplicate variable %s", v)
		}
		seen[v] = true
	}

	if o.simplify {
		expr = Evalf(simplify(expr), StoredDigits).(symbol.Expr)
	}
	l := &Lambdify{
		vars:  slices.Clone(vars),
		expr:  expr,
		funcs: map[codegen.Backend]*codegen.Function{},
		opts:  o,
	}
	var copts []codegen.Option
	if o.workers != 0 {
		copts = append(copts, codegen.WithWorkers(o.workers))
	}

	symbolic, err := codegen.Compile(expr, l.vars, codegen.Symbolic, codegen.WithoutCSE())
	if err != nil {
		return nil, errors.Wrapf(err, "lambdify %s", expr)
	}
	l.funcs[codegen.Symbolic] = symbolic
	float, err := codegen.Compile(expr, l.vars, codegen.Float64, copts...)
	if err != nil {
		return nil, errors.Wrapf(err, "lambdify %s", expr)
	}
	l.funcs[codegen.Float64] = float

	fast := Evalf(expr, FastDigits).(symbol.Expr)
	for _, b := range []codegen.Backend{codegen.Float128, codegen.FastLargeArray} {
		if o.disabled[b] {
			l.missing = multierr.Append(l.missing, errors.Wrapf(codegen.ErrUnavailable, "%s disabled", b))
			continue
		}
		f, err := codegen.Compile(fast, l.vars, b, copts...)
		if err != nil {
			o.logger.Debug("backend unavailable", "backend", b, "expr", expr.String(), "error", err)
			l.missing = multierr.Append(l.missing, err)
			continue
		}
		l.funcs[b] = f
	}
	o.logger.Debug("compiled", "vars", l.vars, "expr", expr.String(), "backends", l.Backends())
	return l, nil
}

// Expr returns the stored expression.
func (l *Lambdify) Expr() symbol.Expr { return l.expr }

// Variables returns the variable names, in argument order.
func (l *Lambdify) Variables() []string { return slices.Clone(l.vars) }

// Backends lists the available backends.
func (l *Lambdify) Backends() []codegen.Backend {
	var out []codegen.Backend
	for _, b := range codegen.Backends {
		if l.funcs[b] != nil {
			out = append(out, b)
		}
	}
	return out
}

// Unavailable returns why optional backends are missing, or nil.
func (l *Lambdify) Unavailable() error { return l.missing }

// Function returns the compiled function of a backend, or nil when the
// backend is unavailable.
func (l *Lambdify) Function(b codegen.Backend) *codegen.Function { return l.funcs[b] }

// String returns the expression that constructs l.
func (l *Lambdify) String() string {
	return "Lambdify([" + strings.Join(l.vars, ", ") + "], " + l.expr.String() + ")"
}

// Call evaluates l with positional arguments. See CallNamed.
func (l *Lambdify) Call(args ...any) (any, error) {
	return l.CallNamed(args, nil)
}

// CallNamed evaluates l.
//
// Without any argument it returns the stored expression. Missing positional
// arguments are filled with the variables themselves, and named arguments
// override positional ones. When any argument is a symbol.Expr the
// variables are substituted by Subs and the result is an expression;
// otherwise the backend chosen by Route evaluates the arguments.
func (l *Lambdify) CallNamed(args []any, named map[string]any) (any, error) {
	if len(args) == 0 && len(named) == 0 {
		return l.expr, nil
	}
	values, err := l.bind(args, named)
	if err != nil {
		return nil, err
	}
	b := route(values, l.funcs)
	if b == codegen.Symbolic {
		mapping := make(map[string]any, len(values))
		for i, v := range values {
			mapping[l.vars[i]] = v
		}
		res, err := Subs(l.expr, mapping)
		if err != nil {
			return nil, errors.Wrapf(err, "%s backend", b)
		}
		return res, nil
	}
	res, err := l.funcs[b].Call(values...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s backend", b)
	}
	return res, nil
}

// Route returns the backend a call with args would use.
func (l *Lambdify) Route(args ...any) (codegen.Backend, error) {
	if len(args) == 0 {
		return codegen.Symbolic, nil
	}
	values, err := l.bind(args, nil)
	if err != nil {
		return 0, err
	}
	return route(values, l.funcs), nil
}

func (l *Lambdify) bind(args []any, named map[string]any) ([]any, error) {
	if len(args) > len(l.vars) {
		return nil, &ArgCountError{Want: len(l.vars), Got: len(args)}
	}
	values := make([]any, len(l.vars))
	copy(values, args)
	for i := len(args); i < len(values); i++ {
		values[i] = symbol.S(l.vars[i])
	}
	for _, name := range slices.Sorted(maps.Keys(named)) {
		i := slices.Index(l.vars, name)
		if i < 0 {
			return nil, &NameError{Name: name, Valid: slices.Clone(l.vars)}
		}
		values[i] = named[name]
	}
	return values, nil
}
