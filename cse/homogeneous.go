package cse

import (
	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol"
)

// Homogeneous runs symbol.CSE over value and returns the reduced value with
// the type of value:
//
//   - symbol.Expr: the reduced expression
//   - string: parsed, reduced and rendered back to a string
//   - symbol.List, symbol.Tuple, symbol.Set and []symbol.Expr: the reduced
//     elements in the same container type
//   - *symbol.Dict: a new Dict with the same keys, in insertion order
//
// Container elements are converted with symbol.Sympify. Numbers and values
// of other types are returned unchanged with no replacements.
func Homogeneous(value any, alloc *symbol.Allocator) ([]symbol.Replacement, any, error) {
	switch v := value.(type) {
	case symbol.Expr:
		repl, reduced := symbol.CSE([]symbol.Expr{v}, alloc)
		return repl, reduced[0], nil
	case string:
		e, err := symbol.Parse(v)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "cse of %q", v)
		}
		repl, reduced := symbol.CSE([]symbol.Expr{e}, alloc)
		return repl, reduced[0].String(), nil
	case []symbol.Expr:
		repl, reduced := symbol.CSE(v, alloc)
		return repl, reduced, nil
	case symbol.List:
		repl, reduced, err := sequence(v, alloc)
		if err != nil {
			return nil, nil, err
		}
		return repl, symbol.List(reduced), nil
	case symbol.Tuple:
		repl, reduced, err := sequence(v, alloc)
		if err != nil {
			return nil, nil, err
		}
		return repl, symbol.Tuple(reduced), nil
	case symbol.Set:
		repl, reduced, err := sequence(v, alloc)
		if err != nil {
			return nil, nil, err
		}
		return repl, symbol.Set(reduced), nil
	case *symbol.Dict:
		keys := v.Keys()
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i], _ = v.Load(k)
		}
		repl, reduced, err := sequence(values, alloc)
		if err != nil {
			return nil, nil, err
		}
		out := symbol.NewDict()
		for i, k := range keys {
			out.Store(k, reduced[i])
		}
		return repl, out, nil
	}
	return nil, value, nil
}

func sequence(values []any, alloc *symbol.Allocator) ([]symbol.Replacement, []any, error) {
	exprs := make([]symbol.Expr, len(values))
	for i, v := range values {
		e, err := symbol.Sympify(v)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "element %d", i)
		}
		exprs[i] = e
	}
	repl, reduced := symbol.CSE(exprs, alloc)
	out := make([]any, len(reduced))
	for i, e := range reduced {
		out[i] = e
	}
	return repl, out, nil
}
