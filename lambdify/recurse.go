package lambdify

import (
	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol"
)

// kind is what the container operators know about a value.
type kind int

const (
	opaque kind = iota
	number
	constant
	atom
	node
	list
	tuple
	set
)

func classify(v any) kind {
	switch x := v.(type) {
	case *symbol.Const:
		return constant
	case *symbol.Num, *symbol.Float:
		return number
	case symbol.Expr:
		if symbol.IsAtom(x) {
			return atom
		}
		return node
	case symbol.List:
		return list
	case symbol.Tuple:
		return tuple
	case symbol.Set:
		return set
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return number
	}
	return opaque
}

// elements returns the items of a container value.
func elements(v any) []any {
	switch x := v.(type) {
	case symbol.List:
		return x
	case symbol.Tuple:
		return x
	case symbol.Set:
		return x
	}
	return nil
}

// rebuild returns items in a container of kind k.
func rebuild(k kind, items []any) any {
	switch k {
	case tuple:
		return symbol.Tuple(items)
	case set:
		return symbol.NewSet(items...)
	}
	return symbol.List(items)
}

// Evalf evaluates the numbers of v to digits significant digits. pi and E
// are evaluated directly. Expressions are rebuilt from their evaluated
// arguments, containers keep their type and other values are returned
// unchanged.
func Evalf(v any, digits int) any {
	switch k := classify(v); k {
	case constant:
		return symbol.Evalf(v.(symbol.Expr), digits)
	case node:
		e := v.(symbol.Expr)
		args := e.Args()
		newArgs := make([]symbol.Expr, len(args))
		for i, a := range args {
			newArgs[i] = Evalf(a, digits).(symbol.Expr)
		}
		return symbol.Evalf(symbol.Rebuild(e, newArgs), digits)
	case atom:
		return symbol.Evalf(v.(symbol.Expr), digits)
	case list, tuple, set:
		items := elements(v)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Evalf(item, digits)
		}
		return rebuild(k, out)
	}
	return v
}

// Subs replaces the variables named in mapping. Values are expressions or
// anything symbol.Sympify converts; containers keep their type. Values that
// are neither are an error.
func Subs(v any, mapping map[string]any) (any, error) {
	m := make(map[string]symbol.Expr, len(mapping))
	for name, val := range mapping {
		e, err := symbol.Sympify(val)
		if err != nil {
			return nil, errors.Wrapf(err, "substitution for %s", name)
		}
		m[name] = e
	}
	return subs(v, m)
}

func subs(v any, m map[string]symbol.Expr) (any, error) {
	switch k := classify(v); k {
	case number:
		return symbol.Sympify(v)
	case constant, atom, node:
		return symbol.Subs(v.(symbol.Expr), m), nil
	case list, tuple, set:
		items := elements(v)
		out := make([]any, len(items))
		for i, item := range items {
			r, err := subs(item, m)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = r
		}
		return rebuild(k, out), nil
	}
	return nil, errors.Errorf("cannot substitute into %T", v)
}
