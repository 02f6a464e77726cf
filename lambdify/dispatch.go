package lambdify

import (
	"github.com/njchilds90/golambdify/codegen"
	"github.com/njchilds90/golambdify/symbol"
)

// LargeArrayThreshold is the array length from which the fast-large-array
// backend is preferred.
const LargeArrayThreshold = 157741

// argKinds summarizes the arguments of a call.
type argKinds struct {
	symbolic   bool
	quad       bool
	maxLen     int
	allFloat64 bool
}

func inspect(values []any) argKinds {
	k := argKinds{allFloat64: true}
	for _, v := range values {
		switch x := v.(type) {
		case symbol.Expr:
			k.symbolic = true
		case codegen.Quad:
			k.quad = true
			k.allFloat64 = false
			k.maxLen = max(k.maxLen, len(x))
		case []float32:
			k.allFloat64 = false
			k.maxLen = max(k.maxLen, len(x))
		case []float64:
			k.maxLen = max(k.maxLen, len(x))
		}
	}
	return k
}

// dispatchTable is tried in order; the first available backend whose rule
// matches evaluates the call.
var dispatchTable = []struct {
	backend codegen.Backend
	match   func(argKinds) bool
}{
	{codegen.Symbolic, func(k argKinds) bool { return k.symbolic }},
	{codegen.Float128, func(k argKinds) bool { return k.quad }},
	{codegen.FastLargeArray, func(k argKinds) bool { return k.maxLen >= LargeArrayThreshold && k.allFloat64 }},
	{codegen.Float64, func(argKinds) bool { return true }},
}

func route(values []any, funcs map[codegen.Backend]*codegen.Function) codegen.Backend {
	k := inspect(values)
	for _, rule := range dispatchTable {
		if funcs[rule.backend] != nil && rule.match(k) {
			return rule.backend
		}
	}
	return codegen.Float64
}
