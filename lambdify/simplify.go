package lambdify

import (
	"github.com/njchilds90/golambdify/cse"
	"github.com/njchilds90/golambdify/symbol"
)

// maxSimplifyPasses bounds the factor-then-simplify loop of Simplify.
const maxSimplifyPasses = 2

// TimeCost estimates the cost of evaluating e: the operation count of every
// definition after common subexpression elimination plus the number of
// entries, release markers included. Shared subexpressions count once.
func TimeCost(e symbol.Expr) int {
	repl, reduced := symbol.CSE([]symbol.Expr{e}, nil)
	defs, targets := cse.MinimizeMemory(repl, reduced, nil)
	if len(repl) == 0 {
		cost := 0
		for _, t := range targets {
			cost += symbol.CountOps(t) + 1
		}
		return cost
	}
	cost := len(defs)
	for _, d := range defs {
		if !d.IsRelease() {
			cost += symbol.CountOps(d.Expr)
		}
	}
	return cost
}

// Simplify rewrites v into the equivalent form cheapest to evaluate, as
// measured by TimeCost. Each pass factors deeply, favoring products over
// sums, then simplifies; the loop stops once a pass leaves the text
// unchanged. Containers are simplified element by element and other values
// are returned unchanged.
func Simplify(v any) any {
	switch k := classify(v); k {
	case node:
		return simplify(v.(symbol.Expr))
	case list, tuple, set:
		items := elements(v)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Simplify(item)
		}
		return rebuild(k, out)
	}
	return v
}

func simplify(e symbol.Expr) symbol.Expr {
	opts := symbol.SimplifyOptions{Measure: TimeCost, Inverse: true}
	for range maxSimplifyPasses {
		next := symbol.Simplify(symbol.Factor(e, symbol.FactorOptions{Deep: true}), opts)
		if next.String() == e.String() {
			break
		}
		e = next
	}
	return e
}
