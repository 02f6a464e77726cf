// Package cse orders common subexpression definitions for evaluation with
// the smallest number of live intermediates.
package cse

import (
	"sort"

	"github.com/njchilds90/golambdify/symbol"
)

// PlaceholderPrefix prefixes the symbols naming reduced targets.
const PlaceholderPrefix = "_"

type definition struct {
	sym  *symbol.Sym
	expr symbol.Expr
}

// MinimizeMemory rewrites the output of symbol.CSE so that every
// intermediate is released right after its last use. Each target is bound
// to a placeholder symbol drawn from alloc; targets referencing the most
// expensive definitions are evaluated first, ties keeping their order. The
// result lists definitions in evaluation order, each followed by the release
// markers of the symbols it used last. The second result holds the
// placeholder of each target, in the order of targets.
//
// When repl is empty, repl and targets are returned unchanged. A nil alloc
// uses the "_" prefix and avoids every symbol already in use.
func MinimizeMemory(repl []symbol.Replacement, targets []symbol.Expr, alloc *symbol.Allocator) ([]symbol.Replacement, []symbol.Expr) {
	if len(repl) == 0 {
		return repl, targets
	}
	if alloc == nil {
		alloc = symbol.NewAllocator(PlaceholderPrefix, namesInUse(repl, targets)...)
	}

	inUse := map[string]bool{}
	defs := map[string]symbol.Expr{}
	for _, r := range repl {
		inUse[r.Sym.Name()] = true
		defs[r.Sym.Name()] = r.Expr
	}
	placeholders := make([]symbol.Expr, len(targets))
	ordered := make([]definition, len(targets))
	cost := make([]int, len(targets))
	for i, t := range targets {
		sym := alloc.Next()
		placeholders[i] = sym
		ordered[i] = definition{sym: sym, expr: t}
		for name := range symbol.FreeSymbols(t) {
			if inUse[name] {
				cost[i] += symbol.CountOps(defs[name])
			}
		}
	}
	idx := make([]int, len(targets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cost[idx[a]] > cost[idx[b]] })

	all := make([]definition, 0, len(repl)+len(targets))
	for _, r := range repl {
		all = append(all, definition{sym: r.Sym, expr: r.Expr})
	}
	for _, i := range idx {
		all = append(all, ordered[i])
	}

	out := make([]symbol.Replacement, 0, 2*len(all))
	for i := len(all) - 1; i >= 0; i-- {
		d := all[i]
		var released []string
		for name := range symbol.FreeSymbols(d.expr) {
			if inUse[name] {
				released = append(released, name)
			}
		}
		sort.Strings(released)
		for _, name := range released {
			out = append(out, symbol.Replacement{Sym: symbol.S(name)})
		}
		out = append(out, symbol.Replacement{Sym: d.sym, Expr: d.expr})
		for _, name := range released {
			delete(inUse, name)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, placeholders
}

func namesInUse(repl []symbol.Replacement, targets []symbol.Expr) []string {
	var names []string
	for _, r := range repl {
		names = append(names, r.Sym.Name())
		for n := range symbol.FreeSymbols(r.Expr) {
			names = append(names, n)
		}
	}
	for _, t := range targets {
		for n := range symbol.FreeSymbols(t) {
			names = append(names, n)
		}
	}
	return names
}
