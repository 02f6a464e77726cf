package symbol

import (
	"fmt"
	"strings"
)

// ============================================================
// Symbol allocation
// ============================================================

// Allocator hands out numbered symbols prefix0, prefix1, ... skipping the
// excluded names. Two allocators built with the same arguments produce the
// same stream.
type Allocator struct {
	prefix  string
	next    int
	exclude map[string]struct{}
}

// NewAllocator returns an allocator of symbols named prefix followed by a number.
func NewAllocator(prefix string, exclude ...string) *Allocator {
	a := &Allocator{prefix: prefix, exclude: map[string]struct{}{}}
	a.Exclude(exclude...)
	return a
}

// Exclude prevents the allocator from returning the given names.
func (a *Allocator) Exclude(names ...string) {
	for _, n := range names {
		a.exclude[n] = struct{}{}
	}
}

// Next returns the next free symbol.
func (a *Allocator) Next() *Sym {
	for {
		name := fmt.Sprintf("%s%d", a.prefix, a.next)
		a.next++
		if _, used := a.exclude[name]; !used {
			a.exclude[name] = struct{}{}
			return S(name)
		}
	}
}

// ============================================================
// Common subexpression elimination
// ============================================================

// Replacement binds a symbol to the expression it stands for. A nil Expr
// marks the symbol as released: it is not referenced afterwards.
type Replacement struct {
	Sym  *Sym
	Expr Expr
}

// IsRelease reports whether r is a release marker.
func (r Replacement) IsRelease() bool { return r.Expr == nil }

func (r Replacement) String() string {
	if r.Expr == nil {
		return fmt.Sprintf("(%s, nil)", r.Sym)
	}
	return fmt.Sprintf("(%s, %s)", r.Sym, r.Expr)
}

// CSE extracts the sub-expressions occurring more than once in exprs. It
// returns the definitions, in evaluation order, and the expressions
// rewritten in terms of the defined symbols. A nil allocator numbers the
// symbols x0, x1, ... avoiding the free symbols of exprs.
func CSE(exprs []Expr, alloc *Allocator) ([]Replacement, []Expr) {
	if alloc == nil {
		alloc = NewAllocator("x")
		for _, e := range exprs {
			for n := range FreeSymbols(e) {
				alloc.Exclude(n)
			}
		}
	}
	c := &cseState{keys: map[Expr]string{}}
	rewritten := c.matchCommonArgs(exprs)

	seen := map[string]bool{}
	repeated := map[string]bool{}
	var find func(e Expr)
	find = func(e Expr) {
		if IsAtom(e) {
			return
		}
		k := c.key(e)
		if seen[k] {
			repeated[k] = true
			return
		}
		seen[k] = true
		for _, a := range e.Args() {
			find(a)
		}
	}
	for _, e := range rewritten {
		find(e)
	}

	var repl []Replacement
	memo := map[string]Expr{}
	var rebuild func(e Expr) Expr
	rebuild = func(e Expr) Expr {
		if IsAtom(e) {
			return e
		}
		k := c.key(e)
		if v, ok := memo[k]; ok {
			return v
		}
		args := e.Args()
		newArgs := make([]Expr, len(args))
		for i, a := range args {
			newArgs[i] = rebuild(a)
		}
		v := Rebuild(e, newArgs)
		if repeated[k] && !IsAtom(v) {
			sym := alloc.Next()
			repl = append(repl, Replacement{Sym: sym, Expr: v})
			v = sym
		}
		memo[k] = v
		return v
	}
	reduced := make([]Expr, len(rewritten))
	for i, e := range rewritten {
		reduced[i] = rebuild(e)
	}
	return repl, reduced
}

type cseState struct {
	keys map[Expr]string
}

// key identifies the structure of e, including nesting that the canonical
// rendering would flatten.
func (c *cseState) key(e Expr) string {
	if k, ok := c.keys[e]; ok {
		return k
	}
	var k string
	if IsAtom(e) {
		k = e.exprType() + ":" + e.String()
	} else {
		parts := make([]string, len(e.Args()))
		for i, a := range e.Args() {
			parts[i] = c.key(a)
		}
		name := e.exprType()
		if f, ok := e.(*Func); ok {
			name = f.name
		}
		k = name + "(" + strings.Join(parts, ",") + ")"
	}
	c.keys[e] = k
	return k
}

// matchCommonArgs rewrites sums and products sharing two or more operands
// so that the shared part becomes a sub-expression of its own: with x+y
// and x+y-1 present, the latter is rewritten as (x+y)+(-1).
func (c *cseState) matchCommonArgs(exprs []Expr) []Expr {
	type node struct {
		e    Expr
		args map[string]Expr
		keys []string
	}
	nodes := map[string][]*node{"add": nil, "mul": nil}
	collected := map[string]bool{}
	var collect func(e Expr)
	collect = func(e Expr) {
		if IsAtom(e) {
			return
		}
		for _, a := range e.Args() {
			collect(a)
		}
		kind := e.exprType()
		if kind != "add" && kind != "mul" {
			return
		}
		k := c.key(e)
		if collected[k] {
			return
		}
		collected[k] = true
		n := &node{e: e, args: map[string]Expr{}}
		for _, a := range e.Args() {
			ak := c.key(a)
			n.args[ak] = a
			n.keys = append(n.keys, ak)
		}
		nodes[kind] = append(nodes[kind], n)
	}
	for _, e := range exprs {
		collect(e)
	}

	subset := map[string][]string{}
	for _, list := range nodes {
		// Candidate shared parts: every node and every pairwise intersection.
		var candidates [][]string
		for i, a := range list {
			candidates = append(candidates, a.keys)
			for _, b := range list[i+1:] {
				var common []string
				for _, k := range a.keys {
					if _, ok := b.args[k]; ok {
						common = append(common, k)
					}
				}
				if len(common) >= 2 {
					candidates = append(candidates, common)
				}
			}
		}
		contains := func(n *node, cand []string) bool {
			for _, k := range cand {
				if _, ok := n.args[k]; !ok {
					return false
				}
			}
			return true
		}
		for _, n := range list {
			var best []string
			bestKey := ""
			for _, cand := range candidates {
				if len(cand) < 2 || len(cand) >= len(n.keys) || !contains(n, cand) {
					continue
				}
				uses := 0
				for _, other := range list {
					if contains(other, cand) {
						uses++
					}
				}
				if uses < 2 {
					continue
				}
				ck := strings.Join(cand, ",")
				if len(cand) > len(best) || (len(cand) == len(best) && ck < bestKey) {
					best, bestKey = cand, ck
				}
			}
			if best != nil {
				subset[c.key(n.e)] = best
			}
		}
	}
	if len(subset) == 0 {
		return exprs
	}

	memo := map[string]Expr{}
	var rewrite func(e Expr) Expr
	rewrite = func(e Expr) Expr {
		if IsAtom(e) {
			return e
		}
		k := c.key(e)
		if v, ok := memo[k]; ok {
			return v
		}
		args := e.Args()
		newArgs := make([]Expr, len(args))
		for i, a := range args {
			newArgs[i] = rewrite(a)
		}
		var v Expr
		if common, ok := subset[k]; ok {
			v = splitNode(e, args, newArgs, common, c, rewrite)
		} else {
			v = rawNode(e, newArgs)
		}
		memo[k] = v
		return v
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = rewrite(e)
	}
	return out
}

// splitNode builds op(op(common...), rest...) without flattening.
func splitNode(e Expr, args, newArgs []Expr, common []string, c *cseState, rewrite func(Expr) Expr) Expr {
	inCommon := map[string]bool{}
	for _, k := range common {
		inCommon[k] = true
	}
	var shared []Expr
	rest := []Expr{nil}
	for i, a := range args {
		if inCommon[c.key(a)] {
			shared = append(shared, a)
		} else {
			rest = append(rest, newArgs[i])
		}
	}
	var inner Expr
	if e.exprType() == "add" {
		inner = AddOf(shared...)
	} else {
		inner = MulOf(shared...)
	}
	rest[0] = rewrite(inner)
	return rawNode(e, rest)
}

// rawNode rebuilds a sum or product keeping its operands as given.
func rawNode(e Expr, args []Expr) Expr {
	switch v := e.(type) {
	case *Add:
		return &Add{terms: args}
	case *Mul:
		return &Mul{factors: args}
	case *Pow:
		return &Pow{base: args[0], exp: args[1]}
	case *Func:
		return &Func{name: v.name, args: args}
	}
	return e
}
