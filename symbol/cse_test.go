package symbol_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/njchilds90/golambdify/symbol"
)

func parseAll(t *testing.T, srcs ...string) []symbol.Expr {
	t.Helper()
	out := make([]symbol.Expr, len(srcs))
	for i, s := range srcs {
		e, err := symbol.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		out[i] = e
	}
	return out
}

func strs[T any](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = any(v).(interface{ String() string }).String()
	}
	return out
}

func TestCSE(t *testing.T) {
	exprs := parseAll(t,
		"(x + y - 1)^2",
		"x",
		"x + y",
		"(x + y)/(2*x + 1) + (x + y - 1)^2",
		"(2*x + 1)^(x + y)",
	)
	repl, reduced := symbol.CSE(exprs, nil)
	wantRepl := []string{
		"(x0, x + y)",
		"(x1, (x0 - 1)^2)",
		"(x2, 2*x + 1)",
	}
	if diff := cmp.Diff(wantRepl, strs(repl)); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
	wantReduced := []string{"x1", "x", "x0", "x0/x2 + x1", "x2^x0"}
	if diff := cmp.Diff(wantReduced, strs(reduced)); diff != "" {
		t.Errorf("reduced mismatch (-want +got):\n%s", diff)
	}
}

func TestCSENothingShared(t *testing.T) {
	exprs := parseAll(t, "x + y", "sin(x)")
	repl, reduced := symbol.CSE(exprs, nil)
	assert.Empty(t, repl)
	assert.Equal(t, []string{"x + y", "sin(x)"}, strs(reduced))
}

func TestCSESkipsFreeSymbols(t *testing.T) {
	exprs := parseAll(t, "sin(x0 + y)", "cos(x0 + y)")
	repl, reduced := symbol.CSE(exprs, nil)
	assert.Equal(t, []string{"(x1, x0 + y)"}, strs(repl))
	assert.Equal(t, []string{"sin(x1)", "cos(x1)"}, strs(reduced))
}

func TestAllocator(t *testing.T) {
	a := symbol.NewAllocator("_", "_1")
	var got []string
	for range 3 {
		got = append(got, a.Next().Name())
	}
	assert.Equal(t, []string{"_0", "_2", "_3"}, got)

	b := symbol.NewAllocator("_", "_1")
	assert.Equal(t, "_0", b.Next().Name())
}
