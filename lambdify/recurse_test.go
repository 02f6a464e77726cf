package lambdify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/symbol"
)

func TestEvalf(t *testing.T) {
	x := symbol.S("x")
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"constant", symbol.Pi, "3.141592654"},
		{"symbol", x, "x"},
		{"nested containers", symbol.List{symbol.Pi, symbol.Tuple{symbol.E, x}}, "[3.141592654, (2.718281828, x)]"},
		{"expression", symbol.MustParse("pi*x + 1/3"), "3.141592654*x + 0.3333333333"},
		{"opaque", "text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fmt.Sprint(Evalf(tt.in, 10)))
		})
	}

	assert.IsType(t, symbol.Tuple{}, Evalf(symbol.Tuple{x}, 10))
	assert.IsType(t, symbol.Set{}, Evalf(symbol.NewSet(x), 10))
}

func TestSubs(t *testing.T) {
	x, y := symbol.S("x"), symbol.S("y")
	tests := []struct {
		name    string
		in      any
		mapping map[string]any
		want    string
	}{
		{"expression", symbol.MustParse("x + y"), map[string]any{"x": 2}, "y + 2"},
		{"list", symbol.List{x, y}, map[string]any{"x": y}, "[y, y]"},
		{"set merges", symbol.NewSet(x, y), map[string]any{"x": y}, "{y}"},
		{"tuple of numbers", symbol.Tuple{1, x}, map[string]any{"x": 0.5}, "(1, 0.5)"},
		{"expression value", symbol.MustParse("x^2"), map[string]any{"x": "y + 1"}, "(y + 1)^2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Subs(tt.in, tt.mapping)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fmt.Sprint(got))
		})
	}

	_, err := Subs(struct{}{}, map[string]any{"x": 1})
	assert.Error(t, err)
	_, err = Subs(symbol.List{x, struct{}{}}, nil)
	assert.ErrorContains(t, err, "element 1")
	_, err = Subs(x, map[string]any{"x": struct{}{}})
	assert.ErrorContains(t, err, "substitution for x")
}

func TestTimeCost(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"x", 1},
		{"x + y", 2},
		{"x + y + cos(x + y)", 6},
		// Without shared subexpressions each target counts as one
		// definition, so unshared forms still compare by size and Simplify
		// can prefer the factored one.
		{"x*y + x*z", 4},
		{"x*(y + z)", 3},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeCost(symbol.MustParse(tt.expr)))
		})
	}
}

func TestSimplify(t *testing.T) {
	for _, src := range []string{
		"x + y + cos(x + y)",
		"x^2 + 2*x + 1",
		"sin(x)^2 + sin(x)",
	} {
		t.Run(src, func(t *testing.T) {
			e := symbol.MustParse(src)
			once := Simplify(e).(symbol.Expr)
			assert.LessOrEqual(t, TimeCost(once), TimeCost(e))
			assert.Equal(t, once.String(), Simplify(once).(symbol.Expr).String())
		})
	}

	got := Simplify(symbol.List{symbol.MustParse("x + y"), "opaque"})
	assert.Equal(t, "[x + y, opaque]", fmt.Sprint(got))
	assert.Equal(t, 3, Simplify(3))
}
