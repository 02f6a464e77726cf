package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njchilds90/golambdify/symbol"
)

var (
	x = symbol.S("x")
	y = symbol.S("y")
)

// ============================================================
// Canonical construction
// ============================================================

func TestCanonicalString(t *testing.T) {
	tests := []struct {
		name string
		expr symbol.Expr
		want string
	}{
		{"integer", symbol.N(42), "42"},
		{"rational", symbol.F(1, 3), "1/3"},
		{"negative rational", symbol.F(-1, 2), "-1/2"},
		{"sum sorted", symbol.AddOf(y, x), "x + y"},
		{"like terms", symbol.AddOf(x, x), "2*x"},
		{"numbers last", symbol.AddOf(symbol.N(1), symbol.MulOf(symbol.N(2), x)), "2*x + 1"},
		{"difference", symbol.AddOf(x, symbol.MulOf(symbol.N(-1), y)), "x - y"},
		{"cancellation", symbol.AddOf(x, symbol.MulOf(symbol.N(-1), x)), "0"},
		{"like bases", symbol.MulOf(x, x), "x^2"},
		{"distribute number", symbol.MulOf(symbol.N(2), symbol.AddOf(x, symbol.N(1))), "2*x + 2"},
		{"quotient", symbol.MulOf(x, symbol.PowOf(y, symbol.N(-1))), "x/y"},
		{"reciprocal", symbol.PowOf(x, symbol.N(-1)), "1/x"},
		{"reciprocal square", symbol.PowOf(x, symbol.N(-2)), "1/x^2"},
		{"perfect root", symbol.PowOf(symbol.N(4), symbol.F(1, 2)), "2"},
		{"sqrt", symbol.SqrtOf(symbol.N(2)), "sqrt(2)"},
		{"nested power", symbol.PowOf(symbol.PowOf(x, symbol.N(2)), symbol.N(3)), "x^6"},
		{"power of sum", symbol.PowOf(symbol.AddOf(x, y, symbol.N(-1)), symbol.N(2)), "(x + y - 1)^2"},
		{"odd function", symbol.SinOf(symbol.MulOf(symbol.N(-1), x)), "-sin(x)"},
		{"even function", symbol.CosOf(symbol.MulOf(symbol.N(-1), x)), "cos(x)"},
		{"log of exp", symbol.LogOf(symbol.ExpOf(x)), "x"},
		{"E power", symbol.PowOf(symbol.E, x), "exp(x)"},
		{"cos pi", symbol.CosOf(symbol.Pi), "-1"},
		{"functions after symbols", symbol.AddOf(symbol.CosOf(x), y, x), "x + y + cos(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}

func TestEqualIgnoresConstructionOrder(t *testing.T) {
	a := symbol.AddOf(symbol.MulOf(x, y), symbol.SinOf(x), symbol.N(3))
	b := symbol.AddOf(symbol.N(3), symbol.SinOf(x), symbol.MulOf(y, x))
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}

func TestFloatArithmetic(t *testing.T) {
	sum := symbol.AddOf(symbol.FloatOf(0.5), symbol.N(1))
	f, ok := sum.(*symbol.Float)
	if !ok {
		t.Fatalf("want *symbol.Float, got %T", sum)
	}
	assert.Equal(t, "1.5", f.String())
	assert.Equal(t, 15, f.Digits())

	c := symbol.CosOf(symbol.FloatOf(0))
	assert.Equal(t, "1.0", c.String())
}

// ============================================================
// Free symbols, op counting, substitution
// ============================================================

func TestFreeSymbols(t *testing.T) {
	e := symbol.AddOf(symbol.MulOf(x, symbol.Pi), symbol.CosOf(y))
	assert.Equal(t, []string{"x", "y"}, symbol.SortedSymbols(e))
	assert.True(t, symbol.Has(e, "y"))
	assert.False(t, symbol.Has(e, "pi"))
}

func TestCountOps(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"x", 0},
		{"x + y", 1},
		{"x - y", 1},
		{"2*x + 1", 2},
		{"x/y", 1},
		{"sin(x)", 1},
		{"x^2 + 2*x + 1", 4},
		{"(x + 1)^2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, symbol.CountOps(symbol.MustParse(tt.src)))
		})
	}
}

func TestSubs(t *testing.T) {
	e := symbol.MustParse("x^2 + y")
	assert.Equal(t, "y + 9", symbol.Sub(e, "x", symbol.N(3)).String())

	swapped := symbol.Subs(symbol.MustParse("x - y"), map[string]symbol.Expr{"x": y, "y": x})
	assert.Equal(t, "-x + y", swapped.String())
}

func TestEvalf(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		digits int
		want   string
	}{
		{"pi 15", "pi", 15, "3.14159265358979"},
		{"pi 30", "pi", 30, "3.14159265358979323846264338328"},
		{"keeps exponents", "x^2", 15, "x^2"},
		{"keeps negation", "-x", 15, "-x"},
		{"integer", "x + 1", 15, "x + 1.0"},
		{"constant factor", "pi*cos(x + y) + x + y", 30, "x + y + 3.14159265358979323846264338328*cos(x + y)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, symbol.Evalf(symbol.MustParse(tt.src), tt.digits).String())
		})
	}
}

func TestBigFloat(t *testing.T) {
	v, err := symbol.BigFloat(symbol.MustParse("sin(pi/6) + log(E)"), 64)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := v.Float64()
	assert.InDelta(t, 1.5, f, 1e-15)

	_, err = symbol.BigFloat(x, 64)
	assert.Error(t, err)
}

func TestSympify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{3, "3"},
		{uint8(7), "7"},
		{2.5, "2.5"},
		{"x*y", "x*y"},
	}
	for _, tt := range tests {
		e, err := symbol.Sympify(tt.in)
		if err != nil {
			t.Fatalf("Sympify(%v): %v", tt.in, err)
		}
		assert.Equal(t, tt.want, e.String())
	}
	_, err := symbol.Sympify([]float64{1})
	assert.Error(t, err)
}

func TestContainers(t *testing.T) {
	s := symbol.NewSet(x, y, symbol.S("x"))
	assert.Len(t, s, 2)
	assert.Equal(t, "{x, y}", s.String())

	d := symbol.NewDict()
	d.Store("b", x)
	d.Store("a", y)
	d.Store("b", symbol.N(1))
	assert.Equal(t, []any{"b", "a"}, d.Keys())
	assert.Equal(t, "{b: 1, a: y}", d.String())
}
