package lambdify

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/codegen"
	"github.com/njchilds90/golambdify/symbol"
)

const piExpr = "x + y + 3.14159265358979323846264338328*cos(x + y)"

func mustNew(t *testing.T, vars []string, src string, opts ...Option) *Lambdify {
	t.Helper()
	l, err := New(vars, symbol.MustParse(src), opts...)
	require.NoError(t, err)
	return l
}

func TestString(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "pi*cos(x + y) + x + y")
	assert.Equal(t, "Lambdify([x, y], "+piExpr+")", l.String())
}

func TestCallSemantics(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "x + y + cos(x + y)")
	x, y := symbol.S("x"), symbol.S("y")

	got, err := l.Call()
	require.NoError(t, err)
	assert.Equal(t, "x + y + cos(x + y)", got.(symbol.Expr).String())

	got, err = l.Call(y)
	require.NoError(t, err)
	assert.Equal(t, "2*y + cos(2*y)", got.(symbol.Expr).String())

	got, err = l.CallNamed([]any{1}, map[string]any{"y": symbol.MulOf(symbol.N(2), y)})
	require.NoError(t, err)
	assert.Equal(t, "2*y + cos(2*y + 1) + 1", got.(symbol.Expr).String())

	got, err = l.Call(x)
	require.NoError(t, err)
	assert.Equal(t, "x + y + cos(x + y)", got.(symbol.Expr).String())

	got, err = l.Call(-1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestContainerOperatorsBackCalls(t *testing.T) {
	// Number atoms keep their exact value in the stored expression.
	c, err := New([]string{"x"}, symbol.N(3))
	require.NoError(t, err)
	assert.Equal(t, "3", c.Expr().String())
	got, err := c.Call(1.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	l := mustNew(t, []string{"x", "y"}, "x + y")
	_, err = l.Call([]float64{1, 2}, symbol.S("z"))
	assert.ErrorContains(t, err, "substitution for x")

	got, err = l.CallNamed(nil, map[string]any{"x": 1, "y": symbol.S("z")})
	require.NoError(t, err)
	assert.Equal(t, "z + 1", got.(symbol.Expr).String())
}

func TestDocExamples(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "pi*cos(x + y) + x + y")

	got, err := l.Call(symbol.S("y"))
	require.NoError(t, err)
	assert.Equal(t, "2*y + 3.14159265358979323846264338328*cos(2*y)", got.(symbol.Expr).String())

	got, err = l.Call(-1, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, got.(float64), 1e-15)
}

func TestDispatch(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "x + y", WithWorkers(4))
	require.Equal(t, codegen.Backends, l.Backends())
	require.NoError(t, l.Unavailable())
	large := make([]float64, LargeArrayThreshold)
	for i := range large {
		large[i] = float64(i)
	}

	tests := []struct {
		name string
		args []any
		want codegen.Backend
	}{
		{"scalars", []any{2, 3}, codegen.Float64},
		{"no arguments", nil, codegen.Symbolic},
		{"partial", []any{symbol.S("x")}, codegen.Symbolic},
		{"missing argument", []any{2.0}, codegen.Symbolic},
		{"large array", []any{large, 1.0}, codegen.FastLargeArray},
		{"small array", []any{large[:10], 1.0}, codegen.Float64},
		{"large float32 array", []any{make([]float32, LargeArrayThreshold), 1.0}, codegen.Float64},
		{"extended array", []any{codegen.NewQuad(1, 2), 3.0}, codegen.Float128},
		{"small extended array", []any{large, codegen.NewQuad(1)}, codegen.Float128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Route(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := l.Call(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	res, err := l.Call(large, 1.0)
	require.NoError(t, err)
	out := res.([]float64)
	require.Len(t, out, LargeArrayThreshold)
	assert.Equal(t, 1.0, out[0])
	assert.Equal(t, float64(LargeArrayThreshold), out[LargeArrayThreshold-1])

	res, err = l.Call(codegen.NewQuad(1, 2), 3.0)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, res.(codegen.Quad).Float64s())
}

func TestDispatchWithoutOptionalBackends(t *testing.T) {
	l := mustNew(t, []string{"x"}, "x^2",
		WithoutBackend(codegen.Float128), WithoutBackend(codegen.FastLargeArray))
	assert.Equal(t, []codegen.Backend{codegen.Symbolic, codegen.Float64}, l.Backends())
	assert.True(t, errors.Is(l.Unavailable(), codegen.ErrUnavailable))

	b, err := l.Route(codegen.NewQuad(3))
	require.NoError(t, err)
	assert.Equal(t, codegen.Float64, b)
	got, err := l.Call(codegen.NewQuad(3))
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, got)

	single := mustNew(t, []string{"x"}, "x^2", WithWorkers(1))
	assert.NotContains(t, single.Backends(), codegen.FastLargeArray)
	assert.True(t, errors.Is(single.Unavailable(), codegen.ErrUnavailable))
}

func TestArgumentErrors(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "x + y")

	_, err := l.Call(1, 2, 3)
	var countErr *ArgCountError
	require.True(t, errors.As(err, &countErr), "got %v", err)
	assert.Equal(t, 2, countErr.Want)
	assert.Equal(t, 3, countErr.Got)
	assert.Contains(t, err.Error(), "3")

	_, err = l.CallNamed([]any{1}, map[string]any{"z": 2})
	var nameErr *NameError
	require.True(t, errors.As(err, &nameErr), "got %v", err)
	assert.Equal(t, "z", nameErr.Name)
	assert.Equal(t, []string{"x", "y"}, nameErr.Valid)
	assert.Contains(t, err.Error(), `"z"`)
	assert.Contains(t, err.Error(), "{x, y}")

	_, err = New([]string{"x", "x"}, symbol.MustParse("x"))
	assert.Error(t, err)
	for _, bad := range []string{"", "a,b", "x y", "1x"} {
		_, err = New([]string{bad}, symbol.N(1))
		assert.Error(t, err, "variable %q", bad)
	}
	_, err = New([]string{"x"}, symbol.MustParse("x + y"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "pi*cos(x + y) + x + y", WithWorkers(4))
	text, err := l.Render("f")
	require.NoError(t, err)
	for _, want := range []string{
		"func _f_fast_large_array(x, y any) any {",
		"\tx0 := x + y\n\t_0 := x0 + 3.141592653589793*math.Cos(x0)\n\tfree(x0)\n\treturn _0\n",
		"func _f_float64(x, y any) any {",
		"func _f_float128(x, y any) any {",
		`_0 := x0 + quad("3.14159265358979")*bigmath.Cos(x0)`,
		"func _f_symbolic(x, y any) any {",
		"\t_0 := " + piExpr + "\n",
		"func f(args []any, named map[string]any) (any, error) {",
		`return "` + piExpr + `", nil`,
		"maxLen(values) >= 157741",
		"return _f_float128(values[0], values[1]), nil",
	} {
		assert.Contains(t, text, want)
	}
	assert.Less(t, indexOf(text, "_f_fast_large_array("), indexOf(text, "_f_float64("))
	assert.Less(t, indexOf(text, "_f_float128("), indexOf(text, "_f_symbolic("))

	def, err := l.Render("")
	require.NoError(t, err)
	assert.Contains(t, def, "func "+DefaultName+"(")

	_, err = l.Render("not a name")
	assert.Error(t, err)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestPersist(t *testing.T) {
	l := mustNew(t, []string{"x"}, "sin(x)^2 + sin(x)")
	path := filepath.Join(t.TempDir(), "f.go.txt")
	require.NoError(t, l.Persist(path, "f"))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := l.Render("f")
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	matches, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStateRoundTrip(t *testing.T) {
	l := mustNew(t, []string{"x", "y"}, "pi*cos(x + y) + x + y")
	data, err := json.Marshal(l)
	require.NoError(t, err)

	var back Lambdify
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l.String(), back.String())
	assert.Equal(t, l.Backends(), back.Backends())

	xs := []float64{-1, 0, 0.5, 2}
	want, err := l.Call(xs, 1.0)
	require.NoError(t, err)
	got, err := back.Call(xs, 1.0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	s := l.State()
	assert.Equal(t, StateVersion, s.Version)
	assert.Equal(t, []string{"x", "y"}, s.Variables)
}

func TestFromStateVersion(t *testing.T) {
	e := symbol.MustParse("x + 1")
	_, err := FromState(State{Version: "v1.4.2", Variables: []string{"x"}, Expression: e})
	assert.NoError(t, err)
	_, err = FromState(State{Version: "v2.0.0", Variables: []string{"x"}, Expression: e})
	assert.Error(t, err)
	_, err = FromState(State{Version: "1.0", Variables: []string{"x"}, Expression: e})
	assert.Error(t, err)
	_, err = FromState(State{Version: StateVersion, Variables: []string{"x"}})
	assert.Error(t, err)

	var s State
	assert.Error(t, json.Unmarshal([]byte(`{"version":"v1.0.0","variables":["x"]}`), &s))
}

func TestFromStateSkipsSimplification(t *testing.T) {
	e := symbol.MustParse("x^2 + 2*x + 1")
	l, err := FromState(State{Version: StateVersion, Variables: []string{"x"}, Expression: e})
	require.NoError(t, err)
	assert.Equal(t, "x^2 + 2*x + 1", l.Expr().String())
}
