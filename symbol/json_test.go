package symbol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/symbol"
)

func TestJSONRoundTrip(t *testing.T) {
	tests := []string{
		"x + y + cos(x + y)",
		"(x + y - 1)^2",
		"atan2(y, x)/3",
		"1.25*x + pi",
		"exp(-x)*E",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			e := symbol.MustParse(src)
			text, err := symbol.ToJSON(e)
			require.NoError(t, err)
			back, err := symbol.Unmarshal([]byte(text))
			require.NoError(t, err)
			assert.True(t, e.Equal(back), "got %s", back)
		})
	}
}

func TestMapRoundTrip(t *testing.T) {
	for _, src := range []string{
		"x + 1",
		"2*x*y",
		"atan2(y, sin(x + 1))",
		"(x + y - 1)^2/3",
	} {
		t.Run(src, func(t *testing.T) {
			e := symbol.MustParse(src)
			back, err := symbol.FromJSON(symbol.ToMap(e))
			require.NoError(t, err)
			assert.True(t, e.Equal(back), "got %s", back)
		})
	}
}

func TestJSONFloatDigits(t *testing.T) {
	e := symbol.Evalf(symbol.Pi, 30)
	text, err := symbol.ToJSON(e)
	require.NoError(t, err)
	back, err := symbol.Unmarshal([]byte(text))
	require.NoError(t, err)
	f, ok := back.(*symbol.Float)
	require.True(t, ok)
	assert.Equal(t, 30, f.Digits())
	assert.Equal(t, "3.14159265358979323846264338328", f.String())
}

func TestDecode(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"type":"add","terms":[{"type":"sym","name":"x"},{"type":"num","value":"2"}]}`), &raw))
	e, err := symbol.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "x + 2", e.String())

	e, err = symbol.Decode("sin(x)^2")
	require.NoError(t, err)
	assert.Equal(t, "sin(x)^2", e.String())
}

func TestFromJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil", nil},
		{"no type", map[string]any{"name": "x"}},
		{"unknown type", map[string]any{"type": "bigo"}},
		{"bad num", map[string]any{"type": "num", "value": "abc"}},
		{"bad const", map[string]any{"type": "const", "name": "tau"}},
		{"bad arity", map[string]any{"type": "func", "name": "sin", "args": []any{}}},
		{"bad term", map[string]any{"type": "add", "terms": []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := symbol.FromJSON(tt.data)
			assert.Error(t, err)
		})
	}
}
