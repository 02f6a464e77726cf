package lambdify

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/symbol"
)

func TestHandleToolCall(t *testing.T) {
	tests := []struct {
		name   string
		req    ToolRequest
		result any
		str    string
		errMsg string
	}{
		{
			name: "call scalar",
			req: ToolRequest{Tool: "lambdify_call", Params: map[string]any{
				"vars": []any{"x", "y"}, "expr": "x*y + 1", "args": []any{2.0, 3.0},
			}},
			result: 7.0,
			str:    "7",
		},
		{
			name: "call array",
			req: ToolRequest{Tool: "lambdify_call", Params: map[string]any{
				"vars": []any{"x"}, "expr": "x^2", "args": []any{[]any{1.0, 2.0, 3.0}},
			}},
			result: []any{1.0, 4.0, 9.0},
			str:    "[1 4 9]",
		},
		{
			name: "call named symbolic",
			req: ToolRequest{Tool: "lambdify_call", Params: map[string]any{
				"vars": []any{"x", "y"}, "expr": "x + y", "named": map[string]any{"y": "z"},
			}},
			str: "x + z",
		},
		{
			name: "simplify",
			req:  ToolRequest{Tool: "simplify", Params: map[string]any{"expr": "x + y"}},
			str:  "x + y",
		},
		{
			name: "evalf",
			req:  ToolRequest{Tool: "evalf", Params: map[string]any{"expr": "pi*x", "digits": 5.0}},
			str:  "3.1416*x",
		},
		{
			name: "cse without release",
			req: ToolRequest{Tool: "cse", Params: map[string]any{
				"exprs": []any{"sin(x + y) + cos(x + y)"}, "minimize_memory": false,
			}},
			result: map[string]any{
				"replacements": []any{[]any{"x0", "x + y"}},
				"reduced":      []any{"cos(x0) + sin(x0)"},
			},
		},
		{
			name: "cse of a string with release",
			req: ToolRequest{Tool: "cse", Params: map[string]any{
				"exprs": "sin(x + y) + sin(x + y)^2",
			}},
			result: map[string]any{
				"replacements": []any{
					[]any{"x0", "sin(x + y)"},
					[]any{"_0", "x0^2 + x0"},
					[]any{"x0", nil},
				},
				"reduced": "_0",
			},
		},
		{
			name: "cse of named expressions",
			req: ToolRequest{Tool: "cse", Params: map[string]any{
				"exprs": map[string]any{"b": "exp(x*y)", "a": "2*x*y"}, "minimize_memory": false,
			}},
			result: map[string]any{
				"replacements": []any{[]any{"x0", "x*y"}},
				"reduced":      map[string]any{"a": "2*x0", "b": "exp(x0)"},
			},
		},
		{
			name:   "cse of a number",
			req:    ToolRequest{Tool: "cse", Params: map[string]any{"exprs": 3.0}},
			errMsg: "param exprs: cannot reduce float64",
		},
		{
			name:   "unknown tool",
			req:    ToolRequest{Tool: "nope"},
			errMsg: "unknown tool: nope",
		},
		{
			name:   "missing expr",
			req:    ToolRequest{Tool: "simplify", Params: map[string]any{}},
			errMsg: "missing param: expr",
		},
		{
			name:   "bad digits",
			req:    ToolRequest{Tool: "evalf", Params: map[string]any{"expr": "x", "digits": 0.0}},
			errMsg: "digits must be positive, got 0",
		},
		{
			name: "too many arguments",
			req: ToolRequest{Tool: "lambdify_call", Params: map[string]any{
				"vars": []any{"x"}, "expr": "x", "args": []any{1.0, 2.0},
			}},
			errMsg: "the function cannot take 2 arguments, it has 1 variables",
		},
		{
			name: "bad array",
			req: ToolRequest{Tool: "lambdify_call", Params: map[string]any{
				"vars": []any{"x"}, "expr": "x", "args": []any{[]any{1.0, "a"}},
			}},
			errMsg: "param args[0]: element 1 of type string is not a number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleToolCall(tt.req)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, resp.Error)
				return
			}
			require.Empty(t, resp.Error)
			if tt.str != "" {
				assert.Equal(t, tt.str, resp.String)
			}
			if tt.result != nil {
				if diff := cmp.Diff(tt.result, resp.Result); diff != "" {
					t.Errorf("result mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestToolCallBackend(t *testing.T) {
	resp := HandleToolCall(ToolRequest{Tool: "lambdify_call", Params: map[string]any{
		"vars": []any{"x"}, "expr": "2*x", "args": []any{1.5},
	}})
	require.Empty(t, resp.Error)
	assert.Equal(t, "float64", resp.Backend)

	resp = HandleToolCall(ToolRequest{Tool: "lambdify_call", Params: map[string]any{
		"vars": []any{"x"}, "expr": "x^3",
	}})
	require.Empty(t, resp.Error)
	assert.Equal(t, "symbolic", resp.Backend)
	assert.Equal(t, "x^3", resp.String)
}

func TestToolCompileAndRender(t *testing.T) {
	var compiled []string
	tools := Tools{Compile: func(vars []string, e symbol.Expr) (*Lambdify, error) {
		compiled = append(compiled, e.String())
		return New(vars, e, WithWorkers(2))
	}}

	resp := tools.Handle(ToolRequest{Tool: "lambdify_compile", Params: map[string]any{
		"vars": []any{"x"}, "expr": symbol.ToMap(symbol.MustParse("x^2 + 1")),
	}})
	require.Empty(t, resp.Error)
	assert.Equal(t, "Lambdify([x], x^2 + 1.0)", resp.String)
	result := resp.Result.(map[string]any)
	assert.Equal(t, []string{"x"}, result["variables"])
	assert.Equal(t, []string{"symbolic", "float64", "float128", "fast-large-array"}, result["backends"])

	resp = tools.Handle(ToolRequest{Tool: "lambdify_render", Params: map[string]any{
		"vars": []any{"x"}, "expr": "x^2 + 1", "name": "square",
	}})
	require.Empty(t, resp.Error)
	assert.Contains(t, resp.String, "func square(args []any, named map[string]any) (any, error) {")
	assert.Equal(t, []string{"x^2 + 1", "x^2 + 1"}, compiled)

	resp = tools.Handle(ToolRequest{Tool: "lambdify_render", Params: map[string]any{
		"vars": []any{"x"}, "expr": "x", "name": "1bad",
	}})
	assert.NotEmpty(t, resp.Error)
}

func TestToolSpec(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(ToolSpec()), &spec))
	var names []string
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"lambdify_compile", "lambdify_call", "lambdify_render", "cse", "simplify", "evalf", "tool_spec"}, names)

	resp := HandleToolCall(ToolRequest{Tool: "tool_spec"})
	require.Empty(t, resp.Error)
	_, ok := resp.Result.(json.RawMessage)
	assert.True(t, ok)
}
