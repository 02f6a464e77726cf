package lambdify

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/cse"
	"github.com/njchilds90/golambdify/symbol"
)

// ============================================================
// Tool Interface
// ============================================================

// ToolRequest is a call of one tool. Expressions are given either as
// their JSON object form or as text.
type ToolRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// ToolResponse is the result of a tool call.
type ToolResponse struct {
	Result  any    `json:"result,omitempty"`
	String  string `json:"string,omitempty"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Tools serves tool calls.
type Tools struct {
	// Compile builds the callables of lambdify_* tools. Defaults to New.
	Compile func(vars []string, expr symbol.Expr) (*Lambdify, error)
}

// HandleToolCall serves req, compiling with New.
func HandleToolCall(req ToolRequest) ToolResponse {
	return Tools{}.Handle(req)
}

// Handle serves req.
func (t Tools) Handle(req ToolRequest) ToolResponse {
	compile := t.Compile
	if compile == nil {
		compile = func(vars []string, expr symbol.Expr) (*Lambdify, error) { return New(vars, expr) }
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	getExpr := func(key string) (symbol.Expr, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, errors.Errorf("missing param: %s", key)
		}
		e, err := symbol.Decode(v)
		return e, errors.Wrapf(err, "param %s", key)
	}
	getString := func(key, def string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return def, nil
		}
		s, ok := v.(string)
		if !ok {
			return "", errors.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getInt := func(key string, def int) (int, error) {
		v, ok := req.Params[key]
		if !ok {
			return def, nil
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return 0, errors.Errorf("param %s must be an integer", key)
		}
		return int(f), nil
	}
	getBool := func(key string, def bool) (bool, error) {
		v, ok := req.Params[key]
		if !ok {
			return def, nil
		}
		b, ok := v.(bool)
		if !ok {
			return false, errors.Errorf("param %s must be a boolean", key)
		}
		return b, nil
	}
	getStrings := func(key string) ([]string, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, errors.Errorf("missing param: %s", key)
		}
		raw, ok := v.([]any)
		if !ok {
			return nil, errors.Errorf("param %s must be array", key)
		}
		result := make([]string, len(raw))
		for i, r := range raw {
			s, ok := r.(string)
			if !ok {
				return nil, errors.Errorf("param %s[%d] must be string", key, i)
			}
			result[i] = s
		}
		return result, nil
	}
	getCallable := func() (*Lambdify, error) {
		vars, err := getStrings("vars")
		if err != nil {
			return nil, err
		}
		e, err := getExpr("expr")
		if err != nil {
			return nil, err
		}
		return compile(vars, e)
	}
	respond := func(e symbol.Expr) ToolResponse {
		return ToolResponse{Result: symbol.ToMap(e), String: e.String()}
	}

	switch req.Tool {
	case "lambdify_compile":
		l, err := getCallable()
		if err != nil {
			return fail(err)
		}
		backends := make([]string, 0, len(l.Backends()))
		for _, b := range l.Backends() {
			backends = append(backends, b.String())
		}
		return ToolResponse{
			Result: map[string]any{
				"variables":  l.Variables(),
				"expression": symbol.ToMap(l.Expr()),
				"backends":   backends,
			},
			String: l.String(),
		}

	case "lambdify_call":
		l, err := getCallable()
		if err != nil {
			return fail(err)
		}
		var args []any
		if raw, ok := req.Params["args"]; ok {
			list, ok := raw.([]any)
			if !ok {
				return fail(errors.New("param args must be array"))
			}
			for i, a := range list {
				v, err := decodeArg(a)
				if err != nil {
					return fail(errors.Wrapf(err, "param args[%d]", i))
				}
				args = append(args, v)
			}
		}
		named := map[string]any{}
		if raw, ok := req.Params["named"]; ok {
			m, ok := raw.(map[string]any)
			if !ok {
				return fail(errors.New("param named must be object"))
			}
			for k, a := range m {
				v, err := decodeArg(a)
				if err != nil {
					return fail(errors.Wrapf(err, "param named.%s", k))
				}
				named[k] = v
			}
		}
		backend := "symbolic"
		if len(args) > 0 || len(named) > 0 {
			values, err := l.bind(args, named)
			if err != nil {
				return fail(err)
			}
			backend = route(values, l.funcs).String()
		}
		res, err := l.CallNamed(args, named)
		if err != nil {
			return fail(err)
		}
		resp := respondValue(res)
		resp.Backend = backend
		return resp

	case "lambdify_render":
		l, err := getCallable()
		if err != nil {
			return fail(err)
		}
		name, err := getString("name", DefaultName)
		if err != nil {
			return fail(err)
		}
		text, err := l.Render(name)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: text, String: text}

	case "cse":
		raw, ok := req.Params["exprs"]
		if !ok {
			return fail(errors.New("missing param: exprs"))
		}
		value, err := decodeCSEValue(raw)
		if err != nil {
			return fail(errors.Wrap(err, "param exprs"))
		}
		minimize, err := getBool("minimize_memory", true)
		if err != nil {
			return fail(err)
		}
		repl, reduced, err := cse.Homogeneous(value, nil)
		if err != nil {
			return fail(err)
		}
		if minimize {
			if repl, reduced, err = minimizeValue(repl, reduced); err != nil {
				return fail(err)
			}
		}
		pairs := make([]any, len(repl))
		lines := make([]string, len(repl))
		for i, r := range repl {
			var def any
			if !r.IsRelease() {
				def = r.Expr.String()
			}
			pairs[i] = []any{r.Sym.Name(), def}
			lines[i] = r.String()
		}
		return ToolResponse{
			Result: map[string]any{"replacements": pairs, "reduced": jsonValue(reduced)},
			String: strings.Join(lines, "\n"),
		}

	case "simplify":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(simplify(e))

	case "evalf":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		digits, err := getInt("digits", 15)
		if err != nil {
			return fail(err)
		}
		if digits < 1 {
			return fail(errors.Errorf("digits must be positive, got %d", digits))
		}
		return respond(Evalf(e, digits).(symbol.Expr))

	case "tool_spec":
		return ToolResponse{Result: json.RawMessage(ToolSpec())}
	}
	return fail(errors.Errorf("unknown tool: %s", req.Tool))
}

// decodeArg converts a decoded JSON call argument: numbers stay float64,
// arrays of numbers become []float64, objects and strings become
// expressions.
func decodeArg(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case []any:
		out := make([]float64, len(x))
		for i, item := range x {
			f, ok := item.(float64)
			if !ok {
				return nil, errors.Errorf("element %d of type %T is not a number", i, item)
			}
			out[i] = f
		}
		return out, nil
	}
	return symbol.Decode(v)
}

// decodeCSEValue converts the exprs param of the cse tool. Strings stay
// strings, arrays become a symbol.List, expression objects become
// expressions and other objects become a *symbol.Dict with sorted keys.
func decodeCSEValue(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		out := make(symbol.List, len(x))
		for i, item := range x {
			e, err := symbol.Decode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = e
		}
		return out, nil
	case map[string]any:
		if _, ok := x["type"]; ok {
			return symbol.Decode(x)
		}
		d := symbol.NewDict()
		for _, k := range slices.Sorted(maps.Keys(x)) {
			e, err := symbol.Decode(x[k])
			if err != nil {
				return nil, errors.Wrapf(err, "key %s", k)
			}
			d.Store(k, e)
		}
		return d, nil
	}
	return nil, errors.Errorf("cannot reduce %T", v)
}

// minimizeValue adds release markers to the reduction of a cse call and
// replaces every reduced expression by the symbol naming it.
func minimizeValue(repl []symbol.Replacement, reduced any) ([]symbol.Replacement, any, error) {
	var targets []symbol.Expr
	switch v := reduced.(type) {
	case string:
		e, err := symbol.Parse(v)
		if err != nil {
			return nil, nil, err
		}
		targets = []symbol.Expr{e}
	case symbol.Expr:
		targets = []symbol.Expr{v}
	case symbol.List:
		targets = exprsOf(v)
	case *symbol.Dict:
		for _, k := range v.Keys() {
			e, _ := v.Load(k)
			targets = append(targets, e.(symbol.Expr))
		}
	default:
		return repl, reduced, nil
	}
	repl, targets = cse.MinimizeMemory(repl, targets, nil)
	switch v := reduced.(type) {
	case string:
		return repl, targets[0].String(), nil
	case symbol.Expr:
		return repl, targets[0], nil
	case symbol.List:
		out := make(symbol.List, len(targets))
		for i, t := range targets {
			out[i] = t
		}
		return repl, out, nil
	case *symbol.Dict:
		out := symbol.NewDict()
		for i, k := range v.Keys() {
			out.Store(k, targets[i])
		}
		return repl, out, nil
	}
	return repl, reduced, nil
}

func exprsOf(items []any) []symbol.Expr {
	out := make([]symbol.Expr, len(items))
	for i, item := range items {
		out[i] = item.(symbol.Expr)
	}
	return out
}

// jsonValue renders a reduced value for a response: expressions as text,
// containers as arrays and dicts as objects.
func jsonValue(v any) any {
	switch x := v.(type) {
	case symbol.Expr:
		return x.String()
	case symbol.List:
		return jsonValues(x)
	case symbol.Tuple:
		return jsonValues(x)
	case symbol.Set:
		return jsonValues(x)
	case *symbol.Dict:
		out := map[string]any{}
		for _, k := range x.Keys() {
			item, _ := x.Load(k)
			out[fmt.Sprint(k)] = jsonValue(item)
		}
		return out
	}
	return v
}

func jsonValues(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = jsonValue(item)
	}
	return out
}

// jsonNumber returns f, or its text when JSON cannot hold it.
func jsonNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	return f
}

func respondValue(v any) ToolResponse {
	switch x := v.(type) {
	case symbol.Expr:
		return ToolResponse{Result: symbol.ToMap(x), String: x.String()}
	case float64:
		return ToolResponse{Result: jsonNumber(x), String: fmt.Sprint(x)}
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = jsonNumber(f)
		}
		return ToolResponse{Result: out, String: fmt.Sprint(x)}
	}
	return ToolResponse{Result: fmt.Sprint(v), String: fmt.Sprint(v)}
}

// ToolSpec returns the JSON schema of every tool.
func ToolSpec() string {
	tools := []map[string]any{
		ts("lambdify_compile", "Simplify and compile an expression of the given variables; returns the stored expression and the available backends",
			[]string{"vars", "expr"}, map[string]string{"vars": "array", "expr": "object"}),
		ts("lambdify_call", "Evaluate a compiled expression. args holds numbers, number arrays or expressions; named maps variable names to values",
			[]string{"vars", "expr"}, map[string]string{"vars": "array", "expr": "object", "args": "array", "named": "object"}),
		ts("lambdify_render", "Render the source of every backend and of the dispatcher",
			[]string{"vars", "expr"}, map[string]string{"vars": "array", "expr": "object", "name": "string"}),
		ts("cse", "Common subexpression elimination over an expression, an array of expressions or an object of named expressions, with release markers unless minimize_memory is false",
			[]string{"exprs"}, map[string]string{"exprs": "array", "minimize_memory": "boolean"}),
		ts("simplify", "Rewrite an expression into the form cheapest to evaluate",
			[]string{"expr"}, map[string]string{"expr": "object"}),
		ts("evalf", "Evaluate the numbers of an expression to the given significant digits (default 15)",
			[]string{"expr"}, map[string]string{"expr": "object", "digits": "integer"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]any{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]any {
	properties := map[string]any{}
	for k, typ := range props {
		properties[k] = map[string]any{"type": typ}
	}
	return map[string]any{
		"name":        name,
		"description": description,
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
