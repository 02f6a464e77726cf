package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol"
)

// Source describes a compiled function: its parameters, the definitions
// evaluated in order and the symbol returned.
type Source struct {
	Name   string
	Doc    string
	Params []string
	Body   []Line
	Result string
}

// Line is one statement of a function body. A line without an expression
// releases its target.
type Line struct {
	Target string
	Expr   string
}

// Release reports whether l frees its target.
func (l Line) Release() bool { return l.Expr == "" }

// Renamed returns a copy of s with another name.
func (s *Source) Renamed(name string) *Source {
	c := *s
	c.Name = name
	return &c
}

// Dispatcher describes the entry point selecting a compiled function for
// each call. An empty function name marks an unavailable backend.
type Dispatcher struct {
	Name           string
	Params         []string
	Expr           string
	Threshold      int
	Symbolic       string
	Float64        string
	Float128       string
	FastLargeArray string
}

var funcs = template.FuncMap{
	"join":  strings.Join,
	"quote": strconv.Quote,
	"values": func(params []string) string {
		vs := make([]string, len(params))
		for i := range params {
			vs[i] = fmt.Sprintf("values[%d]", i)
		}
		return strings.Join(vs, ", ")
	},
}

var funcTmpl = template.Must(template.New("func").Funcs(funcs).Parse(`
// {{.Name}} {{.Doc}}
func {{.Name}}({{join .Params ", "}}{{if .Params}} any{{end}}) any {
{{- range .Body}}
{{- if .Release}}
	free({{.Target}})
{{- else}}
	{{.Target}} := {{.Expr}}
{{- end}}
{{- end}}
	return {{.Result}}
}
`))

var dispatchTmpl = template.Must(template.New("dispatch").Funcs(funcs).Parse(`
// {{.Name}} evaluates {{.Expr}} with the backend matching its arguments.
func {{.Name}}(args []any, named map[string]any) (any, error) {
	params := []string{ {{- range $i, $p := .Params}}{{if $i}}, {{end}}{{quote $p}}{{end -}} }
	if len(args) == 0 && len(named) == 0 {
		return {{quote .Expr}}, nil
	}
	if len(args) > len(params) {
		return nil, &ArgCountError{Want: len(params), Got: len(args)}
	}
	values := make([]any, len(params))
	for i, p := range params {
		values[i] = Symbol(p)
	}
	copy(values, args)
	for _, name := range slices.Sorted(maps.Keys(named)) {
		i := slices.Index(params, name)
		if i < 0 {
			return nil, &NameError{Name: name, Valid: params}
		}
		values[i] = named[name]
	}
	if anySymbolic(values) {
		return {{.Symbolic}}({{values .Params}}), nil
	}
{{- if .Float128}}
	if anyQuad(values) {
		return {{.Float128}}({{values .Params}}), nil
	}
{{- end}}
{{- if .FastLargeArray}}
	if maxLen(values) >= {{.Threshold}} && allFloat64(values) {
		return {{.FastLargeArray}}({{values .Params}}), nil
	}
{{- end}}
	return {{.Float64}}({{values .Params}}), nil
}
`))

// RenderFile renders fns followed by their dispatcher, if any.
func RenderFile(fns []*Source, d *Dispatcher) (string, error) {
	var b strings.Builder
	for _, fn := range fns {
		if err := funcTmpl.Execute(&b, fn); err != nil {
			return "", errors.Errorf("cannot generate code for %s: %v", fn.Name, err)
		}
	}
	if d != nil {
		if err := dispatchTmpl.Execute(&b, d); err != nil {
			return "", errors.Errorf("cannot generate dispatcher %s: %v", d.Name, err)
		}
	}
	return strings.TrimPrefix(b.String(), "\n"), nil
}

// ============================================================
// Dialects
// ============================================================

var goFuncs = map[string]string{
	"sin": "Sin", "cos": "Cos", "tan": "Tan",
	"asin": "Asin", "acos": "Acos", "atan": "Atan", "atan2": "Atan2",
	"sinh": "Sinh", "cosh": "Cosh", "tanh": "Tanh",
	"exp": "Exp", "log": "Log", "sqrt": "Sqrt",
	"abs": "Abs", "floor": "Floor", "ceil": "Ceil",
}

// Float64Printer prints expressions as Go float64 code.
var Float64Printer = &symbol.Printer{
	Number: func(e symbol.Expr) string {
		f, _ := symbol.BigFloat(e, 53)
		v, _ := f.Float64()
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	},
	Constant: func(name string) string {
		if name == "pi" {
			return "math.Pi"
		}
		return "math.E"
	},
	Func: func(name string, args []string) string {
		if g, ok := goFuncs[name]; ok {
			name = "math." + g
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	},
	Pow: func(base, exp string) string {
		return "math.Pow(" + base + ", " + exp + ")"
	},
}

// quadFuncs are the functions bigmath implements.
var quadFuncs = map[string]bool{
	"sin": true, "cos": true, "tan": true,
	"asin": true, "acos": true, "atan": true, "atan2": true,
	"sinh": true, "cosh": true, "tanh": true,
	"exp": true, "log": true, "sqrt": true,
}

// Float128Printer prints expressions as calls into bigmath.
var Float128Printer = &symbol.Printer{
	Number: func(e symbol.Expr) string {
		if f, ok := e.(*symbol.Float); ok {
			return "quad(" + strconv.Quote(symbol.FormatFloat(f.Big(), f.Digits())) + ")"
		}
		f, _ := symbol.BigFloat(e, QuadPrec)
		return "quad(" + strconv.Quote(symbol.FormatFloat(f, 34)) + ")"
	},
	Constant: func(name string) string {
		if name == "pi" {
			return fmt.Sprintf("bigmath.Pi(%d)", QuadPrec)
		}
		return fmt.Sprintf("bigmath.E(%d)", QuadPrec)
	},
	Func: func(name string, args []string) string {
		if quadFuncs[name] {
			name = "bigmath." + goFuncs[name]
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	},
	Pow: func(base, exp string) string {
		return "bigmath.Pow(" + base + ", " + exp + ")"
	},
}
