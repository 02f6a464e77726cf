package codegen

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/cse"
	"github.com/njchilds90/golambdify/symbol"
)

type opcode int

const (
	opConst opcode = iota
	opLoad
	opAdd
	opMul
	opPow
	opCall
)

// node is a lowered expression. Leaves read constants or slots.
type node struct {
	op    opcode
	slot  int
	value float64
	quad  *big.Float
	name  string
	args  []*node
}

// step evaluates one definition into a slot, then frees the slots of the
// symbols it used last.
type step struct {
	sym      string
	expr     symbol.Expr
	slot     int
	node     *node
	release  []int
	released []string
}

// program is an expression lowered to a sequence of steps over numbered
// slots. Parameters occupy the first slots. A slot freed by a release is
// reused by the next definition.
type program struct {
	params []string
	nslots int
	steps  []step
	result int
	output string
	funcs  map[string]bool
}

// lower builds the program of expr. Unless numeric is set, steps carry no
// nodes and free symbols other than params are allowed.
func lower(expr symbol.Expr, params []string, useCSE, numeric bool) (*program, error) {
	p := &program{params: params, nslots: len(params), funcs: map[string]bool{}}
	slots := map[string]int{}
	for i, name := range params {
		if _, dup := slots[name]; dup {
			return nil, errors.Errorf("duplicate parameter %s", name)
		}
		slots[name] = i
	}

	names := append(append([]string{}, params...), symbol.SortedSymbols(expr)...)
	var defs []symbol.Replacement
	var result symbol.Expr
	if useCSE {
		repl, reduced := symbol.CSE([]symbol.Expr{expr}, symbol.NewAllocator("x", names...))
		placeholders := symbol.NewAllocator(cse.PlaceholderPrefix, names...)
		for _, r := range repl {
			placeholders.Exclude(r.Sym.Name())
		}
		var targets []symbol.Expr
		defs, targets = cse.MinimizeMemory(repl, reduced, placeholders)
		if len(repl) == 0 {
			sym := placeholders.Next()
			defs = []symbol.Replacement{{Sym: sym, Expr: targets[0]}}
			targets = []symbol.Expr{sym}
		}
		result = targets[0]
	} else {
		sym := symbol.NewAllocator(cse.PlaceholderPrefix, names...).Next()
		defs = []symbol.Replacement{{Sym: sym, Expr: expr}}
		result = sym
	}

	var free []int
	for _, d := range defs {
		name := d.Sym.Name()
		if d.IsRelease() {
			if len(p.steps) == 0 {
				return nil, errors.Errorf("release of %s before any definition", name)
			}
			s := slots[name]
			last := &p.steps[len(p.steps)-1]
			last.release = append(last.release, s)
			last.released = append(last.released, name)
			delete(slots, name)
			free = append(free, s)
			continue
		}
		var nd *node
		if numeric {
			var err error
			if nd, err = p.node(d.Expr, slots); err != nil {
				return nil, err
			}
		}
		var s int
		if len(free) > 0 {
			s, free = free[len(free)-1], free[:len(free)-1]
		} else {
			s = p.nslots
			p.nslots++
		}
		slots[name] = s
		p.steps = append(p.steps, step{sym: name, expr: d.Expr, slot: s, node: nd})
	}
	p.output = result.String()
	p.result = slots[p.output]
	return p, nil
}

func (p *program) node(e symbol.Expr, slots map[string]int) (*node, error) {
	switch v := e.(type) {
	case *symbol.Num, *symbol.Float, *symbol.Const:
		q, err := symbol.BigFloat(v, QuadPrec)
		if err != nil {
			return nil, err
		}
		f, _ := q.Float64()
		return &node{op: opConst, value: f, quad: q}, nil
	case *symbol.Sym:
		s, ok := slots[v.Name()]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupported, "free symbol %s is not a parameter", v.Name())
		}
		return &node{op: opLoad, slot: s}, nil
	}
	nd := &node{}
	switch v := e.(type) {
	case *symbol.Add:
		nd.op = opAdd
	case *symbol.Mul:
		nd.op = opMul
	case *symbol.Pow:
		nd.op = opPow
	case *symbol.Func:
		nd.op = opCall
		nd.name = v.Name()
		p.funcs[nd.name] = true
	default:
		return nil, errors.Wrapf(ErrUnsupported, "expression %T", e)
	}
	for _, a := range e.Args() {
		c, err := p.node(a, slots)
		if err != nil {
			return nil, err
		}
		nd.args = append(nd.args, c)
	}
	return nd, nil
}

// source describes p in the dialect of printer.
func (p *program) source(name, doc string, printer *symbol.Printer) *Source {
	src := &Source{Name: name, Doc: doc, Params: p.params}
	for _, st := range p.steps {
		src.Body = append(src.Body, Line{Target: st.sym, Expr: printer.Print(st.expr)})
		for _, r := range st.released {
			src.Body = append(src.Body, Line{Target: r})
		}
	}
	src.Result = p.output
	return src
}
