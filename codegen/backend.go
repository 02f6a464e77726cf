// Package codegen compiles expressions into functions evaluated by one of
// several backends, and describes each compiled function as a structured
// source record.
package codegen

import (
	"fmt"
	"math/big"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Backend identifies an evaluation strategy.
type Backend int

const (
	// Symbolic substitutes the arguments into the expression.
	Symbolic Backend = iota
	// Float64 evaluates float64 (or float32) scalars and arrays.
	Float64
	// Float128 evaluates extended precision scalars and arrays.
	Float128
	// FastLargeArray evaluates large float64 arrays in parallel chunks.
	FastLargeArray
)

// Backends lists every backend.
var Backends = []Backend{Symbolic, Float64, Float128, FastLargeArray}

var backendNames = [...]string{"symbolic", "float64", "float128", "fast-large-array"}

func (b Backend) String() string {
	if b >= 0 && int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// Ident returns the backend name usable as an identifier.
func (b Backend) Ident() string { return strings.ReplaceAll(b.String(), "-", "_") }

// ParseBackend returns the backend with the given name.
func ParseBackend(s string) (Backend, error) {
	for i, n := range backendNames {
		if n == s {
			return Backend(i), nil
		}
	}
	return 0, errors.Errorf("unknown backend %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	v, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

var (
	// ErrUnavailable reports a backend that cannot run in this process.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnsupported reports an expression or argument a backend cannot handle.
	ErrUnsupported = errors.New("unsupported by backend")
)

// QuadPrec is the mantissa size of extended precision values, as in IEEE
// binary128.
const QuadPrec = 113

// Quad is an array of extended precision values.
type Quad []*big.Float

// NewQuad converts vs to extended precision.
func NewQuad(vs ...float64) Quad {
	q := make(Quad, len(vs))
	for i, v := range vs {
		q[i] = new(big.Float).SetPrec(QuadPrec).SetFloat64(v)
	}
	return q
}

// Float64s rounds q to float64.
func (q Quad) Float64s() []float64 {
	out := make([]float64, len(q))
	for i, v := range q {
		out[i], _ = v.Float64()
	}
	return out
}

// ============================================================
// Options
// ============================================================

// DefaultChunkSize is the smallest number of elements evaluated by one
// worker of the fast-large-array backend.
const DefaultChunkSize = 4096

type options struct {
	cse       bool
	workers   int
	chunkSize int
}

// Option configures Compile.
type Option func(*options)

// WithoutCSE evaluates the expression tree as is, without extracting common
// subexpressions.
func WithoutCSE() Option {
	return func(o *options) { o.cse = false }
}

// WithWorkers sets the number of goroutines of the fast-large-array backend.
// The backend is unavailable with fewer than two workers.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithChunkSize sets the smallest chunk evaluated by one worker.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{cse: true, workers: runtime.GOMAXPROCS(0), chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
