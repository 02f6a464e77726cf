package codegen

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// parallelUnsupported lists functions without a chunked kernel.
var parallelUnsupported = map[string]bool{
	"floor": true,
	"ceil":  true,
	"sign":  true,
}

type asyncErrors struct {
	locker sync.Mutex
	errs   error
}

func (ae *asyncErrors) add(err error) {
	ae.locker.Lock()
	defer ae.locker.Unlock()

	ae.errs = multierr.Append(ae.errs, err)
}

func (ae *asyncErrors) errors() error {
	ae.locker.Lock()
	defer ae.locker.Unlock()

	errs := ae.errs
	ae.errs = nil
	return errs
}

type chunk struct {
	lo, hi int
}

// parallel evaluates float64 arrays split in chunks over a pool of workers.
type parallel struct {
	prog      *program
	workers   int
	chunkSize int
}

func newParallel(prog *program, o options) (*parallel, error) {
	if o.workers < 2 {
		return nil, errors.Wrapf(ErrUnavailable, "%s needs at least 2 workers, have %d", FastLargeArray, o.workers)
	}
	for name := range prog.funcs {
		if parallelUnsupported[name] {
			return nil, errors.Wrapf(ErrUnsupported, "%s has no chunked kernel for %s", FastLargeArray, name)
		}
	}
	return &parallel{prog: prog, workers: o.workers, chunkSize: o.chunkSize}, nil
}

func (p *parallel) call(args []any) (any, error) {
	for i, a := range args {
		switch a.(type) {
		case []float32, Quad:
			return nil, errors.Wrapf(ErrUnsupported, "argument %s of type %T", p.prog.params[i], a)
		}
	}
	n, arrays, err := broadcastLen(args, p.prog.params)
	if err != nil {
		return nil, err
	}
	in, err := vectors[float64](args, p.prog.params)
	if err != nil {
		return nil, err
	}
	size := max((n+p.workers-1)/p.workers, p.chunkSize)
	if !arrays || n <= size {
		res, err := run(p.prog, in, n)
		if err != nil {
			return nil, err
		}
		return shape(res, n, arrays), nil
	}

	out := make([]float64, n)
	jobs := make(chan chunk)
	var (
		wg   sync.WaitGroup
		errs asyncErrors
	)
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if err := p.evalChunk(in, c, out); err != nil {
					errs.add(errors.Wrapf(err, "chunk [%d:%d]", c.lo, c.hi))
				}
			}
		}()
	}
	for lo := 0; lo < n; lo += size {
		jobs <- chunk{lo: lo, hi: min(lo+size, n)}
	}
	close(jobs)
	wg.Wait()
	if err := errs.errors(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parallel) evalChunk(in [][]float64, c chunk, out []float64) error {
	sub := make([][]float64, len(in))
	for i, v := range in {
		if len(v) == 1 {
			sub[i] = v
		} else {
			sub[i] = v[c.lo:c.hi]
		}
	}
	res, err := run(p.prog, sub, c.hi-c.lo)
	if err != nil {
		return err
	}
	dst := out[c.lo:c.hi]
	if len(res) == 1 {
		for i := range dst {
			dst[i] = res[0]
		}
		return nil
	}
	copy(dst, res)
	return nil
}
