package lambdify

import (
	"go/token"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/codegen"
)

// DefaultName names the rendered dispatcher when none is given.
const DefaultName = "lambdifygenerated"

// renderOrder is the order of the backend functions in a rendering.
var renderOrder = []codegen.Backend{
	codegen.FastLargeArray,
	codegen.Float64,
	codegen.Float128,
	codegen.Symbolic,
}

// Render returns the source of every available backend followed by a
// dispatcher named name that implements CallNamed. Backend functions are
// named after the dispatcher and their backend.
func (l *Lambdify) Render(name string) (string, error) {
	if name == "" {
		name = DefaultName
	}
	if !token.IsIdentifier(name) {
		return "", errors.Errorf("%q is not an identifier", name)
	}
	d := &codegen.Dispatcher{
		Name:      name,
		Params:    l.vars,
		Expr:      l.expr.String(),
		Threshold: LargeArrayThreshold,
	}
	var srcs []*codegen.Source
	for _, b := range renderOrder {
		f := l.funcs[b]
		if f == nil {
			continue
		}
		fn := "_" + name + "_" + b.Ident()
		srcs = append(srcs, f.Source.Renamed(fn))
		switch b {
		case codegen.Symbolic:
			d.Symbolic = fn
		case codegen.Float64:
			d.Float64 = fn
		case codegen.Float128:
			d.Float128 = fn
		case codegen.FastLargeArray:
			d.FastLargeArray = fn
		}
	}
	return codegen.RenderFile(srcs, d)
}

// Persist writes the rendering of l to path. Writers of the same path are
// serialized by a lock file next to it, and readers never see a partial
// file.
func (l *Lambdify) Persist(path, name string) error {
	text, err := l.Render(name)
	if err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "lock %s", path)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "persist %s", path)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	l.opts.logger.Debug("persisted", "path", path, "name", name, "bytes", len(text))
	return nil
}
