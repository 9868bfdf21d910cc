package library

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/dispatch"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/signature"
)

type entry struct {
	name string
	fn   *dispatch.Func
}

// Library owns one loaded image and caches the function handles prepared
// from it. It is not safe for concurrent use.
type Library struct {
	image   sffi.Image
	invoker sffi.Invoker
	path    string
	funcs   []entry
	opts    []dispatch.Option
	closed  bool
}

// Open loads path through loader. Functions are prepared with invoker.
func Open(ctx context.Context, loader sffi.Loader, invoker sffi.Invoker, path string, opts ...dispatch.Option) (*Library, error) {
	img, err := loader.Open(ctx, path)
	if err != nil {
		if errors.IsKind(err, errors.KindLibraryOpen) {
			return nil, err
		}
		return nil, errors.LibraryOpen(path, err)
	}
	Logger().Debug("library opened", zap.String("path", path))
	return &Library{
		image:   img,
		invoker: invoker,
		path:    path,
		opts:    opts,
	}, nil
}

// Path returns the path the library was opened from.
func (l *Library) Path() string { return l.path }

// Image returns the loaded image.
func (l *Library) Image() sffi.Image { return l.image }

// Heap returns the memory of the image or invoker, or nil if neither
// exposes one.
func (l *Library) Heap() sffi.Heap {
	if hp, ok := l.image.(sffi.HeapProvider); ok {
		if h := hp.Heap(); h != nil {
			return h
		}
	}
	if hp, ok := l.invoker.(sffi.HeapProvider); ok {
		return hp.Heap()
	}
	return nil
}

// Symbol resolves name without preparing a call interface.
func (l *Library) Symbol(name string) (sffi.Symbol, error) {
	if l.closed {
		return nil, errors.LibrarySymbol(name, errClosed)
	}
	sym, err := l.image.Resolve(name)
	if err != nil {
		if errors.IsKind(err, errors.KindLibrarySymbol) {
			return nil, err
		}
		return nil, errors.LibrarySymbol(name, err)
	}
	return sym, nil
}

// Func returns the handle for name, preparing it on first use. A handle
// already registered under name is returned as is, even when desc differs
// from the descriptor it was prepared with. An empty desc asks the image
// for the function's declared descriptor.
func (l *Library) Func(ctx context.Context, name, desc string) (*dispatch.Func, error) {
	if fn := l.lookup(name); fn != nil {
		Logger().Debug("function cache hit", zap.String("name", name))
		return fn, nil
	}

	if desc == "" {
		d, ok := l.image.(sffi.Describer)
		if !ok {
			return nil, errors.InvalidArguments(errors.PhasePrepare,
				"no descriptor given for %s and the image cannot describe it", name)
		}
		var err error
		if desc, err = d.Describe(name); err != nil {
			return nil, err
		}
	}

	sig, err := signature.Parse(desc)
	if err != nil {
		return nil, err
	}
	sym, err := l.Symbol(name)
	if err != nil {
		return nil, err
	}
	fn, err := dispatch.New(l.invoker, sym, sig, l.opts...)
	if err != nil {
		return nil, err
	}

	l.funcs = append(l.funcs, entry{name: name, fn: fn})
	Logger().Debug("function registered",
		zap.String("name", name),
		zap.Stringer("signature", sig))
	return fn, nil
}

func (l *Library) lookup(name string) *dispatch.Func {
	for _, e := range l.funcs {
		if e.name == name {
			return e.fn
		}
	}
	return nil
}

// Funcs returns the names of cached handles in registration order.
func (l *Library) Funcs() []string {
	names := make([]string, len(l.funcs))
	for i, e := range l.funcs {
		names[i] = e.name
	}
	return names
}

// Symbols lists the image's exported symbols if it can enumerate them.
func (l *Library) Symbols() []string {
	if e, ok := l.image.(sffi.Enumerator); ok {
		return e.Symbols()
	}
	return nil
}

// Close drops every cached handle, newest first, and then closes the
// image. Handles obtained from Func are invalid afterwards.
func (l *Library) Close(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	for i := len(l.funcs) - 1; i >= 0; i-- {
		err = multierr.Append(err, l.funcs[i].fn.Close())
	}
	l.funcs = nil
	err = multierr.Append(err, l.image.Close(ctx))

	Logger().Debug("library closed", zap.String("path", l.path), zap.Error(err))
	if err != nil {
		return errors.LibraryClose(err)
	}
	return nil
}

var errClosed = errors.New(errors.PhaseLoad, errors.KindLibraryClose).Detail("library is closed").Build()
