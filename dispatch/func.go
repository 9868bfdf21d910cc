package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
	"github.com/wippyai/sffi/signature"
)

// Option configures preparation of a Func.
type Option func(*options)

type options struct {
	conv      sffi.Convention
	skipCheck bool
}

// WithConvention prepares the call interface for a specific calling convention.
func WithConvention(c sffi.Convention) Option {
	return func(o *options) { o.conv = c }
}

// WithoutSymbolCheck disables verification of the symbol's own signature
// for invokers that support it.
func WithoutSymbolCheck() Option {
	return func(o *options) { o.skipCheck = true }
}

// Func is a resolved symbol with a prepared call interface. A Func is only
// ever observed fully prepared; New either succeeds or returns an error.
type Func struct {
	inv      sffi.Invoker
	sym      sffi.Symbol
	ci       sffi.CallInterface
	sig      signature.Signature
	argSizes []int
	retSize  int
	rawSize  int
	conv     sffi.Convention
	closed   bool
}

// New maps the signature's types through the invoker and prepares a call
// interface for sym.
func New(inv sffi.Invoker, sym sffi.Symbol, sig signature.Signature, opts ...Option) (*Func, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if sig.ContainsAuto() {
		return nil, errors.New(errors.PhasePrepare, errors.KindDescriptorSyntax).
			Detail("type 'auto' not supported for call %s%s", sym.Name(), sig).
			Build()
	}

	args := sig.Args()
	nativeArgs := make([]sffi.NativeType, 0, len(args))
	argSizes := make([]int, len(args))
	// Mapped types are the caller's until Prepare takes them over.
	releaseTypes := func(types ...sffi.NativeType) {
		if tr, ok := inv.(sffi.TypeReleaser); ok {
			for _, nt := range types {
				tr.ReleaseType(nt)
			}
		}
	}
	for i, a := range args {
		nt, err := mapType(inv, a)
		if err != nil {
			releaseTypes(nativeArgs...)
			return nil, err
		}
		nativeArgs = append(nativeArgs, nt)
		argSizes[i] = a.Size()
	}
	nativeRet, err := mapType(inv, sig.Return())
	if err != nil {
		releaseTypes(nativeArgs...)
		return nil, err
	}

	ci, err := inv.Prepare(nativeArgs, nativeRet, o.conv)
	if err != nil {
		releaseTypes(append(nativeArgs, nativeRet)...)
		return nil, asPrepareError(err)
	}

	if checker, ok := inv.(sffi.SymbolChecker); ok && !o.skipCheck {
		if err := checker.CheckSymbol(ci, sym); err != nil {
			if r, ok := inv.(sffi.Releaser); ok {
				if rerr := r.Release(ci); rerr != nil {
					Logger().Warn("release after failed symbol check",
						zap.String("symbol", sym.Name()), zap.Error(rerr))
				}
			}
			return nil, asPrepareError(err)
		}
	}

	_, rawSize := layout.Raw(args)
	Logger().Debug("prepared call interface",
		zap.String("symbol", sym.Name()),
		zap.Stringer("signature", sig),
		zap.Stringer("convention", o.conv))

	return &Func{
		inv:      inv,
		sym:      sym,
		ci:       ci,
		sig:      sig,
		argSizes: argSizes,
		retSize:  sig.Return().Size(),
		rawSize:  rawSize,
		conv:     o.conv,
	}, nil
}

func mapType(inv sffi.Invoker, t descriptor.Type) (sffi.NativeType, error) {
	nt, err := inv.MapType(t)
	if err != nil {
		return nil, asPrepareError(err)
	}
	return nt, nil
}

// asPrepareError keeps structured invoker errors and classifies anything
// else as a type-definition failure.
func asPrepareError(err error) error {
	if _, ok := errors.KindOf(err); ok {
		return err
	}
	return errors.BadTypedef("prepare call interface", err)
}

// Name returns the symbol name.
func (f *Func) Name() string { return f.sym.Name() }

// Symbol returns the resolved symbol.
func (f *Func) Symbol() sffi.Symbol { return f.sym }

// Signature returns the declared signature.
func (f *Func) Signature() signature.Signature { return f.sig }

// Convention returns the calling convention the handle was prepared for.
func (f *Func) Convention() sffi.Convention { return f.conv }

// RawSize returns the flat buffer size CallRaw expects.
func (f *Func) RawSize() int { return f.rawSize }

// Heap returns the memory the function operates on, if the symbol or the
// invoker exposes one.
func (f *Func) Heap() sffi.Heap {
	if hp, ok := f.sym.(sffi.HeapProvider); ok {
		if h := hp.Heap(); h != nil {
			return h
		}
	}
	if hp, ok := f.inv.(sffi.HeapProvider); ok {
		return hp.Heap()
	}
	return nil
}

// Call invokes the function with one buffer per declared argument. result
// may be nil when the return type is void.
func (f *Func) Call(ctx context.Context, result []byte, args [][]byte) error {
	if f.closed {
		return errClosed(f.sym.Name())
	}
	if len(args) != len(f.argSizes) {
		return errors.CountMismatch(errors.PhaseCall, "invalid arguments count", len(args), len(f.argSizes))
	}
	for i, n := range f.argSizes {
		if len(args[i]) < n {
			return errors.InvalidArguments(errors.PhaseCall,
				"argument %d buffer too small (%d / %d)", i, len(args[i]), n)
		}
	}
	if err := f.checkResult(result); err != nil {
		return err
	}
	return f.inv.Invoke(ctx, f.ci, f.sym, result, args)
}

// CallRaw invokes the function with arguments packed as computed by layout.Raw.
func (f *Func) CallRaw(ctx context.Context, result []byte, flat []byte) error {
	if f.closed {
		return errClosed(f.sym.Name())
	}
	if len(flat) < f.rawSize {
		return errors.InvalidArguments(errors.PhaseCall,
			"raw argument buffer too small (%d / %d)", len(flat), f.rawSize)
	}
	if err := f.checkResult(result); err != nil {
		return err
	}
	return f.inv.InvokeRaw(ctx, f.ci, f.sym, result, flat)
}

func (f *Func) checkResult(result []byte) error {
	if f.retSize > 0 && len(result) < f.retSize {
		return errors.InvalidArguments(errors.PhaseCall,
			"result buffer too small (%d / %d)", len(result), f.retSize)
	}
	return nil
}

// Close releases the prepared call interface. The handle must not be used
// afterwards.
func (f *Func) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if r, ok := f.inv.(sffi.Releaser); ok {
		return r.Release(f.ci)
	}
	return nil
}

func errClosed(name string) error {
	return errors.InvalidArguments(errors.PhaseCall, "function %s used after close", name)
}
