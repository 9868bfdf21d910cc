package adapter

import (
	"context"
	"strings"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/dispatch"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
	"github.com/wippyai/sffi/signature"
)

// Adapter holds the caller's view of a signature and converts between it
// and a callee's real types at call time.
type Adapter struct {
	heap   sffi.Heap
	target signature.Signature
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHeap sets the heap used to duplicate strings. Without it, Call uses
// the heap of the function being called.
func WithHeap(h sffi.Heap) Option {
	return func(a *Adapter) { a.heap = h }
}

// New creates an adapter for target.
func New(target signature.Signature, opts ...Option) *Adapter {
	a := &Adapter{target: target}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Parse creates an adapter from a descriptor. A bracketed field list
// "[T1,T2]" is read as "(T1,T2)void" for use with Set and Get.
func Parse(text string, opts ...Option) (*Adapter, error) {
	s := strings.TrimLeft(text, " \t\r\n")
	if strings.HasPrefix(s, "[") {
		trimmed := strings.TrimRight(s, " \t\r\n")
		if !strings.HasSuffix(trimmed, "]") {
			return nil, errors.Syntax(s, 0, "invalid descriptor end")
		}
		s = "(" + trimmed[1:len(trimmed)-1] + ")void"
	}
	sig, err := signature.Parse(s)
	if err != nil {
		return nil, err
	}
	return New(sig, opts...), nil
}

// Target returns the caller-side signature.
func (a *Adapter) Target() signature.Signature { return a.target }

// Call converts args from the adapter's argument types into fn's, calls fn
// and converts its return value into result. The callee is not invoked
// when argument counts disagree.
func (a *Adapter) Call(ctx context.Context, fn *dispatch.Func, result []byte, args [][]byte) error {
	callee := fn.Signature()
	n := a.target.NumArgs()
	if callee.NumArgs() != n {
		return errors.CountMismatch(errors.PhaseCall, "function invalid arguments count", callee.NumArgs(), n)
	}
	if len(args) != n {
		return errors.CountMismatch(errors.PhaseCall, "accepted invalid arguments count", len(args), n)
	}
	for i := 0; i < n; i++ {
		if want := slotSize(a.target.Arg(i), callee.Arg(i)); len(args[i]) < want {
			return errors.InvalidArguments(errors.PhaseCall,
				"argument %d buffer too small (%d / %d)", i, len(args[i]), want)
		}
	}
	if want := slotSize(a.target.Return(), callee.Return()); len(result) < want {
		return errors.InvalidArguments(errors.PhaseCall,
			"result buffer too small (%d / %d)", len(result), want)
	}

	heap := a.heap
	if heap == nil {
		heap = fn.Heap()
	}

	s := getScratch()
	defer s.release()

	for i := 0; i < n; i++ {
		into := callee.Arg(i)
		buf := s.alloc(into.Size())
		if err := Coerce(a.target.Arg(i), args[i], into, buf, heap); err != nil {
			return err
		}
		s.args = append(s.args, buf)
	}

	var ret []byte
	if size := callee.Return().Size(); size > 0 {
		ret = s.alloc(size)
	}
	if err := fn.Call(ctx, ret, s.args); err != nil {
		return err
	}
	return Coerce(callee.Return(), ret, a.target.Return(), result, heap)
}

// Set converts v from the adapter's index-th argument type into field
// index of buf.
func (a *Adapter) Set(buf *layout.Buffer, index int, v []byte) error {
	if err := a.checkAccess(buf.Layout(), index); err != nil {
		return err
	}
	field, err := buf.Field(index)
	if err != nil {
		return err
	}
	return Coerce(a.target.Arg(index), v, buf.Layout().Field(index), field, a.heap)
}

// Get converts field index of buf into out, typed as the adapter's
// index-th argument type.
func (a *Adapter) Get(buf *layout.Buffer, index int, out []byte) error {
	if err := a.checkAccess(buf.Layout(), index); err != nil {
		return err
	}
	field, err := buf.Field(index)
	if err != nil {
		return err
	}
	return Coerce(buf.Layout().Field(index), field, a.target.Arg(index), out, a.heap)
}

func (a *Adapter) checkAccess(l *layout.Layout, index int) error {
	n := a.target.NumArgs()
	if index < 0 || index >= n {
		return errors.OutOfBounds(errors.PhaseCoerce, index, n)
	}
	if n != l.Len() {
		return errors.CountMismatch(errors.PhaseCoerce, "structure invalid fields count", l.Len(), n)
	}
	return nil
}
