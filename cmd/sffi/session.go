package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/adapter"
	"github.com/wippyai/sffi/backend/native"
	"github.com/wippyai/sffi/backend/wasm"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/handle"
	"github.com/wippyai/sffi/library"
	"github.com/wippyai/sffi/signature"
	"github.com/wippyai/sffi/value"
)

// session owns a backend runtime and the library opened through it.
// Objects live in a handle table so teardown releases them in one place.
type session struct {
	table   *handle.Table
	lib     handle.Handle
	closeRT func(context.Context) error
}

type backend interface {
	sffi.Loader
	sffi.Invoker
}

func openSession(ctx context.Context, kind, path string) (*session, error) {
	var (
		rt      backend
		closeRT = func(context.Context) error { return nil }
	)
	switch kind {
	case "wasm":
		w, err := wasm.New(ctx, nil)
		if err != nil {
			return nil, err
		}
		rt, closeRT = w, w.Close
	case "native":
		rt = native.New(nil)
	default:
		return nil, fmt.Errorf("unknown backend %q (want wasm or native)", kind)
	}

	lib, err := library.Open(ctx, rt, rt, path)
	if err != nil {
		closeRT(ctx)
		return nil, err
	}

	s := &session{table: handle.NewTable(), closeRT: closeRT}
	s.lib = s.table.Insert(handle.TypeLibrary, lib)
	return s, nil
}

func (s *session) library() (*library.Library, error) {
	return handle.Lookup[*library.Library](s.table, s.lib, handle.TypeLibrary)
}

// symbols lists exported names with the descriptors the image reports.
// Names without a known descriptor map to "".
func (s *session) symbols() ([]string, map[string]string, error) {
	lib, err := s.library()
	if err != nil {
		return nil, nil, err
	}
	names := lib.Symbols()
	sort.Strings(names)
	descs := make(map[string]string, len(names))
	if d, ok := lib.Image().(sffi.Describer); ok {
		for _, n := range names {
			if desc, err := d.Describe(n); err == nil {
				descs[n] = desc
			}
		}
	}
	return names, descs, nil
}

// call resolves name with desc, converts args through the adapter when one
// is given and returns the formatted result.
func (s *session) call(ctx context.Context, name, desc, adapterDesc string, args []string) (string, error) {
	lib, err := s.library()
	if err != nil {
		return "", err
	}
	fn, err := lib.Func(ctx, name, desc)
	if err != nil {
		return "", err
	}
	sig := fn.Signature()

	var ad *adapter.Adapter
	if adapterDesc != "" {
		if ad, err = adapter.Parse(adapterDesc, adapter.WithHeap(lib.Heap())); err != nil {
			return "", err
		}
		h := s.table.Insert(handle.TypeAdapter, ad)
		defer s.table.Remove(ctx, h)
		sig = resolveAuto(ad.Target().Args(), ad.Target().Return(), sig.Args(), sig.Return())
	}

	if len(args) != len(sig.Args()) {
		return "", fmt.Errorf("%s takes %d arguments, got %d", name, len(sig.Args()), len(args))
	}
	bufs := make([][]byte, len(args))
	var owned []uint64
	defer func() {
		for _, addr := range owned {
			lib.Heap().Free(addr)
		}
	}()
	for i, text := range args {
		b, addr, err := parseArg(lib.Heap(), sig.Arg(i), text)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		if addr != 0 {
			owned = append(owned, addr)
		}
		bufs[i] = b
	}

	ret := sig.Return()
	var out []byte
	if !ret.IsVoid() {
		out = value.New(ret)
	}
	if ad != nil {
		err = ad.Call(ctx, fn, out, bufs)
	} else {
		err = fn.Call(ctx, out, bufs)
	}
	if err != nil {
		return "", err
	}
	return formatResult(lib.Heap(), ret, out), nil
}

func (s *session) close(ctx context.Context) error {
	err := s.table.Close(ctx)
	if cerr := s.closeRT(ctx); err == nil {
		err = cerr
	}
	return err
}

// resolveAuto replaces auto types of the adapter with the callee's.
func resolveAuto(args []descriptor.Type, ret descriptor.Type, calleeArgs []descriptor.Type, calleeRet descriptor.Type) signature.Signature {
	out := make([]descriptor.Type, len(args))
	for i, a := range args {
		if a.IsAuto() && i < len(calleeArgs) {
			a = calleeArgs[i]
		}
		out[i] = a
	}
	if ret.IsAuto() {
		ret = calleeRet
	}
	return signature.New(out, ret)
}

func isString(t descriptor.Type) bool {
	return t.Kind == descriptor.KindRefStr || t.Kind == descriptor.KindBorrowStr
}

// parseArg converts text for type t. String arguments that are not
// addresses are copied into the heap; the returned address must be freed.
func parseArg(heap sffi.Heap, t descriptor.Type, text string) ([]byte, uint64, error) {
	if b, err := value.Parse(t, text); err == nil || !isString(t) {
		return b, 0, err
	}
	if heap == nil {
		return nil, 0, fmt.Errorf("library has no heap for string %q", text)
	}
	addr, err := heap.CString(strings.Trim(text, `"`))
	if err != nil {
		return nil, 0, err
	}
	return value.Word(addr), addr, nil
}

func formatResult(heap sffi.Heap, t descriptor.Type, b []byte) string {
	if t.IsVoid() {
		return "void"
	}
	text := value.Format(t, b)
	if isString(t) && heap != nil {
		if addr := value.ReadWord(b); addr != 0 {
			if s, err := heap.GoString(addr); err == nil {
				text += fmt.Sprintf(" %q", s)
			}
		}
	}
	return text
}

// splitArgs splits a comma separated argument list. Double-quoted
// arguments may contain commas.
func splitArgs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var (
		out   []string
		cur   strings.Builder
		quote bool
	)
	for _, r := range text {
		switch {
		case r == '"':
			quote = !quote
			cur.WriteRune(r)
		case r == ',' && !quote:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, strings.TrimSpace(cur.String()))
}
