//go:build !(cgo && (linux || darwin))

package native

import (
	"context"
	stderrors "errors"
	"runtime"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
)

var errUnavailable = stderrors.New("native backend requires cgo on linux or darwin, built for " + runtime.GOOS)

// Runtime is unavailable on this build. Open always fails.
type Runtime struct{}

func New(*Config) *Runtime { return &Runtime{} }

func (r *Runtime) Heap() sffi.Heap { return nil }

func (r *Runtime) Open(_ context.Context, path string) (sffi.Image, error) {
	return nil, errors.LibraryOpen(path, errUnavailable)
}

func (r *Runtime) MapType(descriptor.Type) (sffi.NativeType, error) {
	return nil, errors.BadABI("native calls unavailable", errUnavailable)
}

func (r *Runtime) Prepare([]sffi.NativeType, sffi.NativeType, sffi.Convention) (sffi.CallInterface, error) {
	return nil, errors.BadABI("native calls unavailable", errUnavailable)
}

func (r *Runtime) Invoke(context.Context, sffi.CallInterface, sffi.Symbol, []byte, [][]byte) error {
	return errors.BadABI("native calls unavailable", errUnavailable)
}

func (r *Runtime) InvokeRaw(context.Context, sffi.CallInterface, sffi.Symbol, []byte, []byte) error {
	return errors.BadABI("native calls unavailable", errUnavailable)
}
