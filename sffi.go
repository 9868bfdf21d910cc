package sffi

import (
	"context"

	"github.com/wippyai/sffi/descriptor"
)

// Convention selects the calling convention a call interface is prepared for.
type Convention uint8

const (
	ConventionDefault Convention = iota
	ConventionSysV
	ConventionUnix64
	ConventionWin64
)

func (c Convention) String() string {
	switch c {
	case ConventionDefault:
		return "default"
	case ConventionSysV:
		return "sysv"
	case ConventionUnix64:
		return "unix64"
	case ConventionWin64:
		return "win64"
	}
	return "unknown"
}

// Symbol is a resolved entry point of a library image.
type Symbol interface {
	Name() string
	Addr() uintptr
}

// Image is a loaded library.
type Image interface {
	Resolve(name string) (Symbol, error)
	Close(ctx context.Context) error
}

// Loader opens library images by path.
type Loader interface {
	Open(ctx context.Context, path string) (Image, error)
}

// NativeType is an invoker-specific type description produced by MapType.
type NativeType any

// CallInterface is an invoker-specific prepared call description.
type CallInterface any

// Invoker prepares and performs calls with a concrete ABI.
//
// Invoke reads every argument from args[i], which holds at least the size of
// the i-th argument type, and writes the return value into result, which is
// nil for void functions. InvokeRaw takes the arguments packed into flat as
// computed by layout.Raw.
type Invoker interface {
	MapType(t descriptor.Type) (NativeType, error)
	Prepare(args []NativeType, ret NativeType, conv Convention) (CallInterface, error)
	Invoke(ctx context.Context, ci CallInterface, sym Symbol, result []byte, args [][]byte) error
	InvokeRaw(ctx context.Context, ci CallInterface, sym Symbol, result []byte, flat []byte) error
}

// Heap is foreign memory addressed by word-sized pointers.
type Heap interface {
	// Alloc returns the address of size new bytes and a view of them.
	// The view is valid until the next allocation.
	Alloc(size int) (addr uint64, mem []byte, err error)
	Free(addr uint64) error
	// View returns size bytes at addr.
	View(addr uint64, size int) ([]byte, error)
	// Strdup duplicates the NUL-terminated string at addr.
	Strdup(addr uint64) (uint64, error)
	// CString copies s into a new NUL-terminated allocation.
	CString(s string) (uint64, error)
	// GoString reads the NUL-terminated string at addr.
	GoString(addr uint64) (string, error)
}

// HeapProvider is implemented by images, symbols and invokers that expose
// the memory their functions operate on.
type HeapProvider interface {
	Heap() Heap
}

// Describer is implemented by images that can report a function's descriptor.
type Describer interface {
	Describe(name string) (string, error)
}

// Enumerator is implemented by images that can list their symbols.
type Enumerator interface {
	Symbols() []string
}

// SymbolChecker is implemented by invokers that can verify a prepared call
// interface against the symbol's real signature.
type SymbolChecker interface {
	CheckSymbol(ci CallInterface, sym Symbol) error
}

// Releaser is implemented by invokers whose call interfaces own memory that
// must be freed when the function handle is dropped.
type Releaser interface {
	Release(ci CallInterface) error
}

// TypeReleaser is implemented by invokers whose native types own memory
// until a call interface is prepared from them. Once Prepare succeeds the
// call interface owns the types and Releaser frees them.
type TypeReleaser interface {
	ReleaseType(nt NativeType)
}
