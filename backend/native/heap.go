//go:build cgo && (linux || darwin)

package native

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/internal/textconv"
)

// Heap is the process heap managed by the C allocator. Addresses are raw
// pointers; reading an invalid one crashes the process.
type Heap struct{}

func (h *Heap) Alloc(size int) (uint64, []byte, error) {
	if size < 0 {
		return 0, nil, errors.InvalidArguments(errors.PhaseCall, "invalid allocation size %d", size)
	}
	p := C.malloc(C.size_t(max(size, 1)))
	if p == nil {
		return 0, nil, errors.InvalidArguments(errors.PhaseCall, "malloc(%d) failed", size)
	}
	return uint64(uintptr(p)), unsafe.Slice((*byte)(p), size), nil
}

func (h *Heap) Free(addr uint64) error {
	C.free(ptr(addr))
	return nil
}

func (h *Heap) View(addr uint64, size int) ([]byte, error) {
	if addr == 0 {
		return nil, errors.InvalidArguments(errors.PhaseCall, "view of NULL")
	}
	if size < 0 {
		return nil, errors.InvalidArguments(errors.PhaseCall, "invalid view size %d", size)
	}
	return unsafe.Slice((*byte)(ptr(addr)), size), nil
}

func (h *Heap) Strdup(addr uint64) (uint64, error) {
	if addr == 0 {
		return 0, errors.StringToNative("strdup of NULL", nil)
	}
	p := C.strdup((*C.char)(ptr(addr)))
	if p == nil {
		return 0, errors.StringToNative("strdup failed", nil)
	}
	return uint64(uintptr(unsafe.Pointer(p))), nil
}

func (h *Heap) CString(s string) (uint64, error) {
	b, err := textconv.Encode(textconv.UTF8, s)
	if err != nil {
		return 0, err
	}
	addr, mem, err := h.Alloc(len(b))
	if err != nil {
		return 0, err
	}
	copy(mem, b)
	return addr, nil
}

func (h *Heap) GoString(addr uint64) (string, error) {
	if addr == 0 {
		return "", errors.NativeToString("NULL string", nil)
	}
	n := int(C.strlen((*C.char)(ptr(addr))))
	return textconv.Decode(textconv.UTF8, unsafe.Slice((*byte)(ptr(addr)), n))
}

//go:nocheckptr
func ptr(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}
