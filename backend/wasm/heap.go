package wasm

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/internal/textconv"
)

// Allocator exports, in order of preference.
var (
	allocNames = []string{"cabi_realloc", "canonical_abi_realloc", "allocate", "alloc", "malloc"}
	freeNames  = []string{"cabi_free", "deallocate", "free"}
)

// Heap is a module's linear memory addressed through its allocator.
type Heap struct {
	mem     api.Memory
	allocFn api.Function
	freeFn  api.Function
	enc     textconv.Encoding
	// realloc-style allocators take (old, oldSize, align, size).
	realloc bool
}

func newHeap(mod api.Module, mem api.Memory, enc textconv.Encoding) *Heap {
	h := &Heap{mem: mem, enc: enc}
	for _, name := range allocNames {
		if fn := mod.ExportedFunction(name); fn != nil {
			h.allocFn = fn
			h.realloc = len(fn.Definition().ParamTypes()) >= 4
			break
		}
	}
	for _, name := range freeNames {
		if fn := mod.ExportedFunction(name); fn != nil {
			h.freeFn = fn
			break
		}
	}
	return h
}

// Alloc allocates size bytes in guest memory.
func (h *Heap) Alloc(size int) (uint64, []byte, error) {
	return h.alloc(context.Background(), size)
}

func (h *Heap) alloc(ctx context.Context, size int) (uint64, []byte, error) {
	if h.allocFn == nil {
		return 0, nil, errors.InvalidArguments(errors.PhaseCall, "module exports no allocator")
	}
	if size < 0 || uint64(size) > math.MaxUint32 {
		return 0, nil, errors.InvalidArguments(errors.PhaseCall, "invalid allocation size %d", size)
	}

	var stack []uint64
	if h.realloc {
		stack = []uint64{0, 0, 8, uint64(size)}
	} else {
		stack = []uint64{uint64(size)}
	}
	if err := h.allocFn.CallWithStack(ctx, stack); err != nil {
		return 0, nil, errors.Wrap(errors.PhaseCall, errors.KindInvalidArguments, err, "guest allocation")
	}

	addr := api.DecodeU32(stack[0])
	if addr == 0 && size > 0 {
		return 0, nil, errors.InvalidArguments(errors.PhaseCall, "guest allocation of %d bytes failed", size)
	}
	mem, ok := h.mem.Read(addr, uint32(size))
	if !ok {
		return 0, nil, outOfBounds(uint64(addr), size)
	}
	return uint64(addr), mem, nil
}

// Free releases an allocation. Without an exported free it does nothing.
func (h *Heap) Free(addr uint64) error {
	return h.free(context.Background(), addr)
}

func (h *Heap) free(ctx context.Context, addr uint64) error {
	if addr == 0 {
		return nil
	}
	if h.freeFn == nil {
		Logger().Debug("module exports no free, leaking allocation", zap.Uint64("addr", addr))
		return nil
	}
	def := h.freeFn.Definition()
	stack := make([]uint64, max(len(def.ParamTypes()), len(def.ResultTypes()), 1))
	stack[0] = addr
	if len(def.ParamTypes()) >= 3 {
		// cabi_free-style (ptr, size, align); size is unknown here.
		stack[2] = 8
	}
	if err := h.freeFn.CallWithStack(ctx, stack); err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindInvalidArguments, err, "guest free")
	}
	return nil
}

// View returns size bytes of guest memory at addr. The view is invalidated
// when memory grows.
func (h *Heap) View(addr uint64, size int) ([]byte, error) {
	if size < 0 || addr > uint64(h.mem.Size()) {
		return nil, outOfBounds(addr, size)
	}
	b, ok := h.mem.Read(uint32(addr), uint32(size))
	if !ok {
		return nil, outOfBounds(addr, size)
	}
	return b, nil
}

// terminated returns the bytes at addr up to and including the terminator.
func (h *Heap) terminated(addr uint64) ([]byte, error) {
	if addr == 0 {
		return nil, errors.NativeToString("null string pointer", nil)
	}
	size := uint64(h.mem.Size())
	if addr >= size {
		return nil, errors.NativeToString(fmt.Sprintf("string pointer 0x%x out of bounds", addr), nil)
	}
	rest, _ := h.mem.Read(uint32(addr), uint32(size-addr))
	end := textconv.Terminator(h.enc, rest)
	if end < 0 {
		return nil, errors.NativeToString(fmt.Sprintf("unterminated string at 0x%x", addr), nil)
	}
	return rest[:end+h.enc.Unit()], nil
}

// GoString decodes the NUL-terminated string at addr.
func (h *Heap) GoString(addr uint64) (string, error) {
	b, err := h.terminated(addr)
	if err != nil {
		return "", err
	}
	return textconv.Decode(h.enc, b[:len(b)-h.enc.Unit()])
}

// CString copies s into a new NUL-terminated allocation.
func (h *Heap) CString(s string) (uint64, error) {
	b, err := textconv.Encode(h.enc, s)
	if err != nil {
		return 0, err
	}
	return h.copyIn(b)
}

// Strdup copies the NUL-terminated string at addr into a new allocation.
func (h *Heap) Strdup(addr uint64) (uint64, error) {
	b, err := h.terminated(addr)
	if err != nil {
		return 0, err
	}
	// Allocation may grow memory and invalidate b.
	return h.copyIn(append([]byte(nil), b...))
}

func (h *Heap) copyIn(b []byte) (uint64, error) {
	addr, mem, err := h.Alloc(len(b))
	if err != nil {
		return 0, err
	}
	copy(mem, b)
	return addr, nil
}

func outOfBounds(addr uint64, size int) error {
	return errors.InvalidArguments(errors.PhaseCall, "guest memory access out of bounds (0x%x+%d)", addr, size)
}
