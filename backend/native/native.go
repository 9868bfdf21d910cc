//go:build cgo && (linux || darwin)

package native

/*
#cgo linux LDFLAGS: -ldl
#cgo pkg-config: libffi
#include <ffi.h>
#include <dlfcn.h>
#include <stdlib.h>
#include <string.h>

static void* sffi_dlopen(const char* path, int now, int global) {
	int flags = (now ? RTLD_NOW : RTLD_LAZY) | (global ? RTLD_GLOBAL : RTLD_LOCAL);
	return dlopen(path, flags);
}

static const char* sffi_dlerror(void) {
	return dlerror();
}

static void* sffi_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

static int sffi_dlclose(void* h) {
	return dlclose(h);
}

// Returns -1 when the convention has no libffi ABI on this target.
static int sffi_abi(int conv) {
	switch (conv) {
	case 0:
		return FFI_DEFAULT_ABI;
#if defined(__x86_64__) && !defined(_WIN32)
	case 1:
	case 2:
		return FFI_UNIX64;
	case 3:
		return FFI_WIN64;
#elif defined(__i386__)
	case 1:
		return FFI_SYSV;
#endif
	}
	return -1;
}

// Returns 0 on success, 1 bad typedef, 2 bad abi, 3 bad arg type, -1 OOM.
static int sffi_prep(ffi_cif** out, int abi, unsigned n, ffi_type* rtype, ffi_type** atypes) {
	ffi_cif* c = malloc(sizeof(ffi_cif));
	if (!c) return -1;
	ffi_status st = ffi_prep_cif(c, (ffi_abi)abi, n, rtype, atypes);
	switch (st) {
	case FFI_OK:
		*out = c;
		return 0;
	case FFI_BAD_TYPEDEF:
		free(c);
		return 1;
	case FFI_BAD_ABI:
		free(c);
		return 2;
	default:
		free(c);
		return 3;
	}
}

static void sffi_call(ffi_cif* cif, void* fn, void* rvalue, void** avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}

static size_t sffi_ld_size(void) { return sizeof(long double); }
static size_t sffi_ld_align(void) { return _Alignof(long double); }

static void sffi_to_ld(double v, void* out) {
	long double ld = (long double)v;
	memcpy(out, &ld, sizeof ld);
}

static double sffi_from_ld(const void* in) {
	long double ld;
	memcpy(&ld, in, sizeof ld);
	return (double)ld;
}

static ffi_type* sffi_struct_type(size_t n) {
	ffi_type* t = calloc(1, sizeof(ffi_type));
	if (!t) return NULL;
	t->type = FFI_TYPE_STRUCT;
	t->elements = calloc(n + 1, sizeof(ffi_type*));
	if (!t->elements) {
		free(t);
		return NULL;
	}
	return t;
}

static void sffi_struct_set(ffi_type* t, size_t i, ffi_type* e) {
	t->elements[i] = e;
}

static void sffi_struct_free(ffi_type* t) {
	free(t->elements);
	free(t);
}
*/
import "C"

import (
	"context"
	stderrors "errors"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
	"github.com/wippyai/sffi/value"
)

const ptrSize = C.size_t(unsafe.Sizeof(uintptr(0)))

func init() {
	longDoubleSize = int(C.sffi_ld_size())
	longDoubleAlign = int(C.sffi_ld_align())
}

// longDouble converts a binary64 slot to and from the host long double.
func longDouble(packed, nat []byte, toNatural bool) {
	if toNatural {
		C.sffi_to_ld(C.double(value.Float(descriptor.KindLongDouble, packed)), unsafe.Pointer(&nat[0]))
		return
	}
	v := float64(C.sffi_from_ld(unsafe.Pointer(&nat[0])))
	value.PutFloat(descriptor.KindLongDouble, packed, v)
}

// Runtime opens shared libraries and calls their functions through libffi.
// It implements sffi.Loader and sffi.Invoker.
type Runtime struct {
	cfg  Config
	heap *Heap
}

// New creates a runtime. A nil cfg uses RTLD_LAZY|RTLD_LOCAL.
func New(cfg *Config) *Runtime {
	r := &Runtime{heap: &Heap{}}
	if cfg != nil {
		r.cfg = *cfg
	}
	return r
}

// Heap returns the process heap.
func (r *Runtime) Heap() sffi.Heap { return r.heap }

// Image is a dlopen handle.
type Image struct {
	h    unsafe.Pointer
	heap *Heap
	path string
}

// Symbol is a resolved function address.
type Symbol struct {
	addr unsafe.Pointer
	name string
}

func (s *Symbol) Name() string  { return s.name }
func (s *Symbol) Addr() uintptr { return uintptr(s.addr) }

func dlerror() error {
	if e := C.sffi_dlerror(); e != nil {
		return stderrors.New(C.GoString(e))
	}
	return stderrors.New("unknown dlerror")
}

// Open loads the shared library at path. An empty path opens the main
// program.
func (r *Runtime) Open(_ context.Context, path string) (sffi.Image, error) {
	var cpath *C.char
	if path != "" {
		cpath = C.CString(path)
		defer C.free(unsafe.Pointer(cpath))
	}

	h := C.sffi_dlopen(cpath, boolInt(r.cfg.Now), boolInt(r.cfg.Global))
	if h == nil {
		return nil, errors.LibraryOpen(path, dlerror())
	}
	Logger().Debug("library opened", zap.String("path", path))
	return &Image{h: h, heap: r.heap, path: path}, nil
}

func boolInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// Resolve looks up name with dlsym.
func (img *Image) Resolve(name string) (sffi.Symbol, error) {
	if img.h == nil {
		return nil, errors.LibrarySymbol(name, stderrors.New("library closed"))
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var cerr *C.char
	p := C.sffi_dlsym(img.h, cname, &cerr)
	if cerr != nil {
		return nil, errors.LibrarySymbol(name, stderrors.New(C.GoString(cerr)))
	}
	if p == nil {
		return nil, errors.LibrarySymbol(name, stderrors.New("symbol resolves to NULL"))
	}
	return &Symbol{addr: p, name: name}, nil
}

// Heap returns the process heap.
func (img *Image) Heap() sffi.Heap { return img.heap }

// Close calls dlclose.
func (img *Image) Close(context.Context) error {
	if img.h == nil {
		return nil
	}
	h := img.h
	img.h = nil
	if C.sffi_dlclose(h) != 0 {
		err := dlerror()
		Logger().Warn("dlclose failed", zap.String("path", img.path), zap.Error(err))
		return errors.LibraryClose(err)
	}
	Logger().Debug("library closed", zap.String("path", img.path))
	return nil
}

// nativeType is a libffi type. Struct types are C-allocated and freed with
// the call interface that owns them.
type nativeType struct {
	t     descriptor.Type
	ft    *C.ffi_type
	nat   natural
	owned []*C.ffi_type
}

func (n *nativeType) free() {
	for _, ft := range n.owned {
		C.sffi_struct_free(ft)
	}
	n.owned = nil
}

// MapType maps t onto a libffi type.
func (r *Runtime) MapType(t descriptor.Type) (sffi.NativeType, error) {
	nt := &nativeType{t: t, nat: naturalOf(t)}
	ft, err := nt.build(t)
	if err != nil {
		nt.free()
		return nil, err
	}
	nt.ft = ft
	return nt, nil
}

func (n *nativeType) build(t descriptor.Type) (*C.ffi_type, error) {
	if t.IsAggregate() {
		st := C.sffi_struct_type(C.size_t(len(t.Fields)))
		if st == nil {
			return nil, errors.BadTypedef("out of memory", nil)
		}
		n.owned = append(n.owned, st)
		for i, f := range t.Fields {
			ft, err := n.build(f)
			if err != nil {
				return nil, err
			}
			C.sffi_struct_set(st, C.size_t(i), ft)
		}
		return st, nil
	}
	return scalarType(t)
}

func scalarType(t descriptor.Type) (*C.ffi_type, error) {
	k := t.Kind
	switch {
	case k == descriptor.KindAuto:
		return nil, errors.New(errors.PhasePrepare, errors.KindDescriptorSyntax).
			Detail("type 'auto' cannot be mapped").
			Build()
	case k == descriptor.KindVoid:
		return &C.ffi_type_void, nil
	case k.IsExtended():
		return &C.ffi_type_longdouble, nil
	case k.IsPointer():
		return &C.ffi_type_pointer, nil
	case k == descriptor.KindF32 || k == descriptor.KindFloat:
		return &C.ffi_type_float, nil
	case k == descriptor.KindF64 || k == descriptor.KindDouble:
		return &C.ffi_type_double, nil
	}

	signed := k.IsSigned()
	switch k.Size() {
	case 1:
		if signed {
			return &C.ffi_type_sint8, nil
		}
		return &C.ffi_type_uint8, nil
	case 2:
		if signed {
			return &C.ffi_type_sint16, nil
		}
		return &C.ffi_type_uint16, nil
	case 4:
		if signed {
			return &C.ffi_type_sint32, nil
		}
		return &C.ffi_type_uint32, nil
	case 8:
		if signed {
			return &C.ffi_type_sint64, nil
		}
		return &C.ffi_type_uint64, nil
	}
	return nil, errors.BadTypedef("type '"+t.String()+"' has no libffi equivalent", nil)
}

// callInterface owns a prepared cif, its argument type vector and the
// struct types referenced by it.
type callInterface struct {
	cif        *C.ffi_cif
	atypes     unsafe.Pointer
	args       []*nativeType
	ret        *nativeType
	argOffsets []int
	argBytes   int
	retBytes   int
	rawOffsets []int
	rawSize    int
}

// Prepare calls ffi_prep_cif. Errors are reported with the libffi status
// kinds.
func (r *Runtime) Prepare(args []sffi.NativeType, ret sffi.NativeType, conv sffi.Convention) (sffi.CallInterface, error) {
	abi := C.sffi_abi(C.int(conv))
	if abi < 0 {
		return nil, errors.BadABI("convention "+conv.String()+" is not available on "+runtime.GOARCH, nil)
	}

	ci := &callInterface{}
	types := make([]descriptor.Type, len(args))
	off := 0
	for i, a := range args {
		nt, ok := a.(*nativeType)
		if !ok {
			return nil, errors.BadTypedef("foreign native type", nil)
		}
		if nt.t.IsVoid() {
			return nil, errors.BadArgType("void argument", nil)
		}
		ci.args = append(ci.args, nt)
		off = alignUp(off, 16)
		ci.argOffsets = append(ci.argOffsets, off)
		off += nt.nat.size
		types[i] = nt.t
	}
	ci.argBytes = off

	// On failure the mapped types stay with the caller (ReleaseType).
	rt, ok := ret.(*nativeType)
	if !ok {
		return nil, errors.BadTypedef("foreign native type", nil)
	}
	ci.ret = rt
	// libffi widens integral returns to ffi_arg.
	ci.retBytes = max(rt.nat.size, int(ptrSize))
	ci.rawOffsets, ci.rawSize = layout.Raw(types)

	n := len(args)
	if n > 0 {
		ci.atypes = C.malloc(C.size_t(n) * ptrSize)
		if ci.atypes == nil {
			return nil, errors.BadTypedef("out of memory", nil)
		}
		vec := unsafe.Slice((**C.ffi_type)(ci.atypes), n)
		for i, a := range ci.args {
			vec[i] = a.ft
		}
	}

	var cif *C.ffi_cif
	switch C.sffi_prep(&cif, abi, C.uint(n), rt.ft, (**C.ffi_type)(ci.atypes)) {
	case 0:
		ci.cif = cif
		return ci, nil
	case 1:
		ci.freeCIF()
		return nil, errors.BadTypedef("ffi_prep_cif rejected a type definition", nil)
	case 2:
		ci.freeCIF()
		return nil, errors.BadABI("ffi_prep_cif rejected convention "+conv.String(), nil)
	case 3:
		ci.freeCIF()
		return nil, errors.BadArgType("ffi_prep_cif rejected an argument type", nil)
	default:
		ci.freeCIF()
		return nil, errors.BadTypedef("out of memory", nil)
	}
}

func (ci *callInterface) freeCIF() {
	if ci.cif != nil {
		C.free(unsafe.Pointer(ci.cif))
		ci.cif = nil
	}
	if ci.atypes != nil {
		C.free(ci.atypes)
		ci.atypes = nil
	}
}

func (ci *callInterface) release() {
	ci.freeCIF()
	for _, a := range ci.args {
		a.free()
	}
	if ci.ret != nil {
		ci.ret.free()
	}
}

// ReleaseType frees a mapped type that never reached a prepared call
// interface.
func (r *Runtime) ReleaseType(nt sffi.NativeType) {
	if n, ok := nt.(*nativeType); ok {
		n.free()
	}
}

// Release frees the C memory held by a prepared call interface.
func (r *Runtime) Release(ci sffi.CallInterface) error {
	c, ok := ci.(*callInterface)
	if !ok {
		return errors.InvalidArguments(errors.PhaseCall, "call interface was not prepared by the native runtime")
	}
	c.release()
	return nil
}

// Invoke copies args into C memory, calls the symbol and copies the return
// value into result.
func (r *Runtime) Invoke(_ context.Context, ci sffi.CallInterface, sym sffi.Symbol, result []byte, args [][]byte) error {
	c, ok := ci.(*callInterface)
	if !ok || c.cif == nil {
		return errors.InvalidArguments(errors.PhaseCall, "call interface was not prepared by the native runtime")
	}
	s, ok := sym.(*Symbol)
	if !ok {
		return errors.InvalidArguments(errors.PhaseCall, "symbol %s was not resolved by the native runtime", sym.Name())
	}
	if len(args) != len(c.args) {
		return errors.CountMismatch(errors.PhaseCall, "invalid arguments count", len(args), len(c.args))
	}

	retOff := alignUp(max(c.argBytes, 1), 16)
	block := C.calloc(1, C.size_t(retOff+c.retBytes))
	if block == nil {
		return errors.InvalidArguments(errors.PhaseCall, "out of memory")
	}
	defer C.free(block)
	mem := unsafe.Slice((*byte)(block), retOff+c.retBytes)
	retMem := mem[retOff:]

	var argv unsafe.Pointer
	if n := len(c.args); n > 0 {
		argv = C.malloc(C.size_t(n) * ptrSize)
		if argv == nil {
			return errors.InvalidArguments(errors.PhaseCall, "out of memory")
		}
		defer C.free(argv)
		vec := unsafe.Slice((*unsafe.Pointer)(argv), n)
		for i, a := range c.args {
			off := c.argOffsets[i]
			repack(a.t, a.nat, args[i], mem[off:off+a.nat.size], true, longDouble)
			vec[i] = unsafe.Add(block, off)
		}
	}

	C.sffi_call(c.cif, s.addr, unsafe.Pointer(&retMem[0]), (*unsafe.Pointer)(argv))

	if !c.ret.t.IsVoid() {
		repack(c.ret.t, c.ret.nat, result, retMem[:c.ret.nat.size], false, longDouble)
	}
	return nil
}

// InvokeRaw splits flat as computed by layout.Raw and calls Invoke.
func (r *Runtime) InvokeRaw(ctx context.Context, ci sffi.CallInterface, sym sffi.Symbol, result []byte, flat []byte) error {
	c, ok := ci.(*callInterface)
	if !ok {
		return errors.InvalidArguments(errors.PhaseCall, "call interface was not prepared by the native runtime")
	}
	if len(flat) < c.rawSize {
		return errors.InvalidArguments(errors.PhaseCall,
			"raw argument buffer too small (%d / %d)", len(flat), c.rawSize)
	}
	args := make([][]byte, len(c.args))
	for i, a := range c.args {
		off := c.rawOffsets[i]
		args[i] = flat[off : off+a.t.Size()]
	}
	return r.Invoke(ctx, ci, sym, result, args)
}
