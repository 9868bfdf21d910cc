// Package sffi is a dynamic foreign function engine: it resolves symbols in
// loaded library images and calls them using signatures described by text
// at run time, with no compile-time knowledge of the callee.
//
// # Architecture Overview
//
//	sffi/               Root package with the collaborator contracts
//	├── descriptor/     Type descriptor language: parser, formatter, sizes
//	├── layout/         Packed aggregate layouts and checked buffers
//	├── signature/      Function signatures
//	├── dispatch/       Prepared function handles (marshalled and raw calls)
//	├── adapter/        Coercion between caller and callee representations
//	├── value/          Host-order value buffers and text conversion
//	├── library/        Library handles with a symbol cache
//	├── backend/wasm/   Loader and invoker over WebAssembly modules (wazero)
//	├── backend/native/ Loader and invoker over dlopen and libffi (cgo)
//	├── handle/         Opaque handle table for exposure layers
//	└── errors/         Structured error types with numeric codes
//
// # Quick Start
//
//	be, err := wasm.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer be.Close(ctx)
//
//	lib, err := library.Open(ctx, be, be, "math.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close(ctx)
//
//	add, err := lib.Func(ctx, "add", "(i32,i32)i32")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ad, _ := adapter.Parse("(f32,f32)f32")
//	a, b, out := value.F32(1.444), value.F32(2.333), make([]byte, 4)
//	err = ad.Call(ctx, add, out, [][]byte{a, b})
//
// Values cross the API as byte slices in host byte order, each at least as
// large as the size of its descriptor type.
package sffi
