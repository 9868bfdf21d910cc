// Package wasm loads WebAssembly core modules with wazero and calls their
// exports through descriptors.
//
// A library image is an instantiated module. Symbols are its exported
// functions and its heap is the exported linear memory together with the
// module's allocator (cabi_realloc, canonical_abi_realloc, allocate, alloc
// or malloc, freed through cabi_free, deallocate or free).
//
// Types map onto the wasm32 C ABI: integers of up to 32 bits travel as i32,
// 64-bit integers as i64, pointers and platform-width integers as i32 guest
// addresses. Aggregates are passed indirectly: the argument is copied into
// guest memory and its address is passed instead. Aggregates may not hold
// pointer-width or 128-bit fields, and aggregates cannot be returned.
//
//	rt, err := wasm.New(ctx, nil)
//	lib, err := library.Open(ctx, rt, rt, "math.wasm")
//	add, err := lib.Func(ctx, "add", "(i32,i32)i32")
package wasm
