package wasmtest

// HeapBase is where the fixture's bump allocator starts.
const HeapBase = 1024

// GreetingAddr is the address of the NUL-terminated "hello" in the fixture.
const GreetingAddr = 16

// LibraryWIT declares the fixture's exports in WIT function syntax.
const LibraryWIT = `
add: func(a: s32, b: s32) -> s32;
fadd: func(a: f32, b: f32) -> f32;
strlen: func(s: u32) -> u32;
`

// Library returns a module exporting:
//
//	add(i32,i32)i32, add64(i64,i64)i64, fadd(f32,f32)f32, dadd(f64,f64)f64
//	sadd(p): p[2] = p[0] + p[1] over i32 fields
//	ssum(p) i32: p[0] + p[1], for an aggregate passed indirectly
//	strlen(s) i32, greeting() i32
//	malloc(n) i32 as a bump allocator, free(p) as a no-op
//	memory
func Library() []byte {
	m := Module{
		MemoryPages: 1,
		Globals:     []Global{{Init: HeapBase}},
		Data:        []Data{{Offset: GreetingAddr, Bytes: []byte("hello\x00")}},
		Funcs: []Func{
			{
				Name: "add", Params: []byte{I32, I32}, Results: []byte{I32},
				Body: new(Code).LocalGet(0).LocalGet(1).I32Add().End(),
			},
			{
				Name: "add64", Params: []byte{I64, I64}, Results: []byte{I64},
				Body: new(Code).LocalGet(0).LocalGet(1).I64Add().End(),
			},
			{
				Name: "fadd", Params: []byte{F32, F32}, Results: []byte{F32},
				Body: new(Code).LocalGet(0).LocalGet(1).F32Add().End(),
			},
			{
				Name: "dadd", Params: []byte{F64, F64}, Results: []byte{F64},
				Body: new(Code).LocalGet(0).LocalGet(1).F64Add().End(),
			},
			{
				Name: "sadd", Params: []byte{I32},
				Body: new(Code).
					LocalGet(0).
					LocalGet(0).I32Load(0).
					LocalGet(0).I32Load(4).
					I32Add().
					I32Store(8).
					End(),
			},
			{
				Name: "ssum", Params: []byte{I32}, Results: []byte{I32},
				Body: new(Code).
					LocalGet(0).I32Load(0).
					LocalGet(0).I32Load(4).
					I32Add().
					End(),
			},
			{
				Name: "strlen", Params: []byte{I32}, Results: []byte{I32}, Locals: []byte{I32},
				Body: new(Code).
					Block().
					Loop().
					LocalGet(0).LocalGet(1).I32Add().I32Load8U(0).I32Eqz().BrIf(1).
					LocalGet(1).I32Const(1).I32Add().LocalSet(1).
					Br(0).
					End().
					End().
					LocalGet(1).
					End(),
			},
			{
				Name: "greeting", Results: []byte{I32},
				Body: new(Code).I32Const(GreetingAddr).End(),
			},
			{
				Name: "malloc", Params: []byte{I32}, Results: []byte{I32},
				Body: new(Code).
					GlobalGet(0).
					GlobalGet(0).
					LocalGet(0).I32Const(7).I32Add().I32Const(-8).I32And().
					I32Add().
					GlobalSet(0).
					End(),
			},
			{
				Name: "free", Params: []byte{I32},
				Body: new(Code).End(),
			},
		},
	}
	return m.Encode()
}
