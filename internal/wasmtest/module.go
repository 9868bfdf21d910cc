// Package wasmtest builds small WebAssembly core modules for tests.
package wasmtest

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"

	secType     = 1
	secFunction = 3
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
	secData     = 11

	exportFunc   = 0x00
	exportMemory = 0x02
	funcTypeByte = 0x60
)

// Func is an exported function.
type Func struct {
	Name    string
	Params  []byte
	Results []byte
	Locals  []byte
	Body    *Code
}

// Global is a mutable i32 global.
type Global struct {
	Init int32
}

// Data is an active data segment in memory 0.
type Data struct {
	Offset int32
	Bytes  []byte
}

// Module is a core module with one exported memory.
type Module struct {
	Funcs       []Func
	Globals     []Global
	Data        []Data
	MemoryPages uint32
	MemoryName  string
}

// Encode returns the binary encoding of m.
func (m *Module) Encode() []byte {
	var w writer
	w.bytes([]byte(magic))
	w.bytes([]byte(version))

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			sec.byte(funcTypeByte)
			sec.vec(f.Params)
			sec.vec(f.Results)
		}
		w.section(secType, &sec)

		var fsec writer
		fsec.u32(uint32(len(m.Funcs)))
		for i := range m.Funcs {
			fsec.u32(uint32(i))
		}
		w.section(secFunction, &fsec)
	}

	if m.MemoryPages > 0 {
		var sec writer
		sec.u32(1)
		sec.byte(0x00)
		sec.u32(m.MemoryPages)
		w.section(secMemory, &sec)
	}

	if len(m.Globals) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.byte(I32)
			sec.byte(0x01)
			sec.byte(opI32Const)
			sec.s64(int64(g.Init))
			sec.byte(opEnd)
		}
		w.section(secGlobal, &sec)
	}

	var exp writer
	n := len(m.Funcs)
	if m.MemoryPages > 0 {
		n++
	}
	exp.u32(uint32(n))
	for i, f := range m.Funcs {
		exp.name(f.Name)
		exp.byte(exportFunc)
		exp.u32(uint32(i))
	}
	if m.MemoryPages > 0 {
		name := m.MemoryName
		if name == "" {
			name = "memory"
		}
		exp.name(name)
		exp.byte(exportMemory)
		exp.u32(0)
	}
	w.section(secExport, &exp)

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body writer
			body.u32(uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body.u32(1)
				body.byte(l)
			}
			body.bytes(f.Body.Bytes())
			sec.vec(body.buf.Bytes())
		}
		w.section(secCode, &sec)
	}

	if len(m.Data) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.u32(0)
			sec.byte(opI32Const)
			sec.s64(int64(d.Offset))
			sec.byte(opEnd)
			sec.vec(d.Bytes)
		}
		w.section(secData, &sec)
	}

	return w.buf.Bytes()
}
