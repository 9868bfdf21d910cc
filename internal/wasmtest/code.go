package wasmtest

// Opcodes used by the fixtures.
const (
	opBlock     = 0x02
	opLoop      = 0x03
	opBr        = 0x0C
	opBrIf      = 0x0D
	opEnd       = 0x0B
	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Load   = 0x28
	opI32Load8U = 0x2D
	opI32Store  = 0x36
	opI32Const  = 0x41
	opI32Eqz    = 0x45
	opI32Add    = 0x6A
	opI32Sub    = 0x6B
	opI32And    = 0x71
	opI64Add    = 0x7C
	opF32Add    = 0x92
	opF64Add    = 0xA0

	blockEmpty = 0x40
)

// Code assembles a function body.
type Code struct {
	w writer
}

func (c *Code) op(b byte) *Code { c.w.byte(b); return c }

func (c *Code) LocalGet(i uint32) *Code  { c.w.byte(opLocalGet); c.w.u32(i); return c }
func (c *Code) LocalSet(i uint32) *Code  { c.w.byte(opLocalSet); c.w.u32(i); return c }
func (c *Code) GlobalGet(i uint32) *Code { c.w.byte(opGlobalGet); c.w.u32(i); return c }
func (c *Code) GlobalSet(i uint32) *Code { c.w.byte(opGlobalSet); c.w.u32(i); return c }

func (c *Code) I32Const(v int32) *Code { c.w.byte(opI32Const); c.w.s64(int64(v)); return c }

// I32Load loads from the address on the stack plus offset.
func (c *Code) I32Load(offset uint32) *Code {
	c.w.byte(opI32Load)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

func (c *Code) I32Load8U(offset uint32) *Code {
	c.w.byte(opI32Load8U)
	c.w.u32(0)
	c.w.u32(offset)
	return c
}

// I32Store stores the top of stack at the address below it plus offset.
func (c *Code) I32Store(offset uint32) *Code {
	c.w.byte(opI32Store)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

func (c *Code) Block() *Code            { c.w.byte(opBlock); c.w.byte(blockEmpty); return c }
func (c *Code) Loop() *Code             { c.w.byte(opLoop); c.w.byte(blockEmpty); return c }
func (c *Code) Br(depth uint32) *Code   { c.w.byte(opBr); c.w.u32(depth); return c }
func (c *Code) BrIf(depth uint32) *Code { c.w.byte(opBrIf); c.w.u32(depth); return c }
func (c *Code) End() *Code              { return c.op(opEnd) }

func (c *Code) I32Add() *Code { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code { return c.op(opI32Sub) }
func (c *Code) I32And() *Code { return c.op(opI32And) }
func (c *Code) I32Eqz() *Code { return c.op(opI32Eqz) }
func (c *Code) I64Add() *Code { return c.op(opI64Add) }
func (c *Code) F32Add() *Code { return c.op(opF32Add) }
func (c *Code) F64Add() *Code { return c.op(opF64Add) }

// Bytes returns the assembled instructions.
func (c *Code) Bytes() []byte { return c.w.buf.Bytes() }
