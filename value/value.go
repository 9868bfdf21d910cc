// Package value reads and writes scalar values in host byte order, sized
// by descriptor kind. Buffers passed to calls, aggregates and adapters all
// use this representation.
//
// 16-byte float slots (longdouble, f128) hold a binary64 value in their
// first 8 bytes; the remaining bytes are zero.
package value

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/sffi/descriptor"
)

var order = binary.NativeEndian

// New returns a zeroed buffer sized for t.
func New(t descriptor.Type) []byte {
	return make([]byte, t.Size())
}

// Constructors for single values.

func I8(v int8) []byte {
	b := make([]byte, 1)
	b[0] = byte(v)
	return b
}

func U8(v uint8) []byte {
	b := make([]byte, 1)
	b[0] = v
	return b
}

func I16(v int16) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, uint16(v))
	return b
}

func U16(v uint16) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return b
}

func I32(v int32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, uint32(v))
	return b
}

func U32(v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

func I64(v int64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, uint64(v))
	return b
}

func U64(v uint64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return b
}

func F32(v float32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, math.Float32bits(v))
	return b
}

func F64(v float64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, math.Float64bits(v))
	return b
}

// Word returns a word-sized buffer holding an address or platform-width integer.
func Word(v uint64) []byte {
	b := make([]byte, descriptor.WordSize)
	PutWord(b, v)
	return b
}

// Readers for single values. Each panics if b is shorter than the value.

func ReadI32(b []byte) int32   { return int32(order.Uint32(b)) }
func ReadU32(b []byte) uint32  { return order.Uint32(b) }
func ReadI64(b []byte) int64   { return int64(order.Uint64(b)) }
func ReadU64(b []byte) uint64  { return order.Uint64(b) }
func ReadF32(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) }
func ReadF64(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }

// ReadWord reads a word-sized value.
func ReadWord(b []byte) uint64 {
	if descriptor.WordSize == 4 {
		return uint64(order.Uint32(b))
	}
	return order.Uint64(b)
}

// PutWord writes a word-sized value, truncating on 32-bit hosts.
func PutWord(b []byte, v uint64) {
	if descriptor.WordSize == 4 {
		order.PutUint32(b, uint32(v))
		return
	}
	order.PutUint64(b, v)
}

// Int reads a signed integer of kind k, sign-extended to 64 bits.
func Int(k descriptor.Kind, b []byte) int64 {
	switch k.Size() {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(order.Uint16(b)))
	case 4:
		return int64(int32(order.Uint32(b)))
	default:
		return int64(order.Uint64(b))
	}
}

// Uint reads an unsigned integer of kind k, zero-extended to 64 bits.
func Uint(k descriptor.Kind, b []byte) uint64 {
	switch k.Size() {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

// Float reads a float of kind k as float64.
func Float(k descriptor.Kind, b []byte) float64 {
	if k.Size() == 4 {
		return float64(math.Float32frombits(order.Uint32(b)))
	}
	return math.Float64frombits(order.Uint64(b))
}

// PutBits writes the low k.Size() bytes of v. Integers narrow by
// two's-complement truncation.
func PutBits(k descriptor.Kind, b []byte, v uint64) {
	switch k.Size() {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	case 8:
		order.PutUint64(b, v)
	case 16:
		order.PutUint64(b, v)
		clear(b[8:16])
	}
}

// PutInt stores a signed value into a numeric slot of kind k.
func PutInt(k descriptor.Kind, b []byte, v int64) {
	if k.IsFloat() {
		PutFloat(k, b, float64(v))
		return
	}
	PutBits(k, b, uint64(v))
}

// PutUint stores an unsigned value into a numeric slot of kind k.
func PutUint(k descriptor.Kind, b []byte, v uint64) {
	if k.IsFloat() {
		PutFloat(k, b, float64(v))
		return
	}
	PutBits(k, b, v)
}

// PutFloat stores a float into a numeric slot of kind k. Conversion to an
// integer kind truncates toward zero and saturates: NaN stores 0 and values
// outside the kind's range store its minimum or maximum.
func PutFloat(k descriptor.Kind, b []byte, v float64) {
	switch {
	case k.IsFloat() && k.Size() == 4:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case k.IsFloat():
		PutBits(k, b, math.Float64bits(v))
	case k.IsUnsigned():
		PutBits(k, b, saturateUint(v, k.Size()*8))
	default:
		PutBits(k, b, uint64(saturateInt(v, k.Size()*8)))
	}
}

func saturateUint(v float64, bits int) uint64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.Ldexp(1, bits):
		return math.MaxUint64 >> (64 - bits)
	}
	return uint64(v)
}

func saturateInt(v float64, bits int) int64 {
	lim := math.Ldexp(1, bits-1)
	switch {
	case math.IsNaN(v):
		return 0
	case v >= lim:
		return math.MaxInt64 >> (64 - bits)
	case v < -lim:
		return math.MinInt64 >> (64 - bits)
	}
	return int64(v)
}
