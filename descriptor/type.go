package descriptor

import "strings"

// Type is a node of the descriptor type tree. Fields is set only for
// KindAggregate and holds the ordered field types.
type Type struct {
	Fields []Type
	Kind   Kind
}

// Of returns the scalar type of kind k.
func Of(k Kind) Type {
	return Type{Kind: k}
}

// Aggregate returns a packed aggregate of the given fields.
func Aggregate(fields ...Type) Type {
	if fields == nil {
		fields = []Type{}
	}
	return Type{Kind: KindAggregate, Fields: fields}
}

// Common scalar types.
var (
	Auto    = Of(KindAuto)
	Void    = Of(KindVoid)
	I32     = Of(KindI32)
	I64     = Of(KindI64)
	U32     = Of(KindU32)
	F32     = Of(KindF32)
	F64     = Of(KindF64)
	Pointer = Of(KindPointer)
)

func (t Type) IsAuto() bool      { return t.Kind == KindAuto }
func (t Type) IsVoid() bool      { return t.Kind == KindVoid }
func (t Type) IsAggregate() bool { return t.Kind == KindAggregate }

// Size returns the packed size of t in bytes.
func (t Type) Size() int {
	if t.Kind != KindAggregate {
		return t.Kind.Size()
	}
	size := 0
	for _, f := range t.Fields {
		size += f.Size()
	}
	return size
}

// ContainsAuto reports whether Auto appears anywhere in t.
func (t Type) ContainsAuto() bool {
	if t.Kind == KindAuto {
		return true
	}
	for _, f := range t.Fields {
		if f.ContainsAuto() {
			return true
		}
	}
	return false
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != KindAggregate {
		return true
	}
	if len(t.Fields) != len(o.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// String formats t in descriptor syntax; the output parses back to an equal Type.
func (t Type) String() string {
	if t.Kind != KindAggregate {
		return t.Kind.String()
	}
	var b strings.Builder
	writeAggregate(&b, t.Fields)
	return b.String()
}

func writeAggregate(b *strings.Builder, fields []Type) {
	b.WriteByte('[')
	writeList(b, fields)
	b.WriteByte(']')
}

func writeList(b *strings.Builder, types []Type) {
	for i, f := range types {
		if i > 0 {
			b.WriteByte(',')
		}
		if f.Kind == KindAggregate {
			writeAggregate(b, f.Fields)
		} else {
			b.WriteString(f.Kind.String())
		}
	}
}

// FormatFunc formats a function descriptor.
func FormatFunc(args []Type, ret Type) string {
	var b strings.Builder
	b.WriteByte('(')
	writeList(&b, args)
	b.WriteByte(')')
	b.WriteString(ret.String())
	return b.String()
}
