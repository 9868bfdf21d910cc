package native

import "github.com/wippyai/sffi/descriptor"

// Host long double geometry. The cgo build sets these from the C compiler.
var (
	longDoubleSize  = 16
	longDoubleAlign = 16
)

// extConv converts one extended-float slot between its packed binary64
// form and the host long double. nil copies bytes unchanged.
type extConv func(packed, nat []byte, toNatural bool)

// natural describes the C layout of a type on the host.
type natural struct {
	fields  []natural
	offsets []int
	size    int
	align   int
}

func naturalOf(t descriptor.Type) natural {
	if t.Kind.IsExtended() {
		return natural{size: longDoubleSize, align: longDoubleAlign}
	}
	if !t.IsAggregate() {
		n := t.Size()
		return natural{size: n, align: max(n, 1)}
	}
	var nt natural
	nt.align = 1
	off := 0
	for _, f := range t.Fields {
		fn := naturalOf(f)
		off = alignUp(off, fn.align)
		nt.fields = append(nt.fields, fn)
		nt.offsets = append(nt.offsets, off)
		off += fn.size
		nt.align = max(nt.align, fn.align)
	}
	nt.size = alignUp(max(off, 1), nt.align)
	return nt
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

// repack copies between a packed buffer and a natural one. toNatural
// selects the direction. Extended floats go through ext.
func repack(t descriptor.Type, nt natural, packed, nat []byte, toNatural bool, ext extConv) {
	if t.Kind.IsExtended() && ext != nil {
		ext(packed, nat, toNatural)
		return
	}
	if !t.IsAggregate() {
		n := t.Size()
		if toNatural {
			copy(nat[:n], packed[:n])
		} else {
			copy(packed[:n], nat[:n])
		}
		return
	}
	poff := 0
	for i, f := range t.Fields {
		size := f.Size()
		noff := nt.offsets[i]
		repack(f, nt.fields[i], packed[poff:poff+size], nat[noff:noff+nt.fields[i].size], toNatural, ext)
		poff += size
	}
}
