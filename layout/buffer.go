package layout

import (
	"github.com/wippyai/sffi/errors"
)

// Buffer is aggregate memory checked against its Layout. All field access
// goes through the layout, so callers never compute offsets themselves.
type Buffer struct {
	layout *Layout
	mem    []byte
}

// NewBuffer allocates zeroed memory for l.
func NewBuffer(l *Layout) *Buffer {
	return &Buffer{layout: l, mem: make([]byte, l.Size())}
}

// Wrap adopts existing memory, such as a view into a foreign heap.
// Only the first l.Size() bytes are used.
func Wrap(l *Layout, mem []byte) (*Buffer, error) {
	if len(mem) < l.Size() {
		return nil, errors.InvalidArguments(errors.PhaseLayout,
			"buffer too small for layout (%d / %d)", len(mem), l.Size())
	}
	return &Buffer{layout: l, mem: mem[:l.Size():l.Size()]}, nil
}

// Layout returns the buffer's layout.
func (b *Buffer) Layout() *Layout { return b.layout }

// Bytes returns the whole aggregate memory.
func (b *Buffer) Bytes() []byte { return b.mem }

// Field returns the bytes of field i, aliasing the buffer.
func (b *Buffer) Field(i int) ([]byte, error) {
	if err := b.layout.Check(i); err != nil {
		return nil, err
	}
	off := b.layout.offsets[i]
	n := b.layout.fields[i].Size()
	return b.mem[off : off+n : off+n], nil
}

// SetRaw copies src into field i. src must hold at least the field's size.
func (b *Buffer) SetRaw(i int, src []byte) error {
	dst, err := b.Field(i)
	if err != nil {
		return err
	}
	if len(src) < len(dst) {
		return errors.InvalidArguments(errors.PhaseLayout,
			"value too small for field %d (%d / %d)", i, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

// GetRaw copies field i into dst. dst must hold at least the field's size.
func (b *Buffer) GetRaw(i int, dst []byte) error {
	src, err := b.Field(i)
	if err != nil {
		return err
	}
	if len(dst) < len(src) {
		return errors.InvalidArguments(errors.PhaseLayout,
			"destination too small for field %d (%d / %d)", i, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}
