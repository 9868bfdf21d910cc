package layout

import (
	"fmt"
	"strings"

	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
)

// Layout is the packed memory layout of an aggregate. It is immutable.
type Layout struct {
	fields  []descriptor.Type
	offsets []int
	size    int
}

// Of computes the packed layout of fields: each offset is the running sum
// of the sizes before it, with no padding.
func Of(fields []descriptor.Type) *Layout {
	l := &Layout{
		fields:  make([]descriptor.Type, len(fields)),
		offsets: make([]int, len(fields)),
	}
	copy(l.fields, fields)
	offset := 0
	for i, f := range l.fields {
		l.offsets[i] = offset
		offset += f.Size()
	}
	l.size = offset
	return l
}

// OfType computes the layout of an aggregate type.
func OfType(t descriptor.Type) (*Layout, error) {
	if !t.IsAggregate() {
		return nil, errors.InvalidArguments(errors.PhaseLayout, "type %s is not an aggregate", t)
	}
	return Of(t.Fields), nil
}

// Parse parses an aggregate descriptor such as "[i32,i32,i32]" and computes its layout.
func Parse(text string) (*Layout, error) {
	t, err := descriptor.Parse(text)
	if err != nil {
		return nil, err
	}
	if !t.IsAggregate() {
		return nil, errors.Syntax(strings.TrimSpace(text), 0, "aggregate descriptor must start with '['")
	}
	return Of(t.Fields), nil
}

// Len returns the number of fields.
func (l *Layout) Len() int { return len(l.fields) }

// Size returns the total packed size in bytes.
func (l *Layout) Size() int { return l.size }

// Field returns the type of field i. It panics if i is out of range;
// use Check first for untrusted indexes.
func (l *Layout) Field(i int) descriptor.Type { return l.fields[i] }

// Offset returns the byte offset of field i.
func (l *Layout) Offset(i int) int { return l.offsets[i] }

// Fields returns a copy of the field types.
func (l *Layout) Fields() []descriptor.Type {
	out := make([]descriptor.Type, len(l.fields))
	copy(out, l.fields)
	return out
}

// Type returns the aggregate type this layout describes.
func (l *Layout) Type() descriptor.Type {
	return descriptor.Aggregate(l.Fields()...)
}

// Check validates a field index.
func (l *Layout) Check(i int) error {
	if i < 0 || i >= len(l.fields) {
		return errors.OutOfBounds(errors.PhaseLayout, i, len(l.fields))
	}
	return nil
}

func (l *Layout) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range l.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s@%#x", f, l.offsets[i])
	}
	fmt.Fprintf(&b, "] (size: %d)", l.size)
	return b.String()
}

// Raw computes the flat layout used by raw calls: every argument starts on
// a word boundary and occupies a whole number of words.
func Raw(types []descriptor.Type) (offsets []int, size int) {
	offsets = make([]int, len(types))
	for i, t := range types {
		offsets[i] = size
		n := t.Size()
		size += (n + descriptor.WordSize - 1) / descriptor.WordSize * descriptor.WordSize
	}
	return offsets, size
}
