package handle

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/sffi/errors"
)

// Handle is an opaque reference to a value in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Type tags the kind of value a handle refers to.
type Type uint8

const (
	TypeLibrary Type = iota + 1
	TypeAdapter
	TypeLayout
	TypeBuffer
)

func (t Type) String() string {
	switch t {
	case TypeLibrary:
		return "library"
	case TypeAdapter:
		return "adapter"
	case TypeLayout:
		return "layout"
	case TypeBuffer:
		return "buffer"
	}
	return "unknown"
}

type closer interface {
	Close(ctx context.Context) error
}

type plainCloser interface {
	Close() error
}

type dropper interface {
	Drop()
}

type entry struct {
	value any
	typ   Type
	valid bool
}

// Table stores values under handles. Freed handles are reused.
type Table struct {
	mu       sync.RWMutex
	entries  []entry
	freeList []Handle
	closed   bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Insert stores v and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(typ Type, v any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}
	e := entry{value: v, typ: typ, valid: true}
	if n := len(t.freeList); n > 0 {
		h := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = e
		return h
	}
	t.entries = append(t.entries, e)
	return Handle(len(t.entries))
}

// caller holds t.mu.
func (t *Table) at(h Handle) *entry {
	if h == 0 || int(h) > len(t.entries) {
		return nil
	}
	e := &t.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get returns the value stored under h.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.at(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// GetTyped returns the value under h only if it was inserted as typ.
func (t *Table) GetTyped(h Handle, typ Type) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.at(h)
	if e == nil || e.typ != typ {
		return nil, false
	}
	return e.value, true
}

// Lookup returns the value under h as a T. The error has the
// invalid_arguments kind when h is unknown or refers to another type.
func Lookup[T any](t *Table, h Handle, typ Type) (T, error) {
	var zero T
	v, ok := t.GetTyped(h, typ)
	if !ok {
		return zero, errors.InvalidArguments(errors.PhaseCall, "invalid %s handle %d", typ, h)
	}
	tv, ok := v.(T)
	if !ok {
		return zero, errors.InvalidArguments(errors.PhaseCall, "%s handle %d holds %T", typ, h, v)
	}
	return tv, nil
}

// Remove frees h and releases its value.
func (t *Table) Remove(ctx context.Context, h Handle) error {
	t.mu.Lock()
	e := t.at(h)
	if e == nil {
		t.mu.Unlock()
		return errors.InvalidArguments(errors.PhaseCall, "invalid handle %d", h)
	}
	v := e.value
	*e = entry{}
	t.freeList = append(t.freeList, h)
	t.mu.Unlock()

	return release(ctx, v)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Close releases every live value in handle order and rejects further
// inserts. Release errors are combined.
func (t *Table) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	var err error
	for _, e := range entries {
		if e.valid {
			err = multierr.Append(err, release(ctx, e.value))
		}
	}
	return err
}

func release(ctx context.Context, v any) error {
	switch c := v.(type) {
	case closer:
		return c.Close(ctx)
	case plainCloser:
		return c.Close()
	case dropper:
		c.Drop()
	}
	return nil
}
