package handle

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
)

type ctxCloser struct {
	closed *[]string
	name   string
	err    error
}

func (c *ctxCloser) Close(context.Context) error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

type dropValue struct{ dropped bool }

func (d *dropValue) Drop() { d.dropped = true }

func TestTable_InsertGet(t *testing.T) {
	tbl := NewTable()

	h := tbl.Insert(TypeAdapter, "adapter")
	if h == 0 {
		t.Fatal("Insert returned the invalid handle")
	}
	v, ok := tbl.Get(h)
	if !ok || v != "adapter" {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := tbl.Get(0); ok {
		t.Error("handle 0 resolved")
	}
	if _, ok := tbl.Get(h + 1); ok {
		t.Error("unissued handle resolved")
	}
}

func TestTable_GetTyped(t *testing.T) {
	tbl := NewTable()
	l, err := layout.Parse("[i32,f64]")
	if err != nil {
		t.Fatal(err)
	}
	h := tbl.Insert(TypeLayout, l)

	if _, ok := tbl.GetTyped(h, TypeBuffer); ok {
		t.Error("layout handle resolved as buffer")
	}
	got, err := Lookup[*layout.Layout](tbl, h, TypeLayout)
	if err != nil {
		t.Fatal(err)
	}
	if got != l {
		t.Error("Lookup returned a different layout")
	}

	_, err = Lookup[*layout.Layout](tbl, h, TypeBuffer)
	if !errors.IsKind(err, errors.KindInvalidArguments) || !strings.Contains(err.Error(), "invalid buffer handle") {
		t.Errorf("wrong-type lookup error = %v", err)
	}
	if _, err := Lookup[string](tbl, h, TypeLayout); !errors.IsKind(err, errors.KindInvalidArguments) {
		t.Errorf("wrong Go type error = %v", err)
	}
}

func TestTable_RemoveReleases(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()
	var closed []string

	lib := tbl.Insert(TypeLibrary, &ctxCloser{closed: &closed, name: "lib"})
	d := &dropValue{}
	buf := tbl.Insert(TypeBuffer, d)

	if err := tbl.Remove(ctx, lib); err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 {
		t.Errorf("closed = %v", closed)
	}
	if err := tbl.Remove(ctx, buf); err != nil {
		t.Fatal(err)
	}
	if !d.dropped {
		t.Error("Drop not called")
	}
	if tbl.Len() != 0 {
		t.Errorf("Len = %d after removing everything", tbl.Len())
	}

	if err := tbl.Remove(ctx, lib); !errors.IsKind(err, errors.KindInvalidArguments) {
		t.Errorf("double remove error = %v", err)
	}
}

func TestTable_HandleReuse(t *testing.T) {
	tbl := NewTable()
	h1 := tbl.Insert(TypeAdapter, 1)
	h2 := tbl.Insert(TypeAdapter, 2)
	if err := tbl.Remove(context.Background(), h1); err != nil {
		t.Fatal(err)
	}
	h3 := tbl.Insert(TypeLayout, 3)
	if h3 != h1 {
		t.Errorf("freed handle not reused: got %d, want %d", h3, h1)
	}
	if v, _ := tbl.GetTyped(h3, TypeLayout); v != 3 {
		t.Errorf("reused handle holds %v", v)
	}
	if v, _ := tbl.Get(h2); v != 2 {
		t.Errorf("h2 holds %v", v)
	}
}

func TestTable_Close(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()
	var closed []string

	tbl.Insert(TypeLibrary, &ctxCloser{closed: &closed, name: "a", err: stderrors.New("a failed")})
	tbl.Insert(TypeLibrary, &ctxCloser{closed: &closed, name: "b"})

	err := tbl.Close(ctx)
	if err == nil || !strings.Contains(err.Error(), "a failed") {
		t.Errorf("Close error = %v", err)
	}
	if len(closed) != 2 || closed[0] != "a" || closed[1] != "b" {
		t.Errorf("close order = %v", closed)
	}
	if h := tbl.Insert(TypeAdapter, 1); h != 0 {
		t.Errorf("Insert after close = %d, want 0", h)
	}
	if err := tbl.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestTable_Concurrent(t *testing.T) {
	tbl := NewTable()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := tbl.Insert(TypeAdapter, j)
				if v, ok := tbl.Get(h); !ok || v != j {
					t.Errorf("Get(%d) = %v, %v", h, v, ok)
					return
				}
				if err := tbl.Remove(ctx, h); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if tbl.Len() != 0 {
		t.Errorf("Len = %d", tbl.Len())
	}
}

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeLibrary, "library"},
		{TypeAdapter, "adapter"},
		{TypeLayout, "layout"},
		{TypeBuffer, "buffer"},
		{Type(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
