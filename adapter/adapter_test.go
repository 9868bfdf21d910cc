package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/dispatch"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
	"github.com/wippyai/sffi/signature"
	"github.com/wippyai/sffi/value"
)

type testSymbol string

func (s testSymbol) Name() string  { return string(s) }
func (s testSymbol) Addr() uintptr { return 0x1000 }

type prepared struct {
	args []descriptor.Type
	ret  descriptor.Type
}

// sumInvoker adds its arguments in the return type's domain.
type sumInvoker struct {
	heap    sffi.Heap
	invokes int
	lastArg [][]byte
}

func (s *sumInvoker) MapType(t descriptor.Type) (sffi.NativeType, error) { return t, nil }

func (s *sumInvoker) Prepare(args []sffi.NativeType, ret sffi.NativeType, _ sffi.Convention) (sffi.CallInterface, error) {
	p := prepared{ret: ret.(descriptor.Type)}
	for _, a := range args {
		p.args = append(p.args, a.(descriptor.Type))
	}
	return p, nil
}

func (s *sumInvoker) Invoke(_ context.Context, ci sffi.CallInterface, _ sffi.Symbol, result []byte, args [][]byte) error {
	s.invokes++
	s.lastArg = nil
	for _, a := range args {
		s.lastArg = append(s.lastArg, append([]byte(nil), a...))
	}
	p := ci.(prepared)
	switch {
	case p.ret.Kind.IsFloat():
		var sum float64
		for i, a := range args {
			sum += value.Float(p.args[i].Kind, a)
		}
		value.PutFloat(p.ret.Kind, result, sum)
	case p.ret.Kind.IsNumeric():
		var sum int64
		for i, a := range args {
			sum += value.Int(p.args[i].Kind, a)
		}
		value.PutInt(p.ret.Kind, result, sum)
	}
	return nil
}

func (s *sumInvoker) InvokeRaw(context.Context, sffi.CallInterface, sffi.Symbol, []byte, []byte) error {
	return nil
}

func (s *sumInvoker) Heap() sffi.Heap { return s.heap }

func newFunc(t *testing.T, inv *sumInvoker, desc string) *dispatch.Func {
	t.Helper()
	fn, err := dispatch.New(inv, testSymbol("f"), signature.MustParse(desc))
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestCall_CoercesArgumentsAndResult(t *testing.T) {
	inv := &sumInvoker{}
	fn := newFunc(t, inv, "(i32,i32)i32")

	ad, err := Parse("(f32,f32)f32")
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4)
	if err := ad.Call(context.Background(), fn, out, [][]byte{value.F32(1.7), value.F32(2.2)}); err != nil {
		t.Fatal(err)
	}
	// 1.7 and 2.2 truncate to 1 and 2.
	if got := value.ReadF32(out); got != 3.0 {
		t.Errorf("result = %v, want 3", got)
	}
}

func TestCall_AutoPassthrough(t *testing.T) {
	inv := &sumInvoker{}
	fn := newFunc(t, inv, "(f32,f32)f32")

	ad, err := Parse("(auto,?)auto")
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4)
	if err := ad.Call(context.Background(), fn, out, [][]byte{value.F32(1.5), value.F32(1.5)}); err != nil {
		t.Fatal(err)
	}
	if got := value.ReadF32(out); got != 3.0 {
		t.Errorf("result = %v, want 3", got)
	}

	if err := ad.Call(context.Background(), fn, make([]byte, 2), [][]byte{value.F32(1), value.F32(1)}); !errors.IsKind(err, errors.KindInvalidArguments) {
		t.Errorf("short auto result error = %v", err)
	}
}

func TestCall_CountMismatchNeverInvokes(t *testing.T) {
	inv := &sumInvoker{}
	fn := newFunc(t, inv, "(i32,i32)i32")
	ctx := context.Background()

	ad, err := Parse("(i32)i32")
	if err != nil {
		t.Fatal(err)
	}
	err = ad.Call(ctx, fn, make([]byte, 4), [][]byte{value.I32(1)})
	if !errors.IsKind(err, errors.KindInvalidArguments) || !strings.Contains(err.Error(), "function invalid arguments count (2 / 1)") {
		t.Errorf("function count error = %v", err)
	}

	ad, err = Parse("(i32,i32)i32")
	if err != nil {
		t.Fatal(err)
	}
	err = ad.Call(ctx, fn, make([]byte, 4), [][]byte{value.I32(1)})
	if !errors.IsKind(err, errors.KindInvalidArguments) || !strings.Contains(err.Error(), "accepted invalid arguments count (1 / 2)") {
		t.Errorf("accepted count error = %v", err)
	}

	if inv.invokes != 0 {
		t.Errorf("callee invoked %d times", inv.invokes)
	}
}

func TestCall_InvalidCastStopsBeforeInvoke(t *testing.T) {
	inv := &sumInvoker{}
	fn := newFunc(t, inv, "(*,i32)i32")

	ad, err := Parse("(i32,i32)i32")
	if err != nil {
		t.Fatal(err)
	}
	err = ad.Call(context.Background(), fn, make([]byte, 4), [][]byte{value.I32(1), value.I32(2)})
	if !errors.IsKind(err, errors.KindInvalidCast) {
		t.Errorf("error = %v, want invalid_cast", err)
	}
	if inv.invokes != 0 {
		t.Error("callee invoked after a failed conversion")
	}
}

func TestCall_StrdupUsesFunctionHeap(t *testing.T) {
	h := &fakeHeap{}
	inv := &sumInvoker{heap: h}
	fn := newFunc(t, inv, "(*str)void")

	ad, err := Parse("(&str)void")
	if err != nil {
		t.Fatal(err)
	}
	if err := ad.Call(context.Background(), fn, nil, [][]byte{value.Word(0x20)}); err != nil {
		t.Fatal(err)
	}
	if len(h.strdups) != 1 || value.ReadWord(inv.lastArg[0]) != 0x1020 {
		t.Errorf("callee saw %#x, strdups %v", value.ReadWord(inv.lastArg[0]), h.strdups)
	}

	override := &fakeHeap{}
	ad, err = Parse("(&str)void", WithHeap(override))
	if err != nil {
		t.Fatal(err)
	}
	if err := ad.Call(context.Background(), fn, nil, [][]byte{value.Word(0x20)}); err != nil {
		t.Fatal(err)
	}
	if len(override.strdups) != 1 || len(h.strdups) != 1 {
		t.Error("WithHeap should take precedence over the function heap")
	}
}

func TestParse_BracketSugar(t *testing.T) {
	ad, err := Parse(" [f32, i64] ")
	if err != nil {
		t.Fatal(err)
	}
	if ad.Target().NumArgs() != 2 || !ad.Target().Return().IsVoid() {
		t.Errorf("target = %s", ad.Target())
	}

	if _, err := Parse("[f32,i64"); !errors.IsKind(err, errors.KindDescriptorSyntax) {
		t.Errorf("unterminated error = %v", err)
	}
	if _, err := Parse("(f32"); !errors.IsKind(err, errors.KindDescriptorSyntax) {
		t.Errorf("unterminated function error = %v", err)
	}
}

func TestSetGet(t *testing.T) {
	l, err := layout.Parse("[i32,i32,f64]")
	if err != nil {
		t.Fatal(err)
	}
	buf := layout.NewBuffer(l)

	ad, err := Parse("[f32,f32,f32]")
	if err != nil {
		t.Fatal(err)
	}
	if err := ad.Set(buf, 0, value.F32(6.12)); err != nil {
		t.Fatal(err)
	}
	if err := ad.Set(buf, 1, value.F32(4.21)); err != nil {
		t.Fatal(err)
	}
	if err := ad.Set(buf, 2, value.F32(0.5)); err != nil {
		t.Fatal(err)
	}

	raw := make([]byte, 4)
	if err := buf.GetRaw(0, raw); err != nil {
		t.Fatal(err)
	}
	if value.ReadI32(raw) != 6 {
		t.Errorf("field 0 = %d, want 6", value.ReadI32(raw))
	}

	out := make([]byte, 4)
	if err := ad.Get(buf, 1, out); err != nil {
		t.Fatal(err)
	}
	if value.ReadF32(out) != 4 {
		t.Errorf("field 1 = %v, want 4", value.ReadF32(out))
	}
	if err := ad.Get(buf, 2, out); err != nil {
		t.Fatal(err)
	}
	if value.ReadF32(out) != 0.5 {
		t.Errorf("field 2 = %v, want 0.5", value.ReadF32(out))
	}
}

func TestSetGet_Checks(t *testing.T) {
	l, err := layout.Parse("[i32,i32]")
	if err != nil {
		t.Fatal(err)
	}
	buf := layout.NewBuffer(l)

	ad, err := Parse("[i32,i32,i32]")
	if err != nil {
		t.Fatal(err)
	}
	err = ad.Set(buf, 0, value.I32(1))
	if !errors.IsKind(err, errors.KindInvalidArguments) || !strings.Contains(err.Error(), "structure invalid fields count (2 / 3)") {
		t.Errorf("field count error = %v", err)
	}

	ad, err = Parse("[i32,i32]")
	if err != nil {
		t.Fatal(err)
	}
	for _, idx := range []int{-1, 2} {
		err := ad.Get(buf, idx, make([]byte, 4))
		if !errors.IsKind(err, errors.KindInvalidArguments) || !strings.Contains(err.Error(), "invalid index") {
			t.Errorf("index %d error = %v", idx, err)
		}
	}
	if err := ad.Set(buf, 0, make([]byte, 2)); !errors.IsKind(err, errors.KindInvalidArguments) {
		t.Errorf("short value error = %v", err)
	}
}
