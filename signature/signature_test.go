package signature

import (
	"testing"

	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
)

func TestParse(t *testing.T) {
	s, err := Parse("(i32, [f32,f32], &str)f64")
	if err != nil {
		t.Fatal(err)
	}
	if s.NumArgs() != 3 {
		t.Fatalf("NumArgs() = %d, want 3", s.NumArgs())
	}
	if s.Arg(1).Size() != 8 {
		t.Errorf("aggregate arg size = %d, want 8", s.Arg(1).Size())
	}
	if s.Return().Kind != descriptor.KindF64 {
		t.Errorf("Return() = %s", s.Return())
	}
	if got := s.String(); got != "(i32,[f32,f32],&str)f64" {
		t.Errorf("String() = %q", got)
	}
}

func TestParse_Error(t *testing.T) {
	_, err := Parse("[i32]")
	if !errors.IsKind(err, errors.KindDescriptorSyntax) {
		t.Errorf("error = %v, want descriptor_syntax", err)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"(i32,i32)i32", "( i32 , i32 ) i32", true},
		{"(i32,i32)i32", "(i32,i32)u32", false},
		{"(i32)i32", "(i32,i32)i32", false},
		{"([i32,[f32]])void", "([i32,[f32]])void", true},
		{"([i32,[f32]])void", "([i32,[f64]])void", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			if got := MustParse(tt.a).Equal(MustParse(tt.b)); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_Copies(t *testing.T) {
	args := []descriptor.Type{descriptor.I32}
	s := New(args, descriptor.Void)
	args[0] = descriptor.F64
	if s.Arg(0).Kind != descriptor.KindI32 {
		t.Error("New should copy args")
	}
	out := s.Args()
	out[0] = descriptor.F64
	if s.Arg(0).Kind != descriptor.KindI32 {
		t.Error("Args should return a copy")
	}
}

func TestContainsAuto(t *testing.T) {
	if !MustParse("(i32)?").ContainsAuto() {
		t.Error("auto return not detected")
	}
	if !MustParse("([i32,auto])void").ContainsAuto() {
		t.Error("nested auto not detected")
	}
	if MustParse("(i32)i32").ContainsAuto() {
		t.Error("false positive")
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on bad input")
		}
	}()
	MustParse("(i32")
}
