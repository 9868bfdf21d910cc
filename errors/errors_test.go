package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "syntax error with fragment",
			err: &Error{
				Phase:    PhaseParse,
				Kind:     KindDescriptorSyntax,
				Fragment: "i33",
				Offset:   4,
				Detail:   "unknown type",
			},
			contains: []string{"[parse]", "descriptor_syntax", "offset 4", `"i33"`, "unknown type"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseCall,
				Kind:  KindInvalidArguments,
			},
			contains: []string{"[call]", "invalid_arguments"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLibraryOpen,
				Detail: "open \"libm.so\"",
				Cause:  errors.New("no such file"),
			},
			contains: []string{"[load]", "library_open", "libm.so", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindLibrarySymbol,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseCoerce,
		Kind:   KindInvalidCast,
		Detail: "x",
	}

	if !err.Is(&Error{Phase: PhaseCoerce, Kind: KindInvalidCast}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCall, Kind: KindInvalidCast}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseCoerce, Kind: KindInvalidArguments}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), &Error{Phase: PhaseCoerce, Kind: KindInvalidCast}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestIsKind(t *testing.T) {
	inner := BadTypedef("struct element", nil)
	outer := Wrap(PhaseCall, KindInvalidArguments, inner, "call failed")

	if !IsKind(outer, KindInvalidArguments) {
		t.Error("IsKind should match outer kind")
	}
	if !IsKind(outer, KindBadTypedef) {
		t.Error("IsKind should match kind in cause chain")
	}
	if IsKind(outer, KindLibraryOpen) {
		t.Error("IsKind should not match absent kind")
	}
	if IsKind(errors.New("plain"), KindInvalidCast) {
		t.Error("IsKind should not match plain errors")
	}
	if IsKind(nil, KindInvalidCast) {
		t.Error("IsKind should not match nil")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseParse, KindDescriptorSyntax).
		Fragment("(i32", 0).
		Value(42).
		Cause(cause).
		Detail("expected %s", "')'").
		Build()

	if err.Phase != PhaseParse {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
	}
	if err.Kind != KindDescriptorSyntax {
		t.Errorf("Kind = %v, want %v", err.Kind, KindDescriptorSyntax)
	}
	if err.Fragment != "(i32" || err.Offset != 0 {
		t.Errorf("Fragment = %q@%d, want \"(i32\"@0", err.Fragment, err.Offset)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected ')'" {
		t.Errorf("Detail = %v, want \"expected ')'\"", err.Detail)
	}
}

func TestCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		code uint32
	}{
		{KindStringToNative, 1},
		{KindNativeToString, 2},
		{KindLibraryOpen, 3},
		{KindLibrarySymbol, 4},
		{KindLibraryClose, 5},
		{KindBadTypedef, 6},
		{KindBadABI, 7},
		{KindBadArgType, 8},
		{KindDescriptorSyntax, 9},
		{KindInvalidCast, 10},
		{KindInvalidArguments, 11},
		{Kind("bogus"), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Code(); got != tt.code {
				t.Errorf("Code() = %d, want %d", got, tt.code)
			}
		})
	}

	if Code(nil) != 0 {
		t.Error("Code(nil) should be 0")
	}
	if Code(InvalidCast("f32", "&str")) != 10 {
		t.Error("Code(InvalidCast) should be 10")
	}
	if Code(errors.New("plain")) != KindInvalidArguments.Code() {
		t.Error("plain errors should map to invalid arguments")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidCast", func(t *testing.T) {
		err := InvalidCast("&str", "f32")
		if err.Kind != KindInvalidCast || err.Phase != PhaseCoerce {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "'&str'") || !strings.Contains(err.Detail, "'f32'") {
			t.Errorf("Detail = %q, should name both types", err.Detail)
		}
	})

	t.Run("UnsupportedCast", func(t *testing.T) {
		err := UnsupportedCast("f32", "*")
		if !strings.Contains(err.Detail, "unsupported") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("CountMismatch", func(t *testing.T) {
		err := CountMismatch(PhaseCall, "accepted invalid arguments count", 1, 2)
		if err.Kind != KindInvalidArguments {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "(1 / 2)") {
			t.Errorf("Detail = %q, should contain counts", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseLayout, 3, 3)
		if err.Kind != KindInvalidArguments || err.Value != 3 {
			t.Errorf("got %v value %v", err.Kind, err.Value)
		}
	})

	t.Run("library", func(t *testing.T) {
		cause := errors.New("dl")
		for _, err := range []*Error{LibraryOpen("x.so", cause), LibrarySymbol("f", cause), LibraryClose(cause)} {
			if err.Phase != PhaseLoad || !errors.Is(err, cause) {
				t.Errorf("%v: wrong phase or lost cause", err)
			}
		}
	})

	t.Run("abi", func(t *testing.T) {
		kinds := []Kind{BadTypedef("", nil).Kind, BadABI("", nil).Kind, BadArgType("", nil).Kind}
		want := []Kind{KindBadTypedef, KindBadABI, KindBadArgType}
		for i := range kinds {
			if kinds[i] != want[i] {
				t.Errorf("kind[%d] = %v, want %v", i, kinds[i], want[i])
			}
		}
	})

	t.Run("strings", func(t *testing.T) {
		if StringToNative("nul", nil).Kind.Code() != 1 {
			t.Error("StringToNative code")
		}
		if NativeToString("utf8", nil).Kind.Code() != 2 {
			t.Error("NativeToString code")
		}
	})
}
