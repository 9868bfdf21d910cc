package descriptor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wippyai/sffi/errors"
)

func TestParseFunc(t *testing.T) {
	tests := []struct {
		name string
		text string
		args []Type
		ret  Type
	}{
		{"binary int", "(i32,i32)i32", []Type{I32, I32}, I32},
		{"string arg", "(&str)void", []Type{Of(KindRefStr)}, Void},
		{"no args", "()void", []Type{}, Void},
		{"spaces", "  ( i32 , f64 ) u8 ", []Type{I32, F64}, Of(KindU8)},
		{"auto return", "(?)auto", []Type{Auto}, Auto},
		{"aggregate arg", "([i32,i32,i32])void", []Type{Aggregate(I32, I32, I32)}, Void},
		{"aggregate return", "()[f32,[f64]]", []Type{}, Aggregate(F32, Aggregate(F64))},
		{"pointer family", "(*,&str,*str,&[],*[])*", []Type{
			Pointer, Of(KindRefStr), Of(KindBorrowStr), Of(KindRefArray), Of(KindBorrowArray),
		}, Pointer},
		{"trailing comma", "(i32,)i32", []Type{I32}, I32},
		{"trailing comma in aggregate", "([f32, f64 ,])void", []Type{Aggregate(F32, F64)}, Void},
		{"c names", "(int,float,double,longdouble)isize", []Type{
			Of(KindInt), Of(KindFloat), Of(KindDouble), Of(KindLongDouble),
		}, Of(KindIsize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, ret, err := ParseFunc(tt.text)
			if err != nil {
				t.Fatalf("ParseFunc(%q): %v", tt.text, err)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("got %d args, want %d", len(args), len(tt.args))
			}
			for i := range args {
				if !args[i].Equal(tt.args[i]) {
					t.Errorf("arg %d = %s, want %s", i, args[i], tt.args[i])
				}
			}
			if !ret.Equal(tt.ret) {
				t.Errorf("ret = %s, want %s", ret, tt.ret)
			}
		})
	}
}

func TestParseFunc_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		detail   string
		fragment string
	}{
		{"bad start", "i32)i32", "invalid descriptor start", "i32)i32"},
		{"empty", "", "invalid descriptor start", ""},
		{"missing close paren", "(i32,i32", "invalid descriptor end", "(i32,i32"},
		{"unknown atom", "(i33)void", "unknown type: i33", "i33"},
		{"unknown return", "(i32)int32", "unknown type: int32", "int32"},
		{"missing return", "(i32)", "missing return type", ""},
		{"lone comma", "(,)void", "missing type", ",)void"},
		{"double comma", "(i32,,)void", "missing type", ",)void"},
		{"trailing garbage", "(i32)i32 i32", "unexpected trailing text", "i32"},
		{"unterminated struct", "([i32,i32)void", "expected ',' or ']'", ")void"},
		{"struct without end", "(i32)[f32", "struct without end", "[f32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFunc(tt.text)
			if err == nil {
				t.Fatalf("ParseFunc(%q) should fail", tt.text)
			}
			if !errors.IsKind(err, errors.KindDescriptorSyntax) {
				t.Fatalf("error kind = %v, want descriptor_syntax", err)
			}
			e := err.(*errors.Error)
			if !strings.Contains(e.Detail, tt.detail) {
				t.Errorf("detail = %q, want %q", e.Detail, tt.detail)
			}
			if e.Fragment != tt.fragment {
				t.Errorf("fragment = %q, want %q", e.Fragment, tt.fragment)
			}
		})
	}
}

func TestParseFunc_FragmentKeepsRunes(t *testing.T) {
	tests := []string{
		"(i32)i32 x" + strings.Repeat("é", 30),
		"(i32)i32 " + strings.Repeat("x", 23) + "日本語",
		"(i32)i32 " + strings.Repeat("x", 22) + "😀😀",
		"(i32)" + strings.Repeat("é", 30),
	}
	for _, text := range tests {
		_, _, err := ParseFunc(text)
		if err == nil {
			t.Fatalf("ParseFunc(%q) should fail", text)
		}
		e := err.(*errors.Error)
		if !utf8.ValidString(e.Fragment) {
			t.Errorf("fragment %q of %q is not valid UTF-8", e.Fragment, text)
		}
		if len(e.Fragment) == 0 || len(e.Fragment) > maxFragment {
			t.Errorf("fragment %q has length %d", e.Fragment, len(e.Fragment))
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Type
	}{
		{"i32", I32},
		{"?", Auto},
		{"auto", Auto},
		{"*[]", Of(KindBorrowArray)},
		{"[]", Aggregate()},
		{"[[],[i32,[f32]]]", Aggregate(Aggregate(), Aggregate(I32, Aggregate(F32)))},
		{" [ u8 , * ] ", Aggregate(Of(KindU8), Pointer)},
		{"[i32,]", Aggregate(I32)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "i32 i32", "[i32", "[,]", "[i32,,]", "x"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList("f32, f32 ,[i32]")
	if err != nil {
		t.Fatal(err)
	}
	want := []Type{F32, F32, Aggregate(I32)}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	empty, err := ParseList("  ")
	if err != nil || len(empty) != 0 {
		t.Errorf("ParseList(blank) = %v, %v", empty, err)
	}

	trailing, err := ParseList("i32, ")
	if err != nil || len(trailing) != 1 || !trailing[0].Equal(I32) {
		t.Errorf("ParseList(trailing comma) = %v, %v", trailing, err)
	}
	if _, err := ParseList("i32,,"); err == nil {
		t.Error("double comma should fail")
	}
	if _, err := ParseList("i32;i64"); err == nil {
		t.Error("bad separator should fail")
	}
}

func TestRoundTrip(t *testing.T) {
	funcs := []string{
		"(i32,i32)i32",
		"(&str)void",
		"( f32 , f32 ) f32",
		"([i32,i32,i32])void",
		"(*,&str,*str,&[],*[])?",
		"([[],[i32,[f32]]], longdouble, f128)[u64,isize]",
	}
	for _, text := range funcs {
		t.Run(text, func(t *testing.T) {
			args, ret, err := ParseFunc(text)
			if err != nil {
				t.Fatal(err)
			}
			formatted := FormatFunc(args, ret)
			args2, ret2, err := ParseFunc(formatted)
			if err != nil {
				t.Fatalf("reparse %q: %v", formatted, err)
			}
			if len(args) != len(args2) || !ret.Equal(ret2) {
				t.Fatalf("reparse of %q differs", formatted)
			}
			for i := range args {
				if !args[i].Equal(args2[i]) {
					t.Errorf("arg %d differs after reparse: %s vs %s", i, args[i], args2[i])
				}
			}
		})
	}
}

func TestFormat(t *testing.T) {
	ty := Aggregate(I32, Aggregate(F32, Of(KindRefStr)), Aggregate())
	if got := ty.String(); got != "[i32,[f32,&str],[]]" {
		t.Errorf("String() = %q", got)
	}
	if got := FormatFunc([]Type{Auto}, Void); got != "(auto)void" {
		t.Errorf("FormatFunc = %q", got)
	}
}
