package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/internal/wasmtest"
)

func openFixture(t *testing.T) *session {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.wasm")
	if err := os.WriteFile(path, wasmtest.Library(), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib.wit"), []byte(wasmtest.LibraryWIT), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s, err := openSession(ctx, "wasm", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.close(ctx) })
	return s
}

func TestSession_Call(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	tests := []struct {
		name, desc, adapter string
		args                []string
		want                string
	}{
		{"add", "(i32,i32)i32", "", []string{"12", "21"}, "33"},
		{"add", "", "", []string{"-5", "2"}, "-3"},
		{"fadd", "", "", []string{"1.5", "2.25"}, "3.75"},
		{"dadd", "(f64,f64)f64", "", []string{"0.5", "0.25"}, "0.75"},
		{"add64", "(i64,i64)i64", "", []string{"0x100000000", "1"}, "4294967297"},
		{"add", "", "(f32,f32)f32", []string{"1.7", "2.2"}, "3"},
		{"add", "", "(auto,auto)f64", []string{"4", "5"}, "9"},
		{"strlen", "(&str)usize", "", []string{`"hello, world"`}, "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name+tt.adapter, func(t *testing.T) {
			got, err := s.call(ctx, tt.name, tt.desc, tt.adapter, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSession_StringResult(t *testing.T) {
	s := openFixture(t)
	got, err := s.call(context.Background(), "greeting", "()*str", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, `"hello"`) {
		t.Errorf("result = %q, want the decoded string", got)
	}
}

func TestSession_Errors(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	if _, err := s.call(ctx, "add", "", "", []string{"1"}); err == nil {
		t.Error("argument count mismatch accepted")
	}
	if _, err := s.call(ctx, "add", "", "", []string{"x", "1"}); err == nil {
		t.Error("malformed argument accepted")
	}
	if _, err := s.call(ctx, "nothing", "()void", "", nil); !errors.IsKind(err, errors.KindLibrarySymbol) {
		t.Errorf("missing symbol error = %v", err)
	}
	if _, err := s.call(ctx, "add", "", "(f32", []string{"1", "2"}); !errors.IsKind(err, errors.KindDescriptorSyntax) {
		t.Errorf("bad adapter error = %v", err)
	}

	if _, err := openSession(ctx, "jvm", "x"); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestSession_Symbols(t *testing.T) {
	s := openFixture(t)
	names, descs, err := s.symbols()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"add", "fadd", "strlen", "malloc"} {
		if !slices.Contains(names, want) {
			t.Errorf("symbols %v lack %s", names, want)
		}
	}
	if descs["add"] != "(i32,i32)i32" {
		t.Errorf("add described as %q", descs["add"])
	}
	if descs["add64"] != "(i64,i64)i64" {
		t.Errorf("add64 described as %q", descs["add64"])
	}
}

func TestSession_CloseReleasesLibrary(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()
	if err := s.close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.library(); !errors.IsKind(err, errors.KindInvalidArguments) {
		t.Errorf("library after close error = %v", err)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"1", []string{"1"}},
		{"1, 2.5 ,3", []string{"1", "2.5", "3"}},
		{`"a,b",2`, []string{`"a,b"`, "2"}},
	}
	for _, tt := range tests {
		if got := splitArgs(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCallLine(t *testing.T) {
	tests := []struct {
		in   string
		want callLine
	}{
		{"add(i32,i32)i32 1,2", callLine{"add", "(i32,i32)i32", []string{"1", "2"}}},
		{"  fadd 1.5, 2", callLine{"fadd", "", []string{"1.5", "2"}}},
		{"greeting()*str", callLine{"greeting", "()*str", nil}},
		{`strlen(&str)usize "a b"`, callLine{"strlen", "(&str)usize", []string{`"a b"`}}},
	}
	for _, tt := range tests {
		got, err := parseCallLine(tt.in)
		if err != nil {
			t.Fatalf("parseCallLine(%q): %v", tt.in, err)
		}
		if got.name != tt.want.name || got.desc != tt.want.desc || !slices.Equal(got.args, tt.want.args) {
			t.Errorf("parseCallLine(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if _, err := parseCallLine("(i32)i32 1"); err == nil {
		t.Error("missing name accepted")
	}
}
