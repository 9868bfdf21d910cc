// Package textconv converts strings between Go and NUL-terminated foreign
// memory in a configurable encoding.
package textconv

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/sffi/errors"
)

// Encoding names the byte representation of foreign strings.
type Encoding uint8

const (
	UTF8 Encoding = iota
	UTF16LE
	Latin1
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF16LE:
		return "utf-16le"
	case Latin1:
		return "latin1"
	}
	return "unknown"
}

// ParseEncoding accepts the names printed by String. The empty string is UTF8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "utf-16le", "utf16le", "utf-16", "utf16":
		return UTF16LE, nil
	case "latin1", "latin-1", "iso-8859-1":
		return Latin1, nil
	}
	return UTF8, errors.InvalidArguments(errors.PhaseConvert, "unknown string encoding %q", name)
}

// Unit is the width of one code unit, and of the terminator.
func (e Encoding) Unit() int {
	if e == UTF16LE {
		return 2
	}
	return 1
}

func (e Encoding) codec() encoding.Encoding {
	switch e {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case Latin1:
		return charmap.ISO8859_1
	}
	return nil
}

// Encode returns s in encoding e followed by a terminator. Strings with an
// embedded NUL or characters e cannot represent are rejected.
func Encode(e Encoding, s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, errors.StringToNative("string contains NUL", nil)
	}
	if !utf8.ValidString(s) {
		return nil, errors.StringToNative("string is not valid UTF-8", nil)
	}

	var out []byte
	if c := e.codec(); c != nil {
		enc, err := c.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, errors.StringToNative("encode "+e.String(), err)
		}
		out = enc
	} else {
		out = []byte(s)
	}
	return append(out, make([]byte, e.Unit())...), nil
}

// Decode converts b, which holds no terminator, from encoding e.
func Decode(e Encoding, b []byte) (string, error) {
	c := e.codec()
	if c == nil {
		if !utf8.Valid(b) {
			return "", errors.NativeToString("invalid UTF-8 sequence", nil)
		}
		return string(b), nil
	}
	if len(b)%e.Unit() != 0 {
		return "", errors.NativeToString("odd length "+e.String()+" string", nil)
	}
	dec, err := c.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.NativeToString("decode "+e.String(), err)
	}
	return string(dec), nil
}

// Terminator returns the index of the first terminator in b, or -1.
func Terminator(e Encoding, b []byte) int {
	if e.Unit() == 1 {
		return bytes.IndexByte(b, 0)
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}
