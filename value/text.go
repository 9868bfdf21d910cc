package value

import (
	"strconv"
	"strings"

	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
)

// Parse converts text into a buffer for a scalar of type t. Integers accept
// Go literal prefixes (0x, 0o, 0b); pointer kinds take an address.
func Parse(t descriptor.Type, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	k := t.Kind
	b := New(t)

	switch {
	case k == descriptor.KindVoid:
		return nil, nil
	case k.IsSigned():
		v, err := strconv.ParseInt(text, 0, k.Size()*8)
		if err != nil {
			return nil, parseErr(t, text, err)
		}
		PutBits(k, b, uint64(v))
	case k.IsUnsigned() || k.IsPointer():
		v, err := strconv.ParseUint(text, 0, k.Size()*8)
		if err != nil {
			return nil, parseErr(t, text, err)
		}
		PutBits(k, b, v)
	case k.IsFloat():
		bits := 64
		if k.Size() == 4 {
			bits = 32
		}
		v, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return nil, parseErr(t, text, err)
		}
		PutFloat(k, b, v)
	default:
		return nil, errors.InvalidArguments(errors.PhaseCoerce, "no text form for type '%s'", t)
	}
	return b, nil
}

// Format renders a scalar buffer of type t as text.
func Format(t descriptor.Type, b []byte) string {
	k := t.Kind
	if len(b) < t.Size() {
		return "<short buffer>"
	}
	switch {
	case k == descriptor.KindVoid:
		return "void"
	case k.IsSigned():
		return strconv.FormatInt(Int(k, b), 10)
	case k.IsUnsigned():
		return strconv.FormatUint(Uint(k, b), 10)
	case k.IsPointer():
		return "0x" + strconv.FormatUint(ReadWord(b), 16)
	case k.IsFloat():
		bits := 64
		if k.Size() == 4 {
			bits = 32
		}
		return strconv.FormatFloat(Float(k, b), 'g', -1, bits)
	case k == descriptor.KindAggregate:
		var sb strings.Builder
		sb.WriteByte('{')
		off := 0
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			n := f.Size()
			sb.WriteString(Format(f, b[off:off+n]))
			off += n
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return "?"
}

func parseErr(t descriptor.Type, text string, err error) error {
	return errors.New(errors.PhaseCoerce, errors.KindInvalidArguments).
		Value(text).
		Cause(err).
		Detail("parse %q as '%s'", text, t).
		Build()
}
