package adapter

import (
	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/value"
)

// Coerce converts the value in from (typed fromType) into into (typed
// intoType). Rules apply in order:
//
//  1. Auto on either side copies the concrete side's bytes verbatim.
//  2. Two pointer-like types copy the address, except &str into *str,
//     which duplicates the string through heap.
//  3. Signed, unsigned and float sources convert numerically into any
//     numeric destination.
//  4. Everything else is an invalid cast.
//
// Both buffers must hold at least the size of their type.
func Coerce(fromType descriptor.Type, from []byte, intoType descriptor.Type, into []byte, heap sffi.Heap) error {
	fk, ik := fromType.Kind, intoType.Kind

	if len(from) < slotSize(fromType, intoType) || len(into) < slotSize(intoType, fromType) {
		return errors.InvalidArguments(errors.PhaseCoerce,
			"buffer too small for cast from '%s' into '%s'", fromType, intoType)
	}

	if fk == descriptor.KindAuto || ik == descriptor.KindAuto {
		concrete := intoType
		if ik == descriptor.KindAuto {
			concrete = fromType
		}
		switch concrete.Kind {
		case descriptor.KindAuto:
			return errors.UnsupportedCast(fromType.String(), intoType.String())
		case descriptor.KindVoid:
			return nil
		case descriptor.KindAggregate:
			return errors.UnsupportedCast(fromType.String(), intoType.String())
		}
		n := concrete.Size()
		copy(into[:n], from[:n])
		return nil
	}

	if ik == descriptor.KindVoid {
		// Discarded result.
		return nil
	}

	if fk.IsPointerLike() && ik.IsPointerLike() {
		if fk == descriptor.KindRefStr && ik == descriptor.KindBorrowStr {
			if heap == nil {
				return errors.New(errors.PhaseCoerce, errors.KindInvalidCast).
					Detail("cast from '%s' into '%s' needs a heap to duplicate the string", fromType, intoType).
					Build()
			}
			dup, err := heap.Strdup(value.ReadWord(from))
			if err != nil {
				return err
			}
			value.PutWord(into, dup)
			return nil
		}
		value.PutWord(into, value.ReadWord(from))
		return nil
	}

	switch {
	case fk.IsSigned():
		if !ik.IsNumeric() {
			return errors.InvalidCast(fromType.String(), intoType.String())
		}
		value.PutInt(ik, into, value.Int(fk, from))
		return nil
	case fk.IsUnsigned():
		if !ik.IsNumeric() {
			return errors.InvalidCast(fromType.String(), intoType.String())
		}
		value.PutUint(ik, into, value.Uint(fk, from))
		return nil
	case fk.IsFloat():
		if !ik.IsNumeric() {
			return errors.InvalidCast(fromType.String(), intoType.String())
		}
		value.PutFloat(ik, into, value.Float(fk, from))
		return nil
	}

	return errors.UnsupportedCast(fromType.String(), intoType.String())
}

// slotSize is the number of bytes a buffer of type t must hold when
// coerced against other. Auto takes the size of the concrete side.
func slotSize(t, other descriptor.Type) int {
	if t.IsAuto() {
		return other.Size()
	}
	return t.Size()
}
