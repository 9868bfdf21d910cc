package descriptor

import "strconv"

// WordSize is the width in bytes of pointers and platform-width integers.
const WordSize = strconv.IntSize / 8

// Kind identifies the variant of a Type.
type Kind uint8

const (
	KindAuto Kind = iota
	KindVoid
	KindInt
	KindFloat
	KindDouble
	KindLongDouble
	KindIsize
	KindUsize
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindF128
	KindPointer
	KindRefStr
	KindBorrowStr
	KindRefArray
	KindBorrowArray
	KindAggregate
)

var kindNames = [...]string{
	KindAuto:        "auto",
	KindVoid:        "void",
	KindInt:         "int",
	KindFloat:       "float",
	KindDouble:      "double",
	KindLongDouble:  "longdouble",
	KindIsize:       "isize",
	KindUsize:       "usize",
	KindI8:          "i8",
	KindI16:         "i16",
	KindI32:         "i32",
	KindI64:         "i64",
	KindU8:          "u8",
	KindU16:         "u16",
	KindU32:         "u32",
	KindU64:         "u64",
	KindF32:         "f32",
	KindF64:         "f64",
	KindF128:        "f128",
	KindPointer:     "*",
	KindRefStr:      "&str",
	KindBorrowStr:   "*str",
	KindRefArray:    "&[]",
	KindBorrowArray: "*[]",
	KindAggregate:   "[]",
}

var kindSizes = [...]int{
	KindAuto:        0,
	KindVoid:        0,
	KindInt:         4,
	KindFloat:       4,
	KindDouble:      8,
	KindLongDouble:  16,
	KindIsize:       WordSize,
	KindUsize:       WordSize,
	KindI8:          1,
	KindI16:         2,
	KindI32:         4,
	KindI64:         8,
	KindU8:          1,
	KindU16:         2,
	KindU32:         4,
	KindU64:         8,
	KindF32:         4,
	KindF64:         8,
	KindF128:        16,
	KindPointer:     WordSize,
	KindRefStr:      WordSize,
	KindBorrowStr:   WordSize,
	KindRefArray:    WordSize,
	KindBorrowArray: WordSize,
	KindAggregate:   0,
}

// atoms maps every keyword of the grammar to its kind.
var atoms = map[string]Kind{
	"auto":       KindAuto,
	"?":          KindAuto,
	"void":       KindVoid,
	"int":        KindInt,
	"float":      KindFloat,
	"double":     KindDouble,
	"longdouble": KindLongDouble,
	"isize":      KindIsize,
	"usize":      KindUsize,
	"i8":         KindI8,
	"i16":        KindI16,
	"i32":        KindI32,
	"i64":        KindI64,
	"u8":         KindU8,
	"u16":        KindU16,
	"u32":        KindU32,
	"u64":        KindU64,
	"f32":        KindF32,
	"f64":        KindF64,
	"f128":       KindF128,
	"*":          KindPointer,
	"&str":       KindRefStr,
	"*str":       KindBorrowStr,
	"&[]":        KindRefArray,
	"*[]":        KindBorrowArray,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Size returns the fixed width of a scalar kind. Aggregates report 0;
// use Type.Size for them.
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindInt, KindIsize, KindI8, KindI16, KindI32, KindI64:
		return true
	}
	return false
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case KindUsize, KindU8, KindU16, KindU32, KindU64:
		return true
	}
	return false
}

func (k Kind) IsFloat() bool {
	switch k {
	case KindFloat, KindDouble, KindLongDouble, KindF32, KindF64, KindF128:
		return true
	}
	return false
}

func (k Kind) IsNumeric() bool {
	return k.IsSigned() || k.IsUnsigned() || k.IsFloat()
}

// IsPointer reports whether k is one of the five pointer kinds.
func (k Kind) IsPointer() bool {
	return k >= KindPointer && k <= KindBorrowArray
}

// IsPointerLike reports whether k carries an address-width value that may be
// copied verbatim between pointer kinds. Platform-width integers qualify.
func (k Kind) IsPointerLike() bool {
	return k.IsPointer() || k == KindIsize || k == KindUsize
}

// IsExtended reports whether k is a 16-byte float slot.
func (k Kind) IsExtended() bool {
	return k == KindLongDouble || k == KindF128
}
