package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // descriptor parsing
	PhaseLayout  Phase = "layout"  // aggregate buffer access
	PhasePrepare Phase = "prepare" // call interface preparation
	PhaseCall    Phase = "call"    // foreign invocation
	PhaseCoerce  Phase = "coerce"  // value conversion between descriptors
	PhaseLoad    Phase = "load"    // library image lifecycle
	PhaseConvert Phase = "convert" // string conversion across the boundary
)

// Kind categorizes the error
type Kind string

const (
	KindDescriptorSyntax Kind = "descriptor_syntax"
	KindInvalidCast      Kind = "invalid_cast"
	KindInvalidArguments Kind = "invalid_arguments"
	KindBadTypedef       Kind = "abi_bad_typedef"
	KindBadABI           Kind = "abi_bad_abi"
	KindBadArgType       Kind = "abi_bad_argtype"
	KindLibraryOpen      Kind = "library_open"
	KindLibrarySymbol    Kind = "library_symbol"
	KindLibraryClose     Kind = "library_close"
	KindStringToNative   Kind = "string_to_native"
	KindNativeToString   Kind = "native_to_string"
)

// Code returns the stable numeric code of the kind, as reported to
// exposure layers. Zero means no error.
func (k Kind) Code() uint32 {
	switch k {
	case KindStringToNative:
		return 1
	case KindNativeToString:
		return 2
	case KindLibraryOpen:
		return 3
	case KindLibrarySymbol:
		return 4
	case KindLibraryClose:
		return 5
	case KindBadTypedef:
		return 6
	case KindBadABI:
		return 7
	case KindBadArgType:
		return 8
	case KindDescriptorSyntax:
		return 9
	case KindInvalidCast:
		return 10
	case KindInvalidArguments:
		return 11
	}
	return 0
}

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Fragment string // offending descriptor text, if any
	Offset   int    // byte offset of Fragment in the parsed text
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Fragment != "" {
		fmt.Fprintf(&b, " at offset %d near %q", e.Offset, e.Fragment)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any error in err's chain is an *Error of the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Code returns the numeric code for err: 0 for nil, the kind's code for
// structured errors and the invalid-arguments code for anything else.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	if k, ok := KindOf(err); ok {
		return k.Code()
	}
	return KindInvalidArguments.Code()
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Fragment records the offending descriptor text and its offset
func (b *Builder) Fragment(text string, offset int) *Builder {
	b.err.Fragment = text
	b.err.Offset = offset
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a descriptor syntax error pointing at fragment
func Syntax(fragment string, offset int, detail string) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindDescriptorSyntax,
		Fragment: fragment,
		Offset:   offset,
		Detail:   detail,
	}
}

// InvalidCast creates a conversion error between two named types
func InvalidCast(from, into string) *Error {
	return &Error{
		Phase:  PhaseCoerce,
		Kind:   KindInvalidCast,
		Detail: fmt.Sprintf("invalid cast from '%s' into '%s'", from, into),
	}
}

// UnsupportedCast creates a conversion error for a type pair with no rule
func UnsupportedCast(from, into string) *Error {
	return &Error{
		Phase:  PhaseCoerce,
		Kind:   KindInvalidCast,
		Detail: fmt.Sprintf("cast from '%s' into '%s' unsupported", from, into),
	}
}

// InvalidArguments creates an argument or index validation error
func InvalidArguments(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArguments,
		Detail: detail,
	}
}

// CountMismatch creates an invalid-arguments error naming both counts
func CountMismatch(phase Phase, what string, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArguments,
		Detail: fmt.Sprintf("%s (%d / %d)", what, got, want),
		Value:  got,
	}
}

// OutOfBounds creates an index error for aggregate field access
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArguments,
		Detail: fmt.Sprintf("invalid index (%d / %d)", index, length),
		Value:  index,
	}
}

// BadTypedef creates an invoker type-definition rejection
func BadTypedef(detail string, cause error) *Error {
	return &Error{Phase: PhasePrepare, Kind: KindBadTypedef, Detail: detail, Cause: cause}
}

// BadABI creates an invoker calling-convention rejection
func BadABI(detail string, cause error) *Error {
	return &Error{Phase: PhasePrepare, Kind: KindBadABI, Detail: detail, Cause: cause}
}

// BadArgType creates an invoker argument-type rejection
func BadArgType(detail string, cause error) *Error {
	return &Error{Phase: PhasePrepare, Kind: KindBadArgType, Detail: detail, Cause: cause}
}

// LibraryOpen creates a library loading error
func LibraryOpen(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryOpen,
		Detail: fmt.Sprintf("open %q", path),
		Cause:  cause,
	}
}

// LibrarySymbol creates a symbol resolution error
func LibrarySymbol(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibrarySymbol,
		Detail: fmt.Sprintf("resolve symbol %q", name),
		Cause:  cause,
	}
}

// LibraryClose creates a library teardown error
func LibraryClose(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryClose,
		Detail: "close library",
		Cause:  cause,
	}
}

// StringToNative creates an error for a Go string that cannot cross the boundary
func StringToNative(detail string, cause error) *Error {
	return &Error{Phase: PhaseConvert, Kind: KindStringToNative, Detail: detail, Cause: cause}
}

// NativeToString creates an error for native bytes that do not form a valid string
func NativeToString(detail string, cause error) *Error {
	return &Error{Phase: PhaseConvert, Kind: KindNativeToString, Detail: detail, Cause: cause}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
