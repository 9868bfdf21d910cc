// Package signature models the argument and return types of a foreign function.
package signature

import (
	"github.com/wippyai/sffi/descriptor"
)

// Signature is an immutable list of argument types plus a return type.
type Signature struct {
	args []descriptor.Type
	ret  descriptor.Type
}

// New builds a signature from already parsed types.
func New(args []descriptor.Type, ret descriptor.Type) Signature {
	cp := make([]descriptor.Type, len(args))
	copy(cp, args)
	return Signature{args: cp, ret: ret}
}

// Parse parses a function descriptor such as "(i32,i32)i32".
func Parse(text string) (Signature, error) {
	args, ret, err := descriptor.ParseFunc(text)
	if err != nil {
		return Signature{}, err
	}
	return Signature{args: args, ret: ret}, nil
}

// MustParse is like Parse but panics on error. Intended for constant descriptors.
func MustParse(text string) Signature {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// NumArgs returns the declared argument count.
func (s Signature) NumArgs() int { return len(s.args) }

// Arg returns the type of argument i.
func (s Signature) Arg(i int) descriptor.Type { return s.args[i] }

// Args returns a copy of the argument types.
func (s Signature) Args() []descriptor.Type {
	out := make([]descriptor.Type, len(s.args))
	copy(out, s.args)
	return out
}

// Return returns the return type.
func (s Signature) Return() descriptor.Type { return s.ret }

// Equal reports structural equality of two signatures.
func (s Signature) Equal(o Signature) bool {
	if len(s.args) != len(o.args) || !s.ret.Equal(o.ret) {
		return false
	}
	for i := range s.args {
		if !s.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

// ContainsAuto reports whether any argument or the return type uses Auto.
func (s Signature) ContainsAuto() bool {
	if s.ret.ContainsAuto() {
		return true
	}
	for _, a := range s.args {
		if a.ContainsAuto() {
			return true
		}
	}
	return false
}

func (s Signature) String() string {
	return descriptor.FormatFunc(s.args, s.ret)
}
