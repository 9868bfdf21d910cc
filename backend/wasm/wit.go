package wasm

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
)

var witFuncPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseWIT extracts "name: func(params) -> result" declarations and renders
// each as a descriptor.
func parseWIT(text string) (map[string]string, error) {
	decls := make(map[string]string)

	for _, match := range witFuncPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		var args []descriptor.Type

		for _, p := range splitParams(match[2]) {
			typStr := p
			if idx := strings.Index(p, ":"); idx != -1 {
				typStr = p[idx+1:]
			}
			t, err := witDescriptorType(typStr)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}

		ret := descriptor.Void
		if res := strings.TrimSpace(match[3]); res != "" && res != "()" {
			t, err := witDescriptorType(res)
			if err != nil {
				return nil, err
			}
			ret = t
		}

		decls[name] = descriptor.FormatFunc(args, ret)
	}

	if len(decls) == 0 {
		return nil, errors.InvalidArguments(errors.PhaseParse, "no functions found in WIT text")
	}
	return decls, nil
}

// splitParams splits on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}

func witDescriptorType(s string) (descriptor.Type, error) {
	s = strings.TrimSpace(s)
	t, err := wit.ParseType(s)
	if err != nil {
		return descriptor.Type{}, errors.New(errors.PhaseParse, errors.KindDescriptorSyntax).
			Fragment(s, 0).
			Cause(err).
			Detail("invalid WIT type").
			Build()
	}
	return fromWIT(t, s)
}

// fromWIT maps a WIT type onto the descriptor the wasm32 C ABI passes it
// as. Strings are NUL-terminated and lists are bare element pointers.
func fromWIT(t wit.Type, text string) (descriptor.Type, error) {
	switch v := t.(type) {
	case wit.Bool, wit.U8:
		return descriptor.Of(descriptor.KindU8), nil
	case wit.S8:
		return descriptor.Of(descriptor.KindI8), nil
	case wit.U16:
		return descriptor.Of(descriptor.KindU16), nil
	case wit.S16:
		return descriptor.Of(descriptor.KindI16), nil
	case wit.U32, wit.Char:
		return descriptor.U32, nil
	case wit.S32:
		return descriptor.I32, nil
	case wit.U64:
		return descriptor.Of(descriptor.KindU64), nil
	case wit.S64:
		return descriptor.I64, nil
	case wit.F32:
		return descriptor.F32, nil
	case wit.F64:
		return descriptor.F64, nil
	case wit.String:
		return descriptor.Of(descriptor.KindRefStr), nil
	case *wit.TypeDef:
		switch k := v.Kind.(type) {
		case *wit.List:
			return descriptor.Of(descriptor.KindRefArray), nil
		case *wit.Tuple:
			fields := make([]descriptor.Type, len(k.Types))
			for i, ft := range k.Types {
				f, err := fromWIT(ft, text)
				if err != nil {
					return descriptor.Type{}, err
				}
				fields[i] = f
			}
			return descriptor.Aggregate(fields...), nil
		case wit.Type:
			return fromWIT(k, text)
		}
	}
	return descriptor.Type{}, errors.New(errors.PhaseParse, errors.KindDescriptorSyntax).
		Fragment(text, 0).
		Detail("WIT type has no descriptor").
		Build()
}
