package wasm

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/descriptor"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/layout"
	"github.com/wippyai/sffi/value"
)

var errClosed = stderrors.New("image closed")

// valueType is the native form of a descriptor type.
type valueType struct {
	t        descriptor.Type
	vt       api.ValueType
	indirect bool
}

func (v *valueType) void() bool { return v.t.IsVoid() }

// callInterface is a prepared core function type.
type callInterface struct {
	args    []*valueType
	ret     *valueType
	params  []api.ValueType
	results []api.ValueType
	offsets []int
	rawSize int
}

func (ci *callInterface) stackSize() int {
	return max(len(ci.params), len(ci.results))
}

// MapType maps a descriptor type onto a wasm value type.
func (r *Runtime) MapType(t descriptor.Type) (sffi.NativeType, error) {
	k := t.Kind
	switch {
	case k == descriptor.KindAuto:
		return nil, errors.New(errors.PhasePrepare, errors.KindDescriptorSyntax).
			Detail("type 'auto' cannot be mapped").
			Build()
	case k == descriptor.KindVoid:
		return &valueType{t: t}, nil
	case k.IsExtended():
		return nil, errors.BadArgType("type '"+t.String()+"' has no wasm representation", nil)
	case k == descriptor.KindAggregate:
		if err := checkAggregate(t); err != nil {
			return nil, err
		}
		return &valueType{t: t, vt: api.ValueTypeI32, indirect: true}, nil
	case k.IsPointerLike():
		return &valueType{t: t, vt: api.ValueTypeI32}, nil
	case k.IsFloat() && k.Size() == 4:
		return &valueType{t: t, vt: api.ValueTypeF32}, nil
	case k.IsFloat():
		return &valueType{t: t, vt: api.ValueTypeF64}, nil
	case k.Size() == 8:
		return &valueType{t: t, vt: api.ValueTypeI64}, nil
	default:
		return &valueType{t: t, vt: api.ValueTypeI32}, nil
	}
}

// checkAggregate rejects fields whose host layout differs from the guest's.
func checkAggregate(t descriptor.Type) error {
	for _, f := range t.Fields {
		switch {
		case f.IsAggregate():
			if err := checkAggregate(f); err != nil {
				return err
			}
		case f.Kind.IsPointerLike(), f.Kind.IsExtended(), f.IsVoid(), f.IsAuto():
			return errors.BadTypedef("field type '"+f.String()+"' not supported in wasm aggregate "+t.String(), nil)
		}
	}
	return nil
}

// Prepare builds a call interface for the default convention. Aggregate
// returns are not supported.
func (r *Runtime) Prepare(args []sffi.NativeType, ret sffi.NativeType, conv sffi.Convention) (sffi.CallInterface, error) {
	if conv != sffi.ConventionDefault {
		return nil, errors.BadABI("wasm supports only the default convention, got "+conv.String(), nil)
	}

	ci := &callInterface{}
	types := make([]descriptor.Type, len(args))
	for i, a := range args {
		vt, ok := a.(*valueType)
		if !ok {
			return nil, errors.BadTypedef("foreign native type", nil)
		}
		if vt.void() {
			return nil, errors.BadArgType("void argument", nil)
		}
		ci.args = append(ci.args, vt)
		ci.params = append(ci.params, vt.vt)
		types[i] = vt.t
	}

	rt, ok := ret.(*valueType)
	if !ok {
		return nil, errors.BadTypedef("foreign native type", nil)
	}
	if rt.indirect {
		return nil, errors.BadArgType("aggregate return type '"+rt.t.String()+"' not supported", nil)
	}
	ci.ret = rt
	if !rt.void() {
		ci.results = []api.ValueType{rt.vt}
	}

	ci.offsets, ci.rawSize = layout.Raw(types)
	return ci, nil
}

// CheckSymbol verifies that the export's core type matches ci.
func (r *Runtime) CheckSymbol(ci sffi.CallInterface, sym sffi.Symbol) error {
	c, s, err := unpack(ci, sym)
	if err != nil {
		return err
	}
	def := s.fn.Definition()
	if slices.Equal(def.ParamTypes(), c.params) && slices.Equal(def.ResultTypes(), c.results) {
		return nil
	}
	return errors.BadArgType("signature mismatch for "+s.name+": prepared "+
		coreType(c.params, c.results)+", exported "+coreType(def.ParamTypes(), def.ResultTypes()), nil)
}

func coreType(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, vt := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(vt))
	}
	b.WriteString(") -> (")
	for i, vt := range results {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(vt))
	}
	b.WriteByte(')')
	return b.String()
}

func unpack(ci sffi.CallInterface, sym sffi.Symbol) (*callInterface, *Symbol, error) {
	c, ok := ci.(*callInterface)
	if !ok {
		return nil, nil, errors.InvalidArguments(errors.PhaseCall, "call interface was not prepared by the wasm runtime")
	}
	s, ok := sym.(*Symbol)
	if !ok {
		return nil, nil, errors.InvalidArguments(errors.PhaseCall, "symbol %s was not resolved by the wasm runtime", sym.Name())
	}
	return c, s, nil
}

// Invoke calls sym with one buffer per argument.
func (r *Runtime) Invoke(ctx context.Context, ci sffi.CallInterface, sym sffi.Symbol, result []byte, args [][]byte) error {
	c, s, err := unpack(ci, sym)
	if err != nil {
		return err
	}
	if s.img.mod == nil {
		return errors.InvalidArguments(errors.PhaseCall, "%s called after its image was closed", s.name)
	}
	if len(args) != len(c.args) {
		return errors.CountMismatch(errors.PhaseCall, "invalid arguments count", len(args), len(c.args))
	}

	stack := make([]uint64, c.stackSize())
	var temps []uint64
	defer func() {
		// Copies are freed even when ctx was cancelled mid-call.
		fctx := context.WithoutCancel(ctx)
		for _, addr := range temps {
			if err := s.img.heap.free(fctx, addr); err != nil {
				Logger().Warn("failed to free argument copy",
					zap.String("func", s.name),
					zap.Uint64("addr", addr),
					zap.Error(err))
			}
		}
	}()

	for i, a := range c.args {
		if !a.indirect {
			stack[i] = encode(a.t.Kind, args[i])
			continue
		}
		if s.img.heap == nil {
			return errors.InvalidArguments(errors.PhaseCall, "aggregate argument needs guest memory")
		}
		size := a.t.Size()
		addr, mem, err := s.img.heap.alloc(ctx, size)
		if err != nil {
			return err
		}
		temps = append(temps, addr)
		copy(mem, args[i][:size])
		stack[i] = addr
	}

	if err := s.fn.CallWithStack(ctx, stack); err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindInvalidArguments, err, "call "+s.name)
	}

	if !c.ret.void() {
		decode(c.ret.t.Kind, stack[0], result)
	}
	return nil
}

// InvokeRaw splits flat as computed by layout.Raw and calls Invoke.
func (r *Runtime) InvokeRaw(ctx context.Context, ci sffi.CallInterface, sym sffi.Symbol, result []byte, flat []byte) error {
	c, ok := ci.(*callInterface)
	if !ok {
		return errors.InvalidArguments(errors.PhaseCall, "call interface was not prepared by the wasm runtime")
	}
	if len(flat) < c.rawSize {
		return errors.InvalidArguments(errors.PhaseCall,
			"raw argument buffer too small (%d / %d)", len(flat), c.rawSize)
	}
	args := make([][]byte, len(c.args))
	for i, a := range c.args {
		off := c.offsets[i]
		args[i] = flat[off : off+a.t.Size()]
	}
	return r.Invoke(ctx, ci, sym, result, args)
}

// encode converts an argument buffer into a stack slot.
func encode(k descriptor.Kind, b []byte) uint64 {
	switch {
	case k.IsPointerLike():
		return api.EncodeU32(uint32(value.ReadWord(b)))
	case k.IsFloat() && k.Size() == 4:
		return api.EncodeF32(value.ReadF32(b))
	case k.IsFloat():
		return api.EncodeF64(value.ReadF64(b))
	case k.IsSigned() && k.Size() == 8:
		return api.EncodeI64(value.Int(k, b))
	case k.IsSigned():
		return api.EncodeI32(int32(value.Int(k, b)))
	case k.Size() == 8:
		return value.Uint(k, b)
	default:
		return api.EncodeU32(uint32(value.Uint(k, b)))
	}
}

// decode writes a stack slot into a result buffer of kind k.
func decode(k descriptor.Kind, slot uint64, out []byte) {
	switch {
	case k.IsPointerLike():
		value.PutWord(out, uint64(api.DecodeU32(slot)))
	case k.IsFloat() && k.Size() == 4:
		value.PutFloat(k, out, float64(api.DecodeF32(slot)))
	case k.IsFloat():
		value.PutFloat(k, out, api.DecodeF64(slot))
	case k.IsSigned() && k.Size() < 8:
		value.PutInt(k, out, int64(api.DecodeI32(slot)))
	case k.Size() < 8:
		value.PutUint(k, out, uint64(api.DecodeU32(slot)))
	default:
		value.PutBits(k, out, slot)
	}
}
