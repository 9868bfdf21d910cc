package wasm

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/errors"
)

var errNotExported = stderrors.New("function not exported")

// Image is an instantiated module.
type Image struct {
	compiled wazero.CompiledModule
	mod      api.Module
	heap     *Heap
	decls    map[string]string
	name     string
}

// Symbol is an exported function of an Image.
type Symbol struct {
	fn   api.Function
	img  *Image
	name string
}

// Name returns the export name.
func (s *Symbol) Name() string { return s.name }

// Addr returns the function index in the module.
func (s *Symbol) Addr() uintptr { return uintptr(s.fn.Definition().Index()) }

// Heap returns the memory of the image the symbol belongs to.
func (s *Symbol) Heap() sffi.Heap { return s.img.Heap() }

// Resolve looks up an exported function.
func (img *Image) Resolve(name string) (sffi.Symbol, error) {
	if img.mod == nil {
		return nil, errors.LibrarySymbol(name, errClosed)
	}
	fn := img.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.LibrarySymbol(name, errNotExported)
	}
	Logger().Debug("symbol resolved", zap.String("image", img.name), zap.String("name", name))
	return &Symbol{fn: fn, img: img, name: name}, nil
}

// Heap returns the module's memory, or nil if it exports none.
func (img *Image) Heap() sffi.Heap {
	if img.heap == nil {
		return nil
	}
	return img.heap
}

// Symbols returns the exported function names in sorted order.
func (img *Image) Symbols() []string {
	if img.mod == nil {
		return nil
	}
	defs := img.mod.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe returns the descriptor declared for name in WIT, or one derived
// from the export's core type.
func (img *Image) Describe(name string) (string, error) {
	if desc, ok := img.decls[name]; ok {
		return desc, nil
	}
	if img.mod == nil {
		return "", errors.LibrarySymbol(name, errClosed)
	}
	def, ok := img.mod.ExportedFunctionDefinitions()[name]
	if !ok {
		return "", errors.LibrarySymbol(name, errNotExported)
	}
	return coreDescriptor(def)
}

// Close closes the module instance and its compiled code.
func (img *Image) Close(ctx context.Context) error {
	if img.mod == nil {
		return nil
	}
	err := multierr.Append(img.mod.Close(ctx), img.compiled.Close(ctx))
	img.mod = nil
	img.heap = nil
	Logger().Debug("module closed", zap.String("name", img.name), zap.Error(err))
	return err
}

// coreDescriptor renders a core function type as a descriptor.
func coreDescriptor(def api.FunctionDefinition) (string, error) {
	results := def.ResultTypes()
	if len(results) > 1 {
		return "", errors.BadArgType("multiple results of "+def.Name()+" have no descriptor", nil)
	}

	var b strings.Builder
	b.WriteByte('(')
	for i, vt := range def.ParamTypes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(valueTypeDescriptor(vt))
	}
	b.WriteByte(')')
	if len(results) == 0 {
		b.WriteString("void")
	} else {
		b.WriteString(valueTypeDescriptor(results[0]))
	}
	return b.String(), nil
}

func valueTypeDescriptor(vt api.ValueType) string {
	switch vt {
	case api.ValueTypeI64:
		return "i64"
	case api.ValueTypeF32:
		return "f32"
	case api.ValueTypeF64:
		return "f64"
	}
	return "i32"
}
