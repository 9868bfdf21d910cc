package wasm

import (
	"context"
	"os"
	"strings"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/sffi"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/internal/textconv"
)

// Config holds configuration for runtime creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per image in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// Encoding is the string encoding used by the heap's CString, GoString
	// and Strdup.
	Encoding textconv.Encoding

	// WIT declares function descriptors for every image, as
	// "name: func(a: s32) -> s32;" entries. A "<module>.wit" file next to
	// an opened module takes precedence.
	WIT string
}

// Runtime loads modules and invokes their functions. It implements both
// sffi.Loader and sffi.Invoker.
type Runtime struct {
	rt  wazero.Runtime
	cfg Config
}

// New creates a runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	r := &Runtime{}
	if cfg != nil {
		r.cfg = *cfg
		if cfg.MemoryLimitPages > 0 {
			rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}
	r.rt = wazero.NewRuntimeWithConfig(ctx, rc)
	return r, nil
}

// Close releases the runtime and every image it opened.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Open reads and instantiates the module at path.
func (r *Runtime) Open(ctx context.Context, path string) (sffi.Image, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LibraryOpen(path, err)
	}

	witText := r.cfg.WIT
	witPath := strings.TrimSuffix(path, ".wasm") + ".wit"
	if witPath != path {
		if b, err := os.ReadFile(witPath); err == nil {
			witText = string(b)
			Logger().Debug("using WIT declarations", zap.String("path", witPath))
		}
	}

	img, err := r.OpenBytes(ctx, path, bin, witText)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// OpenBytes instantiates a module from its binary. name is used in errors
// and logs. witText may be empty.
func (r *Runtime) OpenBytes(ctx context.Context, name string, bin []byte, witText string) (*Image, error) {
	var decls map[string]string
	if strings.TrimSpace(witText) != "" {
		var err error
		if decls, err = parseWIT(witText); err != nil {
			return nil, errors.LibraryOpen(name, err)
		}
	}

	compiled, err := r.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.LibraryOpen(name, err)
	}

	mod, err := r.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.LibraryOpen(name, err)
	}

	img := &Image{
		name:     name,
		compiled: compiled,
		mod:      mod,
		decls:    decls,
	}
	if mem := mod.Memory(); mem != nil {
		img.heap = newHeap(mod, mem, r.cfg.Encoding)
	}

	Logger().Debug("module instantiated",
		zap.String("name", name),
		zap.Int("exports", len(mod.ExportedFunctionDefinitions())),
		zap.Bool("heap", img.heap != nil))
	return img, nil
}
