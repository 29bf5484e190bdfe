// Package wasmimport makes the functions exported by a WebAssembly module
// callable from expressions.
//
// Exported functions whose parameters and single result are numbers become
// Go functions over int32, int64, float32 and float64; functions with other
// shapes are skipped.
//
//	mod, err := wasmimport.Load(ctx, wasmBytes)
//	if err != nil {
//	    return err
//	}
//	defer mod.Close(ctx)
//	_ = mod.Library("Wasm").Import(fctx.Imports())
//	expr, _ := fctx.Compile("Wasm.add(1, 2)")
package wasmimport

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
)

// Option configures Load.
type Option func(*options)

type options struct {
	memoryLimitPages uint32
	wasi             bool
	logger           *slog.Logger
}

// WithMemoryLimitPages caps the linear memory of the module in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) { o.memoryLimitPages = pages }
}

// WithWASI instantiates the WASI preview1 host module before the module,
// for modules built with GOOS=wasip1 or a WASI libc.
func WithWASI() Option {
	return func(o *options) { o.wasi = true }
}

// WithLogger sets the logger reporting skipped exports.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Module is an instantiated WebAssembly module. Calls into it are
// serialized.
type Module struct {
	mu      sync.Mutex
	ctx     context.Context
	runtime wazero.Runtime
	mod     api.Module
	funcs   map[string]any
}

// Load compiles and instantiates wasm. ctx bounds the calls made by
// evaluated expressions; cancelling it makes them fail.
func Load(ctx context.Context, wasm []byte, opts ...Option) (*Module, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if o.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(o.memoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	if o.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("wasm: instantiate wasi: %w", err)
		}
	}

	mod, err := r.Instantiate(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasm: instantiate: %w", err)
	}

	m := &Module{ctx: ctx, runtime: r, mod: mod, funcs: make(map[string]any)}
	for name, def := range mod.ExportedFunctionDefinitions() {
		fn, ok := m.bind(name, def)
		if !ok {
			o.logger.Debug("wasm export skipped", slog.String("name", name))
			continue
		}
		m.funcs[name] = fn
	}
	return m, nil
}

// Names returns the names of the callable exports, sorted.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func returns the Go function bound to export name.
func (m *Module) Func(name string) (any, bool) {
	fn, ok := m.funcs[name]
	return fn, ok
}

// Library returns the callable exports as a library imported under
// namespace.
func (m *Module) Library(namespace string) extutil.Library {
	lib := extutil.Library{Name: namespace}
	for _, name := range m.Names() {
		lib.Defs = append(lib.Defs, extutil.Def{Name: name, Fn: m.funcs[name]})
	}
	return lib
}

// Close releases the runtime and the module.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

var errorType = reflect.TypeFor[error]()

func goType(vt api.ValueType) (reflect.Type, bool) {
	switch vt {
	case api.ValueTypeI32:
		return reflect.TypeFor[int32](), true
	case api.ValueTypeI64:
		return reflect.TypeFor[int64](), true
	case api.ValueTypeF32:
		return reflect.TypeFor[float32](), true
	case api.ValueTypeF64:
		return reflect.TypeFor[float64](), true
	}
	return nil, false
}

func encode(vt api.ValueType, v reflect.Value) uint64 {
	switch vt {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(v.Int()))
	case api.ValueTypeI64:
		return api.EncodeI64(v.Int())
	case api.ValueTypeF32:
		return api.EncodeF32(float32(v.Float()))
	default:
		return api.EncodeF64(v.Float())
	}
}

func decode(vt api.ValueType, raw uint64) reflect.Value {
	switch vt {
	case api.ValueTypeI32:
		return reflect.ValueOf(api.DecodeI32(raw))
	case api.ValueTypeI64:
		return reflect.ValueOf(int64(raw))
	case api.ValueTypeF32:
		return reflect.ValueOf(api.DecodeF32(raw))
	default:
		return reflect.ValueOf(api.DecodeF64(raw))
	}
}

// bind builds func(params...) (result, error) calling export name.
func (m *Module) bind(name string, def api.FunctionDefinition) (any, bool) {
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(results) != 1 {
		return nil, false
	}
	in := make([]reflect.Type, len(params))
	for i, p := range params {
		t, ok := goType(p)
		if !ok {
			return nil, false
		}
		in[i] = t
	}
	out, ok := goType(results[0])
	if !ok {
		return nil, false
	}

	fn := m.mod.ExportedFunction(name)
	sig := reflect.FuncOf(in, []reflect.Type{out, errorType}, false)
	impl := reflect.MakeFunc(sig, func(args []reflect.Value) []reflect.Value {
		raw := make([]uint64, len(args))
		for i, a := range args {
			raw[i] = encode(params[i], a)
		}
		m.mu.Lock()
		res, err := fn.Call(m.ctx, raw...)
		m.mu.Unlock()
		if err != nil {
			return []reflect.Value{reflect.Zero(out), reflect.ValueOf(fmt.Errorf("wasm %s: %w", name, err))}
		}
		return []reflect.Value{decode(results[0], res[0]), reflect.Zero(errorType)}
	})
	return impl.Interface(), true
}
