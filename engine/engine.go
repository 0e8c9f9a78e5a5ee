package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WazeroEngine owns one wazero runtime shared by every guest it loads.
type WazeroEngine struct {
	runtime wazero.Runtime
	hostMu  sync.Mutex
	host    api.Module
	wasi    api.Closer
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CloseOnContextDone makes guest calls observe context cancellation.
	// Off by default: a call into a guest runs to completion.
	CloseOnContextDone bool

	// EnableWASI instantiates wasi_snapshot_preview1 so guests built by
	// toolchains that need it (GOOS=wasip1, wasm32-wasi) can link.
	EnableWASI bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	e := &WazeroEngine{runtime: runtime}

	if cfg != nil && cfg.EnableWASI {
		wasi, err := wasi_snapshot_preview1.Instantiate(ctx, runtime)
		if err != nil {
			_ = runtime.Close(ctx)
			return nil, fmt.Errorf("instantiate WASI: %w", err)
		}
		e.wasi = wasi
	}
	return e, nil
}

// Close releases the runtime and every module instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile validates and compiles a guest binary.
func (e *WazeroEngine) Compile(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return &WazeroModule{engine: e, compiled: compiled}, nil
}

// WazeroModule is a compiled guest that can be instantiated.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// ExportedFunctions returns the guest's function exports by name.
func (m *WazeroModule) ExportedFunctions() map[string]api.FunctionDefinition {
	return m.compiled.ExportedFunctions()
}

// ImportedFunctions returns the host functions the guest expects.
func (m *WazeroModule) ImportedFunctions() []api.FunctionDefinition {
	return m.compiled.ImportedFunctions()
}

// HasMemoryExport reports whether the guest exports a memory under name.
func (m *WazeroModule) HasMemoryExport(name string) bool {
	_, ok := m.compiled.ExportedMemories()[name]
	return ok
}

// Close releases compilation artifacts. Instances stay usable.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates a running instance. Only the reactor initializer
// "_initialize" runs on instantiation; a command's "_start" never does.
func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	inst := &WazeroInstance{module: mod}
	if mem := mod.Memory(); mem != nil {
		inst.memory = &WazeroMemory{mem: mem}
	}
	return inst, nil
}

// WazeroInstance is one instantiated guest.
type WazeroInstance struct {
	module api.Module
	memory *WazeroMemory
}

// Memory returns the guest's exported memory, or nil.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// ExportedFunction returns the named export, or nil.
func (i *WazeroInstance) ExportedFunction(name string) api.Function {
	if i.module == nil {
		return nil
	}
	return i.module.ExportedFunction(name)
}

// Call invokes an exported function.
func (i *WazeroInstance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return fn.Call(ctx, params...)
}

// Allocator returns an allocator backed by the guest export name, bound to
// ctx. It must only be used inside the call that ctx belongs to.
func (i *WazeroInstance) Allocator(ctx context.Context, name string) *WazeroAllocator {
	return &WazeroAllocator{allocFn: i.ExportedFunction(name), ctx: ctx}
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module = nil
	i.memory = nil
	return err
}
