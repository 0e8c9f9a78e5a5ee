package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wavedash"
)

// HostImports implements the functions guests import from the wavedash
// module. A handler that returns an error traps the calling guest; the
// error surfaces from the guest call that is in progress.
type HostImports struct {
	// Request serves request(ptr, len) -> ptr.
	Request func(ctx context.Context, caller api.Module, ptr, length uint32) (uint32, error)

	// Log serves log(ptr, len).
	Log func(ctx context.Context, caller api.Module, ptr, length uint32) error
}

// InstallHost instantiates the host module. It must run before the first
// guest that imports it is instantiated, and only once per engine.
func (e *WazeroEngine) InstallHost(ctx context.Context, h HostImports) error {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	if e.host != nil {
		return fmt.Errorf("host module %q already installed", wavedash.ImportModule)
	}
	if h.Request == nil || h.Log == nil {
		return fmt.Errorf("host module needs both %s and %s", wavedash.ImportRequest, wavedash.ImportLog)
	}

	i32 := api.ValueTypeI32
	builder := e.runtime.NewHostModuleBuilder(wavedash.ImportModule)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			ptr, err := h.Request(ctx, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
			if err != nil {
				Logger().Debug("request import trapped", zap.Error(err))
				panic(err)
			}
			stack[0] = api.EncodeU32(ptr)
		}), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("ptr", "len").
		Export(wavedash.ImportRequest)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			if err := h.Log(ctx, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1])); err != nil {
				Logger().Debug("log import trapped", zap.Error(err))
				panic(err)
			}
		}), []api.ValueType{i32, i32}, nil).
		WithParameterNames("ptr", "len").
		Export(wavedash.ImportLog)

	host, err := builder.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate host module: %w", err)
	}
	e.host = host
	return nil
}
