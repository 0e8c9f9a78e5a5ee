package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/engine"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/registry"
)

// Module is one instantiated guest. Its memory handle is bound once, right
// after instantiation, and never rebound.
type Module struct {
	name     string
	runtime  *Runtime
	compiled *engine.WazeroModule
	instance *engine.WazeroInstance
	memory   *engine.WazeroMemory
	contract Contract

	initialized bool
	initErr     error
	systems     uint32
}

func (m *Module) Name() string       { return m.name }
func (m *Module) Contract() Contract { return m.contract }

// Memory returns the guest's linear memory.
func (m *Module) Memory() wavedash.GuestMemory { return m.memory }

// Call invokes export as an outermost call. The CallContext built here is
// visible to host imports for the duration of this call only.
func (m *Module) Call(ctx context.Context, st registry.State, export string, params ...uint64) ([]uint64, error) {
	if m.instance == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "module "+m.name)
	}

	cc := &dispatch.CallContext{
		State:  st,
		Memory: m.memory,
		Module: m.name,
	}
	callCtx := dispatch.WithCallContext(ctx, cc)
	cc.Allocator = m.instance.Allocator(callCtx, wavedash.ExportAlloc)

	results, err := m.instance.Call(callCtx, export, params...)
	if err != nil {
		if _, ok := errors.KindOf(err); ok {
			return nil, errors.WithModule(err, m.name)
		}
		return nil, errors.Trap(m.name, export, err)
	}
	return results, nil
}

// Init runs wavedash_init once, if exported, and reads the system count.
// It is attempted exactly once: a failed init is not retried, and every
// later call returns the same error.
func (m *Module) Init(ctx context.Context, st registry.State) error {
	if m.initialized {
		return m.initErr
	}
	m.initialized = true
	m.initErr = m.init(ctx, st)
	return m.initErr
}

func (m *Module) init(ctx context.Context, st registry.State) error {
	if m.contract.HasInit {
		if _, err := m.Call(ctx, st, wavedash.ExportInit); err != nil {
			return err
		}
	}
	if m.contract.HasSystems {
		res, err := m.Call(ctx, st, wavedash.ExportSystemCount)
		if err != nil {
			return err
		}
		if len(res) != 1 {
			return errors.Trap(m.name, wavedash.ExportSystemCount, nil)
		}
		m.systems = api.DecodeU32(res[0])
	}
	return nil
}

// RunEntry calls the default entry point.
func (m *Module) RunEntry(ctx context.Context, st registry.State) error {
	return m.RunEntryPoint(ctx, st, m.contract.Entry)
}

// RunEntryPoint calls a named, parameterless export.
func (m *Module) RunEntryPoint(ctx context.Context, st registry.State, name string) error {
	_, err := m.Call(ctx, st, name)
	return err
}

// SystemCount returns the number of systems the guest registered during
// Init. It is zero before Init and for guests without systems.
func (m *Module) SystemCount() uint32 { return m.systems }

// RunSystem calls wavedash_run_system(id).
func (m *Module) RunSystem(ctx context.Context, st registry.State, id uint32) error {
	if !m.contract.HasSystems {
		return errors.MissingExport(m.name, wavedash.ExportRunSystem)
	}
	_, err := m.Call(ctx, st, wavedash.ExportRunSystem, api.EncodeU32(id))
	return err
}

// Tick runs one scheduler slot: Init on the first tick, then the entry
// point if exported, then every system in id order. The first failure ends
// the slot. A module whose init failed fails every tick with that error.
func (m *Module) Tick(ctx context.Context, st registry.State) error {
	if err := m.Init(ctx, st); err != nil {
		return err
	}
	if m.contract.HasEntry {
		if err := m.RunEntry(ctx, st); err != nil {
			return err
		}
	}
	for id := uint32(0); id < m.systems; id++ {
		if err := m.RunSystem(ctx, st, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Close(ctx context.Context) error {
	if m.instance == nil {
		return nil
	}
	err := m.instance.Close(ctx)
	if cerr := m.compiled.Close(ctx); err == nil {
		err = cerr
	}
	m.instance = nil
	m.memory = nil
	m.runtime.logger.Debug("module closed", zap.String("module", m.name))
	return err
}
