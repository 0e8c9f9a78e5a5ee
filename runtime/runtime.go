package runtime

import (
	"context"
	"slices"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/engine"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
)

// Runtime loads guests and serves their host imports. One Runtime owns one
// registry and one codec; every module it loads shares them.
type Runtime struct {
	engine     *engine.WazeroEngine
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	logger     *zap.Logger
	entry      string
	modules    []*Module
}

func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = protocol.JSON()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.entry == "" {
		o.entry = wavedash.ExportMain
	}

	reg, err := registry.New(o.descs...)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, o.engineCfg)
	if err != nil {
		return nil, errors.Load("", "create engine", err)
	}

	r := &Runtime{
		engine:   eng,
		registry: reg,
		logger:   o.logger,
		entry:    o.entry,
		dispatcher: dispatch.New(reg, o.codec,
			dispatch.WithLogger(o.logger.Named("guest")),
			dispatch.WithMetrics(o.metrics),
			dispatch.WithWriter(o.writer),
			dispatch.WithLogHook(o.logHook),
		),
	}

	err = eng.InstallHost(ctx, engine.HostImports{
		Request: r.serveRequest,
		Log:     r.serveLog,
	})
	if err != nil {
		_ = eng.Close(ctx)
		return nil, errors.Load("", "install host module", err)
	}
	return r, nil
}

// Close releases all runtime resources, including every loaded module.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	for _, m := range r.modules {
		err = multierr.Append(err, m.Close(ctx))
	}
	r.modules = nil
	return multierr.Append(err, r.engine.Close(ctx))
}

func (r *Runtime) Registry() *registry.Registry     { return r.registry }
func (r *Runtime) Codec() protocol.Codec            { return r.dispatcher.Codec() }
func (r *Runtime) Dispatcher() *dispatch.Dispatcher { return r.dispatcher }

// Load compiles, checks and instantiates a guest. Failures are load errors
// and affect only this module.
func (r *Runtime) Load(ctx context.Context, name string, wasm []byte) (*Module, error) {
	compiled, err := r.engine.Compile(ctx, wasm)
	if err != nil {
		return nil, errors.Load(name, "compile", err)
	}

	c := contractOf(compiled, r.entry)
	if err := c.Check(name); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	inst, err := compiled.Instantiate(ctx)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load(name, "instantiate", err)
	}

	m := &Module{
		name:     name,
		runtime:  r,
		compiled: compiled,
		instance: inst,
		memory:   inst.Memory(),
		contract: c,
	}
	r.modules = append(r.modules, m)
	r.logger.Debug("module loaded",
		zap.String("module", name),
		zap.Bool("entry", c.HasEntry),
		zap.Bool("init", c.HasInit),
		zap.Bool("systems", c.HasSystems))
	return m, nil
}

// Inspect compiles wasm and reports its guest contract without
// instantiating it.
func (r *Runtime) Inspect(ctx context.Context, wasm []byte) (Contract, error) {
	compiled, err := r.engine.Compile(ctx, wasm)
	if err != nil {
		return Contract{}, errors.Load("", "compile", err)
	}
	defer compiled.Close(ctx)
	return contractOf(compiled, r.entry), nil
}

// Unload closes m and forgets it.
func (r *Runtime) Unload(ctx context.Context, m *Module) error {
	r.modules = slices.DeleteFunc(r.modules, func(x *Module) bool { return x == m })
	return m.Close(ctx)
}

func (r *Runtime) serveRequest(ctx context.Context, _ api.Module, ptr, length uint32) (uint32, error) {
	cc, err := dispatch.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	raw, err := readGuest(cc, ptr, length)
	if err != nil {
		return 0, err
	}
	buf, err := r.dispatcher.Serve(ctx, cc, raw)
	if err != nil {
		return 0, err
	}
	return buf.Ptr, nil
}

func (r *Runtime) serveLog(ctx context.Context, _ api.Module, ptr, length uint32) error {
	cc, err := dispatch.FromContext(ctx)
	if err != nil {
		return err
	}
	raw, err := readGuest(cc, ptr, length)
	if err != nil {
		return err
	}
	r.dispatcher.Log(cc, string(raw))
	return nil
}

// readGuest copies a request out of guest memory. The copy matters: the
// response write may grow memory and move the backing array.
func readGuest(cc *dispatch.CallContext, ptr, length uint32) ([]byte, error) {
	if cc.Memory == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "guest memory")
	}
	view, err := cc.Memory.Read(ptr, length)
	if err != nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindProtocol).
			Module(cc.Module).
			Cause(err).
			Detail("request buffer out of bounds").
			Build()
	}
	return slices.Clone(view), nil
}
