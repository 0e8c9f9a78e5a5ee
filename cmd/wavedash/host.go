package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wavedash/config"
	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/logging"
	"github.com/wippyai/wavedash/metrics"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/runtime"
	"github.com/wippyai/wavedash/scheduler"
	"github.com/wippyai/wavedash/tracing"
	"github.com/wippyai/wavedash/world"
)

// host is one configured process: runtime, shared state and scheduler.
type host struct {
	cfg       *config.Config
	log       *logging.Logger
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	runtime   *runtime.Runtime
	world     *world.World
	scheduler *scheduler.Scheduler
	modules   []*runtime.Module
	server    *http.Server
}

type hostOptions struct {
	console    io.Writer
	logHook    dispatch.LogHook
	reportHook func(scheduler.Report)
}

// newHost builds everything cfg describes. A module that fails to load is
// logged and skipped; it is an error only if none load.
func newHost(ctx context.Context, cfg *config.Config, o hostOptions) (*host, error) {
	var logOpts []logging.Option
	if o.console != nil {
		logOpts = append(logOpts, logging.WithConsole(o.console))
	}
	log, err := logging.New(cfg.Log, logOpts...)
	if err != nil {
		return nil, err
	}
	h := &host{cfg: cfg, log: log, world: world.New()}

	if err := h.init(ctx, o); err != nil {
		_ = h.Close(ctx)
		return nil, err
	}
	return h, nil
}

func (h *host) init(ctx context.Context, o hostOptions) error {
	cfg := h.cfg

	codec, err := protocol.ByName(cfg.Codec)
	if err != nil {
		return err
	}
	descs, err := cfg.Descriptors(codec)
	if err != nil {
		return err
	}
	if err := cfg.Seed(h.world); err != nil {
		return err
	}

	if h.metrics, err = metrics.New(); err != nil {
		return err
	}
	if h.tracer, err = tracing.New(cfg.Trace, os.Stderr); err != nil {
		return err
	}

	h.runtime, err = runtime.New(ctx,
		runtime.WithCodec(codec),
		runtime.WithResource(descs...),
		runtime.WithLogger(h.log.Logger),
		runtime.WithMetrics(h.metrics),
		runtime.WithEngineConfig(cfg.EngineSettings()),
		runtime.WithEntryPoint(cfg.EntryPoint),
		runtime.WithLogHook(o.logHook),
	)
	if err != nil {
		return err
	}

	h.scheduler = scheduler.New(
		scheduler.WithLogger(h.log.Named("scheduler")),
		scheduler.WithMetrics(h.metrics),
		scheduler.WithTracer(h.tracer),
		scheduler.WithReportHook(o.reportHook),
	)

	for _, mc := range cfg.Modules {
		m, err := h.load(ctx, mc)
		if err != nil {
			h.log.Error("module not loaded", zap.String("module", mc.Name), zap.Error(err))
			continue
		}
		h.modules = append(h.modules, m)
		h.scheduler.Add(m)
	}
	if len(h.modules) == 0 {
		return errors.New(errors.PhaseLoad, errors.KindLoad).
			Detail("no module loaded (%d configured)", len(cfg.Modules)).
			Build()
	}

	if cfg.MetricsAddr != "" {
		h.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (h *host) load(ctx context.Context, mc config.ModuleConfig) (*runtime.Module, error) {
	wasm, err := os.ReadFile(mc.Path)
	if err != nil {
		return nil, errors.Load(mc.Name, "read "+mc.Path, err)
	}
	m, err := h.runtime.Load(ctx, mc.Name, wasm)
	if err != nil {
		return nil, err
	}
	c := m.Contract()
	h.log.Info("module loaded",
		zap.String("module", mc.Name),
		zap.String("entry", c.Entry),
		zap.Bool("init", c.HasInit),
		zap.Bool("systems", c.HasSystems))
	return m, nil
}

func (h *host) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.metrics.Handler())
	h.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	h.log.Info("serving metrics", zap.String("addr", addr))
}

// run drives the scheduler until ctx is done or the tick budget is spent.
func (h *host) run(ctx context.Context) error {
	err := h.scheduler.Run(ctx, h.world, h.cfg.TickInterval, h.cfg.MaxTicks)
	if err == context.Canceled {
		return nil
	}
	return err
}

func (h *host) Close(ctx context.Context) error {
	var err error
	if h.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = multierr.Append(err, h.server.Shutdown(shutdownCtx))
		cancel()
	}
	if h.runtime != nil {
		err = multierr.Append(err, h.runtime.Close(ctx))
	}
	err = multierr.Append(err, h.tracer.Close())
	return multierr.Append(err, h.log.Close())
}
