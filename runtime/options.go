package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/engine"
	"github.com/wippyai/wavedash/handoff"
	"github.com/wippyai/wavedash/metrics"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
)

type options struct {
	descs     []registry.Descriptor
	codec     protocol.Codec
	logger    *zap.Logger
	metrics   *metrics.Metrics
	engineCfg *engine.Config
	writer    *handoff.Writer
	logHook   dispatch.LogHook
	entry     string
}

// Option configures a Runtime.
type Option func(*options)

// WithResource registers resource descriptors. Keys must be unique across
// all calls.
func WithResource(descs ...registry.Descriptor) Option {
	return func(o *options) { o.descs = append(o.descs, descs...) }
}

// WithCodec selects the envelope and payload codec. Defaults to JSON.
func WithCodec(c protocol.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the logger for the runtime and guest log lines.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records dispatch and handoff metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEngineConfig configures the underlying wazero runtime.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) { o.engineCfg = &cfg }
}

// WithHandoffWriter shares the writer whose counters track host writes.
func WithHandoffWriter(w *handoff.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithLogHook receives every guest log line.
func WithLogHook(fn dispatch.LogHook) Option {
	return func(o *options) { o.logHook = fn }
}

// WithEntryPoint renames the default entry export.
func WithEntryPoint(name string) Option {
	return func(o *options) { o.entry = name }
}

func defaultOptions() options {
	return options{
		codec:  protocol.JSON(),
		logger: zap.NewNop(),
		writer: handoff.NewWriter(),
		entry:  wavedash.ExportMain,
	}
}
