package tracing

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/wippyai/wavedash/errors"
)

const (
	exportTimeout = 10 * time.Second
	// Longer than exportTimeout so in-flight exports can finish.
	shutdownTimeout = 15 * time.Second

	ExporterStdout = "stdout"
	ExporterZipkin = "zipkin"

	DefaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
)

// Config selects where tick spans go.
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Exporter is "stdout" or "zipkin".
	Exporter string `yaml:"exporter" json:"exporter,omitempty" validate:"omitempty,oneof=stdout zipkin"`

	// Endpoint is the zipkin collector URL.
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty" validate:"omitempty,url"`

	// SampleRate is the fraction of ticks traced. >= 1 traces all of them.
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate,omitempty" validate:"gte=0,lte=1"`

	ServiceName string `yaml:"service_name" json:"service_name,omitempty"`
}

// Tracer is a trace.Tracer that owns its provider.
type Tracer struct {
	trace.Tracer

	tp *sdktrace.TracerProvider
}

// Close flushes and shuts down the provider. It is a no-op for disabled
// tracers.
func (t *Tracer) Close() error {
	if t == nil || t.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return t.tp.Shutdown(ctx)
}

// New builds a tracer from cfg. Stdout spans are written to w, or to stdout
// when w is nil.
func New(cfg Config, w io.Writer) (*Tracer, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "wavedash"
	}
	if !cfg.Enabled {
		return &Tracer{Tracer: noop.NewTracerProvider().Tracer(name)}, nil
	}

	exporter, err := newExporter(cfg, w)
	if err != nil {
		return nil, err
	}

	rate := cfg.SampleRate
	if rate == 0 {
		rate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(exportTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			attribute.String("component", "scheduler"),
		)),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)
	return &Tracer{Tracer: tp.Tracer(name), tp: tp}, nil
}

func newExporter(cfg Config, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterStdout:
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "stdout exporter")
		}
		return exp, nil
	case ExporterZipkin:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultZipkinEndpoint
		}
		exp, err := zipkin.New(endpoint)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "zipkin exporter")
		}
		return exp, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown trace exporter "+cfg.Exporter)
	}
}
