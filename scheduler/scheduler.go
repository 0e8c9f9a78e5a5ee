package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/metrics"
	"github.com/wippyai/wavedash/registry"
)

// Unit is one schedulable slot, usually a loaded module.
type Unit interface {
	Name() string
	Tick(ctx context.Context, st registry.State) error
}

// Failure records one unit that did not complete a tick.
type Failure struct {
	Unit     string
	Err      error
	Panicked bool
}

// Report summarizes a tick.
type Report struct {
	Tick     uint64
	Ran      int
	Failures []Failure
	Duration time.Duration
}

// OK reports whether every unit completed.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Err combines the failures, or returns nil.
func (r Report) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// Scheduler runs units one at a time in registration order.
type Scheduler struct {
	units   []Unit
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	onTick  func(Report)
	ticks   uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer sets the tracer for tick and unit spans. Defaults to the global
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithReportHook receives every report produced by Run.
func WithReportHook(fn func(Report)) Option {
	return func(s *Scheduler) { s.onTick = fn }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: zap.NewNop(),
		tracer: otel.Tracer("github.com/wippyai/wavedash/scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends units. Order of registration is order of execution.
func (s *Scheduler) Add(units ...Unit) {
	s.units = append(s.units, units...)
}

// Units returns unit names in execution order.
func (s *Scheduler) Units() []string {
	names := make([]string, len(s.units))
	for i, u := range s.units {
		names[i] = u.Name()
	}
	return names
}

// Ticks returns how many ticks have completed.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// Tick runs every unit once. A unit's error or panic is recorded and the
// remaining units still run.
func (s *Scheduler) Tick(ctx context.Context, st registry.State) Report {
	s.ticks++
	start := time.Now()
	report := Report{Tick: s.ticks}

	ctx, span := s.tracer.Start(ctx, "scheduler.tick",
		trace.WithAttributes(
			attribute.Int64("tick", int64(s.ticks)),
			attribute.Int("units", len(s.units)),
		))
	defer span.End()

	for _, u := range s.units {
		if f, failed := s.runUnit(ctx, u, st); failed {
			report.Failures = append(report.Failures, f)
		} else {
			report.Ran++
		}
	}

	report.Duration = time.Since(start)
	s.metrics.Tick(report.Duration)
	if !report.OK() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d units failed", len(report.Failures), len(s.units)))
	}
	return report
}

func (s *Scheduler) runUnit(ctx context.Context, u Unit, st registry.State) (f Failure, failed bool) {
	name := u.Name()
	ctx, span := s.tracer.Start(ctx, "unit "+name, trace.WithAttributes(attribute.String("module", name)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.PhaseRuntime, errors.KindTrap).
				Module(name).
				Cause(fmt.Errorf("%v", r)).
				Detail("unit panicked").
				Build()
			f, failed = s.fail(span, name, err, true), true
		}
	}()

	if err := u.Tick(ctx, st); err != nil {
		return s.fail(span, name, err, false), true
	}
	return Failure{}, false
}

func (s *Scheduler) fail(span trace.Span, name string, err error, panicked bool) Failure {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.UnitFailed(name)
	s.logger.Warn("unit failed",
		zap.String("module", name),
		zap.Bool("panicked", panicked),
		zap.Error(err))
	return Failure{Unit: name, Err: err, Panicked: panicked}
}

// Run ticks every interval until ctx is done or maxTicks ticks have run.
// maxTicks of zero means no limit. The first tick runs immediately. It
// returns nil when the limit is reached and ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context, st registry.State, interval time.Duration, maxTicks uint64) error {
	if interval <= 0 {
		return errors.InvalidInput(errors.PhaseRuntime, "tick interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := uint64(0); maxTicks == 0 || n < maxTicks; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		report := s.Tick(ctx, st)
		s.logger.Debug("tick",
			zap.Uint64("tick", report.Tick),
			zap.Int("ran", report.Ran),
			zap.Int("failed", len(report.Failures)),
			zap.Duration("took", report.Duration))
		if s.onTick != nil {
			s.onTick(report)
		}
	}
	return nil
}
