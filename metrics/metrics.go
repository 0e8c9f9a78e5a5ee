package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const namespace = "wavedash"

// Metrics holds the collectors shared by the dispatcher and the scheduler.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	faults       *prometheus.CounterVec
	unitFailures *prometheus.CounterVec
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	handoffBytes prometheus.Counter
	growCalls    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with a fresh registry.
func New() (*Metrics, error) {
	return NewWith(prometheus.NewRegistry())
}

// NewWith registers the collectors with reg.
func NewWith(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "guest requests handled, by request kind",
		}, []string{"kind"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "faults_total",
			Help:      "guest requests that trapped, by error kind",
		}, []string{"kind"}),
		unitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "unit_failures_total",
			Help:      "failed module ticks, by module",
		}, []string{"module"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "scheduler ticks completed",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "time spent running all modules once",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		handoffBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "bytes_total",
			Help:      "bytes written into guest memory",
		}),
		growCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "grow_calls_total",
			Help:      "memory growth calls made before host writes",
		}),
	}

	if reg != nil {
		err := multierr.Combine(
			reg.Register(m.requests),
			reg.Register(m.faults),
			reg.Register(m.unitFailures),
			reg.Register(m.ticks),
			reg.Register(m.tickDuration),
			reg.Register(m.handoffBytes),
			reg.Register(m.growCalls),
		)
		if err != nil {
			return nil, err
		}
		if g, ok := reg.(prometheus.Gatherer); ok {
			m.gatherer = g
		}
	}
	return m, nil
}

func (m *Metrics) Request(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

func (m *Metrics) Fault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind).Inc()
}

func (m *Metrics) UnitFailed(module string) {
	if m == nil {
		return
	}
	m.unitFailures.WithLabelValues(module).Inc()
}

// Tick records one completed scheduler tick.
func (m *Metrics) Tick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// Handoff records one host write of n bytes, and whether it grew memory.
func (m *Metrics) Handoff(n int, grew bool) {
	if m == nil {
		return
	}
	m.handoffBytes.Add(float64(n))
	if grew {
		m.growCalls.Inc()
	}
}

// Gatherer returns the registry the collectors were registered with, if it
// can be gathered.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	g := m.Gatherer()
	if g == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
