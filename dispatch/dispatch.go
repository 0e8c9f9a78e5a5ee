package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/handoff"
	"github.com/wippyai/wavedash/metrics"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
)

// LogHook receives every guest log line after it has been logged.
type LogHook func(module, text string)

// Dispatcher serves guest requests against a registry.
type Dispatcher struct {
	registry *registry.Registry
	codec    protocol.Codec
	writer   *handoff.Writer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	logHook  LogHook
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger guest log lines and faults are written to.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records request and fault counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithWriter shares a handoff writer, and its counters, with the caller.
func WithWriter(w *handoff.Writer) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.writer = w
		}
	}
}

// WithLogHook forwards guest log lines to fn.
func WithLogHook(fn LogHook) Option {
	return func(d *Dispatcher) { d.logHook = fn }
}

// New creates a Dispatcher. A nil codec selects JSON.
func New(reg *registry.Registry, codec protocol.Codec, opts ...Option) *Dispatcher {
	if codec == nil {
		codec = protocol.JSON()
	}
	d := &Dispatcher{
		registry: reg,
		codec:    codec,
		writer:   handoff.NewWriter(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Codec() protocol.Codec        { return d.codec }
func (d *Dispatcher) Registry() *registry.Registry { return d.registry }
func (d *Dispatcher) Writer() *handoff.Writer      { return d.writer }

// Handle executes one decoded request. Panics raised by descriptor functions
// are returned as trap errors.
func (d *Dispatcher) Handle(cc *CallContext, req protocol.Request) (resp protocol.Response, err error) {
	if cc == nil {
		return protocol.Response{}, errors.NotInitialized(errors.PhaseDispatch, "call context")
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseDispatch, errors.KindTrap).
				Module(cc.Module).
				Key(req.Key).
				Cause(fmt.Errorf("%v", r)).
				Detail("%s handler panicked", req.Kind).
				Build()
		}
	}()

	d.metrics.Request(req.Kind.String())

	switch req.Kind {
	case protocol.RequestLog:
		d.Log(cc, req.Text)
		return protocol.Empty(), nil

	case protocol.RequestGetResource:
		desc, err := d.registry.Lookup(req.Key)
		if err != nil {
			return protocol.Response{}, err
		}
		data, err := desc.Serialize(cc.State)
		if err != nil {
			return protocol.Response{}, err
		}
		return protocol.ResourceValue(data), nil

	case protocol.RequestSetResource:
		desc, err := d.registry.Lookup(req.Key)
		if err != nil {
			return protocol.Response{}, err
		}
		if err := desc.Apply(cc.State, req.Value); err != nil {
			return protocol.Response{}, err
		}
		return protocol.Empty(), nil

	default:
		return protocol.Response{}, errors.UnknownTag(errors.PhaseDispatch, "request", req.Kind)
	}
}

// Serve decodes raw, handles it, and writes the framed encoded response into
// a guest-allocated buffer. Any error is tagged with the module name and
// must trap the guest call.
func (d *Dispatcher) Serve(ctx context.Context, cc *CallContext, raw []byte) (handoff.TransferBuffer, error) {
	buf, err := d.serve(ctx, cc, raw)
	if err != nil {
		module := ""
		if cc != nil {
			module = cc.Module
		}
		err = errors.WithModule(err, module)
		kind, _ := errors.KindOf(err)
		d.metrics.Fault(string(kind))
		d.logger.Debug("guest request faulted",
			zap.String("module", module),
			zap.Error(err))
		return handoff.TransferBuffer{}, err
	}
	return buf, nil
}

func (d *Dispatcher) serve(ctx context.Context, cc *CallContext, raw []byte) (handoff.TransferBuffer, error) {
	if cc == nil {
		return handoff.TransferBuffer{}, errors.NotInitialized(errors.PhaseDispatch, "call context")
	}

	req, err := d.codec.DecodeRequest(raw)
	if err != nil {
		return handoff.TransferBuffer{}, err
	}

	resp, err := d.Handle(cc, req)
	if err != nil {
		return handoff.TransferBuffer{}, err
	}

	payload, err := d.codec.EncodeResponse(resp)
	if err != nil {
		return handoff.TransferBuffer{}, err
	}

	grewBefore := d.writer.Stats().GrowCalls.Load()
	buf, err := d.writer.WriteFrame(ctx, cc.Memory, cc.Allocator, payload)
	if err != nil {
		return handoff.TransferBuffer{}, err
	}
	d.metrics.Handoff(int(buf.Len), d.writer.Stats().GrowCalls.Load() != grewBefore)
	return buf, nil
}

// Log writes a guest log line. It serves both the Log request and the
// dedicated log import.
func (d *Dispatcher) Log(cc *CallContext, text string) {
	module := ""
	if cc != nil {
		module = cc.Module
	}
	d.logger.Info(text, zap.String("module", module))
	if d.logHook != nil {
		d.logHook(module, text)
	}
}
