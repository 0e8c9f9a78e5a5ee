package dispatch

import (
	"context"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/registry"
)

// CallContext is what a host import needs to serve one guest request. It is
// created for one outermost call into a module and is not valid after that
// call returns.
type CallContext struct {
	State     registry.State
	Memory    wavedash.GuestMemory
	Allocator wavedash.Allocator
	Module    string
}

type callContextKey struct{}

// WithCallContext attaches cc to ctx for the duration of one call.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// FromContext returns the CallContext of the call in progress.
func FromContext(ctx context.Context) (*CallContext, error) {
	cc, ok := ctx.Value(callContextKey{}).(*CallContext)
	if !ok || cc == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "call context")
	}
	return cc, nil
}
