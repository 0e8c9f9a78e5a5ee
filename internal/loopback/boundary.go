package loopback

import (
	"context"

	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/registry"
)

// Guest wires a simulated guest memory to a host dispatcher, so the guest
// client library can run in-process without a VM.
type Guest struct {
	dispatcher *dispatch.Dispatcher
	memory     *Memory
	alloc      *Allocator
	module     string
	ctx        context.Context

	// State is the shared state handed to every call.
	State registry.State

	calls int
}

// Option configures a Guest.
type Option func(*Guest)

// WithMemory replaces the default one-page memory.
func WithMemory(m *Memory) Option {
	return func(g *Guest) { g.memory = m }
}

// WithModule sets the module name attached to requests.
func WithModule(name string) Option {
	return func(g *Guest) { g.module = name }
}

// WithContext sets the context passed to the dispatcher.
func WithContext(ctx context.Context) Option {
	return func(g *Guest) { g.ctx = ctx }
}

// New creates a Guest that serves requests through d against st.
func New(d *dispatch.Dispatcher, st registry.State, opts ...Option) *Guest {
	g := &Guest{
		dispatcher: d,
		memory:     NewMemory(1, 256),
		alloc:      NewAllocator(16),
		module:     "loopback",
		ctx:        context.Background(),
		State:      st,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guest) callContext() *dispatch.CallContext {
	return &dispatch.CallContext{
		State:     g.State,
		Memory:    g.memory,
		Allocator: g.alloc,
		Module:    g.module,
	}
}

// Call serves one encoded request and returns the response buffer address.
func (g *Guest) Call(req []byte) (uint32, error) {
	g.calls++
	buf, err := g.dispatcher.Serve(g.ctx, g.callContext(), req)
	if err != nil {
		return 0, err
	}
	return buf.Ptr, nil
}

// Log serves the dedicated log import.
func (g *Guest) Log(msg string) error {
	g.dispatcher.Log(g.callContext(), msg)
	return nil
}

func (g *Guest) Load(ptr, n uint32) ([]byte, error) {
	return g.memory.Read(ptr, n)
}

func (g *Guest) Free(ptr, size, align uint32) {
	g.alloc.Free(ptr, size, align)
}

func (g *Guest) Memory() *Memory       { return g.memory }
func (g *Guest) Allocator() *Allocator { return g.alloc }
func (g *Guest) Module() string        { return g.module }

// Calls returns how many requests reached the host.
func (g *Guest) Calls() int { return g.calls }
