package guest

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
)

// Resource fetches and decodes the current value under key.
func Resource[T any](c *Client, key string) (T, error) {
	var v T
	resp, err := c.Request(protocol.GetResource(key))
	if err != nil {
		return v, err
	}
	if resp.Kind != protocol.ResponseResourceValue {
		return v, errors.UnknownTag(errors.PhaseGuest, "response", resp.Kind)
	}
	if err := c.codec.Unmarshal(resp.Value, &v); err != nil {
		return v, errors.TypeMismatch(errors.PhaseGuest, key, fmt.Sprintf("%T", v), err)
	}
	return v, nil
}

// SetResource encodes v and stores it under key.
func SetResource[T any](c *Client, key string, v T) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return errors.New(errors.PhaseGuest, errors.KindProtocol).
			Key(key).
			Cause(err).
			Detail("encode resource value").
			Build()
	}
	resp, err := c.Request(protocol.SetResource(key, data))
	if err != nil {
		return err
	}
	return expectEmpty(resp)
}

// MutGuard holds a local copy of a resource. Commit writes it back exactly
// once, whether or not it changed.
type MutGuard[T any] struct {
	client    *Client
	key       string
	value     T
	committed bool
	err       error
}

// ResourceMut fetches key for modification. Callers must Commit the guard,
// or use With which always does.
func ResourceMut[T any](c *Client, key string) (*MutGuard[T], error) {
	v, err := Resource[T](c, key)
	if err != nil {
		return nil, err
	}
	return &MutGuard[T]{client: c, key: key, value: v}, nil
}

func (g *MutGuard[T]) Key() string { return g.key }

// Get returns the local copy for reading and writing.
func (g *MutGuard[T]) Get() *T { return &g.value }

// Set replaces the local copy.
func (g *MutGuard[T]) Set(v T) { g.value = v }

// Committed reports whether the write-back has been issued.
func (g *MutGuard[T]) Committed() bool { return g.committed }

// Commit writes the local copy back. Only the first call issues a request;
// later calls return its result.
func (g *MutGuard[T]) Commit() error {
	if g.committed {
		return g.err
	}
	g.committed = true
	g.err = SetResource(g.client, g.key, g.value)
	return g.err
}

// With runs fn on a mutable copy of key and commits it afterwards, including
// when fn returns an error or panics. A panic is re-raised after the commit.
func With[T any](c *Client, key string, fn func(v *T) error) (err error) {
	g, err := ResourceMut[T](c, key)
	if err != nil {
		return err
	}
	defer func() {
		r := recover()
		cerr := g.Commit()
		if r != nil {
			panic(r)
		}
		err = multierr.Append(err, cerr)
	}()
	return fn(g.Get())
}
