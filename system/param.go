package system

import (
	"github.com/wippyai/wavedash/guest"
)

// Param is a resource a system declares up front. The system resolves each
// parameter before its handler runs and releases it afterwards.
type Param interface {
	Key() string
	Mutable() bool

	acquire(c *guest.Client) error
	release() error
}

// Res is a read-only parameter.
type Res[T any] struct {
	key   string
	value T
}

// Read declares a read-only parameter on key.
func Read[T any](key string) *Res[T] {
	return &Res[T]{key: key}
}

func (r *Res[T]) Key() string   { return r.key }
func (r *Res[T]) Mutable() bool { return false }

// Get returns the value fetched for the current run.
func (r *Res[T]) Get() T { return r.value }

func (r *Res[T]) acquire(c *guest.Client) error {
	v, err := guest.Resource[T](c, r.key)
	if err != nil {
		return err
	}
	r.value = v
	return nil
}

func (r *Res[T]) release() error {
	var zero T
	r.value = zero
	return nil
}

// ResMut is a mutable parameter. Its value is written back when the system
// finishes, whatever the outcome.
type ResMut[T any] struct {
	key   string
	guard *guest.MutGuard[T]
}

// Write declares a mutable parameter on key.
func Write[T any](key string) *ResMut[T] {
	return &ResMut[T]{key: key}
}

func (r *ResMut[T]) Key() string   { return r.key }
func (r *ResMut[T]) Mutable() bool { return true }

// Get returns the local copy for the current run. It is nil outside a run.
func (r *ResMut[T]) Get() *T {
	if r.guard == nil {
		return nil
	}
	return r.guard.Get()
}

func (r *ResMut[T]) acquire(c *guest.Client) error {
	g, err := guest.ResourceMut[T](c, r.key)
	if err != nil {
		return err
	}
	r.guard = g
	return nil
}

func (r *ResMut[T]) release() error {
	if r.guard == nil {
		return nil
	}
	err := r.guard.Commit()
	r.guard = nil
	return err
}
