package registry

import (
	"fmt"
	"sort"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
)

// Accessor reads and writes the raw value stored under one key.
type Accessor interface {
	Get() any
	Set(v any) error
}

// State is the shared-state container a host hands to a call.
type State interface {
	Accessor(key string) (Accessor, bool)
}

// Descriptor binds a resource key to the two operations the dispatcher needs.
type Descriptor struct {
	Key string

	// Serialize encodes the current value under Key.
	Serialize func(st State) ([]byte, error)

	// Apply decodes data and stores it under Key.
	Apply func(st State, data []byte) error
}

// Registry is an immutable set of descriptors keyed by resource key.
// Lookups are lock-free once constructed.
type Registry struct {
	descs map[string]Descriptor
	keys  []string // sorted
}

// New creates a Registry. Empty and duplicate keys are rejected.
func New(descs ...Descriptor) (*Registry, error) {
	m := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		if d.Key == "" {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "resource key cannot be empty")
		}
		if d.Serialize == nil || d.Apply == nil {
			return nil, errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
				Key(d.Key).
				Detail("descriptor needs both Serialize and Apply").
				Build()
		}
		if _, exists := m[d.Key]; exists {
			return nil, errors.DuplicateKey(d.Key)
		}
		m[d.Key] = d
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Registry{descs: m, keys: keys}, nil
}

// MustNew is New that panics on error.
func MustNew(descs ...Descriptor) *Registry {
	r, err := New(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for key. A miss is a lookup error.
func (r *Registry) Lookup(key string) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, errors.Lookup(errors.PhaseRegistry, key)
	}
	d, ok := r.descs[key]
	if !ok {
		return Descriptor{}, errors.Lookup(errors.PhaseRegistry, key)
	}
	return d, nil
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.descs[key]
	return ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.descs)
}

// Typed builds a descriptor for a resource whose raw value in State has Go
// type T, encoding payloads with codec.
func Typed[T any](key string, codec protocol.Codec) Descriptor {
	want := fmt.Sprintf("%T", *new(T))

	return Descriptor{
		Key: key,
		Serialize: func(st State) ([]byte, error) {
			acc, err := accessor(st, key)
			if err != nil {
				return nil, err
			}
			raw := acc.Get()
			v, ok := raw.(T)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseRegistry, key, want, fmt.Errorf("stored value is %T", raw))
			}
			data, err := codec.Marshal(v)
			if err != nil {
				return nil, errors.New(errors.PhaseEncode, errors.KindProtocol).
					Key(key).
					Cause(err).
					Detail("encode resource value").
					Build()
			}
			return data, nil
		},
		Apply: func(st State, data []byte) error {
			acc, err := accessor(st, key)
			if err != nil {
				return err
			}
			var v T
			if err := codec.Unmarshal(data, &v); err != nil {
				return errors.TypeMismatch(errors.PhaseDecode, key, want, err)
			}
			if err := acc.Set(v); err != nil {
				return errors.TypeMismatch(errors.PhaseRegistry, key, want, err)
			}
			return nil
		},
	}
}

func accessor(st State, key string) (Accessor, error) {
	if st == nil {
		return nil, errors.NotInitialized(errors.PhaseRegistry, "shared state")
	}
	acc, ok := st.Accessor(key)
	if !ok {
		return nil, errors.Lookup(errors.PhaseRegistry, key)
	}
	return acc, nil
}
