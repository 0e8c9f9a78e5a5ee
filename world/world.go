package world

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/wippyai/wavedash/registry"
)

// World is a keyed value store implementing registry.State.
// Stored values keep their dynamic type: Set rejects a value of another type.
type World struct {
	mu     sync.RWMutex
	values map[string]any
}

var _ registry.State = (*World)(nil)

// New creates an empty World.
func New() *World {
	return &World{values: make(map[string]any)}
}

// Insert stores v under key, replacing any previous value regardless of type.
func (w *World) Insert(key string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values[key] = v
}

// Remove deletes key.
func (w *World) Remove(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.values, key)
}

// Get returns the raw value under key.
func (w *World) Get(key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.values[key]
	return v, ok
}

// Keys returns stored keys in sorted order.
func (w *World) Keys() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]string, 0, len(w.values))
	for k := range w.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of all values.
func (w *World) Snapshot() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// Accessor implements registry.State.
func (w *World) Accessor(key string) (registry.Accessor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.values[key]; !ok {
		return nil, false
	}
	return cell{w: w, key: key}, true
}

type cell struct {
	w   *World
	key string
}

func (c cell) Get() any {
	v, _ := c.w.Get(c.key)
	return v
}

func (c cell) Set(v any) error {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	old, ok := c.w.values[c.key]
	if ok && old != nil && reflect.TypeOf(old) != reflect.TypeOf(v) {
		return fmt.Errorf("cannot store %T under %q holding %T", v, c.key, old)
	}
	c.w.values[c.key] = v
	return nil
}

// Value returns the value under key as T.
func Value[T any](w *World, key string) (T, bool) {
	raw, ok := w.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
