package config

import (
	"fmt"
	"sort"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
	"github.com/wippyai/wavedash/world"
)

// Resource types accepted in config files.
const (
	TypeInt    = "int"
	TypeString = "string"
	TypeBool   = "bool"
	TypeJSON   = "json"
)

// Resource seeds one key of shared state. The stored Go type follows Type:
// int64, string, bool, or the decoded JSON value for json.
type Resource struct {
	Key   string `yaml:"key" json:"key" validate:"required"`
	Type  string `yaml:"type" json:"type" validate:"oneof=int string bool json" jsonschema:"enum=int,enum=string,enum=bool,enum=json"`
	Value any    `yaml:"value" json:"value"`
}

// Descriptor builds the registry entry for r.
func (r Resource) Descriptor(codec protocol.Codec) (registry.Descriptor, error) {
	switch r.Type {
	case TypeInt:
		return registry.Typed[int64](r.Key, codec), nil
	case TypeString:
		return registry.Typed[string](r.Key, codec), nil
	case TypeBool:
		return registry.Typed[bool](r.Key, codec), nil
	case TypeJSON:
		if codec.Name() != protocol.CodecJSON {
			return registry.Descriptor{}, r.invalid("json resources need the json codec")
		}
		return registry.Typed[any](r.Key, codec), nil
	default:
		return registry.Descriptor{}, r.invalid("unknown type " + r.Type)
	}
}

func (r Resource) value() (any, error) {
	switch r.Type {
	case TypeInt:
		switch v := r.Value.(type) {
		case nil:
			return int64(0), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case uint64:
			return int64(v), nil
		default:
			return nil, r.invalid(fmt.Sprintf("value %v is not an integer", r.Value))
		}
	case TypeString:
		switch v := r.Value.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		default:
			return nil, r.invalid(fmt.Sprintf("value %v is not a string", r.Value))
		}
	case TypeBool:
		switch v := r.Value.(type) {
		case nil:
			return false, nil
		case bool:
			return v, nil
		default:
			return nil, r.invalid(fmt.Sprintf("value %v is not a bool", r.Value))
		}
	case TypeJSON:
		if r.Value == nil {
			return map[string]any{}, nil
		}
		return normalize(r.Value), nil
	default:
		return nil, r.invalid("unknown type " + r.Type)
	}
}

func (r Resource) invalid(detail string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Key(r.Key).
		Detail("resource: %s", detail).
		Build()
}

// normalize turns YAML maps into JSON-compatible ones.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int:
		return float64(t)
	default:
		return v
	}
}

// Descriptors builds registry entries for every configured resource.
func (c *Config) Descriptors(codec protocol.Codec) ([]registry.Descriptor, error) {
	descs := make([]registry.Descriptor, 0, len(c.Resources))
	for _, r := range c.Resources {
		d, err := r.Descriptor(codec)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Seed inserts every configured resource's initial value into w.
func (c *Config) Seed(w *world.World) error {
	for _, r := range c.Resources {
		v, err := r.value()
		if err != nil {
			return err
		}
		w.Insert(r.Key, v)
	}
	return nil
}

// Keys returns the configured resource keys, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		keys[i] = r.Key
	}
	sort.Strings(keys)
	return keys
}
