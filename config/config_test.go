package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/world"
)

const sample = `
codec: json
tick_interval: 10ms
max_ticks: 5
engine:
  memory_limit_pages: 64
log:
  level: debug
resources:
  - key: Counter
    type: int
    value: 42
  - key: Name
    type: string
    value: wave
  - key: Paused
    type: bool
  - key: Settings
    type: json
    value:
      gravity: 9
      tags: [a, b]
modules:
  - name: counter
    path: counter.wasm
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.TickInterval != 10*time.Millisecond {
		t.Errorf("TickInterval = %s", c.TickInterval)
	}
	if c.MaxTicks != 5 {
		t.Errorf("MaxTicks = %d", c.MaxTicks)
	}
	if c.EntryPoint != "wavedash_main" {
		t.Errorf("EntryPoint default = %q", c.EntryPoint)
	}
	if c.Log.Encoding != "console" {
		t.Errorf("Log.Encoding default = %q", c.Log.Encoding)
	}
	if got := c.EngineSettings().MemoryLimitPages; got != 64 {
		t.Errorf("MemoryLimitPages = %d", got)
	}
	if got := strings.Join(c.Keys(), ","); got != "Counter,Name,Paused,Settings" {
		t.Errorf("Keys = %s", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown codec", "codec: msgpack"},
		{"unknown field", "colour: blue"},
		{"negative interval", "tick_interval: -1s"},
		{"bad level", "log: {level: loud}"},
		{"bad resource type", "resources: [{key: A, type: float}]"},
		{"resource without key", "resources: [{type: int}]"},
		{"int value not int", "resources: [{key: A, type: int, value: abc}]"},
		{"duplicate resource", "resources: [{key: A, type: int}, {key: A, type: bool}]"},
		{"module without path", "modules: [{name: m}]"},
		{"memory limit", "engine: {memory_limit_pages: 70000}"},
		{"trace exporter", "trace: {enabled: true, exporter: kafka}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if k, _ := errors.KindOf(err); k != errors.KindInvalidInput {
				t.Errorf("kind = %q, want invalid_input (%v)", k, err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Codec != protocol.CodecJSON || c.TickInterval != DefaultTickInterval {
		t.Errorf("unexpected defaults: %s", c)
	}
}

func TestSeedAndDescriptors(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	w := world.New()
	if err := c.Seed(w); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if v, ok := world.Value[int64](w, "Counter"); !ok || v != 42 {
		t.Errorf("Counter = %v, %v", v, ok)
	}
	if v, ok := world.Value[bool](w, "Paused"); !ok || v {
		t.Errorf("Paused = %v, %v", v, ok)
	}
	settings, ok := world.Value[any](w, "Settings")
	if !ok {
		t.Fatal("Settings missing")
	}
	if m, ok := settings.(map[string]any); !ok || m["gravity"] != float64(9) {
		t.Errorf("Settings = %#v", settings)
	}

	codec := protocol.JSON()
	descs, err := c.Descriptors(codec)
	if err != nil {
		t.Fatalf("Descriptors: %v", err)
	}
	if len(descs) != 4 {
		t.Fatalf("got %d descriptors", len(descs))
	}

	for _, d := range descs {
		data, err := d.Serialize(w)
		if err != nil {
			t.Fatalf("Serialize %s: %v", d.Key, err)
		}
		if err := d.Apply(w, data); err != nil {
			t.Fatalf("Apply %s: %v", d.Key, err)
		}
	}
	if v, _ := world.Value[int64](w, "Counter"); v != 42 {
		t.Errorf("Counter after round trip = %d", v)
	}
}

func TestDescriptors_JSONNeedsJSONCodec(t *testing.T) {
	c := Default()
	c.Resources = []Resource{{Key: "S", Type: TypeJSON}}
	if _, err := c.Descriptors(protocol.Borsh()); err == nil {
		t.Fatal("expected error for json resource with borsh codec")
	}
}

func TestLoad_ResolvesModulePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wavedash.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "counter.wasm"); c.Modules[0].Path != want {
		t.Errorf("module path = %s, want %s", c.Modules[0].Path, want)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	for _, want := range []string{`"tick_interval"`, `"resources"`, `"borsh"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %s", want)
		}
	}
}
