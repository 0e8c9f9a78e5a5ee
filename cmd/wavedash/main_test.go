package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/wavedash/config"
	"github.com/wippyai/wavedash/internal/wasmbin"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/world"
)

func TestDemo(t *testing.T) {
	var out bytes.Buffer
	if err := demo(context.Background(), &out, 2); err != nil {
		t.Fatalf("demo: %v", err)
	}
	got := out.String()
	for _, want := range []string{"tick 1: Counter=43", "tick 2: Counter=44", "counter: counter guest tick"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestInspect(t *testing.T) {
	var out bytes.Buffer
	err := inspect(context.Background(), &out, wasmbin.CounterGuest().MustBuild(), "wavedash_main")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out.String(), "wavedash.request") || !strings.HasSuffix(out.String(), "ok\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	bad := wasmbin.Guest{Key: "Counter", NoAlloc: true}.MustBuild()
	if err := inspect(context.Background(), &out, bad, "wavedash_main"); err == nil {
		t.Error("expected contract failure")
	}
	if !strings.Contains(out.String(), "allocator export: no") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestHost_SkipsBadModules(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "counter.wasm")
	if err := os.WriteFile(good, wasmbin.CounterGuest().MustBuild(), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Codec = protocol.CodecBorsh
	cfg.Log.Level = "error"
	cfg.MaxTicks = 2
	cfg.Resources = []config.Resource{{Key: "Counter", Type: config.TypeInt, Value: 42}}
	cfg.Modules = []config.ModuleConfig{
		{Name: "missing", Path: filepath.Join(dir, "missing.wasm")},
		{Name: "counter", Path: good},
	}

	var logs bytes.Buffer
	ctx := context.Background()
	h, err := newHost(ctx, cfg, hostOptions{console: &logs})
	if err != nil {
		t.Fatalf("newHost: %v", err)
	}
	defer h.Close(ctx)

	if len(h.modules) != 1 {
		t.Fatalf("loaded %d modules, want 1", len(h.modules))
	}
	if !strings.Contains(logs.String(), "module not loaded") {
		t.Errorf("missing load error log: %s", logs.String())
	}

	if err := h.run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if v, _ := world.Value[int64](h.world, "Counter"); v != 44 {
		t.Errorf("Counter = %d, want 44", v)
	}
}

func TestHost_NoModules(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Modules = []config.ModuleConfig{{Name: "gone", Path: "/nonexistent/gone.wasm"}}

	var logs bytes.Buffer
	if _, err := newHost(context.Background(), cfg, hostOptions{console: &logs}); err == nil {
		t.Fatal("expected error when no module loads")
	}
}

func TestInspectorApply(t *testing.T) {
	cfg := config.Default()
	m := newInspectorModel(cfg)
	m.host = &host{world: world.New()}
	m.host.world.Insert("Counter", int64(1))
	m.host.world.Insert("Name", "a")
	m.host.world.Insert("Paused", false)

	for _, line := range []string{"Counter=100", "Name = wave", "Paused=true"} {
		if err := m.apply(line); err != nil {
			t.Errorf("apply(%q): %v", line, err)
		}
	}
	if v, _ := world.Value[int64](m.host.world, "Counter"); v != 100 {
		t.Errorf("Counter = %d", v)
	}
	if v, _ := world.Value[string](m.host.world, "Name"); v != "wave" {
		t.Errorf("Name = %q", v)
	}

	for _, line := range []string{"nokey", "Missing=1", "Counter=abc"} {
		if err := m.apply(line); err == nil {
			t.Errorf("apply(%q): expected error", line)
		}
	}
}
