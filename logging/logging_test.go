package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wavedash/config"
)

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Encoding: "json"}, WithConsole(&buf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("hidden")
	l.Info("shown", zap.String("module", "counter"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, `"module":"counter"`) {
		t.Errorf("missing field: %s", out)
	}

	l.SetLevel(zapcore.DebugLevel)
	l.Debug("now shown")
	if !strings.Contains(buf.String(), "now shown") {
		t.Error("SetLevel did not apply")
	}
	if l.Level() != zapcore.DebugLevel {
		t.Errorf("Level = %s", l.Level())
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wavedash.log")
	var console bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn", Encoding: "console", File: path}, WithConsole(&console))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Warn("to both")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("file missing line: %s", data)
	}
	if !strings.Contains(console.String(), "to both") {
		t.Errorf("console missing line: %s", console.String())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New(config.LogConfig{Level: "info", Encoding: "xml"}); err == nil {
		t.Error("expected error for bad encoding")
	}
}
