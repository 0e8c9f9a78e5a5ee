package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/engine"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/tracing"
)

const (
	DefaultTickInterval     = 16 * time.Millisecond
	DefaultMemoryLimitPages = 256
)

var validate = validator.New()

// Config describes one host process: the codec, the resources seeded into
// shared state, and the modules ticked against it.
type Config struct {
	Codec        string        `yaml:"codec" json:"codec" validate:"oneof=json borsh" jsonschema:"enum=json,enum=borsh,default=json"`
	EntryPoint   string        `yaml:"entry_point" json:"entry_point" validate:"required" jsonschema:"default=wavedash_main"`
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval" validate:"gt=0" jsonschema:"type=string,description=Go duration such as 16ms"`
	MaxTicks     uint64        `yaml:"max_ticks" json:"max_ticks" jsonschema:"description=0 runs until interrupted"`
	MetricsAddr  string        `yaml:"metrics_addr" json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`

	Engine EngineConfig   `yaml:"engine" json:"engine"`
	Log    LogConfig      `yaml:"log" json:"log"`
	Trace  tracing.Config `yaml:"trace" json:"trace"`

	Resources []Resource     `yaml:"resources" json:"resources" validate:"unique=Key,dive"`
	Modules   []ModuleConfig `yaml:"modules" json:"modules" validate:"unique=Name,dive"`
}

type EngineConfig struct {
	MemoryLimitPages   uint32 `yaml:"memory_limit_pages" json:"memory_limit_pages" validate:"lte=65536"`
	CloseOnContextDone bool   `yaml:"close_on_context_done" json:"close_on_context_done"`
	EnableWASI         bool   `yaml:"enable_wasi" json:"enable_wasi"`
}

// LogConfig selects the logger. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Encoding   string `yaml:"encoding" json:"encoding" validate:"oneof=console json" jsonschema:"enum=console,enum=json"`
	File       string `yaml:"file" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days,omitempty" validate:"gte=0"`
}

type ModuleConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Path string `yaml:"path" json:"path" validate:"required"`
}

// Default returns a config with every default applied and no modules.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Codec == "" {
		c.Codec = "json"
	}
	if c.EntryPoint == "" {
		c.EntryPoint = wavedash.ExportMain
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Engine.MemoryLimitPages == 0 {
		c.Engine.MemoryLimitPages = DefaultMemoryLimitPages
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the file at path. Relative module paths are resolved
// against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range c.Modules {
		if !filepath.IsAbs(c.Modules[i].Path) {
			c.Modules[i].Path = filepath.Join(dir, c.Modules[i].Path)
		}
	}
	return c, nil
}

// Validate checks field constraints and resource values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid config")
	}
	for _, r := range c.Resources {
		if _, err := r.value(); err != nil {
			return err
		}
	}
	return nil
}

// EngineSettings converts the engine section.
func (c *Config) EngineSettings() engine.Config {
	return engine.Config{
		MemoryLimitPages:   c.Engine.MemoryLimitPages,
		CloseOnContextDone: c.Engine.CloseOnContextDone,
		EnableWASI:         c.Engine.EnableWASI,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("codec=%s entry=%s interval=%s modules=%d resources=%d",
		c.Codec, c.EntryPoint, c.TickInterval, len(c.Modules), len(c.Resources))
}
