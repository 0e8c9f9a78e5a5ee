package logging

import (
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wippyai/wavedash/config"
	"github.com/wippyai/wavedash/errors"
)

// Logger is a zap logger together with the writers it owns.
type Logger struct {
	*zap.Logger

	level   zap.AtomicLevel
	closers []io.Closer
}

// Option adjusts how a Logger is built.
type Option func(*options)

type options struct {
	console io.Writer
}

// WithConsole replaces stderr as the console sink. Pass io.Discard to mute
// the console while a file is configured, e.g. under the interactive
// inspector.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// New builds a logger from cfg: a console core, plus a rotated file core
// when cfg.File is set.
func New(cfg config.LogConfig, opts ...Option) (*Logger, error) {
	o := options{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	var consoleEnc zapcore.Encoder
	switch cfg.Encoding {
	case "json":
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown log encoding "+cfg.Encoding)
	}

	l := &Logger{level: level}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(o.console), level),
	}

	if cfg.File != "" {
		rw := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,  // megabytes
			MaxAge:     cfg.MaxAgeDays, // days
			MaxBackups: cfg.MaxBackups,
		}
		l.closers = append(l.closers, rw)
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rw), level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// SetLevel changes the level of every core.
func (l *Logger) SetLevel(lvl zapcore.Level) { l.level.SetLevel(lvl) }

func (l *Logger) Level() zapcore.Level { return l.level.Level() }

// Close flushes the logger and closes any files it opened.
func (l *Logger) Close() error {
	// Syncing a terminal fails on some platforms; only file errors count.
	_ = l.Logger.Sync()
	var err error
	for _, c := range l.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
