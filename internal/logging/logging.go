// Package logging sets up the daemon's rotated JSON logger and hands out
// named sub-loggers per component.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where logs go and how they rotate.
type Config struct {
	// Dir is <agents_dir>/.daemon/logs. If empty, no log file is written;
	// lines then go to ExtraWriter if set, and to a console writer on
	// stderr when Console is true or no other writer is configured.
	Dir        string
	Level      zerolog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
	// ExtraWriter receives every log line verbatim (e.g. an SSE hub
	// backing GET /api/logs/stream).
	ExtraWriter io.Writer
}

func DefaultConfig(agentsDir string) Config {
	return Config{
		Dir:        filepath.Join(agentsDir, ".daemon", "logs"),
		Level:      zerolog.InfoLevel,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// New builds the root logger. Every subsystem should derive a named
// sub-logger from it via Logger.With().Str("component", name).Logger().
func New(cfg Config) (zerolog.Logger, error) {
	var writers []io.Writer

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "daemon.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	if cfg.ExtraWriter != nil {
		writers = append(writers, cfg.ExtraWriter)
	}

	if cfg.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(cfg.Level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger, nil
}

// Component returns a child logger tagged with the given component name,
// so log lines can be filtered the way the teacher's debug.Logf prefixes
// let callers filter by subsystem.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
