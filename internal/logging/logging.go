// Package logging provides zerolog-based structured logging shared by every
// component of the engine. Loggers travel on the context; components tag
// events with a "component" field so log streams from the orchestrator,
// matcher, and HTTP surface can be filtered apart.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format selects the output encoding: "console" or "json".
	Format string

	// File, when set, receives a copy of all output in addition to stderr.
	File string
}

// New builds a logger from the given configuration. Unknown levels fall back
// to info. When cfg.File cannot be opened the logger writes to stderr only
// and the error is reported on the returned logger itself.
func New(cfg Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	if strings.EqualFold(cfg.Format, "json") {
		out = os.Stderr
	} else {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	var fileErr error
	if cfg.File != "" {
		f, openErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if openErr != nil {
			fileErr = openErr
		} else {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("could not open log file, logging to stderr only")
	}
	return logger
}

// ComponentLogger returns a child logger tagged with a component field.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// FromContext returns the logger attached to ctx. When the context carries no
// logger a disabled logger is returned, so call sites never need a nil check.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext attaches logger to ctx so downstream calls can recover it with
// FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}
