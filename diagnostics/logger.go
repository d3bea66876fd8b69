// Package diagnostics carries the operational-visibility stack around the
// synchronization core: structured logging, panic recovery, log
// throttling for hot-loop failure paths, Prometheus metrics, and optional
// host resource snapshots. None of it participates in the core's
// invariants — it is observability, not control flow.
package diagnostics

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors the handful of levels the core's logger distinguishes.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the logger's output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Config configures NewLogger.
type Config struct {
	Level     Level
	Format    Format
	Component string
}

// NewLogger builds a zerolog.Logger with a timestamp, caller info, and a
// component field, matching the structured-logging convention this
// module's ambient stack is grounded on.
func NewLogger(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout

	var level zerolog.Level
	switch cfg.Level {
	case LevelDebug:
		level = zerolog.DebugLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	component := cfg.Component
	if component == "" {
		component = "shmsync"
	}

	return zerolog.New(output).With().
		Timestamp().
		Caller().
		Str("component", component).
		Logger()
}

// LogError logs err with contextual fields.
func LogError(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// RecoverPanic is meant for a deferred call at the top of any goroutine
// this module spawns (the remote-trigger server's async loop is the only
// one): it logs a recovered panic and lets the goroutine
// exit cleanly instead of taking the process down.
func RecoverPanic(logger zerolog.Logger, goroutineName string, fields map[string]any) {
	if r := recover(); r != nil {
		event := logger.Error().
			Str("goroutine", goroutineName).
			Interface("panic_value", r).
			Str("stack_trace", string(debug.Stack()))
		for k, v := range fields {
			event = event.Interface(k, v)
		}
		event.Msg("goroutine panic recovered")
	}
}
