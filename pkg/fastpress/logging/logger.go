// Package logging provides the logger used across FastPress.
//
// Every component talks to the Logger interface. The default implementation
// writes through zerolog: human readable console output during development,
// JSON lines in production.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging capability handed to controllers, middleware and services.
// Fields are alternating key/value pairs.
type Logger interface {
	Log(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	log zerolog.Logger
}

// New creates the default logger for the given environment. An empty level
// means debug outside production and info in production.
func New(env, level string) *ZerologLogger {
	var w io.Writer = os.Stdout
	if !isProduction(env) {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(w, resolveLevel(env, level))
}

// NewWithWriter creates a logger writing JSON lines to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) *ZerologLogger {
	return &ZerologLogger{log: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// FromZerolog wraps an already configured zerolog logger.
func FromZerolog(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: l}
}

// Zerolog exposes the underlying logger for libraries that want it directly.
func (l *ZerologLogger) Zerolog() *zerolog.Logger {
	return &l.log
}

func (l *ZerologLogger) Log(msg string, fields ...any) {
	write(l.log.Log(), msg, fields)
}

func (l *ZerologLogger) Debug(msg string, fields ...any) {
	write(l.log.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(msg string, fields ...any) {
	write(l.log.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(msg string, fields ...any) {
	write(l.log.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(msg string, fields ...any) {
	write(l.log.Error(), msg, fields)
}

func write(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return FromZerolog(zerolog.Nop())
}

// Resolve returns the configured logger when one was provided and the
// default logger otherwise.
func Resolve(configured Logger) Logger {
	if configured != nil {
		return configured
	}
	return New(os.Getenv("FASTPRESS_SERVER__ENV"), "")
}

func isProduction(env string) bool {
	return strings.EqualFold(env, "production")
}

func resolveLevel(env, level string) zerolog.Level {
	if level != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			return lvl
		}
	}
	if isProduction(env) {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
