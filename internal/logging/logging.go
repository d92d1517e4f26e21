// Package logging wraps github.com/charmbracelet/log with the small
// set of fields every component in this engine tags its lines with:
// component name and, where relevant, slot name.
package logging

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	base *charmlog.Logger
}

// New constructs the root logger, writing to stderr with the engine's
// timestamp format.
func New() *Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	return &Logger{base: l}
}

// With returns a child logger tagged with the given component, e.g.
// "supervisor", "worker", "oscctl".
func (l *Logger) With(component string) *Logger {
	return &Logger{base: l.base.With("component", component)}
}

// WithSlot further tags a component logger with a slot name ("a"/"b").
func (l *Logger) WithSlot(slot string) *Logger {
	return &Logger{base: l.base.With("slot", slot)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.base.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.base.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.base.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.base.Error(msg, kv...) }

// SetLevel adjusts the minimum emitted level; "debug", "info", "warn",
// "error".
func (l *Logger) SetLevel(level string) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		return
	}
	l.base.SetLevel(lvl)
}
