// ABOUTME: Structured logging abstraction used by every ambient warning path in the counting core
// ABOUTME: Wraps zerolog so callers depend on a small interface, not a concrete logging library

// Package logging provides the Logger interface every package in this
// module logs through. Production code wires a ZerologAdapter backed by
// github.com/rs/zerolog; tests use NopLogger so assertions don't depend on
// log output.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// String builds a string-valued Field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int-valued Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 builds an int64-valued Field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Uint64 builds a uint64-valued Field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Float64 builds a float64-valued Field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Err builds an error-valued Field keyed "error". A nil error produces a
// Field whose Value is nil, matching the zero-value convention the rest of
// this package follows.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err}
}

// Logger is the narrow logging contract the counting core depends on. Every
// allocation-failure and contention path in classregistry and snapshot logs
// through a Logger at Warn level, per the injected-logger policy of this
// module's error handling design.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	Printf(format string, args ...any)
	Println(args ...any)
}

// ZerologAdapter implements Logger on top of a zerolog.Logger.
type ZerologAdapter struct {
	zl zerolog.Logger
}

var _ Logger = (*ZerologAdapter)(nil)

// NewZerologAdapter wraps an already-configured zerolog.Logger.
func NewZerologAdapter(zl zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{zl: zl}
}

// NewLogger builds a ZerologAdapter writing to w, tagging every line with a
// "component" field.
func NewLogger(w io.Writer, component string) *ZerologAdapter {
	zl := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologAdapter{zl: zl}
}

// NewDefaultLogger builds a ZerologAdapter writing to stderr under the
// "heapstats" component tag.
func NewDefaultLogger() *ZerologAdapter {
	return NewLogger(os.Stderr, "heapstats")
}

func (a *ZerologAdapter) Debug(msg string, fields ...Field) {
	applyFields(a.zl.Debug(), fields).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, fields ...Field) {
	applyFields(a.zl.Info(), fields).Msg(msg)
}

func (a *ZerologAdapter) Warn(msg string, fields ...Field) {
	applyFields(a.zl.Warn(), fields).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, err error, fields ...Field) {
	ev := a.zl.Error()
	if err != nil {
		ev = ev.Err(err)
	} else {
		ev = ev.Str("error", "")
	}
	applyFields(ev, fields).Msg(msg)
}

func (a *ZerologAdapter) Printf(format string, args ...any) {
	a.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (a *ZerologAdapter) Println(args ...any) {
	a.zl.Info().Msg(fmt.Sprintln(args...))
}

func applyFields(ev *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case int64:
			ev = ev.Int64(f.Key, v)
		case uint64:
			ev = ev.Uint64(f.Key, v)
		case float64:
			ev = ev.Float64(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		case nil:
			ev = ev.Interface(f.Key, nil)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	return ev
}

// nopLogger discards everything. Used as the safe default when no Logger is
// injected, mirroring the example corpus's zerolog.Nop() convention.
type nopLogger struct{}

// NopLogger returns a Logger that discards all output.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)        {}
func (nopLogger) Info(string, ...Field)         {}
func (nopLogger) Warn(string, ...Field)         {}
func (nopLogger) Error(string, error, ...Field) {}
func (nopLogger) Printf(string, ...any)         {}
func (nopLogger) Println(...any)                {}
