// Package log provides package scoped structured loggers backed by go-ethereum's slog handlers.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
)

// Logger writes key/value pairs to the root handler.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	With(ctx ...any) Logger
}

// WithContext returns a logger which prefixes ctx to every record.
// The root handler is resolved on each call, so package level loggers
// pick up a handler installed later by Init.
func WithContext(ctx ...any) Logger {
	return &contextLogger{ctx: ctx}
}

type contextLogger struct {
	ctx []any
}

func (l *contextLogger) write(level slog.Level, msg string, ctx []any) {
	root := gethlog.Root()
	if !root.Enabled(context.Background(), level) {
		return
	}
	all := make([]any, 0, len(l.ctx)+len(ctx))
	all = append(append(all, l.ctx...), ctx...)
	root.Log(level, msg, all...)
}

func (l *contextLogger) Trace(msg string, ctx ...any) { l.write(gethlog.LevelTrace, msg, ctx) }
func (l *contextLogger) Debug(msg string, ctx ...any) { l.write(gethlog.LevelDebug, msg, ctx) }
func (l *contextLogger) Info(msg string, ctx ...any)  { l.write(gethlog.LevelInfo, msg, ctx) }
func (l *contextLogger) Warn(msg string, ctx ...any)  { l.write(gethlog.LevelWarn, msg, ctx) }
func (l *contextLogger) Error(msg string, ctx ...any) { l.write(gethlog.LevelError, msg, ctx) }

func (l *contextLogger) With(ctx ...any) Logger {
	all := make([]any, 0, len(l.ctx)+len(ctx))
	return &contextLogger{ctx: append(append(all, l.ctx...), ctx...)}
}

// Init installs the root handler.
// verbosity follows the legacy levels: 0 crit, 1 error, 2 warn, 3 info, 4 debug, 5 trace.
func Init(w io.Writer, verbosity int, json bool) {
	if w == nil {
		w = os.Stderr
	}
	var level slog.LevelVar
	level.Set(gethlog.FromLegacyLevel(verbosity))

	var handler slog.Handler
	if json {
		handler = gethlog.JSONHandlerWithLevel(w, level.Level())
	} else {
		useColor := false
		if f, ok := w.(*os.File); ok {
			useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		handler = gethlog.NewTerminalHandlerWithLevel(w, level.Level(), useColor)
	}
	gethlog.SetDefault(gethlog.NewLogger(handler))
}
