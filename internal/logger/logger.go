// Package logger provides structured logging using zerolog.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Log formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Log = newLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, true)
}

func newLogger(w io.Writer, withCaller bool) zerolog.Logger {
	c := zerolog.New(w).With().Timestamp()
	if withCaller {
		c = c.Caller()
	}
	return c.Logger()
}

// SetLevel sets the global log level. Unknown or empty names select info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetOutput sends JSON logs to w.
func SetOutput(w io.Writer) {
	Log = newLogger(w, false)
}

// Configure applies a level and a format. Anything but FormatJSON keeps
// the console writer.
func Configure(level, format string) {
	if strings.EqualFold(format, FormatJSON) {
		SetOutput(os.Stdout)
	}
	SetLevel(level)
}

// Ctx returns Log annotated with the trace of the span in ctx, if any.
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &Log
	}
	l := Log.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
