package texreg

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for texreg and all its sub-packages.
// By default, texreg produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to disable logging (restore default silent
// behavior). Engines constructed after the call pick up the new logger;
// a Registry also pushes it into its engine at construction when the
// engine accepts one.
//
// Log levels used by texreg:
//   - [slog.LevelDebug]: suppressed frame signals, finalizer scheduling
//   - [slog.LevelWarn]: leaked handles, engine teardown anomalies
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	texreg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by texreg.
// Sub-packages (gpu/, gogpuengine/, ffi/) call this to share the same
// logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by engines that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the current logger to an engine if it
// implements the loggerSetter interface. Called when a Registry or
// Renderer takes ownership of an engine, so engines built before
// SetLogger still end up with the active configuration.
func propagateLogger(e Engine) {
	if ls, ok := e.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}
}
