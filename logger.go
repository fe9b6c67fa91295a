package flame

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/flame/internal/compute"
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

// SetLogger configures the logger for flame and all its sub-packages.
// By default, flame produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by flame:
//   - [slog.LevelDebug]: dispatch timings, buffer creation, kernel state
//   - [slog.LevelInfo]: lifecycle events (device selected, render finished)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback, rejected bindings,
//     invalid variation ids)
//
// Example:
//
//	flame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	compute.SetLogger(l)

	// Propagate to registered device backends.
	for _, d := range drivers() {
		propagateLogger(d, l)
	}
}

// Logger returns the current logger used by flame.
// Backend registration packages (gpu/, opencl/) call this to share the
// same logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// propagateLogger passes the logger to a driver that accepts one. Called
// from both SetLogger and RegisterBackend so a driver always has the
// current logger.
func propagateLogger(d Driver, l *slog.Logger) {
	if d.SetLogger != nil {
		d.SetLogger(l)
	}
}
