//go:build opencl

package opencl

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/flame/internal/compute"
)

// loggerPtr overrides the compute layer's logger for device events.
var loggerPtr atomic.Pointer[slog.Logger]

// slogger returns the package logger, falling back to the compute layer's.
func slogger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return compute.Logger()
}

// SetLogger sets the logger for device events. nil falls back to the
// compute layer's logger. flame.SetLogger propagates here.
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}
