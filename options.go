package flame

import (
	"math/rand/v2"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/flame/internal/compute"
)

// Option configures a Flame session during creation.
// Use functional options to customize session behavior.
//
// Example:
//
//	// CPU device, 1280×720 preview
//	f, err := flame.New(flame.WithBackend(flame.BackendCPU), flame.WithPreviewSize(1280, 720))
type Option func(*options)

// options holds optional configuration for session creation.
type options struct {
	backend           Backend
	previewWidth      int
	previewHeight     int
	maxVariations     int
	workers           int
	rnd               *rand.Rand
	initialVariations int
	provider          gpucontext.DeviceProvider
	timingHistory     int
	memoryBudgetMB    int
}

// defaultOptions returns the default session options.
func defaultOptions() options {
	return options{
		backend:           BackendAuto,
		previewWidth:      800,
		previewHeight:     600,
		maxVariations:     DefaultMaxVariations,
		initialVariations: 3,
		timingHistory:     compute.DefaultTimingHistory,
	}
}

// WithBackend selects the compute backend. The default is BackendAuto.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPreviewSize sets the preview accumulation size.
func WithPreviewSize(width, height int) Option {
	return func(o *options) {
		o.previewWidth = width
		o.previewHeight = height
	}
}

// WithMaxVariations sets the capacity of the variation set, at most
// MaxVariationsLimit.
func WithMaxVariations(n int) Option {
	return func(o *options) {
		o.maxVariations = n
	}
}

// WithWorkers bounds the CPU device's parallelism. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithRandomSource sets the generator used by the random variation
// helpers. Use a seeded source for reproducible sessions.
func WithRandomSource(r *rand.Rand) Option {
	return func(o *options) {
		o.rnd = r
	}
}

// WithInitialVariations sets how many random variations a new session
// starts with. The default is three.
func WithInitialVariations(n int) Option {
	return func(o *options) {
		o.initialVariations = n
	}
}

// WithDeviceProvider shares the GPU device of a host application (for
// example a gogpu window) with the GPU backend.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithTimingHistory sets how many dispatch durations are kept per kernel.
func WithTimingHistory(n int) Option {
	return func(o *options) {
		o.timingHistory = n
	}
}

// WithMemoryBudgetMB limits the device memory the session may allocate.
// Zero means unlimited.
func WithMemoryBudgetMB(mb int) Option {
	return func(o *options) {
		o.memoryBudgetMB = mb
	}
}
