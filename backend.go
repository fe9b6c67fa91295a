package flame

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/cpu"
	"github.com/gogpu/flame/internal/kernels"
)

// ErrBackendNotFound is returned when a requested backend has no
// registered driver.
var ErrBackendNotFound = errors.New("flame: backend not registered")

// Backend selects the compute device that runs the kernels.
type Backend int

const (
	// BackendAuto tries the GPU, then OpenCL, then falls back to the CPU.
	BackendAuto Backend = iota

	// BackendCPU runs the kernels on a goroutine pool. Always available.
	BackendCPU

	// BackendGPU runs WGSL compute shaders through gogpu/wgpu.
	// Enabled by importing github.com/gogpu/flame/gpu.
	BackendGPU

	// BackendOpenCL runs OpenCL C kernels. Enabled by importing
	// github.com/gogpu/flame/opencl built with the opencl tag.
	BackendOpenCL
)

var backendNames = [...]string{
	BackendAuto:   "auto",
	BackendCPU:    "cpu",
	BackendGPU:    "gpu",
	BackendOpenCL: "opencl",
}

// String returns the lower-case backend name.
func (b Backend) String() string {
	if b < 0 || int(b) >= len(backendNames) {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendNames[b]
}

// ParseBackend parses a backend name as printed by String.
func ParseBackend(s string) (Backend, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for b, name := range backendNames {
		if name == s {
			return Backend(b), nil
		}
	}
	return BackendAuto, fmt.Errorf("flame: unknown backend %q", s)
}

// DeviceConfig is passed to a Driver when a session opens its device.
type DeviceConfig struct {
	// Workers bounds CPU parallelism (0 means GOMAXPROCS).
	Workers int

	// Provider, when set, shares a host application's GPU device.
	Provider gpucontext.DeviceProvider
}

// Driver opens compute devices for one backend.
//
// Implementations are provided by backend packages and registered from
// their init functions:
//
//	func init() {
//	    flame.RegisterBackend(flame.BackendGPU, flame.Driver{Name: "wgpu", Open: open})
//	}
type Driver struct {
	// Name describes the driver (e.g., "wgpu", "opencl").
	Name string

	// Open creates a device loaded with the flame kernel program.
	Open func(cfg DeviceConfig) (compute.Device, error)

	// SetLogger, if set, receives the logger configured via SetLogger.
	SetLogger func(*slog.Logger)
}

var (
	driverMu sync.RWMutex
	registry = map[Backend]Driver{}
)

// RegisterBackend registers the driver for b. A later registration
// replaces an earlier one. BackendAuto and BackendCPU cannot be replaced.
func RegisterBackend(b Backend, d Driver) error {
	if b == BackendAuto || b == BackendCPU {
		return fmt.Errorf("flame: cannot register driver for %s backend", b)
	}
	if d.Open == nil {
		return errors.New("flame: driver must have an Open function")
	}
	driverMu.Lock()
	registry[b] = d
	driverMu.Unlock()
	propagateLogger(d, Logger())
	Logger().Debug("flame: backend registered", "backend", b.String(), "driver", d.Name)
	return nil
}

// Backends returns the backends a session can open, CPU included.
func Backends() []Backend {
	driverMu.RLock()
	defer driverMu.RUnlock()
	out := []Backend{BackendCPU}
	for b := range registry {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

func driver(b Backend) (Driver, bool) {
	driverMu.RLock()
	defer driverMu.RUnlock()
	d, ok := registry[b]
	return d, ok
}

func drivers() []Driver {
	driverMu.RLock()
	defer driverMu.RUnlock()
	out := make([]Driver, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	return out
}

// openDevice resolves b to a device. BackendAuto never fails: a driver
// that cannot open falls back to the CPU with a warning.
func openDevice(b Backend, cfg DeviceConfig) (compute.Device, Backend, error) {
	switch b {
	case BackendCPU:
		return cpu.NewDevice(kernels.CPUProgram(), cfg.Workers), BackendCPU, nil
	case BackendAuto:
		for _, candidate := range []Backend{BackendGPU, BackendOpenCL} {
			d, ok := driver(candidate)
			if !ok {
				continue
			}
			dev, err := d.Open(cfg)
			if err == nil {
				return dev, candidate, nil
			}
			Logger().Warn("flame: backend not available, trying next",
				"backend", candidate.String(), "err", err)
		}
		Logger().Warn("flame: falling back to CPU device")
		return cpu.NewDevice(kernels.CPUProgram(), cfg.Workers), BackendCPU, nil
	}

	d, ok := driver(b)
	if !ok {
		return nil, b, fmt.Errorf("%w: %s", ErrBackendNotFound, b)
	}
	dev, err := d.Open(cfg)
	if err != nil {
		return nil, b, fmt.Errorf("flame: open %s device: %w", b, err)
	}
	return dev, b, nil
}
