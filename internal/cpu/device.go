// Package cpu is the reference compute device. Kernels are Go functions;
// a dispatch runs one task per work-group on a worker pool, and buffers
// are host memory stored as 32-bit words so kernels can use atomics on
// them directly.
//
// The device is always available and is the fallback when no GPU backend
// can be initialised.
package cpu

import (
	"fmt"
	"runtime"

	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/parallel"
)

// Group describes the work-group a KernelFunc call executes.
type Group struct {
	// Index is the work-group index.
	Index int
	// Base is the global id of the group's first work-item.
	Base int
	// Size is the number of work-items in the group.
	Size int
}

// KernelFunc runs every work-item of one work-group.
type KernelFunc func(g Group, args Args)

// Program maps kernel names to their implementations.
type Program map[string]KernelFunc

// Device runs a Program on host goroutines.
type Device struct {
	prog Program
	pool *parallel.WorkerPool
}

var _ compute.Device = (*Device)(nil)

// NewDevice creates a CPU device with the given number of workers.
// workers <= 0 uses GOMAXPROCS.
func NewDevice(prog Program, workers int) *Device {
	return &Device{
		prog: prog,
		pool: parallel.NewWorkerPool(workers),
	}
}

// Name implements compute.Device.
func (d *Device) Name() string {
	return fmt.Sprintf("CPU (%d workers, %s/%s)", d.pool.Workers(), runtime.GOOS, runtime.GOARCH)
}

// Workers returns the number of worker goroutines.
func (d *Device) Workers() int { return d.pool.Workers() }

// NewBuffer implements compute.Device.
func (d *Device) NewBuffer(_ string, size int) (compute.DeviceBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cpu: invalid buffer size %d", size)
	}
	return newBuffer(size), nil
}

// NewKernel implements compute.Device.
func (d *Device) NewKernel(spec compute.KernelSpec) (compute.DeviceKernel, error) {
	fn, ok := d.prog[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: no CPU implementation of kernel %q", compute.ErrBuild, spec.Name)
	}
	return &kernel{dev: d, name: spec.Name, fn: fn}, nil
}

// Close stops the worker pool.
func (d *Device) Close() error {
	d.pool.Close()
	return nil
}

type kernel struct {
	dev  *Device
	name string
	fn   KernelFunc
}

func (k *kernel) Dispatch(global int, args []compute.BoundArg) error {
	groups := (global + compute.WorkgroupSize - 1) / compute.WorkgroupSize
	a := Args(args)
	k.dev.pool.Run(groups, func(i int) {
		k.fn(Group{Index: i, Base: i * compute.WorkgroupSize, Size: compute.WorkgroupSize}, a)
	})
	return nil
}

func (k *kernel) Release() {}
