// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build opencl

package opencl

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/flame/internal/compute"
)

// ErrNoDevice is returned when no platform exposes a GPU or CPU device.
var ErrNoDevice = errors.New("opencl: no suitable OpenCL devices found")

// Device is a compute.Device backed by one OpenCL device, context, queue
// and compiled program.
type Device struct {
	mu sync.Mutex

	device  *cl.Device
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	name    string
}

var _ compute.Device = (*Device)(nil)

// NewDevice picks the first GPU of any platform, falling back to a CPU
// device, and builds source with options.
func NewDevice(source, options string) (*Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "opencl: querying platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	device := pickDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = pickDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, ErrNoDevice
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("opencl: creating context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("opencl: creating command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{source})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("opencl: creating program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, options); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			slogger().Error("opencl: build failed", "log", string(buildErr))
			return nil, fmt.Errorf("opencl: building program: %w: %s", compute.ErrBuild, string(buildErr))
		}
		return nil, fmt.Errorf("opencl: building program: %w: %w", compute.ErrBuild, err)
	}

	d := &Device{
		device:  device,
		context: context,
		queue:   queue,
		program: program,
		name:    strings.TrimSpace(device.Name()),
	}
	slogger().Info("opencl: device opened", "device", d.name, "vendor", strings.TrimSpace(device.Vendor()))
	return d, nil
}

func pickDevice(platforms []*cl.Platform, typ cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(typ)
		if err != nil && !errors.Is(err, cl.ErrDeviceNotFound) {
			slogger().Debug("opencl: skipping platform", "platform", p.Name(), "err", errorName(err))
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

// Name implements compute.Device.
func (d *Device) Name() string { return d.name }

// Close releases the program, queue and context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.program != nil {
		d.program.Release()
		d.program = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.context != nil {
		d.context.Release()
		d.context = nil
	}
	return nil
}

// NewKernel implements compute.Device.
func (d *Device) NewKernel(spec compute.KernelSpec) (compute.DeviceKernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, err := d.program.CreateKernel(spec.Name)
	if err != nil {
		return nil, fmt.Errorf("opencl: creating kernel %q: %w: %s", spec.Name, compute.ErrBuild, errorName(err))
	}
	return &kernel{dev: d, k: k, spec: spec}, nil
}
