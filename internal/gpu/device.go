// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/flame/internal/cache"
	"github.com/gogpu/flame/internal/compute"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Errors returned while opening a device.
var (
	// ErrNoAdapter is returned when the backend exposes no adapters.
	ErrNoAdapter = errors.New("gpu: no GPU adapters found")

	// ErrProvider is returned when a DeviceProvider does not expose
	// wgpu/hal types.
	ErrProvider = errors.New("gpu: device provider does not expose HAL types")
)

// Program maps kernel names to WGSL sources. Every kernel has a single
// entry point named "main".
type Program map[string]string

// EntryPoint is the compute entry point of every flame shader.
const EntryPoint = "main"

// UniformBinding is the binding number of the by-value parameter block.
// Buffer arguments bind at their argument position.
const UniformBinding = 32

// Device runs flame kernels as WGSL compute pipelines on a wgpu/hal device.
//
// Every operation blocks until the GPU is idle, matching the synchronous
// contract of compute.Device.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	prog     Program
	name     string
	maxDim   uint32
	external bool // true when using a shared device (don't destroy on Close)

	// staging holds MapRead buffers keyed by size, reused across readbacks.
	staging *cache.LRU[uint64, hal.Buffer]
}

// stagingBuffers bounds the number of cached readback buffers.
const stagingBuffers = 4

var _ compute.Device = (*Device)(nil)

// NewDevice opens the first discrete or integrated adapter of the Vulkan
// backend.
func NewDevice(prog Program) (*Device, error) {
	return NewDeviceWithBackend(prog, gputypes.BackendVulkan)
}

// NewDeviceWithBackend opens an adapter of a registered hal backend.
func NewDeviceWithBackend(prog Program, variant gputypes.Backend) (*Device, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("gpu: %s backend not available: %w", variant, hal.ErrBackendNotFound)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		prog:     prog,
		name:     fmt.Sprintf("%s (%s, %s)", selected.Info.Name, selected.Info.DeviceType, variant),
		maxDim:   limits.MaxComputeWorkgroupsPerDimension,
	}
	d.staging = d.newStagingCache()
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name,
		"type", selected.Info.DeviceType.String(), "backend", variant.String())
	return d, nil
}

// NewDeviceFromHAL wraps an already opened hal device and queue. The
// device is not destroyed by Close.
func NewDeviceFromHAL(device hal.Device, queue hal.Queue, name string, prog Program) *Device {
	d := &Device{
		device:   device,
		queue:    queue,
		prog:     prog,
		name:     name,
		maxDim:   gputypes.DefaultLimits().MaxComputeWorkgroupsPerDimension,
		external: true,
	}
	d.staging = d.newStagingCache()
	return d
}

func (d *Device) newStagingCache() *cache.LRU[uint64, hal.Buffer] {
	return cache.New(stagingBuffers, func(_ uint64, b hal.Buffer) {
		if d.device != nil {
			d.device.DestroyBuffer(b)
		}
	})
}

// halSource is implemented by wgpu devices that expose their hal objects.
type halSource interface {
	HalDevice() hal.Device
	HalQueue() hal.Queue
}

// NewDeviceFromProvider shares the GPU device of a host application. The
// provider's device must be a hal.Device (or expose one via HalDevice) and
// its queue a hal.Queue.
func NewDeviceFromProvider(p gpucontext.DeviceProvider, prog Program) (*Device, error) {
	if p == nil {
		return nil, ErrProvider
	}
	var (
		device hal.Device
		queue  hal.Queue
	)
	if src, ok := p.Device().(halSource); ok {
		device, queue = src.HalDevice(), src.HalQueue()
	} else {
		device, _ = p.Device().(hal.Device)
		queue, _ = p.Queue().(hal.Queue)
	}
	if device == nil || queue == nil {
		return nil, ErrProvider
	}
	info := p.AdapterInfo()
	slogger().Info("gpu: using shared device", "adapter", info.Name, "type", info.Type.String())
	return NewDeviceFromHAL(device, queue, fmt.Sprintf("%s (%s, shared)", info.Name, info.Type), prog), nil
}

// Name implements compute.Device.
func (d *Device) Name() string { return d.name }

// Close implements compute.Device. Shared devices are left open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.staging.Purge()
	}
	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	return nil
}

// submit records commands with fn, submits them and waits for the device
// to go idle. The encoder is destroyed on every return path.
func (d *Device) submit(label string, fn func(enc hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	fn(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}
