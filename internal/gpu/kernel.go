// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/flame/internal/compute"
)

// kernel is a compute pipeline together with its uniform buffer.
type kernel struct {
	dev  *Device
	spec compute.KernelSpec

	shader         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline

	uniform       hal.Buffer
	uniformLayout uniformLayout
}

var _ compute.DeviceKernel = (*kernel)(nil)

// NewKernel implements compute.Device. The WGSL source is looked up by
// kernel name in the device program.
func (d *Device) NewKernel(spec compute.KernelSpec) (compute.DeviceKernel, error) {
	src, ok := d.prog[spec.Name]
	if !ok {
		return nil, fmt.Errorf("gpu: no WGSL source for %q: %w", spec.Name, compute.ErrBuild)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	k := &kernel{dev: d, spec: spec, uniformLayout: layoutUniform(spec)}
	if err := k.init(src); err != nil {
		k.releaseLocked()
		return nil, fmt.Errorf("gpu: kernel %q: %w: %w", spec.Name, compute.ErrBuild, err)
	}
	slogger().Debug("gpu: kernel created", "kernel", spec.Name, "uniform_size", k.uniformLayout.size)
	return k, nil
}

func (k *kernel) init(src string) error {
	dev := k.dev.device
	var err error

	k.shader, err = dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.spec.Name,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	k.bindLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   k.spec.Name + "_layout",
		Entries: k.layoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	k.pipelineLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.spec.Name + "_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	k.pipeline, err = dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  k.spec.Name,
		Layout: k.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     k.shader,
			EntryPoint: EntryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}

	if k.uniformLayout.size > 0 {
		k.uniform, err = dev.CreateBuffer(&hal.BufferDescriptor{
			Label: k.spec.Name + "_params",
			//nolint:gosec // G115: uniform size is small and positive
			Size:  uint64(k.uniformLayout.size),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer: %w", err)
		}
	}
	return nil
}

// layoutEntries binds buffer args at their position and the parameter
// block at UniformBinding. Local args are declared in the shader itself.
func (k *kernel) layoutEntries() []gputypes.BindGroupLayoutEntry {
	var entries []gputypes.BindGroupLayoutEntry
	for pos, a := range k.spec.Args {
		if a.Kind != compute.ArgBuffer {
			continue
		}
		typ := gputypes.BufferBindingTypeStorage
		if a.Access == compute.ReadOnly {
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			//nolint:gosec // G115: positions are small
			Binding:    uint32(pos),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		})
	}
	if k.uniformLayout.size > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    UniformBinding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeUniform,
				//nolint:gosec // G115: uniform size is small and positive
				MinBindingSize: uint64(k.uniformLayout.size),
			},
		})
	}
	return entries
}

func (k *kernel) bindEntries(args []compute.BoundArg) ([]gputypes.BindGroupEntry, error) {
	var entries []gputypes.BindGroupEntry
	for pos, a := range k.spec.Args {
		if a.Kind != compute.ArgBuffer {
			continue
		}
		b, ok := args[pos].Buffer.(*buffer)
		if !ok || b.dev != k.dev || b.buf == nil {
			return nil, fmt.Errorf("arg %d: %w", pos, compute.ErrArgKind)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			//nolint:gosec // G115: positions are small
			Binding: uint32(pos),
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Size:   b.alloc,
			},
		})
	}
	if k.uniform != nil {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: UniformBinding,
			Resource: gputypes.BufferBinding{
				Buffer: k.uniform.NativeHandle(),
				//nolint:gosec // G115: uniform size is small and positive
				Size: uint64(k.uniformLayout.size),
			},
		})
	}
	return entries, nil
}

// Dispatch implements compute.DeviceKernel. global is rounded up to whole
// workgroups; shaders guard against the padding items.
func (k *kernel) Dispatch(global int, args []compute.BoundArg) error {
	if len(args) != len(k.spec.Args) {
		return fmt.Errorf("gpu: kernel %q: %d args, want %d: %w",
			k.spec.Name, len(args), len(k.spec.Args), compute.ErrArgOutOfRange)
	}
	d := k.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	if k.uniform != nil {
		if err := d.queue.WriteBuffer(k.uniform, 0, k.uniformLayout.pack(args)); err != nil {
			return fmt.Errorf("gpu: kernel %q: write params: %w", k.spec.Name, err)
		}
	}

	entries, err := k.bindEntries(args)
	if err != nil {
		return fmt.Errorf("gpu: kernel %q: %w", k.spec.Name, err)
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   k.spec.Name + "_bind_group",
		Layout:  k.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: kernel %q: create bind group: %w", k.spec.Name, err)
	}
	defer d.device.DestroyBindGroup(group)

	x, y := dispatchSize(compute.RoundUp(global)/compute.WorkgroupSize, d.maxDim)
	err = d.submit(k.spec.Name, func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: k.spec.Name})
		pass.SetPipeline(k.pipeline)
		pass.SetBindGroup(0, group, nil)
		pass.Dispatch(x, y, 1)
		pass.End()
	})
	if err != nil {
		return fmt.Errorf("gpu: kernel %q: %w", k.spec.Name, err)
	}
	return nil
}

// Release destroys the pipeline and its resources.
func (k *kernel) Release() {
	k.dev.mu.Lock()
	defer k.dev.mu.Unlock()
	k.releaseLocked()
}

func (k *kernel) releaseLocked() {
	dev := k.dev.device
	if dev == nil {
		return
	}
	if k.uniform != nil {
		dev.DestroyBuffer(k.uniform)
		k.uniform = nil
	}
	if k.pipeline != nil {
		dev.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.pipelineLayout != nil {
		dev.DestroyPipelineLayout(k.pipelineLayout)
		k.pipelineLayout = nil
	}
	if k.bindLayout != nil {
		dev.DestroyBindGroupLayout(k.bindLayout)
		k.bindLayout = nil
	}
	if k.shader != nil {
		dev.DestroyShaderModule(k.shader)
		k.shader = nil
	}
}
