//go:build !nogpu

// Package gpu runs flame kernels on a WebGPU device.
//
// It implements compute.Device on top of gogpu/wgpu's hal layer (Pure Go,
// zero CGO). Each kernel is a WGSL compute shader with entry point "main"
// and a workgroup size of compute.WorkgroupSize. Buffer arguments bind at
// their argument position in group 0; by-value arguments are packed into a
// uniform block at binding 32.
//
// Local (workgroup) arguments are fixed-size arrays declared in the shader,
// so the sizes bound through compute.Context are informational.
//
// All operations are synchronous: every submission waits for the device
// to go idle. Readback copies through a MapRead staging buffer.
//
// The package is excluded with the nogpu build tag.
package gpu
