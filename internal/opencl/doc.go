//go:build opencl

// Package opencl runs flame kernels on an OpenCL device through
// github.com/jgillich/go-opencl.
//
// Kernels are compiled from the OpenCL C source in package kernels with
// kernels.OpenCLBuildOptions. Arguments are set positionally: buffers as
// memory objects, uchar and uint scalars directly, matrices as float16
// vectors, and local arguments as __local scratch of the bound size.
//
// The package requires cgo and an OpenCL ICD loader, so it is only built
// with the opencl tag.
package opencl
