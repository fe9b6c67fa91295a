//go:build opencl

// Package opencl registers the OpenCL compute backend.
//
// The backend needs an OpenCL ICD at run time and cgo at build time, so it
// is only compiled with the opencl build tag:
//
//	go build -tags opencl ./...
//
// Usage:
//
//	import _ "github.com/gogpu/flame/opencl"
package opencl

import (
	"github.com/gogpu/flame"
	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/kernels"
	climpl "github.com/gogpu/flame/internal/opencl"
)

// DriverName is the name the backend registers under.
const DriverName = "opencl"

func init() {
	err := flame.RegisterBackend(flame.BackendOpenCL, flame.Driver{
		Name:      DriverName,
		Open:      open,
		SetLogger: climpl.SetLogger,
	})
	if err != nil {
		flame.Logger().Warn("OpenCL backend not registered", "err", err)
	}
}

func open(flame.DeviceConfig) (compute.Device, error) {
	dev, err := climpl.NewDevice(kernels.OpenCLSource, kernels.OpenCLBuildOptions)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
