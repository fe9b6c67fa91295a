//go:build !nogpu

// Package gpu registers the wgpu compute backend.
//
// Import this package to run the flame kernels as WGSL compute shaders
// through gogpu/wgpu (Vulkan by default). Sessions created with
// flame.BackendGPU use it directly; flame.BackendAuto prefers it and falls
// back to the CPU when no adapter can be opened.
//
// Usage:
//
//	import _ "github.com/gogpu/flame/gpu" // enable GPU compute
package gpu

import (
	"github.com/gogpu/flame"
	"github.com/gogpu/flame/internal/compute"
	gpuimpl "github.com/gogpu/flame/internal/gpu"
	"github.com/gogpu/flame/internal/kernels"
)

// DriverName is the name the backend registers under.
const DriverName = "wgpu"

func init() {
	err := flame.RegisterBackend(flame.BackendGPU, flame.Driver{
		Name:      DriverName,
		Open:      open,
		SetLogger: gpuimpl.SetLogger,
	})
	if err != nil {
		flame.Logger().Warn("GPU backend not registered", "err", err)
	}
}

// open creates a device loaded with the WGSL program. A provider from the
// host application is shared instead of opening a new adapter.
func open(cfg flame.DeviceConfig) (compute.Device, error) {
	prog := gpuimpl.Program(kernels.WGSLProgram())
	var (
		dev *gpuimpl.Device
		err error
	)
	if cfg.Provider != nil {
		dev, err = gpuimpl.NewDeviceFromProvider(cfg.Provider, prog)
	} else {
		dev, err = gpuimpl.NewDevice(prog)
	}
	if err != nil {
		return nil, err
	}
	return dev, nil
}
