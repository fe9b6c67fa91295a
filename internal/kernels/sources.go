package kernels

import _ "embed"

// ProduceSamplesWGSL is the WGSL source of produceSamples.
//
//go:embed shaders/produce_samples.wgsl
var ProduceSamplesWGSL string

// RenderPostProcessWGSL is the WGSL source of renderPostProcess.
//
//go:embed shaders/render_post_process.wgsl
var RenderPostProcessWGSL string

// OpenCLSource holds both kernels as OpenCL C.
//
//go:embed shaders/flame.cl
var OpenCLSource string

// OpenCLBuildOptions are passed to the OpenCL compiler.
const OpenCLBuildOptions = "-cl-finite-math-only -cl-no-signed-zeros -cl-mad-enable -w"

// WGSL returns the WGSL source of the named kernel, or "" if there is none.
func WGSL(name string) string {
	switch name {
	case ProduceSamples:
		return ProduceSamplesWGSL
	case RenderPostProcess:
		return RenderPostProcessWGSL
	default:
		return ""
	}
}

// WGSLProgram returns the WGSL sources of every kernel keyed by name, in
// the form the WebGPU device consumes.
func WGSLProgram() map[string]string {
	return map[string]string{
		ProduceSamples:    ProduceSamplesWGSL,
		RenderPostProcess: RenderPostProcessWGSL,
	}
}
