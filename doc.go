// Package flame renders fractal flames: images of iterated function
// systems built from weighted nonlinear variations.
//
// # Overview
//
// Each sample point starts at a random position and color, takes a number
// of unplotted steps, then a number of plotted steps. Every step picks a
// variation by weight, blends the sample color halfway towards the
// variation's color and moves the point. Plotted positions accumulate into
// a float RGBA histogram that a log-density tone map turns into 8-bit RGBA.
//
// A session keeps two regimes apart: a low-resolution preview that grows
// frame by frame, and a one-shot high-resolution render.
//
// # Quick Start
//
//	import "github.com/gogpu/flame"
//
//	f, err := flame.New(flame.WithPreviewSize(640, 360))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	for range 100 {
//	    if err := f.Update(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	img, err := f.Render()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img.Save(f.RenderName() + ".png")
//
// # Backends
//
// Kernels run on the CPU by default. Import github.com/gogpu/flame/gpu to
// enable WebGPU compute shaders through gogpu/wgpu, or
// github.com/gogpu/flame/opencl (built with the opencl tag) for OpenCL.
// BackendAuto picks the first backend that opens and falls back to the CPU.
//
// # Coordinate System
//
// Flame space is mapped through an orthographic camera. The accumulation
// buffers store the bottom row first; images returned by Render and
// Preview are flipped so row 0 is the top.
package flame

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = ""
)
