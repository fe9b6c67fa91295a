// Package kernels defines the flame kernel program: the argument layout
// of each kernel, the CPU implementations, and the WGSL and OpenCL C
// sources compiled by the device backends.
package kernels

import "github.com/gogpu/flame/internal/compute"

// Kernel names.
const (
	ProduceSamples    = "produceSamples"
	RenderPostProcess = "renderPostProcess"
)

// MaxVariationsLimit bounds the variation set size. The WGSL kernel sizes
// its workgroup tables with it.
const MaxVariationsLimit = 64

// produceSamples argument positions.
const (
	ArgTexture = iota
	ArgVariations
	ArgColors
	ArgWeights
	ArgNumVariations
	ArgInitialIterations
	ArgIterations
	ArgView
	ArgWidth
	ArgHeight
	ArgFrameNum
	ArgNumSamples
	ArgLocalVariations
	ArgLocalColors
	ArgLocalThresholds
)

// renderPostProcess argument positions.
const (
	PostIn = iota
	PostOut
	PostGamma
	PostBrightness
	PostTransparent
	PostNumPixels
)

// ProduceSamplesSpec declares produceSamples.
var ProduceSamplesSpec = compute.KernelSpec{
	Name: ProduceSamples,
	Args: []compute.ArgSpec{
		ArgTexture:           {Name: "renderTexture", Kind: compute.ArgBuffer, Access: compute.ReadWrite},
		ArgVariations:        {Name: "variations", Kind: compute.ArgBuffer, Access: compute.ReadOnly},
		ArgColors:            {Name: "colours", Kind: compute.ArgBuffer, Access: compute.ReadOnly},
		ArgWeights:           {Name: "weights", Kind: compute.ArgBuffer, Access: compute.ReadOnly},
		ArgNumVariations:     {Name: "numVariations", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgInitialIterations: {Name: "initialIterations", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgIterations:        {Name: "iterations", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgView:              {Name: "matView", Kind: compute.ArgValue, Type: compute.TypeMat4},
		ArgWidth:             {Name: "texWidth", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgHeight:            {Name: "texHeight", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgFrameNum:          {Name: "frameNum", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgNumSamples:        {Name: "numSamples", Kind: compute.ArgValue, Type: compute.TypeUint32},
		ArgLocalVariations:   {Name: "lcVariations", Kind: compute.ArgLocal},
		ArgLocalColors:       {Name: "lcColours", Kind: compute.ArgLocal},
		ArgLocalThresholds:   {Name: "lcThresholds", Kind: compute.ArgLocal},
	},
}

// RenderPostProcessSpec declares renderPostProcess.
var RenderPostProcessSpec = compute.KernelSpec{
	Name: RenderPostProcess,
	Args: []compute.ArgSpec{
		PostIn:          {Name: "renderTexture", Kind: compute.ArgBuffer, Access: compute.ReadOnly},
		PostOut:         {Name: "processed", Kind: compute.ArgBuffer, Access: compute.ReadWrite},
		PostGamma:       {Name: "gamma", Kind: compute.ArgValue, Type: compute.TypeFloat32},
		PostBrightness:  {Name: "brightness", Kind: compute.ArgValue, Type: compute.TypeFloat32},
		PostTransparent: {Name: "transparent", Kind: compute.ArgValue, Type: compute.TypeUint8},
		PostNumPixels:   {Name: "numPixels", Kind: compute.ArgValue, Type: compute.TypeUint32},
	},
}

// Specs returns both kernel specs in creation order.
func Specs() []compute.KernelSpec {
	return []compute.KernelSpec{ProduceSamplesSpec, RenderPostProcessSpec}
}

// LocalSizes returns the scratch sizes of the three produceSamples local
// arguments for a variation set of up to maxVariations entries.
func LocalSizes(maxVariations int) (ids, colors, thresholds int) {
	return maxVariations * 4, maxVariations * 3 * 4, maxVariations * 4
}
