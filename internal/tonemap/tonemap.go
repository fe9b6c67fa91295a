// Package tonemap converts the float accumulation histogram into 8-bit
// RGBA with log-density scaling, brightness and gamma.
package tonemap

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/accum"
)

// Params controls the tone map.
type Params struct {
	// Gamma is applied to RGB as pow(c, 1/Gamma).
	Gamma float32

	// Brightness scales the log density. Sessions pass 1/darkness.
	Brightness float32

	// Transparent keeps the scaled density as alpha. When false the color
	// is premultiplied onto a black background and alpha is opaque.
	Transparent bool
}

// DefaultParams returns gamma 2.2 and brightness 0.5 (darkness 2), opaque.
func DefaultParams() Params {
	return Params{Gamma: 2.2, Brightness: 0.5}
}

// Pixel tone maps one accumulated pixel {R, G, B, hits}.
//
// Pixels without hits, and any pixel whose intermediate values stop being
// finite, come out as transparent black or opaque black.
func Pixel(in [accum.Channels]float32, prm Params) [4]uint8 {
	empty := [4]uint8{}
	if !prm.Transparent {
		empty[3] = 255
	}

	a := in[3]
	if !(a > 0) || math32.IsInf(a, 1) {
		return empty
	}

	scale := prm.Brightness * math32.Log10(a) / a
	r, g, b := in[0]*scale, in[1]*scale, in[2]*scale
	a *= scale

	inv := 1 / prm.Gamma
	r = math32.Pow(r, inv)
	g = math32.Pow(g, inv)
	b = math32.Pow(b, inv)

	if !prm.Transparent {
		r, g, b = r*a, g*a, b*a
		a = 1
	}

	if !finite(r) || !finite(g) || !finite(b) || !finite(a) {
		return empty
	}
	return [4]uint8{toByte(r), toByte(g), toByte(b), toByte(a)}
}

// Apply tone maps every pixel of src into dst, 4 bytes per pixel in the
// same row order as src.
func Apply(src *accum.Buffer, dst []byte, prm Params) {
	n := src.Len()
	for i := 0; i < n; i++ {
		px := Pixel(src.At(i*accum.Channels), prm)
		copy(dst[i*4:i*4+4], px[:])
	}
}

// ApplyWords tone maps raw accumulation words (as read back from a device)
// into dst.
func ApplyWords(words []uint32, dst []byte, prm Params) {
	n := len(words) / accum.Channels
	var in [accum.Channels]float32
	for i := 0; i < n; i++ {
		for c := range in {
			in[c] = math.Float32frombits(words[i*accum.Channels+c])
		}
		px := Pixel(in, prm)
		copy(dst[i*4:i*4+4], px[:])
	}
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// toByte clamps to [0,1] and truncates v*255, matching a round-toward-zero
// float to uchar conversion.
func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
