package color

import (
	"fmt"

	"github.com/chewxy/math32"
)

// LinearToSRGB converts a linear component to sRGB.
// Formula: if l <= 0.0031308: l*12.92; else: 1.055*pow(l, 1/2.4)-0.055
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math32.Pow(l, 1.0/2.4) - 0.055
}

// SRGB8 returns c encoded as 8-bit sRGB, rounded to nearest.
func (c RGB) SRGB8() [3]uint8 {
	return [3]uint8{
		clampAndRound(LinearToSRGB(c[0])),
		clampAndRound(LinearToSRGB(c[1])),
		clampAndRound(LinearToSRGB(c[2])),
	}
}

// Hex returns c as an sRGB "#rrggbb" string.
func (c RGB) Hex() string {
	b := c.SRGB8()
	return fmt.Sprintf("#%02x%02x%02x", b[0], b[1], b[2])
}

// clampAndRound clamps a float32 to [0,1] and converts to uint8 with rounding.
func clampAndRound(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
