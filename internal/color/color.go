// Package color converts the perceptual OKLCh colors that variations are
// edited in to the linear RGB the kernels accumulate.
package color

import "github.com/chewxy/math32"

// LCh is an OKLCh color: lightness, chroma and hue in radians.
type LCh struct {
	L, C, H float32
}

// Lab is an OKLab color.
type Lab struct {
	L, A, B float32
}

// RGB is a linear RGB triple.
type RGB [3]float32

// Lab converts the polar form to OKLab.
func (c LCh) Lab() Lab {
	s, co := math32.Sincos(c.H)
	return Lab{L: c.L, A: c.C * co, B: c.C * s}
}

// RGB converts to linear RGB clamped to [0,1].
func (c LCh) RGB() RGB {
	return c.Lab().RGB()
}

// RGB converts to linear RGB clamped to [0,1].
func (c Lab) RGB() RGB {
	rgb := c.Unclamped()
	for i, v := range rgb {
		rgb[i] = clamp01(v)
	}
	return rgb
}

// Unclamped converts to linear RGB without clamping. Components outside
// [0,1] mean the color is out of gamut.
func (c Lab) Unclamped() RGB {
	l := c.L + 0.3963377774*c.A + 0.2158037573*c.B
	m := c.L - 0.1055613458*c.A - 0.0638541728*c.B
	s := c.L - 0.0894841775*c.A - 1.2914855480*c.B

	l, m, s = l*l*l, m*m*m, s*s*s

	return RGB{
		+4.0767416621*l - 3.3077115913*m + 0.2309699292*s,
		-1.2684380046*l + 2.6097574011*m - 0.3413193965*s,
		-0.0041960863*l - 0.7034186147*m + 1.7076147010*s,
	}
}

// LinearToLab converts linear RGB to OKLab.
func LinearToLab(c RGB) Lab {
	l := 0.4122214708*c[0] + 0.5363325363*c[1] + 0.0514459929*c[2]
	m := 0.2119034982*c[0] + 0.6806995451*c[1] + 0.1073969566*c[2]
	s := 0.0883024619*c[0] + 0.2817188376*c[1] + 0.6299787005*c[2]

	l, m, s = math32.Cbrt(l), math32.Cbrt(m), math32.Cbrt(s)

	return Lab{
		L: 0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		A: 1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		B: 0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

// LCh converts OKLab to polar form with the hue in [0, 2π).
func (c Lab) LCh() LCh {
	h := math32.Atan2(c.B, c.A)
	if h < 0 {
		h += 2 * math32.Pi
	}
	return LCh{L: c.L, C: math32.Hypot(c.A, c.B), H: h}
}

func clamp01(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
