// Package accum implements the flame accumulation buffer: a float RGBA
// histogram written concurrently by many sample iterators.
//
// Channels are stored as the uint32 bit patterns of float32 values so that
// sync/atomic compare-and-swap can be used for the float add. The layout is
// identical to the device buffers (4 words per pixel, row-major, row 0 at
// the bottom of the view), so a device readback can be wrapped directly.
package accum

import (
	"math"
	"sync/atomic"
)

// Channels per pixel: R, G, B and the hit count.
const Channels = 4

// AddFloat atomically adds v to the float32 stored at addr.
//
// The loop re-reads the current bits, computes the sum and retries the CAS
// until it observes the value it based the sum on.
func AddFloat(addr *uint32, v float32) {
	current := atomic.LoadUint32(addr)
	for {
		next := math.Float32bits(math.Float32frombits(current) + v)
		if atomic.CompareAndSwapUint32(addr, current, next) {
			return
		}
		current = atomic.LoadUint32(addr)
	}
}

// LoadFloat atomically reads the float32 stored at addr.
func LoadFloat(addr *uint32) float32 {
	return math.Float32frombits(atomic.LoadUint32(addr))
}

// Buffer is a width x height float RGBA accumulation image.
type Buffer struct {
	Words  []uint32
	Width  int
	Height int
}

// New allocates a zeroed buffer.
func New(width, height int) *Buffer {
	return &Buffer{
		Words:  make([]uint32, width*height*Channels),
		Width:  width,
		Height: height,
	}
}

// Wrap views existing words as a buffer. words must hold at least
// width*height*Channels entries.
func Wrap(words []uint32, width, height int) *Buffer {
	return &Buffer{Words: words[:width*height*Channels], Width: width, Height: height}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int { return b.Width * b.Height }

// Plot adds (r, g, b, 1) to pixel (x, y). Coordinates outside the buffer
// are ignored.
func (b *Buffer) Plot(x, y int, r, g, bl float32) {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return
	}
	i := (y*b.Width + x) * Channels
	AddFloat(&b.Words[i+0], r)
	AddFloat(&b.Words[i+1], g)
	AddFloat(&b.Words[i+2], bl)
	AddFloat(&b.Words[i+3], 1)
}

// Pixel returns the accumulated channels of pixel (x, y).
func (b *Buffer) Pixel(x, y int) [Channels]float32 {
	return b.At((y*b.Width + x) * Channels)
}

// At returns the channels starting at word offset i.
func (b *Buffer) At(i int) [Channels]float32 {
	return [Channels]float32{
		LoadFloat(&b.Words[i+0]),
		LoadFloat(&b.Words[i+1]),
		LoadFloat(&b.Words[i+2]),
		LoadFloat(&b.Words[i+3]),
	}
}

// Hits returns the sum of all hit counts.
func (b *Buffer) Hits() float64 {
	var total float64
	for i := 3; i < len(b.Words); i += Channels {
		total += float64(LoadFloat(&b.Words[i]))
	}
	return total
}

// Clear zeroes every channel. Must not race with Plot.
func (b *Buffer) Clear() {
	clear(b.Words)
}
