// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import "github.com/gogpu/flame/internal/compute"

// uniformLayout places the by-value arguments of a kernel in a WGSL
// uniform struct. Scalars take 4 bytes (uchar is widened to u32), matrices
// are 16-byte aligned, and the struct size is rounded up to 16.
type uniformLayout struct {
	offsets map[int]int // arg position -> byte offset
	size    int
}

func layoutUniform(spec compute.KernelSpec) uniformLayout {
	l := uniformLayout{offsets: make(map[int]int)}
	off := 0
	for pos, a := range spec.Args {
		if a.Kind != compute.ArgValue {
			continue
		}
		size, align := 4, 4
		if a.Type == compute.TypeMat4 {
			size, align = 64, 16
		}
		off = (off + align - 1) &^ (align - 1)
		l.offsets[pos] = off
		off += size
	}
	l.size = (off + 15) &^ 15
	return l
}

// pack writes bound values into a byte block of l.size.
func (l uniformLayout) pack(args []compute.BoundArg) []byte {
	out := make([]byte, l.size)
	for pos, off := range l.offsets {
		if pos >= len(args) {
			continue
		}
		v := args[pos].Value
		if v.Type() == compute.TypeUint8 {
			out[off] = v.AsUint8()
			continue
		}
		copy(out[off:], v.Bytes())
	}
	return out
}

// dispatchSize splits groups over x and y so that neither exceeds maxDim.
// Shaders recover the linear group index as y*numX + x.
func dispatchSize(groups int, maxDim uint32) (x, y uint32) {
	if groups <= 0 {
		return 0, 0
	}
	//nolint:gosec // G115: groups is positive
	g := uint32(groups)
	y = (g + maxDim - 1) / maxDim
	x = (g + y - 1) / y
	return x, y
}
