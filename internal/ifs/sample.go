package ifs

import (
	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/rng"
	"github.com/gogpu/flame/internal/variation"
)

// Params are the per-dispatch scalars of the sample kernel.
type Params struct {
	InitialIterations uint32
	Iterations        uint32
	FrameNum          uint32
	NumSamples        uint32

	// View is a row-major 4x4 matrix mapping flame space to clip space.
	View [16]float32

	Width  uint32
	Height uint32
}

// Plotter receives plotted points. *accum.Buffer is the production
// implementation.
type Plotter interface {
	Plot(x, y int, r, g, b float32)
}

// Sample iterates work-item i: seed it, start from a uniform point and
// color, settle for InitialIterations steps, then step and plot Iterations
// times. With zero Iterations the settled point is plotted once.
//
// Items with i >= NumSamples (padding from workgroup rounding) do nothing.
func Sample(i uint32, prm *Params, t *Table, dst Plotter) {
	if i >= prm.NumSamples || t.Len() == 0 {
		return
	}
	seed := rng.Seed(i, prm.FrameNum, prm.NumSamples)

	p := variation.Point{
		X: rng.Next(&seed)*2 - 1,
		Y: rng.Next(&seed)*2 - 1,
	}
	c := [3]float32{rng.Next(&seed), rng.Next(&seed), rng.Next(&seed)}

	for range prm.InitialIterations {
		t.Step(&p, &c, &seed)
	}
	for range prm.Iterations {
		t.Step(&p, &c, &seed)
		Plot(dst, p, c, &prm.View, prm.Width, prm.Height)
	}
	if prm.Iterations == 0 {
		Plot(dst, p, c, &prm.View, prm.Width, prm.Height)
	}
}

// Plot projects p through view and adds color c to the pixel it lands on.
// Points outside the image are dropped.
func Plot(dst Plotter, p variation.Point, c [3]float32, view *[16]float32, width, height uint32) {
	x, y, ok := Project(p, view, width, height)
	if !ok {
		return
	}
	dst.Plot(x, y, c[0], c[1], c[2])
}

// Project maps p to integer pixel coordinates. ok is false for points
// outside the image, including non-finite ones.
func Project(p variation.Point, view *[16]float32, width, height uint32) (x, y int, ok bool) {
	clipX := view[0]*p.X + view[1]*p.Y + view[3]
	clipY := view[4]*p.X + view[5]*p.Y + view[7]

	u := clipX*0.5 + 0.5
	v := clipY*0.5 + 0.5

	fx := u * float32(width)
	fy := v * float32(height)
	// NaN fails every comparison, so it is rejected here too.
	if !(fx > -1 && fx < float32(width) && fy > -1 && fy < float32(height)) {
		return 0, 0, false
	}
	x, y = int(fx), int(fy)
	if x < 0 || x >= int(width) || y < 0 || y >= int(height) {
		return 0, 0, false
	}
	return x, y, true
}

var _ Plotter = (*accum.Buffer)(nil)
