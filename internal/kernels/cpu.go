package kernels

import (
	"math"
	"sync"

	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/cpu"
	"github.com/gogpu/flame/internal/ifs"
	"github.com/gogpu/flame/internal/tonemap"
	"github.com/gogpu/flame/internal/variation"
)

// CPUProgram returns the Go implementations of the flame kernels.
func CPUProgram() cpu.Program {
	return cpu.Program{
		ProduceSamples:    produceSamples,
		RenderPostProcess: renderPostProcess,
	}
}

// groupScratch is the work-group local table, reused across groups.
type groupScratch struct {
	ids     []variation.ID
	colors  [][3]float32
	weights []float32
	table   ifs.Table
}

var scratchPool = sync.Pool{New: func() any { return new(groupScratch) }}

func produceSamples(g cpu.Group, args cpu.Args) {
	n := int(args.Uint32(ArgNumVariations))
	ids := args.Words(ArgVariations)
	cols := args.Words(ArgColors)
	ws := args.Words(ArgWeights)
	n = min(n, len(ids), len(cols)/3, len(ws))
	if n == 0 {
		return
	}

	s := scratchPool.Get().(*groupScratch)
	defer scratchPool.Put(s)

	s.ids, s.colors, s.weights = s.ids[:0], s.colors[:0], s.weights[:0]
	for j := range n {
		s.ids = append(s.ids, variation.ID(ids[j]))
		s.colors = append(s.colors, [3]float32{
			math.Float32frombits(cols[j*3]),
			math.Float32frombits(cols[j*3+1]),
			math.Float32frombits(cols[j*3+2]),
		})
		s.weights = append(s.weights, math.Float32frombits(ws[j]))
	}
	s.table.Reset(s.ids, s.colors, s.weights)

	prm := ifs.Params{
		InitialIterations: args.Uint32(ArgInitialIterations),
		Iterations:        args.Uint32(ArgIterations),
		FrameNum:          args.Uint32(ArgFrameNum),
		NumSamples:        args.Uint32(ArgNumSamples),
		View:              args.Mat4(ArgView),
		Width:             args.Uint32(ArgWidth),
		Height:            args.Uint32(ArgHeight),
	}
	words := args.Words(ArgTexture)
	w, h := int(prm.Width), int(prm.Height)
	if len(words) < w*h*accum.Channels {
		return
	}
	dst := accum.Wrap(words, w, h)

	for i := g.Base; i < g.Base+g.Size; i++ {
		ifs.Sample(uint32(i), &prm, &s.table, dst)
	}
}

func renderPostProcess(g cpu.Group, args cpu.Args) {
	in := args.Words(PostIn)
	out := args.Words(PostOut)
	n := int(args.Uint32(PostNumPixels))
	prm := tonemap.Params{
		Gamma:       args.Float32(PostGamma),
		Brightness:  args.Float32(PostBrightness),
		Transparent: args.Uint8(PostTransparent) != 0,
	}

	var px [accum.Channels]float32
	for i := g.Base; i < g.Base+g.Size && i < n; i++ {
		if (i+1)*accum.Channels > len(in) || i >= len(out) {
			return
		}
		for c := range px {
			px[c] = math.Float32frombits(in[i*accum.Channels+c])
		}
		rgba := tonemap.Pixel(px, prm)
		out[i] = uint32(rgba[0]) | uint32(rgba[1])<<8 | uint32(rgba[2])<<16 | uint32(rgba[3])<<24
	}
}
