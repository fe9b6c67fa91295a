package flame

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/flame/internal/compute"
)

// Stats is a snapshot of a session's progress and device usage.
type Stats struct {
	Backend             Backend
	Device              string
	Frame               uint32
	TotalPreviewSamples uint32
	RenderSamples       uint32
	RenderWidth         int
	RenderHeight        int
	Memory              compute.MemoryStats
	KernelTimes         map[string]time.Duration // mean dispatch time per kernel
}

// Stats returns the current statistics.
func (f *Flame) Stats() Stats {
	s := Stats{
		Backend:             f.backend,
		Device:              f.DeviceName(),
		Frame:               f.frameNum,
		TotalPreviewSamples: f.totalPreviewSamples,
		RenderSamples:       f.numRenderSamples,
		RenderWidth:         f.renderWidth,
		RenderHeight:        f.renderHeight,
		Memory:              f.ctx.MemoryStats(),
		KernelTimes:         make(map[string]time.Duration),
	}
	for _, k := range f.ctx.Kernels() {
		s.KernelTimes[f.ctx.KernelName(k)] = f.ctx.MeanTime(k)
	}
	return s
}

// Format renders the snapshot on one line with numbers grouped for tag,
// e.g. "frame 12, 120,000 preview samples, render 1920x1080 @ 120,000".
func (s Stats) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	line := p.Sprintf("frame %d, %d preview samples, render %dx%d @ %d, %.1f MB on %s",
		s.Frame, s.TotalPreviewSamples, s.RenderWidth, s.RenderHeight, s.RenderSamples,
		s.Memory.UsedMB(), s.Backend)
	if d, ok := s.KernelTimes[produceKernelName]; ok && d > 0 {
		line += p.Sprintf(", %v/frame", d.Round(time.Microsecond))
	}
	return line
}

// String formats the snapshot for English.
func (s Stats) String() string { return s.Format(language.English) }
