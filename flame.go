package flame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/kernels"
)

// MaxVariationsLimit is the largest variation set a session supports.
const MaxVariationsLimit = kernels.MaxVariationsLimit

// Default session parameters.
const (
	DefaultPreviewSamples    = 10000
	DefaultInitialIterations = 20
	DefaultIterations        = 5
	DefaultGamma             = 2.2
	DefaultDarkness          = 2.0
	DefaultRenderWidth       = 1920
	DefaultRenderHeight      = 1080
	DefaultRenderSamples     = 1000000
)

// produceKernelName keys the sampling kernel in Stats.KernelTimes.
const produceKernelName = kernels.ProduceSamples

// Device buffer names.
const (
	bufPreview          = "previewTexture"
	bufPreviewProcessed = "processedPreviewTexture"
	bufRender           = "renderTexture"
	bufRenderProcessed  = "processedRenderTexture"
	bufVariations       = "variations"
	bufColors           = "colours"
	bufWeights          = "weights"
)

// Flame is a fractal flame session: a variation set, a camera, a live
// preview accumulation and the parameters of a one-shot high resolution
// render.
//
// Each call to Update adds one frame of samples to the preview. Setters
// that change the image mark the preview for clearing at the next Update.
//
// A Flame is not safe for concurrent use.
type Flame struct {
	ctx     *compute.Context
	backend Backend

	produce compute.KernelHandle
	post    compute.KernelHandle

	preview          compute.BufferHandle
	previewProcessed compute.BufferHandle
	variationsBuf    compute.BufferHandle
	colorsBuf        compute.BufferHandle
	weightsBuf       compute.BufferHandle

	cam  *Camera
	vars *VariationSet
	rnd  *rand.Rand

	previewWidth, previewHeight int
	renderWidth, renderHeight   int

	numPreviewSamples   uint32
	totalPreviewSamples uint32
	numRenderSamples    uint32
	initialIterations   uint32
	iterations          uint32
	frameNum            uint32

	gamma    float32
	darkness float32

	renderTransparent bool
	matchPreview      bool
	clearEveryFrame   bool
	clearOnce         bool
	paused            bool
	closed            bool
}

// New opens a compute device and creates a session with the default
// parameters and a few random variations.
func New(opts ...Option) (*Flame, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.previewWidth <= 0 || o.previewHeight <= 0 {
		return nil, fmt.Errorf("%w: preview %dx%d", ErrInvalidSize, o.previewWidth, o.previewHeight)
	}
	if o.maxVariations <= 0 || o.maxVariations > MaxVariationsLimit {
		return nil, fmt.Errorf("flame: max variations %d outside [1, %d]", o.maxVariations, MaxVariationsLimit)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // not security sensitive
	}

	dev, backend, err := openDevice(o.backend, DeviceConfig{Workers: o.workers, Provider: o.provider})
	if err != nil {
		return nil, err
	}
	var copts []compute.Option
	copts = append(copts, compute.WithTimingHistory(o.timingHistory))
	if o.memoryBudgetMB > 0 {
		copts = append(copts, compute.WithMemoryBudget(uint64(o.memoryBudgetMB)<<20))
	}

	f := &Flame{
		ctx:     compute.NewContext(dev, copts...),
		backend: backend,
		vars:    NewVariationSet(o.maxVariations),
		rnd:     o.rnd,
		cam:     NewCamera(o.previewWidth, o.previewHeight),
	}
	if err := f.init(o); err != nil {
		_ = f.ctx.Close()
		return nil, err
	}
	Logger().Info("flame: session created", "backend", backend.String(), "device", dev.Name(),
		"preview", fmt.Sprintf("%dx%d", o.previewWidth, o.previewHeight))
	return f, nil
}

func (f *Flame) init(o options) error {
	ctx := f.ctx
	maxVars := o.maxVariations
	var err error

	if f.variationsBuf, err = ctx.CreateBuffer(bufVariations, maxVars*4); err != nil {
		return err
	}
	if f.colorsBuf, err = ctx.CreateBuffer(bufColors, maxVars*3*4); err != nil {
		return err
	}
	if f.weightsBuf, err = ctx.CreateBuffer(bufWeights, maxVars*4); err != nil {
		return err
	}
	if f.produce, err = ctx.CreateKernel(kernels.ProduceSamplesSpec); err != nil {
		return err
	}
	if f.post, err = ctx.CreateKernel(kernels.RenderPostProcessSpec); err != nil {
		return err
	}

	li, lc, lt := kernels.LocalSizes(maxVars)
	err = errors.Join(
		ctx.BindBuffer(f.produce, kernels.ArgVariations, f.variationsBuf, f.colorsBuf, f.weightsBuf),
		ctx.BindValue(f.produce, kernels.ArgNumVariations, compute.Uint32(0)),
		ctx.BindValue(f.produce, kernels.ArgFrameNum, compute.Uint32(0)),
		ctx.BindLocal(f.produce, kernels.ArgLocalVariations, li),
		ctx.BindLocal(f.produce, kernels.ArgLocalColors, lc),
		ctx.BindLocal(f.produce, kernels.ArgLocalThresholds, lt),
		f.SetPreviewSize(o.previewWidth, o.previewHeight),
		f.SetNumPreviewSamples(DefaultPreviewSamples),
		f.SetInitialIterations(DefaultInitialIterations),
		f.SetIterations(DefaultIterations),
		f.SetGamma(DefaultGamma),
		f.SetDarkness(DefaultDarkness),
	)
	if err != nil {
		return err
	}

	f.numRenderSamples = DefaultRenderSamples
	f.renderWidth, f.renderHeight = DefaultRenderWidth, DefaultRenderHeight
	f.matchPreview = true

	for range o.initialVariations {
		if err := f.AddRandomVariation(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the device and all buffers.
func (f *Flame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.ctx.Close()
}

// Backend returns the backend the session runs on.
func (f *Flame) Backend() Backend { return f.backend }

// DeviceName describes the compute device.
func (f *Flame) DeviceName() string { return f.ctx.Device().Name() }

// Camera returns the preview camera. Use the session's camera methods to
// change it so the kernels see the new view.
func (f *Flame) Camera() *Camera { return f.cam }

// Variations returns the variation set. Use the session's variation
// methods to change it so the device copy stays in sync.
func (f *Flame) Variations() *VariationSet { return f.vars }

// =============================================================================
// Update loop
// =============================================================================

// Update advances the preview by one frame: it clears when requested,
// accumulates NumPreviewSamples new samples unless paused or empty, and
// updates the frame counter and sample totals.
func (f *Flame) Update() error {
	if f.closed {
		return ErrClosed
	}
	if !f.paused && f.clearEveryFrame {
		if err := f.ClearSamples(); err != nil {
			return err
		}
	}
	if f.clearOnce {
		if err := f.ClearSamples(); err != nil {
			return err
		}
		f.clearOnce = false
	}

	if !f.paused && f.vars.Len() > 0 {
		if err := f.ctx.BindValue(f.produce, kernels.ArgFrameNum, compute.Uint32(f.frameNum)); err != nil {
			return err
		}
		if err := f.ctx.Dispatch(f.produce); err != nil {
			return err
		}
	}

	if !f.paused {
		f.frameNum++
		f.totalPreviewSamples += f.numPreviewSamples
		if f.matchPreview {
			f.numRenderSamples = f.totalPreviewSamples
		}
	}
	return nil
}

// ClearSamples zeroes the preview accumulation and resets the sample total.
func (f *Flame) ClearSamples() error {
	if err := f.ctx.FillBuffer(f.preview, 0); err != nil {
		return err
	}
	f.totalPreviewSamples = 0
	if f.matchPreview {
		f.numRenderSamples = f.totalPreviewSamples
	}
	return nil
}

// RequestClear clears the preview at the next Update.
func (f *Flame) RequestClear() { f.clearOnce = true }

// =============================================================================
// Output
// =============================================================================

// Preview tone-maps the current preview accumulation.
func (f *Flame) Preview() (*Image, error) {
	if f.closed {
		return nil, ErrClosed
	}
	n := f.previewWidth * f.previewHeight
	if err := f.bindPost(f.preview, f.previewProcessed, n, f.renderTransparent); err != nil {
		return nil, err
	}
	if err := f.ctx.Dispatch(f.post); err != nil {
		return nil, err
	}
	img := NewImage(f.previewWidth, f.previewHeight)
	if err := f.ctx.ReadBuffer(f.previewProcessed, 0, img.data); err != nil {
		return nil, err
	}
	img.flipVertical()
	return img, nil
}

// PreviewAccumulation returns the raw preview histogram: four float32
// channels (R, G, B sums and hit count) per pixel, bottom row first.
func (f *Flame) PreviewAccumulation() ([]float32, error) {
	if f.closed {
		return nil, ErrClosed
	}
	n := f.previewWidth * f.previewHeight * accum.Channels
	raw := make([]byte, n*4)
	if err := f.ctx.ReadBuffer(f.preview, 0, raw); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// Render accumulates RenderSamples samples into a fresh RenderSize buffer
// and returns the tone-mapped image. The preview bindings, camera aspect
// and accumulation are left as they were.
func (f *Flame) Render() (*Image, error) {
	if f.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	w, h := f.renderWidth, f.renderHeight
	n := w * h

	tex, err := f.ctx.CreateBuffer(bufRender, n*accum.Channels*4)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.ctx.DeleteBuffer(tex) }()
	out, err := f.ctx.CreateBuffer(bufRenderProcessed, n*4)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.ctx.DeleteBuffer(out) }()

	produceState, err := f.ctx.Checkpoint(f.produce)
	if err != nil {
		return nil, err
	}
	postState, err := f.ctx.Checkpoint(f.post)
	if err != nil {
		return nil, err
	}
	defer func() {
		f.cam.SetAspect(f.previewWidth, f.previewHeight)
		if rerr := errors.Join(f.ctx.Restore(f.produce, produceState), f.ctx.Restore(f.post, postState)); rerr != nil {
			Logger().Warn("flame: restoring preview bindings failed", "err", rerr)
		}
	}()

	f.cam.SetAspect(w, h)
	err = errors.Join(
		f.ctx.Resize(f.produce, int(f.numRenderSamples)),
		f.ctx.BindBuffer(f.produce, kernels.ArgTexture, tex),
		f.ctx.BindValue(f.produce, kernels.ArgView, compute.Mat4(f.cam.Matrix())),
		f.ctx.BindValue(f.produce, kernels.ArgWidth, compute.Uint32(uint32(w))),  //nolint:gosec // size validated by SetRenderSize
		f.ctx.BindValue(f.produce, kernels.ArgHeight, compute.Uint32(uint32(h))), //nolint:gosec // size validated by SetRenderSize
		f.ctx.BindValue(f.produce, kernels.ArgNumSamples, compute.Uint32(f.numRenderSamples)),
	)
	if err != nil {
		return nil, err
	}
	Logger().Info("flame: rendering", "size", fmt.Sprintf("%dx%d", w, h), "samples", f.numRenderSamples)
	if f.vars.Len() > 0 {
		if err := f.ctx.Dispatch(f.produce); err != nil {
			return nil, err
		}
	}

	if err := f.bindPost(tex, out, n, f.renderTransparent); err != nil {
		return nil, err
	}
	if err := f.ctx.Dispatch(f.post); err != nil {
		return nil, err
	}

	img := NewImage(w, h)
	if err := f.ctx.ReadBuffer(out, 0, img.data); err != nil {
		return nil, err
	}
	img.flipVertical()
	Logger().Info("flame: render complete", "duration", time.Since(start))
	return img, nil
}

// bindPost points the post-process kernel at src/dst for n pixels.
func (f *Flame) bindPost(src, dst compute.BufferHandle, n int, transparent bool) error {
	return errors.Join(
		f.ctx.Resize(f.post, n),
		f.ctx.BindBuffer(f.post, kernels.PostIn, src, dst),
		f.ctx.BindValue(f.post, kernels.PostTransparent, compute.Bool(transparent)),
		f.ctx.BindValue(f.post, kernels.PostNumPixels, compute.Uint32(uint32(n))), //nolint:gosec // n is a validated pixel count
	)
}

// RenderName returns the default output base name, "flame" followed by
// the variation ids, e.g. "flame_3_13_28".
func (f *Flame) RenderName() string {
	var sb strings.Builder
	sb.WriteString("flame")
	for _, id := range f.vars.IDs() {
		sb.WriteByte('_')
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}
