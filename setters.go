package flame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/kernels"
)

func uint32Bytes(vs ...uint32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func float32Bytes(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// =============================================================================
// Sampling parameters
// =============================================================================

// SetPreviewSize replaces the preview accumulation with a zeroed
// width×height buffer and matches the camera aspect to it.
func (f *Flame) SetPreviewSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: preview %dx%d", ErrInvalidSize, width, height)
	}
	n := width * height
	preview, err := f.ctx.CreateBuffer(bufPreview, n*16)
	if err != nil {
		return err
	}
	processed, err := f.ctx.CreateBuffer(bufPreviewProcessed, n*4)
	if err != nil {
		// Put the accumulation back at the size the bindings describe.
		if old := f.previewWidth * f.previewHeight; old > 0 {
			if _, rerr := f.ctx.CreateBuffer(bufPreview, old*16); rerr != nil {
				return errors.Join(err, rerr)
			}
			f.clearOnce = true
		}
		return err
	}
	f.preview, f.previewProcessed = preview, processed
	f.previewWidth, f.previewHeight = width, height
	f.cam.SetAspect(width, height)
	f.clearOnce = true
	return errors.Join(
		f.ctx.BindBuffer(f.produce, kernels.ArgTexture, f.preview),
		f.ctx.BindValue(f.produce, kernels.ArgWidth, compute.Uint32(uint32(width))),   //nolint:gosec // validated above
		f.ctx.BindValue(f.produce, kernels.ArgHeight, compute.Uint32(uint32(height))), //nolint:gosec // validated above
		f.bindView(),
		f.bindPost(f.preview, f.previewProcessed, n, f.renderTransparent),
	)
}

// PreviewSize returns the preview dimensions.
func (f *Flame) PreviewSize() (width, height int) { return f.previewWidth, f.previewHeight }

// SetNumPreviewSamples sets how many sample points each Update traces.
func (f *Flame) SetNumPreviewSamples(n uint32) error {
	f.numPreviewSamples = n
	f.clearOnce = true
	return errors.Join(
		f.ctx.Resize(f.produce, int(n)),
		f.ctx.BindValue(f.produce, kernels.ArgNumSamples, compute.Uint32(n)),
	)
}

// NumPreviewSamples returns the samples traced per Update.
func (f *Flame) NumPreviewSamples() uint32 { return f.numPreviewSamples }

// SetInitialIterations sets how many unplotted steps each sample takes
// before plotting starts.
func (f *Flame) SetInitialIterations(n uint32) error {
	f.initialIterations = n
	f.clearOnce = true
	return f.ctx.BindValue(f.produce, kernels.ArgInitialIterations, compute.Uint32(n))
}

// InitialIterations returns the unplotted steps per sample.
func (f *Flame) InitialIterations() uint32 { return f.initialIterations }

// SetIterations sets how many plotted steps each sample takes.
func (f *Flame) SetIterations(n uint32) error {
	f.iterations = n
	f.clearOnce = true
	return f.ctx.BindValue(f.produce, kernels.ArgIterations, compute.Uint32(n))
}

// Iterations returns the plotted steps per sample.
func (f *Flame) Iterations() uint32 { return f.iterations }

// SetGamma sets the tone map gamma, which must be positive. The
// accumulation is kept.
func (f *Flame) SetGamma(g float32) error {
	if err := checkToneMap("gamma", g); err != nil {
		return err
	}
	f.gamma = g
	return f.ctx.BindValue(f.post, kernels.PostGamma, compute.Float32(g))
}

// Gamma returns the tone map gamma.
func (f *Flame) Gamma() float32 { return f.gamma }

// SetDarkness sets the tone map darkness, which must be positive;
// brightness is its reciprocal. The accumulation is kept.
func (f *Flame) SetDarkness(d float32) error {
	if err := checkToneMap("darkness", d); err != nil {
		return err
	}
	f.darkness = d
	return f.ctx.BindValue(f.post, kernels.PostBrightness, compute.Float32(1/d))
}

// Darkness returns the tone map darkness.
func (f *Flame) Darkness() float32 { return f.darkness }

func checkToneMap(name string, v float32) error {
	if !(v > 0) || math32.IsInf(v, 1) {
		return fmt.Errorf("%w: %s %v", ErrInvalidToneMap, name, v)
	}
	return nil
}

// SetClearEveryFrame makes every unpaused Update start from an empty
// preview.
func (f *Flame) SetClearEveryFrame(on bool) { f.clearEveryFrame = on }

// ClearEveryFrame reports whether every Update clears the preview.
func (f *Flame) ClearEveryFrame() bool { return f.clearEveryFrame }

// SetPaused stops sampling and camera edits until unpaused.
func (f *Flame) SetPaused(on bool) { f.paused = on }

// Paused reports whether the session is paused.
func (f *Flame) Paused() bool { return f.paused }

// FrameNum returns the number of unpaused updates so far.
func (f *Flame) FrameNum() uint32 { return f.frameNum }

// TotalPreviewSamples returns the samples accumulated since the last clear.
func (f *Flame) TotalPreviewSamples() uint32 { return f.totalPreviewSamples }

// =============================================================================
// Render parameters
// =============================================================================

// SetRenderSize sets the render resolution. Dimensions below one are
// raised to one.
func (f *Flame) SetRenderSize(width, height int) {
	f.renderWidth = max(width, 1)
	f.renderHeight = max(height, 1)
}

// RenderSize returns the render resolution.
func (f *Flame) RenderSize() (width, height int) { return f.renderWidth, f.renderHeight }

// SetRenderSamples sets the render sample count. In match mode the next
// Update overwrites it.
func (f *Flame) SetRenderSamples(n uint32) { f.numRenderSamples = n }

// RenderSamples returns the render sample count.
func (f *Flame) RenderSamples() uint32 { return f.numRenderSamples }

// SetMatchPreviewSamples makes the render sample count follow the preview
// total.
func (f *Flame) SetMatchPreviewSamples(on bool) {
	f.matchPreview = on
	if on {
		f.numRenderSamples = f.totalPreviewSamples
	}
}

// MatchPreviewSamples reports whether match mode is on.
func (f *Flame) MatchPreviewSamples() bool { return f.matchPreview }

// SetRenderTransparent selects a transparent background for rendered and
// previewed images.
func (f *Flame) SetRenderTransparent(on bool) { f.renderTransparent = on }

// RenderTransparent reports whether the background is transparent.
func (f *Flame) RenderTransparent() bool { return f.renderTransparent }

// =============================================================================
// Camera
// =============================================================================

func (f *Flame) bindView() error {
	return f.ctx.BindValue(f.produce, kernels.ArgView, compute.Mat4(f.cam.Matrix()))
}

// UpdateCamera pans by (dx, dy) and multiplies the zoom by zoom. Ignored
// while paused.
func (f *Flame) UpdateCamera(dx, dy, zoom float32) error {
	if f.paused {
		return nil
	}
	f.cam.Move(dx, dy)
	f.cam.Zoom(zoom)
	f.clearOnce = true
	return f.bindView()
}

// MoveCamera pans the view. Ignored while paused.
func (f *Flame) MoveCamera(dx, dy float32) error { return f.UpdateCamera(dx, dy, 1) }

// ZoomCamera multiplies the zoom by factor. Ignored while paused.
func (f *Flame) ZoomCamera(factor float32) error { return f.UpdateCamera(0, 0, factor) }

// ResetCamera recenters the view at the default zoom, paused or not.
func (f *Flame) ResetCamera() error {
	f.cam.Reset()
	f.clearOnce = true
	return f.bindView()
}

// =============================================================================
// Variations
// =============================================================================

// writeSlot uploads variation i.
func (f *Flame) writeSlot(i int) error {
	v := f.vars.items[i]
	return errors.Join(
		f.ctx.WriteBuffer(f.variationsBuf, i*4, uint32Bytes(uint32(v.ID))),
		f.ctx.WriteBuffer(f.colorsBuf, i*12, float32Bytes(v.RGB[:]...)),
		f.ctx.WriteBuffer(f.weightsBuf, i*4, float32Bytes(v.Weight)),
	)
}

// writeAll uploads the whole set, zeroing unused slots.
func (f *Flame) writeAll() error {
	ids, colors, weights := f.vars.pack()
	return errors.Join(
		f.ctx.WriteBuffer(f.variationsBuf, 0, uint32Bytes(ids...)),
		f.ctx.WriteBuffer(f.colorsBuf, 0, float32Bytes(colors...)),
		f.ctx.WriteBuffer(f.weightsBuf, 0, float32Bytes(weights...)),
	)
}

func (f *Flame) bindCount() error {
	return f.ctx.BindValue(f.produce, kernels.ArgNumVariations, compute.Uint32(uint32(f.vars.Len()))) //nolint:gosec // bounded by MaxVariationsLimit
}

// AddVariation appends v to the set.
func (f *Flame) AddVariation(v Variation) error {
	i, err := f.vars.Add(v)
	if err != nil {
		Logger().Warn("flame: cannot add variation", "id", uint32(v.ID), "err", err)
		return err
	}
	f.clearOnce = true
	return errors.Join(f.writeSlot(i), f.bindCount())
}

// AddDefaultVariation appends the identity variation in white with
// weight one.
func (f *Flame) AddDefaultVariation() error {
	return f.AddVariation(NewVariation(0, LCh{L: 1}, 1))
}

// AddRandomVariation appends a random non-identity variation with a
// random color and weight.
func (f *Flame) AddRandomVariation() error {
	return f.AddVariation(NewVariation(randomVariationID(f.rnd), randomLCh(f.rnd), f.rnd.Float32()))
}

// RemoveVariation deletes variation i; later variations move down.
func (f *Flame) RemoveVariation(i int) error {
	if err := f.vars.Remove(i); err != nil {
		return err
	}
	f.clearOnce = true
	return errors.Join(f.writeAll(), f.bindCount())
}

// SetVariationID changes the variation used by entry i.
func (f *Flame) SetVariationID(i int, id VariationID) error {
	if err := f.vars.SetID(i, id); err != nil {
		if errors.Is(err, ErrInvalidVariation) {
			Logger().Warn("flame: invalid variation", "index", i, "id", uint32(id))
		}
		return err
	}
	f.clearOnce = true
	return f.ctx.WriteBuffer(f.variationsBuf, i*4, uint32Bytes(uint32(id)))
}

// SetVariationColor changes the color of entry i.
func (f *Flame) SetVariationColor(i int, c LCh) error {
	if err := f.vars.SetColor(i, c); err != nil {
		return err
	}
	f.clearOnce = true
	rgb := f.vars.items[i].RGB
	return f.ctx.WriteBuffer(f.colorsBuf, i*12, float32Bytes(rgb[:]...))
}

// SetVariationWeight changes the weight of entry i.
func (f *Flame) SetVariationWeight(i int, w float32) error {
	if err := f.vars.SetWeight(i, w); err != nil {
		return err
	}
	f.clearOnce = true
	return f.ctx.WriteBuffer(f.weightsBuf, i*4, float32Bytes(w))
}

// RandomizeIDs gives every entry a random non-identity variation.
func (f *Flame) RandomizeIDs() error {
	var errs []error
	for i := range f.vars.Len() {
		errs = append(errs, f.SetVariationID(i, randomVariationID(f.rnd)))
	}
	return errors.Join(errs...)
}

// RandomizeColors gives every entry a random color.
func (f *Flame) RandomizeColors() error {
	var errs []error
	for i := range f.vars.Len() {
		errs = append(errs, f.SetVariationColor(i, randomLCh(f.rnd)))
	}
	return errors.Join(errs...)
}

// RandomizeWeights gives every entry a random weight in [0,1).
func (f *Flame) RandomizeWeights() error {
	var errs []error
	for i := range f.vars.Len() {
		errs = append(errs, f.SetVariationWeight(i, f.rnd.Float32()))
	}
	return errors.Join(errs...)
}
