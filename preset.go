package flame

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gogpu/flame/internal/variation"
)

// VariationPreset is the JSON form of one variation. ID accepts the
// variation name or its number.
type VariationPreset struct {
	ID     string  `json:"id"`
	L      float32 `json:"l"`
	C      float32 `json:"c"`
	H      float32 `json:"h"`
	Weight float32 `json:"weight"`
}

// CameraPreset is the JSON form of the camera.
type CameraPreset struct {
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Zoom float32 `json:"zoom,omitempty"`
}

// Preset is a saved session: sampling and tone map parameters, render
// settings, the camera and the variation set.
type Preset struct {
	PreviewSamples    uint32            `json:"previewSamples,omitempty"`
	InitialIterations uint32            `json:"initialIterations"`
	Iterations        uint32            `json:"iterations"`
	Gamma             float32           `json:"gamma,omitempty"`
	Darkness          float32           `json:"darkness,omitempty"`
	RenderWidth       int               `json:"renderWidth,omitempty"`
	RenderHeight      int               `json:"renderHeight,omitempty"`
	RenderSamples     uint32            `json:"renderSamples,omitempty"`
	Transparent       bool              `json:"transparent,omitempty"`
	Camera            CameraPreset      `json:"camera"`
	Variations        []VariationPreset `json:"variations"`
}

// LoadPreset reads a preset file, filling unset fields with defaults.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("flame: parse preset %s: %w", path, err)
	}
	// Defaults
	if p.PreviewSamples == 0 {
		p.PreviewSamples = DefaultPreviewSamples
	}
	if p.Gamma <= 0 {
		p.Gamma = DefaultGamma
	}
	if p.Darkness <= 0 {
		p.Darkness = DefaultDarkness
	}
	if p.RenderWidth <= 0 {
		p.RenderWidth = DefaultRenderWidth
	}
	if p.RenderHeight <= 0 {
		p.RenderHeight = DefaultRenderHeight
	}
	if p.Camera.Zoom <= 0 {
		p.Camera.Zoom = DefaultZoom
	}
	return &p, nil
}

// Save writes the preset as indented JSON.
func (p *Preset) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // preset files are not secret
}

// Preset captures the session state.
func (f *Flame) Preset() *Preset {
	x, y := f.cam.Position()
	p := &Preset{
		PreviewSamples:    f.numPreviewSamples,
		InitialIterations: f.initialIterations,
		Iterations:        f.iterations,
		Gamma:             f.gamma,
		Darkness:          f.darkness,
		RenderWidth:       f.renderWidth,
		RenderHeight:      f.renderHeight,
		RenderSamples:     f.numRenderSamples,
		Transparent:       f.renderTransparent,
		Camera:            CameraPreset{X: x, Y: y, Zoom: f.cam.ZoomLevel()},
	}
	for _, v := range f.vars.All() {
		p.Variations = append(p.Variations, VariationPreset{
			ID: v.ID.String(), L: v.Color.L, C: v.Color.C, H: v.Color.H, Weight: v.Weight,
		})
	}
	return p
}

// ApplyPreset replaces the session state with p. The variation set is
// replaced wholesale. Invalid ids, weights or tone map values leave the
// session unchanged. A non-zero RenderSamples turns match mode off.
func (f *Flame) ApplyPreset(p *Preset) error {
	vars := make([]Variation, 0, len(p.Variations))
	for i, vp := range p.Variations {
		id, err := variation.Parse(vp.ID)
		if err != nil {
			return fmt.Errorf("%w: variation %d: %w", ErrInvalidVariation, i, err)
		}
		if err := checkWeight(vp.Weight); err != nil {
			return fmt.Errorf("variation %d: %w", i, err)
		}
		vars = append(vars, NewVariation(id, LCh{L: vp.L, C: vp.C, H: vp.H}, vp.Weight))
	}
	if len(vars) > f.vars.Max() {
		return fmt.Errorf("%w: preset has %d, max %d", ErrTooManyVariations, len(vars), f.vars.Max())
	}
	if err := errors.Join(checkToneMap("gamma", p.Gamma), checkToneMap("darkness", p.Darkness)); err != nil {
		return err
	}

	errs := []error{
		f.SetNumPreviewSamples(p.PreviewSamples),
		f.SetInitialIterations(p.InitialIterations),
		f.SetIterations(p.Iterations),
		f.SetGamma(p.Gamma),
		f.SetDarkness(p.Darkness),
	}
	f.SetRenderSize(p.RenderWidth, p.RenderHeight)
	f.SetRenderTransparent(p.Transparent)
	if p.RenderSamples > 0 {
		f.SetMatchPreviewSamples(false)
		f.SetRenderSamples(p.RenderSamples)
	}

	f.cam.Reset()
	f.cam.Move(p.Camera.X, p.Camera.Y)
	if p.Camera.Zoom > 0 {
		f.cam.Zoom(p.Camera.Zoom / DefaultZoom)
	}
	errs = append(errs, f.bindView())

	for f.vars.Len() > 0 {
		if err := f.vars.Remove(f.vars.Len() - 1); err != nil {
			return err
		}
	}
	for _, v := range vars {
		if _, err := f.vars.Add(v); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, f.writeAll(), f.bindCount())
	f.clearOnce = true
	return errors.Join(errs...)
}
