package flame

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/gogpu/flame/internal/compute"
	"github.com/gogpu/flame/internal/variation"
)

const (
	testWidth  = 32
	testHeight = 24
)

// newTestFlame creates a CPU session with a fixed random source.
func newTestFlame(t *testing.T, opts ...Option) *Flame {
	t.Helper()
	base := []Option{
		WithBackend(BackendCPU),
		WithPreviewSize(testWidth, testHeight),
		WithWorkers(2),
		WithRandomSource(rand.New(rand.NewPCG(1, 2))),
	}
	f, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// newIdentityFlame creates a session holding only the identity variation,
// which keeps every sample inside the default view.
func newIdentityFlame(t *testing.T) *Flame {
	t.Helper()
	f := newTestFlame(t, WithInitialVariations(0))
	if err := f.AddDefaultVariation(); err != nil {
		t.Fatalf("AddDefaultVariation() = %v", err)
	}
	if err := f.SetNumPreviewSamples(1000); err != nil {
		t.Fatalf("SetNumPreviewSamples() = %v", err)
	}
	return f
}

func hitSum(t *testing.T, f *Flame) float64 {
	t.Helper()
	acc, err := f.PreviewAccumulation()
	if err != nil {
		t.Fatalf("PreviewAccumulation() = %v", err)
	}
	var sum float64
	for i := 3; i < len(acc); i += 4 {
		sum += float64(acc[i])
	}
	return sum
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	f := newTestFlame(t)

	if f.Backend() != BackendCPU {
		t.Errorf("Backend() = %v, want cpu", f.Backend())
	}
	if f.DeviceName() == "" {
		t.Error("DeviceName() is empty")
	}
	if w, h := f.PreviewSize(); w != testWidth || h != testHeight {
		t.Errorf("PreviewSize() = %dx%d, want %dx%d", w, h, testWidth, testHeight)
	}
	if w, h := f.RenderSize(); w != DefaultRenderWidth || h != DefaultRenderHeight {
		t.Errorf("RenderSize() = %dx%d, want %dx%d", w, h, DefaultRenderWidth, DefaultRenderHeight)
	}

	checks := []struct {
		name      string
		got, want uint32
	}{
		{"NumPreviewSamples", f.NumPreviewSamples(), DefaultPreviewSamples},
		{"InitialIterations", f.InitialIterations(), DefaultInitialIterations},
		{"Iterations", f.Iterations(), DefaultIterations},
		{"RenderSamples", f.RenderSamples(), DefaultRenderSamples},
		{"FrameNum", f.FrameNum(), 0},
		{"TotalPreviewSamples", f.TotalPreviewSamples(), 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s() = %d, want %d", c.name, c.got, c.want)
		}
	}
	if f.Gamma() != DefaultGamma {
		t.Errorf("Gamma() = %v, want %v", f.Gamma(), DefaultGamma)
	}
	if f.Darkness() != DefaultDarkness {
		t.Errorf("Darkness() = %v, want %v", f.Darkness(), DefaultDarkness)
	}
	if !f.MatchPreviewSamples() {
		t.Error("MatchPreviewSamples() = false, want true")
	}
	if f.RenderTransparent() || f.Paused() || f.ClearEveryFrame() {
		t.Error("transparent, paused and clear-every-frame should start off")
	}

	if got := f.Variations().Len(); got != 3 {
		t.Fatalf("Variations().Len() = %d, want 3", got)
	}
	for i, v := range f.Variations().All() {
		if v.ID == variation.Linear {
			t.Errorf("random variation %d is the identity", i)
		}
		if !v.ID.IsValid() {
			t.Errorf("random variation %d has invalid id %d", i, v.ID)
		}
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero width", []Option{WithPreviewSize(0, 10)}},
		{"negative height", []Option{WithPreviewSize(10, -1)}},
		{"zero variations", []Option{WithMaxVariations(0)}},
		{"too many variations", []Option{WithMaxVariations(MaxVariationsLimit + 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithBackend(BackendCPU)}, tt.opts...)
			f, err := New(opts...)
			if err == nil {
				_ = f.Close()
				t.Fatal("New() expected error")
			}
		})
	}
}

func TestNew_UnregisteredBackend(t *testing.T) {
	driverMu.RLock()
	_, registered := registry[BackendOpenCL]
	driverMu.RUnlock()
	if registered {
		t.Skip("OpenCL driver registered")
	}
	_, err := New(WithBackend(BackendOpenCL))
	if !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("New(opencl) = %v, want ErrBackendNotFound", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	f := newTestFlame(t)
	if err := f.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := f.Update(); !errors.Is(err, ErrClosed) {
		t.Errorf("Update() after Close = %v, want ErrClosed", err)
	}
	if _, err := f.Render(); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close = %v, want ErrClosed", err)
	}
}

// =============================================================================
// Update loop
// =============================================================================

func TestUpdate_Bookkeeping(t *testing.T) {
	f := newTestFlame(t)
	if err := f.SetNumPreviewSamples(500); err != nil {
		t.Fatal(err)
	}

	for i := range 3 {
		if err := f.Update(); err != nil {
			t.Fatalf("Update() #%d = %v", i, err)
		}
	}
	if got := f.FrameNum(); got != 3 {
		t.Errorf("FrameNum() = %d, want 3", got)
	}
	if got := f.TotalPreviewSamples(); got != 1500 {
		t.Errorf("TotalPreviewSamples() = %d, want 1500", got)
	}
	if got := f.RenderSamples(); got != 1500 {
		t.Errorf("RenderSamples() = %d, want 1500 in match mode", got)
	}
}

func TestUpdate_MatchOff(t *testing.T) {
	f := newTestFlame(t)
	f.SetMatchPreviewSamples(false)
	f.SetRenderSamples(42)

	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if got := f.RenderSamples(); got != 42 {
		t.Errorf("RenderSamples() = %d, want 42", got)
	}

	f.SetMatchPreviewSamples(true)
	if got := f.RenderSamples(); got != f.TotalPreviewSamples() {
		t.Errorf("RenderSamples() = %d, want total %d after enabling match", got, f.TotalPreviewSamples())
	}
}

func TestUpdate_Paused(t *testing.T) {
	f := newIdentityFlame(t)
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	before := hitSum(t, f)

	f.SetPaused(true)
	for range 2 {
		if err := f.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.FrameNum(); got != 1 {
		t.Errorf("FrameNum() = %d, want 1 while paused", got)
	}
	if got := f.TotalPreviewSamples(); got != 1000 {
		t.Errorf("TotalPreviewSamples() = %d, want 1000 while paused", got)
	}
	if got := hitSum(t, f); got != before {
		t.Errorf("hits changed while paused: %v -> %v", before, got)
	}
}

func TestUpdate_Accumulates(t *testing.T) {
	f := newIdentityFlame(t)

	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	want := float64(DefaultIterations * 1000)
	if got := hitSum(t, f); got != want {
		t.Errorf("hits after one frame = %v, want %v", got, want)
	}

	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if got := hitSum(t, f); got != 2*want {
		t.Errorf("hits after two frames = %v, want %v", got, 2*want)
	}
}

func TestUpdate_ClearEveryFrame(t *testing.T) {
	f := newIdentityFlame(t)
	f.SetClearEveryFrame(true)

	for range 3 {
		if err := f.Update(); err != nil {
			t.Fatal(err)
		}
	}
	want := float64(DefaultIterations * 1000)
	if got := hitSum(t, f); got != want {
		t.Errorf("hits = %v, want %v with clear every frame", got, want)
	}
	if got := f.TotalPreviewSamples(); got != 1000 {
		t.Errorf("TotalPreviewSamples() = %d, want 1000", got)
	}
}

func TestUpdate_NoVariations(t *testing.T) {
	f := newTestFlame(t, WithInitialVariations(0))
	if err := f.Update(); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	if got := f.FrameNum(); got != 1 {
		t.Errorf("FrameNum() = %d, want 1", got)
	}
	if got := hitSum(t, f); got != 0 {
		t.Errorf("hits = %v, want 0 without variations", got)
	}
}

func TestSetter_RequestsClear(t *testing.T) {
	f := newIdentityFlame(t)
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if err := f.SetIterations(2); err != nil {
		t.Fatal(err)
	}
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if got, want := hitSum(t, f), float64(2*1000); got != want {
		t.Errorf("hits = %v, want %v after parameter change", got, want)
	}
	if got := f.TotalPreviewSamples(); got != 1000 {
		t.Errorf("TotalPreviewSamples() = %d, want 1000", got)
	}
}

func TestSetGamma_KeepsAccumulation(t *testing.T) {
	f := newIdentityFlame(t)
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if err := f.SetGamma(1.5); err != nil {
		t.Fatal(err)
	}
	if err := f.SetDarkness(4); err != nil {
		t.Fatal(err)
	}
	if f.clearOnce {
		t.Error("tone map setters should not request a clear")
	}
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if got := f.TotalPreviewSamples(); got != 2000 {
		t.Errorf("TotalPreviewSamples() = %d, want 2000", got)
	}
}

func TestSetPreviewSize(t *testing.T) {
	f := newIdentityFlame(t)
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	if err := f.SetPreviewSize(16, 16); err != nil {
		t.Fatalf("SetPreviewSize() = %v", err)
	}
	if got := f.Camera().Aspect(); got != 1 {
		t.Errorf("Camera().Aspect() = %v, want 1", got)
	}
	acc, err := f.PreviewAccumulation()
	if err != nil {
		t.Fatal(err)
	}
	if len(acc) != 16*16*4 {
		t.Errorf("accumulation len = %d, want %d", len(acc), 16*16*4)
	}
	if err := f.SetPreviewSize(0, 16); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("SetPreviewSize(0, 16) = %v, want ErrInvalidSize", err)
	}
}

func TestSetPreviewSize_OverBudgetKeepsPreview(t *testing.T) {
	f := newTestFlame(t, WithMemoryBudgetMB(1))
	// The 240x240 accumulation fits the budget alone but not with its
	// processed buffer.
	if err := f.SetPreviewSize(240, 240); !errors.Is(err, compute.ErrMemoryBudgetExceeded) {
		t.Fatalf("SetPreviewSize(240, 240) = %v, want ErrMemoryBudgetExceeded", err)
	}
	if w, h := f.PreviewSize(); w != testWidth || h != testHeight {
		t.Errorf("PreviewSize() = %dx%d, want %dx%d", w, h, testWidth, testHeight)
	}
	acc, err := f.PreviewAccumulation()
	if err != nil {
		t.Fatalf("PreviewAccumulation() = %v", err)
	}
	if len(acc) != testWidth*testHeight*4 {
		t.Errorf("accumulation len = %d, want %d", len(acc), testWidth*testHeight*4)
	}
	if err := f.Update(); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	img, err := f.Preview()
	if err != nil {
		t.Fatalf("Preview() = %v", err)
	}
	if img.Width() != testWidth || img.Height() != testHeight {
		t.Errorf("Preview() = %dx%d, want %dx%d", img.Width(), img.Height(), testWidth, testHeight)
	}
}

func TestToneMap_Invalid(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name string
		v    float32
	}{
		{"zero", 0},
		{"negative", -1},
		{"NaN", nan},
		{"+Inf", inf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFlame(t)
			if err := f.SetGamma(tt.v); !errors.Is(err, ErrInvalidToneMap) {
				t.Errorf("SetGamma(%v) = %v, want ErrInvalidToneMap", tt.v, err)
			}
			if err := f.SetDarkness(tt.v); !errors.Is(err, ErrInvalidToneMap) {
				t.Errorf("SetDarkness(%v) = %v, want ErrInvalidToneMap", tt.v, err)
			}
			if f.Gamma() != DefaultGamma || f.Darkness() != DefaultDarkness {
				t.Errorf("Gamma, Darkness = %v, %v, want defaults", f.Gamma(), f.Darkness())
			}
		})
	}
}

// =============================================================================
// Output
// =============================================================================

func TestPreview(t *testing.T) {
	f := newIdentityFlame(t)
	if err := f.Update(); err != nil {
		t.Fatal(err)
	}
	img, err := f.Preview()
	if err != nil {
		t.Fatalf("Preview() = %v", err)
	}
	if img.Width() != testWidth || img.Height() != testHeight {
		t.Errorf("Preview() size = %dx%d, want %dx%d", img.Width(), img.Height(), testWidth, testHeight)
	}
	lit := 0
	for y := range img.Height() {
		for x := range img.Width() {
			p := img.RGBA(x, y)
			if p[3] != 255 {
				t.Fatalf("pixel (%d,%d) alpha = %d, want 255", x, y, p[3])
			}
			if p[0] > 0 || p[1] > 0 || p[2] > 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("Preview() has no lit pixels")
	}
}

func TestRender(t *testing.T) {
	f := newIdentityFlame(t)
	f.SetRenderSize(40, 20)
	f.SetMatchPreviewSamples(false)
	f.SetRenderSamples(2000)

	before, err := f.ctx.Checkpoint(f.produce)
	if err != nil {
		t.Fatal(err)
	}
	aspect := f.Camera().Aspect()

	img, err := f.Render()
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if img.Width() != 40 || img.Height() != 20 {
		t.Errorf("Render() size = %dx%d, want 40x20", img.Width(), img.Height())
	}
	for i := 3; i < len(img.Data()); i += 4 {
		if img.Data()[i] != 255 {
			t.Fatalf("opaque render has alpha %d at byte %d", img.Data()[i], i)
		}
	}

	after, err := f.ctx.Checkpoint(f.produce)
	if err != nil {
		t.Fatal(err)
	}
	if !before.Equal(after) {
		t.Error("Render() changed the preview bindings")
	}
	if got := f.Camera().Aspect(); got != aspect {
		t.Errorf("Camera().Aspect() = %v after Render, want %v", got, aspect)
	}
	if _, ok := f.ctx.Buffer(bufRender); ok {
		t.Error("render buffer still allocated after Render")
	}
}

func TestRender_TransparentEmpty(t *testing.T) {
	f := newTestFlame(t, WithInitialVariations(0))
	f.SetRenderSize(8, 8)
	f.SetRenderTransparent(true)

	img, err := f.Render()
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	for y := range 8 {
		for x := range 8 {
			if got := img.RGBA(x, y); got != [4]uint8{} {
				t.Fatalf("pixel (%d,%d) = %v, want transparent black", x, y, got)
			}
		}
	}
}

func TestRenderName(t *testing.T) {
	f := newTestFlame(t, WithInitialVariations(0))
	if got := f.RenderName(); got != "flame" {
		t.Errorf("RenderName() = %q, want %q", got, "flame")
	}
	for _, id := range []VariationID{3, 13} {
		if err := f.AddVariation(NewVariation(id, LCh{L: 0.5}, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.RenderName(); got != "flame_3_13" {
		t.Errorf("RenderName() = %q, want %q", got, "flame_3_13")
	}
}

// =============================================================================
// Variations
// =============================================================================

func readIDs(t *testing.T, f *Flame) []uint32 {
	t.Helper()
	raw := make([]byte, f.vars.Max()*4)
	if err := f.ctx.ReadBuffer(f.variationsBuf, 0, raw); err != nil {
		t.Fatal(err)
	}
	out := make([]uint32, f.vars.Max())
	for i := range out {
		out[i] = uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
	}
	return out
}

func TestRemoveVariation_Compacts(t *testing.T) {
	f := newTestFlame(t, WithInitialVariations(0), WithMaxVariations(4))
	for _, id := range []VariationID{1, 2, 3} {
		if err := f.AddVariation(NewVariation(id, LCh{L: 0.5}, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.RemoveVariation(0); err != nil {
		t.Fatalf("RemoveVariation(0) = %v", err)
	}

	want := []uint32{2, 3, 0, 0}
	got := readIDs(t, f)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("device ids = %v, want %v", got, want)
			break
		}
	}
	if ids := f.Variations().IDs(); len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("IDs() = %v, want [2 3]", ids)
	}
	if err := f.RemoveVariation(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveVariation(5) = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetVariationID_Invalid(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	f := newTestFlame(t)
	before := f.Variations().IDs()

	err := f.SetVariationID(0, 15)
	if !errors.Is(err, ErrInvalidVariation) {
		t.Fatalf("SetVariationID(0, 15) = %v, want ErrInvalidVariation", err)
	}
	if !strings.Contains(buf.String(), "invalid variation") {
		t.Errorf("expected warning in log, got: %s", buf.String())
	}
	if got := f.Variations().IDs(); got[0] != before[0] {
		t.Errorf("id changed to %d after rejected update", got[0])
	}
	if err := f.SetVariationID(9, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetVariationID(9, 3) = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetVariation_UploadsSlot(t *testing.T) {
	f := newTestFlame(t)
	if err := f.SetVariationID(1, variation.Julia); err != nil {
		t.Fatal(err)
	}
	if got := readIDs(t, f)[1]; got != uint32(variation.Julia) {
		t.Errorf("device id[1] = %d, want %d", got, variation.Julia)
	}
	if err := f.SetVariationWeight(1, 0.25); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Variations().At(1); v.Weight != 0.25 {
		t.Errorf("Weight = %v, want 0.25", v.Weight)
	}
	c := LCh{L: 0.7, C: 0.1, H: 1}
	if err := f.SetVariationColor(1, c); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Variations().At(1); v.RGB != c.RGB() {
		t.Errorf("RGB = %v, want %v", v.RGB, c.RGB())
	}
}

func TestAddVariation_TooMany(t *testing.T) {
	f := newTestFlame(t, WithInitialVariations(0), WithMaxVariations(2))
	for range 2 {
		if err := f.AddRandomVariation(); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.AddRandomVariation(); !errors.Is(err, ErrTooManyVariations) {
		t.Errorf("AddRandomVariation() = %v, want ErrTooManyVariations", err)
	}
	if err := f.AddVariation(NewVariation(99, LCh{}, 1)); err == nil {
		t.Error("AddVariation(invalid) expected error")
	}
}

func TestVariationWeight_Invalid(t *testing.T) {
	f := newTestFlame(t)
	n := f.Variations().Len()
	if err := f.AddVariation(NewVariation(variation.Swirl, LCh{L: 0.5}, -1)); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("AddVariation(weight -1) = %v, want ErrInvalidWeight", err)
	}
	if got := f.Variations().Len(); got != n {
		t.Errorf("Len() = %d after rejected add, want %d", got, n)
	}

	before := f.Variations().All()[1].Weight
	if err := f.SetVariationWeight(1, float32(math.NaN())); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("SetVariationWeight(NaN) = %v, want ErrInvalidWeight", err)
	}
	if got := f.Variations().All()[1].Weight; got != before {
		t.Errorf("weight = %v after rejected set, want %v", got, before)
	}
}

func TestRandomize(t *testing.T) {
	f := newTestFlame(t)
	if err := errors.Join(f.RandomizeIDs(), f.RandomizeColors(), f.RandomizeWeights()); err != nil {
		t.Fatalf("randomize = %v", err)
	}
	for i, v := range f.Variations().All() {
		if v.ID == variation.Linear || !v.ID.IsValid() {
			t.Errorf("variation %d id = %d", i, v.ID)
		}
		if v.Weight < 0 || v.Weight >= 1 {
			t.Errorf("variation %d weight = %v, want [0,1)", i, v.Weight)
		}
	}
}

// =============================================================================
// Camera
// =============================================================================

func TestUpdateCamera_IgnoredWhilePaused(t *testing.T) {
	f := newTestFlame(t)
	f.SetPaused(true)
	if err := f.UpdateCamera(1, 1, 2); err != nil {
		t.Fatal(err)
	}
	if x, y := f.Camera().Position(); x != 0 || y != 0 {
		t.Errorf("Position() = (%v, %v), want origin while paused", x, y)
	}
	if got := f.Camera().ZoomLevel(); got != DefaultZoom {
		t.Errorf("ZoomLevel() = %v, want %v", got, DefaultZoom)
	}

	f.SetPaused(false)
	if err := errors.Join(f.MoveCamera(1, 0), f.ZoomCamera(2)); err != nil {
		t.Fatal(err)
	}
	if x, _ := f.Camera().Position(); x != 1 {
		t.Errorf("Position().x = %v, want 1", x)
	}

	f.SetPaused(true)
	if err := f.ResetCamera(); err != nil {
		t.Fatal(err)
	}
	if x, y := f.Camera().Position(); x != 0 || y != 0 {
		t.Errorf("ResetCamera() while paused left position (%v, %v)", x, y)
	}
	if got := f.Camera().ZoomLevel(); got != DefaultZoom {
		t.Errorf("ZoomLevel() = %v after reset, want %v", got, DefaultZoom)
	}
}

func TestCameraBinding(t *testing.T) {
	f := newTestFlame(t)
	if err := f.MoveCamera(0.5, 0); err != nil {
		t.Fatal(err)
	}
	s, err := f.ctx.Checkpoint(f.produce)
	if err != nil {
		t.Fatal(err)
	}
	want := compute.Mat4(f.Camera().Matrix())
	found := false
	for _, a := range s.Args {
		if a.Value == want {
			found = true
		}
	}
	if !found {
		t.Error("view matrix not bound after MoveCamera")
	}
}
