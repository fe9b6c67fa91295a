package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/flame"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Cleanup(func() { flame.SetLogger(nil) })
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("flame %s = %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"800x600", 800, 600, false},
		{"1920X1080", 1920, 1080, false},
		{"800", 0, 0, true},
		{"0x10", 0, 0, true},
		{"ax10", 0, 0, true},
		{"10xb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %d, %d, want %d, %d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestVariationsCommand(t *testing.T) {
	out := run(t, "variations")
	for _, want := range []string{"swirl", "julia", " 0  linear"} {
		if !strings.Contains(out, want) {
			t.Errorf("variations output missing %q:\n%s", want, out)
		}
	}
}

func TestPresetCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	out := run(t, "preset", path, "--backend", "cpu", "--size", "16x16", "--seed", "5", "--vars", "swirl,13")
	if !strings.Contains(out, "flame_3_13") {
		t.Errorf("preset output = %q, want flame_3_13", out)
	}
	p, err := flame.LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset() = %v", err)
	}
	if len(p.Variations) != 2 || p.Variations[0].ID != "swirl" || p.Variations[1].ID != "julia" {
		t.Errorf("preset variations = %+v", p.Variations)
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	run(t, "render", "--backend", "cpu", "--size", "16x12", "--render-size", "32x24",
		"--frames", "2", "--samples", "200", "--seed", "3", "-o", path)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("render output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("render output is empty")
	}
}

func TestPreviewCommand_Thumb(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prev.bmp")
	run(t, "preview", "--backend", "cpu", "--size", "16x16", "--frames", "1", "--samples", "100",
		"--thumb", "8x8", "-o", path)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("preview output missing: %v", err)
	}
}
