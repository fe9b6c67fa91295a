package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/flame"
)

// sessionFlags are shared by the commands that open a session.
type sessionFlags struct {
	backend    string
	preview    string
	workers    int
	seed       uint64
	vars       []string
	preset     string
	samples    uint32
	iterations uint32
	gamma      float32
	darkness   float32
	verbose    bool
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flame",
		Short:         "Render fractal flames",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(renderCmd(), previewCmd(), variationsCmd(), presetCmd())
	return cmd
}

func (s *sessionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&s.backend, "backend", "auto", "compute backend (auto, cpu, gpu, opencl)")
	f.StringVar(&s.preview, "size", "800x600", "preview size WxH")
	f.IntVar(&s.workers, "workers", 0, "CPU workers (0 = all cores)")
	f.Uint64Var(&s.seed, "seed", 0, "random seed (0 = random)")
	f.StringSliceVar(&s.vars, "vars", nil, "variation names or ids, replacing the random set")
	f.StringVar(&s.preset, "preset", "", "load parameters from a preset file")
	f.Uint32Var(&s.samples, "samples", 0, "preview samples per frame")
	f.Uint32Var(&s.iterations, "iterations", 0, "plotted iterations per sample")
	f.Float32Var(&s.gamma, "gamma", 0, "tone map gamma")
	f.Float32Var(&s.darkness, "darkness", 0, "tone map darkness")
	f.BoolVarP(&s.verbose, "verbose", "v", false, "debug logging")
}

// open creates the session and applies the preset and flag overrides.
func (s *sessionFlags) open() (*flame.Flame, error) {
	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	flame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	backend, err := flame.ParseBackend(s.backend)
	if err != nil {
		return nil, err
	}
	w, h, err := parseSize(s.preview)
	if err != nil {
		return nil, err
	}
	seed := s.seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // not security sensitive
	}

	f, err := flame.New(
		flame.WithBackend(backend),
		flame.WithPreviewSize(w, h),
		flame.WithWorkers(s.workers),
		flame.WithRandomSource(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))), //nolint:gosec // not security sensitive
	)
	if err != nil {
		return nil, err
	}
	if err := s.apply(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	flame.Logger().Info("session ready", "backend", f.Backend().String(), "device", f.DeviceName(), "seed", seed)
	return f, nil
}

func (s *sessionFlags) apply(f *flame.Flame) error {
	if s.preset != "" {
		p, err := flame.LoadPreset(s.preset)
		if err != nil {
			return err
		}
		if err := f.ApplyPreset(p); err != nil {
			return err
		}
	}
	if len(s.vars) > 0 {
		if err := replaceVariations(f, s.vars); err != nil {
			return err
		}
	}
	if s.samples > 0 {
		if err := f.SetNumPreviewSamples(s.samples); err != nil {
			return err
		}
	}
	if s.iterations > 0 {
		if err := f.SetIterations(s.iterations); err != nil {
			return err
		}
	}
	if s.gamma > 0 {
		if err := f.SetGamma(s.gamma); err != nil {
			return err
		}
	}
	if s.darkness > 0 {
		if err := f.SetDarkness(s.darkness); err != nil {
			return err
		}
	}
	return nil
}

// replaceVariations swaps the set for the named variations, each with a
// random color and weight.
func replaceVariations(f *flame.Flame, names []string) error {
	for f.Variations().Len() > 0 {
		if err := f.RemoveVariation(f.Variations().Len() - 1); err != nil {
			return err
		}
	}
	for i, name := range names {
		id, err := flame.ParseVariation(name)
		if err != nil {
			return err
		}
		if err := f.AddRandomVariation(); err != nil {
			return err
		}
		if err := f.SetVariationID(i, id); err != nil {
			return err
		}
	}
	return nil
}

// accumulate runs n preview frames, printing progress every tenth.
func accumulate(cmd *cobra.Command, f *flame.Flame, n int) error {
	p := message.NewPrinter(language.English)
	for i := range n {
		if err := f.Update(); err != nil {
			return err
		}
		if (i+1)%10 == 0 || i+1 == n {
			p.Fprintf(cmd.ErrOrStderr(), "frame %d/%d, %d samples\n", i+1, n, f.TotalPreviewSamples())
		}
	}
	return nil
}

func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	if w, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	if h, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q", s)
	}
	return w, h, nil
}

// save writes img to path, or to a thumbnail-sized copy when thumb is set.
func save(img *flame.Image, path, thumb string) error {
	if thumb != "" {
		w, h, err := parseSize(thumb)
		if err != nil {
			return err
		}
		img = img.Scale(w, h)
	}
	return img.Save(path)
}
