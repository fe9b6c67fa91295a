package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		s           sessionFlags
		size        string
		frames      int
		samples     uint32
		transparent bool
		out         string
		thumb       string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Accumulate preview frames, then render at full resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, h, err := parseSize(size)
			if err != nil {
				return err
			}
			f, err := s.open()
			if err != nil {
				return err
			}
			defer f.Close()

			f.SetRenderSize(w, h)
			f.SetRenderTransparent(transparent)
			if samples > 0 {
				f.SetMatchPreviewSamples(false)
				f.SetRenderSamples(samples)
			}
			if err := accumulate(cmd, f, frames); err != nil {
				return err
			}

			img, err := f.Render()
			if err != nil {
				return err
			}
			if out == "" {
				out = f.RenderName() + ".png"
			}
			if err := save(img, out, thumb); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", out, f.Stats())
			return nil
		},
	}
	s.register(cmd)
	cmd.Flags().StringVar(&size, "render-size", "1920x1080", "render size WxH")
	cmd.Flags().IntVar(&frames, "frames", 20, "preview frames to accumulate before rendering")
	cmd.Flags().Uint32Var(&samples, "render-samples", 0, "render samples (0 = match the preview total)")
	cmd.Flags().BoolVar(&transparent, "transparent", false, "transparent background")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.png, .bmp, .tif)")
	cmd.Flags().StringVar(&thumb, "thumb", "", "scale the output to WxH")
	return cmd
}
