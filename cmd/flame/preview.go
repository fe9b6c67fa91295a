package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func previewCmd() *cobra.Command {
	var (
		s      sessionFlags
		frames int
		out    string
		thumb  string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Accumulate preview frames and save the preview image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := s.open()
			if err != nil {
				return err
			}
			defer f.Close()

			if err := accumulate(cmd, f, frames); err != nil {
				return err
			}
			img, err := f.Preview()
			if err != nil {
				return err
			}
			if out == "" {
				out = f.RenderName() + "_preview.png"
			}
			if err := save(img, out, thumb); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	s.register(cmd)
	cmd.Flags().IntVar(&frames, "frames", 10, "frames to accumulate")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.png, .bmp, .tif)")
	cmd.Flags().StringVar(&thumb, "thumb", "", "scale the output to WxH")
	return cmd
}
