package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func presetCmd() *cobra.Command {
	var s sessionFlags
	cmd := &cobra.Command{
		Use:   "preset FILE",
		Short: "Write the session parameters to a preset file",
		Long: "Opens a session from the given flags (random variations unless --vars\n" +
			"or --preset is set) and writes its parameters as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := s.open()
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.Preset().Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], f.RenderName())
			return nil
		},
	}
	s.register(cmd)
	return cmd
}
