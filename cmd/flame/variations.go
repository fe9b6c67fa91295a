package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/flame"
)

func variationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variations",
		Short: "List the supported variations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, id := range flame.ValidVariations() {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", uint32(id), id)
			}
			return nil
		},
	}
}
