package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/cpshadow"
)

func newBackendsCmd(*app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered device backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, b := range cpshadow.Backends() {
				state := "available"
				if !b.Available {
					state = "unavailable"
				}
				fmt.Fprintf(out, "%-10s %4d  %s\n", b.Name, b.Priority, state)
			}
			return nil
		},
	}
}
