package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "episodic %s (%s/%s)\n", buildinfo.Version(), runtime.Version(), runtime.GOOS)
		},
	}
}
