package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// Version returns the command that prints the CLI version.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the azup version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
