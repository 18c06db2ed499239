// Package commands defines the CLI command structure and flag bindings.
//
// Commands parse arguments and flags; execution is delegated to the
// handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nnstorm/azup/cmd/azup/handlers"
)

// Root returns the root command for the azup CLI.
func Root() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:           "azup",
		Short:         "Deploy and manage Azure development VMs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "azup.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.CredentialsPath, "credentials", "", "Path to Azure credential file (defaults to $AZURE_AUTH_LOCATION)")
	cmd.PersistentFlags().BoolVar(&opts.Async, "async", false, "Submit create operations without waiting for completion")

	cmd.AddCommand(Deploy(&opts))
	cmd.AddCommand(Destroy(&opts))
	cmd.AddCommand(Start(&opts))
	cmd.AddCommand(Stop(&opts))
	cmd.AddCommand(Restart(&opts))
	cmd.AddCommand(Deallocate(&opts))
	cmd.AddCommand(List(&opts))
	cmd.AddCommand(Run(&opts))
	cmd.AddCommand(SSHConfig(&opts))
	cmd.AddCommand(Version())

	return cmd
}
