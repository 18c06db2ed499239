package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nnstorm/azup/cmd/azup/handlers"
)

// Deploy returns the command that converges a full VM deployment.
//
// The deployment is idempotent: resources that already exist are left
// untouched, so re-running deploy over a live VM is a cheap no-op.
func Deploy(opts *handlers.Options) *cobra.Command {
	var deployOpts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "deploy NAME",
		Short: "Deploy a development VM with its network stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deployOpts.Name = args[0]
			return handlers.Deploy(cmd.Context(), *opts, deployOpts)
		},
	}

	cmd.Flags().StringVar(&deployOpts.Size, "size", "small", "VM size alias or literal size name")
	cmd.Flags().StringVar(&deployOpts.User, "user", "", "Admin username (defaults to the vault secret)")
	cmd.Flags().StringVar(&deployOpts.SSHKeyPath, "ssh-key", "", "Path to an SSH public key for the admin account")
	cmd.Flags().StringVar(&deployOpts.DNSLabel, "dns-label", "", "DNS label for the public IP (defaults to NAME)")
	cmd.Flags().BoolVar(&deployOpts.Spot, "spot", false, "Request a spot instance")
	cmd.Flags().Float64Var(&deployOpts.MaxPrice, "max-price", 0, "Spot price ceiling in USD/hour (0 = on-demand ceiling)")
	cmd.Flags().StringVar(&deployOpts.FromIP, "from-ip", "", "Restrict NSG rules to this source address")
	cmd.Flags().BoolVar(&deployOpts.SkipProbe, "skip-probe", false, "Skip waiting for ping and SSH after deployment")

	return cmd
}

// Destroy returns the command that deletes a VM and its dedicated resources,
// or the whole resource group with --group.
func Destroy(opts *handlers.Options) *cobra.Command {
	var group bool

	cmd := &cobra.Command{
		Use:   "destroy [NAME]",
		Short: "Delete a VM, its NIC and its public IP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if group {
				return handlers.DestroyGroup(cmd.Context(), *opts)
			}
			if len(args) == 0 {
				return fmt.Errorf("a VM name or --group is required")
			}
			return handlers.Destroy(cmd.Context(), *opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "Delete the configured resource group and everything in it")
	return cmd
}

// SSHConfig returns the command that refreshes the local SSH host entry for
// a deployed VM.
func SSHConfig(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ssh-config NAME",
		Short: "Write the local SSH config entry for a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.SSHConfig(cmd.Context(), *opts, args[0])
		},
	}
}

// Start returns the command that starts a stopped or deallocated VM.
func Start(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "start NAME",
		Short: "Start a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Power(cmd.Context(), *opts, args[0], handlers.PowerStart)
		},
	}
}

// Stop returns the command that powers a VM off without releasing compute.
func Stop(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop NAME",
		Short: "Power a VM off (still billed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Power(cmd.Context(), *opts, args[0], handlers.PowerStop)
		},
	}
}

// Restart returns the command that restarts a running VM.
func Restart(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "restart NAME",
		Short: "Restart a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Power(cmd.Context(), *opts, args[0], handlers.PowerRestart)
		},
	}
}

// Deallocate returns the command that stops a VM and its billing.
func Deallocate(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "deallocate NAME",
		Short: "Deallocate a VM (stops billing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Power(cmd.Context(), *opts, args[0], handlers.PowerDeallocate)
		},
	}
}

// List returns the command that lists the resource group's VMs.
func List(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List VMs in the resource group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.List(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}
}

// Run returns the command that executes a script on a VM.
func Run(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME -- COMMAND",
		Short: "Run a shell command on a VM as the admin user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Run(cmd.Context(), *opts, args[0], args[1:], cmd.OutOrStdout())
		},
	}
}
