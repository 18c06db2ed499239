package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
)

// List prints the resource group's VMs as a table.
func List(ctx context.Context, opts Options, out io.Writer) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}

	vms, err := env.client.ListVirtualMachines(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tPRIORITY\tSTATE")
	for _, machine := range vms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			strDeref(machine.Name),
			vmSize(machine),
			vmPriority(machine),
			vmState(machine),
		)
	}
	return w.Flush()
}

func vmSize(machine *armcompute.VirtualMachine) string {
	if machine.Properties == nil || machine.Properties.HardwareProfile == nil || machine.Properties.HardwareProfile.VMSize == nil {
		return "-"
	}
	return string(*machine.Properties.HardwareProfile.VMSize)
}

func vmPriority(machine *armcompute.VirtualMachine) string {
	if machine.Properties == nil || machine.Properties.Priority == nil {
		return "regular"
	}
	return strings.ToLower(string(*machine.Properties.Priority))
}

func vmState(machine *armcompute.VirtualMachine) string {
	if machine.Properties == nil || machine.Properties.ProvisioningState == nil {
		return "-"
	}
	return *machine.Properties.ProvisioningState
}

func strDeref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
