package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"

	"github.com/nnstorm/azup/internal/config"
)

// VMSpec is the desired state for a virtual machine. Size, InterfaceID,
// AdminUsername and the image are required; everything else has a sensible
// default.
type VMSpec struct {
	Size          string
	InterfaceID   string
	AdminUsername string
	AdminPassword string
	SSHPublicKey  string
	Image         config.ImageReference
	Plan          *config.PurchasePlan

	// Spot requests a spot instance with a Deallocate eviction policy.
	Spot bool

	// MaxPrice caps the spot price in USD/hour. -1 means pay up to the
	// on-demand price. Ignored unless Spot is set.
	MaxPrice float64

	OSDiskSizeGB int32
	CustomData   string
	Tags         map[string]string
}

func (s *VMSpec) validate() error {
	switch {
	case s.Size == "":
		return &MissingFieldError{ResourceType: "virtual machine", Field: "size"}
	case s.InterfaceID == "":
		return &MissingFieldError{ResourceType: "virtual machine", Field: "interfaceID"}
	case s.AdminUsername == "":
		return &MissingFieldError{ResourceType: "virtual machine", Field: "adminUsername"}
	case s.Image.Publisher == "" || s.Image.Offer == "" || s.Image.SKU == "" || s.Image.Version == "":
		return &MissingFieldError{ResourceType: "virtual machine", Field: "image"}
	case s.AdminPassword == "" && s.SSHPublicKey == "":
		return &MissingFieldError{ResourceType: "virtual machine", Field: "adminPassword or sshPublicKey"}
	}
	return nil
}

// GetVirtualMachine fetches a VM by name. A miss returns an error for which
// IsNotFound is true.
func (c *Client) GetVirtualMachine(ctx context.Context, name string) (*armcompute.VirtualMachine, error) {
	client, err := c.vmsClient()
	if err != nil {
		return nil, err
	}
	resp, err := client.Get(ctx, c.resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachine, nil
}

// EnsureVirtualMachine creates a VM from spec if absent. An existing VM is
// returned unchanged, even if its shape differs from spec.
func (c *Client) EnsureVirtualMachine(ctx context.Context, name string, spec VMSpec) (*armcompute.VirtualMachine, error) {
	client, err := c.vmsClient()
	if err != nil {
		return nil, err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armcompute.VirtualMachine, armcompute.VirtualMachine]{
		Name:         name,
		ResourceType: "virtual machine",
		Get: func(ctx context.Context) (*armcompute.VirtualMachine, error) {
			return c.GetVirtualMachine(ctx, name)
		},
		BuildOpts: func() (armcompute.VirtualMachine, error) {
			if err := spec.validate(); err != nil {
				return armcompute.VirtualMachine{}, err
			}
			return buildVirtualMachine(name, location, spec), nil
		},
		Create: func(ctx context.Context, vm armcompute.VirtualMachine) (Operation[*armcompute.VirtualMachine], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, name, vm, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armcompute.VirtualMachinesClientCreateOrUpdateResponse) *armcompute.VirtualMachine {
				return &r.VirtualMachine
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	vm, err := op.Execute(waitCtx, c.wait(false))
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("vm", name).Str("size", spec.Size).Msg("virtual machine ready")
	return vm, nil
}

func buildVirtualMachine(name, location string, spec VMSpec) armcompute.VirtualMachine {
	osProfile := &armcompute.OSProfile{
		ComputerName:  to.Ptr(name),
		AdminUsername: to.Ptr(spec.AdminUsername),
	}
	if spec.AdminPassword != "" {
		osProfile.AdminPassword = to.Ptr(spec.AdminPassword)
	}
	if spec.SSHPublicKey != "" {
		osProfile.LinuxConfiguration = &armcompute.LinuxConfiguration{
			SSH: &armcompute.SSHConfiguration{
				PublicKeys: []*armcompute.SSHPublicKey{{
					Path:    to.Ptr(fmt.Sprintf("/home/%s/.ssh/authorized_keys", spec.AdminUsername)),
					KeyData: to.Ptr(spec.SSHPublicKey),
				}},
			},
		}
		if spec.AdminPassword == "" {
			osProfile.LinuxConfiguration.DisablePasswordAuthentication = to.Ptr(true)
		}
	}
	if spec.CustomData != "" {
		osProfile.CustomData = to.Ptr(spec.CustomData)
	}

	osDisk := &armcompute.OSDisk{
		Name:         to.Ptr(name + "-os"),
		CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
	}
	if spec.OSDiskSizeGB > 0 {
		osDisk.DiskSizeGB = to.Ptr(spec.OSDiskSizeGB)
	}

	tags := map[string]*string{
		"persistent":  to.Ptr("0"),
		"development": to.Ptr("1"),
	}
	for k, v := range spec.Tags {
		tags[k] = to.Ptr(v)
	}

	vm := armcompute.VirtualMachine{
		Location: to.Ptr(location),
		Tags:     tags,
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(spec.Size)),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{
					Publisher: to.Ptr(spec.Image.Publisher),
					Offer:     to.Ptr(spec.Image.Offer),
					SKU:       to.Ptr(spec.Image.SKU),
					Version:   to.Ptr(spec.Image.Version),
				},
				OSDisk: osDisk,
			},
			OSProfile: osProfile,
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{
					ID: to.Ptr(spec.InterfaceID),
				}},
			},
		},
	}

	if spec.Plan != nil {
		vm.Plan = &armcompute.Plan{
			Name:      to.Ptr(spec.Plan.Name),
			Product:   to.Ptr(spec.Plan.Product),
			Publisher: to.Ptr(spec.Plan.Publisher),
		}
	}

	if spec.Spot {
		maxPrice := spec.MaxPrice
		if maxPrice == 0 {
			maxPrice = -1
		}
		vm.Properties.Priority = to.Ptr(armcompute.VirtualMachinePriorityTypesSpot)
		vm.Properties.EvictionPolicy = to.Ptr(armcompute.VirtualMachineEvictionPolicyTypesDeallocate)
		vm.Properties.BillingProfile = &armcompute.BillingProfile{MaxPrice: to.Ptr(maxPrice)}
	}

	return vm
}

// ListVirtualMachines lists all VMs in the resource group.
func (c *Client) ListVirtualMachines(ctx context.Context) ([]*armcompute.VirtualMachine, error) {
	client, err := c.vmsClient()
	if err != nil {
		return nil, err
	}

	var vms []*armcompute.VirtualMachine
	pager := client.NewListPager(c.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list virtual machines: %w", err)
		}
		vms = append(vms, page.Value...)
	}
	return vms, nil
}

// DeleteVirtualMachine deletes a VM and waits for completion. With
// tolerateMissing a VM that does not exist counts as deleted.
func (c *Client) DeleteVirtualMachine(ctx context.Context, name string, tolerateMissing bool) error {
	return c.DeleteResource(ctx, KindVirtualMachine, name, tolerateMissing)
}

// StartVirtualMachine starts a stopped or deallocated VM.
func (c *Client) StartVirtualMachine(ctx context.Context, name string) error {
	client, err := c.vmsClient()
	if err != nil {
		return err
	}
	return c.awaitPower(ctx, name, "start", func(ctx context.Context) (Operation[struct{}], error) {
		poller, err := client.BeginStart(ctx, c.resourceGroup, name, nil)
		if err != nil {
			return nil, err
		}
		return newPollerOperation(poller, c.timeouts.PollInterval, discard[armcompute.VirtualMachinesClientStartResponse]), nil
	})
}

// PowerOffVirtualMachine stops a VM without releasing its compute billing.
func (c *Client) PowerOffVirtualMachine(ctx context.Context, name string) error {
	client, err := c.vmsClient()
	if err != nil {
		return err
	}
	return c.awaitPower(ctx, name, "power off", func(ctx context.Context) (Operation[struct{}], error) {
		poller, err := client.BeginPowerOff(ctx, c.resourceGroup, name, nil)
		if err != nil {
			return nil, err
		}
		return newPollerOperation(poller, c.timeouts.PollInterval, discard[armcompute.VirtualMachinesClientPowerOffResponse]), nil
	})
}

// RestartVirtualMachine restarts a running VM.
func (c *Client) RestartVirtualMachine(ctx context.Context, name string) error {
	client, err := c.vmsClient()
	if err != nil {
		return err
	}
	return c.awaitPower(ctx, name, "restart", func(ctx context.Context) (Operation[struct{}], error) {
		poller, err := client.BeginRestart(ctx, c.resourceGroup, name, nil)
		if err != nil {
			return nil, err
		}
		return newPollerOperation(poller, c.timeouts.PollInterval, discard[armcompute.VirtualMachinesClientRestartResponse]), nil
	})
}

// DeallocateVirtualMachine stops a VM and releases its compute, stopping
// billing. Spot VMs evicted by the platform end up in this state too.
func (c *Client) DeallocateVirtualMachine(ctx context.Context, name string) error {
	client, err := c.vmsClient()
	if err != nil {
		return err
	}
	return c.awaitPower(ctx, name, "deallocate", func(ctx context.Context) (Operation[struct{}], error) {
		poller, err := client.BeginDeallocate(ctx, c.resourceGroup, name, nil)
		if err != nil {
			return nil, err
		}
		return newPollerOperation(poller, c.timeouts.PollInterval, discard[armcompute.VirtualMachinesClientDeallocateResponse]), nil
	})
}

func (c *Client) awaitPower(ctx context.Context, name, action string, begin func(ctx context.Context) (Operation[struct{}], error)) error {
	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	op, err := begin(waitCtx)
	if err != nil {
		return fmt.Errorf("failed to %s virtual machine %q: %w", action, name, err)
	}
	if !c.wait(false) {
		return nil
	}
	if _, err := op.Wait(waitCtx); err != nil {
		return fmt.Errorf("failed waiting to %s virtual machine %q: %w", action, name, err)
	}
	c.log.Info().Str("vm", name).Str("action", action).Msg("power state changed")
	return nil
}

func discard[R any](R) struct{} { return struct{}{} }

// RunCommand executes a shell script on the VM through the run-command
// extension and returns the combined instance view output. When user is a
// non-root account the script runs in that user's login environment.
func (c *Client) RunCommand(ctx context.Context, vmName, script, user string) (string, error) {
	client, err := c.vmsClient()
	if err != nil {
		return "", err
	}

	if user != "" && user != "root" {
		script = fmt.Sprintf("runuser -l %s -c %q", user, script)
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	poller, err := client.BeginRunCommand(waitCtx, c.resourceGroup, vmName, armcompute.RunCommandInput{
		CommandID: to.Ptr("RunShellScript"),
		Script:    []*string{to.Ptr(script)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to run command on %q: %w", vmName, err)
	}

	op := newPollerOperation(poller, c.timeouts.PollInterval, func(r armcompute.VirtualMachinesClientRunCommandResponse) armcompute.RunCommandResult {
		return r.RunCommandResult
	})
	result, err := op.Wait(waitCtx)
	if err != nil {
		return "", fmt.Errorf("failed waiting for command on %q: %w", vmName, err)
	}

	var out strings.Builder
	for _, status := range result.Value {
		if status.Message != nil {
			out.WriteString(*status.Message)
		}
	}
	return out.String(), nil
}
