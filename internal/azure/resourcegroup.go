package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/nnstorm/azup/internal/util/wait"
)

const provisioningSucceeded = "Succeeded"

// EnsureResourceGroup creates the client's resource group in the configured
// location if it does not exist and waits until its provisioning state is
// Succeeded. An existing group is returned unchanged regardless of location.
func (c *Client) EnsureResourceGroup(ctx context.Context) (*armresources.ResourceGroup, error) {
	client, err := c.groupsClient()
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armresources.ResourceGroup, armresources.ResourceGroup]{
		Name:         c.resourceGroup,
		ResourceType: "resource group",
		Get: func(ctx context.Context) (*armresources.ResourceGroup, error) {
			resp, err := client.Get(ctx, c.resourceGroup, nil)
			if err != nil {
				return nil, err
			}
			return &resp.ResourceGroup, nil
		},
		BuildOpts: func() (armresources.ResourceGroup, error) {
			if c.location == "" {
				return armresources.ResourceGroup{}, &MissingFieldError{ResourceType: "resource group", Field: "location"}
			}
			return armresources.ResourceGroup{Location: to.Ptr(c.location)}, nil
		},
		Create: func(ctx context.Context, opts armresources.ResourceGroup) (Operation[*armresources.ResourceGroup], error) {
			resp, err := client.CreateOrUpdate(ctx, c.resourceGroup, opts, nil)
			if err != nil {
				return nil, err
			}
			return &completedOperation[*armresources.ResourceGroup]{resource: &resp.ResourceGroup}, nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	group, err := op.Execute(waitCtx, true)
	if err != nil {
		return nil, err
	}

	// CreateOrUpdate returns before provisioning settles; poll the state
	// explicitly so dependent resources never race an unfinished group.
	err = wait.Until(ctx, c.timeouts.PollInterval, c.timeouts.Provision, func(ctx context.Context) (bool, error) {
		resp, err := client.Get(ctx, c.resourceGroup, nil)
		if err != nil {
			return false, err
		}
		group = &resp.ResourceGroup
		return group.Properties != nil &&
			group.Properties.ProvisioningState != nil &&
			*group.Properties.ProvisioningState == provisioningSucceeded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resource group %q did not reach Succeeded: %w", c.resourceGroup, err)
	}

	c.log.Info().Str("resource_group", c.resourceGroup).Msg("resource group ready")
	return group, nil
}

// DeleteResourceGroup deletes a resource group and everything in it, waiting
// for completion. A missing group is not an error.
func (c *Client) DeleteResourceGroup(ctx context.Context, name string) error {
	client, err := c.groupsClient()
	if err != nil {
		return err
	}

	op := &DeleteOperation{
		Name:            name,
		ResourceType:    "resource group",
		TolerateMissing: true,
		Delete: func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(armresources.ResourceGroupsClientDeleteResponse) struct{} {
				return struct{}{}
			}), nil
		},
	}

	waitCtx, cancel := c.deleteCtx(ctx)
	defer cancel()

	if err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	c.log.Info().Str("resource_group", name).Msg("resource group deleted")
	return nil
}

// Location resolves the client's effective region: the configured location,
// or the resource group's own when none was configured.
func (c *Client) Location(ctx context.Context) (string, error) {
	if c.location != "" {
		return c.location, nil
	}

	client, err := c.groupsClient()
	if err != nil {
		return "", err
	}
	resp, err := client.Get(ctx, c.resourceGroup, nil)
	if err != nil {
		return "", fmt.Errorf("failed to resolve location from resource group %q: %w", c.resourceGroup, err)
	}
	if resp.Location == nil {
		return "", fmt.Errorf("resource group %q has no location", c.resourceGroup)
	}
	c.location = *resp.Location
	return c.location, nil
}
