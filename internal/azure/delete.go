package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
)

// ResourceKind enumerates the resource families DeleteResource can dispatch
// to.
type ResourceKind string

const (
	KindVirtualMachine ResourceKind = "virtual machine"
	KindInterface      ResourceKind = "network interface"
	KindPublicIP       ResourceKind = "public IP"
	KindSecurityGroup  ResourceKind = "network security group"
	KindVirtualNetwork ResourceKind = "virtual network"
	KindStorageAccount ResourceKind = "storage account"
)

// DeleteResource deletes a named resource of the given kind in the client's
// resource group and waits for completion. With tolerateMissing an absent
// resource counts as deleted.
func (c *Client) DeleteResource(ctx context.Context, kind ResourceKind, name string, tolerateMissing bool) error {
	del, err := c.deleteFunc(kind, name)
	if err != nil {
		return err
	}

	op := &DeleteOperation{
		Name:            name,
		ResourceType:    string(kind),
		TolerateMissing: tolerateMissing,
		Delete:          del,
	}

	waitCtx, cancel := c.deleteCtx(ctx)
	defer cancel()

	if err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	c.log.Info().Str("kind", string(kind)).Str("name", name).Msg("resource deleted")
	return nil
}

func (c *Client) deleteFunc(kind ResourceKind, name string) (func(ctx context.Context) (Operation[struct{}], error), error) {
	switch kind {
	case KindVirtualMachine:
		client, err := c.vmsClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, discard[armcompute.VirtualMachinesClientDeleteResponse]), nil
		}, nil

	case KindInterface:
		client, err := c.interfacesClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, discard[armnetwork.InterfacesClientDeleteResponse]), nil
		}, nil

	case KindPublicIP:
		client, err := c.publicIPsClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, discard[armnetwork.PublicIPAddressesClientDeleteResponse]), nil
		}, nil

	case KindSecurityGroup:
		client, err := c.securityGroupsClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, discard[armnetwork.SecurityGroupsClientDeleteResponse]), nil
		}, nil

	case KindVirtualNetwork:
		client, err := c.vnetsClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			poller, err := client.BeginDelete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, discard[armnetwork.VirtualNetworksClientDeleteResponse]), nil
		}, nil

	case KindStorageAccount:
		client, err := c.accountsClient()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Operation[struct{}], error) {
			_, err := client.Delete(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &completedOperation[struct{}]{}, nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported resource kind %q", kind)
	}
}
