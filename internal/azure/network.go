package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
)

// DevelopmentPorts are the inbound TCP ports opened by AllowDevelopmentPorts:
// SSH on both the standard and the remapped port, TensorBoard, Jupyter and
// plain HTTP.
var DevelopmentPorts = []string{"22", "20022", "6006", "6666", "8888", "8889", "6007", "80", "8080"}

// DefaultServiceEndpoints are the service endpoints enabled on subnets that
// back storage, database or vault access.
var DefaultServiceEndpoints = []string{"Microsoft.Storage", "Microsoft.Sql", "Microsoft.KeyVault"}

// SubnetOptions is the desired state for a subnet.
type SubnetOptions struct {
	AddressPrefix    string
	SecurityGroupID  string
	ServiceEndpoints []string
}

// InterfaceOptions is the desired state for a network interface.
type InterfaceOptions struct {
	SubnetID   string
	PublicIPID string
}

// EnsureSecurityGroup creates an empty network security group if absent.
func (c *Client) EnsureSecurityGroup(ctx context.Context, name string) (*armnetwork.SecurityGroup, error) {
	client, err := c.securityGroupsClient()
	if err != nil {
		return nil, err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armnetwork.SecurityGroup, armnetwork.SecurityGroup]{
		Name:         name,
		ResourceType: "network security group",
		Get: func(ctx context.Context) (*armnetwork.SecurityGroup, error) {
			resp, err := client.Get(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.SecurityGroup, nil
		},
		BuildOpts: func() (armnetwork.SecurityGroup, error) {
			return armnetwork.SecurityGroup{Location: to.Ptr(location)}, nil
		},
		Create: func(ctx context.Context, opts armnetwork.SecurityGroup) (Operation[*armnetwork.SecurityGroup], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, name, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.SecurityGroupsClientCreateOrUpdateResponse) *armnetwork.SecurityGroup {
				return &r.SecurityGroup
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()
	return op.Execute(waitCtx, c.wait(false))
}

// AllowDevelopmentPorts adds an inbound TCP rule for DevelopmentPorts to the
// security group, restricted to fromIP when given. The rule is upserted, so
// repeated calls converge.
func (c *Client) AllowDevelopmentPorts(ctx context.Context, nsgName, fromIP string) error {
	ports := make([]*string, 0, len(DevelopmentPorts))
	for _, p := range DevelopmentPorts {
		ports = append(ports, to.Ptr(p))
	}

	return c.ensureSecurityRule(ctx, nsgName, "dev-ports", &armnetwork.SecurityRulePropertiesFormat{
		Protocol:                 to.Ptr(armnetwork.SecurityRuleProtocolTCP),
		Access:                   to.Ptr(armnetwork.SecurityRuleAccessAllow),
		Direction:                to.Ptr(armnetwork.SecurityRuleDirectionInbound),
		Priority:                 to.Ptr[int32](200),
		SourceAddressPrefix:      to.Ptr(sourcePrefix(fromIP)),
		SourcePortRange:          to.Ptr("*"),
		DestinationAddressPrefix: to.Ptr("*"),
		DestinationPortRanges:    ports,
	})
}

// AllowPing adds an inbound ICMP rule to the security group.
func (c *Client) AllowPing(ctx context.Context, nsgName, fromIP string) error {
	return c.ensureSecurityRule(ctx, nsgName, "ping", &armnetwork.SecurityRulePropertiesFormat{
		Protocol:                 to.Ptr(armnetwork.SecurityRuleProtocolIcmp),
		Access:                   to.Ptr(armnetwork.SecurityRuleAccessAllow),
		Direction:                to.Ptr(armnetwork.SecurityRuleDirectionInbound),
		Priority:                 to.Ptr[int32](100),
		SourceAddressPrefix:      to.Ptr(sourcePrefix(fromIP)),
		SourcePortRange:          to.Ptr("*"),
		DestinationAddressPrefix: to.Ptr("*"),
		DestinationPortRange:     to.Ptr("*"),
	})
}

func sourcePrefix(fromIP string) string {
	if fromIP == "" {
		return "*"
	}
	return fromIP
}

func (c *Client) ensureSecurityRule(ctx context.Context, nsgName, ruleName string, props *armnetwork.SecurityRulePropertiesFormat) error {
	client, err := c.securityRulesClient()
	if err != nil {
		return err
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	poller, err := client.BeginCreateOrUpdate(waitCtx, c.resourceGroup, nsgName, ruleName, armnetwork.SecurityRule{
		Properties: props,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create security rule %q on %q: %w", ruleName, nsgName, err)
	}

	if !c.wait(false) {
		return nil
	}
	op := newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.SecurityRulesClientCreateOrUpdateResponse) *armnetwork.SecurityRule {
		return &r.SecurityRule
	})
	if _, err := op.Wait(waitCtx); err != nil {
		return fmt.Errorf("failed waiting for security rule %q on %q: %w", ruleName, nsgName, err)
	}
	c.log.Debug().Str("nsg", nsgName).Str("rule", ruleName).Msg("security rule in place")
	return nil
}

// EnsureVirtualNetwork creates a virtual network with the given address space
// if absent.
func (c *Client) EnsureVirtualNetwork(ctx context.Context, name string, addressPrefixes []string) (*armnetwork.VirtualNetwork, error) {
	client, err := c.vnetsClient()
	if err != nil {
		return nil, err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armnetwork.VirtualNetwork, armnetwork.VirtualNetwork]{
		Name:         name,
		ResourceType: "virtual network",
		Get: func(ctx context.Context) (*armnetwork.VirtualNetwork, error) {
			resp, err := client.Get(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.VirtualNetwork, nil
		},
		BuildOpts: func() (armnetwork.VirtualNetwork, error) {
			if len(addressPrefixes) == 0 {
				return armnetwork.VirtualNetwork{}, &MissingFieldError{ResourceType: "virtual network", Field: "addressPrefixes"}
			}
			prefixes := make([]*string, 0, len(addressPrefixes))
			for _, p := range addressPrefixes {
				prefixes = append(prefixes, to.Ptr(p))
			}
			return armnetwork.VirtualNetwork{
				Location: to.Ptr(location),
				Properties: &armnetwork.VirtualNetworkPropertiesFormat{
					AddressSpace: &armnetwork.AddressSpace{AddressPrefixes: prefixes},
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armnetwork.VirtualNetwork) (Operation[*armnetwork.VirtualNetwork], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, name, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.VirtualNetworksClientCreateOrUpdateResponse) *armnetwork.VirtualNetwork {
				return &r.VirtualNetwork
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()
	return op.Execute(waitCtx, c.wait(false))
}

// EnsureSubnet creates a subnet inside vnetName if absent, optionally
// attaching a security group and enabling service endpoints.
func (c *Client) EnsureSubnet(ctx context.Context, name string, vnetName string, opts SubnetOptions) (*armnetwork.Subnet, error) {
	client, err := c.subnetsClient()
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armnetwork.Subnet, armnetwork.Subnet]{
		Name:         name,
		ResourceType: "subnet",
		Get: func(ctx context.Context) (*armnetwork.Subnet, error) {
			resp, err := client.Get(ctx, c.resourceGroup, vnetName, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Subnet, nil
		},
		BuildOpts: func() (armnetwork.Subnet, error) {
			if opts.AddressPrefix == "" {
				return armnetwork.Subnet{}, &MissingFieldError{ResourceType: "subnet", Field: "addressPrefix"}
			}
			props := &armnetwork.SubnetPropertiesFormat{
				AddressPrefix:    to.Ptr(opts.AddressPrefix),
				ServiceEndpoints: serviceEndpoints(opts.ServiceEndpoints),
			}
			if opts.SecurityGroupID != "" {
				props.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: to.Ptr(opts.SecurityGroupID)}
			}
			return armnetwork.Subnet{Properties: props}, nil
		},
		Create: func(ctx context.Context, subnet armnetwork.Subnet) (Operation[*armnetwork.Subnet], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, vnetName, name, subnet, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.SubnetsClientCreateOrUpdateResponse) *armnetwork.Subnet {
				return &r.Subnet
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()
	return op.Execute(waitCtx, c.wait(false))
}

// EnableServiceEndpoints updates an existing subnet in-place with the default
// service endpoints, optionally disabling private endpoint network policies
// so private endpoints can land in the subnet.
func (c *Client) EnableServiceEndpoints(ctx context.Context, resourceGroup, vnetName, subnetName string, disablePrivateEndpointPolicies bool) error {
	client, err := c.subnetsClient()
	if err != nil {
		return err
	}

	resp, err := client.Get(ctx, resourceGroup, vnetName, subnetName, nil)
	if err != nil {
		return fmt.Errorf("failed to get subnet %s/%s: %w", vnetName, subnetName, err)
	}

	subnet := resp.Subnet
	if subnet.Properties == nil {
		subnet.Properties = &armnetwork.SubnetPropertiesFormat{}
	}
	subnet.Properties.ServiceEndpoints = serviceEndpoints(DefaultServiceEndpoints)
	if disablePrivateEndpointPolicies {
		subnet.Properties.PrivateEndpointNetworkPolicies = to.Ptr(armnetwork.VirtualNetworkPrivateEndpointNetworkPoliciesDisabled)
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	poller, err := client.BeginCreateOrUpdate(waitCtx, resourceGroup, vnetName, subnetName, subnet, nil)
	if err != nil {
		return fmt.Errorf("failed to update subnet %s/%s: %w", vnetName, subnetName, err)
	}
	op := newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.SubnetsClientCreateOrUpdateResponse) *armnetwork.Subnet {
		return &r.Subnet
	})
	if _, err := op.Wait(waitCtx); err != nil {
		return fmt.Errorf("failed waiting for subnet %s/%s update: %w", vnetName, subnetName, err)
	}
	c.log.Info().Str("vnet", vnetName).Str("subnet", subnetName).Msg("service endpoints enabled")
	return nil
}

func serviceEndpoints(services []string) []*armnetwork.ServiceEndpointPropertiesFormat {
	if len(services) == 0 {
		return nil
	}
	endpoints := make([]*armnetwork.ServiceEndpointPropertiesFormat, 0, len(services))
	for _, s := range services {
		endpoints = append(endpoints, &armnetwork.ServiceEndpointPropertiesFormat{Service: to.Ptr(s)})
	}
	return endpoints
}

// EnsurePublicIP creates a static standard-SKU public IP with a DNS label if
// absent. The resulting FQDN is <dnsLabel>.<location>.cloudapp.azure.com.
func (c *Client) EnsurePublicIP(ctx context.Context, name, dnsLabel string) (*armnetwork.PublicIPAddress, error) {
	client, err := c.publicIPsClient()
	if err != nil {
		return nil, err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armnetwork.PublicIPAddress, armnetwork.PublicIPAddress]{
		Name:         name,
		ResourceType: "public IP",
		Get: func(ctx context.Context) (*armnetwork.PublicIPAddress, error) {
			resp, err := client.Get(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.PublicIPAddress, nil
		},
		BuildOpts: func() (armnetwork.PublicIPAddress, error) {
			if dnsLabel == "" {
				return armnetwork.PublicIPAddress{}, &MissingFieldError{ResourceType: "public IP", Field: "dnsLabel"}
			}
			return armnetwork.PublicIPAddress{
				Location: to.Ptr(location),
				SKU: &armnetwork.PublicIPAddressSKU{
					Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard),
				},
				Properties: &armnetwork.PublicIPAddressPropertiesFormat{
					PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
					DNSSettings: &armnetwork.PublicIPAddressDNSSettings{
						DomainNameLabel: to.Ptr(dnsLabel),
					},
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armnetwork.PublicIPAddress) (Operation[*armnetwork.PublicIPAddress], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, name, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.PublicIPAddressesClientCreateOrUpdateResponse) *armnetwork.PublicIPAddress {
				return &r.PublicIPAddress
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()
	// The IP address and FQDN must be known before the NIC and DNS records
	// are built, so this always waits.
	return op.Execute(waitCtx, true)
}

// EnsureInterface creates a network interface wired to a subnet and public IP
// if absent.
func (c *Client) EnsureInterface(ctx context.Context, name string, opts InterfaceOptions) (*armnetwork.Interface, error) {
	client, err := c.interfacesClient()
	if err != nil {
		return nil, err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armnetwork.Interface, armnetwork.Interface]{
		Name:         name,
		ResourceType: "network interface",
		Get: func(ctx context.Context) (*armnetwork.Interface, error) {
			resp, err := client.Get(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Interface, nil
		},
		BuildOpts: func() (armnetwork.Interface, error) {
			if opts.SubnetID == "" {
				return armnetwork.Interface{}, &MissingFieldError{ResourceType: "network interface", Field: "subnetID"}
			}
			ipConfig := &armnetwork.InterfaceIPConfigurationPropertiesFormat{
				Subnet:                    &armnetwork.Subnet{ID: to.Ptr(opts.SubnetID)},
				PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
			}
			if opts.PublicIPID != "" {
				ipConfig.PublicIPAddress = &armnetwork.PublicIPAddress{ID: to.Ptr(opts.PublicIPID)}
			}
			return armnetwork.Interface{
				Location: to.Ptr(location),
				Properties: &armnetwork.InterfacePropertiesFormat{
					IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{
						Name:       to.Ptr("primary"),
						Properties: ipConfig,
					}},
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armnetwork.Interface) (Operation[*armnetwork.Interface], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, c.resourceGroup, name, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armnetwork.InterfacesClientCreateOrUpdateResponse) *armnetwork.Interface {
				return &r.Interface
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()
	return op.Execute(waitCtx, true)
}
