// Package azure wraps the Azure management SDK with get-or-create
// reconciliation for the resources a VM deployment needs: resource groups,
// networking, virtual machines, DNS zones, storage accounts and key vaults.
//
// Every lookup goes to the provider; no local existence cache is kept. Ensure
// methods return existing resources unchanged and only create what is absent.
package azure

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/privatedns/armprivatedns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/config"
	"github.com/nnstorm/azup/internal/logging"
)

// GroupManager manages resource groups.
type GroupManager interface {
	EnsureResourceGroup(ctx context.Context) (*armresources.ResourceGroup, error)
	DeleteResourceGroup(ctx context.Context, name string) error
	Location(ctx context.Context) (string, error)
}

// NetworkManager manages virtual networks, subnets, security groups, public
// IPs and network interfaces.
type NetworkManager interface {
	EnsureSecurityGroup(ctx context.Context, name string) (*armnetwork.SecurityGroup, error)
	AllowDevelopmentPorts(ctx context.Context, nsgName, fromIP string) error
	AllowPing(ctx context.Context, nsgName, fromIP string) error
	EnsureVirtualNetwork(ctx context.Context, name string, addressPrefixes []string) (*armnetwork.VirtualNetwork, error)
	EnsureSubnet(ctx context.Context, name string, vnetName string, opts SubnetOptions) (*armnetwork.Subnet, error)
	EnsurePublicIP(ctx context.Context, name, dnsLabel string) (*armnetwork.PublicIPAddress, error)
	EnsureInterface(ctx context.Context, name string, opts InterfaceOptions) (*armnetwork.Interface, error)
	EnableServiceEndpoints(ctx context.Context, resourceGroup, vnetName, subnetName string, disablePrivateEndpointPolicies bool) error
}

// ComputeManager manages virtual machines.
type ComputeManager interface {
	GetVirtualMachine(ctx context.Context, name string) (*armcompute.VirtualMachine, error)
	EnsureVirtualMachine(ctx context.Context, name string, spec VMSpec) (*armcompute.VirtualMachine, error)
	ListVirtualMachines(ctx context.Context) ([]*armcompute.VirtualMachine, error)
	DeleteVirtualMachine(ctx context.Context, name string, tolerateMissing bool) error
	StartVirtualMachine(ctx context.Context, name string) error
	PowerOffVirtualMachine(ctx context.Context, name string) error
	RestartVirtualMachine(ctx context.Context, name string) error
	DeallocateVirtualMachine(ctx context.Context, name string) error
	RunCommand(ctx context.Context, vmName, script, user string) (string, error)
}

// DNSManager manages public and private DNS zones and their records.
type DNSManager interface {
	EnsureDNSZone(ctx context.Context, zone string) ([]string, error)
	CreateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error
	DeleteARecord(ctx context.Context, zone, name, resourceGroup string) error
	EnsurePrivateZone(ctx context.Context, zone, resourceGroup string) error
	LinkPrivateZoneToVNet(ctx context.Context, dnsResourceGroup, zone, vnetResourceGroup, vnetName string) error
	CreatePrivateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error
	DeletePrivateARecord(ctx context.Context, zone, name, resourceGroup string) error
}

// StorageManager manages storage accounts and file shares.
type StorageManager interface {
	StorageNameAvailable(ctx context.Context, name string) (bool, error)
	EnsureStorageAccount(ctx context.Context, name string, spec StorageSpec) (string, error)
	EnsureFileShare(ctx context.Context, accountName, shareName string, quotaGB int32) error
}

// Manager combines all management-plane surfaces backed by one credential.
type Manager interface {
	GroupManager
	NetworkManager
	ComputeManager
	DNSManager
	StorageManager
	DeleteResource(ctx context.Context, kind ResourceKind, name string, tolerateMissing bool) error
	SubnetID(resourceGroup, vnetName, subnetName string) string
	VNetID(resourceGroup, vnetName string) string
}

var _ Manager = (*Client)(nil)

// lazyClient memoizes one SDK client behind an initialization guard.
type lazyClient[T any] struct {
	once   sync.Once
	client T
	err    error
}

func (l *lazyClient[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.client, l.err = build()
	})
	return l.client, l.err
}

// Client implements Manager on top of the ARM SDK clients. SDK clients are
// constructed lazily, once per family, and reused for the lifetime of the
// Client.
type Client struct {
	creds         *Credentials
	cred          azcore.TokenCredential
	resourceGroup string
	location      string
	async         bool
	timeouts      *config.Timeouts
	log           zerolog.Logger

	groups         lazyClient[*armresources.ResourceGroupsClient]
	vnets          lazyClient[*armnetwork.VirtualNetworksClient]
	subnets        lazyClient[*armnetwork.SubnetsClient]
	securityGroups lazyClient[*armnetwork.SecurityGroupsClient]
	securityRules  lazyClient[*armnetwork.SecurityRulesClient]
	publicIPs      lazyClient[*armnetwork.PublicIPAddressesClient]
	interfaces     lazyClient[*armnetwork.InterfacesClient]
	vms            lazyClient[*armcompute.VirtualMachinesClient]
	zones          lazyClient[*armdns.ZonesClient]
	recordSets     lazyClient[*armdns.RecordSetsClient]
	privateZones   lazyClient[*armprivatedns.PrivateZonesClient]
	privateRecords lazyClient[*armprivatedns.RecordSetsClient]
	vnetLinks      lazyClient[*armprivatedns.VirtualNetworkLinksClient]
	accounts       lazyClient[*armstorage.AccountsClient]
	fileShares     lazyClient[*armstorage.FileSharesClient]
	vaults         lazyClient[*armkeyvault.VaultsClient]
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// ResourceGroup is the default resource group for all operations.
	ResourceGroup string

	// Location is the region used when the resource group must be created.
	Location string

	// Async makes create/update calls return without awaiting the terminal
	// provisioning state. Deletion of the resource group always waits.
	Async bool

	// Timeouts bounds all blocking waits. Defaults to config.LoadTimeouts().
	Timeouts *config.Timeouts
}

// NewClient builds a Manager from a credential file's contents.
func NewClient(creds *Credentials, opts ClientOptions) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if opts.ResourceGroup == "" {
		return nil, fmt.Errorf("resource group is required")
	}

	cred, err := creds.TokenCredential()
	if err != nil {
		return nil, err
	}

	timeouts := opts.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}

	return &Client{
		creds:         creds,
		cred:          cred,
		resourceGroup: opts.ResourceGroup,
		location:      opts.Location,
		async:         opts.Async,
		timeouts:      timeouts,
		log:           logging.Component("azure"),
	}, nil
}

// SetAsync toggles asynchronous mode: when enabled, ensure calls submit the
// create request and return without waiting for the terminal state.
func (c *Client) SetAsync(async bool) {
	c.async = async
}

// ResourceGroup returns the client's default resource group name.
func (c *Client) ResourceGroup() string {
	return c.resourceGroup
}

// SubscriptionID returns the subscription all operations run against.
func (c *Client) SubscriptionID() string {
	return c.creds.SubscriptionID
}

// wait reports whether an ensure call should block for the terminal state.
// forceWait overrides async mode, e.g. when a dependent resource is created
// immediately after.
func (c *Client) wait(forceWait bool) bool {
	return !c.async || forceWait
}

// provisionCtx bounds a provisioning wait.
func (c *Client) provisionCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeouts.Provision)
}

// deleteCtx bounds a deletion wait.
func (c *Client) deleteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeouts.Delete)
}

func (c *Client) groupsClient() (*armresources.ResourceGroupsClient, error) {
	return c.groups.get(func() (*armresources.ResourceGroupsClient, error) {
		return armresources.NewResourceGroupsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) vnetsClient() (*armnetwork.VirtualNetworksClient, error) {
	return c.vnets.get(func() (*armnetwork.VirtualNetworksClient, error) {
		return armnetwork.NewVirtualNetworksClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) subnetsClient() (*armnetwork.SubnetsClient, error) {
	return c.subnets.get(func() (*armnetwork.SubnetsClient, error) {
		return armnetwork.NewSubnetsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) securityGroupsClient() (*armnetwork.SecurityGroupsClient, error) {
	return c.securityGroups.get(func() (*armnetwork.SecurityGroupsClient, error) {
		return armnetwork.NewSecurityGroupsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) securityRulesClient() (*armnetwork.SecurityRulesClient, error) {
	return c.securityRules.get(func() (*armnetwork.SecurityRulesClient, error) {
		return armnetwork.NewSecurityRulesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) publicIPsClient() (*armnetwork.PublicIPAddressesClient, error) {
	return c.publicIPs.get(func() (*armnetwork.PublicIPAddressesClient, error) {
		return armnetwork.NewPublicIPAddressesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) interfacesClient() (*armnetwork.InterfacesClient, error) {
	return c.interfaces.get(func() (*armnetwork.InterfacesClient, error) {
		return armnetwork.NewInterfacesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) vmsClient() (*armcompute.VirtualMachinesClient, error) {
	return c.vms.get(func() (*armcompute.VirtualMachinesClient, error) {
		return armcompute.NewVirtualMachinesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) zonesClient() (*armdns.ZonesClient, error) {
	return c.zones.get(func() (*armdns.ZonesClient, error) {
		return armdns.NewZonesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) recordSetsClient() (*armdns.RecordSetsClient, error) {
	return c.recordSets.get(func() (*armdns.RecordSetsClient, error) {
		return armdns.NewRecordSetsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) privateZonesClient() (*armprivatedns.PrivateZonesClient, error) {
	return c.privateZones.get(func() (*armprivatedns.PrivateZonesClient, error) {
		return armprivatedns.NewPrivateZonesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) privateRecordsClient() (*armprivatedns.RecordSetsClient, error) {
	return c.privateRecords.get(func() (*armprivatedns.RecordSetsClient, error) {
		return armprivatedns.NewRecordSetsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) vnetLinksClient() (*armprivatedns.VirtualNetworkLinksClient, error) {
	return c.vnetLinks.get(func() (*armprivatedns.VirtualNetworkLinksClient, error) {
		return armprivatedns.NewVirtualNetworkLinksClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) accountsClient() (*armstorage.AccountsClient, error) {
	return c.accounts.get(func() (*armstorage.AccountsClient, error) {
		return armstorage.NewAccountsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) fileSharesClient() (*armstorage.FileSharesClient, error) {
	return c.fileShares.get(func() (*armstorage.FileSharesClient, error) {
		return armstorage.NewFileSharesClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

func (c *Client) vaultsClient() (*armkeyvault.VaultsClient, error) {
	return c.vaults.get(func() (*armkeyvault.VaultsClient, error) {
		return armkeyvault.NewVaultsClient(c.creds.SubscriptionID, c.cred, nil)
	})
}

// VNetID builds the fully qualified virtual network resource ID.
func (c *Client) VNetID(resourceGroup, vnetName string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Network/virtualNetworks/%s",
		c.creds.SubscriptionID, resourceGroup, vnetName)
}

// SubnetID builds the fully qualified subnet resource ID.
func (c *Client) SubnetID(resourceGroup, vnetName, subnetName string) string {
	return fmt.Sprintf("%s/subnets/%s", c.VNetID(resourceGroup, vnetName), subnetName)
}
