package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// MockManager implements Manager through overridable function fields. Nil
// fields answer with empty success values, so tests only wire what they
// assert on.
type MockManager struct {
	EnsureResourceGroupFunc      func(ctx context.Context) (*armresources.ResourceGroup, error)
	DeleteResourceGroupFunc      func(ctx context.Context, name string) error
	LocationFunc                 func(ctx context.Context) (string, error)
	EnsureSecurityGroupFunc      func(ctx context.Context, name string) (*armnetwork.SecurityGroup, error)
	AllowDevelopmentPortsFunc    func(ctx context.Context, nsgName, fromIP string) error
	AllowPingFunc                func(ctx context.Context, nsgName, fromIP string) error
	EnsureVirtualNetworkFunc     func(ctx context.Context, name string, addressPrefixes []string) (*armnetwork.VirtualNetwork, error)
	EnsureSubnetFunc             func(ctx context.Context, name, vnetName string, opts SubnetOptions) (*armnetwork.Subnet, error)
	EnsurePublicIPFunc           func(ctx context.Context, name, dnsLabel string) (*armnetwork.PublicIPAddress, error)
	EnsureInterfaceFunc          func(ctx context.Context, name string, opts InterfaceOptions) (*armnetwork.Interface, error)
	EnableServiceEndpointsFunc   func(ctx context.Context, resourceGroup, vnetName, subnetName string, disablePolicies bool) error
	GetVirtualMachineFunc        func(ctx context.Context, name string) (*armcompute.VirtualMachine, error)
	EnsureVirtualMachineFunc     func(ctx context.Context, name string, spec VMSpec) (*armcompute.VirtualMachine, error)
	ListVirtualMachinesFunc      func(ctx context.Context) ([]*armcompute.VirtualMachine, error)
	DeleteVirtualMachineFunc     func(ctx context.Context, name string, tolerateMissing bool) error
	StartVirtualMachineFunc      func(ctx context.Context, name string) error
	PowerOffVirtualMachineFunc   func(ctx context.Context, name string) error
	RestartVirtualMachineFunc    func(ctx context.Context, name string) error
	DeallocateVirtualMachineFunc func(ctx context.Context, name string) error
	RunCommandFunc               func(ctx context.Context, vmName, script, user string) (string, error)
	EnsureDNSZoneFunc            func(ctx context.Context, zone string) ([]string, error)
	CreateARecordFunc            func(ctx context.Context, zone, name string, ips []string, resourceGroup string) error
	DeleteARecordFunc            func(ctx context.Context, zone, name, resourceGroup string) error
	EnsurePrivateZoneFunc        func(ctx context.Context, zone, resourceGroup string) error
	LinkPrivateZoneToVNetFunc    func(ctx context.Context, dnsResourceGroup, zone, vnetResourceGroup, vnetName string) error
	CreatePrivateARecordFunc     func(ctx context.Context, zone, name string, ips []string, resourceGroup string) error
	DeletePrivateARecordFunc     func(ctx context.Context, zone, name, resourceGroup string) error
	StorageNameAvailableFunc     func(ctx context.Context, name string) (bool, error)
	EnsureStorageAccountFunc     func(ctx context.Context, name string, spec StorageSpec) (string, error)
	EnsureFileShareFunc          func(ctx context.Context, accountName, shareName string, quotaGB int32) error
	DeleteResourceFunc           func(ctx context.Context, kind ResourceKind, name string, tolerateMissing bool) error
	SubnetIDFunc                 func(resourceGroup, vnetName, subnetName string) string
	VNetIDFunc                   func(resourceGroup, vnetName string) string
}

var _ Manager = (*MockManager)(nil)

func (m *MockManager) EnsureResourceGroup(ctx context.Context) (*armresources.ResourceGroup, error) {
	if m.EnsureResourceGroupFunc != nil {
		return m.EnsureResourceGroupFunc(ctx)
	}
	return &armresources.ResourceGroup{}, nil
}

func (m *MockManager) DeleteResourceGroup(ctx context.Context, name string) error {
	if m.DeleteResourceGroupFunc != nil {
		return m.DeleteResourceGroupFunc(ctx, name)
	}
	return nil
}

func (m *MockManager) Location(ctx context.Context) (string, error) {
	if m.LocationFunc != nil {
		return m.LocationFunc(ctx)
	}
	return "westeurope", nil
}

func (m *MockManager) EnsureSecurityGroup(ctx context.Context, name string) (*armnetwork.SecurityGroup, error) {
	if m.EnsureSecurityGroupFunc != nil {
		return m.EnsureSecurityGroupFunc(ctx, name)
	}
	return &armnetwork.SecurityGroup{}, nil
}

func (m *MockManager) AllowDevelopmentPorts(ctx context.Context, nsgName, fromIP string) error {
	if m.AllowDevelopmentPortsFunc != nil {
		return m.AllowDevelopmentPortsFunc(ctx, nsgName, fromIP)
	}
	return nil
}

func (m *MockManager) AllowPing(ctx context.Context, nsgName, fromIP string) error {
	if m.AllowPingFunc != nil {
		return m.AllowPingFunc(ctx, nsgName, fromIP)
	}
	return nil
}

func (m *MockManager) EnsureVirtualNetwork(ctx context.Context, name string, addressPrefixes []string) (*armnetwork.VirtualNetwork, error) {
	if m.EnsureVirtualNetworkFunc != nil {
		return m.EnsureVirtualNetworkFunc(ctx, name, addressPrefixes)
	}
	return &armnetwork.VirtualNetwork{}, nil
}

func (m *MockManager) EnsureSubnet(ctx context.Context, name, vnetName string, opts SubnetOptions) (*armnetwork.Subnet, error) {
	if m.EnsureSubnetFunc != nil {
		return m.EnsureSubnetFunc(ctx, name, vnetName, opts)
	}
	return &armnetwork.Subnet{}, nil
}

func (m *MockManager) EnsurePublicIP(ctx context.Context, name, dnsLabel string) (*armnetwork.PublicIPAddress, error) {
	if m.EnsurePublicIPFunc != nil {
		return m.EnsurePublicIPFunc(ctx, name, dnsLabel)
	}
	return &armnetwork.PublicIPAddress{}, nil
}

func (m *MockManager) EnsureInterface(ctx context.Context, name string, opts InterfaceOptions) (*armnetwork.Interface, error) {
	if m.EnsureInterfaceFunc != nil {
		return m.EnsureInterfaceFunc(ctx, name, opts)
	}
	return &armnetwork.Interface{}, nil
}

func (m *MockManager) EnableServiceEndpoints(ctx context.Context, resourceGroup, vnetName, subnetName string, disablePolicies bool) error {
	if m.EnableServiceEndpointsFunc != nil {
		return m.EnableServiceEndpointsFunc(ctx, resourceGroup, vnetName, subnetName, disablePolicies)
	}
	return nil
}

func (m *MockManager) GetVirtualMachine(ctx context.Context, name string) (*armcompute.VirtualMachine, error) {
	if m.GetVirtualMachineFunc != nil {
		return m.GetVirtualMachineFunc(ctx, name)
	}
	return &armcompute.VirtualMachine{}, nil
}

func (m *MockManager) EnsureVirtualMachine(ctx context.Context, name string, spec VMSpec) (*armcompute.VirtualMachine, error) {
	if m.EnsureVirtualMachineFunc != nil {
		return m.EnsureVirtualMachineFunc(ctx, name, spec)
	}
	return &armcompute.VirtualMachine{}, nil
}

func (m *MockManager) ListVirtualMachines(ctx context.Context) ([]*armcompute.VirtualMachine, error) {
	if m.ListVirtualMachinesFunc != nil {
		return m.ListVirtualMachinesFunc(ctx)
	}
	return nil, nil
}

func (m *MockManager) DeleteVirtualMachine(ctx context.Context, name string, tolerateMissing bool) error {
	if m.DeleteVirtualMachineFunc != nil {
		return m.DeleteVirtualMachineFunc(ctx, name, tolerateMissing)
	}
	return nil
}

func (m *MockManager) StartVirtualMachine(ctx context.Context, name string) error {
	if m.StartVirtualMachineFunc != nil {
		return m.StartVirtualMachineFunc(ctx, name)
	}
	return nil
}

func (m *MockManager) PowerOffVirtualMachine(ctx context.Context, name string) error {
	if m.PowerOffVirtualMachineFunc != nil {
		return m.PowerOffVirtualMachineFunc(ctx, name)
	}
	return nil
}

func (m *MockManager) RestartVirtualMachine(ctx context.Context, name string) error {
	if m.RestartVirtualMachineFunc != nil {
		return m.RestartVirtualMachineFunc(ctx, name)
	}
	return nil
}

func (m *MockManager) DeallocateVirtualMachine(ctx context.Context, name string) error {
	if m.DeallocateVirtualMachineFunc != nil {
		return m.DeallocateVirtualMachineFunc(ctx, name)
	}
	return nil
}

func (m *MockManager) RunCommand(ctx context.Context, vmName, script, user string) (string, error) {
	if m.RunCommandFunc != nil {
		return m.RunCommandFunc(ctx, vmName, script, user)
	}
	return "", nil
}

func (m *MockManager) EnsureDNSZone(ctx context.Context, zone string) ([]string, error) {
	if m.EnsureDNSZoneFunc != nil {
		return m.EnsureDNSZoneFunc(ctx, zone)
	}
	return nil, nil
}

func (m *MockManager) CreateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error {
	if m.CreateARecordFunc != nil {
		return m.CreateARecordFunc(ctx, zone, name, ips, resourceGroup)
	}
	return nil
}

func (m *MockManager) DeleteARecord(ctx context.Context, zone, name, resourceGroup string) error {
	if m.DeleteARecordFunc != nil {
		return m.DeleteARecordFunc(ctx, zone, name, resourceGroup)
	}
	return nil
}

func (m *MockManager) EnsurePrivateZone(ctx context.Context, zone, resourceGroup string) error {
	if m.EnsurePrivateZoneFunc != nil {
		return m.EnsurePrivateZoneFunc(ctx, zone, resourceGroup)
	}
	return nil
}

func (m *MockManager) LinkPrivateZoneToVNet(ctx context.Context, dnsResourceGroup, zone, vnetResourceGroup, vnetName string) error {
	if m.LinkPrivateZoneToVNetFunc != nil {
		return m.LinkPrivateZoneToVNetFunc(ctx, dnsResourceGroup, zone, vnetResourceGroup, vnetName)
	}
	return nil
}

func (m *MockManager) CreatePrivateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error {
	if m.CreatePrivateARecordFunc != nil {
		return m.CreatePrivateARecordFunc(ctx, zone, name, ips, resourceGroup)
	}
	return nil
}

func (m *MockManager) DeletePrivateARecord(ctx context.Context, zone, name, resourceGroup string) error {
	if m.DeletePrivateARecordFunc != nil {
		return m.DeletePrivateARecordFunc(ctx, zone, name, resourceGroup)
	}
	return nil
}

func (m *MockManager) StorageNameAvailable(ctx context.Context, name string) (bool, error) {
	if m.StorageNameAvailableFunc != nil {
		return m.StorageNameAvailableFunc(ctx, name)
	}
	return true, nil
}

func (m *MockManager) EnsureStorageAccount(ctx context.Context, name string, spec StorageSpec) (string, error) {
	if m.EnsureStorageAccountFunc != nil {
		return m.EnsureStorageAccountFunc(ctx, name, spec)
	}
	return "", nil
}

func (m *MockManager) EnsureFileShare(ctx context.Context, accountName, shareName string, quotaGB int32) error {
	if m.EnsureFileShareFunc != nil {
		return m.EnsureFileShareFunc(ctx, accountName, shareName, quotaGB)
	}
	return nil
}

func (m *MockManager) DeleteResource(ctx context.Context, kind ResourceKind, name string, tolerateMissing bool) error {
	if m.DeleteResourceFunc != nil {
		return m.DeleteResourceFunc(ctx, kind, name, tolerateMissing)
	}
	return nil
}

func (m *MockManager) SubnetID(resourceGroup, vnetName, subnetName string) string {
	if m.SubnetIDFunc != nil {
		return m.SubnetIDFunc(resourceGroup, vnetName, subnetName)
	}
	return "/subscriptions/sub/resourceGroups/" + resourceGroup + "/providers/Microsoft.Network/virtualNetworks/" + vnetName + "/subnets/" + subnetName
}

func (m *MockManager) VNetID(resourceGroup, vnetName string) string {
	if m.VNetIDFunc != nil {
		return m.VNetIDFunc(resourceGroup, vnetName)
	}
	return "/subscriptions/sub/resourceGroups/" + resourceGroup + "/providers/Microsoft.Network/virtualNetworks/" + vnetName
}
