package vm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnstorm/azup/internal/azure"
	"github.com/nnstorm/azup/internal/config"
	"github.com/nnstorm/azup/internal/sshenv"
)

type fakeSecrets struct {
	store map[string]string
	sets  map[string]string
}

func newFakeSecrets(values map[string]string) *fakeSecrets {
	if values == nil {
		values = map[string]string{}
	}
	return &fakeSecrets{store: values, sets: map[string]string{}}
}

func (f *fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := f.store[name]; ok {
		return v, nil
	}
	return "", &azcore.ResponseError{StatusCode: 404}
}

func (f *fakeSecrets) SetSecret(_ context.Context, name, value string) error {
	f.store[name] = value
	f.sets[name] = value
	return nil
}

type fakeProber struct {
	hosts []string
	err   error
}

func (f *fakeProber) WaitForService(_ context.Context, host string, _ int, _, _ time.Duration) error {
	f.hosts = append(f.hosts, host)
	return f.err
}

func testConfig() *config.Config {
	cfg, err := config.Load([]byte(`
location: westeurope
resourceGroup: dev-rsg
network:
  securityGroup: dev-nsg
  virtualNetwork: dev-vnet
  vnetPrefixes: ["10.1.0.0/16"]
  subnet: dev-subnet
  subnetPrefix: 10.1.0.0/24
`))
	if err != nil {
		panic(err)
	}
	return cfg
}

func readyMock() *azure.MockManager {
	return &azure.MockManager{
		EnsureSecurityGroupFunc: func(_ context.Context, name string) (*armnetwork.SecurityGroup, error) {
			return &armnetwork.SecurityGroup{ID: to.Ptr("/nsg/" + name)}, nil
		},
		EnsureSubnetFunc: func(_ context.Context, name, _ string, _ azure.SubnetOptions) (*armnetwork.Subnet, error) {
			return &armnetwork.Subnet{ID: to.Ptr("/subnet/" + name)}, nil
		},
		EnsurePublicIPFunc: func(_ context.Context, name, _ string) (*armnetwork.PublicIPAddress, error) {
			return &armnetwork.PublicIPAddress{
				ID: to.Ptr("/pip/" + name),
				Properties: &armnetwork.PublicIPAddressPropertiesFormat{
					IPAddress:   to.Ptr("20.1.2.3"),
					DNSSettings: &armnetwork.PublicIPAddressDNSSettings{Fqdn: to.Ptr("dev-vm.westeurope.cloudapp.azure.com")},
				},
			}, nil
		},
		EnsureInterfaceFunc: func(_ context.Context, name string, _ azure.InterfaceOptions) (*armnetwork.Interface, error) {
			return &armnetwork.Interface{ID: to.Ptr("/nic/" + name)}, nil
		},
		GetVirtualMachineFunc: func(context.Context, string) (*armcompute.VirtualMachine, error) {
			return nil, &azcore.ResponseError{StatusCode: 404}
		},
	}
}

func newTestDeployer(t *testing.T, mock *azure.MockManager, secrets *fakeSecrets, prober *fakeProber) *Deployer {
	t.Helper()
	sshConfig, err := sshenv.NewConfig(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	return New(mock, secrets, testConfig(), config.TestTimeouts(), prober, sshConfig)
}

func TestDeploy_FullStack(t *testing.T) {
	t.Parallel()

	mock := readyMock()
	var ensuredSpec azure.VMSpec
	mock.EnsureVirtualMachineFunc = func(_ context.Context, _ string, spec azure.VMSpec) (*armcompute.VirtualMachine, error) {
		ensuredSpec = spec
		return &armcompute.VirtualMachine{}, nil
	}

	secrets := newFakeSecrets(map[string]string{"vm-username": "nn"})
	prober := &fakeProber{}
	deployer := newTestDeployer(t, mock, secrets, prober)

	dep, err := deployer.Deploy(context.Background(), DeployOptions{
		Name: "dev-vm",
		Size: "small",
		Spot: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "dev-vm.westeurope.cloudapp.azure.com", dep.FQDN)
	assert.Equal(t, "20.1.2.3", dep.IP)
	assert.Equal(t, "nn", dep.User)
	assert.False(t, dep.Existed)

	assert.Equal(t, "Standard_B2s", ensuredSpec.Size, "size alias resolved")
	assert.Equal(t, "/nic/dev-vm-nic", ensuredSpec.InterfaceID)
	assert.True(t, ensuredSpec.Spot)

	assert.NotEmpty(t, secrets.sets["vm-password"], "password minted and stored on first deploy")
	assert.Equal(t, []string{"dev-vm.westeurope.cloudapp.azure.com"}, prober.hosts)
}

func TestDeploy_ExistingVMSkipsNothing(t *testing.T) {
	t.Parallel()

	mock := readyMock()
	mock.GetVirtualMachineFunc = func(context.Context, string) (*armcompute.VirtualMachine, error) {
		return &armcompute.VirtualMachine{}, nil
	}
	ensures := 0
	mock.EnsureVirtualMachineFunc = func(context.Context, string, azure.VMSpec) (*armcompute.VirtualMachine, error) {
		ensures++
		return &armcompute.VirtualMachine{}, nil
	}

	secrets := newFakeSecrets(map[string]string{"vm-username": "nn", "vm-password": "pw"})
	deployer := newTestDeployer(t, mock, secrets, &fakeProber{})

	dep, err := deployer.Deploy(context.Background(), DeployOptions{Name: "dev-vm", Size: "small"})
	require.NoError(t, err)
	assert.True(t, dep.Existed)
	assert.Equal(t, 1, ensures, "ensure still runs; the reconciler is what makes it a no-op")
	assert.Empty(t, secrets.sets, "stored credentials are reused")
}

func TestDeploy_WritesSSHConfig(t *testing.T) {
	t.Parallel()

	mock := readyMock()
	secrets := newFakeSecrets(map[string]string{"vm-username": "nn", "vm-password": "pw"})
	deployer := newTestDeployer(t, mock, secrets, &fakeProber{})

	_, err := deployer.Deploy(context.Background(), DeployOptions{Name: "dev-vm", Size: "small"})
	require.NoError(t, err)

	content := readSSHConfig(t, deployer)
	assert.Contains(t, content, "Host dev-vm")
	assert.Contains(t, content, "HostName dev-vm.westeurope.cloudapp.azure.com")
	assert.Contains(t, content, "Port 20022")
	assert.Contains(t, content, "StrictHostKeyChecking no")
	assert.Contains(t, content, "ForwardX11 yes")
}

func readSSHConfig(t *testing.T, d *Deployer) string {
	t.Helper()
	data, err := os.ReadFile(d.sshConfig.Path())
	require.NoError(t, err)
	return string(data)
}

func TestDeploy_NoUsernameAnywhere(t *testing.T) {
	t.Parallel()

	deployer := newTestDeployer(t, readyMock(), newFakeSecrets(nil), &fakeProber{})

	_, err := deployer.Deploy(context.Background(), DeployOptions{Name: "dev-vm", Size: "small"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vm-username")
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	mock := readyMock()
	var deleted []string
	mock.DeleteVirtualMachineFunc = func(_ context.Context, name string, tolerate bool) error {
		assert.True(t, tolerate)
		deleted = append(deleted, "vm/"+name)
		return nil
	}
	mock.DeleteResourceFunc = func(_ context.Context, kind azure.ResourceKind, name string, tolerate bool) error {
		assert.True(t, tolerate)
		deleted = append(deleted, string(kind)+"/"+name)
		return nil
	}

	secrets := newFakeSecrets(nil)
	deployer := newTestDeployer(t, mock, secrets, &fakeProber{})

	require.NoError(t, deployer.Destroy(context.Background(), "dev-vm"))
	assert.Equal(t, []string{
		"vm/dev-vm",
		"network interface/dev-vm-nic",
		"public IP/dev-vm-ip",
	}, deleted)
}

func TestRegisterSSH_ExistingVM(t *testing.T) {
	t.Parallel()

	secrets := newFakeSecrets(map[string]string{"vm-username": "nn"})
	deployer := newTestDeployer(t, readyMock(), secrets, &fakeProber{})

	entry, err := deployer.RegisterSSH(context.Background(), "dev-vm")
	require.NoError(t, err)
	assert.Equal(t, "dev-vm", entry.Alias)
	assert.Equal(t, "dev-vm.westeurope.cloudapp.azure.com", entry.HostName)
	assert.Equal(t, "nn", entry.User)
	assert.Equal(t, sshenv.DefaultPort, entry.Port)

	content := readSSHConfig(t, deployer)
	assert.Contains(t, content, "Host dev-vm")
	assert.Contains(t, content, "User nn")
}

func TestRegisterSSH_NoUsername(t *testing.T) {
	t.Parallel()

	deployer := newTestDeployer(t, readyMock(), newFakeSecrets(nil), &fakeProber{})

	_, err := deployer.RegisterSSH(context.Background(), "dev-vm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vm-username")
}

func TestRunCommand_UsesStoredUser(t *testing.T) {
	t.Parallel()

	mock := readyMock()
	var gotUser, gotScript string
	mock.RunCommandFunc = func(_ context.Context, _, script, user string) (string, error) {
		gotUser, gotScript = user, script
		return "hi", nil
	}

	secrets := newFakeSecrets(map[string]string{"vm-username": "nn", "vm-password": "pw"})
	deployer := newTestDeployer(t, mock, secrets, &fakeProber{})

	out, err := deployer.RunCommand(context.Background(), "dev-vm", "echo hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, "nn", gotUser)
	assert.Equal(t, "echo hi", gotScript)
}
