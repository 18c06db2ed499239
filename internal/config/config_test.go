package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
location: westeurope
resourceGroup: dev-rsg
keyVault: dev-vault
network:
  securityGroup: dev-nsg
  virtualNetwork: dev-vnet
  vnetPrefixes: ["10.1.0.0/16"]
  subnet: dev-subnet
  subnetPrefix: 10.1.0.0/24
vmSizes:
  gpu: Standard_NC6
image:
  publisher: Canonical
  offer: 0001-com-ubuntu-server-jammy
  sku: 22_04-lts-gen2
  version: latest
secrets:
  username: admin-user
  password: admin-pass
dns:
  zone: example.com
aks:
  cluster: dev-cluster
  namespace: apps
`

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "westeurope", cfg.Location)
	assert.Equal(t, "dev-rsg", cfg.ResourceGroup)
	assert.Equal(t, []string{"10.1.0.0/16"}, cfg.Network.VNetPrefixes)
	assert.Equal(t, "10.1.0.0/24", cfg.Network.SubnetPrefix)
	assert.Equal(t, "admin-user", cfg.Secrets.Username)
	assert.Equal(t, "example.com", cfg.DNS.Zone)
	assert.Equal(t, "apps", cfg.AKS.Namespace)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte("location: westeurope\nresourceGroup: rsg\n"))
	require.NoError(t, err)

	assert.Equal(t, "Standard_B2s", cfg.VMSizes["small"])
	assert.Equal(t, "Canonical", cfg.Image.Publisher)
	assert.Equal(t, "vm-username", cfg.Secrets.Username)
	assert.Equal(t, "default", cfg.AKS.Namespace)
}

func TestLoad_MissingLocation(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte("resourceGroup: rsg\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location")
}

func TestLoad_InvalidCIDR(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte(`
location: westeurope
resourceGroup: rsg
network:
  vnetPrefixes: ["not-a-cidr"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-cidr")
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "azup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dev-vault", cfg.KeyVault)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte("location: westeurope\nresourceGroup: rsg\nvmSizes:\n  gpu: Standard_NC6\n"))
	require.NoError(t, err)

	assert.Equal(t, "Standard_NC6", cfg.Size("gpu"))
	assert.Equal(t, "Standard_B2s", cfg.Size("small"))
	assert.Equal(t, "Standard_D4s_v5", cfg.Size("Standard_D4s_v5"), "explicit sizes pass through")
}

func TestLoadTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("AZUP_TIMEOUT_PROVISION", "90s")
	t.Setenv("AZUP_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("AZUP_POLL_INTERVAL", "garbage")

	timeouts := LoadTimeouts()
	assert.Equal(t, 90*time.Second, timeouts.Provision)
	assert.Equal(t, 3, timeouts.RetryMaxAttempts)
	assert.Equal(t, time.Second, timeouts.PollInterval, "invalid values fall back to defaults")
}
