// Package config loads and validates the deployment configuration.
//
// A deployment file describes the Azure environment a VM deployment runs in:
// location, network layout, VM size aliases, the OS image, and the key vault
// holding admin credentials. Credentials for the service principal itself are
// separate (see the azure package).
package config

import (
	"fmt"
	"net"
)

// Config is the root deployment configuration.
type Config struct {
	// Location is the Azure region resources are created in.
	Location string `mapstructure:"location"`

	// ResourceGroup is the default resource group for deployments.
	ResourceGroup string `mapstructure:"resourceGroup"`

	// KeyVault is the name of the vault holding VM admin secrets.
	KeyVault string `mapstructure:"keyVault"`

	Network NetworkConfig     `mapstructure:"network"`
	VMSizes map[string]string `mapstructure:"vmSizes"`
	Image   ImageReference    `mapstructure:"image"`
	Plan    *PurchasePlan     `mapstructure:"plan"`
	Secrets SecretNames       `mapstructure:"secrets"`
	DNS     DNSConfig         `mapstructure:"dns"`
	AKS     AKSConfig         `mapstructure:"aks"`
}

// NetworkConfig names the network resources a deployment attaches to.
type NetworkConfig struct {
	SecurityGroup  string   `mapstructure:"securityGroup"`
	VirtualNetwork string   `mapstructure:"virtualNetwork"`
	VNetPrefixes   []string `mapstructure:"vnetPrefixes"`
	Subnet         string   `mapstructure:"subnet"`
	SubnetPrefix   string   `mapstructure:"subnetPrefix"`
}

// ImageReference selects the VM OS image.
type ImageReference struct {
	Publisher string `mapstructure:"publisher"`
	Offer     string `mapstructure:"offer"`
	SKU       string `mapstructure:"sku"`
	Version   string `mapstructure:"version"`
}

// PurchasePlan is the marketplace plan required by some images.
type PurchasePlan struct {
	Name      string `mapstructure:"name"`
	Product   string `mapstructure:"product"`
	Publisher string `mapstructure:"publisher"`
}

// SecretNames are the key vault secret names for VM admin credentials.
type SecretNames struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DNSConfig names the DNS zones managed by a deployment.
type DNSConfig struct {
	Zone        string `mapstructure:"zone"`
	PrivateZone string `mapstructure:"privateZone"`
}

// AKSConfig names the managed cluster used for Helm/kubectl deployments.
type AKSConfig struct {
	Cluster   string `mapstructure:"cluster"`
	Namespace string `mapstructure:"namespace"`
}

// Validate checks required fields and CIDR syntax.
func (c *Config) Validate() error {
	if c.Location == "" {
		return fmt.Errorf("location is required")
	}
	if c.ResourceGroup == "" {
		return fmt.Errorf("resourceGroup is required")
	}
	for _, prefix := range c.Network.VNetPrefixes {
		if _, _, err := net.ParseCIDR(prefix); err != nil {
			return fmt.Errorf("invalid vnet prefix %q: %w", prefix, err)
		}
	}
	if c.Network.SubnetPrefix != "" {
		if _, _, err := net.ParseCIDR(c.Network.SubnetPrefix); err != nil {
			return fmt.Errorf("invalid subnet prefix %q: %w", c.Network.SubnetPrefix, err)
		}
	}
	return nil
}

// Size resolves a size alias ("small", "gpu") to an Azure VM size. Unknown
// aliases are returned unchanged so explicit Azure sizes keep working.
func (c *Config) Size(alias string) string {
	if size, ok := c.VMSizes[alias]; ok {
		return size
	}
	return alias
}
