// Package vm orchestrates development VM deployments: networking, the
// machine itself, admin credentials from the key vault, and the local SSH
// environment pointing at the result.
package vm

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/azure"
	"github.com/nnstorm/azup/internal/config"
	"github.com/nnstorm/azup/internal/logging"
	"github.com/nnstorm/azup/internal/sshenv"
	"github.com/nnstorm/azup/internal/util/password"
)

// SecretStore reads and writes named secrets, backed by a key vault.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
	SetSecret(ctx context.Context, name, value string) error
}

// Prober checks that a deployed VM answers on the network.
type Prober interface {
	WaitForService(ctx context.Context, host string, port int, interval, timeout time.Duration) error
}

// Deployer builds and tears down development VMs.
type Deployer struct {
	mgr       azure.Manager
	secrets   SecretStore
	cfg       *config.Config
	timeouts  *config.Timeouts
	prober    Prober
	sshConfig *sshenv.Config
	log       zerolog.Logger
}

// New returns a Deployer. sshConfig may be nil to skip local SSH environment
// updates.
func New(mgr azure.Manager, secrets SecretStore, cfg *config.Config, timeouts *config.Timeouts, prober Prober, sshConfig *sshenv.Config) *Deployer {
	return &Deployer{
		mgr:       mgr,
		secrets:   secrets,
		cfg:       cfg,
		timeouts:  timeouts,
		prober:    prober,
		sshConfig: sshConfig,
		log:       logging.Component("vm"),
	}
}

// DeployOptions configure one VM deployment.
type DeployOptions struct {
	// Name is the VM name and the default DNS label.
	Name string

	// Size is a configured alias or a literal VM size.
	Size string

	// User overrides the admin username from the vault.
	User string

	// SSHPublicKey is an authorized_keys line for the admin account.
	SSHPublicKey string

	// DNSLabel overrides the public IP's DNS label. Defaults to Name.
	DNSLabel string

	// Spot requests a spot instance; MaxPrice caps its hourly price, zero
	// meaning the on-demand ceiling.
	Spot     bool
	MaxPrice float64

	// FromIP restricts the NSG rules to one source address. Empty opens
	// them to everyone.
	FromIP string

	// SkipProbe skips waiting for ping and SSH after deployment.
	SkipProbe bool
}

// Deployment describes a deployed VM.
type Deployment struct {
	Name     string
	FQDN     string
	IP       string
	User     string
	Password string
	Existed  bool
}

// Deploy converges the full VM stack: resource group, NSG and rules, vnet,
// subnet, public IP, NIC and finally the machine. Resources that already
// exist are left untouched, so a deploy over a live VM is a cheap no-op.
func (d *Deployer) Deploy(ctx context.Context, opts DeployOptions) (*Deployment, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("VM name is required")
	}

	if _, err := d.mgr.EnsureResourceGroup(ctx); err != nil {
		return nil, err
	}

	nic, err := d.ensureNetwork(ctx, opts)
	if err != nil {
		return nil, err
	}

	user, pass, err := d.adminCredentials(ctx, opts.User)
	if err != nil {
		return nil, err
	}

	_, err = d.mgr.GetVirtualMachine(ctx, opts.Name)
	existed := err == nil
	if err != nil && !azure.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check for VM %q: %w", opts.Name, err)
	}

	spec := azure.VMSpec{
		Size:          d.cfg.Size(opts.Size),
		InterfaceID:   deref(nic.ID),
		AdminUsername: user,
		AdminPassword: pass,
		SSHPublicKey:  opts.SSHPublicKey,
		Image:         d.cfg.Image,
		Plan:          d.cfg.Plan,
		Spot:          opts.Spot,
		MaxPrice:      opts.MaxPrice,
	}
	if _, err := d.mgr.EnsureVirtualMachine(ctx, opts.Name, spec); err != nil {
		return nil, err
	}

	fqdn, ip, err := d.publicEndpoint(ctx, opts.Name)
	if err != nil {
		return nil, err
	}

	deployment := &Deployment{
		Name:     opts.Name,
		FQDN:     fqdn,
		IP:       ip,
		User:     user,
		Password: pass,
		Existed:  existed,
	}

	if !opts.SkipProbe && d.prober != nil {
		if err := d.prober.WaitForService(ctx, fqdn, 0, d.timeouts.PollInterval, d.timeouts.ServiceProbe); err != nil {
			return deployment, err
		}
	}

	if err := d.registerSSH(deployment); err != nil {
		return deployment, err
	}

	d.log.Info().Str("vm", opts.Name).Str("fqdn", fqdn).Bool("existed", existed).Msg("deployment converged")
	return deployment, nil
}

func (d *Deployer) ensureNetwork(ctx context.Context, opts DeployOptions) (*armnetwork.Interface, error) {
	net := d.cfg.Network

	nsg, err := d.mgr.EnsureSecurityGroup(ctx, net.SecurityGroup)
	if err != nil {
		return nil, err
	}
	if err := d.mgr.AllowDevelopmentPorts(ctx, net.SecurityGroup, opts.FromIP); err != nil {
		return nil, err
	}
	if err := d.mgr.AllowPing(ctx, net.SecurityGroup, opts.FromIP); err != nil {
		return nil, err
	}

	if _, err := d.mgr.EnsureVirtualNetwork(ctx, net.VirtualNetwork, net.VNetPrefixes); err != nil {
		return nil, err
	}
	subnet, err := d.mgr.EnsureSubnet(ctx, net.Subnet, net.VirtualNetwork, azure.SubnetOptions{
		AddressPrefix:    net.SubnetPrefix,
		SecurityGroupID:  deref(nsg.ID),
		ServiceEndpoints: azure.DefaultServiceEndpoints,
	})
	if err != nil {
		return nil, err
	}

	dnsLabel := opts.DNSLabel
	if dnsLabel == "" {
		dnsLabel = opts.Name
	}
	pip, err := d.mgr.EnsurePublicIP(ctx, publicIPName(opts.Name), dnsLabel)
	if err != nil {
		return nil, err
	}

	return d.mgr.EnsureInterface(ctx, interfaceName(opts.Name), azure.InterfaceOptions{
		SubnetID:   deref(subnet.ID),
		PublicIPID: deref(pip.ID),
	})
}

// adminCredentials resolves the admin account from the vault, minting and
// storing a password on first use.
func (d *Deployer) adminCredentials(ctx context.Context, userOverride string) (string, string, error) {
	user := userOverride
	if user == "" {
		stored, err := d.secrets.GetSecret(ctx, d.cfg.Secrets.Username)
		if err != nil {
			if !azure.IsNotFound(err) {
				return "", "", err
			}
			return "", "", fmt.Errorf("no admin username: secret %q not in vault and no override given", d.cfg.Secrets.Username)
		}
		user = stored
	}

	pass, err := d.secrets.GetSecret(ctx, d.cfg.Secrets.Password)
	if err != nil {
		if !azure.IsNotFound(err) {
			return "", "", err
		}
		pass, err = password.Generate(16)
		if err != nil {
			return "", "", err
		}
		if err := d.secrets.SetSecret(ctx, d.cfg.Secrets.Password, pass); err != nil {
			return "", "", err
		}
		d.log.Info().Str("secret", d.cfg.Secrets.Password).Msg("admin password minted and stored")
	}
	return user, pass, nil
}

func (d *Deployer) publicEndpoint(ctx context.Context, name string) (fqdn, ip string, err error) {
	pip, err := d.mgr.EnsurePublicIP(ctx, publicIPName(name), name)
	if err != nil {
		return "", "", err
	}
	if pip.Properties != nil {
		if pip.Properties.DNSSettings != nil {
			fqdn = deref(pip.Properties.DNSSettings.Fqdn)
		}
		ip = deref(pip.Properties.IPAddress)
	}
	if fqdn == "" {
		return "", "", fmt.Errorf("public IP for %q has no FQDN", name)
	}
	return fqdn, ip, nil
}

// registerSSH rewrites the local SSH environment for the deployment: a host
// entry on the remapped port and a known_hosts purge of the stale key.
func (d *Deployer) registerSSH(dep *Deployment) error {
	if d.sshConfig == nil {
		return nil
	}
	knownHosts := filepath.Join(filepath.Dir(d.sshConfig.Path()), "known_hosts")
	if err := sshenv.PruneKnownHosts(knownHosts, dep.FQDN); err != nil {
		return err
	}
	return d.sshConfig.AddHost(sshenv.HostEntry{
		Alias:      dep.Name,
		HostName:   dep.FQDN,
		User:       dep.User,
		ForwardX11: true,
	})
}

// RegisterSSH refreshes the local SSH environment for an already deployed
// VM without touching any Azure resources.
func (d *Deployer) RegisterSSH(ctx context.Context, name string) (*sshenv.HostEntry, error) {
	if d.sshConfig == nil {
		return nil, fmt.Errorf("no SSH config to write")
	}

	fqdn, _, err := d.publicEndpoint(ctx, name)
	if err != nil {
		return nil, err
	}
	user, err := d.secrets.GetSecret(ctx, d.cfg.Secrets.Username)
	if err != nil {
		if azure.IsNotFound(err) {
			return nil, fmt.Errorf("no admin username: secret %q not in vault", d.cfg.Secrets.Username)
		}
		return nil, err
	}

	entry := sshenv.HostEntry{
		Alias:      name,
		HostName:   fqdn,
		User:       user,
		Port:       sshenv.DefaultPort,
		ForwardX11: true,
	}
	knownHosts := filepath.Join(filepath.Dir(d.sshConfig.Path()), "known_hosts")
	if err := sshenv.PruneKnownHosts(knownHosts, fqdn); err != nil {
		return nil, err
	}
	if err := d.sshConfig.AddHost(entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Destroy deletes the VM and its dedicated network resources. Missing
// resources are tolerated so Destroy is safe to repeat.
func (d *Deployer) Destroy(ctx context.Context, name string) error {
	if err := d.mgr.DeleteVirtualMachine(ctx, name, true); err != nil {
		return err
	}
	if err := d.mgr.DeleteResource(ctx, azure.KindInterface, interfaceName(name), true); err != nil {
		return err
	}
	if err := d.mgr.DeleteResource(ctx, azure.KindPublicIP, publicIPName(name), true); err != nil {
		return err
	}

	if d.sshConfig != nil {
		if err := d.sshConfig.RemoveHost(name); err != nil {
			return err
		}
	}
	d.log.Info().Str("vm", name).Msg("deployment destroyed")
	return nil
}

// RunCommand executes a script on the VM as the stored admin user.
func (d *Deployer) RunCommand(ctx context.Context, name, script string) (string, error) {
	user, _, err := d.adminCredentials(ctx, "")
	if err != nil {
		return "", err
	}
	return d.mgr.RunCommand(ctx, name, script, user)
}

// FQDN returns the VM's public DNS name.
func (d *Deployer) FQDN(ctx context.Context, name string) (string, error) {
	fqdn, _, err := d.publicEndpoint(ctx, name)
	return fqdn, err
}

func publicIPName(vmName string) string  { return vmName + "-ip" }
func interfaceName(vmName string) string { return vmName + "-nic" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
