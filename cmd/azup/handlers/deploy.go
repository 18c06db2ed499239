package handlers

import (
	"context"
	"fmt"

	"github.com/nnstorm/azup/internal/util/keygen"
	"github.com/nnstorm/azup/internal/vm"
)

// DeployOptions carry the deploy command's flags.
type DeployOptions struct {
	Name       string
	Size       string
	User       string
	SSHKeyPath string
	DNSLabel   string
	Spot       bool
	MaxPrice   float64
	FromIP     string
	SkipProbe  bool
}

// Deploy converges a full VM deployment and reports its endpoint.
func Deploy(ctx context.Context, opts Options, deployOpts DeployOptions) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}
	deployer, err := env.deployer()
	if err != nil {
		return err
	}

	var publicKey string
	if deployOpts.SSHKeyPath != "" {
		publicKey, err = keygen.LoadPublicKey(deployOpts.SSHKeyPath)
		if err != nil {
			return err
		}
	}

	deployment, err := deployer.Deploy(ctx, vm.DeployOptions{
		Name:         deployOpts.Name,
		Size:         deployOpts.Size,
		User:         deployOpts.User,
		SSHPublicKey: publicKey,
		DNSLabel:     deployOpts.DNSLabel,
		Spot:         deployOpts.Spot,
		MaxPrice:     deployOpts.MaxPrice,
		FromIP:       deployOpts.FromIP,
		SkipProbe:    deployOpts.SkipProbe,
	})
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	fmt.Printf("VM %s ready at %s (%s)\n", deployment.Name, deployment.FQDN, deployment.IP)
	return nil
}

// Destroy deletes a VM and its dedicated network resources.
func Destroy(ctx context.Context, opts Options, name string) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}
	deployer, err := env.deployer()
	if err != nil {
		return err
	}

	if err := deployer.Destroy(ctx, name); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}
	fmt.Printf("VM %s destroyed\n", name)
	return nil
}

// DestroyGroup deletes the whole resource group and everything in it.
func DestroyGroup(ctx context.Context, opts Options) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}

	group := env.client.ResourceGroup()
	if err := env.client.DeleteResourceGroup(ctx, group); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}
	fmt.Printf("resource group %s destroyed\n", group)
	return nil
}

// SSHConfig refreshes the local SSH host entry for a deployed VM.
func SSHConfig(ctx context.Context, opts Options, name string) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}
	deployer, err := env.deployer()
	if err != nil {
		return err
	}

	entry, err := deployer.RegisterSSH(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("Host %s -> %s (user %s, port %d)\n", entry.Alias, entry.HostName, entry.User, entry.Port)
	return nil
}
