// Package handlers implements the CLI commands: wiring configuration,
// credentials and clients together and executing the requested operation.
package handlers

import (
	"fmt"
	"os"

	"github.com/nnstorm/azup/internal/azure"
	"github.com/nnstorm/azup/internal/config"
	"github.com/nnstorm/azup/internal/sshenv"
	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/vm"
)

// Options carry the global flags shared by every command.
type Options struct {
	ConfigPath      string
	CredentialsPath string
	Async           bool
}

func (o Options) credentialsPath() (string, error) {
	if o.CredentialsPath != "" {
		return o.CredentialsPath, nil
	}
	if path := os.Getenv("AZURE_AUTH_LOCATION"); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("no credential file: pass --credentials or set AZURE_AUTH_LOCATION")
}

// environment is everything a handler needs to operate.
type environment struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	client   *azure.Client
}

func setup(opts Options) (*environment, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	credsPath, err := opts.credentialsPath()
	if err != nil {
		return nil, err
	}
	creds, err := azure.LoadCredentials(credsPath)
	if err != nil {
		return nil, err
	}

	timeouts := config.LoadTimeouts()
	client, err := azure.NewClient(creds, azure.ClientOptions{
		ResourceGroup: cfg.ResourceGroup,
		Location:      cfg.Location,
		Async:         opts.Async,
		Timeouts:      timeouts,
	})
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, timeouts: timeouts, client: client}, nil
}

// deployer assembles the full VM deployment stack on top of an environment.
func (e *environment) deployer() (*vm.Deployer, error) {
	if e.cfg.KeyVault == "" {
		return nil, fmt.Errorf("keyVault must be configured for VM deployments")
	}

	sshConfig, err := sshenv.NewConfig("")
	if err != nil {
		return nil, err
	}

	runner := shell.New()
	return vm.New(
		e.client,
		e.client.Vault(e.cfg.KeyVault),
		e.cfg,
		e.timeouts,
		sshenv.NewProber(runner),
		sshConfig,
	), nil
}
