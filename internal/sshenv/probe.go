package sshenv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nnstorm/azup/internal/logging"
	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/util/wait"
)

// Prober checks whether a deployed VM answers on the network and accepts SSH
// logins.
type Prober struct {
	runner shell.Runner
}

// NewProber returns a Prober using the given runner for ping and ssh.
func NewProber(runner shell.Runner) *Prober {
	return &Prober{runner: runner}
}

// Ping sends a single ICMP echo to host.
func (p *Prober) Ping(ctx context.Context, host string) error {
	if _, err := p.runner.Run(ctx, []string{"ping", "-c", "1", host}); err != nil {
		return fmt.Errorf("host %s not answering ping: %w", host, err)
	}
	return nil
}

// SSH opens a throwaway SSH session on host and runs a trivial command. Host
// key checking is disabled because redeployed VMs present fresh keys.
func (p *Prober) SSH(ctx context.Context, host string, port int) error {
	if port == 0 {
		port = DefaultPort
	}
	argv := []string{
		"ssh",
		"-p", strconv.Itoa(port),
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=10",
		"-t", host,
		"echo hi",
	}
	if _, err := p.runner.Run(ctx, argv); err != nil {
		return fmt.Errorf("host %s not accepting ssh on port %d: %w", host, port, err)
	}
	return nil
}

// WaitForService polls until host answers ping and accepts an SSH login.
// wait.ErrTimeout is in the error chain when the timeout elapses first.
func (p *Prober) WaitForService(ctx context.Context, host string, port int, interval, timeout time.Duration) error {
	log := logging.Component("sshenv")

	err := wait.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		if err := p.Ping(ctx, host); err != nil {
			log.Debug().Err(err).Str("host", host).Msg("waiting for ping")
			return false, nil
		}
		if err := p.SSH(ctx, host, port); err != nil {
			log.Debug().Err(err).Str("host", host).Msg("waiting for ssh")
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("service on %s did not come up: %w", host, err)
	}
	log.Info().Str("host", host).Msg("service is up")
	return nil
}
