package sshenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/util/wait"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "ssh", "config"))
	require.NoError(t, err)
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAddHost(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, cfg.AddHost(HostEntry{
		Alias:      "dev-vm",
		HostName:   "dev-vm.westeurope.cloudapp.azure.com",
		User:       "nn",
		ForwardX11: true,
	}))

	content := readFile(t, cfg.Path())
	assert.Contains(t, content, "Host dev-vm\n")
	assert.Contains(t, content, "HostName dev-vm.westeurope.cloudapp.azure.com")
	assert.Contains(t, content, "User nn")
	assert.Contains(t, content, "Port 20022", "default port applies when unset")
	assert.Contains(t, content, "StrictHostKeyChecking no", "redeployed VMs rotate host keys")
	assert.Contains(t, content, "ForwardX11 yes")
}

func TestAddHost_ReplacesExisting(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, cfg.AddHost(HostEntry{Alias: "dev-vm", HostName: "old.example.com"}))
	require.NoError(t, cfg.AddHost(HostEntry{Alias: "dev-vm", HostName: "new.example.com", Port: 22}))

	content := readFile(t, cfg.Path())
	assert.NotContains(t, content, "old.example.com")
	assert.Contains(t, content, "new.example.com")
	assert.Equal(t, 1, strings.Count(content, "Host dev-vm\n"))
}

func TestAddHost_PreservesOtherBlocks(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Path()), 0o700))
	require.NoError(t, os.WriteFile(cfg.Path(), []byte("Host other\n    HostName other.example.com\n"), 0o600))

	require.NoError(t, cfg.AddHost(HostEntry{Alias: "dev-vm", HostName: "dev.example.com"}))

	content := readFile(t, cfg.Path())
	assert.Contains(t, content, "Host other")
	assert.Contains(t, content, "Host dev-vm")
}

func TestRemoveHost(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, cfg.AddHost(HostEntry{Alias: "a", HostName: "a.example.com"}))
	require.NoError(t, cfg.AddHost(HostEntry{Alias: "b", HostName: "b.example.com"}))

	require.NoError(t, cfg.RemoveHost("a"))
	content := readFile(t, cfg.Path())
	assert.NotContains(t, content, "Host a\n")
	assert.Contains(t, content, "Host b\n")

	require.NoError(t, cfg.RemoveHost("missing"), "removing an absent block is fine")
}

func TestAddHost_Validation(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	assert.Error(t, cfg.AddHost(HostEntry{Alias: "x"}))
	assert.Error(t, cfg.AddHost(HostEntry{HostName: "x.example.com"}))
}

func TestPruneKnownHosts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	content := strings.Join([]string{
		"dev-vm.example.com ssh-ed25519 AAAA1",
		"[dev-vm.example.com]:20022 ssh-ed25519 AAAA2",
		"other.example.com,10.0.0.4 ssh-rsa AAAA3",
		"# comment line",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, PruneKnownHosts(path, "dev-vm.example.com"))

	got := readFile(t, path)
	assert.NotContains(t, got, "AAAA1")
	assert.NotContains(t, got, "AAAA2", "bracketed host:port entries are pruned too")
	assert.Contains(t, got, "other.example.com")
	assert.Contains(t, got, "# comment line")
}

func TestPruneKnownHosts_MissingFile(t *testing.T) {
	t.Parallel()

	assert.NoError(t, PruneKnownHosts(filepath.Join(t.TempDir(), "known_hosts"), "host"))
}

type probeRunner struct {
	calls     [][]string
	pingFails int
	sshFails  int
}

func (p *probeRunner) Run(_ context.Context, argv []string, _ ...shell.Option) (shell.Result, error) {
	p.calls = append(p.calls, argv)
	switch argv[0] {
	case "ping":
		if p.pingFails > 0 {
			p.pingFails--
			return shell.Result{}, errors.New("no route")
		}
	case "ssh":
		if p.sshFails > 0 {
			p.sshFails--
			return shell.Result{}, errors.New("connection refused")
		}
	}
	return shell.Result{}, nil
}

func (p *probeRunner) RunPipeline(context.Context, string, ...shell.Option) (shell.Result, error) {
	return shell.Result{}, nil
}

func TestWaitForService(t *testing.T) {
	t.Parallel()

	runner := &probeRunner{pingFails: 1, sshFails: 1}
	prober := NewProber(runner)

	err := prober.WaitForService(context.Background(), "dev.example.com", 0, time.Millisecond, time.Second)
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, "ssh", last[0])
	joined := strings.Join(last, " ")
	assert.Contains(t, joined, "-p 20022")
	assert.Contains(t, joined, "StrictHostKeyChecking=no")
	assert.Contains(t, joined, "echo hi")
}

func TestWaitForService_Timeout(t *testing.T) {
	t.Parallel()

	runner := &probeRunner{pingFails: 1000}
	prober := NewProber(runner)

	err := prober.WaitForService(context.Background(), "dev.example.com", 0, time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, wait.ErrTimeout)
}
