// Package sshenv maintains the local SSH environment for deployed VMs: the
// ~/.ssh/config host entries and the known_hosts file.
package sshenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/logging"
)

// DefaultPort is the remapped SSH port VM deployments listen on.
const DefaultPort = 20022

// HostEntry describes one Host block in an SSH config file.
type HostEntry struct {
	// Alias is the Host pattern, usually the VM name.
	Alias string

	// HostName is the address to connect to, usually the VM's FQDN.
	HostName string

	User string

	// Port defaults to DefaultPort when zero.
	Port int

	IdentityFile string

	// ForwardX11 enables X forwarding for remote GUI tools.
	ForwardX11 bool
}

func (h *HostEntry) render() string {
	port := h.Port
	if port == 0 {
		port = DefaultPort
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Host %s\n", h.Alias)
	fmt.Fprintf(&b, "    HostName %s\n", h.HostName)
	if h.User != "" {
		fmt.Fprintf(&b, "    User %s\n", h.User)
	}
	fmt.Fprintf(&b, "    Port %d\n", port)
	// Host keys rotate on every redeploy, so strict checking would prompt on
	// each fresh VM behind the same name.
	b.WriteString("    StrictHostKeyChecking no\n")
	if h.IdentityFile != "" {
		fmt.Fprintf(&b, "    IdentityFile %s\n", h.IdentityFile)
	}
	if h.ForwardX11 {
		b.WriteString("    ForwardX11 yes\n")
	}
	return b.String()
}

// Config edits an SSH client config file in place.
type Config struct {
	path string
	log  zerolog.Logger
}

// NewConfig returns a Config for the given file. An empty path means the
// current user's ~/.ssh/config.
func NewConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "config")
	}
	return &Config{path: path, log: logging.Component("sshenv")}, nil
}

// Path returns the config file location.
func (c *Config) Path() string { return c.path }

// AddHost writes a Host block for entry, replacing an existing block with
// the same alias. The file and its directory are created on first use.
func (c *Config) AddHost(entry HostEntry) error {
	if entry.Alias == "" || entry.HostName == "" {
		return fmt.Errorf("host entry needs an alias and a host name")
	}

	content, err := c.read()
	if err != nil {
		return err
	}

	blocks := removeBlock(splitBlocks(content), entry.Alias)
	blocks = append(blocks, entry.render())

	if err := c.write(blocks); err != nil {
		return err
	}
	c.log.Info().Str("alias", entry.Alias).Str("host", entry.HostName).Msg("ssh config entry written")
	return nil
}

// RemoveHost deletes the Host block with the given alias. A missing block is
// not an error.
func (c *Config) RemoveHost(alias string) error {
	content, err := c.read()
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	return c.write(removeBlock(splitBlocks(content), alias))
}

func (c *Config) read() (string, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", c.path, err)
	}
	return string(data), nil
}

func (c *Config) write(blocks []string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(c.path), err)
	}

	var nonEmpty []string
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			nonEmpty = append(nonEmpty, strings.TrimRight(block, "\n")+"\n")
		}
	}
	content := strings.Join(nonEmpty, "\n")

	if err := os.WriteFile(c.path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return nil
}

// splitBlocks divides an ssh config into chunks starting at Host/Match
// keywords. Leading global options form their own chunk.
func splitBlocks(content string) []string {
	var blocks []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		keyword := strings.ToLower(strings.SplitN(trimmed, " ", 2)[0])
		if (keyword == "host" || keyword == "match") && current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

func removeBlock(blocks []string, alias string) []string {
	var kept []string
	for _, block := range blocks {
		first := strings.TrimSpace(strings.SplitN(block, "\n", 2)[0])
		fields := strings.Fields(first)
		if len(fields) >= 2 && strings.EqualFold(fields[0], "Host") && fields[1] == alias {
			continue
		}
		kept = append(kept, block)
	}
	return kept
}

// PruneKnownHosts removes every known_hosts line referring to host, so a
// redeployed VM with a fresh host key does not trip strict checking. An
// empty path means the current user's ~/.ssh/known_hosts; a missing file is
// fine.
func PruneKnownHosts(path, host string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if knownHostsLineMatches(line, host) {
			continue
		}
		kept = append(kept, line)
	}

	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func knownHostsLineMatches(line, host string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false
	}
	for _, name := range strings.Split(fields[0], ",") {
		name = strings.TrimPrefix(name, "[")
		if idx := strings.Index(name, "]"); idx >= 0 {
			name = name[:idx]
		}
		if name == host {
			return true
		}
	}
	return false
}
