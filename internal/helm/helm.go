// Package helm drives the helm CLI for chart lifecycle management. All
// interaction goes through the helm binary; no chart rendering happens
// in-process.
package helm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/logging"
	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/util/retry"
)

// DefaultTimeout bounds chart installation, matching long cluster rollouts.
const DefaultTimeout = 900 * time.Second

const repoUpdateAttempts = 10

// Client runs helm commands. Each Client owns its repository registry, so
// two Clients can track different repo sets without interfering.
type Client struct {
	runner shell.Runner
	log    zerolog.Logger
	repos  map[string]string
}

// New returns a Client preloaded with the repositories the deployments here
// rely on.
func New(runner shell.Runner) *Client {
	return &Client{
		runner: runner,
		log:    logging.Component("helm"),
		repos: map[string]string{
			"stable":        "https://charts.helm.sh/stable",
			"ingress-nginx": "https://kubernetes.github.io/ingress-nginx",
		},
	}
}

// Repos returns the registered repository names and URLs.
func (c *Client) Repos() map[string]string {
	out := make(map[string]string, len(c.repos))
	for name, url := range c.repos {
		out[name] = url
	}
	return out
}

// RegisterRepo records a repository without contacting it. AddRepos makes
// the registry known to helm.
func (c *Client) RegisterRepo(name, url string) {
	c.repos[name] = url
}

// AddRepos runs "helm repo add" for every registered repository and then
// refreshes the local index. Index refreshes hit flaky CDNs, so both steps
// retry.
func (c *Client) AddRepos(ctx context.Context) error {
	names := make([]string, 0, len(c.repos))
	for name := range c.repos {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		url := c.repos[name]
		err := retry.Do(ctx, func() error {
			_, err := c.runner.Run(ctx, []string{"helm", "repo", "add", name, url, "--force-update"})
			return err
		}, retry.Attempts(repoUpdateAttempts))
		if err != nil {
			return fmt.Errorf("failed to add helm repo %s: %w", name, err)
		}
		c.log.Debug().Str("repo", name).Str("url", url).Msg("helm repo added")
	}
	return c.UpdateRepos(ctx)
}

// UpdateRepos refreshes the local repository index.
func (c *Client) UpdateRepos(ctx context.Context) error {
	err := retry.Do(ctx, func() error {
		_, err := c.runner.Run(ctx, []string{"helm", "repo", "update"})
		return err
	}, retry.Attempts(repoUpdateAttempts))
	if err != nil {
		return fmt.Errorf("failed to update helm repos: %w", err)
	}
	return nil
}

// InstallOptions configure a chart installation.
type InstallOptions struct {
	Namespace       string
	CreateNamespace bool

	// Values become repeated --set key=value flags, emitted in sorted key
	// order so the argv is deterministic.
	Values map[string]string

	// ValuesFiles become repeated -f flags, in order.
	ValuesFiles []string

	Version string

	// Atomic rolls the release back if the install does not complete.
	Atomic bool

	// Timeout bounds the install. Zero means DefaultTimeout.
	Timeout time.Duration

	Debug bool
}

func (o *InstallOptions) args() []string {
	var args []string
	if o.Namespace != "" {
		args = append(args, "--namespace", o.Namespace)
	}
	if o.CreateNamespace {
		args = append(args, "--create-namespace")
	}
	keys := make([]string, 0, len(o.Values))
	for k := range o.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", k+"="+o.Values[k])
	}
	for _, f := range o.ValuesFiles {
		args = append(args, "-f", f)
	}
	if o.Version != "" {
		args = append(args, "--version", o.Version)
	}
	if o.Atomic {
		args = append(args, "--atomic")
	}
	timeout := o.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	args = append(args, fmt.Sprintf("--timeout=%s", timeout))
	if o.Debug {
		args = append(args, "--debug")
	}
	return args
}

// Install installs a chart as the named release.
func (c *Client) Install(ctx context.Context, release, chart string, opts InstallOptions) error {
	argv := append([]string{"helm", "install", release, chart}, opts.args()...)

	c.log.Info().Str("release", release).Str("chart", chart).Msg("installing chart")
	if _, err := c.runner.Run(ctx, argv, shell.Stream()); err != nil {
		return fmt.Errorf("failed to install release %s: %w", release, err)
	}
	return nil
}

// Upgrade upgrades a release in place, installing it when absent.
func (c *Client) Upgrade(ctx context.Context, release, chart string, opts InstallOptions) error {
	argv := append([]string{"helm", "upgrade", "--install", release, chart}, opts.args()...)

	c.log.Info().Str("release", release).Str("chart", chart).Msg("upgrading chart")
	if _, err := c.runner.Run(ctx, argv, shell.Stream()); err != nil {
		return fmt.Errorf("failed to upgrade release %s: %w", release, err)
	}
	return nil
}

// Reinstall uninstalls the release if present and installs it fresh. Used
// when a release is wedged beyond what upgrade can fix.
func (c *Client) Reinstall(ctx context.Context, release, chart string, opts InstallOptions) error {
	if err := c.Uninstall(ctx, release, opts.Namespace, true); err != nil {
		return err
	}
	return c.Install(ctx, release, chart, opts)
}

// Uninstall removes a release. With tolerant a release that does not exist
// counts as uninstalled.
func (c *Client) Uninstall(ctx context.Context, release, namespace string, tolerant bool) error {
	argv := []string{"helm", "uninstall", release}
	if namespace != "" {
		argv = append(argv, "--namespace", namespace)
	}

	if _, err := c.runner.Run(ctx, argv); err != nil {
		if tolerant && isReleaseNotFound(err) {
			c.log.Debug().Str("release", release).Msg("release already absent")
			return nil
		}
		return fmt.Errorf("failed to uninstall release %s: %w", release, err)
	}
	return nil
}

// Exists reports whether a release is installed.
func (c *Client) Exists(ctx context.Context, release, namespace string) (bool, error) {
	argv := []string{"helm", "status", release}
	if namespace != "" {
		argv = append(argv, "--namespace", namespace)
	}

	if _, err := c.runner.Run(ctx, argv); err != nil {
		if isReleaseNotFound(err) {
			return false, nil
		}
		var cmdErr *shell.CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isReleaseNotFound(err error) bool {
	var cmdErr *shell.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(cmdErr.Stderr, "not found")
}
