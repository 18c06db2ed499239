// Package kubectl drives the kubectl CLI against whatever cluster the
// current kubeconfig context points at.
package kubectl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/logging"
	"github.com/nnstorm/azup/internal/shell"
)

// noWaitVerbs never accept a --wait flag.
var noWaitVerbs = map[string]bool{
	"create":  true,
	"get":     true,
	"rollout": true,
	"label":   true,
	"scale":   true,
	"logs":    true,
	"wait":    true,
}

// Client runs kubectl commands scoped to one namespace.
type Client struct {
	runner    shell.Runner
	log       zerolog.Logger
	namespace string
}

// New returns a Client scoped to namespace. An empty namespace means the
// context default.
func New(runner shell.Runner, namespace string) *Client {
	return &Client{
		runner:    runner,
		log:       logging.Component("kubectl"),
		namespace: namespace,
	}
}

// Namespace returns the namespace commands run in.
func (c *Client) Namespace() string { return c.namespace }

// InNamespace returns a Client identical to c but scoped to another
// namespace.
func (c *Client) InNamespace(namespace string) *Client {
	return &Client{runner: c.runner, log: c.log, namespace: namespace}
}

// argv assembles a kubectl command line. The --wait flag is only attached
// to verbs that accept it.
func (c *Client) argv(wait bool, args ...string) []string {
	out := []string{"kubectl"}
	if c.namespace != "" {
		out = append(out, "--namespace", c.namespace)
	}
	out = append(out, args...)
	if len(args) > 0 && !noWaitVerbs[args[0]] {
		out = append(out, fmt.Sprintf("--wait=%t", wait))
	}
	return out
}

func (c *Client) run(ctx context.Context, wait bool, args ...string) (shell.Result, error) {
	return c.runner.Run(ctx, c.argv(wait, args...))
}

// Apply applies a manifest file or directory.
func (c *Client) Apply(ctx context.Context, path string) error {
	if _, err := c.run(ctx, true, "apply", "-f", path); err != nil {
		return fmt.Errorf("failed to apply %s: %w", path, err)
	}
	return nil
}

// CreateNamespace creates a namespace. One that already exists is fine.
func (c *Client) CreateNamespace(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, []string{"kubectl", "create", "namespace", name}); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// DeleteResource deletes a named resource. With tolerant an absent resource
// counts as deleted.
func (c *Client) DeleteResource(ctx context.Context, kind, name string, tolerant bool) error {
	if _, err := c.run(ctx, true, "delete", kind, name); err != nil {
		if tolerant && isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s/%s: %w", kind, name, err)
	}
	return nil
}

// DeleteNamespace deletes a namespace and waits for it to go away. A missing
// namespace is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, []string{"kubectl", "delete", "namespace", name, "--wait=true"}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	return nil
}

// DeletePath deletes everything a manifest file created. Absent resources
// are tolerated.
func (c *Client) DeletePath(ctx context.Context, path string) error {
	if _, err := c.run(ctx, true, "delete", "-f", path, "--ignore-not-found"); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Label sets labels on a resource, overwriting existing values.
func (c *Client) Label(ctx context.Context, kind, name string, labels map[string]string) error {
	args := []string{"label", "--overwrite", kind, name}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k+"="+labels[k])
	}

	if _, err := c.run(ctx, true, args...); err != nil {
		return fmt.Errorf("failed to label %s/%s: %w", kind, name, err)
	}
	return nil
}

// Scale sets the replica count of a scalable resource.
func (c *Client) Scale(ctx context.Context, kind, name string, replicas int) error {
	if _, err := c.run(ctx, true, "scale", kind, name, fmt.Sprintf("--replicas=%d", replicas)); err != nil {
		return fmt.Errorf("failed to scale %s/%s: %w", kind, name, err)
	}
	return nil
}

// RolloutRestart triggers a rolling restart of a deployment or similar.
func (c *Client) RolloutRestart(ctx context.Context, kind, name string) error {
	if _, err := c.run(ctx, true, "rollout", "restart", kind+"/"+name); err != nil {
		return fmt.Errorf("failed to restart %s/%s: %w", kind, name, err)
	}
	return nil
}

// Logs fetches the logs of a pod's default container.
func (c *Client) Logs(ctx context.Context, pod string) (string, error) {
	result, err := c.run(ctx, true, "logs", pod)
	if err != nil {
		return "", fmt.Errorf("failed to get logs for %s: %w", pod, err)
	}
	return result.Stdout, nil
}

// GetJSON fetches a resource and unmarshals it into out. Use "kind/name" or
// a bare kind with name == "" for lists.
func (c *Client) GetJSON(ctx context.Context, kind, name string, out any) error {
	args := []string{"get", kind}
	if name != "" {
		args = append(args, name)
	}
	args = append(args, "-o", "json")

	result, err := c.run(ctx, true, args...)
	if err != nil {
		return fmt.Errorf("failed to get %s %s: %w", kind, name, err)
	}
	if err := json.Unmarshal([]byte(result.Stdout), out); err != nil {
		return fmt.Errorf("failed to parse %s %s: %w", kind, name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return stderrContains(err, "not found", "NotFound")
}

func isAlreadyExists(err error) bool {
	return stderrContains(err, "already exists", "AlreadyExists")
}

func stderrContains(err error, needles ...string) bool {
	var cmdErr *shell.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, needle := range needles {
		if strings.Contains(cmdErr.Stderr, needle) {
			return true
		}
	}
	return false
}
