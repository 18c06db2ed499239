package kubectl

import (
	"context"
	"fmt"
	"sort"
)

// CreateSecret creates a generic secret from literal key/value pairs,
// replacing an existing secret of the same name.
func (c *Client) CreateSecret(ctx context.Context, name string, literals map[string]string) error {
	if err := c.DeleteResource(ctx, "secret", name, true); err != nil {
		return err
	}

	args := []string{"create", "secret", "generic", name}
	keys := make([]string, 0, len(literals))
	for k := range literals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--from-literal="+k+"="+literals[k])
	}

	if _, err := c.run(ctx, true, args...); err != nil {
		return fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	return nil
}

// CreateSecretFromFiles creates a generic secret whose keys are file names
// and values file contents, replacing an existing secret of the same name.
func (c *Client) CreateSecretFromFiles(ctx context.Context, name string, files []string) error {
	if err := c.DeleteResource(ctx, "secret", name, true); err != nil {
		return err
	}

	args := []string{"create", "secret", "generic", name}
	for _, f := range files {
		args = append(args, "--from-file="+f)
	}

	if _, err := c.run(ctx, true, args...); err != nil {
		return fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	return nil
}

// CreateTLSSecret creates a TLS secret from a certificate and key file,
// replacing an existing secret of the same name.
func (c *Client) CreateTLSSecret(ctx context.Context, name, certFile, keyFile string) error {
	if err := c.DeleteResource(ctx, "secret", name, true); err != nil {
		return err
	}

	if _, err := c.run(ctx, true, "create", "secret", "tls", name, "--cert="+certFile, "--key="+keyFile); err != nil {
		return fmt.Errorf("failed to create TLS secret %s: %w", name, err)
	}
	return nil
}

// CreateRegistrySecret creates a docker-registry pull secret, replacing an
// existing secret of the same name.
func (c *Client) CreateRegistrySecret(ctx context.Context, name, server, username, password, email string) error {
	if err := c.DeleteResource(ctx, "secret", name, true); err != nil {
		return err
	}

	args := []string{
		"create", "secret", "docker-registry", name,
		"--docker-server=" + server,
		"--docker-username=" + username,
		"--docker-password=" + password,
	}
	if email != "" {
		args = append(args, "--docker-email="+email)
	}

	if _, err := c.run(ctx, true, args...); err != nil {
		return fmt.Errorf("failed to create registry secret %s: %w", name, err)
	}
	return nil
}

// CopySecret copies a secret from one namespace into the client's namespace.
// kubectl has no native verb for this, so the secret manifest is rewritten
// in flight.
func (c *Client) CopySecret(ctx context.Context, name, fromNamespace string) error {
	script := fmt.Sprintf(
		"kubectl get secret %s --namespace=%s -o yaml | sed 's/namespace: %s/namespace: %s/' | kubectl apply --namespace=%s -f -",
		name, fromNamespace, fromNamespace, c.namespace, c.namespace,
	)
	if _, err := c.runner.RunPipeline(ctx, script); err != nil {
		return fmt.Errorf("failed to copy secret %s from %s to %s: %w", name, fromNamespace, c.namespace, err)
	}
	c.log.Debug().Str("secret", name).Str("from", fromNamespace).Str("to", c.namespace).Msg("secret copied")
	return nil
}

// CreateConfigMap creates a config map from literal key/value pairs,
// replacing an existing one of the same name.
func (c *Client) CreateConfigMap(ctx context.Context, name string, literals map[string]string) error {
	if err := c.DeleteResource(ctx, "configmap", name, true); err != nil {
		return err
	}

	args := []string{"create", "configmap", name}
	keys := make([]string, 0, len(literals))
	for k := range literals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--from-literal="+k+"="+literals[k])
	}

	if _, err := c.run(ctx, true, args...); err != nil {
		return fmt.Errorf("failed to create configmap %s: %w", name, err)
	}
	return nil
}
