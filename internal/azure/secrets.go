package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

func (v *Vault) secretsClient() (*azsecrets.Client, error) {
	return v.secrets.get(func() (*azsecrets.Client, error) {
		return azsecrets.NewClient(v.URL(), v.client.cred, nil)
	})
}

// GetSecret fetches the current version of a secret's value.
func (v *Vault) GetSecret(ctx context.Context, name string) (string, error) {
	client, err := v.secretsClient()
	if err != nil {
		return "", err
	}

	resp, err := client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %q from vault %q: %w", name, v.name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q in vault %q has no value", name, v.name)
	}
	return *resp.Value, nil
}

// SetSecret writes a secret value, creating a new version if the secret
// already exists.
func (v *Vault) SetSecret(ctx context.Context, name, value string) error {
	client, err := v.secretsClient()
	if err != nil {
		return err
	}

	_, err = client.SetSecret(ctx, name, azsecrets.SetSecretParameters{Value: to.Ptr(value)}, nil)
	if err != nil {
		return fmt.Errorf("failed to set secret %q in vault %q: %w", name, v.name, err)
	}
	return nil
}

// DeleteSecret removes a secret. A missing secret is not an error. With purge
// the soft-deleted remnant is removed too, freeing the name immediately.
func (v *Vault) DeleteSecret(ctx context.Context, name string, purge bool) error {
	client, err := v.secretsClient()
	if err != nil {
		return err
	}

	if _, err := client.DeleteSecret(ctx, name, nil); err != nil {
		if !IsNotFound(err) {
			return fmt.Errorf("failed to delete secret %q from vault %q: %w", name, v.name, err)
		}
	}
	if !purge {
		return nil
	}

	if _, err := client.PurgeDeletedSecret(ctx, name, nil); err != nil && !IsNotFound(err) && !IsConflict(err) {
		return fmt.Errorf("failed to purge secret %q from vault %q: %w", name, v.name, err)
	}
	return nil
}
