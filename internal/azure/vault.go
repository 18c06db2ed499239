package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/nnstorm/azup/internal/util/retry"
)

// Vault wraps one key vault: management-plane lifecycle plus data-plane
// secret access.
type Vault struct {
	client  *Client
	name    string
	secrets lazyClient[*azsecrets.Client]
}

// VaultOptions is the desired state for a key vault.
type VaultOptions struct {
	// ObjectIDs receive full secret permissions via access policies. The
	// service principal's own object ID belongs here.
	ObjectIDs []string

	// SubnetIDs restrict network access to the given subnets. The subnets
	// need the Microsoft.KeyVault service endpoint enabled.
	SubnetIDs []string

	// AllowedIPs additionally whitelist public source addresses.
	AllowedIPs []string
}

// Vault returns a handle to the named key vault. No provider call is made.
func (c *Client) Vault(name string) *Vault {
	return &Vault{client: c, name: name}
}

// Name returns the vault name.
func (v *Vault) Name() string { return v.name }

// URL returns the vault's data-plane endpoint.
func (v *Vault) URL() string {
	return fmt.Sprintf("https://%s.vault.azure.net", v.name)
}

// NameAvailable checks whether the vault name is free. Soft-deleted vaults
// still hold their name, so the recently-deleted list is scanned too.
func (v *Vault) NameAvailable(ctx context.Context) (bool, error) {
	client, err := v.client.vaultsClient()
	if err != nil {
		return false, err
	}

	resp, err := client.CheckNameAvailability(ctx, armkeyvault.VaultCheckNameAvailabilityParameters{
		Name: to.Ptr(v.name),
		Type: to.Ptr("Microsoft.KeyVault/vaults"),
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check key vault name %q: %w", v.name, err)
	}
	if resp.NameAvailable != nil && !*resp.NameAvailable {
		return false, nil
	}

	pager := client.NewListDeletedPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list deleted key vaults: %w", err)
		}
		for _, deleted := range page.Value {
			if deleted.Name != nil && *deleted.Name == v.name {
				return false, nil
			}
		}
	}
	return true, nil
}

// Ensure creates the vault if absent and waits until its data plane answers
// secret operations. Creation pre-flights the name against live and
// soft-deleted vaults.
func (v *Vault) Ensure(ctx context.Context, opts VaultOptions) error {
	client, err := v.client.vaultsClient()
	if err != nil {
		return err
	}
	location, err := v.client.Location(ctx)
	if err != nil {
		return err
	}

	op := &EnsureOperation[*armkeyvault.Vault, armkeyvault.VaultCreateOrUpdateParameters]{
		Name:         v.name,
		ResourceType: "key vault",
		Get: func(ctx context.Context) (*armkeyvault.Vault, error) {
			resp, err := client.Get(ctx, v.client.resourceGroup, v.name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Vault, nil
		},
		Preflight: func(ctx context.Context) error {
			available, err := v.NameAvailable(ctx)
			if err != nil {
				return err
			}
			if !available {
				return &NameTakenError{
					ResourceType: "key vault",
					Name:         v.name,
					Reason:       "in use or soft-deleted; purge it or pick another name",
				}
			}
			return nil
		},
		BuildOpts: func() (armkeyvault.VaultCreateOrUpdateParameters, error) {
			return armkeyvault.VaultCreateOrUpdateParameters{
				Location: to.Ptr(location),
				Properties: &armkeyvault.VaultProperties{
					TenantID: to.Ptr(v.client.creds.TenantID),
					SKU: &armkeyvault.SKU{
						Family: to.Ptr(armkeyvault.SKUFamilyA),
						Name:   to.Ptr(armkeyvault.SKUNameStandard),
					},
					AccessPolicies: v.accessPolicies(opts.ObjectIDs),
					NetworkACLs:    vaultNetworkACLs(opts),
				},
			}, nil
		},
		Create: func(ctx context.Context, params armkeyvault.VaultCreateOrUpdateParameters) (Operation[*armkeyvault.Vault], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, v.client.resourceGroup, v.name, params, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, v.client.timeouts.PollInterval, func(r armkeyvault.VaultsClientCreateOrUpdateResponse) *armkeyvault.Vault {
				return &r.Vault
			}), nil
		},
	}

	waitCtx, cancel := v.client.provisionCtx(ctx)
	defer cancel()

	if _, err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	return v.WaitReady(ctx)
}

func (v *Vault) accessPolicies(objectIDs []string) []*armkeyvault.AccessPolicyEntry {
	policies := make([]*armkeyvault.AccessPolicyEntry, 0, len(objectIDs))
	for _, objectID := range objectIDs {
		policies = append(policies, &armkeyvault.AccessPolicyEntry{
			TenantID: to.Ptr(v.client.creds.TenantID),
			ObjectID: to.Ptr(objectID),
			Permissions: &armkeyvault.Permissions{
				Secrets: []*armkeyvault.SecretPermissions{
					to.Ptr(armkeyvault.SecretPermissionsGet),
					to.Ptr(armkeyvault.SecretPermissionsList),
					to.Ptr(armkeyvault.SecretPermissionsSet),
					to.Ptr(armkeyvault.SecretPermissionsDelete),
					to.Ptr(armkeyvault.SecretPermissionsPurge),
					to.Ptr(armkeyvault.SecretPermissionsRecover),
				},
			},
		})
	}
	return policies
}

func vaultNetworkACLs(opts VaultOptions) *armkeyvault.NetworkRuleSet {
	if len(opts.SubnetIDs) == 0 && len(opts.AllowedIPs) == 0 {
		return nil
	}

	acls := &armkeyvault.NetworkRuleSet{
		Bypass:        to.Ptr(armkeyvault.NetworkRuleBypassOptionsAzureServices),
		DefaultAction: to.Ptr(armkeyvault.NetworkRuleActionDeny),
	}
	for _, id := range opts.SubnetIDs {
		acls.VirtualNetworkRules = append(acls.VirtualNetworkRules, &armkeyvault.VirtualNetworkRule{
			ID: to.Ptr(id),
		})
	}
	for _, ip := range opts.AllowedIPs {
		acls.IPRules = append(acls.IPRules, &armkeyvault.IPRule{
			Value: to.Ptr(ip),
		})
	}
	return acls
}

// WaitReady blocks until a secret round-trip (set, then delete) succeeds.
// A vault whose control plane says Succeeded can still refuse data-plane
// calls for a while after creation or ACL changes.
func (v *Vault) WaitReady(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, v.client.timeouts.VaultReady)
	defer cancel()

	const probe = "test"
	err := retry.Do(waitCtx, func() error {
		if err := v.SetSecret(waitCtx, probe, "ok"); err != nil {
			return err
		}
		return v.DeleteSecret(waitCtx, probe, false)
	},
		retry.Attempts(v.client.timeouts.RetryMaxAttempts),
		retry.InitialDelay(v.client.timeouts.RetryInitialDelay),
	)
	if err != nil {
		return fmt.Errorf("key vault %q not answering secret operations: %w", v.name, err)
	}
	v.client.log.Info().Str("vault", v.name).Msg("key vault ready")
	return nil
}

// GrantAccess adds a full-secret-permissions access policy for the object ID.
func (v *Vault) GrantAccess(ctx context.Context, objectID string) error {
	client, err := v.client.vaultsClient()
	if err != nil {
		return err
	}

	_, err = client.UpdateAccessPolicy(ctx, v.client.resourceGroup, v.name, armkeyvault.AccessPolicyUpdateKindAdd,
		armkeyvault.VaultAccessPolicyParameters{
			Properties: &armkeyvault.VaultAccessPolicyProperties{
				AccessPolicies: v.accessPolicies([]string{objectID}),
			},
		}, nil)
	if err != nil {
		return fmt.Errorf("failed to grant %q access to key vault %q: %w", objectID, v.name, err)
	}
	return nil
}

// Delete removes the vault, optionally purging the soft-deleted remnant so
// the name is reusable immediately. With failOK all errors are logged and
// swallowed.
func (v *Vault) Delete(ctx context.Context, purge, failOK bool) error {
	err := v.delete(ctx, purge)
	if err != nil && failOK {
		v.client.log.Warn().Err(err).Str("vault", v.name).Msg("ignoring key vault deletion failure")
		return nil
	}
	return err
}

func (v *Vault) delete(ctx context.Context, purge bool) error {
	client, err := v.client.vaultsClient()
	if err != nil {
		return err
	}
	location, err := v.client.Location(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Delete(ctx, v.client.resourceGroup, v.name, nil); err != nil {
		if !IsNotFound(err) {
			return fmt.Errorf("failed to delete key vault %q: %w", v.name, err)
		}
	}
	if !purge {
		return nil
	}

	waitCtx, cancel := v.client.deleteCtx(ctx)
	defer cancel()

	poller, err := client.BeginPurgeDeleted(waitCtx, v.name, location, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to purge key vault %q: %w", v.name, err)
	}
	op := newPollerOperation(poller, v.client.timeouts.PollInterval, discard[armkeyvault.VaultsClientPurgeDeletedResponse])
	if _, err := op.Wait(waitCtx); err != nil {
		return fmt.Errorf("failed waiting for purge of key vault %q: %w", v.name, err)
	}
	v.client.log.Info().Str("vault", v.name).Msg("key vault deleted and purged")
	return nil
}
