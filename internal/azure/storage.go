package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// StorageSpec is the desired state for a storage account. The zero value
// describes a premium file-storage account open to the whole network.
type StorageSpec struct {
	// SubnetIDs restrict access to the given subnets. The subnets need the
	// Microsoft.Storage service endpoint enabled.
	SubnetIDs []string

	// AllowedIPs additionally whitelist public source addresses.
	AllowedIPs []string
}

// StorageNameAvailable checks whether a storage account name is still free in
// the global namespace.
func (c *Client) StorageNameAvailable(ctx context.Context, name string) (bool, error) {
	client, err := c.accountsClient()
	if err != nil {
		return false, err
	}

	resp, err := client.CheckNameAvailability(ctx, armstorage.AccountCheckNameAvailabilityParameters{
		Name: to.Ptr(name),
		Type: to.Ptr("Microsoft.Storage/storageAccounts"),
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check storage account name %q: %w", name, err)
	}
	return resp.NameAvailable != nil && *resp.NameAvailable, nil
}

// EnsureStorageAccount creates a premium file-storage account if absent and
// returns its primary access key. Creation pre-flights the globally unique
// name and fails with NameTakenError when another tenant owns it.
func (c *Client) EnsureStorageAccount(ctx context.Context, name string, spec StorageSpec) (string, error) {
	client, err := c.accountsClient()
	if err != nil {
		return "", err
	}
	location, err := c.Location(ctx)
	if err != nil {
		return "", err
	}

	op := &EnsureOperation[*armstorage.Account, armstorage.AccountCreateParameters]{
		Name:         name,
		ResourceType: "storage account",
		Get: func(ctx context.Context) (*armstorage.Account, error) {
			resp, err := client.GetProperties(ctx, c.resourceGroup, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Account, nil
		},
		Preflight: func(ctx context.Context) error {
			available, err := c.StorageNameAvailable(ctx, name)
			if err != nil {
				return err
			}
			if !available {
				return &NameTakenError{ResourceType: "storage account", Name: name}
			}
			return nil
		},
		BuildOpts: func() (armstorage.AccountCreateParameters, error) {
			return armstorage.AccountCreateParameters{
				Location: to.Ptr(location),
				SKU:      &armstorage.SKU{Name: to.Ptr(armstorage.SKUNamePremiumLRS)},
				Kind:     to.Ptr(armstorage.KindFileStorage),
				Properties: &armstorage.AccountPropertiesCreateParameters{
					AccessTier:             to.Ptr(armstorage.AccessTierHot),
					EnableHTTPSTrafficOnly: to.Ptr(true),
					NetworkRuleSet:         storageNetworkRules(spec),
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armstorage.AccountCreateParameters) (Operation[*armstorage.Account], error) {
			poller, err := client.BeginCreate(ctx, c.resourceGroup, name, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armstorage.AccountsClientCreateResponse) *armstorage.Account {
				return &r.Account
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	if _, err := op.Execute(waitCtx, true); err != nil {
		return "", err
	}

	keys, err := client.ListKeys(ctx, c.resourceGroup, name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list keys for storage account %q: %w", name, err)
	}
	for _, key := range keys.Keys {
		if key.Value != nil {
			c.log.Info().Str("account", name).Msg("storage account ready")
			return *key.Value, nil
		}
	}
	return "", fmt.Errorf("storage account %q returned no access keys", name)
}

func storageNetworkRules(spec StorageSpec) *armstorage.NetworkRuleSet {
	if len(spec.SubnetIDs) == 0 && len(spec.AllowedIPs) == 0 {
		return nil
	}

	rules := &armstorage.NetworkRuleSet{
		DefaultAction: to.Ptr(armstorage.DefaultActionDeny),
	}
	for _, id := range spec.SubnetIDs {
		rules.VirtualNetworkRules = append(rules.VirtualNetworkRules, &armstorage.VirtualNetworkRule{
			VirtualNetworkResourceID: to.Ptr(id),
			Action:                   to.Ptr("Allow"),
		})
	}
	for _, ip := range spec.AllowedIPs {
		rules.IPRules = append(rules.IPRules, &armstorage.IPRule{
			IPAddressOrRange: to.Ptr(ip),
			Action:           to.Ptr("Allow"),
		})
	}
	return rules
}

// EnsureFileShare creates a file share on an account if absent.
func (c *Client) EnsureFileShare(ctx context.Context, accountName, shareName string, quotaGB int32) error {
	client, err := c.fileSharesClient()
	if err != nil {
		return err
	}

	op := &EnsureOperation[*armstorage.FileShare, armstorage.FileShare]{
		Name:         shareName,
		ResourceType: "file share",
		Get: func(ctx context.Context) (*armstorage.FileShare, error) {
			resp, err := client.Get(ctx, c.resourceGroup, accountName, shareName, nil)
			if err != nil {
				return nil, err
			}
			return &resp.FileShare, nil
		},
		BuildOpts: func() (armstorage.FileShare, error) {
			if quotaGB <= 0 {
				return armstorage.FileShare{}, &MissingFieldError{ResourceType: "file share", Field: "quotaGB"}
			}
			return armstorage.FileShare{
				FileShareProperties: &armstorage.FileShareProperties{
					ShareQuota: to.Ptr(quotaGB),
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armstorage.FileShare) (Operation[*armstorage.FileShare], error) {
			resp, err := client.Create(ctx, c.resourceGroup, accountName, shareName, opts, nil)
			if err != nil {
				return nil, err
			}
			return &completedOperation[*armstorage.FileShare]{resource: &resp.FileShare}, nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	if _, err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	c.log.Info().Str("account", accountName).Str("share", shareName).Msg("file share ready")
	return nil
}
