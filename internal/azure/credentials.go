package azure

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Credentials identify the service principal used for all management calls.
//
// The on-disk file is the JSON produced by "az ad sp create-for-rbac". Two
// historical key conventions exist for the same fields; both are accepted:
// tenantId/tenant, clientId/appId, clientSecret/password.
type Credentials struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

// LoadCredentials reads and validates a credential file.
func LoadCredentials(path string) (*Credentials, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}

	creds := &Credentials{
		TenantID:       firstOf(raw, "tenantId", "tenant"),
		ClientID:       firstOf(raw, "clientId", "appId"),
		ClientSecret:   firstOf(raw, "clientSecret", "password"),
		SubscriptionID: raw["subscriptionId"],
	}

	switch {
	case creds.TenantID == "":
		return nil, fmt.Errorf("credential file %s: missing tenantId", path)
	case creds.ClientID == "":
		return nil, fmt.Errorf("credential file %s: missing clientId", path)
	case creds.ClientSecret == "":
		return nil, fmt.Errorf("credential file %s: missing clientSecret", path)
	case creds.SubscriptionID == "":
		return nil, fmt.Errorf("credential file %s: missing subscriptionId", path)
	}

	return creds, nil
}

// TokenCredential builds the client-secret credential used by every SDK client.
func (c *Credentials) TokenCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build service principal credential: %w", err)
	}
	return cred, nil
}

func firstOf(raw map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := raw[key]; v != "" {
			return v
		}
	}
	return ""
}
