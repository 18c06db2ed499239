package azure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "azure_auth.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	t.Parallel()

	path := writeCredFile(t, `{
		"tenantId": "tenant-1",
		"clientId": "client-1",
		"clientSecret": "secret-1",
		"subscriptionId": "sub-1"
	}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", creds.TenantID)
	assert.Equal(t, "client-1", creds.ClientID)
	assert.Equal(t, "secret-1", creds.ClientSecret)
	assert.Equal(t, "sub-1", creds.SubscriptionID)
}

func TestLoadCredentials_FallbackKeys(t *testing.T) {
	t.Parallel()

	path := writeCredFile(t, `{
		"tenant": "tenant-1",
		"appId": "client-1",
		"password": "secret-1",
		"subscriptionId": "sub-1"
	}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", creds.TenantID)
	assert.Equal(t, "client-1", creds.ClientID)
	assert.Equal(t, "secret-1", creds.ClientSecret)
}

func TestLoadCredentials_PrimaryKeyWins(t *testing.T) {
	t.Parallel()

	path := writeCredFile(t, `{
		"tenantId": "primary",
		"tenant": "fallback",
		"clientId": "c",
		"clientSecret": "s",
		"subscriptionId": "sub"
	}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "primary", creds.TenantID)
}

func TestLoadCredentials_MissingField(t *testing.T) {
	t.Parallel()

	path := writeCredFile(t, `{"tenantId": "t", "clientId": "c", "clientSecret": "s"}`)

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscriptionId")
}

func TestLoadCredentials_BadJSON(t *testing.T) {
	t.Parallel()

	_, err := LoadCredentials(writeCredFile(t, "not json"))
	assert.Error(t, err)
}

func TestLoadCredentials_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
