package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
location: westeurope
resourceGroup: dev-rsg
keyVault: dev-vault
`

const validCreds = `{
	"tenantId": "t",
	"clientId": "c",
	"clientSecret": "s",
	"subscriptionId": "sub"
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name          string
		opts          func(t *testing.T) Options
		errorContains string
	}{
		{
			name: "missing config file",
			opts: func(t *testing.T) Options {
				return Options{
					ConfigPath:      filepath.Join(t.TempDir(), "absent.yaml"),
					CredentialsPath: writeTemp(t, "creds.json", validCreds),
				}
			},
			errorContains: "failed to load config",
		},
		{
			name: "invalid config",
			opts: func(t *testing.T) Options {
				return Options{
					ConfigPath:      writeTemp(t, "azup.yaml", "resourceGroup: rsg\n"),
					CredentialsPath: writeTemp(t, "creds.json", validCreds),
				}
			},
			errorContains: "location",
		},
		{
			name: "no credentials anywhere",
			opts: func(t *testing.T) Options {
				t.Setenv("AZURE_AUTH_LOCATION", "")
				return Options{ConfigPath: writeTemp(t, "azup.yaml", validConfig)}
			},
			errorContains: "no credential file",
		},
		{
			name: "credential file missing a field",
			opts: func(t *testing.T) Options {
				return Options{
					ConfigPath:      writeTemp(t, "azup.yaml", validConfig),
					CredentialsPath: writeTemp(t, "creds.json", `{"tenantId": "t"}`),
				}
			},
			errorContains: "clientId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := setup(tt.opts(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestSetup_Valid(t *testing.T) {
	env, err := setup(Options{
		ConfigPath:      writeTemp(t, "azup.yaml", validConfig),
		CredentialsPath: writeTemp(t, "creds.json", validCreds),
	})
	require.NoError(t, err)
	assert.Equal(t, "dev-rsg", env.client.ResourceGroup())
	assert.Equal(t, "sub", env.client.SubscriptionID())

	deployer, err := env.deployer()
	require.NoError(t, err)
	assert.NotNil(t, deployer)
}

func TestDeployer_RequiresVault(t *testing.T) {
	env, err := setup(Options{
		ConfigPath:      writeTemp(t, "azup.yaml", "location: westeurope\nresourceGroup: rsg\n"),
		CredentialsPath: writeTemp(t, "creds.json", validCreds),
	})
	require.NoError(t, err)

	_, err = env.deployer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyVault")
}

func TestCredentialsPath_EnvFallback(t *testing.T) {
	path := writeTemp(t, "creds.json", validCreds)
	t.Setenv("AZURE_AUTH_LOCATION", path)

	got, err := Options{}.credentialsPath()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}
