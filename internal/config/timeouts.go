package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the bounds applied to blocking waits. Every value can be
// overridden through an environment variable.
type Timeouts struct {
	Provision         time.Duration // resource create/update polling
	Delete            time.Duration // resource deletion polling
	ServiceProbe      time.Duration // VM ping/ssh readiness probing
	VaultReady        time.Duration // key vault secret round-trip after create
	ClusterReady      time.Duration // AKS API server reachability after login
	PollInterval      time.Duration // interval between poll attempts
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// LoadTimeouts reads timeout configuration from the environment.
//
// Environment variables:
//   - AZUP_TIMEOUT_PROVISION (default: 15m)
//   - AZUP_TIMEOUT_DELETE (default: 20m)
//   - AZUP_TIMEOUT_SERVICE_PROBE (default: 10m)
//   - AZUP_TIMEOUT_VAULT_READY (default: 5m)
//   - AZUP_TIMEOUT_CLUSTER_READY (default: 5m)
//   - AZUP_POLL_INTERVAL (default: 1s)
//   - AZUP_RETRY_MAX_ATTEMPTS (default: 10)
//   - AZUP_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Provision:         parseDuration("AZUP_TIMEOUT_PROVISION", 15*time.Minute),
		Delete:            parseDuration("AZUP_TIMEOUT_DELETE", 20*time.Minute),
		ServiceProbe:      parseDuration("AZUP_TIMEOUT_SERVICE_PROBE", 10*time.Minute),
		VaultReady:        parseDuration("AZUP_TIMEOUT_VAULT_READY", 5*time.Minute),
		ClusterReady:      parseDuration("AZUP_TIMEOUT_CLUSTER_READY", 5*time.Minute),
		PollInterval:      parseDuration("AZUP_POLL_INTERVAL", time.Second),
		RetryMaxAttempts:  parseInt("AZUP_RETRY_MAX_ATTEMPTS", 10),
		RetryInitialDelay: parseDuration("AZUP_RETRY_INITIAL_DELAY", time.Second),
	}
}

// TestTimeouts returns short bounds for use in tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		Provision:         time.Second,
		Delete:            time.Second,
		ServiceProbe:      time.Second,
		VaultReady:        time.Second,
		ClusterReady:      time.Second,
		PollInterval:      time.Millisecond,
		RetryMaxAttempts:  2,
		RetryInitialDelay: time.Millisecond,
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
