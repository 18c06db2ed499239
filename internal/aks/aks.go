// Package aks connects the local kubeconfig to an AKS cluster and answers
// version and reachability questions about it.
package aks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/nnstorm/azup/internal/logging"
	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/util/wait"
)

// Client manages access to one AKS cluster through the az CLI.
type Client struct {
	runner        shell.Runner
	log           zerolog.Logger
	resourceGroup string
	cluster       string
}

// New returns a Client for the named cluster.
func New(runner shell.Runner, resourceGroup, cluster string) *Client {
	return &Client{
		runner:        runner,
		log:           logging.Component("aks"),
		resourceGroup: resourceGroup,
		cluster:       cluster,
	}
}

// GetCredentials merges the cluster's credentials into the local kubeconfig,
// overwriting a stale entry for the same cluster.
func (c *Client) GetCredentials(ctx context.Context) error {
	argv := []string{
		"az", "aks", "get-credentials",
		"--resource-group", c.resourceGroup,
		"--name", c.cluster,
		"--overwrite-existing",
	}
	if _, err := c.runner.Run(ctx, argv); err != nil {
		return fmt.Errorf("failed to get credentials for cluster %s: %w", c.cluster, err)
	}
	c.log.Info().Str("cluster", c.cluster).Msg("kubeconfig updated")
	return nil
}

// versionListing covers both shapes az aks get-versions has emitted over
// time.
type versionListing struct {
	Orchestrators []struct {
		OrchestratorVersion string `json:"orchestratorVersion"`
		IsPreview           bool   `json:"isPreview"`
	} `json:"orchestrators"`
	Values []struct {
		Version   string `json:"version"`
		IsPreview bool   `json:"isPreview"`
	} `json:"values"`
}

// LatestVersion returns the newest non-preview Kubernetes version AKS offers
// in the given location.
func (c *Client) LatestVersion(ctx context.Context, location string) (string, error) {
	result, err := c.runner.Run(ctx, []string{"az", "aks", "get-versions", "--location", location, "-o", "json"})
	if err != nil {
		return "", fmt.Errorf("failed to list AKS versions in %s: %w", location, err)
	}

	var listing versionListing
	if err := json.Unmarshal([]byte(result.Stdout), &listing); err != nil {
		return "", fmt.Errorf("failed to parse AKS version listing: %w", err)
	}

	var latest *semver.Version
	consider := func(raw string, preview bool) {
		if preview || raw == "" {
			return
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}
	for _, o := range listing.Orchestrators {
		consider(o.OrchestratorVersion, o.IsPreview)
	}
	for _, v := range listing.Values {
		consider(v.Version, v.IsPreview)
	}

	if latest == nil {
		return "", fmt.Errorf("no stable AKS version available in %s", location)
	}
	return latest.Original(), nil
}

// WaitReachable blocks until the cluster's API server answers a version
// probe through the current kubeconfig context. wait.ErrTimeout is in the
// error chain when the timeout elapses first.
func (c *Client) WaitReachable(ctx context.Context, kubeconfig string, interval, timeout time.Duration) error {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, nil).ClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("failed to build cluster client: %w", err)
	}

	err = wait.Until(ctx, interval, timeout, func(context.Context) (bool, error) {
		if _, err := clientset.Discovery().ServerVersion(); err != nil {
			c.log.Debug().Err(err).Str("cluster", c.cluster).Msg("API server not answering yet")
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("cluster %s not reachable: %w", c.cluster, err)
	}
	c.log.Info().Str("cluster", c.cluster).Msg("cluster reachable")
	return nil
}
