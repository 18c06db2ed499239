package helm

import (
	"context"
	"fmt"
)

const (
	ingressRepo  = "ingress-nginx"
	ingressChart = "ingress-nginx/ingress-nginx"
)

// IngressOptions configure an ingress-nginx deployment.
type IngressOptions struct {
	Namespace string

	// StaticIP pins the controller service to a pre-allocated public IP.
	StaticIP string

	// ResourceGroup is the group holding StaticIP when it lives outside the
	// cluster's node resource group.
	ResourceGroup string

	// Replicas overrides the controller replica count. Zero keeps the chart
	// default.
	Replicas int
}

// DeployIngress installs or upgrades the ingress-nginx controller.
func (c *Client) DeployIngress(ctx context.Context, release string, opts IngressOptions) error {
	if _, ok := c.repos[ingressRepo]; !ok {
		c.RegisterRepo(ingressRepo, "https://kubernetes.github.io/ingress-nginx")
	}
	if err := c.AddRepos(ctx); err != nil {
		return err
	}

	values := map[string]string{
		"controller.service.externalTrafficPolicy": "Local",
	}
	if opts.StaticIP != "" {
		values["controller.service.loadBalancerIP"] = opts.StaticIP
	}
	if opts.ResourceGroup != "" {
		values[`controller.service.annotations.service\.beta\.kubernetes\.io/azure-load-balancer-resource-group`] = opts.ResourceGroup
	}
	if opts.Replicas > 0 {
		values["controller.replicaCount"] = fmt.Sprintf("%d", opts.Replicas)
	}

	return c.Upgrade(ctx, release, ingressChart, InstallOptions{
		Namespace:       opts.Namespace,
		CreateNamespace: true,
		Values:          values,
		Atomic:          true,
	})
}

// IngressControllerService returns the name of the controller's service as
// created by the chart for the given release.
func IngressControllerService(release string) string {
	return release + "-ingress-nginx-controller"
}
