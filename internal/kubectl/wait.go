package kubectl

import (
	"context"
	"fmt"
	"time"

	"github.com/nnstorm/azup/internal/util/wait"
)

type serviceStatus struct {
	Status struct {
		LoadBalancer struct {
			Ingress []struct {
				IP       string `json:"ip"`
				Hostname string `json:"hostname"`
			} `json:"ingress"`
		} `json:"loadBalancer"`
	} `json:"status"`
}

// WaitForServiceIP polls a LoadBalancer service until the platform assigns
// it an external IP, returning that IP. wait.ErrTimeout is in the error
// chain when the timeout elapses first.
func (c *Client) WaitForServiceIP(ctx context.Context, service string, interval, timeout time.Duration) (string, error) {
	var ip string
	err := wait.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		var status serviceStatus
		if err := c.GetJSON(ctx, "service", service, &status); err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, err
		}
		for _, ingress := range status.Status.LoadBalancer.Ingress {
			if ingress.IP != "" {
				ip = ingress.IP
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return "", fmt.Errorf("service %s got no external IP: %w", service, err)
	}
	c.log.Info().Str("service", service).Str("ip", ip).Msg("service has external IP")
	return ip, nil
}

// WaitForJob blocks until a job completes. The timeout is enforced by
// kubectl itself.
func (c *Client) WaitForJob(ctx context.Context, job string, timeout time.Duration) error {
	argv := c.argv(true, "wait", "--for=condition=complete", "job/"+job, fmt.Sprintf("--timeout=%s", timeout))
	if _, err := c.runner.Run(ctx, argv); err != nil {
		return fmt.Errorf("job %s did not complete: %w", job, err)
	}
	return nil
}

// WaitForRollout blocks until a deployment's rollout finishes.
func (c *Client) WaitForRollout(ctx context.Context, kind, name string, timeout time.Duration) error {
	argv := c.argv(true, "rollout", "status", kind+"/"+name, fmt.Sprintf("--timeout=%s", timeout))
	if _, err := c.runner.Run(ctx, argv); err != nil {
		return fmt.Errorf("rollout of %s/%s did not finish: %w", kind, name, err)
	}
	return nil
}
