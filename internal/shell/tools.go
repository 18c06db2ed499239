package shell

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool describes an external binary the toolkit shells out to.
type Tool struct {
	Name        string
	Required    bool
	Description string
	InstallURL  string
}

// DefaultTools lists the binaries needed for the full deployment flow.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "az",
			Required:    true,
			Description: "Required for AKS credential retrieval and version queries",
			InstallURL:  "https://learn.microsoft.com/cli/azure/install-azure-cli",
		},
		{
			Name:        "helm",
			Required:    true,
			Description: "Required for installing charts into the cluster",
			InstallURL:  "https://helm.sh/docs/intro/install/",
		},
		{
			Name:        "kubectl",
			Required:    true,
			Description: "Required for managing Kubernetes resources",
			InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
		},
		{
			Name:        "ssh",
			Required:    false,
			Description: "Used to probe VM readiness and for interactive access",
			InstallURL:  "https://www.openssh.com/",
		},
		{
			Name:        "ping",
			Required:    false,
			Description: "Used to probe VM network reachability",
			InstallURL:  "",
		},
	}
}

// ToolCheck is the result of looking up a single tool.
type ToolCheck struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckTools verifies that the given tools are present in PATH.
func CheckTools(tools []Tool) []ToolCheck {
	checks := make([]ToolCheck, 0, len(tools))
	for _, tool := range tools {
		check := ToolCheck{Tool: tool}
		if path, err := exec.LookPath(tool.Name); err == nil {
			check.Found = true
			check.Path = path
		}
		checks = append(checks, check)
	}
	return checks
}

// MissingTools returns an error naming every required tool that was not
// found, or nil when all required tools are present.
func MissingTools(checks []ToolCheck) error {
	var missing []string
	for _, check := range checks {
		if !check.Found && check.Tool.Required {
			entry := check.Tool.Name
			if check.Tool.InstallURL != "" {
				entry = fmt.Sprintf("%s (%s)", check.Tool.Name, check.Tool.InstallURL)
			}
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}
