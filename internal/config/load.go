package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the deployment configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data)
}

// Load parses the deployment configuration from YAML bytes.
func Load(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.VMSizes == nil {
		cfg.VMSizes = map[string]string{}
	}
	if _, ok := cfg.VMSizes["small"]; !ok {
		cfg.VMSizes["small"] = "Standard_B2s"
	}
	if cfg.Image == (ImageReference{}) {
		cfg.Image = ImageReference{
			Publisher: "Canonical",
			Offer:     "0001-com-ubuntu-server-jammy",
			SKU:       "22_04-lts-gen2",
			Version:   "latest",
		}
	}
	if cfg.Secrets.Username == "" {
		cfg.Secrets.Username = "vm-username"
	}
	if cfg.Secrets.Password == "" {
		cfg.Secrets.Password = "vm-password"
	}
	if cfg.AKS.Namespace == "" {
		cfg.AKS.Namespace = "default"
	}
}
