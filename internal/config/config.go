package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// TenantConfig identifies the tenant and the registered API client.
// Secrets may be left out of the file and supplied via environment
// variables instead (PRISM_CLIENT_SECRET, PRISM_REFRESH_TOKEN).
type TenantConfig struct {
	BaseURL      string `yaml:"base_url"`
	Tenant       string `yaml:"tenant"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	Version      string `yaml:"version,omitempty"`
}

// ProjectConfig is the on-disk prism.yaml structure.
type ProjectConfig struct {
	Connection TenantConfig `yaml:"connection"`
	Timeout    string       `yaml:"timeout,omitempty"`
}

const ConfigFileName = "prism.yaml"

// Load reads prism.yaml from the given directory.
func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes prism.yaml into the given directory with owner-only
// permissions, since the file may carry credentials.
func Save(sourcePath string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(sourcePath, ConfigFileName)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the tenant config.
// Environment values fill gaps only; explicit file values win so a
// project can pin its tenant while secrets come from the environment.
func (t *TenantConfig) ApplyEnv() {
	overlay := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}

	overlay(&t.BaseURL, "PRISM_BASE_URL")
	overlay(&t.Tenant, "PRISM_TENANT")
	overlay(&t.ClientID, "PRISM_CLIENT_ID")
	overlay(&t.ClientSecret, "PRISM_CLIENT_SECRET")
	overlay(&t.RefreshToken, "PRISM_REFRESH_TOKEN")
	overlay(&t.Version, "PRISM_VERSION")
}
