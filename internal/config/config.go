package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
	SSLCert     string `yaml:"sslcert,omitempty"`
	SSLKey      string `yaml:"sslkey,omitempty"`
	SSLRootCert string `yaml:"sslrootcert,omitempty"`

	// Cloud authentication: password (default), aws-iam, google-iam or azure
	Auth           string `yaml:"auth,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
}

// ProjectConfig is the content of pgdal.yaml.
type ProjectConfig struct {
	Connection  ConnectionConfig  `yaml:"connection"`
	Identifiers map[string]string `yaml:"identifiers"`
	Params      map[string]string `yaml:"params"`
	BatchSize   int               `yaml:"batch_size"`
	Timeout     string            `yaml:"timeout"`
}

const ConfigFileName = "pgdal.yaml"

// Load reads pgdal.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("%s: batch_size must not be negative", configPath)
	}
	if _, err := cfg.ParsedTimeout(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &cfg, nil
}

// LoadOptional is Load that treats a missing file as an empty config.
func LoadOptional(dir string) (*ProjectConfig, error) {
	cfg, err := Load(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return &ProjectConfig{}, nil
	}
	return cfg, err
}

// ParsedTimeout returns Timeout as a duration; zero when unset.
func (c *ProjectConfig) ParsedTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
