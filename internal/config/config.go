package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ImageConfig controls which guest image the verification suite uses and
// where it can be fetched from.
type ImageConfig struct {
	// Name is the file name stored in the data dir for a downloaded image
	Name string `yaml:"name"`

	// URL is the download source used when the image is neither cached
	// locally nor present in the platform catalog
	URL string `yaml:"url"`

	// NameMatch selects a catalog image by case-insensitive substring
	NameMatch string `yaml:"name_match"`

	// DiskFormat and ContainerFormat are passed through on image creation
	DiskFormat      string `yaml:"disk_format"`
	ContainerFormat string `yaml:"container_format"`
}

// FlavorConfig carries the memory sizes used when discovering or creating
// compute flavors for the verification suite.
type FlavorConfig struct {
	RefRAM    int `yaml:"ref_ram"`
	RefAltRAM int `yaml:"ref_alt_ram"`
	HeatRAM   int `yaml:"heat_ram"`
}

// NetworkConfig carries the addressing used for provisioned fixed networks.
type NetworkConfig struct {
	CIDR string `yaml:"cidr"`
}

// VerifyToolConfig describes the external verification test tool.
type VerifyToolConfig struct {
	// Tool is the test binary invoked per verification test
	Tool string `yaml:"tool"`

	// Timeout bounds a single test invocation
	Timeout time.Duration `yaml:"-"`
}

// Config holds all cloudbench configuration. It is constructed once and
// passed explicitly to the components that need it.
type Config struct {
	// DataDir is where image caches, lock files and the task database live
	DataDir string `yaml:"data_dir"`

	// GeneratedConfigPath is the artifact consumed by the verification suite
	GeneratedConfigPath string `yaml:"generated_config_path"`

	// TaskDBPath is the SQLite task-state database
	TaskDBPath string `yaml:"task_db_path"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Roles are the identity roles the verification suite expects to exist
	Roles []string `yaml:"roles"`

	Image   ImageConfig      `yaml:"image"`
	Flavors FlavorConfig     `yaml:"flavors"`
	Network NetworkConfig    `yaml:"network"`
	Verify  VerifyToolConfig `yaml:"verify"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:             ".cloudbench",
		GeneratedConfigPath: ".cloudbench/verify.conf",
		TaskDBPath:          ".cloudbench/tasks.db",
		LogLevel:            "info",
		Roles: []string{
			"swift-operator",
			"swift-reseller-admin",
			"heat-stack-owner",
			"heat-stack-user",
		},
		Image: ImageConfig{
			Name:            "cirros-disk.img",
			URL:             "https://download.cirros-cloud.net/0.6.2/cirros-0.6.2-x86_64-disk.img",
			NameMatch:       "cirros",
			DiskFormat:      "qcow2",
			ContainerFormat: "bare",
		},
		Flavors: FlavorConfig{
			RefRAM:    64,
			RefAltRAM: 128,
			HeatRAM:   64,
		},
		Network: NetworkConfig{
			CIDR: "10.2.0.0/24",
		},
		Verify: VerifyToolConfig{
			Tool:    "verifytool",
			Timeout: 30 * time.Minute,
		},
	}
}

// LoadConfig loads configuration from the given file path.
// A missing file is not an error: defaults are returned unchanged.
// A malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal on top of the defaults so absent fields keep their values.
	merged := *cfg
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// The verify timeout is a duration string, which yaml cannot decode
	// into time.Duration directly.
	var timeouts struct {
		Verify struct {
			Timeout string `yaml:"timeout"`
		} `yaml:"verify"`
	}
	if err := yaml.Unmarshal(data, &timeouts); err == nil && timeouts.Verify.Timeout != "" {
		timeout, err := time.ParseDuration(timeouts.Verify.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid verify timeout %q: %w", timeouts.Verify.Timeout, err)
		}
		merged.Verify.Timeout = timeout
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.GeneratedConfigPath == "" {
		return fmt.Errorf("generated_config_path is required")
	}
	if c.Flavors.RefRAM < 1 || c.Flavors.RefAltRAM < 1 || c.Flavors.HeatRAM < 1 {
		return fmt.Errorf("flavor RAM sizes must be positive")
	}
	if c.Network.CIDR == "" {
		return fmt.Errorf("network cidr is required")
	}
	return nil
}
