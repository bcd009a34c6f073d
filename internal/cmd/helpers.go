package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrison/cloudbench/internal/cloud"
	"github.com/harrison/cloudbench/internal/config"
	"github.com/harrison/cloudbench/internal/filelock"
	"github.com/harrison/cloudbench/internal/lifecycle"
	"github.com/harrison/cloudbench/internal/logger"
)

const defaultConfigPath = ".cloudbench/config.yaml"

// loadConfig resolves the --config flag and applies CLI overrides on top of
// the loaded file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// newLogger builds the console logger writing to the command's stdout.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.ConsoleLogger {
	return logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
}

// loadCloudConfig reads the deployment's cloud configuration: a YAML file
// of sections mapping option names to values, mirroring the artifact layout
// the verification tool consumes.
func loadCloudConfig(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cloud config: %w", err)
	}
	var cloudCfg map[string]map[string]string
	if err := yaml.Unmarshal(data, &cloudCfg); err != nil {
		return nil, fmt.Errorf("parse cloud config: %w", err)
	}
	return cloudCfg, nil
}

// newSession builds a platform session from the deployment's cloud config.
func newSession(cloudCfg map[string]map[string]string) *cloud.Session {
	creds := cloud.CredentialsFromConfig(cloudCfg)
	return cloud.NewSession(creds, &http.Client{Timeout: 60 * time.Second})
}

// trackedStatePath is where provisioned-resource records for a deployment
// are persisted between setup and teardown.
func trackedStatePath(cfg *config.Config, deployment string) string {
	return filepath.Join(cfg.DataDir, deployment+"-resources.json")
}

// saveTrackedState persists the provisioned-resource records so a later
// teardown invocation can release them. An empty record set removes the
// state file instead.
func saveTrackedState(cfg *config.Config, deployment string, tracked []*lifecycle.TrackedResource) error {
	path := trackedStatePath(cfg, deployment)
	if len(tracked) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := json.MarshalIndent(tracked, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal resource state: %w", err)
	}
	return filelock.AtomicWrite(path, data)
}

// loadTrackedState reads the provisioned-resource records for a deployment.
// A missing state file means nothing was provisioned.
func loadTrackedState(cfg *config.Config, deployment string) ([]*lifecycle.TrackedResource, error) {
	data, err := os.ReadFile(trackedStatePath(cfg, deployment))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read resource state: %w", err)
	}
	var tracked []*lifecycle.TrackedResource
	if err := json.Unmarshal(data, &tracked); err != nil {
		return nil, fmt.Errorf("parse resource state: %w", err)
	}
	return tracked, nil
}
