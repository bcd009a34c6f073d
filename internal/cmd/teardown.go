package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/lifecycle"
)

// NewTeardownCommand creates the teardown command
func NewTeardownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Release resources provisioned by an earlier setup",
		Long: `Delete the resources a previous "cloudbench setup" or
"cloudbench run --keep-resources" provisioned for a deployment, and blank
the options they populated in the generated configuration artifact.

Resources that were merely discovered are never touched.`,
		Args: cobra.NoArgs,
		RunE: teardownCommand,
	}

	cmd.Flags().String("cloud", "", "Path to the deployment's cloud config YAML (required)")
	cmd.Flags().String("deployment", "default", "Deployment name scoping caches and resource state")
	cmd.MarkFlagRequired("cloud")

	return cmd
}

func teardownCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	cloudPath, _ := cmd.Flags().GetString("cloud")
	cloudCfg, err := loadCloudConfig(cloudPath)
	if err != nil {
		return err
	}
	deployment, _ := cmd.Flags().GetString("deployment")

	tracked, err := loadTrackedState(cfg, deployment)
	if err != nil {
		return err
	}
	if len(tracked) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No provisioned resources recorded for deployment %q\n", deployment)
		return nil
	}

	mgr := lifecycle.NewManager(cfg, newSession(cloudCfg), cfg.GeneratedConfigPath, deployment, log)
	mgr.RestoreTracked(tracked)
	if err := mgr.Teardown(cmd.Context()); err != nil {
		return err
	}
	if err := saveTrackedState(cfg, deployment, nil); err != nil {
		return fmt.Errorf("clear resource state: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Released %d resource(s)\n", len(tracked))
	return nil
}
