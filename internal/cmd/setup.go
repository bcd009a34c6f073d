package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/lifecycle"
)

// NewSetupCommand creates the setup command
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision verification resources without running a plan",
		Long: `Discover or provision the auxiliary resources the verification suite
needs and write the generated configuration artifact.

Provisioned resources are recorded per deployment so a later
"cloudbench teardown" can release them.`,
		Args: cobra.NoArgs,
		RunE: setupCommand,
	}

	cmd.Flags().String("cloud", "", "Path to the deployment's cloud config YAML (required)")
	cmd.Flags().String("deployment", "default", "Deployment name scoping caches and resource state")
	cmd.MarkFlagRequired("cloud")

	return cmd
}

func setupCommand(cmd *cobra.Command, _ []string) error {
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

	mgr := lifecycle.NewManager(cfg, newSession(cloudCfg), cfg.GeneratedConfigPath, deployment, log)
	if err := mgr.Setup(cmd.Context()); err != nil {
		return err
	}
	if err := saveTrackedState(cfg, deployment, mgr.Tracked()); err != nil {
		return fmt.Errorf("persist resource state: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated config: %s\n", cfg.GeneratedConfigPath)
	if tracked := mgr.Tracked(); len(tracked) > 0 {
		fmt.Fprintf(out, "Provisioned %d resource(s):\n", len(tracked))
		for _, tr := range tracked {
			fmt.Fprintf(out, "  - %s %s (%s)\n", tr.Kind, tr.Name, tr.ID)
		}
	} else {
		fmt.Fprintln(out, "All resources discovered, nothing provisioned")
	}
	return nil
}
