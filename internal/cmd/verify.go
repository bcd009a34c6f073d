package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/engine"
	"github.com/harrison/cloudbench/internal/models"
	"github.com/harrison/cloudbench/internal/runner"
	"github.com/harrison/cloudbench/internal/taskstore"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <plan-file>",
		Short: "Run only the verification phase of a plan",
		Long: `Run the plan's verification tests against a deployment without executing
its benchmark scenarios.

The generated configuration artifact from an earlier "cloudbench setup" is
bound together with the deployment's cloud config; every selected test runs
even when earlier ones fail, and the full suite output is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: verifyCommand,
	}

	cmd.Flags().String("cloud", "", "Path to the deployment's cloud config YAML (required)")
	cmd.MarkFlagRequired("cloud")

	return cmd
}

func verifyCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	plan, err := models.LoadPlan(args[0])
	if err != nil {
		return err
	}
	cloudPath, _ := cmd.Flags().GetString("cloud")
	cloudCfg, err := loadCloudConfig(cloudPath)
	if err != nil {
		return err
	}

	availableTests, err := discoverTests(cmd, cfg, plan)
	if err != nil {
		return err
	}

	store, err := taskstore.NewStore(cfg.TaskDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	task := models.NewTask()
	if err := store.AppendStatus(ctx, task.UUID, task.Status); err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		Task:           task,
		Plan:           plan,
		Store:          store,
		BaseConfigPath: cfg.GeneratedConfigPath,
		VerifyTool:     cfg.Verify.Tool,
		VerifyTimeout:  cfg.Verify.Timeout,
		AvailableTests: availableTests,
		KnownScenarios: runner.DefaultRegistry().Names(),
		Logger:         log,
	})
	if err != nil {
		return err
	}

	scope, err := eng.Bind(cloudCfg)
	if err != nil {
		return err
	}
	defer scope.Close()

	results, err := eng.Verify(ctx)
	for _, r := range results {
		marker := "PASS"
		if r.Status != 0 {
			marker = "FAIL"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s\n", marker, r.Name)
	}
	if err != nil {
		eng.Fail(ctx)
		return err
	}
	eng.Finish(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "Verification passed: %d test(s), task %s\n", len(results), task.UUID)
	return nil
}
