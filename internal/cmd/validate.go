package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/models"
	"github.com/harrison/cloudbench/internal/runner"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan-file>",
		Short: "Validate a test plan without executing it",
		Long: `Parse and validate a test plan, checking that:
  - The YAML is well formed
  - Every verification test is known to the test tool
  - Every benchmark scenario is registered
  - Repetition and concurrency counts are sane

Exit code: 0 if valid, 1 if errors found`,
		Args:         cobra.ExactArgs(1),
		RunE:         validateCommand,
		SilenceUsage: true,
	}

	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	plan, err := models.LoadPlan(args[0])
	if err != nil {
		return err
	}

	availableTests, err := discoverTests(cmd, cfg, plan)
	if err != nil {
		return err
	}

	registry := runner.DefaultRegistry()
	plan.Normalize(availableTests)
	if err := plan.Validate(availableTests, registry.Names()); err != nil {
		return err
	}

	specs := 0
	for _, s := range plan.Benchmark.Scenarios {
		specs += len(s)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Plan is valid: %d verification test(s), %d scenario(s), %d spec(s)\n",
		len(plan.Verify.Tests), len(plan.Benchmark.Scenarios), specs)
	return nil
}
