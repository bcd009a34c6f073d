package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/config"
	"github.com/harrison/cloudbench/internal/engine"
	"github.com/harrison/cloudbench/internal/lifecycle"
	"github.com/harrison/cloudbench/internal/models"
	"github.com/harrison/cloudbench/internal/runner"
	"github.com/harrison/cloudbench/internal/taskstore"
	"github.com/harrison/cloudbench/internal/verifier"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Verify a deployment and execute its benchmark plan",
		Long: `Execute a test plan against a cloud deployment.

The run command provisions the auxiliary resources the verification suite
needs, binds the deployment's cloud configuration, runs the selected
verification tests, and then executes the benchmark scenarios. Provisioned
resources are released when the run ends unless --keep-resources is set.

Examples:
  cloudbench run plan.yaml --cloud cloud.yaml
  cloudbench run plan.yaml --cloud cloud.yaml --deployment staging
  cloudbench run plan.yaml --cloud cloud.yaml --no-verify
  cloudbench run plan.yaml --cloud cloud.yaml --keep-resources`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("cloud", "", "Path to the deployment's cloud config YAML (required)")
	cmd.Flags().String("deployment", "default", "Deployment name scoping caches and resource state")
	cmd.Flags().Bool("no-verify", false, "Skip the verification phase")
	cmd.Flags().Bool("keep-resources", false, "Keep provisioned resources after the run")
	cmd.MarkFlagRequired("cloud")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
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
	deployment, _ := cmd.Flags().GetString("deployment")
	noVerify, _ := cmd.Flags().GetBool("no-verify")
	keepResources, _ := cmd.Flags().GetBool("keep-resources")

	sess := newSession(cloudCfg)
	registry := runner.DefaultRegistry()

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
	log.Infof("task %s created", task.UUID)

	mgr := lifecycle.NewManager(cfg, sess, cfg.GeneratedConfigPath, deployment, log)
	if err := mgr.Setup(ctx); err != nil {
		return err
	}
	if err := saveTrackedState(cfg, deployment, mgr.Tracked()); err != nil {
		log.Warnf("persist resource state: %v", err)
	}
	if !keepResources {
		defer func() {
			if err := mgr.Teardown(ctx); err != nil {
				log.Warnf("release resources: %v", err)
				return
			}
			if err := saveTrackedState(cfg, deployment, nil); err != nil {
				log.Warnf("clear resource state: %v", err)
			}
		}()
	}

	eng, err := engine.New(engine.Options{
		Task:           task,
		Plan:           plan,
		Store:          store,
		Runner:         runner.New(registry, sess, log),
		BaseConfigPath: cfg.GeneratedConfigPath,
		VerifyTool:     cfg.Verify.Tool,
		VerifyTimeout:  cfg.Verify.Timeout,
		AvailableTests: availableTests,
		KnownScenarios: registry.Names(),
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

	if !noVerify {
		if _, err := eng.Verify(ctx); err != nil {
			eng.Fail(ctx)
			return err
		}
	}

	results, err := eng.Benchmark(ctx)
	if err != nil {
		eng.Fail(ctx)
		return err
	}
	eng.Finish(ctx)

	printSummary(cmd, task, results)
	return nil
}

// discoverTests asks the verification tool for the set of runnable tests.
// When the plan names its tests explicitly, a tool that cannot enumerate is
// tolerated: the plan's own selection becomes the known universe.
func discoverTests(cmd *cobra.Command, cfg *config.Config, plan *models.TestPlan) ([]string, error) {
	v := verifier.New(cfg.Verify.Tool, cfg.GeneratedConfigPath, cfg.Verify.Timeout)
	tests, err := v.ListTests(cmd.Context())
	if err == nil {
		return tests, nil
	}
	if len(plan.Verify.Tests) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; trusting the plan's test selection\n", err)
		return plan.Verify.Tests, nil
	}
	return nil, err
}

// printSummary writes a per-batch result summary to the command's stdout.
func printSummary(cmd *cobra.Command, task *models.Task, results map[string][]models.InvocationResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTask %s: %s\n", task.UUID, task.Status)

	for _, entry := range task.Results {
		succeeded := 0
		var total time.Duration
		for _, r := range entry.Raw {
			if r.Success {
				succeeded++
			}
			total += r.Duration
		}
		avg := time.Duration(0)
		if len(entry.Raw) > 0 {
			avg = total / time.Duration(len(entry.Raw))
		}
		fmt.Fprintf(out, "  %s [%d]: %d/%d succeeded, avg %s\n",
			entry.Key.Name, entry.Key.Pos, succeeded, len(entry.Raw), avg.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "  %d result batch(es) recorded\n", len(results))
}
