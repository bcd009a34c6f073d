package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for cloudbench
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloudbench",
		Short: "Cloud deployment verification and benchmark engine",
		Long: `Cloudbench verifies a cloud deployment with an external test suite and
executes benchmark scenarios against it.

It discovers or provisions the auxiliary resources the verification suite
needs (guest images, flavors, networks, identity roles), writes a generated
configuration artifact, runs the selected verification tests, then executes
the benchmark scenarios declared in a YAML test plan.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .cloudbench/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewVerifyCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewSetupCommand())
	cmd.AddCommand(NewTeardownCommand())
	cmd.AddCommand(NewResultsCommand())

	return cmd
}
