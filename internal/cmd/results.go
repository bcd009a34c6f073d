package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/cloudbench/internal/taskstore"
)

// NewResultsCommand creates the results command
func NewResultsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <task-uuid>",
		Short: "Show the recorded state of a task",
		Long: `Print a task's status history and persisted benchmark results from the
task database.`,
		Args: cobra.ExactArgs(1),
		RunE: resultsCommand,
	}

	return cmd
}

func resultsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := taskstore.NewStore(cfg.TaskDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	taskUUID := args[0]
	out := cmd.OutOrStdout()

	statuses, err := store.StatusLog(ctx, taskUUID)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		return fmt.Errorf("no task %s in %s", taskUUID, cfg.TaskDBPath)
	}

	fmt.Fprintf(out, "Task %s\n", taskUUID)
	fmt.Fprintln(out, "Status history:")
	for _, s := range statuses {
		fmt.Fprintf(out, "  [%s] %s\n", s.Timestamp.Format("2006-01-02 15:04:05"), s.Status)
	}

	results, err := store.Results(ctx, taskUUID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No benchmark results recorded")
		return nil
	}

	fmt.Fprintln(out, "Benchmark results:")
	for _, batch := range results {
		succeeded := 0
		var total time.Duration
		for _, r := range batch.Results {
			if r.Success {
				succeeded++
			}
			total += r.Duration
		}
		avg := time.Duration(0)
		if len(batch.Results) > 0 {
			avg = total / time.Duration(len(batch.Results))
		}
		fmt.Fprintf(out, "  %s [%d]: %d/%d succeeded, avg %s\n",
			batch.Key.Name, batch.Key.Pos, succeeded, len(batch.Results), avg.Round(time.Millisecond))
	}
	return nil
}
