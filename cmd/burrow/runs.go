package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuemby/burrow/pkg/storage"
	"github.com/spf13/cobra"
)

// Run history commands
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded workflow runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORKFLOW\tMODE\tSTATUS\tSTARTED\tDURATION")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Workflow, r.Mode, r.Status,
				r.StartedAt.Format(time.RFC3339),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		r, err := store.GetRun(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get run: %w", err)
		}

		fmt.Printf("Run %s\n", r.ID)
		fmt.Printf("  Workflow: %s\n", r.Workflow)
		fmt.Printf("  Mode: %s\n", r.Mode)
		fmt.Printf("  Status: %s\n", r.Status)
		fmt.Printf("  Started: %s\n", r.StartedAt.Format(time.RFC3339))
		fmt.Printf("  Finished: %s\n", r.FinishedAt.Format(time.RFC3339))
		printNames("Completed", r.Completed)
		printNames("Failed", r.Failed)
		printNames("Skipped", r.Skipped)
		printNames("Blocked", r.Blocked)
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRun(args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("✓ Run %s deleted\n", args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func printNames(label string, names []string) {
	if len(names) > 0 {
		fmt.Printf("  %s: %s\n", label, strings.Join(names, ", "))
	}
}
