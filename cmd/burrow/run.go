package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuemby/burrow/pkg/balancer"
	"github.com/cuemby/burrow/pkg/definition"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/scheduler"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a workflow over a cluster definition",
	Long: `Resolve a workflow and dispatch its tasks to the workers of a cluster
definition. Tasks are not executed remotely: each dispatch is logged and
completes after --delay, or fails when its node is named in --fail.

Examples:
  # Dry run of the whole workflow
  burrow run -f workflow.yaml --cluster cluster.yaml

  # Recover from transform, failing load, and keep the run record
  burrow run -f workflow.yaml --cluster cluster.yaml \
    --mode FORWARD_FROM_RECOVERY --recovery transform --fail load --record`,
	RunE: runRun,
}

func init() {
	addRequestFlags(runCmd)
	runCmd.Flags().String("cluster", "", "Cluster definition file (required)")
	runCmd.Flags().Duration("delay", 100*time.Millisecond, "Simulated task duration")
	runCmd.Flags().StringSlice("fail", nil, "Task names whose dispatches fail")
	runCmd.Flags().Bool("record", false, "Save the run record under the configured data directory")
	runCmd.Flags().Bool("events", false, "Print scheduler events as they happen")
	_ = runCmd.MarkFlagRequired("cluster")
}

// logExecutor stands in for a remote task runner
type logExecutor struct {
	delay time.Duration
	fail  map[string]bool
}

func (e *logExecutor) Execute(ctx context.Context, d types.Dispatch) error {
	logger := log.WithTask(d.Node.Name).With().
		Str("worker", d.WorkerAddress).
		Int("attempt", d.Attempt).
		Logger()
	logger.Info().Msg("Executing task")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.delay):
	}

	if e.fail[d.Node.Name] {
		return errors.New("simulated failure")
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	clusterFile, _ := cmd.Flags().GetString("cluster")
	delay, _ := cmd.Flags().GetDuration("delay")
	failing, _ := cmd.Flags().GetStringSlice("fail")
	record, _ := cmd.Flags().GetBool("record")
	showEvents, _ := cmd.Flags().GetBool("events")

	wf, req, err := resolveRequest(cmd)
	if err != nil {
		return err
	}
	cluster, err := definition.LoadCluster(clusterFile)
	if err != nil {
		return err
	}

	reg := registry.New(registry.WithEventBuffer(appConfig.Registry.EventBuffer))
	defer reg.Close()
	if err := cluster.Apply(reg); err != nil {
		return err
	}

	lb, err := balancer.New(appConfig.Balancer, reg)
	if err != nil {
		return err
	}
	defer lb.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	if showEvents {
		sub := broker.Subscribe(
			events.EventTaskDispatched, events.EventTaskCompleted, events.EventTaskFailed,
			events.EventTaskSkipped, events.EventWorkflowCompleted, events.EventWorkflowFailed,
		)
		defer broker.Unsubscribe(sub)
		go printEvents(sub)
	}

	exec := &logExecutor{delay: delay, fail: make(map[string]bool, len(failing))}
	for _, name := range failing {
		exec.fail[name] = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(lb, exec, broker, appConfig.Scheduler)
	report, runErr := sched.Run(ctx, scheduler.RunRequest{ResolveRequest: req})
	if report == nil {
		return runErr
	}

	printReport(wf.Name, report)

	if record {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(report.Record(wf.Name, req.Mode)); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Printf("✓ Run %s saved\n", report.RunID)
	}

	if runErr != nil {
		return runErr
	}
	if report.Status == scheduler.StatusFailure {
		return fmt.Errorf("workflow %s failed", wf.Name)
	}
	return nil
}

func printEvents(sub events.Subscriber) {
	for evt := range sub {
		fmt.Printf("  [%s] %-18s %s (%s)\n", evt.Timestamp.Format(time.TimeOnly), evt.Type, formatMetadata(evt.Metadata), evt.Message)
	}
}

func formatMetadata(md map[string]string) string {
	parts := make([]string, 0, len(md))
	for _, k := range []string{"task", "worker_address", "attempt"} {
		if v, ok := md[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

func printReport(workflow string, r *scheduler.RunReport) {
	fmt.Println()
	fmt.Printf("Workflow %s: %s\n", workflow, r.Status)
	fmt.Printf("  Run ID: %s\n", r.RunID)
	fmt.Printf("  Nodes: %d\n", r.Nodes)
	fmt.Printf("  Dispatches: %d\n", len(r.Dispatches))
	fmt.Printf("  Duration: %s\n", r.Duration().Round(time.Millisecond))

	printNames("Completed", r.Completed)
	printNames("Failed", r.Failed)
	printNames("Skipped", r.Skipped)
	printNames("Blocked", r.Blocked)
}
