/*
Package scheduler drives workflow runs across the cluster.

A run starts from a workflow's task nodes and an execution mode. The
scheduler resolves the runnable dependency graph, then hands every node
whose dependencies are satisfied to a worker picked by the configured load
balancer, following completions through the graph until nothing is left to
start.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                      Scheduler.Run                         │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. graph.Resolve(tasks, start, recovery, mode)            │
	│  2. Empty graph → NOTHING_TO_EXECUTE                       │
	│  3. Report forbidden nodes as skipped                      │
	│  4. Queue graph.NextRunnable(g, "", done)                  │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  drive loop (single goroutine owns run state)              │
	│   • pop node, skip unless graph.IsReady                    │
	│   • errgroup.Go (limit = parallelism):                     │
	│       balancer.Select(group)   (exponential backoff)       │
	│       Executor.Execute(dispatch) (retry on other worker)   │
	│   • on result: done[node] = true                           │
	│                queue += graph.NextRunnable(g, node, done)  │
	└────────────────────────────────────────────────────────────┘

Task goroutines never touch the run maps; they send one result per node
back to the drive loop.

# Failure Handling

Worker selection is retried with exponential backoff (cenkalti/backoff)
while the group has no NORMAL worker. When the retries run out the task
fails with ErrNoWorkerAvailable.

A failed Execute is retried TaskRetries times. Each retry re-selects a
worker and asks the balancer again when it returned the address that just
failed.

A node that fails permanently is reported in RunReport.Failed. Its
descendants never become ready and show up in RunReport.Blocked, while
independent branches keep running. The run ends with StatusFailure.

Cancelling the context stops new dispatches. Running tasks see the
cancelled context through Execute; Run returns the partial report with
StatusCancelled and the context error.

# Usage

	lb, _ := balancer.New(balancer.DefaultConfig(), reg)
	s := scheduler.NewScheduler(lb, executor, broker, scheduler.DefaultConfig())

	report, err := s.Run(ctx, scheduler.RunRequest{
		ResolveRequest: graph.ResolveRequest{
			Tasks:         workflow.Tasks,
			RecoveryNodes: []string{"extract"},
			Mode:          types.ModeForwardFromRecovery,
		},
	})

# Observability

Each run publishes workflow.* and task.* events to the broker and updates
the burrow_tasks_* and burrow_workflow_runs_total metrics. Log lines carry
run_id and task fields.
*/
package scheduler
