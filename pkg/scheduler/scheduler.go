package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/burrow/pkg/balancer"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/graph"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoWorkerAvailable is returned when a task's worker group had no
	// NORMAL worker through every selection attempt
	ErrNoWorkerAvailable = errors.New("no worker available")

	// ErrInvalidConfig is returned for unusable scheduler settings
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// Executor hands a dispatch to its worker and waits for the outcome
type Executor interface {
	Execute(ctx context.Context, d types.Dispatch) error
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, d types.Dispatch) error

// Execute calls f(ctx, d)
func (f ExecutorFunc) Execute(ctx context.Context, d types.Dispatch) error {
	return f(ctx, d)
}

// Config tunes worker selection and task retries
type Config struct {
	SelectRetryMax         int           `yaml:"selectRetryMax"`
	SelectRetryInitial     time.Duration `yaml:"selectRetryInitial"`
	SelectRetryMaxInterval time.Duration `yaml:"selectRetryMaxInterval"`
	TaskRetries            int           `yaml:"taskRetries"`
	Parallelism            int           `yaml:"parallelism"`
}

// DefaultConfig returns the scheduler defaults
func DefaultConfig() Config {
	return Config{
		SelectRetryMax:         5,
		SelectRetryInitial:     100 * time.Millisecond,
		SelectRetryMaxInterval: 2 * time.Second,
		TaskRetries:            1,
		Parallelism:            8,
	}
}

// Validate checks that limits are usable
func (c Config) Validate() error {
	if c.SelectRetryMax < 0 {
		return fmt.Errorf("%w: selectRetryMax must not be negative", ErrInvalidConfig)
	}
	if c.SelectRetryInitial <= 0 || c.SelectRetryMaxInterval <= 0 {
		return fmt.Errorf("%w: selection retry intervals must be positive", ErrInvalidConfig)
	}
	if c.SelectRetryMaxInterval < c.SelectRetryInitial {
		return fmt.Errorf("%w: selectRetryMaxInterval is below selectRetryInitial", ErrInvalidConfig)
	}
	if c.TaskRetries < 0 {
		return fmt.Errorf("%w: taskRetries must not be negative", ErrInvalidConfig)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidConfig)
	}
	return nil
}

// Status is the final state of a workflow run
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusFailure          Status = "FAILURE"
	StatusCancelled        Status = "CANCELLED"
	StatusNothingToExecute Status = "NOTHING_TO_EXECUTE"
)

// RunRequest describes one workflow run
type RunRequest struct {
	// RunID identifies the run in logs and events. Generated when empty.
	RunID string
	graph.ResolveRequest
}

// RunReport summarizes a finished run
type RunReport struct {
	RunID      string
	Status     Status
	Nodes      int
	Dispatches []types.Dispatch
	Completed  []string
	Failed     []string
	Skipped    []string
	Blocked    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record converts the report into its persisted form
func (r *RunReport) Record(workflow string, mode types.ExecutionMode) *types.RunRecord {
	return &types.RunRecord{
		ID:         r.RunID,
		Workflow:   workflow,
		Mode:       mode,
		Status:     string(r.Status),
		Completed:  r.Completed,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Blocked:    r.Blocked,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Scheduler drives resolved workflows: it dispatches every ready task node
// to a worker chosen by the load balancer and follows completions through
// the dependency graph.
type Scheduler struct {
	balancer balancer.LoadBalancer
	executor Executor
	broker   *events.Broker
	config   Config
	logger   zerolog.Logger
}

// NewScheduler creates a new scheduler. The broker may be nil.
func NewScheduler(lb balancer.LoadBalancer, exec Executor, broker *events.Broker, cfg Config) *Scheduler {
	return &Scheduler{
		balancer: lb,
		executor: exec,
		broker:   broker,
		config:   cfg,
		logger:   log.WithComponent("scheduler"),
	}
}

// Run resolves the request and drives the resulting graph to completion.
// Resolution errors are returned as-is; task failures are reported in the
// RunReport. A cancelled context stops new dispatches and returns the
// context error together with the partial report.
func (s *Scheduler) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	logger := s.logger.With().Str("run_id", req.RunID).Logger()
	report := &RunReport{RunID: req.RunID, StartedAt: time.Now()}

	timer := metrics.NewTimer()
	g, err := graph.Resolve(req.ResolveRequest)
	timer.ObserveDurationVec(metrics.ResolveLatency, string(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workflow: %w", err)
	}
	metrics.ResolvedNodes.Observe(float64(g.Len()))
	report.Nodes = g.Len()

	if g.Len() == 0 {
		logger.Info().Str("mode", string(req.Mode)).Msg("Nothing to execute")
		s.publish(events.EventWorkflowEmpty, "nothing to execute", map[string]string{"run_id": req.RunID})
		return s.finish(report, StatusNothingToExecute), nil
	}

	logger.Info().
		Int("nodes", g.Len()).
		Str("mode", string(req.Mode)).
		Msg("Workflow run started")
	s.publish(events.EventWorkflowStarted, "workflow run started", map[string]string{
		"run_id": req.RunID,
		"nodes":  strconv.Itoa(g.Len()),
	})

	for _, node := range g.Values() {
		if !node.Forbidden {
			continue
		}
		report.Skipped = append(report.Skipped, node.Name)
		metrics.TasksSkipped.Inc()
		s.publish(events.EventTaskSkipped, "forbidden task skipped", map[string]string{
			"run_id": req.RunID,
			"task":   node.Name,
		})
	}

	r := &run{
		scheduler:  s,
		id:         req.RunID,
		graph:      g,
		report:     report,
		done:       make(map[string]bool),
		dispatched: make(map[string]bool),
		results:    make(chan result, g.Len()),
	}
	r.drive(ctx)

	for _, name := range g.Keys() {
		node, _ := g.Node(name)
		if !node.Forbidden && !r.done[name] && !r.dispatched[name] {
			report.Blocked = append(report.Blocked, name)
		}
	}

	switch {
	case ctx.Err() != nil:
		logger.Warn().Err(ctx.Err()).Msg("Workflow run cancelled")
		s.publish(events.EventWorkflowFailed, "workflow run cancelled", map[string]string{"run_id": req.RunID})
		return s.finish(report, StatusCancelled), ctx.Err()
	case len(report.Failed) > 0:
		logger.Error().
			Strs("failed", report.Failed).
			Strs("blocked", report.Blocked).
			Msg("Workflow run failed")
		s.publish(events.EventWorkflowFailed, "workflow run failed", map[string]string{"run_id": req.RunID})
		return s.finish(report, StatusFailure), nil
	default:
		logger.Info().Int("completed", len(report.Completed)).Msg("Workflow run completed")
		s.publish(events.EventWorkflowCompleted, "workflow run completed", map[string]string{"run_id": req.RunID})
		return s.finish(report, StatusSuccess), nil
	}
}

func (s *Scheduler) finish(report *RunReport, status Status) *RunReport {
	report.Status = status
	report.FinishedAt = time.Now()
	metrics.WorkflowRuns.WithLabelValues(string(status)).Inc()
	return report
}

func (s *Scheduler) publish(t events.EventType, msg string, metadata map[string]string) {
	s.broker.Publish(events.NewEvent(t, msg, metadata))
}

// result is the outcome of one task node across all its attempts
type result struct {
	name       string
	dispatches []types.Dispatch
	err        error
}

// run holds the state of one workflow run. Only the drive loop touches the
// maps; task goroutines report back through results.
type run struct {
	scheduler  *Scheduler
	id         string
	graph      *graph.DependencyGraph
	report     *RunReport
	done       map[string]bool
	dispatched map[string]bool
	results    chan result
}

func (r *run) drive(ctx context.Context) {
	var eg errgroup.Group
	eg.SetLimit(r.scheduler.config.Parallelism)

	queue := graph.NextRunnable(r.graph, "", r.done)
	inflight := 0
	for {
		for len(queue) > 0 && ctx.Err() == nil {
			name := queue[0]
			queue = queue[1:]
			if r.dispatched[name] || !graph.IsReady(r.graph, name, r.done) {
				continue
			}
			r.dispatched[name] = true
			node, _ := r.graph.Node(name)
			readyAt := time.Now()

			inflight++
			eg.Go(func() error {
				r.results <- r.scheduler.runTask(ctx, r.id, node, readyAt)
				return nil
			})
		}
		if inflight == 0 {
			break
		}

		res := <-r.results
		inflight--
		r.report.Dispatches = append(r.report.Dispatches, res.dispatches...)
		if res.err != nil {
			r.report.Failed = append(r.report.Failed, res.name)
			continue
		}
		r.done[res.name] = true
		r.report.Completed = append(r.report.Completed, res.name)
		queue = append(queue, graph.NextRunnable(r.graph, res.name, r.done)...)
	}
	_ = eg.Wait()
}

// runTask dispatches node until it succeeds or its attempts run out
func (s *Scheduler) runTask(ctx context.Context, runID string, node types.TaskNode, readyAt time.Time) result {
	logger := s.logger.With().
		Str("run_id", runID).
		Str("task", node.Name).
		Str("group", node.WorkerGroup).
		Logger()
	res := result{name: node.Name}

	var previous string
	for attempt := 1; attempt <= s.config.TaskRetries+1; attempt++ {
		addr, err := s.selectWorker(ctx, node.WorkerGroup, previous)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("No worker available for task")
			metrics.TasksFailed.Inc()
			s.publish(events.EventTaskFailed, err.Error(), map[string]string{
				"run_id":  runID,
				"task":    node.Name,
				"attempt": strconv.Itoa(attempt),
			})
			res.err = err
			return res
		}

		d := types.Dispatch{
			ID:            uuid.New().String(),
			RunID:         runID,
			Node:          node,
			WorkerAddress: addr,
			Attempt:       attempt,
			CreatedAt:     time.Now(),
		}
		if attempt == 1 {
			metrics.DispatchLatency.Observe(d.CreatedAt.Sub(readyAt).Seconds())
		}
		metrics.TasksDispatched.WithLabelValues(node.WorkerGroup).Inc()
		res.dispatches = append(res.dispatches, d)

		logger.Debug().Str("worker_address", addr).Int("attempt", attempt).Msg("Task dispatched")
		s.publish(events.EventTaskDispatched, "task dispatched", map[string]string{
			"run_id":         runID,
			"task":           node.Name,
			"worker_address": addr,
			"attempt":        strconv.Itoa(attempt),
		})

		err = s.executor.Execute(ctx, d)
		if err == nil {
			metrics.TasksCompleted.Inc()
			s.publish(events.EventTaskCompleted, "task completed", map[string]string{
				"run_id":         runID,
				"task":           node.Name,
				"worker_address": addr,
			})
			res.err = nil
			return res
		}

		metrics.TasksFailed.Inc()
		logger.Warn().
			Err(err).
			Str("worker_address", addr).
			Int("attempt", attempt).
			Msg("Task attempt failed")
		s.publish(events.EventTaskFailed, err.Error(), map[string]string{
			"run_id":         runID,
			"task":           node.Name,
			"worker_address": addr,
			"attempt":        strconv.Itoa(attempt),
		})

		res.err = fmt.Errorf("task %s failed on %s: %w", node.Name, addr, err)
		previous = addr
		if ctx.Err() != nil {
			return res
		}
	}
	return res
}

// selectWorker asks the balancer for a worker of group, backing off while
// the group is empty. avoid is only picked when it is the group's sole live
// worker.
func (s *Scheduler) selectWorker(ctx context.Context, group, avoid string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.SelectRetryInitial
	b.MaxInterval = s.config.SelectRetryMaxInterval
	b.MaxElapsedTime = 0

	var addr string
	op := func() error {
		picked, ok := balancer.SelectExcluding(s.balancer, group, avoid)
		if !ok {
			return ErrNoWorkerAvailable
		}
		addr = picked
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.config.SelectRetryMax)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: group %q", ErrNoWorkerAvailable, group)
	}
	return addr, nil
}
