package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_workers_total",
			Help: "Total number of workers by group and status",
		},
		[]string{"group", "status"},
	)

	WorkersEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_workers_evicted_total",
			Help: "Total number of workers removed after missing heartbeats",
		},
	)

	WorkerLivenessChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_worker_liveness_checks_total",
			Help: "Total number of liveness checks of static workers by result",
		},
		[]string{"result"},
	)

	// Balancer metrics
	SelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_balancer_selections_total",
			Help: "Total number of worker selections by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	WorkerWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_balancer_worker_weight",
			Help: "Current weight of a worker in the weighted balancers",
		},
		[]string{"strategy", "worker"},
	)

	// Resolver metrics
	ResolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_resolve_duration_seconds",
			Help:    "Time taken to resolve a workflow dependency graph in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	ResolvedNodes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_resolved_nodes",
			Help:    "Number of task nodes in resolved graphs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Scheduler metrics
	TasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_tasks_dispatched_total",
			Help: "Total number of task dispatches by worker group",
		},
		[]string{"group"},
	)

	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_tasks_completed_total",
			Help: "Total number of tasks completed",
		},
	)

	TasksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_tasks_failed_total",
			Help: "Total number of failed task attempts",
		},
	)

	TasksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_tasks_skipped_total",
			Help: "Total number of forbidden tasks skipped",
		},
	)

	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_dispatch_latency_seconds",
			Help:    "Time from a task becoming ready to its dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_workflow_runs_total",
			Help: "Total number of workflow runs by final status",
		},
		[]string{"status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(WorkersEvicted)
	prometheus.MustRegister(WorkerLivenessChecks)
	prometheus.MustRegister(SelectionsTotal)
	prometheus.MustRegister(WorkerWeight)
	prometheus.MustRegister(ResolveLatency)
	prometheus.MustRegister(ResolvedNodes)
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TasksSkipped)
	prometheus.MustRegister(DispatchLatency)
	prometheus.MustRegister(WorkflowRuns)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
