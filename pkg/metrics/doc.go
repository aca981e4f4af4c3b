/*
Package metrics provides Prometheus metrics and health endpoints for burrow.

All collectors are package-level variables registered with the default
Prometheus registry at init, so any component can record a sample without
plumbing a registry handle through constructors:

	metrics.SelectionsTotal.WithLabelValues("ROUND_ROBIN", "selected").Inc()

	timer := metrics.NewTimer()
	g, err := graph.Resolve(req)
	timer.ObserveDurationVec(metrics.ResolveLatency, string(req.Mode))

# Metrics Catalog

Registry:

	burrow_workers_total{group, status}            gauge, sampled by Collector
	burrow_workers_evicted_total                   counter, heartbeat timeouts
	burrow_worker_liveness_checks_total{result}    counter, static worker probes

Balancer:

	burrow_balancer_selections_total{strategy, result}
	    counter; result is "selected" or "empty"
	burrow_balancer_worker_weight{strategy, worker}
	    gauge; current weight in the weighted strategies

Resolver:

	burrow_resolve_duration_seconds{mode}          histogram
	burrow_resolved_nodes                          histogram

Scheduler:

	burrow_tasks_dispatched_total{group}           counter
	burrow_tasks_completed_total                   counter
	burrow_tasks_failed_total                      counter, per failed attempt
	burrow_tasks_skipped_total                     counter, forbidden nodes
	burrow_dispatch_latency_seconds                histogram
	burrow_workflow_runs_total{status}             counter

# Collector

Collector samples the registry every 15 seconds and rewrites
burrow_workers_total, resetting the vector first so groups that vanished
stop being exported.

	collector := metrics.NewCollector(reg)
	collector.Start()
	defer collector.Stop()

# Health Endpoints

Components report their state with RegisterComponent and UpdateComponent.
Three handlers expose it:

	/health  200 unless a registered component is unhealthy
	/ready   200 once every entry of CriticalComponents is healthy
	/live    always 200 while the process runs

The critical components are the registry and the balancer: without them no
task can be dispatched.

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
*/
package metrics
