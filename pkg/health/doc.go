/*
Package health checks the liveness of workers that never send heartbeats.

Workers declared in a cluster file are registered without a heartbeat time,
so the reconciler never evicts them. The Monitor covers that gap: every
interval it probes each such worker and flips its registry status when it
stops answering.

	┌──────────────┐  Servers()   ┌───────────┐  Check(ctx)  ┌──────────┐
	│   Registry   │─────────────▶│  Monitor  │─────────────▶│ Checker  │
	│              │◀─────────────│           │◀─────────────│ TCP/HTTP │
	└──────────────┘  UpdateIf()  └───────────┘    Result    └──────────┘

# Checks

	tcp    connect to the worker address
	http   GET http://<address><path>, healthy on 200-399

# Status Transitions

A worker is marked ABNORMAL after Retries consecutive failed checks, which
takes it out of every balancer's candidate list. One passing check marks it
NORMAL again. Only marks made by the monitor are undone: a worker declared
ABNORMAL stays that way, and a worker that starts sending heartbeats is no
longer checked.

# Usage

	cfg := health.DefaultConfig()
	cfg.Type = health.CheckTypeHTTP

	mon := health.NewMonitor(reg, cfg, health.WithBroker(broker))
	mon.Start()
	defer mon.Stop()

Transitions are published as worker.unhealthy and worker.recovered events
and counted in burrow_worker_liveness_checks_total.
*/
package health
