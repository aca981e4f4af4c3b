/*
Package reconciler removes workers that stopped sending heartbeats.

The registry only reacts to explicit add, update and remove calls. The
reconciler closes the loop: every EvictInterval it lists the registered
workers and removes each one whose last heartbeat is older than
HeartbeatTimeout.

	┌───────────── every 5s ─────────────┐
	│ for each worker in registry        │
	│   now - LastHeartbeat > 30s ?      │
	│     yes → RemoveIf(still stale)    │
	│           burrow_workers_evicted++ │
	│           publish worker.evicted   │
	└────────────────────────────────────┘

Removal goes through Registry.RemoveIf, which re-checks the worker under the
registry's write lock, so a heartbeat that lands during the pass keeps the
worker alive. Workers registered without a heartbeat timestamp, such as the
static entries of a cluster file, are never evicted.

Removing a worker produces a regular removed event, so the weighted
balancers drop it from their caches the same way they would for a
deregistration.

# Time

All time comes from a clockwork.Clock. Production code uses the real clock;
tests drive a fake one:

	clock := clockwork.NewFakeClock()
	r := reconciler.NewReconciler(reg, reconciler.Config{Clock: clock})
	clock.Advance(31 * time.Second)
	evicted := r.Reconcile()
*/
package reconciler
