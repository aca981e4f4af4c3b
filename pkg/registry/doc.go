/*
Package registry keeps the live view of worker servers and worker groups.

Workers announce themselves through heartbeats carrying their address, the
groups they serve, a health status and load figures. The registry stores the
latest heartbeat per address and answers the one question load balancers ask
on every dispatch: which NORMAL workers currently serve a group.

# Data Model

	address -> WorkerServerMetadata   (sync.Map of immutable snapshots)
	group   -> []address               (optional allowlist, RWMutex)

A group with an allowlist is made of exactly the listed addresses. A group
without one is made of every worker that registered with that group tag.
BUSY and ABNORMAL workers stay visible through Server, Servers and Members
but are never returned by GetNormalWorkerServerAddressByGroup.

# Change Notification

Balancers that keep derived per-worker state subscribe with
RegisterListener. Each subscription owns a bounded channel and a goroutine
that invokes the listener callbacks:

	mutation ──► pubMu ──► update snapshot ──► enqueue ChangeEvent
	                                                 │
	                       ┌─────────────────────────┼──────────────┐
	                       ▼                         ▼              ▼
	                  sub 1 chan                sub 2 chan      sub N chan
	                       │                         │              │
	                  listener 1                listener 2      listener N

Writers hold pubMu while they update the snapshot and enqueue the event, so
every listener sees changes in the same order they were applied. A full
channel applies back-pressure to writers instead of dropping events. Reads
never take pubMu, which lets callbacks query the registry without
deadlocking.

On registration the current membership is replayed as added events, so a
listener never misses a worker that joined before it subscribed.

	sub := reg.RegisterListener(registry.ListenerFuncs{
		Added: func(md *types.WorkerServerMetadata) { cache.Put(md) },
	})
	defer sub.Close()

Sync waits until everything published so far has been handled, which keeps
tests and the simulate command deterministic.

# Usage

	reg := registry.New(registry.WithEventBuffer(128))
	reg.OnServerAdded(&types.WorkerServerMetadata{
		Address: "10.0.0.5:1234",
		Groups:  []string{"etl"},
		Status:  types.ServerStatusNormal,
	})
	reg.GetNormalWorkerServerAddressByGroup("etl") // [10.0.0.5:1234]
*/
package registry
