/*
Package api exposes the registry to workers and operators.

Two servers live here. The gRPC Server carries worker heartbeats into the
registry and reports dispatch readiness through the standard gRPC health
protocol. The HTTP HealthServer serves process health, Prometheus metrics
and read-only JSON views of the registry and run history.

# Architecture

	┌──────────┐  Heartbeat / Deregister  ┌─────────────────────────────┐
	│ worker   │ ───────────────────────► │ gRPC Server                 │
	│ reporter │                          │  burrow.Registry (JSON)     │
	└──────────┘                          │  grpc.health.v1.Health      │
	                                      └──────┬──────────────▲───────┘
	┌──────────┐  ListWorkers / SetWorker-       │              │ events
	│ burrow   │  Groups / Health.Check          ▼              │
	│ CLI      │ ─────────────────────►  ┌───────────────┐      │
	└──────────┘                         │   Registry    │ ─────┘
	                                     └───────┬───────┘
	                                             │
	┌──────────┐  /health /ready /live   ┌───────▼───────┐
	│ monitor  │ ──────────────────────► │ HealthServer  │
	└──────────┘  /metrics /workers /runs└───────────────┘

# Registry Service

burrow.Registry is a plain gRPC service whose messages are the Go structs in
this package, encoded with a JSON codec registered under the "json" content
subtype. RegistryClient sets the subtype on every call.

	Heartbeat        upsert a worker; LastHeartbeat is stamped by the server
	Deregister       remove a worker
	ListWorkers      all workers, or the members of one group
	ListGroups       configured allowlists and every known group name
	SetWorkerGroups  merge or replace allowlists; persisted when a store is set

Invalid input is rejected with codes.InvalidArgument.

# Health Service

HealthReporter follows registry events and keeps one health service per
worker group:

	burrow.group/<name>   SERVING while the group has a NORMAL worker
	""                    SERVING while any worker is NORMAL

A group that disappears stays NOT_SERVING rather than unknown, so clients
watching it see the transition.

# Usage

	srv := api.NewServer(reg, store)
	go func() {
		if err := srv.Start(cfg.Server.GRPCAddr); err != nil {
			log.Error(err.Error())
		}
	}()
	defer srv.Stop()

	hs := api.NewHealthServer(reg, store)
	go hs.Start(cfg.Server.MetricsAddr)
*/
package api
