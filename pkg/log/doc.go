/*
Package log provides structured logging for burrow using zerolog.

A single package-level Logger is configured once by Init (level, JSON or
console output, destination writer) and shared by every component. Child
loggers carry the context fields used across the scheduler core:

	registryLog := log.WithComponent("registry")
	registryLog.Info().Str("worker_address", md.Address).Msg("Worker added")

	taskLog := log.WithTask("load").With().Str("run_id", runID).Logger()
	taskLog.Warn().Int("attempt", 2).Msg("Retrying dispatch")

Field conventions:
  - component: registry, balancer, scheduler, reconciler, probe, api, storage
  - worker_address: host:port of a worker
  - worker_group: logical worker group name
  - task: task node name
  - run_id: workflow run identifier

Use Info level in production. Selection happens on the dispatch hot path, so
per-selection logging is kept at Debug level.
*/
package log
