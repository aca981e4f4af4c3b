/*
Package config loads the burrow YAML configuration file.

Every section is optional. Parse decodes the file over Default, so a key
left out keeps its built-in value, and rejects keys it does not know:

	log: {level: info, json: false}
	balancer:
	  type: DYNAMIC_WEIGHTED_ROUND_ROBIN
	  dynamic: {cpuWeight: 30, memoryWeight: 40, queueWeight: 30}
	registry: {heartbeatTimeout: 30s, evictInterval: 5s, eventBuffer: 64}
	liveness:                     # checks of workers without heartbeats
	  enabled: false
	  type: tcp                   # or http, requesting path
	  path: /health
	  interval: 10s
	  timeout: 2s
	  retries: 3
	scheduler:
	  selectRetryMax: 5
	  selectRetryInitial: 100ms
	  selectRetryMaxInterval: 2s
	  taskRetries: 1
	  parallelism: 8
	server: {metricsAddr: 127.0.0.1:9090, grpcAddr: 127.0.0.1:9091, dataDir: ./burrow-data}
	worker:                       # optional local load probe
	  address: 10.0.0.1:1234
	  groups: [default]
	  weight: 100
	  interval: 10s
	  thresholds: {busyCPU: 0.9, busyMemory: 0.9}
	  server: 10.0.0.10:9091       # report to a remote API instead

Balancer type names are case-insensitive. Durations use Go syntax.

Configuration errors are meant to be fatal at startup: Load returns them
wrapped with the file path and the CLI exits.
*/
package config
