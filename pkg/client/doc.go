/*
Package client provides a Go client library for the burrow gRPC API.

The client wraps the registry service and the gRPC health service behind
plain methods with a per-call timeout. It is used by the CLI to inspect a
running scheduler and by workers to send heartbeats.

# Usage

	c, err := client.NewClient("127.0.0.1:9091")
	if err != nil {
		return err
	}
	defer c.Close()

	workers, err := c.ListWorkers("etl")
	status, err := c.GroupHealth("etl")

# Heartbeats

Client implements the probe package's HeartbeatSink, so a worker process
can report its local load to a remote registry:

	reporter := probe.NewReporter(cfg, probe.NewSystemSampler(time.Second), c)
	go reporter.Run(ctx)

Failed heartbeats are logged and dropped; the next tick retries. A worker
that stays unreachable longer than the heartbeat timeout is evicted by the
server's reconciler.

Connections are plaintext. Run the API on a trusted network or behind a
TLS-terminating proxy.
*/
package client
