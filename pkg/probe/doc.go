/*
Package probe turns local host load into worker heartbeats.

SystemSampler reads CPU and memory usage through gopsutil and reports them
as ratios. Classify maps a sample to a server status:

	sampling failed                       ABNORMAL
	cpu >= busyCPU or memory >= busyMemory BUSY
	otherwise                             NORMAL

Reporter samples on an interval and sends the result to a HeartbeatSink,
normally the registry, as an update for the local worker. The dynamic
weighted balancer picks the new figures up through its registry listener.

	r := probe.NewReporter(probe.ReporterConfig{
		Address: "10.0.0.7:5678",
		Groups:  []string{"etl"},
	}, probe.NewSystemSampler(time.Second), reg)
	go r.Run(ctx)
*/
package probe
