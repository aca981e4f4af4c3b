package probe

import (
	"context"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultReportInterval is how often the local worker heartbeat is sent
const DefaultReportInterval = 10 * time.Second

// HeartbeatSink receives heartbeats; *registry.Registry satisfies it
type HeartbeatSink interface {
	OnServerUpdate(md *types.WorkerServerMetadata)
}

// ReporterConfig describes the local worker being reported
type ReporterConfig struct {
	Address    string
	Groups     []string
	Weight     int
	Thresholds Thresholds
	Interval   time.Duration

	// QueueUsage returns the task pool usage ratio; nil reports 0
	QueueUsage func() float64

	Clock clockwork.Clock
}

// Reporter samples local load and feeds it to the registry as heartbeats
type Reporter struct {
	cfg     ReporterConfig
	sampler Sampler
	sink    HeartbeatSink
	logger  zerolog.Logger
}

// NewReporter creates a heartbeat reporter
func NewReporter(cfg ReporterConfig, sampler Sampler, sink HeartbeatSink) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReportInterval
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Reporter{
		cfg:     cfg,
		sampler: sampler,
		sink:    sink,
		logger:  log.WithWorker(cfg.Address).With().Str("component", "probe").Logger(),
	}
}

// Report takes one sample and sends the resulting heartbeat
func (r *Reporter) Report(ctx context.Context) *types.WorkerServerMetadata {
	sample, err := r.sampler.Sample(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Load sampling failed")
	}

	queue := 0.0
	if r.cfg.QueueUsage != nil {
		queue = r.cfg.QueueUsage()
	}

	md := &types.WorkerServerMetadata{
		Address:             r.cfg.Address,
		Groups:              r.cfg.Groups,
		Status:              Classify(sample, err, r.cfg.Thresholds),
		CPUUsage:            sample.CPUUsage,
		MemoryUsage:         sample.MemoryUsage,
		TaskThreadPoolUsage: queue,
		WorkerWeight:        r.cfg.Weight,
		LastHeartbeat:       r.cfg.Clock.Now(),
	}
	r.sink.OnServerUpdate(md)

	r.logger.Debug().
		Float64("cpu", md.CPUUsage).
		Float64("memory", md.MemoryUsage).
		Str("status", string(md.Status)).
		Msg("Heartbeat sent")
	return md
}

// Run reports immediately and then every interval until ctx is done
func (r *Reporter) Run(ctx context.Context) {
	r.Report(ctx)

	ticker := r.cfg.Clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.Report(ctx)
		case <-ctx.Done():
			return
		}
	}
}
