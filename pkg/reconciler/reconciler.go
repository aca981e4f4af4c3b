package reconciler

import (
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	// DefaultHeartbeatTimeout is how long a worker may go without a heartbeat
	DefaultHeartbeatTimeout = 30 * time.Second

	// DefaultEvictInterval is how often stale workers are looked for
	DefaultEvictInterval = 5 * time.Second
)

// Config tunes the reconciler. Zero values take the defaults.
type Config struct {
	HeartbeatTimeout time.Duration
	EvictInterval    time.Duration
	Clock            clockwork.Clock
	Broker           *events.Broker
}

// Reconciler evicts workers whose heartbeats stopped
type Reconciler struct {
	registry *registry.Registry
	timeout  time.Duration
	interval time.Duration
	clock    clockwork.Clock
	broker   *events.Broker
	logger   zerolog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewReconciler creates a new reconciler
func NewReconciler(reg *registry.Registry, cfg Config) *Reconciler {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.EvictInterval <= 0 {
		cfg.EvictInterval = DefaultEvictInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Reconciler{
		registry: reg,
		timeout:  cfg.HeartbeatTimeout,
		interval: cfg.EvictInterval,
		clock:    cfg.Clock,
		broker:   cfg.Broker,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the eviction loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the eviction loop and waits for it to exit
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Reconciler) run() {
	defer close(r.doneCh)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.Reconcile()
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one eviction pass and returns the evicted addresses.
// Workers that never reported a heartbeat are left alone.
func (r *Reconciler) Reconcile() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var evicted []string

	for _, md := range r.registry.Servers() {
		if !r.stale(md, now) {
			continue
		}

		// A heartbeat may have landed since the listing
		removed := r.registry.RemoveIf(md.Address, func(current *types.WorkerServerMetadata) bool {
			return r.stale(current, now)
		})
		if !removed {
			continue
		}

		silence := now.Sub(md.LastHeartbeat)
		r.logger.Warn().
			Str("worker_address", md.Address).
			Dur("silence", silence).
			Msg("Worker evicted after missing heartbeats")

		metrics.WorkersEvicted.Inc()
		r.broker.Publish(events.NewEvent(events.EventWorkerEvicted, "heartbeat timeout", map[string]string{
			"worker_address": md.Address,
			"silence":        silence.String(),
		}))
		evicted = append(evicted, md.Address)
	}

	return evicted
}

func (r *Reconciler) stale(md *types.WorkerServerMetadata, now time.Time) bool {
	if md.LastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(md.LastHeartbeat) > r.timeout
}
