package health

import (
	"context"
	"sort"
	"sync"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChecks bounds the checks of one round
const maxConcurrentChecks = 16

// Monitor actively checks workers that never send heartbeats. A worker
// failing Retries checks in a row is marked ABNORMAL; the next passing
// check marks it NORMAL again. Workers that report heartbeats carry their
// own status and are not checked.
type Monitor struct {
	registry   *registry.Registry
	cfg        Config
	clock      clockwork.Clock
	broker     *events.Broker
	newChecker func(address string) Checker
	logger     zerolog.Logger

	mu       sync.Mutex
	statuses map[string]*Status
	marked   map[string]bool // addresses this monitor set ABNORMAL

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock sets the clock driving check rounds
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = clock }
}

// WithBroker publishes health transitions to broker
func WithBroker(broker *events.Broker) Option {
	return func(m *Monitor) { m.broker = broker }
}

// WithCheckerFactory replaces the checker built for each address
func WithCheckerFactory(fn func(address string) Checker) Option {
	return func(m *Monitor) { m.newChecker = fn }
}

// NewMonitor creates a liveness monitor over reg
func NewMonitor(reg *registry.Registry, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		registry: reg,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		logger:   log.WithComponent("liveness"),
		statuses: make(map[string]*Status),
		marked:   make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	m.newChecker = cfg.NewChecker
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins periodic check rounds
func (m *Monitor) Start() {
	go m.run()
}

// Stop ends the check loop and waits for the running round
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := m.clock.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.CheckAll(ctx)
		case <-m.stopCh:
			return
		}
	}
}

// CheckAll runs one round over every static worker and returns the
// addresses currently considered unhealthy, sorted
func (m *Monitor) CheckAll(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var targets []string
	present := make(map[string]bool)
	for _, md := range m.registry.Servers() {
		if md.LastHeartbeat.IsZero() {
			targets = append(targets, md.Address)
			present[md.Address] = true
		}
	}
	for addr := range m.statuses {
		if !present[addr] {
			delete(m.statuses, addr)
			delete(m.marked, addr)
		}
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i, addr := range targets {
		g.Go(func() error {
			results[i] = m.newChecker(addr).Check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return m.unhealthy()
	}

	for i, addr := range targets {
		m.apply(addr, results[i])
	}
	return m.unhealthy()
}

func (m *Monitor) apply(addr string, result Result) {
	status, ok := m.statuses[addr]
	if !ok {
		status = NewStatus()
		m.statuses[addr] = status
	}
	wasHealthy := status.Healthy
	status.Update(result, m.cfg.Retries)

	if result.Healthy {
		metrics.WorkerLivenessChecks.WithLabelValues("healthy").Inc()
	} else {
		metrics.WorkerLivenessChecks.WithLabelValues("unhealthy").Inc()
		m.logger.Debug().
			Str("worker_address", addr).
			Int("failures", status.ConsecutiveFailures).
			Str("message", result.Message).
			Msg("Liveness check failed")
	}

	switch {
	case wasHealthy && !status.Healthy:
		if m.setStatus(addr, types.ServerStatusAbnormal) {
			m.marked[addr] = true
			m.logger.Warn().
				Str("worker_address", addr).
				Str("message", result.Message).
				Msg("Worker marked abnormal after failed liveness checks")
			m.publish(events.EventWorkerUnhealthy, result.Message, addr)
		}
	case status.Healthy && m.marked[addr]:
		delete(m.marked, addr)
		if m.setStatus(addr, types.ServerStatusNormal) {
			m.logger.Info().Str("worker_address", addr).Msg("Worker recovered")
			m.publish(events.EventWorkerRecovered, result.Message, addr)
		}
	}
}

// setStatus changes a static worker's status unless a heartbeat arrived
// since the round started
func (m *Monitor) setStatus(addr string, status types.ServerStatus) bool {
	return m.registry.UpdateIf(addr, func(md *types.WorkerServerMetadata) bool {
		if !md.LastHeartbeat.IsZero() || md.Status == status {
			return false
		}
		md.Status = status
		return true
	})
}

func (m *Monitor) unhealthy() []string {
	var addrs []string
	for addr, status := range m.statuses {
		if !status.Healthy {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)
	return addrs
}

func (m *Monitor) publish(t events.EventType, message, addr string) {
	m.broker.Publish(events.NewEvent(t, message, map[string]string{"worker_address": addr}))
}
