package metrics

import (
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
)

// DefaultCollectInterval is how often registry gauges are refreshed
const DefaultCollectInterval = 15 * time.Second

// Collector samples the registry into gauges
type Collector struct {
	registry *registry.Registry
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(reg *registry.Registry) *Collector {
	return &Collector{
		registry: reg,
		interval: DefaultCollectInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer close(c.doneCh)

		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector and waits for a running collection
func (c *Collector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Collect refreshes burrow_workers_total from the current registry view
func (c *Collector) Collect() {
	counts := make(map[string]map[types.ServerStatus]int)

	for _, group := range c.registry.GroupNames() {
		byStatus := make(map[types.ServerStatus]int)
		for _, md := range c.registry.Members(group) {
			byStatus[md.Status]++
		}
		counts[group] = byStatus
	}

	UpdateComponent("registry", true, fmt.Sprintf("%d workers in %d groups", len(c.registry.Servers()), len(counts)))

	// Groups may disappear between samples
	WorkersTotal.Reset()
	for group, byStatus := range counts {
		for _, status := range []types.ServerStatus{
			types.ServerStatusNormal,
			types.ServerStatusBusy,
			types.ServerStatusAbnormal,
		} {
			WorkersTotal.WithLabelValues(group, string(status)).Set(float64(byStatus[status]))
		}
	}
}
