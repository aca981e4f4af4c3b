package api

import (
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GroupServicePrefix prefixes worker group names in health service names
const GroupServicePrefix = "burrow.group/"

// GroupService returns the health service name reporting on group
func GroupService(group string) string {
	return GroupServicePrefix + group
}

// HealthReporter publishes dispatch readiness through the gRPC health
// protocol. A group's service is SERVING while the group has a NORMAL
// worker; the overall "" service is SERVING while any worker is NORMAL.
type HealthReporter struct {
	registry *registry.Registry
	server   *health.Server
	sub      *registry.Subscription

	mu    sync.Mutex
	known map[string]bool

	logger zerolog.Logger
}

// NewHealthReporter creates a reporter kept current by registry events
func NewHealthReporter(reg *registry.Registry) *HealthReporter {
	h := &HealthReporter{
		registry: reg,
		server:   health.NewServer(),
		known:    make(map[string]bool),
		logger:   log.WithComponent("health"),
	}
	h.Refresh()

	changed := func(*types.WorkerServerMetadata) { h.Refresh() }
	h.sub = reg.RegisterListener(registry.ListenerFuncs{
		Added:   changed,
		Removed: changed,
		Updated: changed,
		Groups:  h.Refresh,
	})
	return h
}

// Server returns the health service to register on a gRPC server
func (h *HealthReporter) Server() healthpb.HealthServer {
	return h.server
}

// Refresh recomputes every service status from the registry
func (h *HealthReporter) Refresh() {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := make(map[string]bool)
	anyNormal := false
	for _, group := range h.registry.GroupNames() {
		serving := len(h.registry.GetNormalWorkerServerAddressByGroup(group)) > 0
		anyNormal = anyNormal || serving
		name := GroupService(group)
		current[name] = true
		h.server.SetServingStatus(name, servingStatus(serving))
	}

	// Groups that disappeared stay known to clients as not serving
	for name := range h.known {
		if !current[name] {
			h.server.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
			current[name] = true
		}
	}
	h.known = current

	if !anyNormal {
		for _, md := range h.registry.Servers() {
			if md.IsNormal() {
				anyNormal = true
				break
			}
		}
	}
	h.server.SetServingStatus("", servingStatus(anyNormal))
}

// Sync waits until every registry change made so far is reflected
func (h *HealthReporter) Sync() {
	h.sub.Sync()
}

// Close stops following the registry and marks every service NOT_SERVING
func (h *HealthReporter) Close() {
	h.sub.Close()
	h.server.Shutdown()
}

func servingStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
