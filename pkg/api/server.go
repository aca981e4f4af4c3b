package api

import (
	"context"
	"fmt"
	"net"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server implements the registry gRPC service and the gRPC health service
type Server struct {
	registry *registry.Registry
	store    storage.Store
	health   *HealthReporter
	grpc     *grpc.Server
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used to stamp heartbeats
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// NewServer creates a new API server. The store may be nil, in which case
// worker group changes are not persisted.
func NewServer(reg *registry.Registry, store storage.Store, opts ...Option) *Server {
	logger := log.WithComponent("api")
	s := &Server{
		registry: reg,
		store:    store,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		grpc:     grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger))),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.health = NewHealthReporter(reg)
	RegisterRegistryServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health.Server())
	return s
}

// Start listens on addr and serves until Stop is called
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info().Str("addr", addr).Msg("gRPC API listening")
	return s.Serve(lis)
}

// Serve accepts connections on lis
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	s.health.Close()
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// Health returns the reporter behind the gRPC health service
func (s *Server) Health() *HealthReporter {
	return s.health
}

// Heartbeat registers or refreshes a worker. The heartbeat time is taken
// from the server clock.
func (s *Server) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	md := req.Worker.Clone()
	if md.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "worker address is required")
	}
	st, err := types.ParseServerStatus(string(md.Status))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	md.Status = st
	md.LastHeartbeat = s.clock.Now()

	s.registry.OnServerUpdate(md)
	return &HeartbeatResponse{Status: "ok"}, nil
}

// Deregister removes a worker
func (s *Server) Deregister(ctx context.Context, req *DeregisterRequest) (*DeregisterResponse, error) {
	if req.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "worker address is required")
	}
	removed := s.registry.RemoveIf(req.Address, func(*types.WorkerServerMetadata) bool { return true })
	return &DeregisterResponse{Removed: removed}, nil
}

// ListWorkers returns registered workers, optionally limited to one group
func (s *Server) ListWorkers(ctx context.Context, req *ListWorkersRequest) (*ListWorkersResponse, error) {
	var workers []*types.WorkerServerMetadata
	if req.Group == "" {
		workers = s.registry.Servers()
	} else {
		workers = s.registry.Members(req.Group)
	}
	if workers == nil {
		workers = []*types.WorkerServerMetadata{}
	}
	return &ListWorkersResponse{Workers: workers}, nil
}

// ListGroups returns the configured allowlists and every known group name
func (s *Server) ListGroups(ctx context.Context, req *ListGroupsRequest) (*ListGroupsResponse, error) {
	return &ListGroupsResponse{
		Groups: s.registry.Groups(),
		Names:  s.registry.GroupNames(),
	}, nil
}

// SetWorkerGroups applies allowlists to the registry and persists the result
func (s *Server) SetWorkerGroups(ctx context.Context, req *SetWorkerGroupsRequest) (*SetWorkerGroupsResponse, error) {
	for _, g := range req.Groups {
		if g.Name == "" {
			return nil, status.Error(codes.InvalidArgument, "worker group name is required")
		}
	}

	if req.Replace {
		s.registry.OnWorkerGroupChange(req.Groups)
	} else {
		s.registry.OnWorkerGroupAdd(req.Groups)
	}

	groups := s.registry.Groups()
	if err := s.persistGroups(groups); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist worker groups")
		return nil, status.Errorf(codes.Internal, "failed to persist worker groups: %v", err)
	}
	return &SetWorkerGroupsResponse{Groups: groups}, nil
}

// persistGroups makes the store hold exactly groups
func (s *Server) persistGroups(groups []types.WorkerGroup) error {
	if s.store == nil {
		return nil
	}

	stored, err := s.store.ListWorkerGroups()
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(groups))
	for _, g := range groups {
		keep[g.Name] = true
		if err := s.store.SaveWorkerGroup(g); err != nil {
			return err
		}
	}
	for _, g := range stored {
		if !keep[g.Name] {
			if err := s.store.DeleteWorkerGroup(g.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
