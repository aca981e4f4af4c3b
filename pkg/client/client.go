package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultTimeout bounds every call made by the client
const DefaultTimeout = 10 * time.Second

// Client wraps the burrow gRPC API for CLI and worker use
type Client struct {
	conn     *grpc.ClientConn
	registry *api.RegistryClient
	health   healthpb.HealthClient
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewClient creates a client for the API server at addr. The connection is
// established lazily on the first call.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	return &Client{
		conn:     conn,
		registry: api.NewRegistryClient(conn),
		health:   healthpb.NewHealthClient(conn),
		timeout:  DefaultTimeout,
		logger:   log.WithComponent("client"),
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Heartbeat reports a worker's current metadata
func (c *Client) Heartbeat(md *types.WorkerServerMetadata) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	_, err := c.registry.Heartbeat(ctx, &api.HeartbeatRequest{Worker: *md})
	return err
}

// OnServerUpdate sends md as a heartbeat, logging failures. It lets the
// client stand in for a local registry as a probe reporter's sink.
func (c *Client) OnServerUpdate(md *types.WorkerServerMetadata) {
	if err := c.Heartbeat(md); err != nil {
		c.logger.Warn().Err(err).Str("worker_address", md.Address).Msg("Failed to send heartbeat")
	}
}

// Deregister removes a worker and reports whether it was registered
func (c *Client) Deregister(address string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.registry.Deregister(ctx, &api.DeregisterRequest{Address: address})
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

// ListWorkers lists workers, optionally limited to one group
func (c *Client) ListWorkers(group string) ([]*types.WorkerServerMetadata, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.registry.ListWorkers(ctx, &api.ListWorkersRequest{Group: group})
	if err != nil {
		return nil, err
	}
	return resp.Workers, nil
}

// ListGroups lists configured allowlists and every known group name
func (c *Client) ListGroups() (*api.ListGroupsResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	return c.registry.ListGroups(ctx, &api.ListGroupsRequest{})
}

// SetWorkerGroups merges allowlists, or replaces all of them
func (c *Client) SetWorkerGroups(groups []types.WorkerGroup, replace bool) ([]types.WorkerGroup, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.registry.SetWorkerGroups(ctx, &api.SetWorkerGroupsRequest{Groups: groups, Replace: replace})
	if err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// GroupHealth checks whether group can currently receive dispatches. An
// empty group checks the cluster as a whole.
func (c *Client) GroupHealth(group string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	service := ""
	if group != "" {
		service = api.GroupService(group)
	}
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}
