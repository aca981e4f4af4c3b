package client

import (
	"context"
	"net"
	"testing"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/probe"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

var _ probe.HeartbeatSink = (*Client)(nil)

func newTestClient(t *testing.T) (*Client, *registry.Registry, *api.Server) {
	t.Helper()

	reg := registry.New()
	srv := api.NewServer(reg, nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	c, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
		reg.Close()
	})
	return c, reg, srv
}

func TestClientRoundTrip(t *testing.T) {
	c, reg, srv := newTestClient(t)

	c.OnServerUpdate(&types.WorkerServerMetadata{Address: "a:1", Groups: []string{"etl"}, WorkerWeight: 50})
	require.NoError(t, c.Heartbeat(&types.WorkerServerMetadata{Address: "b:1", Groups: []string{"ml"}}))

	md, ok := reg.Server("a:1")
	require.True(t, ok)
	assert.Equal(t, 50, md.WorkerWeight)

	workers, err := c.ListWorkers("etl")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "a:1", workers[0].Address)

	groups, err := c.SetWorkerGroups([]types.WorkerGroup{{Name: "etl", Addresses: []string{"b:1"}}}, false)
	require.NoError(t, err)
	assert.Equal(t, []types.WorkerGroup{{Name: "etl", Addresses: []string{"b:1"}}}, groups)

	listed, err := c.ListGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"etl", "ml"}, listed.Names)

	srv.Health().Sync()
	st, err := c.GroupHealth("ml")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	removed, err := c.Deregister("b:1")
	require.NoError(t, err)
	assert.True(t, removed)

	srv.Health().Sync()
	st, err = c.GroupHealth("ml")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	st, err = c.GroupHealth("")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st, "a:1 is still normal")
}

func TestClientErrors(t *testing.T) {
	c, _, _ := newTestClient(t)

	assert.Error(t, c.Heartbeat(&types.WorkerServerMetadata{}))
	_, err := c.Deregister("")
	assert.Error(t, err)
	_, err = c.GroupHealth("missing")
	assert.Error(t, err)
}
