package api

import (
	"context"

	"github.com/cuemby/burrow/pkg/types"
	"google.golang.org/grpc"
)

// RegistryServiceName is the fully qualified gRPC service name
const RegistryServiceName = "burrow.Registry"

// Full method names
const (
	MethodHeartbeat       = "/" + RegistryServiceName + "/Heartbeat"
	MethodDeregister      = "/" + RegistryServiceName + "/Deregister"
	MethodListWorkers     = "/" + RegistryServiceName + "/ListWorkers"
	MethodListGroups      = "/" + RegistryServiceName + "/ListGroups"
	MethodSetWorkerGroups = "/" + RegistryServiceName + "/SetWorkerGroups"
)

// HeartbeatRequest carries a worker's current metadata
type HeartbeatRequest struct {
	Worker types.WorkerServerMetadata `json:"worker"`
}

type HeartbeatResponse struct {
	Status string `json:"status"`
}

type DeregisterRequest struct {
	Address string `json:"address"`
}

type DeregisterResponse struct {
	Removed bool `json:"removed"`
}

// ListWorkersRequest filters workers by group; an empty group lists all
type ListWorkersRequest struct {
	Group string `json:"group,omitempty"`
}

type ListWorkersResponse struct {
	Workers []*types.WorkerServerMetadata `json:"workers"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []types.WorkerGroup `json:"groups"`
	Names  []string            `json:"names"`
}

// SetWorkerGroupsRequest merges allowlists, or replaces all of them when
// Replace is set
type SetWorkerGroupsRequest struct {
	Groups  []types.WorkerGroup `json:"groups"`
	Replace bool                `json:"replace,omitempty"`
}

type SetWorkerGroupsResponse struct {
	Groups []types.WorkerGroup `json:"groups"`
}

// RegistryServer is the server side of the registry service
type RegistryServer interface {
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	Deregister(context.Context, *DeregisterRequest) (*DeregisterResponse, error)
	ListWorkers(context.Context, *ListWorkersRequest) (*ListWorkersResponse, error)
	ListGroups(context.Context, *ListGroupsRequest) (*ListGroupsResponse, error)
	SetWorkerGroups(context.Context, *SetWorkerGroupsRequest) (*SetWorkerGroupsResponse, error)
}

// RegisterRegistryServer registers srv on s
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&registryServiceDesc, srv)
}

// unary builds a method handler decoding Req and calling call
func unary[Req any](method string, call func(RegistryServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RegistryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var registryServiceDesc = grpc.ServiceDesc{
	ServiceName: RegistryServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Heartbeat",
			Handler: unary(MethodHeartbeat, func(s RegistryServer, ctx context.Context, in *HeartbeatRequest) (any, error) {
				return s.Heartbeat(ctx, in)
			}),
		},
		{
			MethodName: "Deregister",
			Handler: unary(MethodDeregister, func(s RegistryServer, ctx context.Context, in *DeregisterRequest) (any, error) {
				return s.Deregister(ctx, in)
			}),
		},
		{
			MethodName: "ListWorkers",
			Handler: unary(MethodListWorkers, func(s RegistryServer, ctx context.Context, in *ListWorkersRequest) (any, error) {
				return s.ListWorkers(ctx, in)
			}),
		},
		{
			MethodName: "ListGroups",
			Handler: unary(MethodListGroups, func(s RegistryServer, ctx context.Context, in *ListGroupsRequest) (any, error) {
				return s.ListGroups(ctx, in)
			}),
		},
		{
			MethodName: "SetWorkerGroups",
			Handler: unary(MethodSetWorkerGroups, func(s RegistryServer, ctx context.Context, in *SetWorkerGroupsRequest) (any, error) {
				return s.SetWorkerGroups(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "burrow/registry",
}

// RegistryClient is the client side of the registry service
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryClient wraps a connection. Calls use the JSON codec.
func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func (c *RegistryClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.invoke(ctx, MethodHeartbeat, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) Deregister(ctx context.Context, in *DeregisterRequest, opts ...grpc.CallOption) (*DeregisterResponse, error) {
	out := new(DeregisterResponse)
	if err := c.invoke(ctx, MethodDeregister, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) ListWorkers(ctx context.Context, in *ListWorkersRequest, opts ...grpc.CallOption) (*ListWorkersResponse, error) {
	out := new(ListWorkersResponse)
	if err := c.invoke(ctx, MethodListWorkers, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) ListGroups(ctx context.Context, in *ListGroupsRequest, opts ...grpc.CallOption) (*ListGroupsResponse, error) {
	out := new(ListGroupsResponse)
	if err := c.invoke(ctx, MethodListGroups, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) SetWorkerGroups(ctx context.Context, in *SetWorkerGroupsRequest, opts ...grpc.CallOption) (*SetWorkerGroupsResponse, error) {
	out := new(SetWorkerGroupsResponse)
	if err := c.invoke(ctx, MethodSetWorkerGroups, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
