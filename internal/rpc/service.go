package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "twin.v1.Simulation"

const (
	methodSetInput  = "/" + ServiceName + "/SetInput"
	methodRun       = "/" + ServiceName + "/Run"
	methodState     = "/" + ServiceName + "/State"
	methodSubscribe = "/" + ServiceName + "/Subscribe"
)

// #region server-interface

// SimulationServer is the server API for the Simulation service.
// Messages are well-known protobuf types; see codec.go for field layout.
type SimulationServer interface {
	SetInput(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Run(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	State(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterSimulationServer registers srv on s.
func RegisterSimulationServer(s grpc.ServiceRegistrar, srv SimulationServer) {
	s.RegisterService(&simulationServiceDesc, srv)
}

// #endregion server-interface

// #region service-desc

var simulationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetInput", Handler: setInputHandler},
		{MethodName: "Run", Handler: runHandler},
		{MethodName: "State", Handler: stateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "twin/v1/simulation.proto",
}

func setInputHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServer).SetInput(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetInput}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServer).SetInput(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRun}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServer).Run(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func stateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServer).State(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServer).State(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SimulationServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// #endregion service-desc

// #region client-stub

// simulationClient is the low-level stub; Client wraps it with engine types.
type simulationClient interface {
	SetInput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Run(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type stub struct {
	cc grpc.ClientConnInterface
}

func (c *stub) SetInput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodSetInput, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stub) Run(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRun, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stub) State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodState, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stub) Subscribe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &simulationServiceDesc.Streams[0], methodSubscribe, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// #endregion client-stub
