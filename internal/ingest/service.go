// Package ingest is the gRPC front the face detector pushes readings to.
//
// Messages are google.protobuf.Struct so the detector side needs no generated
// stubs beyond the well-known types:
//
//	PushFrame  {left_eye_open, right_eye_open, face_width, timestamp?} -> status
//	Stats      Empty -> counters
//	EndSession Empty -> report
package ingest

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified service name, also used for health checks.
const ServiceName = "drowsiness.v1.Monitor"

const (
	methodPushFrame  = "/" + ServiceName + "/PushFrame"
	methodStats      = "/" + ServiceName + "/Stats"
	methodEndSession = "/" + ServiceName + "/EndSession"
)

// MonitorServer is the server side of drowsiness.v1.Monitor.
type MonitorServer interface {
	PushFrame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	EndSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterMonitorServer registers srv on s.
func RegisterMonitorServer(s grpc.ServiceRegistrar, srv MonitorServer) {
	s.RegisterService(&monitorServiceDesc, srv)
}

var monitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PushFrame", Handler: pushFrameHandler},
		{MethodName: "Stats", Handler: statsHandler},
		{MethodName: "EndSession", Handler: endSessionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drowsiness/v1/monitor.proto",
}

func pushFrameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServer).PushFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPushFrame}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServer).PushFrame(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStats}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func endSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServer).EndSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodEndSession}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServer).EndSession(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
