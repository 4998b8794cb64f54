// Package tfservice serves transform lookups against the latest published
// snapshot over gRPC. Messages are protobuf Structs, so no generated code is
// involved; the service descriptor below is maintained by hand.
package tfservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tfgraph.TransformService"

const (
	lookupTransformMethod = "/" + ServiceName + "/LookupTransform"
	listFramesMethod      = "/" + ServiceName + "/ListFrames"
)

// TransformServiceServer is the server API for the transform service.
type TransformServiceServer interface {
	LookupTransform(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFrames(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the transform service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransformServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LookupTransform", Handler: lookupTransformHandler},
		{MethodName: "ListFrames", Handler: listFramesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tfgraph/transform_service",
}

// RegisterTransformServiceServer registers srv on s.
func RegisterTransformServiceServer(s grpc.ServiceRegistrar, srv TransformServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func lookupTransformHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).LookupTransform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lookupTransformMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformServiceServer).LookupTransform(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listFramesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).ListFrames(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listFramesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformServiceServer).ListFrames(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
