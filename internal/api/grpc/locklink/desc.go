package locklink

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Fully-qualified names of the LockLink service and its methods.
const (
	ServiceName = "smartlock.v1.LockLink"

	SendFullMethodName    = "/smartlock.v1.LockLink/Send"
	ResultsFullMethodName = "/smartlock.v1.LockLink/Results"
	StatusFullMethodName  = "/smartlock.v1.LockLink/Status"
)

// LinkServer is the server API of the LockLink service.
type LinkServer interface {
	// Send delivers one command frame to the lock.
	Send(ctx context.Context, frame *wrapperspb.BytesValue) (*emptypb.Empty, error)
	// Results streams every result code the lock emits.
	Results(req *emptypb.Empty, stream grpc.ServerStreamingServer[wrapperspb.UInt32Value]) error
	// Status returns the current lock record.
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes LockLink for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Send",
			Handler:    sendHandler,
		},
		{
			MethodName: "Status",
			Handler:    statusHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Results",
			Handler:       resultsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "smartlock/v1/link.proto",
}

// Register attaches srv to the gRPC server.
func Register(s grpc.ServiceRegistrar, srv LinkServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sendHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(LinkServer).Send(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LinkServer).Send(ctx, req.(*wrapperspb.BytesValue))
	}

	return interceptor(ctx, in, info, handler)
}

func statusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(LinkServer).Status(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: StatusFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LinkServer).Status(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func resultsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(LinkServer).Results(in, &grpc.GenericServerStream[emptypb.Empty, wrapperspb.UInt32Value]{
		ServerStream: stream,
	})
}
