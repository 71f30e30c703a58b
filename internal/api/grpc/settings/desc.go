package settings

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "shutdowntimer.v1.SettingsService"

const (
	getSettingsMethod   = "/" + ServiceName + "/GetSettings"
	setSettingMethod    = "/" + ServiceName + "/SetSetting"
	watchSettingsMethod = "/" + ServiceName + "/WatchSettings"
)

// SettingsServiceServer is the server API of the settings service.
//
//	GetSettings(Empty) returns Struct of every key and value.
//	SetSetting(Struct{key, value}) returns Struct of every key after the write;
//	a null value resets the key to its default.
//	WatchSettings(Empty) streams Struct{key, value}, current values first.
type SettingsServiceServer interface {
	GetSettings(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetSetting(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WatchSettings(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

//nolint:gochecknoglobals // Service descriptors are registered by reference.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SettingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSettings",
			Handler:    getSettingsHandler,
		},
		{
			MethodName: "SetSetting",
			Handler:    setSettingHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSettings",
			Handler:       watchSettingsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "shutdowntimer/v1/settings.proto",
}

// RegisterSettingsServiceServer registers srv on the gRPC server.
func RegisterSettingsServiceServer(s grpc.ServiceRegistrar, srv SettingsServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func getSettingsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(SettingsServiceServer)
	if interceptor == nil {
		return server.GetSettings(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getSettingsMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*emptypb.Empty)

		return server.GetSettings(ctx, request)
	}

	return interceptor(ctx, in, info, handler)
}

func setSettingHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(SettingsServiceServer)
	if interceptor == nil {
		return server.SetSetting(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: setSettingMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*structpb.Struct)

		return server.SetSetting(ctx, request)
	}

	return interceptor(ctx, in, info, handler)
}

func watchSettingsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(SettingsServiceServer)

	return server.WatchSettings(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// SettingsServiceClient calls the settings service.
type SettingsServiceClient struct {
	// cc is the underlying connection.
	cc grpc.ClientConnInterface
}

// NewSettingsServiceClient creates a client on top of cc.
func NewSettingsServiceClient(cc grpc.ClientConnInterface) *SettingsServiceClient {
	return &SettingsServiceClient{
		cc: cc,
	}
}

// GetSettings returns every key and value.
func (c *SettingsServiceClient) GetSettings(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSettingsMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// SetSetting writes one key and returns every key and value afterwards.
func (c *SettingsServiceClient) SetSetting(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, setSettingMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// WatchSettings opens the change stream.
func (c *SettingsServiceClient) WatchSettings(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], watchSettingsMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err = x.SendMsg(in); err != nil {
		return nil, err
	}

	if err = x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}
