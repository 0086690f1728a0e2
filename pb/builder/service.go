package builder

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "soyuz.builder.Builder"

// BuilderClient is the client API for the Builder service.
type BuilderClient interface {
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Store(ctx context.Context, opts ...grpc.CallOption) (Builder_StoreClient, error)
	Build(ctx context.Context, in *BuildRequest, opts ...grpc.CallOption) (*BuildResponse, error)
	Retrieve(ctx context.Context, in *RetrieveRequest, opts ...grpc.CallOption) (Builder_RetrieveClient, error)
	Abort(ctx context.Context, in *AbortRequest, opts ...grpc.CallOption) (*AbortResponse, error)
	Clean(ctx context.Context, in *CleanRequest, opts ...grpc.CallOption) (*CleanResponse, error)
}

type builderClient struct {
	cc grpc.ClientConnInterface
}

func NewBuilderClient(cc grpc.ClientConnInterface) BuilderClient {
	return &builderClient{cc}
}

// Dial connects to the builder at addr (unauthenticated).
func Dial(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func (c *builderClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Status", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *builderClient) Store(ctx context.Context, opts ...grpc.CallOption) (Builder_StoreClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Store", opts...)
	if err != nil {
		return nil, err
	}
	return &builderStoreClient{stream}, nil
}

type Builder_StoreClient interface {
	Send(*Chunk) error
	CloseAndRecv() (*StoreResponse, error)
	grpc.ClientStream
}

type builderStoreClient struct {
	grpc.ClientStream
}

func (x *builderStoreClient) Send(m *Chunk) error {
	return x.ClientStream.SendMsg(m)
}

func (x *builderStoreClient) CloseAndRecv() (*StoreResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(StoreResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *builderClient) Build(ctx context.Context, in *BuildRequest, opts ...grpc.CallOption) (*BuildResponse, error) {
	out := new(BuildResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Build", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *builderClient) Retrieve(ctx context.Context, in *RetrieveRequest, opts ...grpc.CallOption) (Builder_RetrieveClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[1], "/"+serviceName+"/Retrieve", opts...)
	if err != nil {
		return nil, err
	}
	x := &builderRetrieveClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Builder_RetrieveClient interface {
	Recv() (*Chunk, error)
	grpc.ClientStream
}

type builderRetrieveClient struct {
	grpc.ClientStream
}

func (x *builderRetrieveClient) Recv() (*Chunk, error) {
	m := new(Chunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *builderClient) Abort(ctx context.Context, in *AbortRequest, opts ...grpc.CallOption) (*AbortResponse, error) {
	out := new(AbortResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Abort", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *builderClient) Clean(ctx context.Context, in *CleanRequest, opts ...grpc.CallOption) (*CleanResponse, error) {
	out := new(CleanResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Clean", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// BuilderServer is the server API for the Builder service.
type BuilderServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Store(Builder_StoreServer) error
	Build(context.Context, *BuildRequest) (*BuildResponse, error)
	Retrieve(*RetrieveRequest, Builder_RetrieveServer) error
	Abort(context.Context, *AbortRequest) (*AbortResponse, error)
	Clean(context.Context, *CleanRequest) (*CleanResponse, error)
}

func RegisterBuilderServer(s *grpc.Server, srv BuilderServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unaryHandler(method string, newReq func() interface{}, call func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req)
		}
		return interceptor(ctx, in, info, handler)
	}
}

type Builder_StoreServer interface {
	SendAndClose(*StoreResponse) error
	Recv() (*Chunk, error)
	grpc.ServerStream
}

type builderStoreServer struct {
	grpc.ServerStream
}

func (x *builderStoreServer) SendAndClose(m *StoreResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *builderStoreServer) Recv() (*Chunk, error) {
	m := new(Chunk)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type Builder_RetrieveServer interface {
	Send(*Chunk) error
	grpc.ServerStream
}

type builderRetrieveServer struct {
	grpc.ServerStream
}

func (x *builderRetrieveServer) Send(m *Chunk) error {
	return x.ServerStream.SendMsg(m)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Status",
			Handler: unaryHandler("Status",
				func() interface{} { return new(StatusRequest) },
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(BuilderServer).Status(ctx, req.(*StatusRequest))
				}),
		},
		{
			MethodName: "Build",
			Handler: unaryHandler("Build",
				func() interface{} { return new(BuildRequest) },
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(BuilderServer).Build(ctx, req.(*BuildRequest))
				}),
		},
		{
			MethodName: "Abort",
			Handler: unaryHandler("Abort",
				func() interface{} { return new(AbortRequest) },
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(BuilderServer).Abort(ctx, req.(*AbortRequest))
				}),
		},
		{
			MethodName: "Clean",
			Handler: unaryHandler("Clean",
				func() interface{} { return new(CleanRequest) },
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(BuilderServer).Clean(ctx, req.(*CleanRequest))
				}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Store",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(BuilderServer).Store(&builderStoreServer{stream})
			},
			ClientStreams: true,
		},
		{
			StreamName: "Retrieve",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				m := new(RetrieveRequest)
				if err := stream.RecvMsg(m); err != nil {
					return err
				}
				return srv.(BuilderServer).Retrieve(m, &builderRetrieveServer{stream})
			},
			ServerStreams: true,
		},
	},
	Metadata: "builder.proto",
}
