package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RegisterEvaluatorServer registers srv on s under ServiceName.
func RegisterEvaluatorServer(s grpc.ServiceRegistrar, srv EvaluatorServer) {
	s.RegisterService(&evaluatorServiceDesc, srv)
}

type unaryMethod func(EvaluatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EvaluatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(EvaluatorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var evaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Evaluate", EvaluatorServer.Evaluate),
		unaryHandler("ParseType", EvaluatorServer.ParseType),
		unaryHandler("Layout", EvaluatorServer.Layout),
		unaryHandler("ListBindings", EvaluatorServer.ListBindings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nil/v1/evaluator.proto",
}

// EvaluatorClient is the client API for the Evaluator service.
type EvaluatorClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluatorClient returns a client calling the Evaluator service over cc.
func NewEvaluatorClient(cc grpc.ClientConnInterface) *EvaluatorClient {
	return &EvaluatorClient{cc: cc}
}

func (c *EvaluatorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate evaluates a constant expression against an optional definition.
func (c *EvaluatorClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Evaluate", in, opts...)
}

// ParseType parses a type expression and returns its canonical form.
func (c *EvaluatorClient) ParseType(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ParseType", in, opts...)
}

// Layout reports the layout of a type expression.
func (c *EvaluatorClient) Layout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Layout", in, opts...)
}

// ListBindings lists the declared bindings of a definition.
func (c *EvaluatorClient) ListBindings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListBindings", in, opts...)
}
