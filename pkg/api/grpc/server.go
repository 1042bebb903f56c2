// Package grpcapi implements the nil.v1.Evaluator gRPC service. Requests and
// responses are google.protobuf.Struct messages carrying the same fields as
// the REST API bodies, so no generated code is needed on either side.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/nil-layout/pkg/ast"
	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/parser"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nil.v1.Evaluator"

// EvaluatorServer is the server API for the Evaluator service.
type EvaluatorServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ParseType(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Layout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBindings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements the Evaluator service over a runtime catalog.
type Server struct {
	catalog *runtime.Catalog
	grpc    *grpc.Server
}

// New creates a new gRPC server evaluating against the given catalog.
func New(catalog *runtime.Catalog) *Server {
	srv := &Server{catalog: catalog}

	gs := grpc.NewServer()
	RegisterEvaluatorServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// --- Evaluator Service ---

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.toRuntime(req)
	if err != nil {
		return nil, err
	}
	v, err := s.catalog.Evaluate(r)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"value": v.ToGoValue(),
		"kind":  v.Type().String(),
	})
}

func (s *Server) ParseType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source := req.GetFields()["source"].GetStringValue()
	if source == "" {
		return nil, status.Error(codes.InvalidArgument, "source is required")
	}
	t, err := expr.ParseType(source)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"type":   t.ToMap(),
		"string": t.String(),
	})
}

func (s *Server) Layout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.toRuntime(req)
	if err != nil {
		return nil, err
	}
	l, err := s.catalog.Layout(r)
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]interface{}{
		"type":  l.Type,
		"align": l.Align,
	}
	if l.Size != nil {
		out["size"] = *l.Size
	}
	if l.Len != nil {
		out["len"] = *l.Len
	}
	return newStruct(out)
}

func (s *Server) ListBindings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["definition"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "definition is required")
	}
	compiled, err := s.catalog.Compile(name, nil)
	if err != nil {
		return nil, toStatus(err)
	}

	infos := compiled.Describe()
	bindings := make([]interface{}, len(infos))
	for i, info := range infos {
		b := map[string]interface{}{"name": info.Name, "kind": info.Kind}
		if info.Value != nil {
			b["value"] = info.Value
		}
		if info.Type != "" {
			b["type"] = info.Type
		}
		if info.Layout != nil {
			l := map[string]interface{}{"align": info.Layout.Align}
			if info.Layout.Size != nil {
				l["size"] = *info.Layout.Size
			}
			if info.Layout.Len != nil {
				l["len"] = *info.Layout.Len
			}
			b["layout"] = l
		}
		if info.Error != "" {
			b["error"] = info.Error
		}
		bindings[i] = b
	}
	return newStruct(map[string]interface{}{"bindings": bindings})
}

// --- Helpers ---

// toRuntime converts a request struct into a catalog request. Bindings and
// layout fields arrive as protobuf numbers (float64).
func (s *Server) toRuntime(req *structpb.Struct) (runtime.Request, error) {
	fields := req.AsMap()

	source, _ := fields["source"].(string)
	if source == "" {
		return runtime.Request{}, status.Error(codes.InvalidArgument, "source is required")
	}
	out := runtime.Request{Source: source}
	out.Definition, _ = fields["definition"].(string)

	if raw, ok := fields["bindings"]; ok {
		bindings, ok := raw.(map[string]interface{})
		if !ok {
			return out, status.Error(codes.InvalidArgument, "bindings must be an object")
		}
		out.Bindings = bindings
	}

	if raw, ok := fields["layout"]; ok {
		layout, ok := raw.(map[string]interface{})
		if !ok {
			return out, status.Error(codes.InvalidArgument, "layout must be an object")
		}
		params, err := layoutFromMap(layout, s.catalog.Defaults())
		if err != nil {
			return out, status.Errorf(codes.InvalidArgument, "invalid layout: %v", err)
		}
		out.Layout = &params
	}
	return out, nil
}

// layoutFromMap overrides defaults with the fields present in m.
func layoutFromMap(m map[string]interface{}, defaults types.LayoutParams) (types.LayoutParams, error) {
	var spec ast.LayoutSpec
	for key, raw := range m {
		switch key {
		case "wordSize", "pointerSize":
			n, ok := raw.(float64)
			if !ok || n != float64(int64(n)) {
				return defaults, fmt.Errorf("%s must be an integer", key)
			}
			if key == "wordSize" {
				spec.WordSize = int64(n)
			} else {
				spec.PointerSize = int64(n)
			}
		case "byteOrder":
			str, _ := raw.(string)
			order, err := types.ParseByteOrder(str)
			if err != nil {
				return defaults, err
			}
			spec.ByteOrder = order
		default:
			return defaults, fmt.Errorf("unknown layout field %q", key)
		}
	}
	params := spec.Apply(defaults)
	if err := params.Validate(); err != nil {
		return defaults, err
	}
	return params, nil
}

// toStatus maps an evaluation error to a gRPC status. Core errors carry their
// kind and position as a Struct detail.
func toStatus(err error) error {
	var parseErr *parser.ParseError
	code := codes.Internal
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	case errors.As(err, &parseErr):
		code = codes.InvalidArgument
	}

	te, ok := types.AsError(err)
	if !ok {
		return status.Error(code, err.Error())
	}

	detail := map[string]interface{}{"kind": string(te.Kind)}
	if te.Pos != types.NoPos {
		detail["position"] = te.Pos
	}
	st := status.New(codes.InvalidArgument, err.Error())
	d, derr := structpb.NewStruct(detail)
	if derr != nil {
		return st.Err()
	}
	if withDetails, derr := st.WithDetails(d); derr == nil {
		st = withDetails
	}
	return st.Err()
}

// ErrorKind extracts the core error kind and source position from a status
// error returned by this service. ok is false when err carries neither.
func ErrorKind(err error) (string, int, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", types.NoPos, false
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		fields := s.GetFields()
		pos := types.NoPos
		if p, ok := fields["position"]; ok {
			pos = int(p.GetNumberValue())
		}
		return fields["kind"].GetStringValue(), pos, true
	}
	return "", types.NoPos, false
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}
