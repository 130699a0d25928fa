package grpc

import (
	"context"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vibast-solutions/ms-go-apikeys/app/service"
)

const (
	ServiceName    = "apikeys.v1.KeyService"
	MethodValidate = "/" + ServiceName + "/Validate"
	MethodIdentity = "/" + ServiceName + "/Identity"
)

// KeyServiceServer is the gRPC face of key validation. Messages are
// protobuf well-known types, so clients need no generated stubs.
type KeyServiceServer interface {
	Validate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Identity(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type Server struct {
	validator service.Validator
}

func NewServer(validator service.Validator) *Server {
	return &Server{validator: validator}
}

// PublicMethods lists the calls that authenticate themselves and must skip
// the API key interceptor.
func PublicMethods() []string {
	return []string{MethodValidate}
}

func (s *Server) Validate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	identity, err := s.validator.Validate(ctx, req.GetValue(), requestInfo(ctx, MethodValidate))
	if err != nil {
		return nil, statusFromValidation(err)
	}
	return identityStruct(identity)
}

func (s *Server) Identity(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := service.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "API key is required")
	}
	return identityStruct(identity)
}

func identityStruct(identity *service.Identity) (*structpb.Struct, error) {
	var lastUsedAt any
	if identity.Key.LastUsedAt.Valid {
		lastUsedAt = identity.Key.LastUsedAt.Time.UTC().Format(time.RFC3339Nano)
	}

	result, err := structpb.NewStruct(map[string]any{
		"valid": true,
		"project": map[string]any{
			"id":   identity.Project.ID,
			"name": identity.Project.Name,
		},
		"key": map[string]any{
			"id":         identity.Key.ID,
			"prefix":     string(identity.Key.Environment),
			"createdAt":  identity.Key.CreatedAt.UTC().Format(time.RFC3339Nano),
			"lastUsedAt": lastUsedAt,
		},
		"ownerId": identity.OwnerID,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "Internal server error")
	}
	return result, nil
}

func RegisterKeyServiceServer(registrar gogrpc.ServiceRegistrar, srv KeyServiceServer) {
	registrar.RegisterService(&keyServiceDesc, srv)
}

var keyServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeyServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "Identity", Handler: identityHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "apikeys/v1/key_service.proto",
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).Validate(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: MethodValidate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyServiceServer).Validate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func identityHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).Identity(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: MethodIdentity}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyServiceServer).Identity(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
