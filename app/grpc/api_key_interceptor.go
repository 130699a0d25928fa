package grpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const metadataAPIKey = "x-api-key"

// APIKeyUnaryInterceptor authenticates every call except the listed public
// methods and stores the resolved identity in the handler context.
func APIKeyUnaryInterceptor(validator service.Validator, publicMethods ...string) gogrpc.UnaryServerInterceptor {
	public := methodSet(publicMethods)
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		if _, ok := public[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		identity, err := validateIncomingAPIKey(ctx, validator, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(service.ContextWithIdentity(ctx, identity), req)
	}
}

func APIKeyStreamInterceptor(validator service.Validator, publicMethods ...string) gogrpc.StreamServerInterceptor {
	public := methodSet(publicMethods)
	return func(srv any, ss gogrpc.ServerStream, info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		if _, ok := public[info.FullMethod]; ok {
			return handler(srv, ss)
		}

		identity, err := validateIncomingAPIKey(ss.Context(), validator, info.FullMethod)
		if err != nil {
			return err
		}
		ctx := service.ContextWithIdentity(ss.Context(), identity)
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func validateIncomingAPIKey(ctx context.Context, validator service.Validator, fullMethod string) (*service.Identity, error) {
	identity, err := validator.Validate(ctx, incomingAPIKeyFromMetadata(ctx), requestInfo(ctx, fullMethod))
	if err != nil {
		return nil, statusFromValidation(err)
	}
	return identity, nil
}

func statusFromValidation(err error) error {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return status.Error(codes.Unauthenticated, "API key is required")
	case errors.Is(err, service.ErrInvalidCredential):
		return status.Error(codes.Unauthenticated, "Invalid API key")
	}
	logrus.WithError(err).Error("gRPC API key validation failed")
	return status.Error(codes.Internal, "Internal server error")
}

func incomingAPIKeyFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(metadataAPIKey)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// requestInfo records gRPC calls as POSTs to their full method name, which
// is what they are on the wire.
func requestInfo(ctx context.Context, fullMethod string) service.RequestInfo {
	info := service.RequestInfo{Path: fullMethod, Method: http.MethodPost}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		info.SourceAddress = p.Addr.String()
		if host, _, err := net.SplitHostPort(info.SourceAddress); err == nil {
			info.SourceAddress = host
		}
	}
	return info
}

func methodSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		set[method] = struct{}{}
	}
	return set
}

type wrappedServerStream struct {
	gogrpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
