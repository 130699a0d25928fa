package grpc_test

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	keysgrpc "github.com/vibast-solutions/ms-go-apikeys/app/grpc"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// stubValidator accepts exactly one secret.
type stubValidator struct {
	secret   string
	identity *service.Identity
	calls    chan service.RequestInfo
}

func (s *stubValidator) Validate(_ context.Context, candidate string, req service.RequestInfo) (*service.Identity, error) {
	s.calls <- req
	switch candidate {
	case "":
		return nil, service.ErrMissingCredential
	case s.secret:
		return s.identity, nil
	}
	return nil, service.ErrInvalidCredential
}

func newTestClient(t *testing.T, validator service.Validator) *grpc.ClientConn {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(
		grpc.UnaryInterceptor(keysgrpc.APIKeyUnaryInterceptor(validator, keysgrpc.PublicMethods()...)),
	)
	keysgrpc.RegisterKeyServiceServer(server, keysgrpc.NewServer(validator))
	go func() { _ = server.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return conn
}

func newStubValidator() *stubValidator {
	return &stubValidator{
		secret: "ak_live_abcdefghijklmnopqrstuvwxyz012345",
		identity: &service.Identity{
			Key: &entity.APIKey{
				ID:          4,
				ProjectID:   3,
				Environment: entity.EnvironmentLive,
				CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				LastUsedAt:  sql.NullTime{Time: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Valid: true},
			},
			Project: &entity.Project{ID: 3, Name: "Storefront", OwnerID: 7},
			OwnerID: 7,
		},
		calls: make(chan service.RequestInfo, 4),
	}
}

func TestServer_Validate(t *testing.T) {
	validator := newStubValidator()
	conn := newTestClient(t, validator)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, keysgrpc.MethodValidate, wrapperspb.String(validator.secret), out); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	fields := out.AsMap()
	if fields["valid"] != true {
		t.Fatalf("expected valid, got %v", fields)
	}
	project := fields["project"].(map[string]any)
	if project["name"] != "Storefront" || project["id"] != float64(3) {
		t.Fatalf("unexpected project: %v", project)
	}
	key := fields["key"].(map[string]any)
	if key["prefix"] != "live" || key["lastUsedAt"] != "2026-02-01T00:00:00Z" {
		t.Fatalf("unexpected key: %v", key)
	}

	req := <-validator.calls
	if req.Path != keysgrpc.MethodValidate || req.Method != "POST" {
		t.Fatalf("unexpected request info: %+v", req)
	}
}

func TestServer_ValidateRejectsUnknownKey(t *testing.T) {
	conn := newTestClient(t, newStubValidator())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Invoke(ctx, keysgrpc.MethodValidate, wrapperspb.String("ak_live_nope"), &structpb.Struct{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestServer_IdentityRequiresMetadataKey(t *testing.T) {
	validator := newStubValidator()
	conn := newTestClient(t, validator)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Invoke(ctx, keysgrpc.MethodIdentity, &emptypb.Empty{}, &structpb.Struct{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	out := &structpb.Struct{}
	authed := metadata.AppendToOutgoingContext(ctx, "x-api-key", validator.secret)
	if err = conn.Invoke(authed, keysgrpc.MethodIdentity, &emptypb.Empty{}, out); err != nil {
		t.Fatalf("identity failed: %v", err)
	}
	if out.AsMap()["ownerId"] != float64(7) {
		t.Fatalf("unexpected identity: %v", out.AsMap())
	}
}
