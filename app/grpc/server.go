package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
	"github.com/vibast-solutions/ms-go-hr-auth/app/service"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	SessionServiceName    = "hrauth.v1.SessionService"
	ValidateSessionMethod = "/" + SessionServiceName + "/ValidateSession"
)

type sessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*entity.User, error)
}

// SessionServiceServer lets other internal services check an HR session
// token without sharing the signing secret.
type SessionServiceServer interface {
	ValidateSession(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var SessionServiceDesc = gogrpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "ValidateSession",
			Handler:    validateSessionHandler,
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "hrauth/v1/session.proto",
}

func validateSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).ValidateSession(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ValidateSessionMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).ValidateSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type SessionServer struct {
	sessions sessionValidator
}

func NewSessionServer(sessions sessionValidator) *SessionServer {
	return &SessionServer{sessions: sessions}
}

func (s *SessionServer) ValidateSession(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	token := req.GetValue()
	if token == "" {
		logrus.Debug("Validate session validation failed (grpc)")
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	user, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			logrus.Debug("Validate session failed: invalid token (grpc)")
			return structpb.NewStruct(map[string]any{"valid": false})
		}
		logrus.WithError(err).Error("Validate session failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithField("user_id", user.ID).Debug("Validate session succeeded (grpc)")
	return structpb.NewStruct(map[string]any{
		"valid":   true,
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.DisplayName(),
		"role":    user.Role,
	})
}

// NewServer builds a gRPC server exposing the session service and the
// standard health service.
func NewServer(sessions *SessionServer, opts ...gogrpc.ServerOption) *gogrpc.Server {
	opts = append([]gogrpc.ServerOption{
		gogrpc.ChainUnaryInterceptor(LoggingUnaryInterceptor(), RecoveryUnaryInterceptor()),
	}, opts...)

	server := gogrpc.NewServer(opts...)
	server.RegisterService(&SessionServiceDesc, sessions)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(SessionServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}

// SessionClient calls SessionService on a remote hr-auth instance.
type SessionClient struct {
	cc gogrpc.ClientConnInterface
}

func NewSessionClient(cc gogrpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) ValidateSession(ctx context.Context, token string, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateSessionMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
