package srptest

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/srpgate/internal/client/client"
)

// authServer is the handler type of the gRPC service description.
type authServer interface {
	Challenge(context.Context, *client.EmailRequest) (*client.ChallengeResponse, error)
	Authenticate(context.Context, *client.AuthenticateRequest) (*client.AuthResponse, error)
	CheckMFA(context.Context, *client.MFARequest) (*client.AuthResponse, error)
	ResendOTP(context.Context, *client.EmailRequest) (*client.Empty, error)
	ForceChangePassword(context.Context, *client.ForceChangeRequest) (*client.Empty, error)
	RequestPasswordReset(context.Context, *client.EmailRequest) (*client.Empty, error)
	SubmitPasswordReset(context.Context, *client.ResetSubmitRequest) (*client.Empty, error)
	Refresh(context.Context, *client.RefreshRequest) (*client.RefreshResponse, error)
}

var _ authServer = (*Server)(nil)

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: client.GRPCServiceName,
	HandlerType: (*authServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(client.OpChallenge, authServer.Challenge),
		unary(client.OpAuthenticate, authServer.Authenticate),
		unary(client.OpCheckMFA, authServer.CheckMFA),
		unary(client.OpResendOTP, authServer.ResendOTP),
		unary(client.OpForceChangePassword, authServer.ForceChangePassword),
		unary(client.OpRequestPasswordReset, authServer.RequestPasswordReset),
		unary(client.OpSubmitPasswordReset, authServer.SubmitPasswordReset),
		unary(client.OpRefresh, authServer.Refresh),
	},
}

func unary[Req, Resp any](op string, call func(authServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: op,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(authServer), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: client.FullMethod(op)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// statusInterceptor records the request id and turns APIError into a status
// whose message is the error code.
func (s *Server) statusInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var requestID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("x-request-id"); len(values) > 0 {
			requestID = values[0]
		}
	}
	s.record(info.FullMethod[len(client.FullMethod("")):], requestID)

	resp, err := handler(ctx, req)
	if err != nil {
		ae := asAPIError(err)
		return nil, status.Error(ae.GRPCCode(), ae.Code)
	}
	return resp, nil
}

// NewGRPCServer returns a gRPC server with the auth service registered.
func (s *Server) NewGRPCServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(client.JSONCodec{}),
		grpc.ChainUnaryInterceptor(s.statusInterceptor),
	)
	srv.RegisterService(&authServiceDesc, s)
	return srv
}

// ServeBufconn serves gRPC on an in-memory listener. The returned dialer is
// meant for grpc.WithContextDialer; stop shuts the server down.
func (s *Server) ServeBufconn() (dialer func(context.Context, string) (net.Conn, error), stop func()) {
	lis := bufconn.Listen(1 << 20)
	srv := s.NewGRPCServer()
	go func() { _ = srv.Serve(lis) }()

	dialer = func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	stop = func() {
		srv.Stop()
		_ = lis.Close()
	}
	return dialer, stop
}
