package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
)

// requestIDMetadata is the gRPC spelling of RequestIDHeader.
const requestIDMetadata = "x-request-id"

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	timeout     time.Duration
	dialOpts    []grpc.DialOption
}

var _ Client = (*GRPCClient)(nil)

func withRequestID(ctx context.Context, id string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(requestIDMetadata, id)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) requestIDInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = withRequestID(ctx, uuid.NewString())
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpointURL. Extra dial options are appended to
// the defaults (insecure credentials, JSON codec, request-id interceptor).
func NewGRPCClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, dialOpts: opts}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.requestIDInterceptor),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) invoke(ctx context.Context, op string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.conn.Invoke(ctx, FullMethod(op), in, out); err != nil {
		return s.mapError(op, err)
	}
	return nil
}

func (s *GRPCClient) Challenge(ctx context.Context, email string) (*ChallengeResponse, error) {
	resp := &ChallengeResponse{}
	if err := s.invoke(ctx, OpChallenge, &EmailRequest{Email: email}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := s.invoke(ctx, OpAuthenticate, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) CheckMFA(ctx context.Context, req *MFARequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := s.invoke(ctx, OpCheckMFA, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) ResendOTP(ctx context.Context, email string) error {
	return s.invoke(ctx, OpResendOTP, &EmailRequest{Email: email}, &Empty{})
}

func (s *GRPCClient) ForceChangePassword(ctx context.Context, req *ForceChangeRequest) error {
	return s.invoke(ctx, OpForceChangePassword, req, &Empty{})
}

func (s *GRPCClient) RequestPasswordReset(ctx context.Context, email string) error {
	return s.invoke(ctx, OpRequestPasswordReset, &EmailRequest{Email: email}, &Empty{})
}

func (s *GRPCClient) SubmitPasswordReset(ctx context.Context, req *ResetSubmitRequest) error {
	return s.invoke(ctx, OpSubmitPasswordReset, req, &Empty{})
}

func (s *GRPCClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp := &RefreshResponse{}
	if err := s.invoke(ctx, OpRefresh, &RefreshRequest{RefreshToken: refreshToken}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// mapError classifies a gRPC failure. The server puts its error code in the
// status message.
func (s *GRPCClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return autherr.Classify(op, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Internal, codes.Unknown:
		return autherr.Transient(op, fmt.Errorf("%w: %w", ErrUnavailable, err))
	default:
		return autherr.Rejected(op, st.Message(), "")
	}
}
