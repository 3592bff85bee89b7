package client

import (
	"context"
)

// Client is the transport contract of the authentication backend. Every
// method returns a *autherr.Error on failure.
type Client interface {
	Challenge(ctx context.Context, email string) (*ChallengeResponse, error)
	Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResponse, error)
	CheckMFA(ctx context.Context, req *MFARequest) (*AuthResponse, error)
	ResendOTP(ctx context.Context, email string) error
	ForceChangePassword(ctx context.Context, req *ForceChangeRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	SubmitPasswordReset(ctx context.Context, req *ResetSubmitRequest) error
	Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	Close() error
}

// Operation names. They are both the gRPC method names and the Op of
// classified errors.
const (
	OpChallenge            = "Challenge"
	OpAuthenticate         = "Authenticate"
	OpCheckMFA             = "CheckMFA"
	OpResendOTP            = "ResendOTP"
	OpForceChangePassword  = "ForceChangePassword"
	OpRequestPasswordReset = "RequestPasswordReset"
	OpSubmitPasswordReset  = "SubmitPasswordReset"
	OpRefresh              = "Refresh"
)

// HTTP routes, relative to the base URL.
const (
	PathChallenge            = "/v1/auth/srp/challenge"
	PathAuthenticate         = "/v1/auth/srp/authenticate"
	PathCheckMFA             = "/v1/auth/srp/check-mfa"
	PathResendOTP            = "/v1/users/registration/otp/resend"
	PathForceChangePassword  = "/v1/auth/srp/force-change-password"
	PathRequestPasswordReset = "/v1/auth/srp/reset-password"
	PathSubmitPasswordReset  = "/v1/auth/srp/reset-password/submit"
	PathRefresh              = "/v1/auth/refresh"
)

// GRPCServiceName is the service the gRPC transport calls.
const GRPCServiceName = "srpgate.v1.Auth"

// FullMethod returns the gRPC method path of op.
func FullMethod(op string) string {
	return "/" + GRPCServiceName + "/" + op
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"
