package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 12 * time.Second

const maxResponseSize = 1 << 20

// HTTPClient talks JSON over HTTP to the auth backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

var _ Client = (*HTTPClient)(nil)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.http = c }
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Challenge(ctx context.Context, email string) (*ChallengeResponse, error) {
	resp := &ChallengeResponse{}
	if err := c.post(ctx, OpChallenge, PathChallenge, &EmailRequest{Email: email}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := c.post(ctx, OpAuthenticate, PathAuthenticate, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) CheckMFA(ctx context.Context, req *MFARequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := c.post(ctx, OpCheckMFA, PathCheckMFA, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) ResendOTP(ctx context.Context, email string) error {
	return c.post(ctx, OpResendOTP, PathResendOTP, &EmailRequest{Email: email}, nil)
}

func (c *HTTPClient) ForceChangePassword(ctx context.Context, req *ForceChangeRequest) error {
	return c.post(ctx, OpForceChangePassword, PathForceChangePassword, req, nil)
}

func (c *HTTPClient) RequestPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, OpRequestPasswordReset, PathRequestPasswordReset, &EmailRequest{Email: email}, nil)
}

func (c *HTTPClient) SubmitPasswordReset(ctx context.Context, req *ResetSubmitRequest) error {
	return c.post(ctx, OpSubmitPasswordReset, PathSubmitPasswordReset, req, nil)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp := &RefreshResponse{}
	if err := c.post(ctx, OpRefresh, PathRefresh, &RefreshRequest{RefreshToken: refreshToken}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return autherr.Format(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return autherr.Transient(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return autherr.Transient(op, fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return autherr.Transient(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapError(op, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return autherr.Format(op, ErrMalformedResponse)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return autherr.Format(op, fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	return nil
}

func (c *HTTPClient) mapError(op string, status int, body []byte) error {
	if status >= http.StatusInternalServerError {
		return autherr.Transient(op, fmt.Errorf("%w: status %d", ErrUnavailable, status))
	}

	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return autherr.Rejected(op, "", fmt.Sprintf("status %d", status))
	}
	return autherr.Rejected(op, e.Code, e.Message)
}

// IsUnavailable reports whether err is a connectivity failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
