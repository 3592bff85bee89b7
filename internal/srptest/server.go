package srptest

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"google.golang.org/grpc/codes"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
	"github.com/dmitrijs2005/srpgate/internal/client/client"
	"github.com/dmitrijs2005/srpgate/internal/logging"
	"github.com/dmitrijs2005/srpgate/internal/srp"
)

// APIError is a rejected request. Code is one of the autherr.Code* values.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string { return e.Code }

// GRPCCode maps the HTTP status onto a gRPC code.
func (e *APIError) GRPCCode() codes.Code {
	switch e.Status {
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusBadRequest:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

func reject(status int, code string) *APIError {
	return &APIError{Status: status, Code: code}
}

var (
	errUnknownUser  = reject(http.StatusNotFound, autherr.CodeUserNotFound)
	errUnauthorized = reject(http.StatusUnauthorized, autherr.CodeUnauthorized)
	errBadCode      = reject(http.StatusBadRequest, autherr.CodeInvalidConfirmationCode)
	errBlocked      = reject(http.StatusForbidden, autherr.CodeTemporaryBlocked)
	errPending      = reject(http.StatusForbidden, autherr.CodeAccountPending)
	errUnconfirmed  = reject(http.StatusForbidden, autherr.CodeEmailConfirmationPending)
	errTooMany      = reject(http.StatusTooManyRequests, autherr.CodeTooManyAttempts)
	errBadRequest   = reject(http.StatusBadRequest, "bad_request")
)

// Account is a user record. Password is only used to compute the verifier.
type Account struct {
	Email       string
	Password    string
	Role        string
	UserStatus  string
	MfaStatus   string
	Blocked     bool
	Pending     bool
	Unconfirmed bool
}

type account struct {
	Account
	salt       []byte
	verifier   *big.Int
	totpSecret string
	failures   int
	resends    int

	forceChangeGrant bool
	mfaGrant         bool
	resetRequested   bool
}

type challenge struct {
	b *big.Int
	B *big.Int
}

// Server is safe for concurrent use.
type Server struct {
	mu        sync.Mutex
	engine    *srp.Engine
	accounts  map[string]*account
	pending   map[string]*challenge
	tokens    *tokenIssuer
	logger    logging.Logger
	noProof   bool
	maxFails  int
	now       func() time.Time
	requests  []string
	callCount map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithoutServerProof makes Authenticate omit M2.
func WithoutServerProof() Option {
	return func(s *Server) { s.noProof = true }
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxFailures sets how many bad proofs lock an account. Default 5.
func WithMaxFailures(n int) Option {
	return func(s *Server) { s.maxFails = n }
}

// WithClock replaces time.Now for TOTP and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server using the same SRP parameters as the client engine.
func New(engine *srp.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		accounts:  make(map[string]*account),
		pending:   make(map[string]*challenge),
		logger:    logging.Discard(),
		maxFails:  5,
		now:       time.Now,
		callCount: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = newTokenIssuer(s.now)
	return s
}

// AddAccount registers a user and returns its TOTP secret.
func (s *Server) AddAccount(a Account) (string, error) {
	if a.UserStatus == "" {
		a.UserStatus = client.UserStatusActive
	}
	if a.MfaStatus == "" {
		a.MfaStatus = client.MfaStatusRejected
	}

	salt, err := s.engine.NewSalt()
	if err != nil {
		return "", err
	}
	v, err := s.engine.GenerateVerifier(salt, a.Email, []byte(a.Password))
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "srpgate", AccountName: a.Email})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.Email] = &account{Account: a, salt: v.Salt, verifier: v.Value, totpSecret: key.Secret()}
	return key.Secret(), nil
}

// OTP returns the currently valid code for email.
func (s *Server) OTP(email string) (string, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return "", errUnknownUser
	}
	return totp.GenerateCode(acc.totpSecret, s.now())
}

// Snapshot returns the current public account state.
func (s *Server) Snapshot(email string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return Account{}, false
	}
	return acc.Account, true
}

// Resends returns how many OTP resends email requested.
func (s *Server) Resends(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[email]; ok {
		return acc.resends
	}
	return 0
}

// Calls returns how many times op was invoked.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount[op]
}

// RequestIDs returns the request ids seen so far, in arrival order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(op, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount[op]++
	s.requests = append(s.requests, requestID)
}

func (s *Server) Challenge(ctx context.Context, req *client.EmailRequest) (*client.ChallengeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}

	n := s.engine.Group().N
	b, err := rand.Int(rand.Reader, new(big.Int).Sub(n, big.NewInt(1)))
	if err != nil {
		return nil, err
	}
	b.Add(b, big.NewInt(1))

	gb, err := bigx.ModExp(s.engine.Group().G, b, n)
	if err != nil {
		return nil, err
	}
	B := bigx.Mod(bigx.Add(bigx.Mul(s.engine.Multiplier(), acc.verifier), gb), n)

	s.pending[req.Email] = &challenge{b: b, B: B}
	s.logger.Debug(ctx, "challenge issued")

	return &client.ChallengeResponse{Salt: hex.EncodeToString(acc.salt), B: bigx.Hex(B)}, nil
}

// takeChallenge removes and returns the outstanding challenge. Callers hold mu.
func (s *Server) takeChallenge(email string) (*challenge, error) {
	ch, ok := s.pending[email]
	if !ok {
		return nil, errUnauthorized
	}
	delete(s.pending, email)
	return ch, nil
}

func (s *Server) Authenticate(ctx context.Context, req *client.AuthenticateRequest) (*client.AuthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	if acc.failures >= s.maxFails {
		return nil, errTooMany
	}
	ch, err := s.takeChallenge(req.Email)
	if err != nil {
		return nil, err
	}

	A, err := bigx.ParseHex(req.A)
	if err != nil || bigx.IsZeroMod(A, s.engine.Group().N) {
		return nil, errBadRequest
	}
	m1, err := hex.DecodeString(req.M1)
	if err != nil {
		return nil, errBadRequest
	}

	K, err := s.sessionKey(acc.verifier, A, ch)
	if err != nil {
		return nil, errUnauthorized
	}
	want, err := s.engine.ClientEvidence(acc.Email, acc.salt, A, ch.B, K)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(want, m1) != 1 {
		acc.failures++
		s.logger.Info(ctx, "proof rejected", "failures", acc.failures)
		if acc.failures >= s.maxFails {
			return nil, errTooMany
		}
		return nil, errUnauthorized
	}
	acc.failures = 0

	switch {
	case acc.Blocked:
		return nil, errBlocked
	case acc.Pending:
		return nil, errPending
	case acc.Unconfirmed:
		return nil, errUnconfirmed
	}

	resp := &client.AuthResponse{UserStatus: acc.UserStatus, MfaStatus: acc.MfaStatus}
	if !s.noProof {
		m2, err := s.engine.ServerEvidence(A, m1, K)
		if err != nil {
			return nil, err
		}
		resp.M2 = hex.EncodeToString(m2)
	}

	switch {
	case acc.UserStatus == client.UserStatusForcePasswordChange:
		acc.forceChangeGrant = true
	case acc.MfaStatus == client.MfaStatusPending || acc.MfaStatus == client.MfaStatusActivated:
		acc.mfaGrant = true
	default:
		if err := s.grant(acc, resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// sessionKey computes K from S = (A * v^u)^b.
func (s *Server) sessionKey(v, A *big.Int, ch *challenge) ([]byte, error) {
	n := s.engine.Group().N
	u, err := s.engine.Scrambler(A, ch.B)
	if err != nil {
		return nil, err
	}
	vu, err := bigx.ModExp(v, u, n)
	if err != nil {
		return nil, err
	}
	S, err := bigx.ModExp(bigx.ModMul(A, vu, n), ch.b, n)
	if err != nil {
		return nil, err
	}
	defer bigx.Wipe(S)
	return s.engine.SessionKey(S)
}

func (s *Server) grant(acc *account, resp *client.AuthResponse) error {
	pair, err := s.tokens.issue(acc.Email, acc.Role)
	if err != nil {
		return err
	}
	resp.AccessToken = pair.AccessToken
	resp.RefreshToken = pair.RefreshToken
	resp.Role = acc.Role
	return nil
}

func (s *Server) validOTP(acc *account, code string) bool {
	ok, err := totp.ValidateCustom(code, acc.totpSecret, s.now(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && ok
}

func (s *Server) CheckMFA(ctx context.Context, req *client.MFARequest) (*client.AuthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	if !acc.mfaGrant {
		return nil, errUnauthorized
	}
	if !s.validOTP(acc, req.OTP) {
		return nil, errBadCode
	}
	acc.mfaGrant = false
	acc.MfaStatus = client.MfaStatusActivated

	resp := &client.AuthResponse{UserStatus: acc.UserStatus, MfaStatus: client.MfaStatusRejected}
	if err := s.grant(acc, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) ResendOTP(ctx context.Context, req *client.EmailRequest) (*client.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	acc.resends++
	return &client.Empty{}, nil
}

// ForceChangePassword installs a new verifier for an account that just
// proved its current password and was told to change it. The new password is
// proven at the next login.
func (s *Server) ForceChangePassword(ctx context.Context, req *client.ForceChangeRequest) (*client.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	if !acc.forceChangeGrant {
		return nil, errUnauthorized
	}
	if _, err := s.takeChallenge(req.Email); err != nil {
		return nil, err
	}
	if err := s.install(acc, req.A, req.M1, req.Salt, req.Verifier); err != nil {
		return nil, err
	}
	acc.forceChangeGrant = false
	acc.UserStatus = client.UserStatusActive
	return &client.Empty{}, nil
}

func (s *Server) RequestPasswordReset(ctx context.Context, req *client.EmailRequest) (*client.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	acc.resetRequested = true
	return &client.Empty{}, nil
}

func (s *Server) SubmitPasswordReset(ctx context.Context, req *client.ResetSubmitRequest) (*client.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok {
		return nil, errUnknownUser
	}
	if !acc.resetRequested {
		return nil, errUnauthorized
	}
	if !s.validOTP(acc, req.OTP) {
		return nil, errBadCode
	}
	if _, err := s.takeChallenge(req.Email); err != nil {
		return nil, err
	}
	if err := s.install(acc, req.ANew, req.M1New, req.Salt, req.Verifier); err != nil {
		return nil, err
	}
	acc.resetRequested = false
	acc.failures = 0
	return &client.Empty{}, nil
}

// install validates the submitted values and replaces the credential record.
func (s *Server) install(acc *account, aHex, m1Hex, saltHex, verifierHex string) error {
	A, err := bigx.ParseHex(aHex)
	if err != nil || bigx.IsZeroMod(A, s.engine.Group().N) {
		return errBadRequest
	}
	if m1, err := hex.DecodeString(m1Hex); err != nil || len(m1) == 0 {
		return errBadRequest
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return errBadRequest
	}
	v, err := bigx.ParseHex(verifierHex)
	if err != nil || v.Sign() == 0 || v.Cmp(s.engine.Group().N) >= 0 {
		return errBadRequest
	}
	acc.salt = salt
	acc.verifier = v
	return nil
}

func (s *Server) Refresh(ctx context.Context, req *client.RefreshRequest) (*client.RefreshResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, err := s.tokens.redeem(req.RefreshToken)
	if err != nil {
		return nil, errUnauthorized
	}
	acc, ok := s.accounts[email]
	if !ok {
		return nil, errUnknownUser
	}
	pair, err := s.tokens.issue(acc.Email, acc.Role)
	if err != nil {
		return nil, err
	}
	return &client.RefreshResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// asAPIError turns any handler error into an APIError.
func asAPIError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error"}
}
