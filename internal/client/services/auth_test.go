package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
	"github.com/dmitrijs2005/srpgate/internal/client/client"
	"github.com/dmitrijs2005/srpgate/internal/client/flow"
	"github.com/dmitrijs2005/srpgate/internal/client/session"
	"github.com/dmitrijs2005/srpgate/internal/srp"
	"github.com/dmitrijs2005/srpgate/internal/srptest"
)

const (
	adminEmail    = "admin@example.com"
	viewerEmail   = "viewer@example.com"
	adminPassword = "correct horse"
)

// ---- helpers ----

func newEngine(t *testing.T) *srp.Engine {
	t.Helper()
	engine, err := srp.New(srp.WithGroup(srp.Group1024))
	require.NoError(t, err)
	return engine
}

func newBackend(t *testing.T, engine *srp.Engine, opts ...srptest.Option) (*srptest.Server, client.Client) {
	t.Helper()
	srv := srptest.New(engine, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c := client.NewHTTPClient(ts.URL, client.WithHTTPTimeout(5*time.Second))
	return srv, c
}

func addAccount(t *testing.T, srv *srptest.Server, a srptest.Account) {
	t.Helper()
	if a.Password == "" {
		a.Password = adminPassword
	}
	if a.Role == "" {
		a.Role = "ADMIN"
	}
	_, err := srv.AddAccount(a)
	require.NoError(t, err)
}

func newService(c client.Client, engine *srp.Engine, opts Options) (AuthService, *session.Store) {
	store := session.NewStore()
	return NewAuthService(c, engine, store, opts), store
}

func pw(s string) []byte { return []byte(s) }

// wrongCode returns a six digit code that differs from code in every digit.
func wrongCode(code string) string {
	b := []byte(code)
	for i := range b {
		b[i] = '0' + (b[i]-'0'+5)%10
	}
	return string(b)
}

// ---- fake client ----

// fakeClient implements client.Client with preset results.
type fakeClient struct {
	ChallengeRet *client.ChallengeResponse
	ChallengeErr error

	AuthRet *client.AuthResponse
	AuthErr error

	ResendErr error

	RefreshRet *client.RefreshResponse
	RefreshErr error

	CloseErr error

	// captured
	LastAuth    *client.AuthenticateRequest
	ResendCalls int
}

func (f *fakeClient) Challenge(ctx context.Context, email string) (*client.ChallengeResponse, error) {
	return f.ChallengeRet, f.ChallengeErr
}

func (f *fakeClient) Authenticate(ctx context.Context, req *client.AuthenticateRequest) (*client.AuthResponse, error) {
	f.LastAuth = req
	return f.AuthRet, f.AuthErr
}

func (f *fakeClient) CheckMFA(ctx context.Context, req *client.MFARequest) (*client.AuthResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) ResendOTP(ctx context.Context, email string) error {
	f.ResendCalls++
	return f.ResendErr
}

func (f *fakeClient) ForceChangePassword(ctx context.Context, req *client.ForceChangeRequest) error {
	return errors.New("not implemented")
}

func (f *fakeClient) RequestPasswordReset(ctx context.Context, email string) error {
	return errors.New("not implemented")
}

func (f *fakeClient) SubmitPasswordReset(ctx context.Context, req *client.ResetSubmitRequest) error {
	return errors.New("not implemented")
}

func (f *fakeClient) Refresh(ctx context.Context, refreshToken string) (*client.RefreshResponse, error) {
	return f.RefreshRet, f.RefreshErr
}

func (f *fakeClient) Close() error { return f.CloseErr }

// hookClient wraps a real client to interfere with single calls.
type hookClient struct {
	client.Client
	beforeChallenge func()
	afterAuth       func(*client.AuthResponse)
}

func (h *hookClient) Challenge(ctx context.Context, email string) (*client.ChallengeResponse, error) {
	if h.beforeChallenge != nil {
		h.beforeChallenge()
	}
	return h.Client.Challenge(ctx, email)
}

func (h *hookClient) Authenticate(ctx context.Context, req *client.AuthenticateRequest) (*client.AuthResponse, error) {
	resp, err := h.Client.Authenticate(ctx, req)
	if err == nil && h.afterAuth != nil {
		h.afterAuth(resp)
	}
	return resp, err
}

// ---- login ----

func TestLogin_AdminIsAuthorized(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})
	svc, store := newService(c, engine, Options{})

	updates, cancel := svc.Subscribe()
	defer cancel()
	require.False(t, <-updates)

	password := pw(adminPassword)
	out, err := svc.Login(context.Background(), adminEmail, password)
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeAuthorized, out.Kind)
	assert.Equal(t, adminEmail, out.Email)
	assert.Equal(t, flow.Authorized, svc.State().Phase)

	assert.True(t, svc.IsAuthenticated())
	assert.True(t, <-updates)
	assert.Equal(t, make([]byte, len(adminPassword)), password, "password must be wiped")

	p, err := store.Principal()
	require.NoError(t, err)
	assert.Equal(t, adminEmail, p.Subject)
	assert.Equal(t, "ADMIN", p.Role)
}

func TestLogin_ViewerIndistinguishableFromUnknownUser(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: viewerEmail, Role: "VIEWER"})

	svc, store := newService(c, engine, Options{})
	viewerOut, viewerErr := svc.Login(context.Background(), viewerEmail, pw(adminPassword))
	require.Error(t, viewerErr)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Current().AccessToken)

	unknownOut, unknownErr := svc.Login(context.Background(), "nobody@example.com", pw(adminPassword))
	require.Error(t, unknownErr)

	assert.Equal(t, flow.OutcomeRejected, viewerOut.Kind)
	assert.Equal(t, autherr.UnknownIdentity, viewerOut.Category)
	assert.Equal(t, unknownOut.Category, viewerOut.Category)
	assert.Equal(t, autherr.MessageOf(unknownErr), autherr.MessageOf(viewerErr))
	assert.Equal(t, flow.Failed, svc.State().Phase)
}

func TestLogin_ServerRejections(t *testing.T) {
	tests := []struct {
		name    string
		account srptest.Account
		pass    string
		want    autherr.Category
	}{
		{name: "wrong password", account: srptest.Account{Email: adminEmail}, pass: "wrong", want: autherr.InvalidCredentials},
		{name: "blocked", account: srptest.Account{Email: adminEmail, Blocked: true}, pass: adminPassword, want: autherr.TemporarilyBlocked},
		{name: "pending approval", account: srptest.Account{Email: adminEmail, Pending: true}, pass: adminPassword, want: autherr.PendingApproval},
		{name: "unconfirmed", account: srptest.Account{Email: adminEmail, Unconfirmed: true}, pass: adminPassword, want: autherr.UnknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(t)
			srv, c := newBackend(t, engine)
			addAccount(t, srv, tt.account)
			svc, store := newService(c, engine, Options{})

			out, err := svc.Login(context.Background(), adminEmail, pw(tt.pass))
			require.Error(t, err)
			assert.ErrorIs(t, err, autherr.ErrServerRejected)
			assert.Equal(t, flow.OutcomeRejected, out.Kind)
			assert.Equal(t, tt.want, out.Category)
			assert.False(t, store.IsAuthenticated())
		})
	}
}

func TestLogin_MissingInput(t *testing.T) {
	svc, _ := newService(&fakeClient{}, newEngine(t), Options{})

	password := pw("secret")
	_, err := svc.Login(context.Background(), "", password)
	require.ErrorIs(t, err, ErrMissingInput)
	assert.ErrorIs(t, err, autherr.ErrFormat)
	assert.Equal(t, make([]byte, 6), password)

	_, err = svc.Login(context.Background(), adminEmail, nil)
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Equal(t, flow.Idle, svc.State().Phase)
}

func TestLogin_ServerProof(t *testing.T) {
	tests := []struct {
		name    string
		noProof bool
		require bool
		tamper  bool
		wantErr error
	}{
		{name: "present and valid", require: true},
		{name: "absent, optional", noProof: true},
		{name: "absent, required", noProof: true, require: true, wantErr: srp.ErrServerProof},
		{name: "tampered", tamper: true, wantErr: srp.ErrServerProof},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(t)
			var opts []srptest.Option
			if tt.noProof {
				opts = append(opts, srptest.WithoutServerProof())
			}
			srv, c := newBackend(t, engine, opts...)
			addAccount(t, srv, srptest.Account{Email: adminEmail})

			hc := &hookClient{Client: c}
			if tt.tamper {
				hc.afterAuth = func(resp *client.AuthResponse) { resp.M2 = strings.Repeat("0", len(resp.M2)) }
			}
			svc, store := newService(hc, engine, Options{RequireServerProof: tt.require})

			out, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, flow.OutcomeAuthorized, out.Kind)
				assert.True(t, store.IsAuthenticated())
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, autherr.ErrProtocolViolation)
			assert.Equal(t, flow.OutcomeRejected, out.Kind)
			assert.False(t, store.IsAuthenticated())
		})
	}
}

func TestLogin_CancelledExchangeStoresNothing(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hc := &hookClient{Client: c, afterAuth: func(*client.AuthResponse) { cancel() }}
	svc, store := newService(hc, engine, Options{})

	out, err := svc.Login(ctx, adminEmail, pw(adminPassword))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, flow.OutcomeRejected, out.Kind)
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, session.Tokens{}, store.Current())
}

func TestLogin_ConcurrentExchangeRejected(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	hc := &hookClient{Client: c, beforeChallenge: func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}}
	svc, _ := newService(hc, engine, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
		done <- err
	}()

	<-entered
	_, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.ErrorIs(t, err, ErrExchangeInProgress)
	require.ErrorIs(t, svc.Refresh(context.Background()), ErrExchangeInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, svc.IsAuthenticated())
}

func TestLogin_MalformedChallenge(t *testing.T) {
	fc := &fakeClient{ChallengeRet: &client.ChallengeResponse{Salt: "0102", B: "not-hex"}}
	svc, _ := newService(fc, newEngine(t), Options{})

	out, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.ErrorIs(t, err, autherr.ErrFormat)
	assert.Equal(t, flow.OutcomeRejected, out.Kind)
	assert.Equal(t, autherr.Unexpected, out.Category)
	assert.Nil(t, fc.LastAuth, "nothing is sent after a bad challenge")
	assert.Equal(t, flow.Failed, svc.State().Phase)
}

func TestLogin_UnknownStatusIsProtocolViolation(t *testing.T) {
	fc := &fakeClient{
		ChallengeRet: &client.ChallengeResponse{Salt: "0102", B: "02"},
		AuthRet:      &client.AuthResponse{UserStatus: "ARCHIVED", MfaStatus: "REJECTED"},
	}
	svc, store := newService(fc, newEngine(t), Options{})

	_, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.ErrorIs(t, err, flow.ErrUnknownStatus)
	assert.ErrorIs(t, err, autherr.ErrProtocolViolation)
	require.NotNil(t, fc.LastAuth)
	assert.NotEmpty(t, fc.LastAuth.A)
	assert.Len(t, fc.LastAuth.M1, 64)
	assert.False(t, store.IsAuthenticated())
}

func TestLogin_TransportFailureIsTransient(t *testing.T) {
	fc := &fakeClient{ChallengeErr: autherr.Transient(client.OpChallenge, client.ErrUnavailable)}
	svc, _ := newService(fc, newEngine(t), Options{})

	_, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.ErrorIs(t, err, autherr.ErrNetworkTransient)

	var ae *autherr.Error
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Retryable())
}

// ---- MFA ----

func TestMFA_PendingSendsCodeThenAuthorizes(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail, MfaStatus: flow.MfaStatusPending})
	svc, store := newService(c, engine, Options{})
	ctx := context.Background()

	out, err := svc.Login(ctx, adminEmail, pw(adminPassword))
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeMfaRequired, out.Kind)
	assert.Equal(t, flow.MfaPending, svc.State().Phase)
	assert.Equal(t, 1, srv.Resends(adminEmail), "pending MFA sends the first code")
	assert.False(t, store.IsAuthenticated())

	code, err := srv.OTP(adminEmail)
	require.NoError(t, err)

	out, err = svc.SubmitOTP(ctx, wrongCode(code))
	require.Error(t, err)
	assert.Equal(t, autherr.InvalidVerificationCode, out.Category)
	assert.Equal(t, flow.MfaPending, svc.State().Phase, "a wrong code keeps the MFA step")

	out, err = svc.SubmitOTP(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeAuthorized, out.Kind)
	assert.True(t, store.IsAuthenticated())

	acc, ok := srv.Snapshot(adminEmail)
	require.True(t, ok)
	assert.Equal(t, flow.MfaStatusActivated, acc.MfaStatus)
}

func TestMFA_ActivatedDoesNotSendCode(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail, MfaStatus: flow.MfaStatusActivated})
	svc, _ := newService(c, engine, Options{})

	out, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeMfaRequired, out.Kind)
	assert.Equal(t, flow.MfaActivated, svc.State().Phase)
	assert.Zero(t, srv.Resends(adminEmail))
}

func TestMFA_FailedInitialSendStillAsksForCode(t *testing.T) {
	fc := &fakeClient{
		ChallengeRet: &client.ChallengeResponse{Salt: "0102", B: "02"},
		AuthRet:      &client.AuthResponse{UserStatus: flow.UserStatusActive, MfaStatus: flow.MfaStatusPending},
		ResendErr:    autherr.Transient(client.OpResendOTP, client.ErrUnavailable),
	}
	svc, _ := newService(fc, newEngine(t), Options{})

	out, err := svc.Login(context.Background(), adminEmail, pw(adminPassword))
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeMfaRequired, out.Kind)
	assert.Equal(t, 1, fc.ResendCalls)
}

func TestMFA_ResendThrottle(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		wantErr  error
		resends  int
	}{
		{name: "throttled", interval: time.Hour, wantErr: ErrResendThrottled, resends: 1},
		{name: "allowed", interval: time.Nanosecond, resends: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(t)
			srv, c := newBackend(t, engine)
			addAccount(t, srv, srptest.Account{Email: adminEmail, MfaStatus: flow.MfaStatusPending})
			svc, _ := newService(c, engine, Options{OTPResendInterval: tt.interval})
			ctx := context.Background()

			_, err := svc.Login(ctx, adminEmail, pw(adminPassword))
			require.NoError(t, err)

			if tt.interval == time.Nanosecond {
				time.Sleep(time.Millisecond)
			}
			err = svc.ResendOTP(ctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.resends, srv.Resends(adminEmail))
			assert.Equal(t, flow.MfaPending, svc.State().Phase, "resend never changes the phase")
		})
	}
}

func TestMFA_ResendOutsideMFAIsRejected(t *testing.T) {
	svc, _ := newService(&fakeClient{}, newEngine(t), Options{})

	err := svc.ResendOTP(context.Background())
	require.ErrorIs(t, err, flow.ErrInvalidTransition)
	assert.Equal(t, flow.Idle, svc.State().Phase)
}

// ---- forced change ----

func TestForceChange_ProvesNewPasswordBeforeStoringTokens(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail, UserStatus: flow.UserStatusForcePasswordChange})
	svc, store := newService(c, engine, Options{})
	ctx := context.Background()

	out, err := svc.Login(ctx, adminEmail, pw(adminPassword))
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeForcedChangeRequired, out.Kind)
	assert.False(t, store.IsAuthenticated(), "no tokens before the password is changed")

	newPassword := pw("battery staple")
	out, err = svc.ForceChangePassword(ctx, newPassword)
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeAuthorized, out.Kind)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, make([]byte, len("battery staple")), newPassword)
	assert.Equal(t, 2, srv.Calls(client.OpAuthenticate), "the new password is proven by a second login")

	acc, _ := srv.Snapshot(adminEmail)
	assert.Equal(t, flow.UserStatusActive, acc.UserStatus)

	// the old password no longer works
	_, err = svc.Login(ctx, adminEmail, pw(adminPassword))
	require.Error(t, err)
	_, err = svc.Login(ctx, adminEmail, pw("battery staple"))
	require.NoError(t, err)
}

func TestForceChange_OnlyAfterServerAsked(t *testing.T) {
	svc, _ := newService(&fakeClient{}, newEngine(t), Options{})

	out, err := svc.ForceChangePassword(context.Background(), pw("new"))
	require.ErrorIs(t, err, flow.ErrInvalidTransition)
	assert.Equal(t, flow.OutcomeRejected, out.Kind)
}

// ---- password reset ----

func TestPasswordReset(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})
	svc, store := newService(c, engine, Options{})
	ctx := context.Background()

	out, err := svc.RequestPasswordReset(ctx, adminEmail)
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeResetCodeSent, out.Kind)
	assert.Equal(t, flow.ResetCodeSent, svc.State().Phase)

	code, err := srv.OTP(adminEmail)
	require.NoError(t, err)

	out, err = svc.SubmitPasswordReset(ctx, wrongCode(code), pw("fresh password"))
	require.Error(t, err)
	assert.Equal(t, autherr.InvalidVerificationCode, out.Category)
	assert.Equal(t, flow.ResetCodeSent, svc.State().Phase, "a wrong code allows another try")

	out, err = svc.SubmitPasswordReset(ctx, code, pw("fresh password"))
	require.NoError(t, err)
	assert.Equal(t, flow.OutcomeResetCompleted, out.Kind)
	assert.Equal(t, flow.Idle, svc.State().Phase)
	assert.False(t, store.IsAuthenticated(), "a reset never grants a session")

	_, err = svc.Login(ctx, adminEmail, pw("fresh password"))
	require.NoError(t, err)
	assert.True(t, store.IsAuthenticated())
}

func TestPasswordReset_UnknownUser(t *testing.T) {
	engine := newEngine(t)
	_, c := newBackend(t, engine)
	svc, _ := newService(c, engine, Options{})

	out, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, autherr.UnknownIdentity, out.Category)
	assert.Equal(t, flow.Failed, svc.State().Phase)
}

// ---- session ----

func TestRefresh(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})
	svc, store := newService(c, engine, Options{})
	ctx := context.Background()

	require.ErrorIs(t, svc.Refresh(ctx), ErrNotAuthenticated)

	_, err := svc.Login(ctx, adminEmail, pw(adminPassword))
	require.NoError(t, err)
	before := store.Current()

	require.NoError(t, svc.Refresh(ctx))
	after := store.Current()
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	assert.True(t, store.IsAuthenticated())

	// a rotated-out refresh token drops the session
	store.Save(before.AccessToken, before.RefreshToken)
	err = svc.Refresh(ctx)
	require.ErrorIs(t, err, autherr.ErrServerRejected)
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, flow.Idle, svc.State().Phase)
}

func TestRefresh_TransientKeepsSession(t *testing.T) {
	fc := &fakeClient{RefreshErr: autherr.Transient(client.OpRefresh, client.ErrUnavailable)}
	svc, store := newService(fc, newEngine(t), Options{})
	store.Save("access", "refresh")

	err := svc.Refresh(context.Background())
	require.ErrorIs(t, err, autherr.ErrNetworkTransient)
	assert.True(t, store.IsAuthenticated())
}

func TestRefresh_RejectionCategories(t *testing.T) {
	tests := []struct {
		code         string
		keepsSession bool
	}{
		{code: autherr.CodeUnauthorized, keepsSession: false},
		{code: autherr.CodeUserNotFound, keepsSession: false},
		{code: autherr.CodeTooManyAttempts, keepsSession: true},
		{code: autherr.CodeTemporaryBlocked, keepsSession: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fc := &fakeClient{RefreshErr: autherr.Rejected(client.OpRefresh, tt.code, "")}
			svc, store := newService(fc, newEngine(t), Options{})
			store.Save("access", "refresh")

			err := svc.Refresh(context.Background())
			require.ErrorIs(t, err, autherr.ErrServerRejected)
			assert.Equal(t, tt.keepsSession, store.IsAuthenticated())
		})
	}
}

// cancelOnRefresh cancels the caller's context after the server rotated the token.
type cancelOnRefresh struct {
	*fakeClient
	cancel context.CancelFunc
}

func (c *cancelOnRefresh) Refresh(ctx context.Context, refreshToken string) (*client.RefreshResponse, error) {
	c.cancel()
	return c.fakeClient.Refresh(ctx, refreshToken)
}

func TestRefresh_KeepsRotatedPairAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc := &cancelOnRefresh{
		fakeClient: &fakeClient{RefreshRet: &client.RefreshResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}},
		cancel:     cancel,
	}
	svc, store := newService(fc, newEngine(t), Options{})
	store.Save("access-1", "refresh-1")

	require.NoError(t, svc.Refresh(ctx))
	require.Error(t, ctx.Err())
	assert.Equal(t, "refresh-2", store.Current().RefreshToken)
	assert.True(t, store.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	engine := newEngine(t)
	srv, c := newBackend(t, engine)
	addAccount(t, srv, srptest.Account{Email: adminEmail})
	svc, store := newService(c, engine, Options{})
	ctx := context.Background()

	_, err := svc.Login(ctx, adminEmail, pw(adminPassword))
	require.NoError(t, err)

	updates, cancel := svc.Subscribe()
	defer cancel()
	require.True(t, <-updates)

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, <-updates)
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, flow.Idle, svc.State().Phase)
}

func TestClose(t *testing.T) {
	want := errors.New("close failed")
	svc, _ := newService(&fakeClient{CloseErr: want}, newEngine(t), Options{})
	require.ErrorIs(t, svc.Close(context.Background()), want)
}
