// Package services contains the application services of the auth client.
// This file defines AuthService, the API the UI layer consumes: it drives the
// flow state machine, executes its effects against the backend and owns the
// lifetime of every secret used along the way.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
	"github.com/dmitrijs2005/srpgate/internal/client/client"
	"github.com/dmitrijs2005/srpgate/internal/client/flow"
	"github.com/dmitrijs2005/srpgate/internal/client/session"
	"github.com/dmitrijs2005/srpgate/internal/common"
	"github.com/dmitrijs2005/srpgate/internal/logging"
	"github.com/dmitrijs2005/srpgate/internal/srp"
)

// AuthService defines authentication operations for the UI.
//
// Contract:
//   - Login: SRP exchange for email/password, then the server-driven branch.
//   - SubmitOTP, ResendOTP: the MFA step after Login returned MfaRequired.
//   - ForceChangePassword: the step after Login returned ForcedChangeRequired.
//   - RequestPasswordReset, SubmitPasswordReset: the out-of-band reset path.
//   - Refresh: rotate the stored token pair.
//   - IsAuthenticated, Subscribe: the navigation gate.
//   - Logout: drop the session.
//
// Only one exchange runs at a time; a concurrent call fails with
// ErrExchangeInProgress. Password buffers passed in are zeroed before the call
// returns. A Rejected outcome is always paired with a non-nil *autherr.Error.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte) (flow.Outcome, error)
	SubmitOTP(ctx context.Context, otp string) (flow.Outcome, error)
	ResendOTP(ctx context.Context) error
	ForceChangePassword(ctx context.Context, newPassword []byte) (flow.Outcome, error)
	RequestPasswordReset(ctx context.Context, email string) (flow.Outcome, error)
	SubmitPasswordReset(ctx context.Context, otp string, newPassword []byte) (flow.Outcome, error)
	Refresh(ctx context.Context) error
	IsAuthenticated() bool
	Subscribe() (<-chan bool, func())
	Logout(ctx context.Context) error
	State() flow.State
	Close(ctx context.Context) error
}

// DefaultOTPResendInterval is the minimum spacing of OTP sends.
const DefaultOTPResendInterval = 30 * time.Second

// Options tune an AuthService. The zero value is usable.
type Options struct {
	// RequiredRole is the role a grant must carry. Default "ADMIN".
	RequiredRole string
	// RequireServerProof fails the exchange when the server omits M2.
	RequireServerProof bool
	// OTPResendInterval throttles OTP sends.
	OTPResendInterval time.Duration
	Logger            logging.Logger
}

// authService is the concrete AuthService.
type authService struct {
	client       client.Client
	engine       *srp.Engine
	store        *session.Store
	machine      flow.Machine
	logger       logging.Logger
	requireProof bool

	sem    *semaphore.Weighted
	resend *rate.Limiter

	mu    sync.Mutex
	state flow.State
}

// NewAuthService constructs an AuthService bound to the given API client,
// SRP engine and token store.
func NewAuthService(c client.Client, engine *srp.Engine, store *session.Store, opts Options) AuthService {
	interval := opts.OTPResendInterval
	if interval <= 0 {
		interval = DefaultOTPResendInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &authService{
		client:       c,
		engine:       engine,
		store:        store,
		machine:      flow.NewMachine(opts.RequiredRole),
		logger:       logger.With("module", "auth_service"),
		requireProof: opts.RequireServerProof,
		sem:          semaphore.NewWeighted(1),
		resend:       rate.NewLimiter(rate.Every(interval), 1),
	}
}

// exchange holds the secrets of one call. wipe runs on every exit path.
type exchange struct {
	id          string
	password    []byte
	newPassword []byte
	otp         string
	challenge   *srp.Challenge
	keyPair     *srp.EphemeralKeyPair
	proof       *srp.Proof
}

func (x *exchange) setProof(kp *srp.EphemeralKeyPair, p *srp.Proof) {
	x.dropProof()
	x.keyPair = kp
	x.proof = p
}

func (x *exchange) dropProof() {
	if x.keyPair != nil {
		x.keyPair.Destroy()
		x.keyPair = nil
	}
	if x.proof != nil {
		x.proof.Destroy()
		x.proof = nil
	}
}

func (x *exchange) wipe() {
	x.dropProof()
	common.WipeByteArray(x.password)
	common.WipeByteArray(x.newPassword)
	x.otp = ""
	x.challenge = nil
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (flow.Outcome, error) {
	x := &exchange{password: password}
	if email == "" || len(password) == 0 {
		x.wipe()
		return rejected(autherr.Format("login", ErrMissingInput))
	}
	return a.run(ctx, flow.Login(email), x)
}

func (a *authService) SubmitOTP(ctx context.Context, otp string) (flow.Outcome, error) {
	if otp == "" {
		return rejected(autherr.Format("mfa", ErrMissingInput))
	}
	return a.run(ctx, flow.Simple(flow.EvSubmitOTP), &exchange{otp: otp})
}

func (a *authService) ResendOTP(ctx context.Context) error {
	_, err := a.run(ctx, flow.Simple(flow.EvResendOTP), &exchange{})
	return err
}

// ForceChangePassword installs newPassword and then logs in with it. Tokens
// are only stored once that fresh login succeeds.
func (a *authService) ForceChangePassword(ctx context.Context, newPassword []byte) (flow.Outcome, error) {
	x := &exchange{newPassword: newPassword}
	if len(newPassword) == 0 {
		x.wipe()
		return rejected(autherr.Format("force change", ErrMissingInput))
	}
	return a.run(ctx, flow.Simple(flow.EvForceChange), x)
}

func (a *authService) RequestPasswordReset(ctx context.Context, email string) (flow.Outcome, error) {
	if email == "" {
		return rejected(autherr.Format("reset", ErrMissingInput))
	}
	return a.run(ctx, flow.RequestReset(email), &exchange{})
}

func (a *authService) SubmitPasswordReset(ctx context.Context, otp string, newPassword []byte) (flow.Outcome, error) {
	x := &exchange{otp: otp, newPassword: newPassword}
	if otp == "" || len(newPassword) == 0 {
		x.wipe()
		return rejected(autherr.Format("reset", ErrMissingInput))
	}
	return a.run(ctx, flow.Simple(flow.EvSubmitReset), x)
}

func (a *authService) Refresh(ctx context.Context) error {
	if !a.sem.TryAcquire(1) {
		return ErrExchangeInProgress
	}
	defer a.sem.Release(1)

	current := a.store.Current()
	if current.RefreshToken == "" {
		return ErrNotAuthenticated
	}

	resp, err := a.client.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if tokenRejected(err) {
			a.logger.Warn(ctx, "refresh token rejected, dropping session")
			a.store.Invalidate()
			a.setState(flow.State{Phase: flow.Idle})
		}
		return fmt.Errorf("refresh error: %w", err)
	}
	// The old refresh token is spent from here on, whatever ctx says.
	a.store.Save(resp.AccessToken, resp.RefreshToken)
	return nil
}

// tokenRejected reports whether a refresh failure means the refresh token
// itself is no longer accepted.
func tokenRejected(err error) bool {
	if !errors.Is(err, autherr.ErrServerRejected) {
		return false
	}
	switch autherr.CategoryOf(err) {
	case autherr.InvalidCredentials, autherr.UnknownIdentity:
		return true
	default:
		return false
	}
}

func (a *authService) IsAuthenticated() bool {
	return a.store.IsAuthenticated()
}

func (a *authService) Subscribe() (<-chan bool, func()) {
	return a.store.Subscribe()
}

// Logout waits for a running exchange to finish, then drops the session.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)

	next, eff := a.machine.Transition(a.State(), flow.Simple(flow.EvLogout))
	a.setState(next)
	if eff.Kind == flow.EffectClearTokens {
		a.store.Clear()
	}
	a.logger.Info(ctx, "logged out")
	return nil
}

func (a *authService) State() flow.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *authService) setState(s flow.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func rejected(err *autherr.Error) (flow.Outcome, error) {
	return flow.Outcome{Kind: flow.OutcomeRejected, Category: err.Category.Public(), Err: err}, err
}

// run feeds ev to the machine and executes effects until one yields an
// outcome for the caller.
func (a *authService) run(ctx context.Context, ev flow.Event, x *exchange) (flow.Outcome, error) {
	defer x.wipe()

	if !a.sem.TryAcquire(1) {
		return flow.Outcome{}, ErrExchangeInProgress
	}
	defer a.sem.Release(1)

	x.id = uuid.NewString()
	log := a.logger.With("exchange_id", x.id)
	state := a.State()
	log.Debug(ctx, "exchange started", "event", ev.Kind.String(), "phase", state.Phase.String())

	for {
		next, eff := a.machine.Transition(state, ev)
		log.Debug(ctx, "transition", "from", state.Phase.String(), "to", next.Phase.String(), "effect", eff.Kind.String())
		a.setState(next)
		state = next

		var (
			done bool
			out  flow.Outcome
			err  error
		)
		ev, out, done, err = a.execute(ctx, log, state, eff, x)
		if !done {
			continue
		}

		if err == nil && out.Kind == flow.OutcomeRejected && out.Err != nil {
			err = out.Err
		}
		if err != nil {
			log.Info(ctx, "exchange finished", "phase", state.Phase.String(), "outcome", out.Kind.String(), "error", err)
		} else {
			log.Info(ctx, "exchange finished", "phase", state.Phase.String(), "outcome", out.Kind.String())
		}
		return out, err
	}
}

// execute performs one effect. It either returns the next event, or done with
// the outcome to report.
func (a *authService) execute(ctx context.Context, log logging.Logger, s flow.State, eff flow.Effect, x *exchange) (flow.Event, flow.Outcome, bool, error) {
	next := func(ev flow.Event) (flow.Event, flow.Outcome, bool, error) {
		return ev, flow.Outcome{}, false, nil
	}
	fail := func(err error) (flow.Event, flow.Outcome, bool, error) {
		return flow.Failure(err), flow.Outcome{}, false, nil
	}
	finish := func(out flow.Outcome) (flow.Event, flow.Outcome, bool, error) {
		return flow.Event{}, out, true, nil
	}

	switch eff.Kind {
	case flow.EffectNone:
		return finish(eff.Outcome)

	case flow.EffectFetchChallenge:
		resp, err := a.client.Challenge(ctx, s.Email)
		if err != nil {
			return fail(err)
		}
		ch, err := srp.NewChallenge(resp.Salt, resp.B)
		if err != nil {
			return fail(autherr.Format("challenge", err))
		}
		x.challenge = ch
		return next(flow.Simple(flow.EvChallengeReceived))

	case flow.EffectSubmitProof:
		ev, err := a.prove(x, s.Email, x.password)
		if err != nil {
			return fail(err)
		}
		resp, err := a.client.Authenticate(ctx, &client.AuthenticateRequest{Email: s.Email, A: ev.AHex(), M1: ev.M1Hex()})
		if err != nil {
			return fail(err)
		}
		if err := a.checkServerProof(x, resp.M2); err != nil {
			return fail(err)
		}
		return next(flow.Verdicted(verdict(resp)))

	case flow.EffectCheckOTP:
		resp, err := a.client.CheckMFA(ctx, &client.MFARequest{Email: s.Email, OTP: x.otp})
		if err != nil {
			return fail(err)
		}
		return next(flow.Verdicted(verdict(resp)))

	case flow.EffectSendOTP:
		err := a.sendOTP(ctx, s.Email)
		if eff.Outcome.Kind == flow.OutcomePending {
			// explicit resend: the caller sees the error, the state is kept
			return flow.Event{}, eff.Outcome, true, err
		}
		if err != nil {
			log.Warn(ctx, "initial otp send failed", "error", err)
		}
		return finish(eff.Outcome)

	case flow.EffectSubmitForceChange:
		verifier, ev, err := a.newCredential(x, s.Email)
		if err != nil {
			return fail(err)
		}
		err = a.client.ForceChangePassword(ctx, &client.ForceChangeRequest{
			Email:    s.Email,
			A:        ev.AHex(),
			M1:       ev.M1Hex(),
			Salt:     verifier.SaltHex(),
			Verifier: verifier.ValueHex(),
		})
		if err != nil {
			return fail(err)
		}
		// the fresh login that follows proves the new password
		x.password = x.newPassword
		x.newPassword = nil
		return next(flow.Simple(flow.EvAccepted))

	case flow.EffectRequestReset:
		if err := a.client.RequestPasswordReset(ctx, s.Email); err != nil {
			return fail(err)
		}
		return next(flow.Simple(flow.EvAccepted))

	case flow.EffectSubmitReset:
		verifier, ev, err := a.newCredential(x, s.Email)
		if err != nil {
			return fail(err)
		}
		err = a.client.SubmitPasswordReset(ctx, &client.ResetSubmitRequest{
			Email:    s.Email,
			OTP:      x.otp,
			ANew:     ev.AHex(),
			Salt:     verifier.SaltHex(),
			Verifier: verifier.ValueHex(),
			M1New:    ev.M1Hex(),
		})
		if err != nil {
			return fail(err)
		}
		return next(flow.Simple(flow.EvAccepted))

	case flow.EffectStoreTokens:
		// a cancelled call must not leave a session behind
		if err := ctx.Err(); err != nil {
			return fail(autherr.Transient("store", err))
		}
		a.store.Save(eff.Grant.AccessToken, eff.Grant.RefreshToken)
		return finish(eff.Outcome)

	case flow.EffectClearTokens:
		a.store.Clear()
		return finish(eff.Outcome)
	}

	return fail(fmt.Errorf("unhandled effect %s", eff.Kind))
}

// prove derives a fresh key pair and computes the proof for the current
// challenge.
func (a *authService) prove(x *exchange, email string, password []byte) (srp.Evidence, error) {
	if x.challenge == nil {
		return srp.Evidence{}, autherr.Protocol("proof", errors.New("no challenge"))
	}
	kp, err := a.engine.DeriveEphemeralKeyPair()
	if err != nil {
		return srp.Evidence{}, err
	}
	proof, err := a.engine.ComputeSharedProof(email, password, x.challenge, kp)
	if err != nil {
		kp.Destroy()
		return srp.Evidence{}, err
	}
	x.setProof(kp, proof)
	return proof.Evidence(), nil
}

// newCredential builds the verifier and proof for x.newPassword against the
// current challenge. The challenge salt is kept.
func (a *authService) newCredential(x *exchange, email string) (srp.Verifier, srp.Evidence, error) {
	if x.challenge == nil {
		return srp.Verifier{}, srp.Evidence{}, autherr.Protocol("credential", errors.New("no challenge"))
	}
	verifier, err := a.engine.GenerateVerifier(x.challenge.Salt(), email, x.newPassword)
	if err != nil {
		return srp.Verifier{}, srp.Evidence{}, err
	}
	ev, err := a.prove(x, email, x.newPassword)
	if err != nil {
		return srp.Verifier{}, srp.Evidence{}, err
	}
	return verifier, ev, nil
}

func (a *authService) checkServerProof(x *exchange, m2 string) error {
	if m2 == "" {
		if a.requireProof {
			return autherr.Protocol("server proof", srp.ErrServerProof)
		}
		return nil
	}
	return x.proof.VerifyServerEvidenceHex(m2)
}

func (a *authService) sendOTP(ctx context.Context, email string) error {
	if !a.resend.Allow() {
		return ErrResendThrottled
	}
	return a.client.ResendOTP(ctx, email)
}

func verdict(resp *client.AuthResponse) flow.Verdict {
	return flow.Verdict{
		UserStatus: resp.UserStatus,
		MfaStatus:  resp.MfaStatus,
		Grant: flow.Grant{
			Role:         resp.Role,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
		},
	}
}
