package flow

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
)

// ErrInvalidTransition is returned in the Outcome of an event the current
// phase does not accept. The state is left unchanged.
var ErrInvalidTransition = errors.New("event not allowed in current state")

// ErrUnknownStatus marks a verdict with an account or MFA status the client
// does not know.
var ErrUnknownStatus = errors.New("unknown account or mfa status")

// Server-reported statuses.
const (
	UserStatusForcePasswordChange = "FORCE_PASSWORD_CHANGE"
	UserStatusActive              = "ACTIVE"
	MfaStatusPending              = "PENDING"
	MfaStatusActivated            = "ACTIVATED"
	MfaStatusRejected             = "REJECTED"
)

// DefaultRequiredRole is the only role allowed to hold a session.
const DefaultRequiredRole = "ADMIN"

// Machine holds the authorization policy. The zero value requires
// DefaultRequiredRole.
type Machine struct {
	RequiredRole string
}

func NewMachine(requiredRole string) Machine {
	return Machine{RequiredRole: requiredRole}
}

func (m Machine) requiredRole() string {
	if m.RequiredRole == "" {
		return DefaultRequiredRole
	}
	return m.RequiredRole
}

// Transition returns the next state and the effect to run.
func (m Machine) Transition(s State, ev Event) (State, Effect) {
	if ev.Kind == EvLogout {
		return State{Phase: Idle}, Effect{Kind: EffectClearTokens, Outcome: Outcome{Kind: OutcomeLoggedOut}}
	}
	if ev.Kind == EvFailed {
		return m.fail(s, ev.Err)
	}

	switch s.Phase {
	case Idle, Failed, Authorized, ForcedChangeRequired, MfaPending, MfaActivated, ResetCodeSent:
		switch ev.Kind {
		case EvLogin:
			return State{Phase: ChallengeRequested, Email: ev.Email}, Effect{Kind: EffectFetchChallenge}
		case EvRequestReset:
			return State{Phase: ResetCodeRequested, Email: ev.Email}, Effect{Kind: EffectRequestReset}
		}
	}

	switch s.Phase {
	case ChallengeRequested:
		if ev.Kind == EvChallengeReceived {
			return with(s, ProofSubmitted), Effect{Kind: EffectSubmitProof}
		}

	case ProofSubmitted:
		if ev.Kind == EvVerdict {
			return m.branch(s, ev.Verdict)
		}

	case ForcedChangeRequired:
		if ev.Kind == EvForceChange {
			return with(s, ForcedChangeChallengeRequested), Effect{Kind: EffectFetchChallenge}
		}

	case ForcedChangeChallengeRequested:
		if ev.Kind == EvChallengeReceived {
			return with(s, ForcedChangeSubmitted), Effect{Kind: EffectSubmitForceChange}
		}

	case ForcedChangeSubmitted:
		// The new password is proven by a fresh login before any token.
		if ev.Kind == EvAccepted {
			return with(s, ChallengeRequested), Effect{Kind: EffectFetchChallenge}
		}

	case MfaPending, MfaActivated:
		switch ev.Kind {
		case EvSubmitOTP:
			next := with(s, OtpSubmitted)
			next.mfaFrom = s.Phase
			return next, Effect{Kind: EffectCheckOTP}
		case EvResendOTP:
			return s, Effect{Kind: EffectSendOTP}
		}

	case OtpSubmitted:
		if ev.Kind == EvVerdict {
			return m.authorize(s, ev.Verdict.Grant)
		}

	case ResetCodeRequested:
		if ev.Kind == EvAccepted {
			return with(s, ResetCodeSent), Effect{Outcome: Outcome{Kind: OutcomeResetCodeSent, Email: s.Email}}
		}

	case ResetCodeSent:
		if ev.Kind == EvSubmitReset {
			return with(s, ResetChallengeRequested), Effect{Kind: EffectFetchChallenge}
		}

	case ResetChallengeRequested:
		if ev.Kind == EvChallengeReceived {
			return with(s, ResetSubmitted), Effect{Kind: EffectSubmitReset}
		}

	case ResetSubmitted:
		if ev.Kind == EvAccepted {
			return State{Phase: Idle, Email: s.Email}, Effect{Outcome: Outcome{Kind: OutcomeResetCompleted, Email: s.Email}}
		}
	}

	err := autherr.Protocol(ev.Kind.String(), fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.Kind, s.Phase))
	return s, Effect{Outcome: Outcome{Kind: OutcomeRejected, Category: autherr.Unexpected, Err: err}}
}

// branch applies the post-proof rules in order: forced change, MFA, then
// authorization.
func (m Machine) branch(s State, v Verdict) (State, Effect) {
	switch v.UserStatus {
	case UserStatusForcePasswordChange:
		return with(s, ForcedChangeRequired), Effect{Outcome: Outcome{Kind: OutcomeForcedChangeRequired, Email: s.Email}}

	case UserStatusActive:
		switch v.MfaStatus {
		case MfaStatusPending:
			return with(s, MfaPending), Effect{Kind: EffectSendOTP, Outcome: Outcome{Kind: OutcomeMfaRequired, Email: s.Email}}
		case MfaStatusActivated:
			return with(s, MfaActivated), Effect{Outcome: Outcome{Kind: OutcomeMfaRequired, Email: s.Email}}
		case MfaStatusRejected:
			return m.authorize(s, v.Grant)
		}
	}

	return m.fail(s, autherr.Protocol("verdict",
		fmt.Errorf("%w: user=%q mfa=%q", ErrUnknownStatus, v.UserStatus, v.MfaStatus)))
}

// authorize stores the grant only if the role matches the policy. A wrong
// role is reported exactly like an unknown user.
func (m Machine) authorize(s State, g Grant) (State, Effect) {
	if g.Role != m.requiredRole() {
		return m.fail(s, autherr.Denied("authorize"))
	}
	if g.AccessToken == "" {
		return m.fail(s, autherr.Protocol("authorize", errors.New("grant without access token")))
	}
	return with(s, Authorized), Effect{
		Kind:    EffectStoreTokens,
		Grant:   g,
		Outcome: Outcome{Kind: OutcomeAuthorized, Email: s.Email},
	}
}

// fail handles a failed effect. A wrong OTP keeps the user in the step that
// asked for it; everything else ends the attempt.
func (m Machine) fail(s State, err error) (State, Effect) {
	ae := autherr.Classify(s.Phase.String(), err)
	if ae == nil {
		ae = autherr.Transient(s.Phase.String(), errors.New("failure without cause"))
	}
	out := Outcome{Kind: OutcomeRejected, Email: s.Email, Category: ae.Category.Public(), Err: ae}

	if ae.Category == autherr.InvalidVerificationCode {
		switch s.Phase {
		case OtpSubmitted:
			return with(s, s.mfaFrom), Effect{Outcome: out}
		case ResetSubmitted, ResetChallengeRequested:
			return with(s, ResetCodeSent), Effect{Outcome: out}
		}
	}
	return State{Phase: Failed, Email: s.Email}, Effect{Outcome: out}
}

func with(s State, p Phase) State {
	s.Phase = p
	return s
}
