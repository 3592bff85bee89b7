package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
)

const email = "admin@example.com"

var adminGrant = Grant{Role: "ADMIN", AccessToken: "at", RefreshToken: "rt"}

// drive applies events in order and returns the final state and last effect.
func drive(t *testing.T, m Machine, s State, evs ...Event) (State, Effect) {
	t.Helper()
	var eff Effect
	for _, ev := range evs {
		s, eff = m.Transition(s, ev)
	}
	return s, eff
}

func TestTransition_LoginActiveNoMfa(t *testing.T) {
	m := NewMachine("")

	s, eff := m.Transition(State{}, Login(email))
	assert.Equal(t, ChallengeRequested, s.Phase)
	assert.Equal(t, email, s.Email)
	assert.Equal(t, EffectFetchChallenge, eff.Kind)

	s, eff = m.Transition(s, Simple(EvChallengeReceived))
	assert.Equal(t, ProofSubmitted, s.Phase)
	assert.Equal(t, EffectSubmitProof, eff.Kind)

	s, eff = m.Transition(s, Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: adminGrant}))
	assert.Equal(t, Authorized, s.Phase)
	assert.Equal(t, EffectStoreTokens, eff.Kind)
	assert.Equal(t, adminGrant, eff.Grant)
	assert.Equal(t, OutcomeAuthorized, eff.Outcome.Kind)
}

func TestTransition_BranchOrder(t *testing.T) {
	tests := []struct {
		name        string
		verdict     Verdict
		wantPhase   Phase
		wantEffect  EffectKind
		wantOutcome OutcomeKind
	}{
		{
			name:        "force change wins over mfa and grant",
			verdict:     Verdict{UserStatus: UserStatusForcePasswordChange, MfaStatus: MfaStatusRejected, Grant: adminGrant},
			wantPhase:   ForcedChangeRequired,
			wantEffect:  EffectNone,
			wantOutcome: OutcomeForcedChangeRequired,
		},
		{
			name:        "mfa pending requests an otp",
			verdict:     Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusPending},
			wantPhase:   MfaPending,
			wantEffect:  EffectSendOTP,
			wantOutcome: OutcomeMfaRequired,
		},
		{
			name:        "mfa activated waits for a code",
			verdict:     Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusActivated},
			wantPhase:   MfaActivated,
			wantEffect:  EffectNone,
			wantOutcome: OutcomeMfaRequired,
		},
		{
			name:        "unknown user status",
			verdict:     Verdict{UserStatus: "DELETED", MfaStatus: MfaStatusRejected, Grant: adminGrant},
			wantPhase:   Failed,
			wantEffect:  EffectNone,
			wantOutcome: OutcomeRejected,
		},
		{
			name:        "unknown mfa status",
			verdict:     Verdict{UserStatus: UserStatusActive, MfaStatus: "MAYBE", Grant: adminGrant},
			wantPhase:   Failed,
			wantEffect:  EffectNone,
			wantOutcome: OutcomeRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, eff := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived), Verdicted(tt.verdict))
			assert.Equal(t, tt.wantPhase, s.Phase)
			assert.Equal(t, tt.wantEffect, eff.Kind)
			assert.Equal(t, tt.wantOutcome, eff.Outcome.Kind)
			assert.NotEqual(t, EffectStoreTokens, eff.Kind)
		})
	}
}

func TestTransition_UnknownStatusIsProtocolViolation(t *testing.T) {
	_, eff := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: "??", MfaStatus: "??"}))

	require.NotNil(t, eff.Outcome.Err)
	require.ErrorIs(t, eff.Outcome.Err, autherr.ErrProtocolViolation)
	require.ErrorIs(t, eff.Outcome.Err, ErrUnknownStatus)
}

func TestTransition_RoleMismatchLooksLikeUnknownUser(t *testing.T) {
	viewer := Grant{Role: "VIEWER", AccessToken: "at", RefreshToken: "rt"}
	s, eff := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: viewer}))

	assert.Equal(t, Failed, s.Phase)
	assert.NotEqual(t, EffectStoreTokens, eff.Kind)
	assert.Equal(t, OutcomeRejected, eff.Outcome.Kind)

	_, unknown := drive(t, Machine{}, State{}, Login(email),
		Failure(autherr.Rejected("challenge", autherr.CodeUserNotFound, "")))
	assert.Equal(t, unknown.Outcome.Category, eff.Outcome.Category)
	assert.Equal(t, autherr.UnknownIdentity, eff.Outcome.Category)
}

func TestTransition_CustomRequiredRole(t *testing.T) {
	m := NewMachine("AUDITOR")
	s, eff := drive(t, m, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: Grant{Role: "AUDITOR", AccessToken: "at"}}))
	assert.Equal(t, Authorized, s.Phase)
	assert.Equal(t, EffectStoreTokens, eff.Kind)

	s, _ = drive(t, m, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: adminGrant}))
	assert.Equal(t, Failed, s.Phase)
}

func TestTransition_GrantWithoutTokenFails(t *testing.T) {
	s, eff := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: Grant{Role: "ADMIN"}}))
	assert.Equal(t, Failed, s.Phase)
	require.ErrorIs(t, eff.Outcome.Err, autherr.ErrProtocolViolation)
}

func TestTransition_MfaFlow(t *testing.T) {
	for _, status := range []string{MfaStatusPending, MfaStatusActivated} {
		t.Run(status, func(t *testing.T) {
			s, _ := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived),
				Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: status}))
			from := s.Phase

			s, eff := Machine{}.Transition(s, Simple(EvResendOTP))
			assert.Equal(t, from, s.Phase)
			assert.Equal(t, EffectSendOTP, eff.Kind)

			s, eff = Machine{}.Transition(s, Simple(EvSubmitOTP))
			assert.Equal(t, OtpSubmitted, s.Phase)
			assert.Equal(t, EffectCheckOTP, eff.Kind)

			// A wrong code returns to the same MFA step.
			s, eff = Machine{}.Transition(s, Failure(autherr.Rejected("mfa", autherr.CodeInvalidConfirmationCode, "")))
			assert.Equal(t, from, s.Phase)
			assert.Equal(t, autherr.InvalidVerificationCode, eff.Outcome.Category)

			s, _ = Machine{}.Transition(s, Simple(EvSubmitOTP))
			s, eff = Machine{}.Transition(s, Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: adminGrant}))
			assert.Equal(t, Authorized, s.Phase)
			assert.Equal(t, EffectStoreTokens, eff.Kind)
		})
	}
}

func TestTransition_OtpVerdictIgnoresStatuses(t *testing.T) {
	s, _ := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusPending}), Simple(EvSubmitOTP))

	s, eff := Machine{}.Transition(s, Verdicted(Verdict{MfaStatus: MfaStatusPending, Grant: adminGrant}))
	assert.Equal(t, Authorized, s.Phase)
	assert.Equal(t, EffectStoreTokens, eff.Kind)
}

func TestTransition_ForcedChangeNeverStoresBeforeFreshLogin(t *testing.T) {
	m := Machine{}
	s, _ := drive(t, m, State{}, Login(email), Simple(EvChallengeReceived),
		Verdicted(Verdict{UserStatus: UserStatusForcePasswordChange, MfaStatus: MfaStatusRejected, Grant: adminGrant}))
	require.Equal(t, ForcedChangeRequired, s.Phase)

	steps := []struct {
		ev     Event
		phase  Phase
		effect EffectKind
	}{
		{Simple(EvForceChange), ForcedChangeChallengeRequested, EffectFetchChallenge},
		{Simple(EvChallengeReceived), ForcedChangeSubmitted, EffectSubmitForceChange},
		{Simple(EvAccepted), ChallengeRequested, EffectFetchChallenge},
		{Simple(EvChallengeReceived), ProofSubmitted, EffectSubmitProof},
	}
	for _, st := range steps {
		var eff Effect
		s, eff = m.Transition(s, st.ev)
		require.Equal(t, st.phase, s.Phase, st.ev.Kind.String())
		require.Equal(t, st.effect, eff.Kind, st.ev.Kind.String())
	}

	s, eff := m.Transition(s, Verdicted(Verdict{UserStatus: UserStatusActive, MfaStatus: MfaStatusRejected, Grant: adminGrant}))
	assert.Equal(t, Authorized, s.Phase)
	assert.Equal(t, EffectStoreTokens, eff.Kind)
	assert.Equal(t, email, s.Email)
}

func TestTransition_ForcedChangeFailure(t *testing.T) {
	s, _ := drive(t, Machine{}, State{Phase: ForcedChangeRequired, Email: email},
		Simple(EvForceChange), Simple(EvChallengeReceived))

	s, eff := Machine{}.Transition(s, Failure(autherr.Rejected("force", autherr.CodeUnauthorized, "")))
	assert.Equal(t, Failed, s.Phase)
	assert.Equal(t, autherr.InvalidCredentials, eff.Outcome.Category)
}

func TestTransition_ResetFlow(t *testing.T) {
	m := Machine{}

	s, eff := m.Transition(State{}, RequestReset(email))
	assert.Equal(t, ResetCodeRequested, s.Phase)
	assert.Equal(t, EffectRequestReset, eff.Kind)

	s, eff = m.Transition(s, Simple(EvAccepted))
	assert.Equal(t, ResetCodeSent, s.Phase)
	assert.Equal(t, OutcomeResetCodeSent, eff.Outcome.Kind)

	s, eff = m.Transition(s, Simple(EvSubmitReset))
	assert.Equal(t, ResetChallengeRequested, s.Phase)
	assert.Equal(t, EffectFetchChallenge, eff.Kind)

	s, eff = m.Transition(s, Simple(EvChallengeReceived))
	assert.Equal(t, ResetSubmitted, s.Phase)
	assert.Equal(t, EffectSubmitReset, eff.Kind)

	// Wrong code: back to ResetCodeSent, the next try fetches a new challenge.
	s, eff = m.Transition(s, Failure(autherr.Rejected("reset", autherr.CodeInvalidConfirmationCode, "")))
	assert.Equal(t, ResetCodeSent, s.Phase)
	assert.Equal(t, autherr.InvalidVerificationCode, eff.Outcome.Category)

	s, _ = drive(t, m, s, Simple(EvSubmitReset), Simple(EvChallengeReceived))
	s, eff = m.Transition(s, Simple(EvAccepted))
	assert.Equal(t, Idle, s.Phase)
	assert.Equal(t, OutcomeResetCompleted, eff.Outcome.Kind)
	assert.NotEqual(t, EffectStoreTokens, eff.Kind)
}

func TestTransition_FailuresEndAttempt(t *testing.T) {
	tests := []struct {
		name string
		err  error
		cat  autherr.Category
		kind error
	}{
		{"blocked", autherr.Rejected("auth", autherr.CodeTemporaryBlocked, ""), autherr.TemporarilyBlocked, autherr.ErrServerRejected},
		{"unconfirmed collapses", autherr.Rejected("auth", autherr.CodeEmailConfirmationPending, ""), autherr.UnknownIdentity, autherr.ErrServerRejected},
		{"network", autherr.Transient("auth", assert.AnError), autherr.Unexpected, autherr.ErrNetworkTransient},
		{"wrong otp outside mfa", autherr.Rejected("auth", autherr.CodeInvalidConfirmationCode, ""), autherr.InvalidVerificationCode, autherr.ErrServerRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, eff := drive(t, Machine{}, State{}, Login(email), Simple(EvChallengeReceived), Failure(tt.err))
			assert.Equal(t, Failed, s.Phase)
			assert.Equal(t, OutcomeRejected, eff.Outcome.Kind)
			assert.Equal(t, tt.cat, eff.Outcome.Category)
			require.ErrorIs(t, eff.Outcome.Err, tt.kind)
		})
	}
}

func TestTransition_InvalidEventsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		phase Phase
		ev    Event
	}{
		{Idle, Simple(EvSubmitOTP)},
		{Idle, Simple(EvChallengeReceived)},
		{ChallengeRequested, Login(email)},
		{ProofSubmitted, Simple(EvAccepted)},
		{Authorized, Simple(EvForceChange)},
		{ResetCodeSent, Simple(EvSubmitOTP)},
		{OtpSubmitted, Simple(EvResendOTP)},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String()+"/"+tt.ev.Kind.String(), func(t *testing.T) {
			in := State{Phase: tt.phase, Email: email}
			out, eff := Machine{}.Transition(in, tt.ev)
			assert.Equal(t, in, out)
			assert.Equal(t, EffectNone, eff.Kind)
			require.ErrorIs(t, eff.Outcome.Err, ErrInvalidTransition)
		})
	}
}

func TestTransition_LogoutFromAnywhere(t *testing.T) {
	for p := Idle; p <= Failed; p++ {
		s, eff := Machine{}.Transition(State{Phase: p, Email: email}, Simple(EvLogout))
		assert.Equal(t, State{Phase: Idle}, s)
		assert.Equal(t, EffectClearTokens, eff.Kind)
	}
}

func TestPhase_Predicates(t *testing.T) {
	assert.True(t, OtpSubmitted.InFlight())
	assert.False(t, MfaPending.InFlight())
	assert.True(t, Failed.Terminal())
	assert.False(t, Idle.Terminal())
	assert.Equal(t, "Unknown", Phase(42).String())
}
