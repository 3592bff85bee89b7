// Package flow is the authentication state machine. It is pure: Transition
// maps a state and an event to the next state and one effect, and performs
// no I/O. The services package executes the effects and feeds the results
// back as events.
package flow

// Phase is the position of the exchange.
type Phase int

const (
	Idle Phase = iota
	ChallengeRequested
	ProofSubmitted
	ForcedChangeRequired
	ForcedChangeChallengeRequested
	ForcedChangeSubmitted
	MfaPending
	MfaActivated
	OtpSubmitted
	ResetCodeRequested
	ResetCodeSent
	ResetChallengeRequested
	ResetSubmitted
	Authorized
	Failed
)

var phaseNames = [...]string{
	Idle:                           "Idle",
	ChallengeRequested:             "ChallengeRequested",
	ProofSubmitted:                 "ProofSubmitted",
	ForcedChangeRequired:           "ForcedChangeRequired",
	ForcedChangeChallengeRequested: "ForcedChangeChallengeRequested",
	ForcedChangeSubmitted:          "ForcedChangeSubmitted",
	MfaPending:                     "MfaPending",
	MfaActivated:                   "MfaActivated",
	OtpSubmitted:                   "OtpSubmitted",
	ResetCodeRequested:             "ResetCodeRequested",
	ResetCodeSent:                  "ResetCodeSent",
	ResetChallengeRequested:        "ResetChallengeRequested",
	ResetSubmitted:                 "ResetSubmitted",
	Authorized:                     "Authorized",
	Failed:                         "Failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// InFlight reports whether the phase waits for a network reply.
func (p Phase) InFlight() bool {
	switch p {
	case ChallengeRequested, ProofSubmitted,
		ForcedChangeChallengeRequested, ForcedChangeSubmitted,
		OtpSubmitted,
		ResetCodeRequested, ResetChallengeRequested, ResetSubmitted:
		return true
	}
	return false
}

// Terminal reports whether the attempt is over.
func (p Phase) Terminal() bool {
	return p == Authorized || p == Failed
}

// State is the machine state. Email is the identity the exchange runs for.
type State struct {
	Phase Phase
	Email string
	// mfaFrom is the MFA phase an OTP submission returns to on a bad code.
	mfaFrom Phase
}
