package flow

import "github.com/dmitrijs2005/srpgate/internal/client/autherr"

// EffectKind is the action the runner must perform.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectFetchChallenge
	EffectSubmitProof
	EffectSendOTP
	EffectCheckOTP
	EffectSubmitForceChange
	EffectRequestReset
	EffectSubmitReset
	EffectStoreTokens
	EffectClearTokens
)

var effectNames = [...]string{
	EffectNone:              "None",
	EffectFetchChallenge:    "FetchChallenge",
	EffectSubmitProof:       "SubmitProof",
	EffectSendOTP:           "SendOTP",
	EffectCheckOTP:          "CheckOTP",
	EffectSubmitForceChange: "SubmitForceChange",
	EffectRequestReset:      "RequestReset",
	EffectSubmitReset:       "SubmitReset",
	EffectStoreTokens:       "StoreTokens",
	EffectClearTokens:       "ClearTokens",
}

func (k EffectKind) String() string {
	if k < 0 || int(k) >= len(effectNames) {
		return "Unknown"
	}
	return effectNames[k]
}

// OutcomeKind is what the caller of the auth service is told.
type OutcomeKind int

const (
	// OutcomePending means the exchange continues.
	OutcomePending OutcomeKind = iota
	OutcomeForcedChangeRequired
	OutcomeMfaRequired
	OutcomeAuthorized
	OutcomeRejected
	OutcomeResetCodeSent
	OutcomeResetCompleted
	OutcomeLoggedOut
)

var outcomeNames = [...]string{
	OutcomePending:              "Pending",
	OutcomeForcedChangeRequired: "ForcedChangeRequired",
	OutcomeMfaRequired:          "MfaRequired",
	OutcomeAuthorized:           "Authorized",
	OutcomeRejected:             "Rejected",
	OutcomeResetCodeSent:        "ResetCodeSent",
	OutcomeResetCompleted:       "ResetCompleted",
	OutcomeLoggedOut:            "LoggedOut",
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return "Unknown"
	}
	return outcomeNames[k]
}

// Outcome is the result surfaced to the UI.
type Outcome struct {
	Kind     OutcomeKind
	Email    string
	Category autherr.Category
	// Err is the classified failure behind a Rejected outcome.
	Err *autherr.Error
}

// Effect is one action plus the outcome to report once it is done.
type Effect struct {
	Kind    EffectKind
	Grant   Grant
	Outcome Outcome
}
