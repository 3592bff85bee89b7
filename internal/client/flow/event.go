package flow

// EventKind identifies an input to the machine.
type EventKind int

const (
	// User-initiated.
	EvLogin EventKind = iota
	EvSubmitOTP
	EvResendOTP
	EvForceChange
	EvRequestReset
	EvSubmitReset
	EvLogout

	// Results of effects.
	EvChallengeReceived
	EvVerdict
	EvAccepted
	EvFailed
)

var eventNames = [...]string{
	EvLogin:             "Login",
	EvSubmitOTP:         "SubmitOTP",
	EvResendOTP:         "ResendOTP",
	EvForceChange:       "ForceChange",
	EvRequestReset:      "RequestReset",
	EvSubmitReset:       "SubmitReset",
	EvLogout:            "Logout",
	EvChallengeReceived: "ChallengeReceived",
	EvVerdict:           "Verdict",
	EvAccepted:          "Accepted",
	EvFailed:            "Failed",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "Unknown"
	}
	return eventNames[k]
}

// Grant is the authorization part of a server verdict.
type Grant struct {
	Role         string
	AccessToken  string
	RefreshToken string
}

// Verdict is the server's answer to a proof or an OTP check.
type Verdict struct {
	UserStatus string
	MfaStatus  string
	Grant      Grant
}

// Event is one input. Only the fields of its kind are read.
type Event struct {
	Kind    EventKind
	Email   string
	Verdict Verdict
	Err     error
}

func Login(email string) Event        { return Event{Kind: EvLogin, Email: email} }
func RequestReset(email string) Event { return Event{Kind: EvRequestReset, Email: email} }
func Simple(kind EventKind) Event     { return Event{Kind: kind} }
func Verdicted(v Verdict) Event       { return Event{Kind: EvVerdict, Verdict: v} }
func Failure(err error) Event         { return Event{Kind: EvFailed, Err: err} }
