package client

// Account and MFA statuses returned by Authenticate and CheckMFA.
const (
	UserStatusForcePasswordChange = "FORCE_PASSWORD_CHANGE"
	UserStatusActive              = "ACTIVE"

	MfaStatusPending   = "PENDING"
	MfaStatusActivated = "ACTIVATED"
	MfaStatusRejected  = "REJECTED"
)

// Big integers and byte strings are hex encoded.

type EmailRequest struct {
	Email string `json:"email"`
}

type ChallengeResponse struct {
	Salt string `json:"salt"`
	B    string `json:"b"`
}

type AuthenticateRequest struct {
	Email string `json:"email"`
	A     string `json:"a"`
	M1    string `json:"m1"`
}

type AuthResponse struct {
	UserStatus   string `json:"userStatus"`
	MfaStatus    string `json:"mfaStatus"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Role         string `json:"role,omitempty"`
	M2           string `json:"m2,omitempty"`
}

type MFARequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ForceChangeRequest struct {
	Email    string `json:"email"`
	A        string `json:"a"`
	M1       string `json:"m1"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
}

type ResetSubmitRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	ANew     string `json:"aNew"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
	M1New    string `json:"m1New"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Empty is the reply of operations without a result.
type Empty struct{}
