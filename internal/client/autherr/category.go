package autherr

// Category is the user-facing reason for a rejected attempt.
type Category int

const (
	Unexpected Category = iota
	UnknownIdentity
	InvalidCredentials
	TemporarilyBlocked
	PendingApproval
	RateLimited
	UnconfirmedIdentity
	InvalidVerificationCode
)

// Server error codes.
const (
	CodeUserNotFound             = "user_not_found"
	CodeResourceMissing          = "resource_missing"
	CodeDataNotFound             = "data_not_found"
	CodeUnauthorized             = "unauthorized"
	CodeTemporaryBlocked         = "temporary_blocked"
	CodeAccountPending           = "account_pending"
	CodeTooManyAttempts          = "too_many_attempts"
	CodeEmailConfirmationPending = "email_confirmation_pending"
	CodeInvalidConfirmationCode  = "invalid_confirmation_code"
)

var codeCategories = map[string]Category{
	CodeUserNotFound:             UnknownIdentity,
	CodeResourceMissing:          UnknownIdentity,
	CodeDataNotFound:             UnknownIdentity,
	CodeUnauthorized:             InvalidCredentials,
	CodeTemporaryBlocked:         TemporarilyBlocked,
	CodeAccountPending:           PendingApproval,
	CodeTooManyAttempts:          RateLimited,
	CodeEmailConfirmationPending: UnconfirmedIdentity,
	CodeInvalidConfirmationCode:  InvalidVerificationCode,
}

// CategoryFromCode maps a server code to its category. Unknown codes map to
// Unexpected.
func CategoryFromCode(code string) Category {
	if c, ok := codeCategories[code]; ok {
		return c
	}
	return Unexpected
}

var categoryNames = [...]string{
	Unexpected:              "unexpected",
	UnknownIdentity:         "unknown_identity",
	InvalidCredentials:      "invalid_credentials",
	TemporarilyBlocked:      "temporarily_blocked",
	PendingApproval:         "pending_approval",
	RateLimited:             "rate_limited",
	UnconfirmedIdentity:     "unconfirmed_identity",
	InvalidVerificationCode: "invalid_verification_code",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[Unexpected]
	}
	return categoryNames[c]
}

// Public returns the category safe to show to the user.
func (c Category) Public() Category {
	if c == UnconfirmedIdentity {
		return UnknownIdentity
	}
	return c
}

var messages = map[Category]string{
	UnknownIdentity:         "The specified user could not be found.",
	InvalidCredentials:      "Invalid credentials. Please try again.",
	TemporarilyBlocked:      "Your account is temporarily blocked.",
	PendingApproval:         "Your account is currently pending approval.",
	RateLimited:             "You have made too many incorrect attempts. Please try again later.",
	InvalidVerificationCode: "Invalid verification code.",
	Unexpected:              "An unexpected error has appeared. Please try again later.",
}

// Message returns the default user-facing text for the category.
func (c Category) Message() string {
	if m, ok := messages[c.Public()]; ok {
		return m
	}
	return messages[Unexpected]
}
