package services

import "errors"

var (
	// ErrExchangeInProgress is returned when another auth call is running.
	ErrExchangeInProgress = errors.New("an authentication exchange is already in progress")
	// ErrResendThrottled is returned when OTP resends come too fast.
	ErrResendThrottled = errors.New("otp resend throttled, try again later")
	// ErrNotAuthenticated is returned by Refresh without a stored session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingInput is returned for an empty email, password or code.
	ErrMissingInput = errors.New("missing required input")
)
