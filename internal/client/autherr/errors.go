package autherr

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpgate/internal/srp"
)

// Kind is the coarse class of a failure.
type Kind int

const (
	KindNetworkTransient Kind = iota
	KindProtocolViolation
	KindFormat
	KindServerRejected
	KindAuthorizationDenied
)

func (k Kind) String() string {
	switch k {
	case KindProtocolViolation:
		return "protocol violation"
	case KindFormat:
		return "format error"
	case KindServerRejected:
		return "server rejected"
	case KindAuthorizationDenied:
		return "authorization denied"
	default:
		return "network transient"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrProtocolViolation   = errors.New("protocol violation")
	ErrFormat              = errors.New("format error")
	ErrServerRejected      = errors.New("server rejected")
	ErrNetworkTransient    = errors.New("network transient")
	ErrAuthorizationDenied = errors.New("authorization denied")
)

var kindSentinels = map[Kind]error{
	KindProtocolViolation:   ErrProtocolViolation,
	KindFormat:              ErrFormat,
	KindServerRejected:      ErrServerRejected,
	KindNetworkTransient:    ErrNetworkTransient,
	KindAuthorizationDenied: ErrAuthorizationDenied,
}

// Error is a classified failure.
type Error struct {
	Kind     Kind
	Category Category
	// Code is the raw server code, if any.
	Code string
	// Op names the failed step, e.g. "challenge".
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindServerRejected || e.Kind == KindAuthorizationDenied {
		msg = fmt.Sprintf("%s (%s)", msg, e.Category)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether the user may simply try again.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetworkTransient || e.Kind == KindServerRejected
}

// Rejected builds a KindServerRejected error from a server code and message.
func Rejected(op, code, message string) *Error {
	var err error
	if message != "" {
		err = errors.New(message)
	}
	return &Error{Kind: KindServerRejected, Category: CategoryFromCode(code), Code: code, Op: op, Err: err}
}

// Transient wraps a connectivity failure.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindNetworkTransient, Category: Unexpected, Op: op, Err: err}
}

// Protocol wraps a protocol violation.
func Protocol(op string, err error) *Error {
	return &Error{Kind: KindProtocolViolation, Category: Unexpected, Op: op, Err: err}
}

// Format wraps an encoding failure.
func Format(op string, err error) *Error {
	return &Error{Kind: KindFormat, Category: Unexpected, Op: op, Err: err}
}

// Denied reports a failed role check. It looks like an unknown user.
func Denied(op string) *Error {
	return &Error{Kind: KindAuthorizationDenied, Category: UnknownIdentity, Op: op}
}

// Classify turns any error into an *Error. Already classified errors are
// returned as-is; unknown errors fall into the transient catch-all.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, srp.ErrProtocolViolation):
		return Protocol(op, err)
	case errors.Is(err, srp.ErrFormat):
		return Format(op, err)
	default:
		return Transient(op, err)
	}
}

// CategoryOf returns the public category of err for display.
func CategoryOf(err error) Category {
	if err == nil {
		return Unexpected
	}
	return Classify("", err).Category.Public()
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	return CategoryOf(err).Message()
}
