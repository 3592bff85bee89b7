// Package logging defines the structured-logging interface used across the
// module and its slog-backed implementation.
//
// Identities, passwords and protocol secrets are never passed to a Logger.
// Auth exchanges are correlated through an opaque exchange id instead.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "exchange finished", "exchange_id", id, "outcome", outcome)
type Logger interface {
	// Debug logs protocol progress useful when diagnosing a failed exchange.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
