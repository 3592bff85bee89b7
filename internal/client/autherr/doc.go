// Package autherr classifies authentication failures.
//
// # Taxonomy
//
// Every failure the auth flow surfaces is an *Error with one of five kinds:
//
//   - KindProtocolViolation: degenerate or replayed SRP values. Fatal to the
//     attempt and never retried automatically.
//   - KindFormat: malformed input encoding. The user must correct the input.
//   - KindServerRejected: the server refused the request with a code that is
//     mapped onto a Category.
//   - KindNetworkTransient: connectivity, timeouts, 5xx. Safe to retry.
//   - KindAuthorizationDenied: the role check failed. It carries the
//     UnknownIdentity category so the UI cannot tell it from a missing user.
//
// # Categories
//
// Server codes map onto a closed set of categories via CategoryFromCode. The
// mapping is total: unknown codes become Unexpected. Category.Public collapses
// UnconfirmedIdentity into UnknownIdentity so messages never disclose that an
// account exists.
//
// Callers match kinds with errors.Is against the Err* sentinels and extract
// the classified value with errors.As or Classify.
package autherr
