// Package client is the transport layer of the auth client.
//
// The Client interface is the backend contract: challenge, authenticate, the
// MFA and password-change steps, and token refresh. Two implementations are
// provided:
//
//   - HTTPClient posts JSON to the routes named by the Path constants.
//   - GRPCClient invokes the same operations on the srpgate.v1.Auth service,
//     marshalling messages with the JSON codec registered by this package.
//
// Every request carries a fresh X-Request-ID. Failures are returned as
// *autherr.Error values: connectivity problems and 5xx responses are
// transient, server codes become rejections, and bodies that cannot be
// decoded are format errors. Both clients are safe for concurrent use.
package client
