// Package cli provides the interactive srpgate command-line client.
//
// It wires configuration, the SRP engine, the chosen transport and the auth
// service into a small REPL. Typical flow: prompt for credentials, then follow
// whatever the server asks for next (an OTP, a password change) until the
// session is authorized.
//
// Commands:
//   - login, logout
//   - otp, resend: the MFA step
//   - change: forced password change
//   - reset: out-of-band password reset
//   - refresh, status
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
