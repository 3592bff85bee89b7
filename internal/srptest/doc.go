// Package srptest is an in-memory reference backend for the auth client. It
// implements the server half of SRP-6a, TOTP checks and token issuance, and
// serves them over HTTP (Handler) and gRPC (RegisterGRPC, ServeBufconn).
//
// It exists for tests and local demos. Nothing is persisted.
package srptest
