// Package config loads runtime configuration for the srpgate CLI.
//
// # Sources and precedence
//
//  1. Built-in defaults, see (*Config).LoadDefaults.
//  2. An optional file named by -c or -config. JSON, TOML and YAML are
//     accepted, chosen by extension. Missing keys keep the default.
//  3. Command-line flags, which override everything else.
//
// # Flags
//
//	-a string   server URL (HTTP) or host:port (gRPC)
//	-t string   transport, http or grpc
//	-r string   required role
//	-l string   log level
//
// # File example (YAML)
//
//	server_url: https://auth.example.com
//	transport: http
//	request_timeout: 12s
//	required_role: ADMIN
//	require_server_proof: true
//	otp_resend_interval: 30s
//	group_bits: 2048
//	hash: sha256
//	evidence: simple
//	hardening: none
//	log_level: info
//	log_format: json
//
// The SRP settings (group_bits, hash, evidence, hardening) must match the
// server exactly or every proof will be rejected.
package config
