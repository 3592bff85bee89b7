// Package cryptox holds the password key-stretching step that may run before
// the SRP private key x is derived. Client and server must be configured with
// the same Hardening, otherwise proofs never verify.
package cryptox

import (
	"fmt"
	"strings"

	"github.com/bytemare/ksf"
	"golang.org/x/crypto/argon2"
)

// KeyLength is the output size of every hardening function.
const KeyLength = 32

// Hardening names a key-stretching function.
type Hardening string

const (
	HardeningNone     Hardening = "none"
	HardeningArgon2id Hardening = "argon2id"
	HardeningScrypt   Hardening = "scrypt"
	HardeningPBKDF2   Hardening = "pbkdf2-sha512"
)

// ParseHardening accepts the names used in configuration files. The empty
// string means HardeningNone.
func ParseHardening(s string) (Hardening, error) {
	switch h := Hardening(strings.ToLower(strings.TrimSpace(s))); h {
	case "", HardeningNone:
		return HardeningNone, nil
	case HardeningArgon2id, HardeningScrypt, HardeningPBKDF2:
		return h, nil
	default:
		return "", fmt.Errorf("unknown password hardening %q", s)
	}
}

// Harden stretches password with salt. HardeningNone returns a copy of the
// password so callers can wipe the result independently of the input.
func (h Hardening) Harden(password, salt []byte) ([]byte, error) {
	switch h {
	case "", HardeningNone:
		return append([]byte(nil), password...), nil
	case HardeningArgon2id:
		return DeriveMasterKey(password, salt), nil
	case HardeningScrypt:
		return ksf.Scrypt.Get().Harden(password, salt, KeyLength), nil
	case HardeningPBKDF2:
		return ksf.PBKDF2Sha512.Get().Harden(password, salt, KeyLength), nil
	default:
		return nil, fmt.Errorf("unknown password hardening %q", string(h))
	}
}

// DeriveMasterKey is argon2id with time=1, memory=64MiB, threads=4.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeyLength)
}
