package srp

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
)

// Verifier is what the server stores instead of the password.
type Verifier struct {
	Salt  []byte
	Value *big.Int
}

// SaltHex returns the salt in wire form.
func (v Verifier) SaltHex() string { return hex.EncodeToString(v.Salt) }

// ValueHex returns the verifier in wire form.
func (v Verifier) ValueHex() string { return bigx.Hex(v.Value) }

// GenerateVerifier computes v = g^x mod N for a new or changed password.
func (e *Engine) GenerateVerifier(salt []byte, identity string, password []byte) (Verifier, error) {
	if len(salt) == 0 {
		return Verifier{}, fmt.Errorf("%w: empty salt", ErrFormat)
	}
	x, err := e.privateKey(salt, identity, password)
	if err != nil {
		return Verifier{}, err
	}
	defer bigx.Wipe(x)

	v, err := bigx.ModExp(e.group.G, x, e.group.N)
	if err != nil {
		return Verifier{}, err
	}
	return Verifier{Salt: append([]byte(nil), salt...), Value: v}, nil
}

// NewSalt returns DefaultSaltLength random bytes.
func (e *Engine) NewSalt() ([]byte, error) {
	salt := make([]byte, DefaultSaltLength)
	if _, err := io.ReadFull(e.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
