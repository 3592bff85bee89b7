package srp

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
)

// Challenge is the server's reply to an authentication request: the account
// salt and the server public value B. It can feed exactly one proof.
type Challenge struct {
	salt []byte
	b    *big.Int
	used atomic.Bool
}

// NewChallenge decodes the wire form of a challenge. Both values are hex; the
// salt must be non-empty.
func NewChallenge(saltHex, bHex string) (*Challenge, error) {
	salt, err := decodeHex(saltHex)
	if err != nil {
		return nil, fmt.Errorf("challenge salt: %w", err)
	}
	b, err := bigx.ParseHex(bHex)
	if err != nil {
		return nil, fmt.Errorf("challenge server value: %w", err)
	}
	return &Challenge{salt: salt, b: b}, nil
}

// Salt returns a copy of the salt.
func (c *Challenge) Salt() []byte { return append([]byte(nil), c.salt...) }

// SaltHex returns the salt in wire form.
func (c *Challenge) SaltHex() string { return hex.EncodeToString(c.salt) }

// ServerPublic returns a copy of B.
func (c *Challenge) ServerPublic() *big.Int { return new(big.Int).Set(c.b) }

// Used reports whether the challenge has already fed a proof.
func (c *Challenge) Used() bool { return c.used.Load() }

func (c *Challenge) consume() error {
	if !c.used.CompareAndSwap(false, true) {
		return ErrChallengeReused
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("%w: empty hex string", ErrFormat)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return b, nil
}
