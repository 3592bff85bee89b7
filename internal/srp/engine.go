// Package srp implements the client side of the SRP-6a password-authenticated
// key exchange.
//
// An Engine is stateless apart from its immutable parameters and may be shared
// between goroutines. Per-exchange state lives in single-use values: a
// Challenge parsed from the server, an EphemeralKeyPair derived for the
// attempt, and the Proof computed from both. Private values (a, x, S) never
// leave the package and are wiped as soon as the evidence is computed.
package srp

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
	"github.com/dmitrijs2005/srpgate/internal/common"
	"github.com/dmitrijs2005/srpgate/internal/cryptox"
)

// EvidenceMode selects how the client evidence M1 is built.
type EvidenceMode int

const (
	// EvidenceSimple is M1 = H(PAD(A) | PAD(B) | K).
	EvidenceSimple EvidenceMode = iota
	// EvidenceRFC2945 is M1 = H(H(N) xor H(g) | H(I) | s | A | B | K).
	EvidenceRFC2945
)

// ParseEvidenceMode maps a configuration name to an EvidenceMode.
func ParseEvidenceMode(s string) (EvidenceMode, error) {
	switch s {
	case "", "simple":
		return EvidenceSimple, nil
	case "rfc2945", "rfc5054":
		return EvidenceRFC2945, nil
	default:
		return 0, fmt.Errorf("%w: unknown evidence mode %q", ErrConfiguration, s)
	}
}

func (m EvidenceMode) String() string {
	if m == EvidenceRFC2945 {
		return "rfc2945"
	}
	return "simple"
}

// DefaultSaltLength is the salt size NewSalt produces.
const DefaultSaltLength = 32

// maxKeyAttempts bounds the retry loop for degenerate ephemeral keys.
const maxKeyAttempts = 16

// Engine holds the negotiated SRP parameters.
type Engine struct {
	group     *Group
	hashID    crypto.Hash
	newHash   bigx.NewHash
	evidence  EvidenceMode
	hardening cryptox.Hardening
	random    io.Reader
	k         *big.Int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithGroup selects the SRP group. Default: Group2048.
func WithGroup(g *Group) Option {
	return func(e *Engine) error {
		if g == nil {
			return fmt.Errorf("%w: nil group", ErrConfiguration)
		}
		e.group = g
		return nil
	}
}

// WithHash selects the hash function H. Default: SHA-256.
func WithHash(id crypto.Hash) Option {
	return func(e *Engine) error {
		nh, err := hashFunc(id)
		if err != nil {
			return err
		}
		e.hashID = id
		e.newHash = nh
		return nil
	}
}

// WithEvidence selects the M1 construction. Default: EvidenceSimple.
func WithEvidence(m EvidenceMode) Option {
	return func(e *Engine) error {
		e.evidence = m
		return nil
	}
}

// WithHardening stretches the password before x is derived.
func WithHardening(h cryptox.Hardening) Option {
	return func(e *Engine) error {
		e.hardening = h
		return nil
	}
}

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) error {
		if r == nil {
			return fmt.Errorf("%w: nil random source", ErrConfiguration)
		}
		e.random = r
		return nil
	}
}

// New builds an Engine. Without options it uses the 2048-bit group, SHA-256,
// simple evidence and no password hardening.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		group:     Group2048,
		evidence:  EvidenceSimple,
		hardening: cryptox.HardeningNone,
		random:    rand.Reader,
	}
	if err := WithHash(crypto.SHA256)(e); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	gBytes, err := e.group.pad(e.group.G)
	if err != nil {
		return nil, err
	}
	nBytes, err := e.group.pad(e.group.N)
	if err != nil {
		return nil, err
	}
	e.k = bigx.HashToInt(e.newHash, nBytes, gBytes)
	return e, nil
}

// Group returns the engine's group.
func (e *Engine) Group() *Group { return e.group }

// Hash returns the identifier of H.
func (e *Engine) Hash() crypto.Hash { return e.hashID }

// Multiplier returns k = H(N | PAD(g)).
func (e *Engine) Multiplier() *big.Int { return new(big.Int).Set(e.k) }

// Scrambler returns u = H(PAD(A) | PAD(B)) and rejects u == 0.
func (e *Engine) Scrambler(A, B *big.Int) (*big.Int, error) {
	aBytes, err := e.group.pad(A)
	if err != nil {
		return nil, err
	}
	bBytes, err := e.group.pad(B)
	if err != nil {
		return nil, err
	}
	u := bigx.HashToInt(e.newHash, aBytes, bBytes)
	if u.Sign() == 0 {
		return nil, ErrZeroScrambler
	}
	return u, nil
}

// SessionKey returns K = H(PAD(S)).
func (e *Engine) SessionKey(S *big.Int) ([]byte, error) {
	sBytes, err := e.group.pad(S)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(sBytes)
	return bigx.Digest(e.newHash, sBytes), nil
}

// ClientEvidence computes M1 for the configured evidence mode.
func (e *Engine) ClientEvidence(identity string, salt []byte, A, B *big.Int, K []byte) ([]byte, error) {
	aBytes, err := e.group.pad(A)
	if err != nil {
		return nil, err
	}
	bBytes, err := e.group.pad(B)
	if err != nil {
		return nil, err
	}

	if e.evidence == EvidenceSimple {
		return bigx.Digest(e.newHash, aBytes, bBytes, K), nil
	}

	hN := bigx.Digest(e.newHash, e.group.N.Bytes())
	hG := bigx.Digest(e.newHash, e.group.G.Bytes())
	for i := range hN {
		hN[i] ^= hG[i]
	}
	hI := bigx.Digest(e.newHash, []byte(identity))
	return bigx.Digest(e.newHash, hN, hI, salt, A.Bytes(), B.Bytes(), K), nil
}

// ServerEvidence computes M2 = H(PAD(A) | M1 | K).
func (e *Engine) ServerEvidence(A *big.Int, m1, K []byte) ([]byte, error) {
	aBytes, err := e.group.pad(A)
	if err != nil {
		return nil, err
	}
	return bigx.Digest(e.newHash, aBytes, m1, K), nil
}

// privateKey derives x = H(s | H(I | ":" | P')), P' being the hardened
// password.
func (e *Engine) privateKey(salt []byte, identity string, password []byte) (*big.Int, error) {
	hardened, err := e.hardening.Harden(password, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	defer common.WipeByteArray(hardened)

	inner := bigx.Digest(e.newHash, []byte(identity), []byte(":"), hardened)
	defer common.WipeByteArray(inner)

	return bigx.HashToInt(e.newHash, salt, inner), nil
}
