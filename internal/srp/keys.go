package srp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
)

// EphemeralKeyPair holds the client's per-attempt secret a and public value
// A = g^a mod N. The secret never leaves the package.
type EphemeralKeyPair struct {
	a    *big.Int
	pub  *big.Int
	used atomic.Bool
}

// Public returns a copy of A.
func (kp *EphemeralKeyPair) Public() *big.Int { return new(big.Int).Set(kp.pub) }

// PublicHex returns A in wire form.
func (kp *EphemeralKeyPair) PublicHex() string { return bigx.Hex(kp.pub) }

// Destroy wipes the private scalar. The pair is unusable afterwards.
func (kp *EphemeralKeyPair) Destroy() {
	kp.used.Store(true)
	bigx.Wipe(kp.a)
}

func (kp *EphemeralKeyPair) consume() error {
	if !kp.used.CompareAndSwap(false, true) {
		return ErrKeyPairReused
	}
	return nil
}

// DeriveEphemeralKeyPair draws a uniformly from [1, N-1] and computes A. A
// draw whose A is 0 mod N is discarded and redrawn.
func (e *Engine) DeriveEphemeralKeyPair() (*EphemeralKeyPair, error) {
	limit := new(big.Int).Sub(e.group.N, big.NewInt(1))

	for range maxKeyAttempts {
		a, err := rand.Int(e.random, limit)
		if err != nil {
			return nil, fmt.Errorf("draw private scalar: %w", err)
		}
		a.Add(a, big.NewInt(1))

		kp, err := e.keyPairFromScalar(a)
		if err == nil {
			return kp, nil
		}
		bigx.Wipe(a)
	}
	return nil, ErrInvalidClientValue
}

func (e *Engine) keyPairFromScalar(a *big.Int) (*EphemeralKeyPair, error) {
	pub, err := bigx.ModExp(e.group.G, a, e.group.N)
	if err != nil {
		return nil, err
	}
	if bigx.IsZeroMod(pub, e.group.N) {
		return nil, ErrInvalidClientValue
	}
	return &EphemeralKeyPair{a: a, pub: pub}, nil
}
