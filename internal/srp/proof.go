package srp

import (
	"crypto/subtle"
	"encoding/hex"
	"math/big"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
	"github.com/dmitrijs2005/srpgate/internal/common"
)

// Evidence is what the client sends to the server: A and M1.
type Evidence struct {
	A  *big.Int
	M1 []byte
}

// AHex returns A in wire form.
func (ev Evidence) AHex() string { return bigx.Hex(ev.A) }

// M1Hex returns M1 in wire form.
func (ev Evidence) M1Hex() string { return hex.EncodeToString(ev.M1) }

// Proof is the result of one exchange. It keeps the session key only to check
// the server's evidence; Destroy wipes it.
type Proof struct {
	engine   *Engine
	evidence Evidence
	key      []byte
}

// Evidence returns A and M1.
func (p *Proof) Evidence() Evidence {
	return Evidence{A: new(big.Int).Set(p.evidence.A), M1: append([]byte(nil), p.evidence.M1...)}
}

// VerifyServerEvidence checks M2 = H(PAD(A) | M1 | K) in constant time.
func (p *Proof) VerifyServerEvidence(m2 []byte) error {
	if p.key == nil {
		return ErrServerProof
	}
	want, err := p.engine.ServerEvidence(p.evidence.A, p.evidence.M1, p.key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(want, m2) != 1 {
		return ErrServerProof
	}
	return nil
}

// VerifyServerEvidenceHex is VerifyServerEvidence for the wire form of M2.
func (p *Proof) VerifyServerEvidenceHex(m2Hex string) error {
	m2, err := decodeHex(m2Hex)
	if err != nil {
		return err
	}
	return p.VerifyServerEvidence(m2)
}

// Destroy wipes the session key.
func (p *Proof) Destroy() {
	common.WipeByteArray(p.key)
	p.key = nil
}

// ComputeSharedProof runs the client half of SRP-6a against ch using kp.
// Both ch and kp are consumed, whatever the result. The private scalar, x and
// the premaster secret are wiped before returning.
func (e *Engine) ComputeSharedProof(identity string, password []byte, ch *Challenge, kp *EphemeralKeyPair) (*Proof, error) {
	if err := ch.consume(); err != nil {
		return nil, err
	}
	if err := kp.consume(); err != nil {
		return nil, err
	}
	defer bigx.Wipe(kp.a)

	n := e.group.N
	if bigx.IsZeroMod(ch.b, n) {
		return nil, ErrInvalidServerValue
	}

	u, err := e.Scrambler(kp.pub, ch.b)
	if err != nil {
		return nil, err
	}

	x, err := e.privateKey(ch.salt, identity, password)
	if err != nil {
		return nil, err
	}
	defer bigx.Wipe(x)

	S, err := e.clientPremaster(ch.b, kp.a, u, x)
	if err != nil {
		return nil, err
	}
	defer bigx.Wipe(S)

	K, err := e.SessionKey(S)
	if err != nil {
		return nil, err
	}

	m1, err := e.ClientEvidence(identity, ch.salt, kp.pub, ch.b, K)
	if err != nil {
		common.WipeByteArray(K)
		return nil, err
	}

	return &Proof{
		engine:   e,
		evidence: Evidence{A: new(big.Int).Set(kp.pub), M1: m1},
		key:      K,
	}, nil
}

// clientPremaster computes S = (B - k*g^x)^(a + u*x) mod N.
func (e *Engine) clientPremaster(B, a, u, x *big.Int) (*big.Int, error) {
	n := e.group.N

	gx, err := bigx.ModExp(e.group.G, x, n)
	if err != nil {
		return nil, err
	}
	defer bigx.Wipe(gx)

	base := bigx.ModSub(B, bigx.ModMul(e.k, gx, n), n)
	defer bigx.Wipe(base)

	exp := bigx.Add(a, bigx.Mul(u, x))
	defer bigx.Wipe(exp)

	return bigx.ModExp(base, exp, n)
}
