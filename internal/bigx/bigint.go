// Package bigx provides the exact big-integer helpers used by the SRP engine:
// strict hex parsing, fixed-width big-endian encoding, modular arithmetic and
// hashing of byte strings into integers.
//
// All helpers allocate fresh results and never modify their inputs, except
// Wipe, whose only purpose is to zero an integer in place.
package bigx

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// ErrFormat is returned when an integer cannot be decoded or encoded without
// losing information.
var ErrFormat = errors.New("malformed integer encoding")

var zero = big.NewInt(0)

// Hasher is the part of a hash function the helpers need. Both hash.Hash and
// the fixed-size hashers of github.com/bytemare/hash satisfy it.
type Hasher interface {
	io.Writer
	Sum(b []byte) []byte
}

// NewHash constructs a fresh Hasher.
type NewHash func() Hasher

// ParseHex decodes a hexadecimal string into a non-negative integer.
//
// An optional "0x" prefix is accepted, and whitespace between digit groups is
// ignored so that constants copied from RFC text parse as-is. Any other
// non-hex character, or an empty input, yields ErrFormat.
func ParseHex(s string) (*big.Int, error) {
	clean := strings.Join(strings.Fields(s), "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty hex string", ErrFormat)
	}

	for _, r := range clean {
		if !isHexDigit(r) {
			return nil, fmt.Errorf("%w: invalid hex digit %q", ErrFormat, r)
		}
	}

	n, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse %q", ErrFormat, clean)
	}
	return n, nil
}

// MustParseHex is ParseHex for package-level constants. It panics on error.
func MustParseHex(s string) *big.Int {
	n, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// Hex returns the lowercase, unpadded hexadecimal form of x.
func Hex(x *big.Int) string {
	return x.Text(16)
}

// FromBytes interprets b as an unsigned big-endian integer.
func FromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Pad encodes x as big-endian bytes left-padded with zeros to exactly size
// bytes. Negative values and values wider than size yield ErrFormat.
func Pad(x *big.Int, size int) ([]byte, error) {
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrFormat)
	}
	if (x.BitLen()+7)/8 > size {
		return nil, fmt.Errorf("%w: value needs %d bytes, have %d", ErrFormat, (x.BitLen()+7)/8, size)
	}
	return x.FillBytes(make([]byte, size)), nil
}

// PadTo encodes x padded to the byte length of the modulus n.
func PadTo(x, n *big.Int) ([]byte, error) {
	return Pad(x, ByteLen(n))
}

// ByteLen returns the number of bytes needed to hold n.
func ByteLen(n *big.Int) int {
	return (n.BitLen() + 7) / 8
}

// Add returns a + b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Mul returns a * b.
func Mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

// Mod returns x mod n in the range [0, n).
func Mod(x, n *big.Int) *big.Int {
	return new(big.Int).Mod(x, n)
}

// ModMul returns a*b mod n.
func ModMul(a, b, n *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, n)
}

// ModSub returns (a - b) mod n, always in [0, n).
func ModSub(a, b, n *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, n)
}

// ModExp returns base^exp mod n. The exponent may be of any size; a negative
// exponent is rejected because it has no meaning for SRP.
func ModExp(base, exp, n *big.Int) (*big.Int, error) {
	if exp.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative exponent", ErrFormat)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive modulus", ErrFormat)
	}
	return new(big.Int).Exp(base, exp, n), nil
}

// IsZeroMod reports whether x ≡ 0 (mod n).
func IsZeroMod(x, n *big.Int) bool {
	return Mod(x, n).Cmp(zero) == 0
}

// HashToInt feeds every part, in order, to a fresh hash from newHash and
// returns the digest as a non-negative integer.
func HashToInt(newHash NewHash, parts ...[]byte) *big.Int {
	return FromBytes(Digest(newHash, parts...))
}

// Digest feeds every part, in order, to a fresh hash and returns the sum.
func Digest(newHash NewHash, parts ...[]byte) []byte {
	h := newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Wipe zeroes the limbs backing x and resets it to 0. It is a best-effort
// scrub of secrets held in big integers; nil is ignored.
func Wipe(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
