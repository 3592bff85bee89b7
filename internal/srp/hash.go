package srp

import (
	"crypto"
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/bytemare/hash"

	"github.com/dmitrijs2005/srpgate/internal/bigx"
)

// ParseHash maps a configuration name to a supported hash function.
func ParseHash(name string) (crypto.Hash, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "")) {
	case "SHA1":
		return crypto.SHA1, nil
	case "", "SHA256":
		return crypto.SHA256, nil
	case "SHA384":
		return crypto.SHA384, nil
	case "SHA512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: unsupported hash %q", ErrConfiguration, name)
	}
}

// hashFunc returns a constructor for id. SHA-1 is only kept for the RFC 5054
// test vectors and legacy servers; github.com/bytemare/hash does not ship it.
func hashFunc(id crypto.Hash) (bigx.NewHash, error) {
	switch id {
	case crypto.SHA1:
		return func() bigx.Hasher { return sha1.New() }, nil
	case crypto.SHA256, crypto.SHA384, crypto.SHA512:
		return func() bigx.Hasher { return hash.FromCrypto(id).GetHashFunction() }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported hash %v", ErrConfiguration, id)
	}
}
