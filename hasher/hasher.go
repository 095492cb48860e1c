// Package hasher provides the digests used to fingerprint persisted
// components.
package hasher

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
)

// ErrDataIsNil is returned if the passed data is nil.
var ErrDataIsNil = errors.New("data is nil")

// Hasher computes a digest of encoded component data.
// Implementations are safe for concurrent use.
type Hasher interface {
	Name() string
	Hash(data []byte) ([]byte, error)
}

type streamHasher struct {
	name    string
	newHash func() hash.Hash
}

// NewXXHash64 returns the 64-bit xxHash hasher. Digests are big-endian.
func NewXXHash64() Hasher {
	return streamHasher{name: "xxhash64", newHash: func() hash.Hash { return xxhash.New() }}
}

// NewSHA256Hasher returns the SHA-256 hasher.
func NewSHA256Hasher() Hasher {
	return streamHasher{name: "sha256", newHash: sha256.New}
}

// Name implements Hasher interface.
func (h streamHasher) Name() string {
	return h.name
}

// Hash implements Hasher interface.
func (h streamHasher) Hash(data []byte) ([]byte, error) {
	if data == nil {
		return nil, ErrDataIsNil
	}

	digest := h.newHash()

	n, err := digest.Write(data)
	if n < len(data) || err != nil {
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	return digest.Sum(nil), nil
}
