// Package hashes provides the hashing primitives used to identify blocks,
// transactions, and scripts on the ledger.
package hashes

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/ripemd160"
)

// Size is the number of bytes in a Hash.
const Size = 32

// ErrInvalidLength is returned when a byte slice can't be converted into a
// Hash because of its length.
var ErrInvalidLength = errors.New("invalid hash length")

// Hash represents a 32 byte digest produced by Hash256. Index 31 holds the
// most significant byte when a hash is compared against a target.
type Hash [Size]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// FromBytes copies the specified bytes into a Hash.
func FromBytes(b []byte) (Hash, error) {
	if len(b) != Size {
		return Hash{}, fmt.Errorf("%w: got %d, exp %d", ErrInvalidLength, len(b), Size)
	}

	var h Hash
	copy(h[:], b)

	return h, nil
}

// FromHex decodes a 0x prefixed hex string into a Hash.
func FromHex(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, err
	}

	return FromBytes(b)
}

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// IsZero reports whether all the bytes of the hash are zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalText implements the TextMarshaler interface so hashes render as hex
// when marshaled into JSON.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*h = v

	return nil
}

// =============================================================================

// Hash256 calculates SHA-256(SHA-256(b)).
func Hash256(b []byte) Hash {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// SHA256 calculates a single round of SHA-256.
func SHA256(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// RIPEMD160 calculates the RIPEMD-160 digest of b.
func RIPEMD160(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}

// Hash160 calculates RIPEMD-160(SHA-256(b)). This is the digest used to
// commit to public keys and scripts in locking scripts.
func Hash160(b []byte) []byte {
	return RIPEMD160(SHA256(b))
}
