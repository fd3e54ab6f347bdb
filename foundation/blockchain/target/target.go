// Package target implements the proof of work difficulty target. A target is
// a 32 byte value with a 4 byte compact encoding called bits.
//
// The bits are laid out as [exponent, c1, c2, c3]. The exponent is the number
// of significant bytes in the value and c1..c3 are copied into the value
// starting at offset exponent-3. All other bytes are zero. Index 31 of the
// value is the most significant byte.
package target

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BitsLength is the length of the compact encoding.
const BitsLength = 4

// Bounds on the exponent held in bits[0].
const (
	MinExponent = 3
	MaxExponent = 32
)

// ErrMalformedTarget is returned when bits can't be decoded into a target.
var ErrMalformedTarget = errors.New("malformed target")

// Target represents the difficulty threshold a header hash must not exceed.
type Target struct {
	value [hashes.Size]byte
}

// IsValidTarget performs the structural check of the compact encoding.
func IsValidTarget(bits []byte) bool {
	if len(bits) != BitsLength {
		return false
	}

	return bits[0] >= MinExponent && bits[0] <= MaxExponent
}

// New constructs a target from its compact encoding.
func New(bits []byte) (Target, error) {
	if !IsValidTarget(bits) {
		return Target{}, fmt.Errorf("%w: %s", ErrMalformedTarget, hexutil.Encode(bits))
	}

	var t Target
	offset := int(bits[0]) - 3
	copy(t.value[offset:offset+3], bits[1:])

	return t, nil
}

// FromValue constructs a target from the full 32 byte value.
func FromValue(value [hashes.Size]byte) Target {
	return Target{value: value}
}

// Value returns a copy of the 32 byte value.
func (t Target) Value() [hashes.Size]byte {
	return t.value
}

// Bits returns the compact encoding of the target. Encodings whose c3 byte
// is zero (with an exponent above 3) are not canonical and will come back with
// a smaller exponent.
func (t Target) Bits() [BitsLength]byte {
	exponent := MinExponent
	for i := hashes.Size - 1; i >= 0; i-- {
		if t.value[i] != 0 {
			exponent = max(i+1, MinExponent)
			break
		}
	}

	var bits [BitsLength]byte
	bits[0] = byte(exponent)
	copy(bits[1:], t.value[exponent-3:exponent])

	return bits
}

// IsValid reports whether the hash satisfies the target. Bytes are compared
// from most significant to least significant, index 0 is not considered. A
// hash equal to the target is valid.
func (t Target) IsValid(hash hashes.Hash) bool {
	for i := hashes.Size - 1; i > 0; i-- {
		switch {
		case hash[i] < t.value[i]:
			return true
		case hash[i] > t.value[i]:
			return false
		}
	}

	return true
}

// String returns the hex encoding of the compact bits.
func (t Target) String() string {
	bits := t.Bits()
	return hexutil.Encode(bits[:])
}
