package database

import (
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/target"
)

// Layout of the serialized header.
const (
	HeaderLength    = 80
	TimestampOffset = 68
	BitsOffset      = 72
	NonceOffset     = 76
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version    int32                   `json:"version"`
	PrevHash   hashes.Hash             `json:"prev_hash"`   // Hash of the previous block in the chain.
	MerkleRoot hashes.Hash             `json:"merkle_root"` // Commitment to the block data.
	Timestamp  uint32                  `json:"timestamp"`   // Seconds since the epoch the block was mined.
	Bits       [target.BitsLength]byte `json:"bits"`        // Compact target the hash must satisfy.
	Nonce      uint32                  `json:"nonce"`       // Value identified to solve the hash solution.
}

// Serialize returns the fixed length little endian encoding of the header.
func (h BlockHeader) Serialize() []byte {
	b := make([]byte, 0, HeaderLength)
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Version))
	b = append(b, h.PrevHash[:]...)
	b = append(b, h.MerkleRoot[:]...)
	b = binary.LittleEndian.AppendUint32(b, h.Timestamp)
	b = append(b, h.Bits[:]...)
	b = binary.LittleEndian.AppendUint32(b, h.Nonce)

	return b
}

// Hash returns the double sha256 of the serialized header.
func (h BlockHeader) Hash() hashes.Hash {
	return hashes.Hash256(h.Serialize())
}

// Target decodes the header bits.
func (h BlockHeader) Target() (target.Target, error) {
	return target.New(h.Bits[:])
}

// DecodeHeader decodes a serialized header.
func DecodeHeader(b []byte) (BlockHeader, error) {
	if len(b) != HeaderLength {
		return BlockHeader{}, fmt.Errorf("%w: header is %d bytes, exp %d", ErrTruncated, len(b), HeaderLength)
	}

	return readHeader(newReader(b)), nil
}

func readHeader(r *reader) BlockHeader {
	var h BlockHeader
	h.Version = r.int32()
	copy(h.PrevHash[:], r.bytes(hashes.Size))
	copy(h.MerkleRoot[:], r.bytes(hashes.Size))
	h.Timestamp = r.uint32()
	copy(h.Bits[:], r.bytes(target.BitsLength))
	h.Nonce = r.uint32()

	return h
}
