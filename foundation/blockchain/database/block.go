package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/target"
)

// BlockVersion is the version stamped on new block headers.
const BlockVersion = 1

// BlockPrefixLength is the size of the type tag and data length that
// precede the header in a serialized block.
const BlockPrefixLength = 5

// Set of errors returned when a block fails validation.
var (
	ErrPrevHashMismatch = errors.New("previous block hash mismatch")
	ErrMerkleMismatch   = errors.New("merkle root does not match block data")
	ErrLengthMismatch   = errors.New("declared data length does not match data")
	ErrHashNotSolved    = errors.New("block hash does not satisfy the target")
)

// BlockType identifies the payload carried by a block.
type BlockType uint8

// Set of block types.
const (
	BlockTypeRaw          BlockType = 0
	BlockTypeTransactions BlockType = 1
)

// String implements the Stringer interface.
func (t BlockType) String() string {
	switch t {
	case BlockTypeRaw:
		return "RAW"
	case BlockTypeTransactions:
		return "TRANSACTIONS"
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// MarshalText implements the TextMarshaler interface.
func (t BlockType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// =============================================================================

// Block represents a header and the data it commits to.
type Block struct {
	Type       BlockType   `json:"type"`
	Header     BlockHeader `json:"header"`
	DataLength int32       `json:"data_length"`
	Data       []byte      `json:"data"`
}

// NewRawBlock constructs an unmined block carrying arbitrary data.
func NewRawBlock(prevHash hashes.Hash, bits [target.BitsLength]byte, data []byte) Block {
	return newBlock(BlockTypeRaw, prevHash, bits, hashes.Hash256(data), data)
}

// NewTransactionBlock constructs an unmined block carrying a transaction
// list. The merkle root commits to the transaction ids.
func NewTransactionBlock(prevHash hashes.Hash, bits [target.BitsLength]byte, txs []Transaction) (Block, error) {
	root, err := merkleRoot(txs)
	if err != nil {
		return Block{}, err
	}

	return newBlock(BlockTypeTransactions, prevHash, bits, root, EncodeTransactions(txs)), nil
}

func newBlock(typ BlockType, prevHash hashes.Hash, bits [target.BitsLength]byte, root hashes.Hash, data []byte) Block {
	return Block{
		Type: typ,
		Header: BlockHeader{
			Version:    BlockVersion,
			PrevHash:   prevHash,
			MerkleRoot: root,
			Timestamp:  uint32(time.Now().UTC().Unix()),
			Bits:       bits,
		},
		DataLength: int32(len(data)),
		Data:       data,
	}
}

// Hash returns the hash of the block header.
func (b Block) Hash() hashes.Hash {
	return b.Header.Hash()
}

// Length returns the size of the serialized block.
func (b Block) Length() int {
	return BlockPrefixLength + HeaderLength + len(b.Data)
}

// Serialize returns the binary encoding of the block.
func (b Block) Serialize() []byte {
	buf := make([]byte, 0, b.Length())
	buf = append(buf, byte(b.Type))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(b.DataLength))
	buf = append(buf, b.Header.Serialize()...)
	return append(buf, b.Data...)
}

// DecodeBlock decodes a serialized block.
func DecodeBlock(buf []byte) (Block, error) {
	r := newReader(buf)

	var b Block
	b.Type = BlockType(r.uint8())
	b.DataLength = r.int32()
	b.Header = readHeader(r)

	if r.err == nil && b.DataLength < 0 {
		return Block{}, fmt.Errorf("decode block: negative data length %d", b.DataLength)
	}
	b.Data = append([]byte{}, r.bytes(int(b.DataLength))...)

	if err := r.done(); err != nil {
		return Block{}, fmt.Errorf("decode block: %w", err)
	}

	switch b.Type {
	case BlockTypeRaw, BlockTypeTransactions:
	default:
		return Block{}, fmt.Errorf("decode block: unknown type %d", b.Type)
	}

	return b, nil
}

// Transactions decodes the transaction list the block carries.
func (b Block) Transactions() ([]Transaction, error) {
	if b.Type != BlockTypeTransactions {
		return nil, ErrNotTransactions
	}
	return DecodeTransactions(b.Data)
}

// Commitment recomputes the merkle root from the block data.
func (b Block) Commitment() (hashes.Hash, error) {
	if b.Type != BlockTypeTransactions {
		return hashes.Hash256(b.Data), nil
	}

	txs, err := b.Transactions()
	if err != nil {
		return hashes.Hash{}, err
	}

	return merkleRoot(txs)
}

// MerkleTree builds the tree over the transaction ids the block carries.
func (b Block) MerkleTree() (*merkle.Tree, error) {
	txs, err := b.Transactions()
	if err != nil {
		return nil, err
	}
	return merkle.NewTreeFromValues(txs)
}

// IsValid reports whether the block may follow the block with the
// specified hash. The genesis block is always valid.
func (b Block) IsValid(prevHash hashes.Hash) bool {
	return b.Validate(prevHash) == nil
}

// Validate checks the block against the previous block hash and explains
// the first rule it breaks.
func (b Block) Validate(prevHash hashes.Hash) error {
	if IsGenesis(b) {
		return nil
	}

	if b.Header.PrevHash != prevHash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPrevHashMismatch, b.Header.PrevHash, prevHash)
	}

	if b.DataLength < 0 || int(b.DataLength) != len(b.Data) || b.Length() > math.MaxInt32 {
		return fmt.Errorf("%w: declared %d, got %d", ErrLengthMismatch, b.DataLength, len(b.Data))
	}

	root, err := b.Commitment()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMerkleMismatch, err)
	}
	if root != b.Header.MerkleRoot {
		return fmt.Errorf("%w: got %s, exp %s", ErrMerkleMismatch, root, b.Header.MerkleRoot)
	}

	tgt, err := b.Header.Target()
	if err != nil {
		return err
	}

	hash := b.Hash()
	if !tgt.IsValid(hash) {
		return fmt.Errorf("%w: %s", ErrHashNotSolved, hash)
	}

	return nil
}

// Equal reports whether two blocks serialize identically.
func (b Block) Equal(other Block) bool {
	return bytes.Equal(b.Serialize(), other.Serialize())
}

func merkleRoot(txs []Transaction) (hashes.Hash, error) {
	tree, err := merkle.NewTreeFromValues(txs)
	if err != nil {
		return hashes.Hash{}, err
	}
	return tree.MerkleRoot, nil
}
