package database

import (
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
)

// Set of errors shared by storage and index implementations.
var (
	ErrNotFound    = errors.New("not found")
	ErrCorrupted   = errors.New("storage corrupted")
	ErrEndOfChain  = errors.New("end of chain")
	ErrIndexBehind = errors.New("index behind storage")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. Blocks
// are append only and addressed by height, genesis being height 0.
type Storage interface {
	Write(block Block) error
	GetBlock(height uint64) (Block, error)
	Latest() (Block, error)
	Count() uint64
	ForEach() Iterator
	Reset() error
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. Blocks are returned
// newest first.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// BlockLocation is where a block lives in the chain.
type BlockLocation struct {
	Height uint64 `json:"height"`
	Offset uint64 `json:"offset"`
}

// TxLocation is where a transaction lives in the chain.
type TxLocation struct {
	Height   uint64 `json:"height"`
	Position uint32 `json:"position"`
}

// Index interface represents the behavior required to be implemented by any
// package providing fast lookups into the chain. The index is derived data
// and can be rebuilt from storage at any time.
type Index interface {
	IndexBlock(loc BlockLocation, block Block) error
	Block(hash hashes.Hash) (BlockLocation, error)
	Transaction(txID hashes.Hash) (TxLocation, error)
	IsSpent(op OutPoint) (bool, error)
	Count() (uint64, error)
	Reset() error
	Close() error
}

// IndexEntries breaks a block into the facts an index records: the location
// of every transaction and every out point spent.
func IndexEntries(block Block) (map[hashes.Hash]uint32, []OutPoint, error) {
	if block.Type != BlockTypeTransactions {
		return nil, nil, nil
	}

	txs, err := block.Transactions()
	if err != nil {
		return nil, nil, err
	}

	positions := make(map[hashes.Hash]uint32, len(txs))
	var spent []OutPoint

	for i, tx := range txs {
		positions[tx.ID()] = uint32(i)

		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.Inputs {
			spent = append(spent, in.OutPoint())
		}
	}

	return positions, spent, nil
}
