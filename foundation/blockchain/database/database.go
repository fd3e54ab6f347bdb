// Package database handles all the lower level support for maintaining the
// blockchain in storage and the index used to look blocks and transactions
// up by hash.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
)

// DatabaseIterator walks the chain from the newest block to genesis.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next older block.
func (di *DatabaseIterator) Next() (Block, error) {
	return di.iterator.Next()
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages the chain of blocks and the index derived from it. A
// single writer is assumed, reads may run concurrently.
type Database struct {
	mu sync.RWMutex

	storage Storage
	index   Index

	latestBlock Block
	nextOffset  uint64
	stale       bool

	evHandler func(v string, args ...any)
}

// New constructs a database over the storage and index. An empty storage
// gets the genesis block and an index that lags storage is caught up.
func New(storage Storage, index Index, evHandler func(v string, args ...any)) (*Database, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	db := Database{
		storage:   storage,
		index:     index,
		evHandler: ev,
	}

	if err := db.repair(); err != nil {
		return nil, err
	}

	return &db, nil
}

// repair writes the genesis block into an empty storage and catches the
// index up with storage. It clears the stale mark once both agree.
func (db *Database) repair() error {
	if db.storage.Count() == 0 {
		db.evHandler("database: repair: writing genesis block")

		if err := db.storage.Write(Genesis()); err != nil {
			return fmt.Errorf("write genesis: %w", err)
		}
	}

	if err := db.reindex(); err != nil {
		return err
	}

	db.stale = false

	return nil
}

// reindex loads the latest block and indexes any blocks the index is
// missing. An index ahead of storage is rebuilt from scratch.
func (db *Database) reindex() error {
	count := db.storage.Count()

	indexed, err := db.index.Count()
	if err != nil {
		return fmt.Errorf("index count: %w", err)
	}

	if indexed > count {
		db.evHandler("database: reindex: index ahead of storage: indexed[%d] stored[%d]: rebuilding", indexed, count)

		if err := db.index.Reset(); err != nil {
			return fmt.Errorf("index reset: %w", err)
		}
		indexed = 0
	}

	if indexed < count {
		db.evHandler("database: reindex: indexing blocks[%d..%d]", indexed, count-1)
	}

	var offset uint64
	for height := uint64(0); height < count; height++ {
		block, err := db.storage.GetBlock(height)
		if err != nil {
			return fmt.Errorf("read block %d: %w", height, err)
		}

		if height >= indexed {
			if err := db.index.IndexBlock(BlockLocation{Height: height, Offset: offset}, block); err != nil {
				return fmt.Errorf("index block %d: %w", height, err)
			}
		}

		offset += uint64(block.Length())
		db.latestBlock = block
	}

	db.nextOffset = offset

	return nil
}

// Close closes the storage and index.
func (db *Database) Close() error {
	return errors.Join(db.storage.Close(), db.index.Close())
}

// Reset re-initializes the database back to just the genesis block. A
// failure part way leaves the database marked stale so the next write
// repairs it first.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.stale = true

	if err := db.storage.Reset(); err != nil {
		return fmt.Errorf("storage reset: %w", err)
	}

	// An index that fails to reset is rebuilt by repair once it is found
	// ahead of storage.
	if err := db.index.Reset(); err != nil {
		db.evHandler("database: Reset: index reset: ERROR: %s", err)
	}

	if err := db.repair(); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexBehind, err)
	}

	return nil
}

// Write appends a block that links to the latest block and indexes it. Once
// storage accepts the block it is the latest block even when indexing fails.
// That failure is reported as ErrIndexBehind and the index is caught up
// before the next block is accepted.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.stale {
		db.evHandler("database: Write: repairing before write")

		if err := db.repair(); err != nil {
			return fmt.Errorf("%w: %w", ErrIndexBehind, err)
		}
	}

	if err := block.Validate(db.latestBlock.Hash()); err != nil {
		return err
	}

	if err := db.storage.Write(block); err != nil {
		return err
	}

	loc := BlockLocation{
		Height: db.storage.Count() - 1,
		Offset: db.nextOffset,
	}

	db.latestBlock = block
	db.nextOffset += uint64(block.Length())

	if err := db.index.IndexBlock(loc, block); err != nil {
		db.stale = true
		return fmt.Errorf("index block %d: %w: %w", loc.Height, ErrIndexBehind, err)
	}

	db.evHandler("database: Write: blk[%d]: hash[%s]", loc.Height, block.Hash())

	return nil
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Height returns the height of the latest block.
func (db *Database) Height() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := db.storage.Count()
	if count == 0 {
		return 0
	}

	return count - 1
}

// GetBlock returns the block at the specified height.
func (db *Database) GetBlock(height uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.storage.GetBlock(height)
}

// GetBlockByHash looks the block up through the index.
func (db *Database) GetBlockByHash(hash hashes.Hash) (Block, uint64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	loc, err := db.index.Block(hash)
	if err != nil {
		return Block{}, 0, err
	}

	block, err := db.storage.GetBlock(loc.Height)
	if err != nil {
		return Block{}, 0, err
	}

	return block, loc.Height, nil
}

// LookupTransaction finds a committed transaction and the height of the
// block that carries it.
func (db *Database) LookupTransaction(txID hashes.Hash) (Transaction, uint64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	loc, err := db.index.Transaction(txID)
	if err != nil {
		return Transaction{}, 0, err
	}

	block, err := db.storage.GetBlock(loc.Height)
	if err != nil {
		return Transaction{}, 0, err
	}

	txs, err := block.Transactions()
	if err != nil {
		return Transaction{}, 0, err
	}

	if int(loc.Position) >= len(txs) || txs[loc.Position].ID() != txID {
		return Transaction{}, 0, fmt.Errorf("%w: transaction %s not at %d:%d", ErrCorrupted, txID, loc.Height, loc.Position)
	}

	return txs[loc.Position], loc.Height, nil
}

// IsSpent reports whether a committed transaction spends the out point.
func (db *Database) IsSpent(op OutPoint) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.index.IsSpent(op)
}

// ForEach returns an iterator to walk through all the blocks starting
// with the latest block.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// VerifyChain walks the chain newest first checking each block against the
// hash of its predecessor. It never modifies the chain.
func (db *Database) VerifyChain() bool {
	return db.VerifyChainErr() == nil
}

// VerifyChainErr is VerifyChain reporting the first failure found.
func (db *Database) VerifyChainErr() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	iter := db.storage.ForEach()

	newer, err := iter.Next()
	if iter.Done() {
		return fmt.Errorf("empty chain: %w", err)
	}
	if err != nil {
		return err
	}

	height := db.storage.Count() - 1
	for {
		older, err := iter.Next()
		if iter.Done() {
			break
		}
		if err != nil {
			return err
		}

		if err := newer.Validate(older.Hash()); err != nil {
			return fmt.Errorf("block %d: %w", height, err)
		}

		newer = older
		height--
	}

	if !IsGenesis(newer) {
		return fmt.Errorf("block 0: not the genesis block")
	}

	return nil
}
