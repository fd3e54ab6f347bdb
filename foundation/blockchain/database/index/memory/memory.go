// Package memory implements the chain index with maps.
package memory

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
)

// Memory represents the index implementation held in maps. This implements
// the database.Index interface.
type Memory struct {
	mu     sync.RWMutex
	blocks map[hashes.Hash]database.BlockLocation
	txs    map[hashes.Hash]database.TxLocation
	spent  map[database.OutPoint]struct{}
	count  uint64
}

// New constructs an empty index.
func New() *Memory {
	return &Memory{
		blocks: make(map[hashes.Hash]database.BlockLocation),
		txs:    make(map[hashes.Hash]database.TxLocation),
		spent:  make(map[database.OutPoint]struct{}),
	}
}

// Close in this implementation has nothing to do.
func (m *Memory) Close() error {
	return nil
}

// IndexBlock records the block, its transactions and the out points it
// spends.
func (m *Memory) IndexBlock(loc database.BlockLocation, block database.Block) error {
	positions, spent, err := database.IndexEntries(block)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[block.Hash()] = loc
	for txID, pos := range positions {
		m.txs[txID] = database.TxLocation{Height: loc.Height, Position: pos}
	}
	for _, op := range spent {
		m.spent[op] = struct{}{}
	}
	m.count = loc.Height + 1

	return nil
}

// Block returns the location of the block with the specified hash.
func (m *Memory) Block(hash hashes.Hash) (database.BlockLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, exists := m.blocks[hash]
	if !exists {
		return database.BlockLocation{}, database.ErrNotFound
	}
	return loc, nil
}

// Transaction returns the location of the transaction with the specified id.
func (m *Memory) Transaction(txID hashes.Hash) (database.TxLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, exists := m.txs[txID]
	if !exists {
		return database.TxLocation{}, database.ErrNotFound
	}
	return loc, nil
}

// IsSpent reports whether an indexed transaction spends the out point.
func (m *Memory) IsSpent(op database.OutPoint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.spent[op]
	return exists, nil
}

// Count returns the number of blocks indexed.
func (m *Memory) Count() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.count, nil
}

// Reset removes every entry from the index.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[hashes.Hash]database.BlockLocation)
	m.txs = make(map[hashes.Hash]database.TxLocation)
	m.spent = make(map[database.OutPoint]struct{})
	m.count = 0

	return nil
}
