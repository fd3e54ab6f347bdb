// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks [][]byte
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block and stores it in memory.
func (m *Memory) Write(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = append(m.blocks, block.Serialize())

	return nil
}

// GetBlock returns the block at the specified height.
func (m *Memory) GetBlock(height uint64) (database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if height >= uint64(len(m.blocks)) {
		return database.Block{}, fmt.Errorf("block %d: %w", height, database.ErrNotFound)
	}

	return database.DecodeBlock(m.blocks[height])
}

// Latest returns the most recently written block.
func (m *Memory) Latest() (database.Block, error) {
	m.mu.RLock()
	l := uint64(len(m.blocks))
	m.mu.RUnlock()

	if l == 0 {
		return database.Block{}, database.ErrNotFound
	}

	return m.GetBlock(l - 1)
}

// Count returns the number of blocks stored.
func (m *Memory) Count() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.blocks))
}

// ForEach returns an iterator to walk through all the blocks starting
// with the latest block.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{storage: m, next: int64(m.Count()) - 1}
}

// Reset will clear out the blockchain in memory.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through the blocks in memory. This implements the database Iterator
// interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	next    int64   // Height of the next block to return.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next older block.
func (mi *memoryIterator) Next() (database.Block, error) {
	if mi.eoc || mi.next < 0 {
		mi.eoc = true
		return database.Block{}, database.ErrEndOfChain
	}

	block, err := mi.storage.GetBlock(uint64(mi.next))
	mi.next--

	return block, err
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
