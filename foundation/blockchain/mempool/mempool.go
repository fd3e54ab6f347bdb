// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
)

// Set of error variables for pool updates.
var (
	ErrExists   = errors.New("transaction already in the mempool")
	ErrConflict = errors.New("transaction spends an output already spent in the mempool")
)

// Mempool represents a cache of transactions keyed by transaction id with a
// second key on the out points they spend.
type Mempool struct {
	pool     map[hashes.Hash]selector.Entry
	spends   map[database.OutPoint]hashes.Hash
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() *Mempool {
	mp, _ := NewWithStrategy(selector.StrategyFIFO)
	return mp
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[hashes.Hash]selector.Entry),
		spends:   make(map[database.OutPoint]hashes.Hash),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether the transaction is in the pool.
func (mp *Mempool) Contains(txID hashes.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[txID]
	return exists
}

// Insert adds a transaction to the mempool. A transaction spending an out
// point another pooled transaction spends is rejected.
func (mp *Mempool) Insert(tx database.Transaction) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txID := tx.ID()
	if _, exists := mp.pool[txID]; exists {
		return len(mp.pool), fmt.Errorf("%w: %s", ErrExists, txID)
	}

	for _, in := range tx.Inputs {
		if other, exists := mp.spends[in.OutPoint()]; exists {
			return len(mp.pool), fmt.Errorf("%w: %s spent by %s", ErrConflict, in.OutPoint(), other)
		}
	}

	mp.seq++
	mp.pool[txID] = selector.Entry{Seq: mp.seq, Tx: tx}
	for _, in := range tx.Inputs {
		mp.spends[in.OutPoint()] = txID
	}

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(txID hashes.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.delete(txID)
}

// RemoveCommitted drops the transactions of a committed block along with
// every pooled transaction that spends an out point the block spent.
func (mp *Mempool) RemoveCommitted(txs []database.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	before := len(mp.pool)
	for _, tx := range txs {
		mp.delete(tx.ID())

		for _, in := range tx.Inputs {
			if other, exists := mp.spends[in.OutPoint()]; exists {
				mp.delete(other)
			}
		}
	}

	return before - len(mp.pool)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[hashes.Hash]selector.Entry)
	mp.spends = make(map[database.OutPoint]hashes.Hash)
}

// PickBest uses the configured sort strategy to return the next set
// of transactions for the next block. Pass -1 for all of them.
func (mp *Mempool) PickBest(howMany int) []database.Transaction {
	mp.mu.RLock()
	entries := make([]selector.Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}
	mp.mu.RUnlock()

	return mp.selectFn(entries, howMany)
}

// Copy returns every pooled transaction in arrival order.
func (mp *Mempool) Copy() []database.Transaction {
	fifo, _ := selector.Retrieve(selector.StrategyFIFO)

	mp.mu.RLock()
	entries := make([]selector.Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}
	mp.mu.RUnlock()

	return fifo(entries, -1)
}

// =============================================================================

func (mp *Mempool) delete(txID hashes.Hash) {
	entry, exists := mp.pool[txID]
	if !exists {
		return
	}

	for _, in := range entry.Tx.Inputs {
		if mp.spends[in.OutPoint()] == txID {
			delete(mp.spends, in.OutPoint())
		}
	}
	delete(mp.pool, txID)
}
