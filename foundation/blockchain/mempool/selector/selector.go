// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO     = "fifo"
	StrategySmallest = "smallest"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:     fifoSelect,
	StrategySmallest: smallestSelect,
}

// Entry is a pooled transaction with the sequence it arrived in.
type Entry struct {
	Seq uint64
	Tx  database.Transaction
}

// Func defines a function that takes the pooled transactions and selects
// howMany of them in an order based on the functions strategy. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(entries []Entry, howMany int) []database.Transaction

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// fifoSelect returns the transactions in the order they arrived.
var fifoSelect = func(entries []Entry, howMany int) []database.Transaction {
	sort.Sort(bySeq(entries))
	return take(entries, howMany)
}

// smallestSelect returns the smallest transactions first so more of them
// fit a block. Ties keep arrival order.
var smallestSelect = func(entries []Entry, howMany int) []database.Transaction {
	sort.Sort(bySeq(entries))
	sort.Stable(bySize(entries))
	return take(entries, howMany)
}

func take(entries []Entry, howMany int) []database.Transaction {
	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	txs := make([]database.Transaction, howMany)
	for i := range txs {
		txs[i] = entries[i].Tx
	}

	return txs
}

// =============================================================================

// bySeq provides sorting support by the arrival sequence.
type bySeq []Entry

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by sequence in ascending order to keep the
// transactions in the order they arrived.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of the sequence value.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// =============================================================================

// bySize provides sorting support by the serialized size.
type bySize []Entry

// Len returns the number of transactions in the list.
func (bs bySize) Len() int {
	return len(bs)
}

// Less helps to sort the list by size in ascending order.
func (bs bySize) Less(i, j int) bool {
	return len(bs[i].Tx.Serialize()) < len(bs[j].Tx.Serialize())
}

// Swap moves transactions in the order of the size value.
func (bs bySize) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}
