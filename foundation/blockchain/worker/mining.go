package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"golang.org/x/sync/errgroup"
)

// Stats reports the outcome of the mining operations run so far.
type Stats struct {
	Mined     uint64        `json:"mined"`
	Cancelled uint64        `json:"cancelled"`
	Failed    uint64        `json:"failed"`
	LastSolve time.Duration `json:"last_solve"`
}

type stats struct {
	mined     atomic.Uint64
	cancelled atomic.Uint64
	failed    atomic.Uint64
	lastSolve atomic.Int64
}

// Stats returns a snapshot of the mining counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Mined:     w.stats.mined.Load(),
		Cancelled: w.stats.cancelled.Load(),
		Failed:    w.stats.failed.Load(),
		LastSolve: time.Duration(w.stats.lastSolve.Load()),
	}
}

// =============================================================================

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines one block from the best transactions in the
// mempool. A block arriving through ProcessBlock cancels the search, and the
// operation holds until that block is written.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	length := w.state.QueryMempoolLength()
	if length == 0 && !w.state.IsMiningEmptyAllowed() {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// Transactions left behind by a full block or a cancel need another run.
	defer func() {
		if length := w.state.QueryMempoolLength(); length > 0 && !w.isShutdown() {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
			w.SignalStartMining()
		}
	}()

	// Drop a cancel request left over from a block that arrived between
	// operations.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	var wait chan struct{}
	defer func() {
		if wait != nil {
			w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
			<-wait
			w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
		}
	}()

	// Whichever G finishes first cancels the other through ctx.
	g, ctx := errgroup.WithContext(context.Background())
	solved := make(chan struct{})

	g.Go(func() error {
		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			return errCancelled
		case <-solved:
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer close(solved)

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if err != nil {
			return err
		}

		w.stats.mined.Add(1)
		w.stats.lastSolve.Store(int64(duration))
		w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%s]", block.Hash())

		return nil
	})

	err := g.Wait()
	switch {
	case err == nil:
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions in mempool")
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		w.stats.cancelled.Add(1)
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
	default:
		w.stats.failed.Add(1)
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}
}
