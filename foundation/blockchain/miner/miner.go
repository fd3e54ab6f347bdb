// Package miner implements the parallel proof of work search for a nonce
// that makes a block header hash satisfy its target.
package miner

import (
	"context"
	"encoding/binary"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/target"
	"golang.org/x/sync/errgroup"
)

// nonceSpace is the largest nonce a worker will try.
var nonceSpace uint64 = math.MaxUint32

// Options configures a mining run.
type Options struct {
	Workers   int                          // Defaults to the number of CPUs.
	EvHandler func(v string, args ...any) // Receives progress events.
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

func (o Options) ev(v string, args ...any) {
	if o.EvHandler != nil {
		o.EvHandler(v, args...)
	}
}

// Mine searches for a nonce that solves the header. The nonce is reset and the
// timestamp is set to now before the search starts. When the nonce space is
// exhausted the search restarts with a newer timestamp. If the context is
// cancelled first, false is returned with no error.
func Mine(ctx context.Context, header database.BlockHeader, opts Options) (database.BlockHeader, bool, error) {
	tgt, err := header.Target()
	if err != nil {
		return database.BlockHeader{}, false, err
	}

	workers := opts.workers()

	opts.ev("miner: Mine: MINING: started: prevBlk[%s]: workers[%d]", header.PrevHash, workers)
	defer opts.ev("miner: Mine: MINING: completed")

	header.Nonce = 0
	header.Timestamp = uint32(time.Now().UTC().Unix())

	for {
		solved, found := search(ctx, header, tgt, workers)
		if found {
			opts.ev("miner: Mine: MINING: SOLVED: newBlk[%s]: nonce[%d]", solved.Hash(), solved.Nonce)
			return solved, true, nil
		}

		if ctx.Err() != nil {
			opts.ev("miner: Mine: MINING: CANCELLED")
			return database.BlockHeader{}, false, nil
		}

		timestamp := uint32(time.Now().UTC().Unix())
		if timestamp <= header.Timestamp {
			timestamp = header.Timestamp + 1
		}
		header.Timestamp = timestamp

		opts.ev("miner: Mine: MINING: nonce space exhausted: restarting: timestamp[%d]", timestamp)
	}
}

// MineBlock mines the header of the block and returns the solved block.
func MineBlock(ctx context.Context, block database.Block, opts Options) (database.Block, bool, error) {
	header, found, err := Mine(ctx, block.Header, opts)
	if err != nil || !found {
		return database.Block{}, false, err
	}

	block.Header = header
	return block, true, nil
}

// search fans the nonce space out over the workers. Every worker pulls the
// next nonce from one shared counter and hashes its own copy of the header.
func search(ctx context.Context, header database.BlockHeader, tgt target.Target, workers int) (database.BlockHeader, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	template := header.Serialize()

	var counter atomic.Uint64
	var once sync.Once
	var winner []byte

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			buf := make([]byte, len(template))
			copy(buf, template)

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				nonce := counter.Add(1) - 1
				if nonce > nonceSpace {
					return nil
				}

				binary.LittleEndian.PutUint32(buf[database.NonceOffset:], uint32(nonce))
				if !tgt.IsValid(hashes.Hash256(buf)) {
					continue
				}

				once.Do(func() {
					winner = buf
					cancel()
				})
				return nil
			}
		})
	}
	g.Wait()

	if winner == nil {
		return database.BlockHeader{}, false
	}

	solved, err := database.DecodeHeader(winner)
	if err != nil {
		return database.BlockHeader{}, false
	}

	return solved, true
}
