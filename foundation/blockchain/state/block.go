package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/miner"
	"github.com/ardanlabs/ledger/foundation/blockchain/validator"
)

// Set of error variables for block processing.
var (
	ErrNoTransactions  = errors.New("no transactions in mempool")
	ErrWrongDifficulty = errors.New("block bits do not match the chain difficulty")
)

// BlockEventPrefix starts every event describing a newly committed block.
const BlockEventPrefix = "chain: block:"

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 && !s.mineEmptyBlocks {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: assemble block")

	block, err := s.assembleBlock()
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, ok, err := miner.MineBlock(ctx, block, miner.Options{
		Workers:   s.workers,
		EvHandler: s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	if !ok {
		return database.Block{}, ctx.Err()
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// Validate the block and then update the blockchain database.
	if err := s.validateUpdateDatabase(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessBlock takes a block mined elsewhere, validates it and if that
// passes, adds the block to the local blockchain.
func (s *State) ProcessBlock(block database.Block) error {
	s.evHandler("state: ProcessBlock: started: prevBlk[%s]: newBlk[%s]", block.Header.PrevHash, block.Hash())
	defer s.evHandler("state: ProcessBlock: completed: newBlk[%s]", block.Hash())

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessBlock: signal runMiningOperation to terminate")
			done()
		}()
	}

	// Validate the block and then update the blockchain database.
	return s.validateUpdateDatabase(block)
}

// =============================================================================

// assembleBlock picks the best transactions that are still valid against
// the chain and builds the next block around a coinbase paying the miner.
// Transactions that no longer validate are dropped from the mempool.
func (s *State) assembleBlock() (database.Block, error) {
	latest := s.db.LatestBlock()
	height := s.db.Height() + 1
	ctx := validator.Context{Height: height, Now: time.Now()}

	coinbase, err := database.NewCoinbase(height, nil, s.genesis.MiningReward, s.minerLock, s.genesis.CoinbaseMaturity)
	if err != nil {
		return database.Block{}, err
	}

	trans := []database.Transaction{coinbase}
	for _, tx := range s.mempool.PickBest(int(s.genesis.TransPerBlock) - 1) {
		result, err := s.validator.ValidateTransaction(tx, ctx)
		if err != nil {
			return database.Block{}, err
		}

		if result != validator.Success {
			s.evHandler("state: assembleBlock: tx[%s]: dropped: %s", tx.ID(), result)
			s.mempool.Delete(tx.ID())
			continue
		}

		trans = append(trans, tx)
	}

	return database.NewTransactionBlock(latest.Hash(), s.genesis.BitsArray(), trans)
}

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// including adding the block to disk.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if block.Header.Bits != s.genesis.BitsArray() {
		return fmt.Errorf("%w: got %x", ErrWrongDifficulty, block.Header.Bits)
	}

	if err := block.Validate(s.db.LatestBlock().Hash()); err != nil {
		return err
	}

	var trans []database.Transaction
	if block.Type == database.BlockTypeTransactions {
		var err error
		if trans, err = block.Transactions(); err != nil {
			return err
		}

		ctx := validator.Context{Height: s.db.Height() + 1, Now: time.Now()}
		result, err := s.validator.ValidateBlockTransactions(trans, ctx)
		if err != nil {
			return err
		}
		if result != validator.Success {
			return &validator.Rejection{Result: result}
		}
	}

	s.evHandler("state: validateUpdateDatabase: write to disk")

	// Write the new block to the chain on disk. A stored block whose index
	// update failed is still part of the chain.
	if err := s.db.Write(block); err != nil {
		if s.db.LatestBlock().Hash() != block.Hash() {
			return err
		}
		s.evHandler("state: validateUpdateDatabase: WARNING: %s", err)
	}

	s.evHandler("state: validateUpdateDatabase: remove from mempool")

	// Remove the transactions and anything conflicting with them.
	removed := s.mempool.RemoveCommitted(trans)
	s.evHandler("state: validateUpdateDatabase: removed[%d]", removed)

	// Send an event about this new block.
	s.blockEvent(block, trans)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block, trans []database.Transaction) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(BlockEventPrefix+` {"hash":%q,"type":%q,"header":%s,"trans":%s}`, block.Hash(), block.Type, string(blockHeaderJSON), string(blockTransJSON))
}
