// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/validator"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerLock       script.Script // Locking script the mining rewards pay to.
	Genesis         genesis.Genesis
	Storage         database.Storage
	Index           database.Index
	SelectStrategy  string
	Workers         int
	MineEmptyBlocks bool
	Verifier        signature.Verifier
	EvHandler       EventHandler
}

// State manages the blockchain database.
type State struct {
	minerLock       script.Script
	workers         int
	mineEmptyBlocks bool
	evHandler       EventHandler
	mu              sync.Mutex

	genesis   genesis.Genesis
	mempool   *mempool.Mempool
	db        *database.Database
	validator *validator.Validator

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	if len(cfg.MinerLock) == 0 {
		return nil, errors.New("miner locking script is required")
	}

	// Access the storage for the blockchain. An empty storage receives the
	// genesis block.
	db, err := database.New(cfg.Storage, cfg.Index, ev)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified sort strategy.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFIFO
	}
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		db.Close()
		return nil, err
	}

	val := validator.New(validator.Config{
		Chain:            db,
		Engine:           script.NewEngine(cfg.Verifier),
		MiningReward:     cfg.Genesis.MiningReward,
		CoinbaseMaturity: cfg.Genesis.CoinbaseMaturity,
		EvHandler:        ev,
	})

	// Create the State to provide support for managing the blockchain.
	state := State{
		minerLock:       cfg.MinerLock,
		workers:         cfg.Workers,
		mineEmptyBlocks: cfg.MineEmptyBlocks,
		evHandler:       ev,

		genesis:   cfg.Genesis,
		mempool:   mempool,
		db:        db,
		validator: val,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database files are properly closed.
	return s.db.Close()
}

// Truncate resets the chain back to the genesis block and clears the mempool.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()
	return s.db.Reset()
}
