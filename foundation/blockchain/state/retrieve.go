package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveGenesisBlock returns the block the chain starts from.
func (s *State) RetrieveGenesisBlock() database.Block {
	return database.Genesis()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveHeight returns the height of the latest block.
func (s *State) RetrieveHeight() uint64 {
	return s.db.Height()
}

// RetrieveBlocks returns up to howMany blocks starting with the latest block.
func (s *State) RetrieveBlocks(howMany int) ([]database.Block, error) {
	var out []database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done() && len(out) < howMany; block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// RetrieveBlockByHash returns the block with the hash and its height.
func (s *State) RetrieveBlockByHash(hash hashes.Hash) (database.Block, uint64, error) {
	return s.db.GetBlockByHash(hash)
}

// RetrieveBlockByHeight returns the block at the height.
func (s *State) RetrieveBlockByHeight(height uint64) (database.Block, error) {
	return s.db.GetBlock(height)
}

// RetrieveTransaction returns a committed transaction and the height of the
// block that carries it.
func (s *State) RetrieveTransaction(txID hashes.Hash) (database.Transaction, uint64, error) {
	return s.db.LookupTransaction(txID)
}

// RetrieveTransactionProof returns a committed transaction, the block that
// carries it and the merkle proof of its inclusion under the block header.
func (s *State) RetrieveTransactionProof(txID hashes.Hash) (database.Transaction, database.Block, merkle.Proof, error) {
	tx, height, err := s.db.LookupTransaction(txID)
	if err != nil {
		return database.Transaction{}, database.Block{}, nil, err
	}

	block, err := s.db.GetBlock(height)
	if err != nil {
		return database.Transaction{}, database.Block{}, nil, err
	}

	tree, err := block.MerkleTree()
	if err != nil {
		return database.Transaction{}, database.Block{}, nil, err
	}

	for i, leaf := range tree.Leaves() {
		if leaf == txID {
			proof, err := tree.Proof(i)
			if err != nil {
				return database.Transaction{}, database.Block{}, nil, err
			}
			return tx, block, proof, nil
		}
	}

	return database.Transaction{}, database.Block{}, nil, fmt.Errorf("%w: tx %s missing from block %d", database.ErrCorrupted, txID, height)
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Transaction {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// IsMiningEmptyAllowed reports whether blocks are mined without pending
// transactions.
func (s *State) IsMiningEmptyAllowed() bool {
	return s.mineEmptyBlocks
}

// VerifyChain walks the whole chain checking every link. The error explains
// the first broken link.
func (s *State) VerifyChain() error {
	return s.db.VerifyChainErr()
}

// IsNotFound reports whether the error is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
