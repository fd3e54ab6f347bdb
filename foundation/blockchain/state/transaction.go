package state

import (
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/validator"
)

// SubmitTransaction accepts a transaction for inclusion in a future block.
// A transaction that breaks a rule is returned as a *validator.Rejection.
func (s *State) SubmitTransaction(tx database.Transaction) error {
	ctx := validator.Context{
		Height: s.db.Height() + 1,
		Now:    time.Now(),
	}

	result, err := s.validator.ValidateTransaction(tx, ctx)
	if err != nil {
		return err
	}

	if result != validator.Success {
		s.evHandler("state: SubmitTransaction: tx[%s]: rejected: %s", tx.ID(), result)
		return &validator.Rejection{Result: result, TxID: tx.ID().String()}
	}

	n, err := s.mempool.Insert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: accepted: mempool[%d]", tx.ID(), n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}
