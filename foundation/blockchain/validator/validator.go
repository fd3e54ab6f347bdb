// Package validator applies the consensus rules to transactions and to the
// transaction list of a block.
package validator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
)

// Chain is the view of the committed chain the rules need.
type Chain interface {
	LookupTransaction(txID hashes.Hash) (database.Transaction, uint64, error)
	IsSpent(op database.OutPoint) (bool, error)
}

// Config carries the parameters the rules depend on.
type Config struct {
	Chain            Chain
	Engine           script.Engine
	MiningReward     uint64
	CoinbaseMaturity uint32
	EvHandler        func(v string, args ...any)
}

// Validator applies the rules against a chain.
type Validator struct {
	chain            Chain
	engine           script.Engine
	miningReward     uint64
	coinbaseMaturity uint32
	evHandler        func(v string, args ...any)
}

// New constructs a validator.
func New(cfg Config) *Validator {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Validator{
		chain:            cfg.Chain,
		engine:           cfg.Engine,
		miningReward:     cfg.MiningReward,
		coinbaseMaturity: cfg.CoinbaseMaturity,
		evHandler:        ev,
	}
}

// Context is the point in the chain a transaction is validated at.
type Context struct {
	Height uint64    // Height of the block that would include the transaction.
	Now    time.Time // Wall clock used for time based lock times.
}

// ValidateTransaction applies the rules for a transaction that spends
// committed outputs. The error is only set when the chain can't be read.
func (v *Validator) ValidateTransaction(tx database.Transaction, ctx Context) (Result, error) {
	switch {
	case tx.IsCoinbase():
		return TxIsCoinbase, nil
	case len(tx.Inputs) == 0:
		return TxNoInputs, nil
	case len(tx.Outputs) == 0:
		return TxNoOutputs, nil
	}

	outputTotal, ok := tx.OutputTotal()
	if !ok {
		return TxWrongData, nil
	}

	seen := make(map[database.OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if in.IsCoinbase() {
			return TxWrongData, nil
		}

		op := in.OutPoint()
		if _, exists := seen[op]; exists {
			return TxWrongData, nil
		}
		seen[op] = struct{}{}
	}

	scriptCtx := script.Context{
		Height:   ctx.Height,
		Now:      ctx.Now,
		SigHash:  tx.SignatureHash(),
		LockTime: tx.LockTime,
	}

	var inputTotal uint64
	for i, in := range tx.Inputs {
		ref, refHeight, err := v.chain.LookupTransaction(in.PrevTxID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return TxWrongReference, nil
			}
			return TxWrongReference, err
		}

		if in.Vout >= uint32(len(ref.Outputs)) {
			return TxWrongReference, nil
		}

		spent, err := v.chain.IsSpent(in.OutPoint())
		if err != nil {
			return TxWrongReference, err
		}
		if spent {
			return TxWrongReference, nil
		}

		if !lockTimeSatisfied(ref.LockTime, refHeight, ctx) {
			return TxLockTimeError, nil
		}

		out := ref.Outputs[in.Vout]
		if inputTotal > math.MaxUint64-out.Amount {
			return TxWrongData, nil
		}
		inputTotal += out.Amount

		result, _ := v.engine.Execute(scriptCtx, in.UnlockingScript, out.LockingScript)
		if result != script.Success {
			v.evHandler("validator: ValidateTransaction: tx[%s]: input[%d]: script: %s", tx.ID(), i, result)
			return TxScriptFailure, nil
		}
	}

	if inputTotal != outputTotal {
		return TxUnbalanced, nil
	}

	return Success, nil
}

// lockTimeSatisfied applies the lock time of a referenced transaction. Values
// at or above the threshold are unix times, others are a number of blocks
// after the block that included the transaction.
func lockTimeSatisfied(lockTime uint32, includedAt uint64, ctx Context) bool {
	if lockTime >= script.LockTimeThreshold {
		return ctx.Now.Unix() >= int64(lockTime)
	}
	return ctx.Height >= includedAt+uint64(lockTime)
}

// ValidateBlockTransactions applies the rules for the transaction list of a
// block at the height in the context. The first transaction must be the
// coinbase paying exactly the mining reward and every other transaction must
// be valid on its own. No out point may be spent twice within the block.
func (v *Validator) ValidateBlockTransactions(txs []database.Transaction, ctx Context) (Result, error) {
	if len(txs) == 0 || !v.validCoinbase(txs[0], ctx.Height) {
		return BlockBadCoinbase, nil
	}

	spent := make(map[database.OutPoint]struct{})
	for _, tx := range txs[1:] {
		if tx.IsCoinbase() {
			return BlockBadCoinbase, nil
		}

		for _, in := range tx.Inputs {
			op := in.OutPoint()
			if _, exists := spent[op]; exists {
				return BlockDoubleSpend, nil
			}
			spent[op] = struct{}{}
		}
	}

	for _, tx := range txs[1:] {
		result, err := v.ValidateTransaction(tx, ctx)
		if err != nil || result != Success {
			v.evHandler("validator: ValidateBlockTransactions: blk[%d]: tx[%s]: %s", ctx.Height, tx.ID(), result)
			return result, err
		}
	}

	return Success, nil
}

// validCoinbase checks the reward, maturity and height commitment of the
// coinbase transaction.
func (v *Validator) validCoinbase(tx database.Transaction, height uint64) bool {
	if !tx.IsCoinbase() {
		return false
	}
	if tx.Outputs[0].Amount != v.miningReward || tx.LockTime < v.coinbaseMaturity {
		return false
	}

	ops, err := script.ParseOps(tx.Inputs[0].UnlockingScript)
	if err != nil || len(ops) == 0 {
		return false
	}

	return bytes.Equal(ops[0].Data, binary.LittleEndian.AppendUint64(nil, height))
}
