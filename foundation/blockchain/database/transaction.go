package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
)

// CoinbaseVout is the output index a coinbase input references alongside
// the zero hash.
const CoinbaseVout = math.MaxUint32

// TxVersion is the version stamped on new transactions.
const TxVersion = 1

// ErrNotTransactions is returned when transactions are requested from a
// block that carries raw data.
var ErrNotTransactions = errors.New("block does not carry transactions")

// OutPoint identifies a transaction output.
type OutPoint struct {
	TxID hashes.Hash `json:"tx_id"`
	Vout uint32      `json:"vout"`
}

// String implements the Stringer interface.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Vout)
}

// Serialize returns the 36 byte key form of the out point.
func (op OutPoint) Serialize() []byte {
	b := make([]byte, 0, hashes.Size+4)
	b = append(b, op.TxID[:]...)
	return binary.LittleEndian.AppendUint32(b, op.Vout)
}

// TxInput spends the output of a previous transaction.
type TxInput struct {
	PrevTxID        hashes.Hash   `json:"prev_tx_id"`
	Vout            uint32        `json:"vout"`
	UnlockingScript script.Script `json:"unlocking_script"`
}

// OutPoint returns the output this input spends.
func (in TxInput) OutPoint() OutPoint {
	return OutPoint{TxID: in.PrevTxID, Vout: in.Vout}
}

func (in TxInput) serialize() []byte {
	b := make([]byte, 0, hashes.Size+8+len(in.UnlockingScript))
	b = append(b, in.PrevTxID[:]...)
	b = binary.LittleEndian.AppendUint32(b, in.Vout)
	return appendSized(b, in.UnlockingScript)
}

// TxOutput assigns an amount to a locking script.
type TxOutput struct {
	Amount        uint64        `json:"amount"`
	LockingScript script.Script `json:"locking_script"`
}

func (out TxOutput) serialize() []byte {
	b := make([]byte, 0, 12+len(out.LockingScript))
	b = binary.LittleEndian.AppendUint64(b, out.Amount)
	return appendSized(b, out.LockingScript)
}

// =============================================================================

// Transaction moves value from previous outputs to new outputs.
type Transaction struct {
	Version  int32      `json:"version"`
	Inputs   []TxInput  `json:"inputs"`
	Outputs  []TxOutput `json:"outputs"`
	LockTime uint32     `json:"lock_time"`
}

// NewCoinbase constructs the reward transaction for the block at the
// specified height. The lock time delays spending of the reward.
func NewCoinbase(height uint64, aux []byte, amount uint64, lockingScript script.Script, lockTime uint32) (Transaction, error) {
	unlocking, err := script.CoinbaseScript(height, aux)
	if err != nil {
		return Transaction{}, fmt.Errorf("coinbase script: %w", err)
	}

	tx := Transaction{
		Version: TxVersion,
		Inputs: []TxInput{
			{
				PrevTxID:        hashes.ZeroHash,
				Vout:            CoinbaseVout,
				UnlockingScript: unlocking,
			},
		},
		Outputs: []TxOutput{
			{
				Amount:        amount,
				LockingScript: lockingScript,
			},
		},
		LockTime: lockTime,
	}

	return tx, nil
}

// IsCoinbase reports whether the transaction is a well formed coinbase.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && len(tx.Outputs) == 1 && tx.Inputs[0].IsCoinbase()
}

// IsCoinbase reports whether the input carries the coinbase reference.
func (in TxInput) IsCoinbase() bool {
	return in.PrevTxID.IsZero() && in.Vout == CoinbaseVout
}

// Serialize returns the binary encoding of the transaction.
func (tx Transaction) Serialize() []byte {
	b := make([]byte, 0, 16)
	b = binary.LittleEndian.AppendUint32(b, uint32(tx.Version))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(tx.Inputs)))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(tx.Outputs)))

	for _, in := range tx.Inputs {
		b = appendSized(b, in.serialize())
	}
	for _, out := range tx.Outputs {
		b = appendSized(b, out.serialize())
	}

	return binary.LittleEndian.AppendUint32(b, tx.LockTime)
}

// ID returns the double sha256 of the serialized transaction.
func (tx Transaction) ID() hashes.Hash {
	return hashes.Hash256(tx.Serialize())
}

// Hash implements the merkle Hashable interface.
func (tx Transaction) Hash() hashes.Hash {
	return tx.ID()
}

// SignatureHash returns the message every input signs: the hash of the
// transaction with all unlocking scripts removed.
func (tx Transaction) SignatureHash() hashes.Hash {
	stripped := tx
	stripped.Inputs = make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		stripped.Inputs[i] = TxInput{PrevTxID: in.PrevTxID, Vout: in.Vout}
	}

	return stripped.ID()
}

// OutputTotal returns the sum of the output amounts and false if the sum
// overflows.
func (tx Transaction) OutputTotal() (uint64, bool) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Amount {
			return 0, false
		}
		total += out.Amount
	}
	return total, true
}

// String implements the Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%d->%d", tx.ID(), len(tx.Inputs), len(tx.Outputs))
}

// DecodeTransaction decodes a serialized transaction. The declared input
// and output counts must match the entries present.
func DecodeTransaction(b []byte) (Transaction, error) {
	r := newReader(b)
	tx := readTransaction(r)
	if err := r.done(); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}

	return tx, nil
}

func readTransaction(r *reader) Transaction {
	var tx Transaction
	tx.Version = r.int32()
	inCount := r.uint32()
	outCount := r.uint32()

	for i := uint32(0); i < inCount && r.err == nil; i++ {
		in := newReader(r.sized())
		if r.err != nil {
			break
		}

		var txIn TxInput
		copy(txIn.PrevTxID[:], in.bytes(hashes.Size))
		txIn.Vout = in.uint32()
		txIn.UnlockingScript = append(script.Script{}, in.sized()...)
		if err := in.done(); err != nil {
			r.err = fmt.Errorf("input %d: %w", i, err)
			break
		}

		tx.Inputs = append(tx.Inputs, txIn)
	}

	for i := uint32(0); i < outCount && r.err == nil; i++ {
		out := newReader(r.sized())
		if r.err != nil {
			break
		}

		var txOut TxOutput
		txOut.Amount = out.uint64()
		txOut.LockingScript = append(script.Script{}, out.sized()...)
		if err := out.done(); err != nil {
			r.err = fmt.Errorf("output %d: %w", i, err)
			break
		}

		tx.Outputs = append(tx.Outputs, txOut)
	}

	tx.LockTime = r.uint32()

	return tx
}

// =============================================================================

// EncodeTransactions serializes a transaction list: a 4 byte count followed
// by each transaction prefixed with its length.
func EncodeTransactions(txs []Transaction) []byte {
	b := binary.LittleEndian.AppendUint32(nil, uint32(len(txs)))
	for _, tx := range txs {
		b = appendSized(b, tx.Serialize())
	}
	return b
}

// DecodeTransactions decodes a serialized transaction list.
func DecodeTransactions(b []byte) ([]Transaction, error) {
	r := newReader(b)
	count := r.uint32()

	var txs []Transaction
	for i := uint32(0); i < count && r.err == nil; i++ {
		raw := r.sized()
		if r.err != nil {
			break
		}

		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	return txs, nil
}
