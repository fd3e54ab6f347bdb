package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SubmitTx is the payload for submitting a serialized transaction.
type SubmitTx struct {
	Tx hexutil.Bytes `json:"tx" validate:"required"`
}

type input struct {
	PrevTxID        hashes.Hash   `json:"prev_tx_id"`
	Vout            uint32        `json:"vout"`
	UnlockingScript script.Script `json:"unlocking_script"`
	Asm             string        `json:"asm"`
}

type output struct {
	Amount        uint64        `json:"amount"`
	LockingScript script.Script `json:"locking_script"`
	Asm           string        `json:"asm"`
	Class         string        `json:"class"`
}

type tx struct {
	ID       hashes.Hash `json:"id"`
	Coinbase bool        `json:"coinbase"`
	Version  int32       `json:"version"`
	Inputs   []input     `json:"inputs"`
	Outputs  []output    `json:"outputs"`
	LockTime uint32      `json:"lock_time"`
}

type block struct {
	Hash       hashes.Hash          `json:"hash"`
	Height     uint64               `json:"height"`
	Type       database.BlockType   `json:"type"`
	Header     database.BlockHeader `json:"header"`
	DataLength int32                `json:"data_length"`
	Data       hexutil.Bytes        `json:"data,omitempty"`
	Trans      []tx                 `json:"trans,omitempty"`
}

type genesis struct {
	Hash          hashes.Hash `json:"hash"`
	Data          string      `json:"data"`
	ChainID       uint16      `json:"chain_id"`
	Bits          string      `json:"bits"`
	MiningReward  uint64      `json:"mining_reward"`
	TransPerBlock uint16      `json:"trans_per_block"`
	Maturity      uint32      `json:"coinbase_maturity"`
}

type proof struct {
	Tx         tx           `json:"tx"`
	BlockHash  hashes.Hash  `json:"block_hash"`
	MerkleRoot hashes.Hash  `json:"merkle_root"`
	Proof      merkle.Proof `json:"proof"`
}

// =============================================================================

func toTx(t database.Transaction) tx {
	out := tx{
		ID:       t.ID(),
		Coinbase: t.IsCoinbase(),
		Version:  t.Version,
		Inputs:   make([]input, len(t.Inputs)),
		Outputs:  make([]output, len(t.Outputs)),
		LockTime: t.LockTime,
	}

	for i, in := range t.Inputs {
		out.Inputs[i] = input{
			PrevTxID:        in.PrevTxID,
			Vout:            in.Vout,
			UnlockingScript: in.UnlockingScript,
			Asm:             in.UnlockingScript.String(),
		}
	}

	for i, o := range t.Outputs {
		out.Outputs[i] = output{
			Amount:        o.Amount,
			LockingScript: o.LockingScript,
			Asm:           o.LockingScript.String(),
			Class:         script.Classify(o.LockingScript).String(),
		}
	}

	return out
}

func toBlock(b database.Block, height uint64) block {
	out := block{
		Hash:       b.Hash(),
		Height:     height,
		Type:       b.Type,
		Header:     b.Header,
		DataLength: b.DataLength,
	}

	trans, err := b.Transactions()
	if err != nil {
		out.Data = b.Data
		return out
	}

	out.Trans = make([]tx, len(trans))
	for i, t := range trans {
		out.Trans[i] = toTx(t)
	}

	return out
}

func toTxs(trans []database.Transaction) []tx {
	out := make([]tx, len(trans))
	for i, t := range trans {
		out[i] = toTx(t)
	}
	return out
}
