// Package genesis maintains access to the genesis file that carries the
// parameters of the chain.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/target"
	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultPath is where the genesis file lives relative to the repo root.
const DefaultPath = "zblock/genesis.json"

// Genesis represents the genesis file.
type Genesis struct {
	Date             time.Time     `json:"date" validate:"required"`
	ChainID          uint16        `json:"chain_id" validate:"required"`          // The chain id represents an unique id for this running instance.
	Bits             hexutil.Bytes `json:"bits" validate:"len=4"`                 // Compact target every mined block must use.
	TransPerBlock    uint16        `json:"trans_per_block" validate:"required"`   // The maximum number of transactions that can be in a block.
	MiningReward     uint64        `json:"mining_reward" validate:"required"`     // Reward for mining a block.
	CoinbaseMaturity uint32        `json:"coinbase_maturity" validate:"lte=1000"` // Blocks before a reward can be spent.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the parameters are usable.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	if _, err := g.Target(); err != nil {
		return err
	}

	return nil
}

// Target decodes the chain difficulty.
func (g Genesis) Target() (target.Target, error) {
	return target.New(g.Bits)
}

// BitsArray returns the chain difficulty in the fixed size form carried by
// block headers.
func (g Genesis) BitsArray() [target.BitsLength]byte {
	var bits [target.BitsLength]byte
	copy(bits[:], g.Bits)
	return bits
}
