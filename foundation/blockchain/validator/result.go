package validator

import "fmt"

// Result is the closed set of validation verdicts. A verdict other than
// Success rejects the transaction or block, it is not an error.
type Result uint8

// Set of validation results.
const (
	Success Result = iota
	TxIsCoinbase
	TxNoInputs
	TxNoOutputs
	TxWrongData
	TxWrongReference
	TxLockTimeError
	TxScriptFailure
	TxUnbalanced
	BlockBadCoinbase
	BlockDoubleSpend
)

var resultNames = map[Result]string{
	Success:          "SUCCESS",
	TxIsCoinbase:     "TX_IS_COINBASE",
	TxNoInputs:       "TX_NO_INPUTS",
	TxNoOutputs:      "TX_NO_OUTPUTS",
	TxWrongData:      "TX_WRONG_DATA",
	TxWrongReference: "TX_WRONG_REFERENCE",
	TxLockTimeError:  "TX_LOCK_TIME_ERROR",
	TxScriptFailure:  "TX_SCRIPT_FAILURE",
	TxUnbalanced:     "TX_UNBALANCED",
	BlockBadCoinbase: "BLOCK_BAD_COINBASE",
	BlockDoubleSpend: "BLOCK_DOUBLE_SPEND",
}

// String returns the name of the result.
func (r Result) String() string {
	if name, exists := resultNames[r]; exists {
		return name
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// MarshalText implements the TextMarshaler interface.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Rejection carries a verdict other than Success as an error for callers
// that need one.
type Rejection struct {
	Result Result
	TxID   string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r.TxID == "" {
		return fmt.Sprintf("rejected: %s", r.Result)
	}
	return fmt.Sprintf("rejected: tx[%s]: %s", r.TxID, r.Result)
}
