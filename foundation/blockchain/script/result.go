package script

import "fmt"

// ExecutionResult is the closed set of outcomes of running scripts. These
// are verdicts, not errors. Callers branch on them.
type ExecutionResult uint8

// Set of execution results.
const (
	Success ExecutionResult = iota
	Failure
	InvalidStack
	InvalidScript
	UnknownOpcode
	MoreItemsOnBottom
	DisabledCode
	ExecutionStopped
	UnknownError
)

var resultNames = map[ExecutionResult]string{
	Success:           "SUCCESS",
	Failure:           "FAILURE",
	InvalidStack:      "INVALID_STACK",
	InvalidScript:     "INVALID_SCRIPT",
	UnknownOpcode:     "UNKNOWN_OPCODE",
	MoreItemsOnBottom: "MORE_ITEMS_ON_BOTTOM",
	DisabledCode:      "DISABLED_CODE",
	ExecutionStopped:  "EXECUTION_STOPPED",
	UnknownError:      "UNKNOWN_ERROR",
}

// String returns the name of the result.
func (r ExecutionResult) String() string {
	if name, exists := resultNames[r]; exists {
		return name
	}
	return fmt.Sprintf("ExecutionResult(%d)", uint8(r))
}

// MarshalText implements the TextMarshaler interface.
func (r ExecutionResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
