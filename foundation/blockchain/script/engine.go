// Package script implements the stack based scripting language used to lock
// and unlock transaction outputs.
package script

import (
	"bytes"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Limits applied while executing scripts.
const (
	MaxScriptSize         = 10_000
	MaxEvalDepth          = 16
	MaxOpsPerExecution    = 10_000
	MaxPubKeysPerMultiSig = 20
)

// LockTimeThreshold separates block height lock times from unix time lock
// times. Values at or above it are seconds since the epoch.
const LockTimeThreshold = 1_000_000_000

// Context carries the facts about the spending transaction that scripts can
// observe.
type Context struct {
	Height   uint64      // Height of the block being validated.
	Now      time.Time   // Time the validation is evaluated at.
	SigHash  hashes.Hash // Message every signature check verifies against.
	LockTime uint32      // Lock time of the spending transaction.
}

// Engine executes scripts. The zero value verifies signatures with the
// default verifier.
type Engine struct {
	Verifier signature.Verifier
}

// NewEngine constructs an engine using the specified verifier.
func NewEngine(verifier signature.Verifier) Engine {
	return Engine{Verifier: verifier}
}

// Execute runs the scripts in order over one shared stack and returns the
// outcome along with the top of the stack at termination. Every script but
// the last may only push data, so an unlocking script can never decide the
// outcome on its own. Execution is deterministic for equal inputs.
func (e Engine) Execute(ctx Context, scripts ...Script) (ExecutionResult, []byte) {
	verifier := e.Verifier
	if verifier == nil {
		verifier = signature.Default
	}

	m := machine{
		ctx:      ctx,
		verifier: verifier,
		alg:      signature.ECDSA,
	}

	for i, s := range scripts {
		if len(s) > MaxScriptSize {
			return InvalidScript, m.top()
		}
		if i < len(scripts)-1 && !IsPushOnly(s) {
			return InvalidScript, m.top()
		}

		m.cursors = []*cursor{{script: s}}
		if st := m.run(); st.halt {
			return st.result, m.top()
		}
	}

	return m.outcome(), m.top()
}

// IsPushOnly reports whether the script is well formed and contains nothing
// but data pushes.
func IsPushOnly(s Script) bool {
	ops, err := ParseOps(s)
	if err != nil {
		return false
	}

	for _, op := range ops {
		if !op.Opcode.IsPush() {
			return false
		}
	}

	return true
}

// =============================================================================

// step is what a handler reports back to the execution loop.
type step struct {
	halt   bool
	result ExecutionResult
}

var next step

func halt(result ExecutionResult) step {
	return step{halt: true, result: result}
}

// cursor tracks the read position inside one script.
type cursor struct {
	script Script
	pos    int
}

func (c *cursor) remaining() int {
	return len(c.script) - c.pos
}

func (c *cursor) read(n int) ([]byte, bool) {
	if n < 0 || n > c.remaining() {
		return nil, false
	}

	b := c.script[c.pos : c.pos+n]
	c.pos += n

	return b, true
}

// machine is the state of a single execution.
type machine struct {
	ctx      Context
	verifier signature.Verifier
	alg      signature.Algorithm
	stack    Stack
	cursors  []*cursor
	ops      int
}

// run executes until the cursor stack is exhausted or a handler halts.
func (m *machine) run() step {
	for len(m.cursors) > 0 {
		c := m.cursors[len(m.cursors)-1]
		if c.remaining() == 0 {
			m.cursors = m.cursors[:len(m.cursors)-1]
			continue
		}

		m.ops++
		if m.ops > MaxOpsPerExecution {
			return halt(InvalidScript)
		}

		op := Opcode(c.script[c.pos])
		c.pos++

		info := opcodeTable[op]
		switch {
		case info.fn == nil:
			return halt(UnknownOpcode)
		case m.stack.Len() < info.minStack:
			return halt(InvalidStack)
		case c.remaining() < info.minScript:
			return halt(InvalidScript)
		}

		if st := info.fn(m, op); st.halt {
			return st
		}
	}

	return next
}

// current returns the cursor being executed.
func (m *machine) current() *cursor {
	return m.cursors[len(m.cursors)-1]
}

// outcome derives the result from the stack as it stands.
func (m *machine) outcome() ExecutionResult {
	switch m.stack.Len() {
	case 0:
		return InvalidStack
	case 1:
		top, _ := m.stack.Peek(0)
		if bytes.Equal(top, True) {
			return Success
		}
		return Failure
	}

	return MoreItemsOnBottom
}

// top returns a copy of the top of the stack or nil.
func (m *machine) top() []byte {
	top, err := m.stack.Peek(0)
	if err != nil {
		return nil
	}
	return append([]byte{}, top...)
}

// push places an item on the stack, halting on overflow.
func (m *machine) push(item []byte) step {
	if len(item) > MaxElementSize {
		return halt(InvalidStack)
	}
	if err := m.stack.Push(item); err != nil {
		return halt(InvalidStack)
	}
	return next
}

func (m *machine) pushBool(v bool) step {
	if v {
		return m.push(True)
	}
	return m.push(False)
}

func (m *machine) pushNum(n int32) step {
	b, err := EncodeNum(n)
	if err != nil {
		return halt(InvalidStack)
	}
	return m.push(b)
}
