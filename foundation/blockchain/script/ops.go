package script

import (
	"bytes"
	"encoding/binary"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

func opPushNum(m *machine, op Opcode) step {
	if op == OP_0 {
		return m.push(False)
	}
	return m.push([]byte{byte(op-OP_1) + 1})
}

func opPushData(m *machine, op Opcode) step {
	c := m.current()

	var width int
	switch op {
	case OP_PUSHDATA1:
		width = 1
	case OP_PUSHDATA2:
		width = 2
	default:
		width = 4
	}

	raw, _ := c.read(width)

	var n uint64
	for i := width - 1; i >= 0; i-- {
		n = n<<8 | uint64(raw[i])
	}

	if n > MaxElementSize {
		return halt(InvalidScript)
	}

	data, ok := c.read(int(n))
	if !ok {
		return halt(InvalidScript)
	}

	return m.push(data)
}

func opNop(m *machine, op Opcode) step {
	return next
}

func opVerify(m *machine, op Opcode) step {
	v, _ := m.stack.Pop()
	if !IsTrue(v) {
		return halt(Failure)
	}
	return next
}

func opReturn(m *machine, op Opcode) step {
	return halt(ExecutionStopped)
}

func opExit(m *machine, op Opcode) step {
	return halt(m.outcome())
}

// =============================================================================

func opDrop(m *machine, op Opcode) step {
	m.stack.Pop()
	return next
}

func opDup(m *machine, op Opcode) step {
	v, _ := m.stack.Peek(0)
	return m.push(v)
}

func opSwap(m *machine, op Opcode) step {
	a, _ := m.stack.Pop()
	b, _ := m.stack.Pop()
	m.stack.Push(a)
	m.stack.Push(b)
	return next
}

func opSize(m *machine, op Opcode) step {
	v, _ := m.stack.Peek(0)
	return m.pushNum(int32(len(v)))
}

func opEqual(m *machine, op Opcode) step {
	a, _ := m.stack.Pop()
	b, _ := m.stack.Pop()
	equal := bytes.Equal(a, b)

	if op == OP_EQUALVERIFY {
		if !equal {
			return halt(Failure)
		}
		return next
	}

	return m.pushBool(equal)
}

// =============================================================================

func opNot(m *machine, op Opcode) step {
	v, _ := m.stack.Pop()
	return m.pushBool(!IsTrue(v))
}

func opBool(m *machine, op Opcode) step {
	b, _ := m.stack.Pop()
	a, _ := m.stack.Pop()

	if op == OP_BOOLAND {
		return m.pushBool(IsTrue(a) && IsTrue(b))
	}
	return m.pushBool(IsTrue(a) || IsTrue(b))
}

func opUnaryNum(m *machine, op Opcode) step {
	n, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}

	if op == OP_1ADD {
		return m.pushNum(n + 1)
	}
	return m.pushNum(n - 1)
}

func opBinaryNum(m *machine, op Opcode) step {
	b, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}
	a, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}

	switch op {
	case OP_ADD:
		return m.pushNum(a + b)
	case OP_SUB:
		return m.pushNum(a - b)
	case OP_NUMEQUAL:
		return m.pushBool(a == b)
	case OP_NUMEQUALVERIFY:
		if a != b {
			return halt(Failure)
		}
		return next
	case OP_NUMNOTEQUAL:
		return m.pushBool(a != b)
	case OP_LESSTHAN:
		return m.pushBool(a < b)
	case OP_GREATERTHAN:
		return m.pushBool(a > b)
	case OP_LESSTHANOREQUAL:
		return m.pushBool(a <= b)
	case OP_GREATERTHANOREQUAL:
		return m.pushBool(a >= b)
	case OP_MIN:
		return m.pushNum(min(a, b))
	case OP_MAX:
		return m.pushNum(max(a, b))
	}

	return halt(UnknownError)
}

// opWithin consumes x min max and reports min <= x < max.
func opWithin(m *machine, op Opcode) step {
	hi, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}
	lo, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}
	x, err := m.stack.PopNum()
	if err != nil {
		return halt(InvalidStack)
	}

	return m.pushBool(lo <= x && x < hi)
}

func opDisabled(m *machine, op Opcode) step {
	return halt(DisabledCode)
}

// =============================================================================

func opHash(m *machine, op Opcode) step {
	v, _ := m.stack.Pop()

	switch op {
	case OP_RIPEMD160:
		return m.push(hashes.RIPEMD160(v))
	case OP_SHA256:
		return m.push(hashes.SHA256(v))
	case OP_HASH160:
		return m.push(hashes.Hash160(v))
	}

	h := hashes.Hash256(v)
	return m.push(h[:])
}

func opSelectAlgorithm(m *machine, op Opcode) step {
	switch op {
	case OP_ALG_ECDSA:
		m.alg = signature.ECDSA
	case OP_ALG_SCHNORR:
		m.alg = signature.Schnorr
	case OP_ALG_ED25519:
		m.alg = signature.Ed25519
	}
	return next
}

// checkSig verifies one signature over the transaction digest.
func (m *machine) checkSig(publicKey []byte, sig []byte) bool {
	if len(publicKey) == 0 || len(sig) == 0 {
		return false
	}
	return m.verifier.Verify(m.alg, publicKey, m.ctx.SigHash[:], sig)
}

func opCheckSig(m *machine, op Opcode) step {
	publicKey, _ := m.stack.Pop()
	sig, _ := m.stack.Pop()
	valid := m.checkSig(publicKey, sig)

	if op == OP_CHECKSIGVERIFY {
		if !valid {
			return halt(Failure)
		}
		return next
	}

	return m.pushBool(valid)
}

// opCheckMultiSig consumes <sig..> m <pubkey..> n. Every signature must be
// matched by a distinct public key, in any order.
func opCheckMultiSig(m *machine, op Opcode) step {
	n, err := m.stack.PopNum()
	if err != nil || n < 0 || n > MaxPubKeysPerMultiSig {
		return halt(InvalidStack)
	}
	if m.stack.Len() < int(n)+1 {
		return halt(InvalidStack)
	}

	publicKeys := make([][]byte, n)
	for i := range publicKeys {
		publicKeys[i], _ = m.stack.Pop()
	}

	required, err := m.stack.PopNum()
	if err != nil || required < 0 || required > n {
		return halt(InvalidStack)
	}
	if m.stack.Len() < int(required) {
		return halt(InvalidStack)
	}

	sigs := make([][]byte, required)
	for i := range sigs {
		sigs[i], _ = m.stack.Pop()
	}

	used := make([]bool, len(publicKeys))
	valid := true

outer:
	for _, sig := range sigs {
		for i, publicKey := range publicKeys {
			if used[i] || !m.checkSig(publicKey, sig) {
				continue
			}
			used[i] = true
			continue outer
		}

		valid = false
		break
	}

	if op == OP_CHECKMULTISIGVERIFY {
		if !valid {
			return halt(Failure)
		}
		return next
	}

	return m.pushBool(valid)
}

// opCheckLockTimeVerify fails unless the value on top of the stack is of the
// same kind as the transaction lock time, does not exceed it, and the
// transaction lock time itself is satisfied. The stack is left untouched.
func opCheckLockTimeVerify(m *machine, op Opcode) step {
	v, _ := m.stack.Peek(0)
	if len(v) > 4 {
		return halt(InvalidStack)
	}

	var buf [4]byte
	copy(buf[:], v)
	lockTime := binary.LittleEndian.Uint32(buf[:])
	txLockTime := m.ctx.LockTime

	if (lockTime < LockTimeThreshold) != (txLockTime < LockTimeThreshold) {
		return halt(Failure)
	}
	if lockTime > txLockTime {
		return halt(Failure)
	}

	if txLockTime < LockTimeThreshold {
		if m.ctx.Height < uint64(txLockTime) {
			return halt(Failure)
		}
		return next
	}

	if m.ctx.Now.Unix() < int64(txLockTime) {
		return halt(Failure)
	}
	return next
}

// opEvalScript pops a script off the stack and executes it in place before
// continuing with the rest of the current script.
func opEvalScript(m *machine, op Opcode) step {
	if len(m.cursors) >= MaxEvalDepth {
		return halt(InvalidScript)
	}

	sub, _ := m.stack.Pop()
	m.cursors = append(m.cursors, &cursor{script: Script(sub)})

	return next
}
