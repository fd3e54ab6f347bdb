package script

import "fmt"

// Opcode represents a single instruction byte.
type Opcode byte

// Set of defined opcodes. Values shared with well known scripting systems
// keep the same byte.
const (
	OP_0         Opcode = 0x00
	OP_PUSHDATA1 Opcode = 0x4c
	OP_PUSHDATA2 Opcode = 0x4d
	OP_PUSHDATA4 Opcode = 0x4e
	OP_1         Opcode = 0x51
	OP_2         Opcode = 0x52
	OP_3         Opcode = 0x53
	OP_4         Opcode = 0x54
	OP_5         Opcode = 0x55
	OP_6         Opcode = 0x56
	OP_7         Opcode = 0x57
	OP_8         Opcode = 0x58
	OP_9         Opcode = 0x59
	OP_10        Opcode = 0x5a
	OP_11        Opcode = 0x5b
	OP_12        Opcode = 0x5c
	OP_13        Opcode = 0x5d
	OP_14        Opcode = 0x5e
	OP_15        Opcode = 0x5f
	OP_16        Opcode = 0x60

	OP_NOP    Opcode = 0x61
	OP_VERIFY Opcode = 0x69
	OP_RETURN Opcode = 0x6a

	OP_DROP Opcode = 0x75
	OP_DUP  Opcode = 0x76
	OP_SWAP Opcode = 0x7c
	OP_SIZE Opcode = 0x82

	OP_EQUAL       Opcode = 0x87
	OP_EQUALVERIFY Opcode = 0x88

	OP_1ADD               Opcode = 0x8b
	OP_1SUB               Opcode = 0x8c
	OP_NEGATE             Opcode = 0x8f
	OP_NOT                Opcode = 0x91
	OP_ADD                Opcode = 0x93
	OP_SUB                Opcode = 0x94
	OP_MUL                Opcode = 0x95
	OP_DIV                Opcode = 0x96
	OP_MOD                Opcode = 0x97
	OP_BOOLAND            Opcode = 0x9a
	OP_BOOLOR             Opcode = 0x9b
	OP_NUMEQUAL           Opcode = 0x9c
	OP_NUMEQUALVERIFY     Opcode = 0x9d
	OP_NUMNOTEQUAL        Opcode = 0x9e
	OP_LESSTHAN           Opcode = 0x9f
	OP_GREATERTHAN        Opcode = 0xa0
	OP_LESSTHANOREQUAL    Opcode = 0xa1
	OP_GREATERTHANOREQUAL Opcode = 0xa2
	OP_MIN                Opcode = 0xa3
	OP_MAX                Opcode = 0xa4
	OP_WITHIN             Opcode = 0xa5

	OP_RIPEMD160 Opcode = 0xa6
	OP_SHA256    Opcode = 0xa8
	OP_HASH160   Opcode = 0xa9
	OP_HASH256   Opcode = 0xaa

	OP_CHECKSIG            Opcode = 0xac
	OP_CHECKSIGVERIFY      Opcode = 0xad
	OP_CHECKMULTISIG       Opcode = 0xae
	OP_CHECKMULTISIGVERIFY Opcode = 0xaf

	OP_CHECKLOCKTIMEVERIFY Opcode = 0xb1
	OP_EVAL_SCRIPT         Opcode = 0xb2

	OP_ALG_ECDSA   Opcode = 0xc0
	OP_ALG_SCHNORR Opcode = 0xc1
	OP_ALG_ED25519 Opcode = 0xc2

	OP_EXIT Opcode = 0xc8
)

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	if info := opcodeTable[op]; info.fn != nil {
		return info.name
	}
	return fmt.Sprintf("OP_UNKNOWN_0x%02x", byte(op))
}

// IsPush reports whether the opcode only places data on the stack.
func (op Opcode) IsPush() bool {
	switch {
	case op == OP_0, op == OP_PUSHDATA1, op == OP_PUSHDATA2, op == OP_PUSHDATA4:
		return true
	case op >= OP_1 && op <= OP_16:
		return true
	}
	return false
}

// IsAlgorithmSelector reports whether the opcode selects the signature
// algorithm for subsequent signature checks.
func (op Opcode) IsAlgorithmSelector() bool {
	return op == OP_ALG_ECDSA || op == OP_ALG_SCHNORR || op == OP_ALG_ED25519
}

// =============================================================================

// opcodeInfo describes an instruction: the stack depth and trailing script
// bytes it needs before the handler runs.
type opcodeInfo struct {
	name      string
	minStack  int
	minScript int
	fn        func(m *machine, op Opcode) step
}

// opcodeTable is the dispatch table indexed by opcode byte. Entries with a
// nil handler are unknown opcodes.
var opcodeTable = [256]opcodeInfo{
	OP_0:         {"OP_0", 0, 0, opPushNum},
	OP_PUSHDATA1: {"OP_PUSHDATA1", 0, 1, opPushData},
	OP_PUSHDATA2: {"OP_PUSHDATA2", 0, 2, opPushData},
	OP_PUSHDATA4: {"OP_PUSHDATA4", 0, 4, opPushData},
	OP_1:         {"OP_1", 0, 0, opPushNum},
	OP_2:         {"OP_2", 0, 0, opPushNum},
	OP_3:         {"OP_3", 0, 0, opPushNum},
	OP_4:         {"OP_4", 0, 0, opPushNum},
	OP_5:         {"OP_5", 0, 0, opPushNum},
	OP_6:         {"OP_6", 0, 0, opPushNum},
	OP_7:         {"OP_7", 0, 0, opPushNum},
	OP_8:         {"OP_8", 0, 0, opPushNum},
	OP_9:         {"OP_9", 0, 0, opPushNum},
	OP_10:        {"OP_10", 0, 0, opPushNum},
	OP_11:        {"OP_11", 0, 0, opPushNum},
	OP_12:        {"OP_12", 0, 0, opPushNum},
	OP_13:        {"OP_13", 0, 0, opPushNum},
	OP_14:        {"OP_14", 0, 0, opPushNum},
	OP_15:        {"OP_15", 0, 0, opPushNum},
	OP_16:        {"OP_16", 0, 0, opPushNum},

	OP_NOP:    {"OP_NOP", 0, 0, opNop},
	OP_VERIFY: {"OP_VERIFY", 1, 0, opVerify},
	OP_RETURN: {"OP_RETURN", 0, 0, opReturn},

	OP_DROP: {"OP_DROP", 1, 0, opDrop},
	OP_DUP:  {"OP_DUP", 1, 0, opDup},
	OP_SWAP: {"OP_SWAP", 2, 0, opSwap},
	OP_SIZE: {"OP_SIZE", 1, 0, opSize},

	OP_EQUAL:       {"OP_EQUAL", 2, 0, opEqual},
	OP_EQUALVERIFY: {"OP_EQUALVERIFY", 2, 0, opEqual},

	OP_1ADD:               {"OP_1ADD", 1, 0, opUnaryNum},
	OP_1SUB:               {"OP_1SUB", 1, 0, opUnaryNum},
	OP_NEGATE:             {"OP_NEGATE", 0, 0, opDisabled},
	OP_NOT:                {"OP_NOT", 1, 0, opNot},
	OP_ADD:                {"OP_ADD", 2, 0, opBinaryNum},
	OP_SUB:                {"OP_SUB", 2, 0, opBinaryNum},
	OP_MUL:                {"OP_MUL", 0, 0, opDisabled},
	OP_DIV:                {"OP_DIV", 0, 0, opDisabled},
	OP_MOD:                {"OP_MOD", 0, 0, opDisabled},
	OP_BOOLAND:            {"OP_BOOLAND", 2, 0, opBool},
	OP_BOOLOR:             {"OP_BOOLOR", 2, 0, opBool},
	OP_NUMEQUAL:           {"OP_NUMEQUAL", 2, 0, opBinaryNum},
	OP_NUMEQUALVERIFY:     {"OP_NUMEQUALVERIFY", 2, 0, opBinaryNum},
	OP_NUMNOTEQUAL:        {"OP_NUMNOTEQUAL", 2, 0, opBinaryNum},
	OP_LESSTHAN:           {"OP_LESSTHAN", 2, 0, opBinaryNum},
	OP_GREATERTHAN:        {"OP_GREATERTHAN", 2, 0, opBinaryNum},
	OP_LESSTHANOREQUAL:    {"OP_LESSTHANOREQUAL", 2, 0, opBinaryNum},
	OP_GREATERTHANOREQUAL: {"OP_GREATERTHANOREQUAL", 2, 0, opBinaryNum},
	OP_MIN:                {"OP_MIN", 2, 0, opBinaryNum},
	OP_MAX:                {"OP_MAX", 2, 0, opBinaryNum},
	OP_WITHIN:             {"OP_WITHIN", 3, 0, opWithin},

	OP_RIPEMD160: {"OP_RIPEMD160", 1, 0, opHash},
	OP_SHA256:    {"OP_SHA256", 1, 0, opHash},
	OP_HASH160:   {"OP_HASH160", 1, 0, opHash},
	OP_HASH256:   {"OP_HASH256", 1, 0, opHash},

	OP_CHECKSIG:            {"OP_CHECKSIG", 2, 0, opCheckSig},
	OP_CHECKSIGVERIFY:      {"OP_CHECKSIGVERIFY", 2, 0, opCheckSig},
	OP_CHECKMULTISIG:       {"OP_CHECKMULTISIG", 1, 0, opCheckMultiSig},
	OP_CHECKMULTISIGVERIFY: {"OP_CHECKMULTISIGVERIFY", 1, 0, opCheckMultiSig},

	OP_CHECKLOCKTIMEVERIFY: {"OP_CHECKLOCKTIMEVERIFY", 1, 0, opCheckLockTimeVerify},
	OP_EVAL_SCRIPT:         {"OP_EVAL_SCRIPT", 1, 0, opEvalScript},

	OP_ALG_ECDSA:   {"OP_ALG_ECDSA", 0, 0, opSelectAlgorithm},
	OP_ALG_SCHNORR: {"OP_ALG_SCHNORR", 0, 0, opSelectAlgorithm},
	OP_ALG_ED25519: {"OP_ALG_ED25519", 0, 0, opSelectAlgorithm},

	OP_EXIT: {"OP_EXIT", 0, 0, opExit},
}
