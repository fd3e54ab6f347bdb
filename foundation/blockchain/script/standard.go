package script

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Sizes of the material carried by standard scripts.
const (
	HashLength          = 20
	SignatureLength     = 64
	MaxStandardMultiSig = 16
)

// ErrInvalidStandard is returned when the material handed to a standard
// script builder has the wrong shape.
var ErrInvalidStandard = errors.New("invalid standard script material")

// Class identifies a recognized standard script shape.
type Class uint8

// Set of script classes.
const (
	NonStandard Class = iota
	LockP2PKClass
	LockP2PKHClass
	LockP2SHClass
	LockMultiSigClass
	UnlockP2PKClass
	UnlockP2PKHClass
	UnlockP2SHClass
)

var classNames = map[Class]string{
	NonStandard:       "NONSTANDARD",
	LockP2PKClass:     "LOCK_P2PK",
	LockP2PKHClass:    "LOCK_P2PKH",
	LockP2SHClass:     "LOCK_P2SH",
	LockMultiSigClass: "LOCK_MULTISIG",
	UnlockP2PKClass:   "UNLOCK_P2PK",
	UnlockP2PKHClass:  "UNLOCK_P2PKH",
	UnlockP2SHClass:   "UNLOCK_P2SH",
}

// String returns the name of the class.
func (c Class) String() string {
	if name, exists := classNames[c]; exists {
		return name
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// IsLock reports whether the class is a locking script.
func (c Class) IsLock() bool {
	return c >= LockP2PKClass && c <= LockMultiSigClass
}

// =============================================================================

// PublicKeyHash returns the HASH160 of a public key.
func PublicKeyHash(publicKey []byte) []byte {
	return hashes.Hash160(publicKey)
}

// ScriptHash returns the HASH160 of a redeem script.
func ScriptHash(s Script) []byte {
	return hashes.Hash160(s)
}

// selector starts a builder with the opcode choosing the algorithm. ECDSA is
// the default and needs no selector.
func selector(alg signature.Algorithm) (*Builder, error) {
	b := NewBuilder()

	switch alg {
	case signature.ECDSA:
	case signature.Schnorr:
		b.AddOp(OP_ALG_SCHNORR)
	case signature.Ed25519:
		b.AddOp(OP_ALG_ED25519)
	default:
		return nil, signature.ErrUnknownAlgorithm
	}

	return b, nil
}

// LockP2PK locks an output to a public key.
func LockP2PK(alg signature.Algorithm, publicKey []byte) (Script, error) {
	if !isPublicKey(publicKey) {
		return nil, ErrInvalidStandard
	}

	b, err := selector(alg)
	if err != nil {
		return nil, err
	}

	return b.AddData(publicKey).AddOp(OP_CHECKSIG).Script()
}

// LockP2PKH locks an output to the hash of a public key.
func LockP2PKH(alg signature.Algorithm, publicKeyHash []byte) (Script, error) {
	if len(publicKeyHash) != HashLength {
		return nil, ErrInvalidStandard
	}

	b, err := selector(alg)
	if err != nil {
		return nil, err
	}

	return b.AddOps(OP_DUP, OP_HASH160).
		AddData(publicKeyHash).
		AddOps(OP_EQUALVERIFY, OP_CHECKSIG).
		Script()
}

// LockP2SH locks an output to the hash of a redeem script. The spender
// reveals the script, which is then evaluated in place.
func LockP2SH(scriptHash []byte) (Script, error) {
	if len(scriptHash) != HashLength {
		return nil, ErrInvalidStandard
	}

	return NewBuilder().
		AddOps(OP_DUP, OP_HASH160).
		AddData(scriptHash).
		AddOps(OP_EQUALVERIFY, OP_EVAL_SCRIPT).
		Script()
}

// LockMultiSig locks an output to any required-of-n public keys.
func LockMultiSig(alg signature.Algorithm, required int, publicKeys [][]byte) (Script, error) {
	n := len(publicKeys)
	if n == 0 || n > MaxStandardMultiSig || required < 1 || required > n {
		return nil, ErrInvalidStandard
	}

	b, err := selector(alg)
	if err != nil {
		return nil, err
	}

	b.AddInt(int16(required))
	for _, publicKey := range publicKeys {
		if !isPublicKey(publicKey) {
			return nil, ErrInvalidStandard
		}
		b.AddData(publicKey)
	}

	return b.AddInt(int16(n)).AddOp(OP_CHECKMULTISIG).Script()
}

// UnlockP2PK spends a P2PK output.
func UnlockP2PK(sig []byte) (Script, error) {
	return NewBuilder().AddData(sig).Script()
}

// UnlockP2PKH spends a P2PKH output.
func UnlockP2PKH(sig []byte, publicKey []byte) (Script, error) {
	return NewBuilder().AddData(sig).AddData(publicKey).Script()
}

// UnlockMultiSig spends a bare multisig output.
func UnlockMultiSig(sigs ...[]byte) (Script, error) {
	b := NewBuilder()
	for _, sig := range sigs {
		b.AddData(sig)
	}
	return b.Script()
}

// UnlockP2SH spends a P2SH output, pushing the signatures the redeem script
// needs followed by the redeem script itself.
func UnlockP2SH(redeem Script, sigs ...[]byte) (Script, error) {
	b := NewBuilder()
	for _, sig := range sigs {
		b.AddData(sig)
	}
	return b.AddData(redeem).Script()
}

// CoinbaseScript builds the unlocking script of a coinbase input. It carries
// the block height so coinbase ids are unique, followed by optional data.
func CoinbaseScript(height uint64, aux []byte) (Script, error) {
	b := NewBuilder().AddData(binary.LittleEndian.AppendUint64(nil, height))
	if len(aux) > 0 {
		b.AddData(aux)
	}
	return b.Script()
}

// =============================================================================

// Classify recognizes the standard shape of a script. Locking scripts may
// start with an algorithm selector.
func Classify(s Script) Class {
	ops, err := ParseOps(s)
	if err != nil || len(ops) == 0 {
		return NonStandard
	}

	body := ops
	if ops[0].Opcode.IsAlgorithmSelector() {
		body = ops[1:]
	}

	switch {
	case isP2PK(body):
		return LockP2PKClass
	case isHashLock(body, OP_CHECKSIG):
		return LockP2PKHClass
	case len(body) == len(ops) && isHashLock(body, OP_EVAL_SCRIPT):
		return LockP2SHClass
	case isMultiSig(body):
		return LockMultiSigClass
	case len(body) != len(ops):
		return NonStandard
	}

	for _, op := range ops {
		if op.Opcode != OP_PUSHDATA1 && op.Opcode != OP_PUSHDATA2 {
			return NonStandard
		}
	}

	last := ops[len(ops)-1].Data
	switch {
	case len(ops) >= 2 && Classify(Script(last)).IsLock():
		return UnlockP2SHClass
	case len(ops) == 2 && isSignature(ops[0].Data) && isPublicKey(last):
		return UnlockP2PKHClass
	case len(ops) == 1 && isSignature(last):
		return UnlockP2PKClass
	}

	return NonStandard
}

func isPublicKey(b []byte) bool {
	return len(b) == 32 || len(b) == 33
}

func isSignature(b []byte) bool {
	return len(b) == SignatureLength
}

func isP2PK(ops []ParsedOp) bool {
	return len(ops) == 2 &&
		ops[0].Opcode == OP_PUSHDATA1 && isPublicKey(ops[0].Data) &&
		ops[1].Opcode == OP_CHECKSIG
}

func isHashLock(ops []ParsedOp, final Opcode) bool {
	return len(ops) == 5 &&
		ops[0].Opcode == OP_DUP &&
		ops[1].Opcode == OP_HASH160 &&
		ops[2].Opcode == OP_PUSHDATA1 && len(ops[2].Data) == HashLength &&
		ops[3].Opcode == OP_EQUALVERIFY &&
		ops[4].Opcode == final
}

func isMultiSig(ops []ParsedOp) bool {
	l := len(ops)
	if l < 4 || ops[l-1].Opcode != OP_CHECKMULTISIG {
		return false
	}

	required, ok := smallInt(ops[0].Opcode)
	if !ok {
		return false
	}
	n, ok := smallInt(ops[l-2].Opcode)
	if !ok || n != l-3 || required > n {
		return false
	}

	for _, op := range ops[1 : l-2] {
		if op.Opcode != OP_PUSHDATA1 || !isPublicKey(op.Data) {
			return false
		}
	}

	return true
}

func smallInt(op Opcode) (int, bool) {
	if op < OP_1 || op > OP_16 {
		return 0, false
	}
	return int(op-OP_1) + 1, true
}
