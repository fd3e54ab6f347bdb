package script_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"pgregory.net/rapid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ops(b ...script.Opcode) script.Script {
	s := make(script.Script, len(b))
	for i, op := range b {
		s[i] = byte(op)
	}
	return s
}

// =============================================================================

func Test_Execute(t *testing.T) {
	type table struct {
		name   string
		script script.Script
		result script.ExecutionResult
	}

	recurse := ops(script.OP_DUP, script.OP_EVAL_SCRIPT)

	tt := []table{
		{"true", ops(script.OP_1), script.Success},
		{"two", ops(script.OP_2), script.Failure},
		{"empty", ops(), script.InvalidStack},
		{"leftover", ops(script.OP_1, script.OP_1), script.MoreItemsOnBottom},
		{"unknown", script.Script{0x01}, script.UnknownOpcode},
		{"dupempty", ops(script.OP_DUP), script.InvalidStack},
		{"pushdatanolen", ops(script.OP_PUSHDATA1), script.InvalidScript},
		{"pushdatashort", script.Script{byte(script.OP_PUSHDATA1), 5, 1}, script.InvalidScript},
		{"pushdata2short", script.Script{byte(script.OP_PUSHDATA2), 1}, script.InvalidScript},
		{"mul", ops(script.OP_2, script.OP_3, script.OP_MUL), script.DisabledCode},
		{"div", ops(script.OP_DIV), script.DisabledCode},
		{"negate", ops(script.OP_1, script.OP_NEGATE), script.DisabledCode},
		{"return", ops(script.OP_1, script.OP_RETURN), script.ExecutionStopped},
		{"exit", ops(script.OP_1, script.OP_EXIT, script.OP_0), script.Success},
		{"exitempty", ops(script.OP_EXIT, script.OP_1), script.InvalidStack},
		{"add", ops(script.OP_2, script.OP_3, script.OP_ADD, script.OP_5, script.OP_NUMEQUAL), script.Success},
		{"sub", ops(script.OP_5, script.OP_3, script.OP_SUB, script.OP_2, script.OP_EQUAL), script.Success},
		{"incdec", ops(script.OP_16, script.OP_1ADD, script.OP_1SUB, script.OP_16, script.OP_NUMEQUAL), script.Success},
		{"lessthan", ops(script.OP_2, script.OP_3, script.OP_LESSTHAN), script.Success},
		{"greaterthan", ops(script.OP_2, script.OP_3, script.OP_GREATERTHAN), script.Failure},
		{"lte", ops(script.OP_3, script.OP_3, script.OP_LESSTHANOREQUAL), script.Success},
		{"gte", ops(script.OP_2, script.OP_3, script.OP_GREATERTHANOREQUAL), script.Failure},
		{"numnotequal", ops(script.OP_2, script.OP_3, script.OP_NUMNOTEQUAL), script.Success},
		{"within", ops(script.OP_5, script.OP_1, script.OP_10, script.OP_WITHIN), script.Success},
		{"withinupper", ops(script.OP_10, script.OP_1, script.OP_10, script.OP_WITHIN), script.Failure},
		{"min", ops(script.OP_4, script.OP_7, script.OP_MIN, script.OP_4, script.OP_EQUAL), script.Success},
		{"max", ops(script.OP_4, script.OP_7, script.OP_MAX, script.OP_7, script.OP_EQUAL), script.Success},
		{"not", ops(script.OP_0, script.OP_NOT), script.Success},
		{"booland", ops(script.OP_1, script.OP_0, script.OP_BOOLAND, script.OP_NOT), script.Success},
		{"boolor", ops(script.OP_1, script.OP_0, script.OP_BOOLOR), script.Success},
		{"swap", ops(script.OP_2, script.OP_1, script.OP_SWAP, script.OP_DROP), script.Success},
		{"size", script.Script{byte(script.OP_PUSHDATA1), 3, 'a', 'b', 'c', byte(script.OP_SIZE), byte(script.OP_3), byte(script.OP_EQUALVERIFY), byte(script.OP_DROP), byte(script.OP_1)}, script.Success},
		{"verify", ops(script.OP_0, script.OP_VERIFY), script.Failure},
		{"numequalverify", ops(script.OP_2, script.OP_3, script.OP_NUMEQUALVERIFY), script.Failure},
		{"equalverify", ops(script.OP_2, script.OP_3, script.OP_EQUALVERIFY), script.Failure},
		{"longnumber", script.Script{byte(script.OP_PUSHDATA1), 3, 1, 0, 0, byte(script.OP_1ADD)}, script.InvalidStack},
		{"overflow", script.Script{byte(script.OP_PUSHDATA1), 2, 0xff, 0x7f, byte(script.OP_1ADD)}, script.InvalidStack},
		{"nop", ops(script.OP_NOP, script.OP_1), script.Success},
		{"eval", script.Script{byte(script.OP_PUSHDATA1), 1, byte(script.OP_1), byte(script.OP_EVAL_SCRIPT)}, script.Success},
		{"evaldepth", append(script.Script{byte(script.OP_PUSHDATA1), byte(len(recurse))}, append(recurse, byte(script.OP_DUP), byte(script.OP_EVAL_SCRIPT))...), script.InvalidScript},
		{"evalthenrest", script.Script{byte(script.OP_PUSHDATA1), 1, byte(script.OP_2), byte(script.OP_EVAL_SCRIPT), byte(script.OP_2), byte(script.OP_EQUAL)}, script.Success},
	}

	var engine script.Engine

	t.Log("Given the need to execute scripts.")
	{
		for testID, test := range tt {
			f := func(t *testing.T) {
				result, _ := engine.Execute(script.Context{}, test.script)
				if result != test.result {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, result)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, test.result)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected result.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected result.", success, testID)
			}

			t.Run(test.name, f)
		}
	}
}

func Test_ExecuteSharedStack(t *testing.T) {
	var engine script.Engine

	t.Log("Given the need to execute scripts in sequence over one stack.")
	{
		result, top := engine.Execute(script.Context{}, ops(script.OP_7), ops(script.OP_7, script.OP_EQUAL))
		if result != script.Success {
			t.Fatalf("\t%s\tShould succeed across scripts: %s", failed, result)
		}
		t.Logf("\t%s\tShould succeed across scripts.", success)

		if !bytes.Equal(top, script.True) {
			t.Fatalf("\t%s\tShould return the top of the stack: %x", failed, top)
		}
		t.Logf("\t%s\tShould return the top of the stack.", success)

		result, _ = engine.Execute(script.Context{}, ops(script.OP_1), ops(script.OP_RETURN, script.OP_1))
		if result != script.ExecutionStopped {
			t.Fatalf("\t%s\tShould stop without running later scripts: %s", failed, result)
		}
		t.Logf("\t%s\tShould stop without running later scripts.", success)

		result, _ = engine.Execute(script.Context{}, ops(script.OP_1, script.OP_DUP), ops(script.OP_EQUAL))
		if result != script.InvalidScript {
			t.Fatalf("\t%s\tShould reject a leading script that is not push only: %s", failed, result)
		}
		t.Logf("\t%s\tShould reject a leading script that is not push only.", success)
	}
}

func Test_Hashing(t *testing.T) {
	var engine script.Engine
	data := []byte("abc")

	type table struct {
		name string
		op   script.Opcode
		want []byte
	}

	h256 := hashes.Hash256(data)

	tt := []table{
		{"ripemd160", script.OP_RIPEMD160, hashes.RIPEMD160(data)},
		{"sha256", script.OP_SHA256, hashes.SHA256(data)},
		{"hash160", script.OP_HASH160, hashes.Hash160(data)},
		{"hash256", script.OP_HASH256, h256[:]},
	}

	t.Log("Given the need to hash stack items.")
	{
		for testID, test := range tt {
			f := func(t *testing.T) {
				s, err := script.NewBuilder().AddData(data).AddOp(test.op).AddData(test.want).AddOp(script.OP_EQUAL).Script()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the script: %s", failed, testID, err)
				}

				if result, _ := engine.Execute(script.Context{}, s); result != script.Success {
					t.Fatalf("\t%s\tTest %d:\tShould produce the expected digest: %s", failed, testID, result)
				}
				t.Logf("\t%s\tTest %d:\tShould produce the expected digest.", success, testID)
			}

			t.Run(test.name, f)
		}
	}
}

func Test_CheckLockTimeVerify(t *testing.T) {
	const timeLock = 1_700_000_000

	type table struct {
		name   string
		value  uint32
		ctx    script.Context
		result script.ExecutionResult
	}

	tt := []table{
		{"height", 100, script.Context{LockTime: 150, Height: 200}, script.Success},
		{"equal", 150, script.Context{LockTime: 150, Height: 150}, script.Success},
		{"abovetx", 100, script.Context{LockTime: 50, Height: 200}, script.Failure},
		{"notreached", 100, script.Context{LockTime: 150, Height: 120}, script.Failure},
		{"mismatch", timeLock, script.Context{LockTime: 100, Height: 200}, script.Failure},
		{"time", timeLock, script.Context{LockTime: timeLock + 500, Now: time.Unix(timeLock+1000, 0)}, script.Success},
		{"timenotreached", timeLock, script.Context{LockTime: timeLock + 500, Now: time.Unix(timeLock, 0)}, script.Failure},
	}

	var engine script.Engine

	t.Log("Given the need to enforce lock times inside scripts.")
	{
		for testID, test := range tt {
			f := func(t *testing.T) {
				s, err := script.NewBuilder().
					AddLockTime(test.value).
					AddOps(script.OP_CHECKLOCKTIMEVERIFY, script.OP_DROP, script.OP_1).
					Script()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the script: %s", failed, testID, err)
				}

				result, _ := engine.Execute(test.ctx, s)
				if result != test.result {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, result)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, test.result)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected result.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected result.", success, testID)
			}

			t.Run(test.name, f)
		}
	}
}

func Test_ExecuteArbitrary(t *testing.T) {
	engine := script.NewEngine(signature.VerifierFunc(func(signature.Algorithm, []byte, []byte, []byte) bool {
		return true
	}))

	t.Log("Given the need to execute untrusted scripts.")
	{
		rapid.Check(t, func(rt *rapid.T) {
			s := script.Script(rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(rt, "script"))
			ctx := script.Context{
				Height:   rapid.Uint64Range(0, 1000).Draw(rt, "height"),
				LockTime: rapid.Uint32().Draw(rt, "lockTime"),
			}

			r1, top1 := engine.Execute(ctx, s)
			r2, top2 := engine.Execute(ctx, s)

			if r1 != r2 || !bytes.Equal(top1, top2) {
				rt.Fatalf("execution is not deterministic: %s %s", r1, r2)
			}
		})
		t.Logf("\t%s\tShould execute any byte string deterministically.", success)
	}
}

func Test_Numbers(t *testing.T) {
	type table struct {
		n   int32
		enc []byte
	}

	tt := []table{
		{0, []byte{}},
		{1, []byte{0x01}},
		{-1, []byte{0xff}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x00}},
		{-129, []byte{0x7f, 0xff}},
		{32767, []byte{0xff, 0x7f}},
	}

	t.Log("Given the need to encode numbers on the stack.")
	{
		for testID, test := range tt {
			enc, err := script.EncodeNum(test.n)
			if err != nil || !bytes.Equal(enc, test.enc) {
				t.Fatalf("\t%s\tTest %d:\tShould encode %d as %x, got %x: %v", failed, testID, test.n, test.enc, enc, err)
			}

			n, err := script.DecodeNum(enc)
			if err != nil || n != test.n {
				t.Fatalf("\t%s\tTest %d:\tShould decode %x as %d, got %d: %v", failed, testID, enc, test.n, n, err)
			}
			t.Logf("\t%s\tTest %d:\tShould encode and decode %d.", success, testID, test.n)
		}

		if _, err := script.EncodeNum(32768); err == nil {
			t.Fatalf("\t%s\tShould reject numbers above 16 bits.", failed)
		}
		if _, err := script.DecodeNum([]byte{1, 2, 3}); err == nil {
			t.Fatalf("\t%s\tShould reject operands longer than 2 bytes.", failed)
		}
		t.Logf("\t%s\tShould reject out of range numbers.", success)

		rapid.Check(t, func(rt *rapid.T) {
			n := int32(rapid.Int16().Draw(rt, "n"))

			enc, err := script.EncodeNum(n)
			if err != nil {
				rt.Fatalf("encode %d: %s", n, err)
			}
			got, err := script.DecodeNum(enc)
			if err != nil || got != n {
				rt.Fatalf("decode %x: got %d, exp %d: %v", enc, got, n, err)
			}
		})
		t.Logf("\t%s\tShould round trip every 16 bit number.", success)
	}
}
