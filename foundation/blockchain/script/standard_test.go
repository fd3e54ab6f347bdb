package script_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

type keyPair struct {
	priv []byte
	pub  []byte
}

func newKeys(t *testing.T, alg signature.Algorithm, n int) []keyPair {
	t.Helper()

	keys := make([]keyPair, n)
	for i := range keys {
		priv, pub, err := signature.GenerateKey(alg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a key: %s", failed, err)
		}
		keys[i] = keyPair{priv: priv, pub: pub}
	}

	return keys
}

func sign(t *testing.T, alg signature.Algorithm, key keyPair, ctx script.Context) []byte {
	t.Helper()

	sig, err := signature.Sign(alg, key.priv, ctx.SigHash[:])
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign: %s", failed, err)
	}

	return sig
}

func flip(sig []byte) []byte {
	cpy := append([]byte{}, sig...)
	cpy[len(cpy)-1] ^= 0x01
	return cpy
}

// mustBuild returns a helper that unwraps a script builder result, failing
// the test on error.
func mustBuild(t *testing.T) func(script.Script, error) script.Script {
	return func(s script.Script, err error) script.Script {
		t.Helper()

		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the script: %s", failed, err)
		}
		return s
	}
}

// =============================================================================

func Test_StandardScripts(t *testing.T) {
	algs := []signature.Algorithm{signature.ECDSA, signature.Schnorr, signature.Ed25519}
	ctx := script.Context{SigHash: hashes.Hash256([]byte("spending transaction"))}

	var engine script.Engine

	t.Log("Given the need to lock and unlock outputs with standard scripts.")
	{
		for testID, alg := range algs {
			f := func(t *testing.T) {
				must := mustBuild(t)
				keys := newKeys(t, alg, 3)
				sig := sign(t, alg, keys[0], ctx)

				type check struct {
					name   string
					unlock script.Script
					lock   script.Script
					result script.ExecutionResult
					lockC  script.Class
					unlkC  script.Class
				}

				p2pk := must(script.LockP2PK(alg, keys[0].pub))
				p2pkh := must(script.LockP2PKH(alg, script.PublicKeyHash(keys[0].pub)))
				multi := must(script.LockMultiSig(alg, 2, [][]byte{keys[0].pub, keys[1].pub, keys[2].pub}))
				p2sh := must(script.LockP2SH(script.ScriptHash(p2pk)))
				p2shMulti := must(script.LockP2SH(script.ScriptHash(multi)))

				sig2 := sign(t, alg, keys[2], ctx)

				checks := []check{
					{"p2pk", must(script.UnlockP2PK(sig)), p2pk, script.Success, script.LockP2PKClass, script.UnlockP2PKClass},
					{"p2pk-badsig", must(script.UnlockP2PK(flip(sig))), p2pk, script.Failure, script.LockP2PKClass, script.UnlockP2PKClass},
					{"p2pkh", must(script.UnlockP2PKH(sig, keys[0].pub)), p2pkh, script.Success, script.LockP2PKHClass, script.UnlockP2PKHClass},
					{"p2pkh-badsig", must(script.UnlockP2PKH(flip(sig), keys[0].pub)), p2pkh, script.Failure, script.LockP2PKHClass, script.UnlockP2PKHClass},
					{"p2pkh-wrongkey", must(script.UnlockP2PKH(sig, keys[1].pub)), p2pkh, script.Failure, script.LockP2PKHClass, script.UnlockP2PKHClass},
					{"multisig", must(script.UnlockMultiSig(sig2, sig)), multi, script.Success, script.LockMultiSigClass, script.NonStandard},
					{"multisig-dupsig", must(script.UnlockMultiSig(sig, sig)), multi, script.Failure, script.LockMultiSigClass, script.NonStandard},
					{"p2sh", must(script.UnlockP2SH(p2pk, sig)), p2sh, script.Success, script.LockP2SHClass, script.UnlockP2SHClass},
					{"p2sh-badsig", must(script.UnlockP2SH(p2pk, flip(sig))), p2sh, script.Failure, script.LockP2SHClass, script.UnlockP2SHClass},
					{"p2sh-wrongscript", must(script.UnlockP2SH(p2pkh, sig)), p2sh, script.Failure, script.LockP2SHClass, script.UnlockP2SHClass},
					{"p2sh-multisig", must(script.UnlockP2SH(multi, sig, sig2)), p2shMulti, script.Success, script.LockP2SHClass, script.UnlockP2SHClass},
				}

				for _, c := range checks {
					result, _ := engine.Execute(ctx, c.unlock, c.lock)
					if result != c.result {
						t.Fatalf("\t%s\tTest %d:\tShould get %s for %s, got %s.", failed, testID, c.result, c.name, result)
					}
					t.Logf("\t%s\tTest %d:\tShould get %s for %s.", success, testID, c.result, c.name)

					if got := script.Classify(c.lock); got != c.lockC {
						t.Fatalf("\t%s\tTest %d:\tShould classify the %s lock as %s, got %s.", failed, testID, c.name, c.lockC, got)
					}
					if got := script.Classify(c.unlock); got != c.unlkC {
						t.Fatalf("\t%s\tTest %d:\tShould classify the %s unlock as %s, got %s.", failed, testID, c.name, c.unlkC, got)
					}
					t.Logf("\t%s\tTest %d:\tShould classify the %s scripts.", success, testID, c.name)
				}
			}

			t.Run(alg.String(), f)
		}
	}
}

func Test_AlgorithmSelector(t *testing.T) {
	ctx := script.Context{SigHash: hashes.Hash256([]byte("selector"))}
	keys := newKeys(t, signature.Schnorr, 1)
	sig := sign(t, signature.Schnorr, keys[0], ctx)
	must := mustBuild(t)

	var engine script.Engine

	t.Log("Given the need to select the signature algorithm from the script.")
	{
		lock := must(script.LockP2PK(signature.Schnorr, keys[0].pub))
		if lock[0] != byte(script.OP_ALG_SCHNORR) {
			t.Fatalf("\t%s\tShould start with the schnorr selector: %s", failed, lock)
		}
		t.Logf("\t%s\tShould start with the schnorr selector.", success)

		if result, _ := engine.Execute(ctx, must(script.UnlockP2PK(sig)), lock); result != script.Success {
			t.Fatalf("\t%s\tShould verify with the selected algorithm: %s", failed, result)
		}
		t.Logf("\t%s\tShould verify with the selected algorithm.", success)

		noSelector := must(script.NewBuilder().AddData(keys[0].pub).AddOp(script.OP_CHECKSIG).Script())
		if result, _ := engine.Execute(ctx, must(script.UnlockP2PK(sig)), noSelector); result != script.Failure {
			t.Fatalf("\t%s\tShould fail under the default algorithm: %s", failed, result)
		}
		t.Logf("\t%s\tShould fail under the default algorithm.", success)
	}
}

func Test_UnlockingCannotExit(t *testing.T) {
	ctx := script.Context{SigHash: hashes.Hash256([]byte("spending transaction"))}
	keys := newKeys(t, signature.ECDSA, 1)
	must := mustBuild(t)

	var engine script.Engine

	t.Log("Given the need to keep unlocking scripts from deciding the outcome.")
	{
		lock := must(script.LockP2PKH(signature.ECDSA, script.PublicKeyHash(keys[0].pub)))

		tt := []struct {
			name   string
			unlock script.Script
		}{
			{"exit", ops(script.OP_1, script.OP_EXIT)},
			{"return", ops(script.OP_1, script.OP_RETURN)},
			{"truncated", script.Script{byte(script.OP_PUSHDATA1), 4, 1}},
		}

		for testID, test := range tt {
			f := func(t *testing.T) {
				result, _ := engine.Execute(ctx, test.unlock, lock)
				if result != script.InvalidScript {
					t.Fatalf("\t%s\tTest %d:\tShould reject the unlocking script, got %s.", failed, testID, result)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the unlocking script.", success, testID)

				if script.IsPushOnly(test.unlock) {
					t.Fatalf("\t%s\tTest %d:\tShould not report the script as push only.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould not report the script as push only.", success, testID)
			}

			t.Run(test.name, f)
		}

		unlock := must(script.UnlockP2SH(lock, make([]byte, 64)))
		if !script.IsPushOnly(unlock) {
			t.Fatalf("\t%s\tShould treat standard unlocking scripts as push only.", failed)
		}
		t.Logf("\t%s\tShould treat standard unlocking scripts as push only.", success)
	}
}

func Test_Builders(t *testing.T) {
	must := mustBuild(t)

	t.Log("Given the need to build scripts with valid material only.")
	{
		if _, err := script.LockP2PKH(signature.ECDSA, make([]byte, 19)); err == nil {
			t.Fatalf("\t%s\tShould reject a short public key hash.", failed)
		}
		if _, err := script.LockP2SH(make([]byte, 32)); err == nil {
			t.Fatalf("\t%s\tShould reject a long script hash.", failed)
		}
		if _, err := script.LockMultiSig(signature.ECDSA, 3, [][]byte{make([]byte, 33), make([]byte, 33)}); err == nil {
			t.Fatalf("\t%s\tShould reject more required signatures than keys.", failed)
		}
		if _, err := script.NewBuilder().AddData(make([]byte, script.MaxElementSize+1)).Script(); err == nil {
			t.Fatalf("\t%s\tShould reject oversized data.", failed)
		}
		t.Logf("\t%s\tShould reject invalid material.", success)

		s := must(script.NewBuilder().AddInt(0).AddInt(16).AddInt(17).AddInt(-1).Script())
		exp := script.Script{byte(script.OP_0), byte(script.OP_16), byte(script.OP_PUSHDATA1), 1, 17, byte(script.OP_PUSHDATA1), 1, 0xff}
		if !bytes.Equal(s, exp) {
			t.Fatalf("\t%s\tShould encode small numbers compactly: got %x, exp %x", failed, s, exp)
		}
		t.Logf("\t%s\tShould encode small numbers compactly.", success)

		cb := must(script.CoinbaseScript(7, []byte("aux")))
		pushes, err := script.ParseOps(cb)
		if err != nil || len(pushes) != 2 || pushes[0].Data[0] != 7 || string(pushes[1].Data) != "aux" {
			t.Fatalf("\t%s\tShould carry the height and auxiliary data: %v", failed, pushes)
		}
		t.Logf("\t%s\tShould carry the height and auxiliary data.", success)
	}
}

func Test_Disassemble(t *testing.T) {
	must := mustBuild(t)

	t.Log("Given the need to render scripts for people.")
	{
		lock := must(script.LockP2PKH(signature.ECDSA, bytes.Repeat([]byte{0x11}, 20)))

		str, err := script.Disassemble(lock)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to disassemble: %s", failed, err)
		}

		exp := "OP_DUP OP_HASH160 OP_PUSHDATA1 0x" + strings.Repeat("11", 20) + " OP_EQUALVERIFY OP_CHECKSIG"
		if str != exp {
			t.Logf("\t%s\tgot: %s", failed, str)
			t.Logf("\t%s\texp: %s", failed, exp)
			t.Fatalf("\t%s\tShould render the expected mnemonics.", failed)
		}
		t.Logf("\t%s\tShould render the expected mnemonics.", success)

		if str, _ := script.Disassemble(script.Script{0x01}); str != "OP_UNKNOWN_0x01" {
			t.Fatalf("\t%s\tShould name unknown opcodes: %s", failed, str)
		}
		t.Logf("\t%s\tShould name unknown opcodes.", success)

		if _, err := script.Disassemble(script.Script{byte(script.OP_PUSHDATA1), 4, 1}); err == nil {
			t.Fatalf("\t%s\tShould reject a truncated push.", failed)
		}
		t.Logf("\t%s\tShould reject a truncated push.", success)

		if script.Classify(script.Script{0x01}) != script.NonStandard {
			t.Fatalf("\t%s\tShould classify garbage as non standard.", failed)
		}
		t.Logf("\t%s\tShould classify garbage as non standard.", success)
	}
}
