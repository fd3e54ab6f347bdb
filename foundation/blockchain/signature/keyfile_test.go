package signature_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

func Test_KeyFile(t *testing.T) {
	dir := t.TempDir()

	t.Log("Given the need to store private keys on disk.")
	{
		for testID, alg := range []signature.Algorithm{signature.ECDSA, signature.Schnorr, signature.Ed25519} {
			t.Logf("\tTest %d:\tWhen handling %s keys.", testID, alg)
			{
				priv, _, err := signature.GenerateKey(alg)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %s", failed, testID, err)
				}

				path := filepath.Join(dir, "key"+alg.KeyExtension())
				if err := signature.SaveKey(path, alg, priv); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to save the key: %s", failed, testID, err)
				}

				gotAlg, got, err := signature.LoadKey(path)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %s", failed, testID, err)
				}

				if gotAlg != alg || !bytes.Equal(got, priv) {
					t.Fatalf("\t%s\tTest %d:\tShould load the same key back.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould load the same key back.", success, testID)
			}
		}

		if _, _, err := signature.LoadKey(filepath.Join(dir, "key.rsa")); err == nil {
			t.Fatalf("\t%s\tShould reject an unknown key extension.", failed)
		}
		t.Logf("\t%s\tShould reject an unknown key extension.", success)

		var alg signature.Algorithm
		if err := alg.UnmarshalText([]byte("schnorr")); err != nil || alg != signature.Schnorr {
			t.Fatalf("\t%s\tShould parse algorithm names ignoring case.", failed)
		}
		t.Logf("\t%s\tShould parse algorithm names ignoring case.", success)
	}
}
