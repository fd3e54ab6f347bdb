package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	indexmem "github.com/ardanlabs/ledger/foundation/blockchain/database/index/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func Test_Mining(t *testing.T) {
	priv, pub, err := signature.GenerateKey(signature.ECDSA)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key: %s", failed, err)
	}

	lock, err := script.LockP2PKH(signature.ECDSA, script.PublicKeyHash(pub))
	if err != nil {
		t.Fatalf("\t%s\tShould be able to build a locking script: %s", failed, err)
	}

	st, err := state.New(state.Config{
		MinerLock: lock,
		Genesis: genesis.Genesis{
			Date:          time.Now(),
			ChainID:       1,
			Bits:          []byte{32, 0, 0, 255},
			TransPerBlock: 10,
			MiningReward:  50,
		},
		Storage:         memory.New(),
		Index:           indexmem.New(),
		Workers:         2,
		MineEmptyBlocks: true,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}

	w := worker.Run(st, nil)
	defer st.Shutdown()

	t.Log("Given the need to mine in the background.")
	{
		w.SignalStartMining()
		if !waitFor(func() bool { return st.RetrieveHeight() == 1 }) {
			t.Fatalf("\t%s\tShould mine a block when signaled.", failed)
		}
		t.Logf("\t%s\tShould mine a block when signaled.", success)

		txs, err := st.RetrieveLatestBlock().Transactions()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to decode the block: %s", failed, err)
		}

		tx := database.Transaction{
			Version: database.TxVersion,
			Inputs:  []database.TxInput{{PrevTxID: txs[0].ID(), Vout: 0}},
			Outputs: []database.TxOutput{{Amount: 50, LockingScript: lock}},
		}
		sigHash := tx.SignatureHash()
		sig, err := signature.Sign(signature.ECDSA, priv, sigHash[:])
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign: %s", failed, err)
		}
		if tx.Inputs[0].UnlockingScript, err = script.UnlockP2PKH(sig, pub); err != nil {
			t.Fatalf("\t%s\tShould be able to build an unlocking script: %s", failed, err)
		}

		if err := st.SubmitTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould accept the transaction: %s", failed, err)
		}

		if !waitFor(func() bool { return st.QueryMempoolLength() == 0 && st.RetrieveHeight() >= 2 }) {
			t.Fatalf("\t%s\tShould mine submitted transactions.", failed)
		}
		t.Logf("\t%s\tShould mine submitted transactions.", success)

		if _, _, err := st.RetrieveTransaction(tx.ID()); err != nil {
			t.Fatalf("\t%s\tShould find the mined transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould find the mined transaction.", success)

		if !waitFor(func() bool { return w.Stats().Mined >= 2 }) {
			t.Fatalf("\t%s\tShould count the mined blocks: %+v", failed, w.Stats())
		}
		if stats := w.Stats(); stats.Failed != 0 {
			t.Fatalf("\t%s\tShould count the mined blocks: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould count the mined blocks.", success)
	}
}
