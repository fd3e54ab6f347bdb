package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	indexmem "github.com/ardanlabs/ledger/foundation/blockchain/database/index/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type key struct {
	priv []byte
	pub  []byte
	lock script.Script
}

func newKey(t *testing.T) key {
	t.Helper()

	priv, pub, err := signature.GenerateKey(signature.ECDSA)
	if err != nil {
		t.Fatalf("generate key: %s", err)
	}

	lock, err := script.LockP2PKH(signature.ECDSA, script.PublicKeyHash(pub))
	if err != nil {
		t.Fatalf("lock: %s", err)
	}

	return key{priv: priv, pub: pub, lock: lock}
}

func newState(t *testing.T, miner key) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		MinerLock: miner.lock,
		Genesis: genesis.Genesis{
			Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ChainID:       1,
			Bits:          []byte{32, 0, 0, 255},
			TransPerBlock: 10,
			MiningReward:  700,
		},
		Storage:         memory.New(),
		Index:           indexmem.New(),
		Workers:         2,
		MineEmptyBlocks: true,
	})
	if err != nil {
		t.Fatalf("state: %s", err)
	}
	t.Cleanup(func() { st.Shutdown() })

	return st
}

func newMuxes(st *state.State) (http.Handler, http.Handler) {
	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New(),
		Origins:  []string{"*"},
	}

	return handlers.PublicMux(cfg), handlers.PrivateMux(cfg)
}

func call(mux http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	return w
}

// spend pays the first output of the transaction to the receiver.
func spend(t *testing.T, from key, prev database.Transaction, to key, amount uint64) database.Transaction {
	t.Helper()

	tx := database.Transaction{
		Version: database.TxVersion,
		Inputs:  []database.TxInput{{PrevTxID: prev.ID(), Vout: 0}},
		Outputs: []database.TxOutput{{Amount: amount, LockingScript: to.lock}},
	}

	sigHash := tx.SignatureHash()
	sig, err := signature.Sign(signature.ECDSA, from.priv, sigHash[:])
	if err != nil {
		t.Fatalf("sign: %s", err)
	}

	if tx.Inputs[0].UnlockingScript, err = script.UnlockP2PKH(sig, from.pub); err != nil {
		t.Fatalf("unlock: %s", err)
	}

	return tx
}

// =============================================================================

func Test_PublicAPI(t *testing.T) {
	miner := newKey(t)
	bob := newKey(t)
	st := newState(t, miner)
	pub, _ := newMuxes(st)

	block1, err := st.MineNewBlock(context.Background())
	if err != nil {
		t.Fatalf("mine: %s", err)
	}

	t.Log("Given the need to query and submit through the public api.")
	{
		w := call(pub, http.MethodGet, "/v1/blocks/latest", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould get the latest block: %d %s", failed, w.Code, w.Body)
		}

		var latest struct {
			Hash   hashes.Hash `json:"hash"`
			Height uint64      `json:"height"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &latest); err != nil {
			t.Fatalf("\t%s\tShould decode the latest block: %s", failed, err)
		}
		if latest.Hash != block1.Hash() || latest.Height != 1 {
			t.Fatalf("\t%s\tShould get the mined block: got %s at %d", failed, latest.Hash, latest.Height)
		}
		t.Logf("\t%s\tShould get the mined block as the latest block.", success)

		w = call(pub, http.MethodGet, "/v1/blocks/height/99", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould get 404 past the tip: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get 404 past the tip.", success)

		w = call(pub, http.MethodPost, "/v1/tx/submit", public.SubmitTx{Tx: []byte{1, 2, 3}})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a malformed transaction: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a malformed transaction.", success)

		w = call(pub, http.MethodPost, "/v1/tx/submit", public.SubmitTx{Tx: make([]byte, 2<<20)})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a body over the limit: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a body over the limit.", success)

		txs, err := block1.Transactions()
		if err != nil {
			t.Fatalf("transactions: %s", err)
		}

		greedy := spend(t, miner, txs[0], bob, 800)
		w = call(pub, http.MethodPost, "/v1/tx/submit", public.SubmitTx{Tx: greedy.Serialize()})
		var er errs.Response
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("\t%s\tShould decode the error response: %s", failed, err)
		}
		if w.Code != http.StatusBadRequest || er.Result != "TX_UNBALANCED" {
			t.Fatalf("\t%s\tShould reject an unbalanced spend with its result: %d %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould reject an unbalanced spend with its result.", success)

		tx := spend(t, miner, txs[0], bob, 700)

		w = call(pub, http.MethodPost, "/v1/tx/submit", public.SubmitTx{Tx: tx.Serialize()})
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould accept a valid spend: %d %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould accept a valid spend.", success)

		w = call(pub, http.MethodPost, "/v1/tx/submit", public.SubmitTx{Tx: tx.Serialize()})
		if w.Code != http.StatusConflict {
			t.Fatalf("\t%s\tShould get 409 on a resubmit: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get 409 on a resubmit.", success)

		w = call(pub, http.MethodGet, "/v1/tx/uncommitted/list", nil)
		var pool []json.RawMessage
		if err := json.Unmarshal(w.Body.Bytes(), &pool); err != nil || len(pool) != 1 {
			t.Fatalf("\t%s\tShould list one uncommitted transaction: %s", failed, w.Body)
		}
		t.Logf("\t%s\tShould list one uncommitted transaction.", success)

		r := httptest.NewRequest(http.MethodGet, "/v1/genesis", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		w = httptest.NewRecorder()
		pub.ServeHTTP(w, r)
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("\t%s\tShould set the CORS headers: %v", failed, w.Header())
		}
		t.Logf("\t%s\tShould set the CORS headers.", success)

		w = call(pub, http.MethodGet, "/v1/chain/verify", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould verify the chain: %d %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould verify the chain.", success)
	}
}

func Test_PrivateAPI(t *testing.T) {
	st := newState(t, newKey(t))
	replica := newState(t, newKey(t))
	_, prv := newMuxes(replica)

	block1, err := st.MineNewBlock(context.Background())
	if err != nil {
		t.Fatalf("mine: %s", err)
	}

	t.Log("Given the need to accept blocks proposed by another node.")
	{
		w := call(prv, http.MethodPost, "/v1/node/block/propose", private.ProposedBlock{Block: block1.Serialize()})
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould accept the proposed block: %d %s", failed, w.Code, w.Body)
		}
		if replica.RetrieveLatestBlock().Hash() != block1.Hash() {
			t.Fatalf("\t%s\tShould commit the proposed block.", failed)
		}
		t.Logf("\t%s\tShould accept and commit the proposed block.", success)

		w = call(prv, http.MethodPost, "/v1/node/block/propose", private.ProposedBlock{Block: block1.Serialize()})
		if w.Code != http.StatusNotAcceptable {
			t.Fatalf("\t%s\tShould get 406 for a block that does not extend the tip: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get 406 for a block that does not extend the tip.", success)

		w = call(prv, http.MethodGet, "/v1/node/status", nil)
		var status struct {
			Height     uint64      `json:"height"`
			LatestHash hashes.Hash `json:"latest_hash"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			t.Fatalf("\t%s\tShould decode the status: %s", failed, err)
		}
		if status.Height != 1 || status.LatestHash != block1.Hash() {
			t.Fatalf("\t%s\tShould report the new tip: %d %s", failed, status.Height, status.LatestHash)
		}
		t.Logf("\t%s\tShould report the new tip.", success)

		w = call(prv, http.MethodGet, "/v1/node/block/list/1/latest", nil)
		var blocks []json.RawMessage
		if err := json.Unmarshal(w.Body.Bytes(), &blocks); err != nil || len(blocks) != 1 {
			t.Fatalf("\t%s\tShould list one block: %s", failed, w.Body)
		}
		t.Logf("\t%s\tShould list the blocks after genesis.", success)
	}
}
