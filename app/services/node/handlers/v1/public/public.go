// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/validator"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// defaultBlockCount is how many blocks the list endpoint returns when no
// count is provided.
const defaultBlockCount = 10

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
	NS    *nameservice.NameService
}

// Events handles a web socket to provide events to a client. Repeated
// prefix query values limit the events to those starting with one of them.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query()["prefix"]...)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	blk := h.State.RetrieveGenesisBlock()

	resp := genesis{
		Hash:          blk.Hash(),
		Data:          string(blk.Data),
		ChainID:       gen.ChainID,
		Bits:          gen.Bits.String(),
		MiningReward:  gen.MiningReward,
		TransPerBlock: gen.TransPerBlock,
		Maturity:      gen.CoinbaseMaturity,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// LatestBlock returns the latest block in the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height := h.State.RetrieveHeight()

	blk, err := h.State.RetrieveBlockByHeight(height)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toBlock(blk, height), http.StatusOK)
}

// Blocks returns the latest blocks in the chain, newest first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	count := defaultBlockCount
	if param := web.Param(r, "count"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || n <= 0 {
			return errs.NewTrusted(fmt.Errorf("invalid count %q", param), http.StatusBadRequest)
		}
		count = n
	}

	height := h.State.RetrieveHeight()
	dbBlocks, err := h.State.RetrieveBlocks(count)
	if err != nil {
		return err
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(blk, height-uint64(i))
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := hashes.FromHex(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blk, height, err := h.State.RetrieveBlockByHash(hash)
	if err != nil {
		if state.IsNotFound(err) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(blk, height), http.StatusOK)
}

// BlockByHeight returns the block at the specified height.
func (h Handlers) BlockByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blk, err := h.State.RetrieveBlockByHeight(height)
	if err != nil {
		if state.IsNotFound(err) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(blk, height), http.StatusOK)
}

// VerifyChain walks the chain and reports the first broken link.
func (h Handlers) VerifyChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Valid  bool   `json:"valid"`
		Height uint64 `json:"height"`
		Error  string `json:"error,omitempty"`
	}{
		Valid:  true,
		Height: h.State.RetrieveHeight(),
	}

	if err := h.State.VerifyChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining signals to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("mining is not enabled"), http.StatusServiceUnavailable)
	}

	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Names returns the known wallet names keyed by public key hash.
func (h Handlers) Names(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.NS == nil {
		return web.Respond(ctx, w, map[string]string{}, http.StatusOK)
	}
	return web.Respond(ctx, w, h.NS.Copy(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.State.RetrieveMempool()), http.StatusOK)
}

// TransactionProof returns a committed transaction with the merkle proof of
// its inclusion in its block.
func (h Handlers) TransactionProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID, err := hashes.FromHex(web.Param(r, "id"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	t, blk, prf, err := h.State.RetrieveTransactionProof(txID)
	if err != nil {
		if state.IsNotFound(err) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp := proof{
		Tx:         toTx(t),
		BlockHash:  blk.Hash(),
		MerkleRoot: blk.Header.MerkleRoot,
		Proof:      prf,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a new signed transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req SubmitTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	tx, err := database.DecodeTransaction(req.Tx)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode transaction: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx.ID(), "inputs", len(tx.Inputs), "outputs", len(tx.Outputs))

	if err := h.State.SubmitTransaction(tx); err != nil {
		var rej *validator.Rejection
		switch {
		case errors.As(err, &rej):
			return errs.NewRejected(rej, http.StatusBadRequest)
		case errors.Is(err, mempool.ErrExists), errors.Is(err, mempool.ErrConflict):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	resp := struct {
		Status string        `json:"status"`
		ID     hashes.Hash   `json:"id"`
		Tx     hexutil.Bytes `json:"tx"`
	}{
		Status: "transaction added to mempool",
		ID:     tx.ID(),
		Tx:     req.Tx,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
