// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/validator"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// ProposedBlock is the payload for handing a serialized block to a node.
type ProposedBlock struct {
	Block hexutil.Bytes `json:"block" validate:"required"`
}

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// ProposeBlock takes a block received from another node, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req ProposedBlock
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	block, err := database.DecodeBlock(req.Block)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode block: %w", err), http.StatusBadRequest)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	if err := h.State.ProcessBlock(block); err != nil {
		h.Log.Infow("propose block", "traceid", v.TraceID, "block", block.Hash(), "ERROR", err)

		var rej *validator.Rejection
		if errors.As(err, &rej) {
			return errs.NewRejected(rej, http.StatusNotAcceptable)
		}
		return errs.NewTrusted(fmt.Errorf("block not accepted: %w", err), http.StatusNotAcceptable)
	}

	resp := struct {
		Status string      `json:"status"`
		Hash   hashes.Hash `json:"hash"`
		Height uint64      `json:"height"`
	}{
		Status: "accepted",
		Hash:   block.Hash(),
		Height: h.State.RetrieveHeight(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()

	status := struct {
		Height      uint64        `json:"height"`
		LatestHash  hashes.Hash   `json:"latest_hash"`
		Uncommitted int           `json:"uncommitted"`
		Mining      *worker.Stats `json:"mining,omitempty"`
	}{
		Height:      h.State.RetrieveHeight(),
		LatestHash:  latest.Hash(),
		Uncommitted: h.State.QueryMempoolLength(),
	}

	// Mining stats are only available when this node runs a worker.
	if w, ok := h.State.Worker.(*worker.Worker); ok {
		stats := w.Stats()
		status.Mining = &stats
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByHeight returns all the serialized blocks between the provided
// heights inclusive.
func (h Handlers) BlocksByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := strconv.ParseUint(web.Param(r, "from"), 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to := h.State.RetrieveHeight()
	if param := web.Param(r, "to"); param != "latest" {
		if to, err = strconv.ParseUint(param, 10, 64); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	var blocks []hexutil.Bytes
	for height := from; height <= to; height++ {
		blk, err := h.State.RetrieveBlockByHeight(height)
		if err != nil {
			if state.IsNotFound(err) {
				break
			}
			return err
		}
		blocks = append(blocks, blk.Serialize())
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}
