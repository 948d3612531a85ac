// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/web"
	"go.uber.org/zap"
)

// Limits on the size of request bodies sent by peers.
const (
	maxChainBytes   = 32 << 20
	maxMessageBytes = 1 << 20
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Chain returns every block of the local chain, genesis first.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain().Blocks(), http.StatusOK)
}

// SubmitChain takes a chain from a peer and replaces the local chain with it
// when it is valid and heavier.
func (h Handlers) SubmitChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChainBytes)

	var blocks []database.Block
	if err := web.Decode(r, &blocks); err != nil {
		return errs.BadRequest(err)
	}

	h.Log.Infow("submit chain", "traceid", v.TraceID, "blocks", len(blocks))

	if _, err := h.State.ReplaceChain(blocks); err != nil {
		return errs.NewTrusted(err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "replaced",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.BadRequest(err)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain.
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return errs.NewTrusted(err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the known peers of this node.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers := h.State.RetrieveKnownPeers()
	if peers == nil {
		peers = []peer.Peer{}
	}

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// SubmitPeer is called by a node so they can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return errs.BadRequest(err)
	}

	if h.State.AddKnownPeer(pr) {
		h.Log.Infow("adding peer", "traceid", v.TraceID, "host", pr.Host)
		h.State.Worker.SignalPeerUpdates()
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
