// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// blankPayload is mined when a GET to the mine endpoint carries no text.
const blankPayload = "Blank"

// maxMineBytes bounds the body of a mine request.
const maxMineBytes = 64 << 10

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log        *zap.SugaredLogger
	State      *state.State
	Evts       *events.Events
	PrivateKey *ecdsa.PrivateKey
	WS         websocket.Upgrader
}

// Events handles a web socket to provide events to a client.
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

	ch := h.Evts.Acquire(v.TraceID)
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
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Chain returns every block of the local chain, genesis first.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain().Blocks(), http.StatusOK)
}

// Status returns the tip and weight of the local chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()
	latest := chain.Latest()

	resp := status{
		LatestBlockHash:  latest.Hash(),
		LatestBlockIndex: latest.Index,
		ChainLength:      chain.Len(),
		CumulativeWork:   chain.Work().Dec(),
		NextDifficulty:   chain.NextDifficulty(),
		EncodingVersion:  database.EncodingVersion,
		KnownPeers:       h.State.RetrieveKnownPeers(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine annotates the text with the node key and queues it to be mined into
// a new block. A GET takes the text from the query string, a POST from the
// JSON body.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var text string
	switch r.Method {
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxMineBytes)

		var req mineRequest
		if err := web.Decode(r, &req); err != nil {
			return errs.BadRequest(err)
		}
		text = req.Text

	default:
		text = r.URL.Query().Get("text")
		if text == "" {
			text = blankPayload
		}
	}

	payload, err := signature.AnnotatePayload(text, h.PrivateKey)
	if err != nil {
		return err
	}

	h.Log.Infow("mine", "traceid", v.TraceID, "payload", payload)

	if !h.State.Worker.SignalStartMining(payload) {
		return errs.NewTrusted(errors.New("mining queue is full"), http.StatusServiceUnavailable)
	}

	resp := actResponse{
		Status:  "mining signaled",
		Payload: payload,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Broadcast shares the local chain and peer list with every known peer.
func (h Handlers) Broadcast(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalShareChain()

	resp := actResponse{
		Status: "broadcast signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Preflight answers CORS preflight requests. The headers are set by the
// Cors middleware.
func (h Handlers) Preflight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
