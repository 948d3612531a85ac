package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// maxMiningAttempts bounds how many times a payload is mined again after
// the chain moved underneath the mining operation.
const maxMiningAttempts = 10

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case payload := <-w.mining:
			if !w.isShutdown() {
				w.runMiningOperation(payload)
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the payload into a new block and proposes the
// block to the network. When the tip changed while mining, either because
// mining was cancelled or the block no longer extends the tip, the payload
// is mined again on the new tip.
func (w *Worker) runMiningOperation(payload string) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	for attempt := 1; attempt <= maxMiningAttempts; attempt++ {
		ctx, cancel := context.WithCancel(context.Background())

		w.mu.Lock()
		w.cancelMining = cancel
		w.mu.Unlock()

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx, payload)
		duration := time.Since(t)

		w.mu.Lock()
		w.cancelMining = nil
		w.mu.Unlock()
		cancel()

		w.evHandler("worker: runMiningOperation: MINING: attempt[%d]: mining duration[%v]", attempt, duration)

		switch {
		case err == nil:

			// WOW, we mined a block. Propose the new block to the network
			// and let the peers know about each other.
			w.state.NetSendBlockToPeers(block)
			w.state.NetSendPeersToPeers()
			return

		case w.isShutdown():
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
			return

		case errors.Is(err, context.Canceled),
			errors.Is(err, database.ErrIndexMismatch),
			errors.Is(err, database.ErrBrokenLinkage):
			w.evHandler("worker: runMiningOperation: MINING: chain changed, mining again: %s", err)
			continue

		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			return
		}
	}

	w.evHandler("worker: runMiningOperation: MINING: WARNING: payload dropped after %d attempts", maxMiningAttempts)
}
