// Package worker implements mining, peer updates, and chain sharing for
// the blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval of finding new peer nodes
// and pulling heavier chains from them.
const peerUpdateInterval = time.Minute

// maxMiningRequests represents the max number of payloads that can wait to
// be mined before new requests are dropped.
const maxMiningRequests = 100

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	ticker      *time.Ticker
	shut        chan struct{}
	mining      chan string
	peerUpdates chan bool
	shareChain  chan bool
	evHandler   state.EventHandler

	mu           sync.Mutex
	cancelMining context.CancelFunc
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:       st,
		ticker:      time.NewTicker(peerUpdateInterval),
		shut:        make(chan struct{}),
		mining:      make(chan string, maxMiningRequests),
		peerUpdates: make(chan bool, 1),
		shareChain:  make(chan bool, 1),
		evHandler:   evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
		w.shareOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.wg.Wait()
}

// SignalStartMining queues the payload to be mined into a new block. It
// returns false when the queue is full and the payload was dropped.
func (w *Worker) SignalStartMining(payload string) bool {
	select {
	case w.mining <- payload:
		w.evHandler("worker: SignalStartMining: mining signaled")
		return true
	default:
		w.evHandler("worker: SignalStartMining: queue full, payload won't be mined")
		return false
	}
}

// SignalCancelMining stops the mining operation in flight, if any. The
// mining G decides whether the payload is mined again.
func (w *Worker) SignalCancelMining() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelMining != nil {
		w.cancelMining()
		w.evHandler("worker: SignalCancelMining: cancel mining signaled")
	}
}

// SignalShareChain queues up a share chain operation. If one is already
// pending there is nothing more to do.
func (w *Worker) SignalShareChain() {
	select {
	case w.shareChain <- true:
		w.evHandler("worker: SignalShareChain: share chain signaled")
	default:
	}
}

// SignalPeerUpdates requests an immediate peer update outside the ticker.
func (w *Worker) SignalPeerUpdates() {
	select {
	case w.peerUpdates <- true:
	default:
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
