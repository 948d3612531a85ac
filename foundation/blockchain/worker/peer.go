package worker

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/validate"
	"github.com/holiman/uint256"
)

// peerOperations handles finding new peers and heavier chains.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.peerUpdates:
			if !w.isShutdown() {
				w.runPeerUpdatesOperation()
			}
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeerUpdatesOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// Sync announces this node to the known peers and then pulls in their peers
// and any heavier chain.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	host := peer.New(w.state.RetrieveHost())
	for _, pr := range w.state.RetrieveKnownPeers() {
		if err := w.state.NetRequestAddPeer(pr, host); err != nil {
			w.evHandler("worker: sync: announce: %s: ERROR: %s", pr.Host, err)
		}
	}

	w.runPeerUpdatesOperation()
}

// runPeerUpdatesOperation asks every known peer for its status, learns the
// peers it knows and replaces the local chain when the peer reports more
// cumulative work.
func (w *Worker) runPeerUpdatesOperation() {
	w.evHandler("worker: runPeerUpdatesOperation: started")
	defer w.evHandler("worker: runPeerUpdatesOperation: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: runPeerUpdatesOperation: NetRequestPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		peerWork, err := uint256.FromDecimal(peerStatus.CumulativeWork)
		if err != nil {
			w.evHandler("worker: runPeerUpdatesOperation: %s: ERROR: bad cumulative work %q: %s", pr.Host, peerStatus.CumulativeWork, err)
			continue
		}

		// If this peer has more work than we do, its chain may replace ours.
		if !peerWork.Gt(w.state.RetrieveChain().Work()) {
			continue
		}

		w.evHandler("worker: runPeerUpdatesOperation: %s: peer work[%s]: requesting chain", pr.Host, peerWork.Dec())

		blocks, err := w.state.NetRequestPeerChain(pr)
		if err != nil {
			w.evHandler("worker: runPeerUpdatesOperation: NetRequestPeerChain: %s: ERROR: %s", pr.Host, err)
			continue
		}

		if _, err := w.state.ReplaceChain(blocks); err != nil {
			w.evHandler("worker: runPeerUpdatesOperation: ReplaceChain: %s: kept local chain: %s", pr.Host, err)
		}
	}
}

// addNewPeers takes the list of known peers and makes sure they are included
// in the nodes list of know peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	w.evHandler("worker: runPeerUpdatesOperation: addNewPeers: started")
	defer w.evHandler("worker: runPeerUpdatesOperation: addNewPeers: completed")

	for _, pr := range knownPeers {
		if err := validate.Check(pr); err != nil {
			w.evHandler("worker: runPeerUpdatesOperation: addNewPeers: skipping peer-node %q: %s", pr.Host, err)
			continue
		}

		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: runPeerUpdatesOperation: addNewPeers: add peer nodes: adding peer-node %s", pr)
		}
	}
}
