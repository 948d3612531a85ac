package worker

// shareOperations handles sharing the local chain and peer list with
// the network.
func (w *Worker) shareOperations() {
	w.evHandler("worker: shareOperations: G started")
	defer w.evHandler("worker: shareOperations: G completed")

	for {
		select {
		case <-w.shareChain:
			if !w.isShutdown() {
				w.runShareChainOperation()
			}
		case <-w.shut:
			w.evHandler("worker: shareOperations: received shut signal")
			return
		}
	}
}

// runShareChainOperation sends the chain and then the known peers to every
// known peer.
func (w *Worker) runShareChainOperation() {
	w.evHandler("worker: runShareChainOperation: started")
	defer w.evHandler("worker: runShareChainOperation: completed")

	w.state.NetSendChainToPeers()
	w.state.NetSendPeersToPeers()
}
