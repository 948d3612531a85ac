package state

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveChain returns the current chain snapshot.
func (s *State) RetrieveChain() database.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.RetrieveChain().Latest()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status of this node as reported to peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	chain := s.RetrieveChain()
	latest := chain.Latest()

	return peer.PeerStatus{
		LatestBlockHash:  latest.Hash(),
		LatestBlockIndex: latest.Index,
		ChainLength:      chain.Len(),
		CumulativeWork:   chain.Work().Dec(),
		KnownPeers:       s.RetrieveKnownPeers(),
	}
}

// =============================================================================

// AddKnownPeer provides the ability to add a new peer to the known peer
// list. It returns false when the peer is already known or is this node.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}
	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
