package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node"

// client is used for all node to node requests.
var client = http.Client{
	Timeout: 30 * time.Second,
}

// NetSendBlockToPeers takes the new mined block and proposes it to all known
// peers. A peer that rejects the block is sent the full chain so it can
// decide by cumulative work.
func (s *State) NetSendBlockToPeers(block database.Block) {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	for _, pr := range s.RetrieveKnownPeers() {
		url := fmt.Sprintf("%s/block/propose", fmt.Sprintf(baseURL, pr.Host))

		if err := send(http.MethodPost, url, block, nil); err != nil {
			s.evHandler("state: NetSendBlockToPeers: peer[%s]: rejected: %s", pr, err)
			s.netSendChain(pr, s.RetrieveChain().Blocks())
			continue
		}

		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr)
	}
}

// NetSendChainToPeers sends the full local chain to all known peers.
func (s *State) NetSendChainToPeers() {
	s.evHandler("state: NetSendChainToPeers: started")
	defer s.evHandler("state: NetSendChainToPeers: completed")

	blocks := s.RetrieveChain().Blocks()
	for _, pr := range s.RetrieveKnownPeers() {
		s.netSendChain(pr, blocks)
	}
}

// NetSendPeersToPeers tells every known peer about every other known peer
// and about this node.
func (s *State) NetSendPeersToPeers() {
	s.evHandler("state: NetSendPeersToPeers: started")
	defer s.evHandler("state: NetSendPeersToPeers: completed")

	knownPeers := s.RetrieveKnownPeers()
	announce := append(slices.Clone(knownPeers), peer.New(s.host))

	for _, pr := range knownPeers {
		for _, other := range announce {
			if other.Match(pr.Host) {
				continue
			}

			if err := s.NetRequestAddPeer(pr, other); err != nil {
				s.evHandler("state: NetSendPeersToPeers: peer[%s]: WARNING: %s", pr, err)
				break
			}
		}
	}
}

// NetRequestPeerStatus looks for new nodes on the blockchain by asking
// known nodes for their peer list and chain status.
func (s *State) NetRequestPeerStatus(pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var ps peer.PeerStatus
	if err := send(http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: latest-blkidx[%d]: work[%s]: peer-list[%s]", pr, ps.LatestBlockIndex, ps.CumulativeWork, ps.KnownPeers)

	return ps, nil
}

// NetRequestPeerChain asks the specified peer for its full chain.
func (s *State) NetRequestPeerChain(pr peer.Peer) ([]database.Block, error) {
	s.evHandler("state: NetRequestPeerChain: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerChain: completed: %s", pr)

	url := fmt.Sprintf("%s/chain", fmt.Sprintf(baseURL, pr.Host))

	var blocks []database.Block
	if err := send(http.MethodGet, url, nil, &blocks); err != nil {
		return nil, err
	}

	s.evHandler("state: NetRequestPeerChain: found blocks[%d]", len(blocks))

	return blocks, nil
}

// NetRequestAddPeer asks the specified peer to add a node to its known peers.
func (s *State) NetRequestAddPeer(pr peer.Peer, add peer.Peer) error {
	url := fmt.Sprintf("%s/peers", fmt.Sprintf(baseURL, pr.Host))
	return send(http.MethodPost, url, add, nil)
}

// =============================================================================

// netSendChain posts the blocks to the peer. A peer keeping its own chain is
// not an error worth more than a log entry.
func (s *State) netSendChain(pr peer.Peer, blocks []database.Block) {
	url := fmt.Sprintf("%s/chain", fmt.Sprintf(baseURL, pr.Host))

	if err := send(http.MethodPost, url, blocks, nil); err != nil {
		s.evHandler("state: netSendChain: peer[%s]: kept its chain: %s", pr, err)
		return
	}

	s.evHandler("state: netSendChain: peer[%s]: replaced its chain", pr)
}

// send is a helper function to send an HTTP request to a node.
func send(method string, url string, dataSend any, dataRecv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		req, err = http.NewRequest(method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

	default:
		var err error
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return err
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %w", resp.StatusCode, errors.New(string(bytes.TrimSpace(msg))))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
