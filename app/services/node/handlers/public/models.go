package public

import "github.com/ardanlabs/powchain/foundation/blockchain/peer"

// mineRequest is the body of a POST to the mine endpoint.
type mineRequest struct {
	Text string `json:"text" validate:"required,max=1024"`
}

type status struct {
	LatestBlockHash  string      `json:"latest_block_hash"`
	LatestBlockIndex uint64      `json:"latest_block_index"`
	ChainLength      int         `json:"chain_length"`
	CumulativeWork   string      `json:"cumulative_work"`
	NextDifficulty   uint        `json:"next_difficulty"`
	EncodingVersion  int         `json:"encoding_version"`
	KnownPeers       []peer.Peer `json:"known_peers"`
}

type actResponse struct {
	Status  string `json:"status"`
	Payload string `json:"payload,omitempty"`
}
