// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and chain sharing.
type Worker interface {
	Shutdown()
	SignalStartMining(payload string) bool
	SignalCancelMining()
	SignalShareChain()
	SignalPeerUpdates()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	Genesis    genesis.Genesis
	Storage    database.Storage
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the blockchain. The chain is held as an immutable snapshot
// that is swapped under the lock, so readers never observe a partial update.
type State struct {
	mu        sync.RWMutex
	host      string
	evHandler EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	storage    database.Storage
	chain      database.Chain

	Worker Worker
}

// New constructs a new blockchain for data management. Blocks found in the
// storage are validated and become the chain. An empty storage starts a new
// chain from the genesis information.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	blocks, err := cfg.Storage.ReadAll()
	if err != nil {
		return nil, err
	}

	var chain database.Chain
	switch len(blocks) {
	case 0:
		date := cfg.Genesis.Date
		if date.IsZero() {
			date = time.Now()
		}

		gen := database.NewGenesis(date, cfg.Genesis.InitialDifficulty())
		if err := cfg.Storage.Write(gen); err != nil {
			return nil, err
		}
		chain = database.NewChain(gen)

		ev("state: New: created genesis: blk[%s]", gen.Hash())

	default:
		chain, err = database.ToChain(blocks, ev)
		if err != nil {
			return nil, err
		}

		ev("state: New: loaded chain: blocks[%d]: tip[%s]", chain.Len(), chain.Latest().Hash())
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.
	state := State{
		host:       cfg.Host,
		evHandler:  ev,
		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		storage:    cfg.Storage,
		chain:      chain,
	}

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database file is properly closed.
	defer func() {
		s.storage.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// signalCancelMining stops a mining operation in flight since the tip it is
// working against just changed.
func (s *State) signalCancelMining() {
	if s.Worker != nil {
		s.Worker.SignalCancelMining()
	}
}
