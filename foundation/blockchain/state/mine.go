package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block holding the payload with a
// proper hash that can become the next block in the chain. Mining runs
// against a snapshot of the chain without holding the lock. If the chain
// moved while mining, the block fails validation and is not written.
func (s *State) MineNewBlock(ctx context.Context, payload string) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	chain := s.RetrieveChain()

	args := database.POWArgs{
		PrevBlock:    chain.Latest(),
		Difficulty:   chain.NextDifficulty(),
		Transactions: []string{payload},
		EvHandler:    s.evHandler,
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: difficulty[%d]", args.Difficulty)

	block, err := database.POW(ctx, args)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	if err := s.appendBlock(block); err != nil {
		return database.Block{}, err
	}

	s.evHandler("viewer: block: mined: blk[%d]: hash[%s]", block.Index, block.Hash())

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it
// against the tip and if that passes, adds the block to the chain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: blk[%d]", block.Index)
	defer s.evHandler("state: ProcessProposedBlock: completed")

	if err := s.appendBlock(block); err != nil {
		return err
	}

	// Any mining in flight is now working on a stale tip.
	s.signalCancelMining()

	s.evHandler("viewer: block: accepted: blk[%d]: hash[%s]", block.Index, block.Hash())

	return nil
}

// =============================================================================

// appendBlock validates the block against the current tip and writes it to
// storage before swapping in the new chain snapshot.
func (s *State) appendBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, err := s.chain.Append(block, s.evHandler)
	if err != nil {
		return err
	}

	s.evHandler("state: appendBlock: write to storage: blk[%d]", block.Index)

	if err := s.storage.Write(block); err != nil {
		return fmt.Errorf("writing block %d: %w", block.Index, err)
	}

	s.chain = chain

	return nil
}
