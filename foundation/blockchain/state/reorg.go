package state

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// ReplaceChain swaps the local chain for the candidate when the candidate is
// valid and carries more cumulative work. The storage is rewritten to match
// the new chain. When the chain is kept, the reason is returned.
func (s *State) ReplaceChain(candidate []database.Block) (bool, error) {
	s.evHandler("state: ReplaceChain: started: blocks[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	chain, replaced, err := database.ReplaceIfHeavier(s.chain, candidate, s.evHandler)
	if !replaced {
		return false, err
	}

	if err := s.rewriteStorage(chain); err != nil {

		// Put back what was there so storage and memory agree.
		if rerr := s.rewriteStorage(s.chain); rerr != nil {
			s.evHandler("state: ReplaceChain: ERROR: restoring storage: %s", rerr)
		}
		return false, fmt.Errorf("rewriting storage: %w", err)
	}

	s.chain = chain

	s.signalCancelMining()

	s.evHandler("viewer: chain: replaced: blocks[%d]: work[%s]", chain.Len(), chain.Work().Dec())

	return true, nil
}

// rewriteStorage resets the storage and writes every block of the chain.
func (s *State) rewriteStorage(chain database.Chain) error {
	if err := s.storage.Reset(); err != nil {
		return err
	}

	for _, block := range chain.Blocks() {
		if err := s.storage.Write(block); err != nil {
			return err
		}
	}

	return nil
}
