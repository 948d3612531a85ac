package database

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Chain is an immutable snapshot of an ordered set of blocks starting with a
// genesis block. Append returns a new snapshot so a Chain value that has been
// handed out never changes.
type Chain struct {
	blocks []Block
}

// NewChain constructs a chain holding only the specified genesis block.
func NewChain(genesis Block) Chain {
	return Chain{blocks: []Block{genesis.Clone()}}
}

// ToChain validates the specified blocks and returns them as a chain.
func ToChain(blocks []Block, evHandler func(v string, args ...any)) (Chain, error) {
	if err := ValidateChain(blocks, evHandler); err != nil {
		return Chain{}, err
	}

	return Chain{blocks: cloneBlocks(blocks)}, nil
}

// Blocks returns a copy of the blocks in the chain.
func (c Chain) Blocks() []Block {
	return cloneBlocks(c.blocks)
}

// Latest returns the tip of the chain.
func (c Chain) Latest() Block {
	if len(c.blocks) == 0 {
		return Block{}
	}
	return c.blocks[len(c.blocks)-1].Clone()
}

// Genesis returns the first block of the chain.
func (c Chain) Genesis() Block {
	if len(c.blocks) == 0 {
		return Block{}
	}
	return c.blocks[0].Clone()
}

// Len returns the number of blocks in the chain.
func (c Chain) Len() int {
	return len(c.blocks)
}

// Block returns the block at the specified index.
func (c Chain) Block(index uint64) (Block, bool) {
	if index >= uint64(len(c.blocks)) {
		return Block{}, false
	}
	return c.blocks[index].Clone(), true
}

// Work returns the cumulative work of the chain.
func (c Chain) Work() *uint256.Int {
	return CumulativeWork(c.blocks)
}

// NextDifficulty returns the difficulty the next block must be mined at.
func (c Chain) NextDifficulty() uint {
	return RequiredDifficulty(c.blocks, c.Genesis().Difficulty)
}

// Append validates the block against the tip and returns a new chain with
// the block added. On failure the original chain is returned unchanged.
func (c Chain) Append(block Block, evHandler func(v string, args ...any)) (Chain, error) {
	if len(c.blocks) == 0 {
		return c, ErrEmptyChain
	}

	if err := block.ValidateBlock(c.blocks[len(c.blocks)-1], evHandler); err != nil {
		return c, err
	}

	// A fresh backing array keeps earlier snapshots untouched.
	blocks := make([]Block, len(c.blocks), len(c.blocks)+1)
	copy(blocks, c.blocks)
	blocks = append(blocks, block.Clone())

	return Chain{blocks: blocks}, nil
}

// =============================================================================

// ValidateChain checks every block against its predecessor. The genesis block
// carries no proof and is only checked for the shape NewGenesis gives it.
// Validation stops at the first failure.
func ValidateChain(blocks []Block, evHandler func(v string, args ...any)) error {
	ev := safeEv(evHandler)

	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	if err := validateGenesis(blocks[0]); err != nil {
		return err
	}

	ev("database: ValidateChain: started: blocks[%d]", len(blocks))

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], ev); err != nil {
			return fmt.Errorf("position %d: %w", i, err)
		}
	}

	return nil
}

// validateGenesis checks the block has the shape of a block built by
// NewGenesis.
func validateGenesis(gen Block) error {
	switch {
	case gen.Index != 0:
		return fmt.Errorf("%w: index %d", ErrInvalidGenesis, gen.Index)
	case gen.PrevBlockHash != GenesisPrevHash:
		return fmt.Errorf("%w: previous hash %q", ErrInvalidGenesis, gen.PrevBlockHash)
	case len(gen.Transactions) != 0:
		return fmt.Errorf("%w: %d transactions", ErrInvalidGenesis, len(gen.Transactions))
	case gen.Difficulty > MaxDifficulty:
		return fmt.Errorf("%w: difficulty %d above %d", ErrInvalidGenesis, gen.Difficulty, MaxDifficulty)
	}

	return nil
}

// CumulativeWork returns the sum of 2^difficulty over the blocks. This is
// the weight used to choose between chains, not their length.
func CumulativeWork(blocks []Block) *uint256.Int {
	total := new(uint256.Int)

	one := uint256.NewInt(1)
	for _, block := range blocks {
		var work uint256.Int
		work.Lsh(one, block.Difficulty)
		total.Add(total, &work)
	}

	return total
}

// ReplaceIfHeavier returns the candidate as the new chain when it is valid,
// starts from the local genesis block and carries strictly more cumulative
// work than the local chain. Otherwise the local chain is returned with the
// reason it was kept.
func ReplaceIfHeavier(local Chain, candidate []Block, evHandler func(v string, args ...any)) (Chain, bool, error) {
	ev := safeEv(evHandler)

	ev("database: ReplaceIfHeavier: started: local[%d]: candidate[%d]", local.Len(), len(candidate))

	if err := ValidateChain(candidate, ev); err != nil {
		return local, false, err
	}

	if local.Len() > 0 && candidate[0].Hash() != local.Genesis().Hash() {
		return local, false, fmt.Errorf("%w: candidate genesis %s, local genesis %s", ErrInvalidGenesis, candidate[0].Hash(), local.Genesis().Hash())
	}

	localWork := local.Work()
	candidateWork := CumulativeWork(candidate)
	if !candidateWork.Gt(localWork) {
		return local, false, fmt.Errorf("%w: local %s, candidate %s", ErrNotHeavier, localWork.Dec(), candidateWork.Dec())
	}

	ev("database: ReplaceIfHeavier: replaced: local work[%s]: candidate work[%s]", localWork.Dec(), candidateWork.Dec())

	return Chain{blocks: cloneBlocks(candidate)}, true, nil
}

// cloneBlocks performs a deep copy of the blocks.
func cloneBlocks(blocks []Block) []Block {
	cp := make([]Block, len(blocks))
	for i, block := range blocks {
		cp[i] = block.Clone()
	}
	return cp
}
