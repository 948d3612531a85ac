package database

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock    Block
	Difficulty   uint
	Transactions []string
	TimeStamp    time.Time // Zero value means time.Now.
	EvHandler    func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The chain is not touched, the caller
// validates and appends the returned block.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.Difficulty > MaxDifficulty {
		return Block{}, fmt.Errorf("%w: difficulty %d, max %d", ErrDifficultyUnreachable, args.Difficulty, MaxDifficulty)
	}

	ts := args.TimeStamp
	if ts.IsZero() {
		ts = time.Now()
	}

	trans := slices.Clone(args.Transactions)
	if trans == nil {
		trans = []string{}
	}

	// Construct the block to be mined.
	nb := Block{
		Index:         args.PrevBlock.Index + 1,
		Transactions:  trans,
		TimeStamp:     uint64(ts.UTC().UnixMilli()),
		PrevBlockHash: args.PrevBlock.Hash(),
		Difficulty:    args.Difficulty,
		Nonce:         0, // Will be identified by the POW algorithm.
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, safeEv(args.EvHandler)); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
// The search starts at nonce 0 so the nonce found is the smallest one that
// solves the puzzle.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Index, b.Difficulty)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	for _, tx := range b.Transactions {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	b.Nonce = 0

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return err
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !isHashSolved(b.Difficulty, hash) {
			b.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}
