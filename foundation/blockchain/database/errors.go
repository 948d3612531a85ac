package database

import "errors"

// Set of rejection reasons. These are expected outcomes and callers decide
// whether to mine again, request another chain or discard the input.
var (
	// ErrIndexMismatch is returned when a block is not the next index
	// after its predecessor.
	ErrIndexMismatch = errors.New("index mismatch")

	// ErrBrokenLinkage is returned when a block's previous hash is not the
	// hash of its predecessor.
	ErrBrokenLinkage = errors.New("broken linkage")

	// ErrInvalidProof is returned when a block's hash does not carry the
	// number of leading zeros its difficulty requires.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrEmptyChain is returned when a chain with no blocks is validated.
	ErrEmptyChain = errors.New("empty chain")

	// ErrInvalidGenesis is returned when the first block of a chain is
	// not a genesis block, or is not the genesis block of the local chain.
	ErrInvalidGenesis = errors.New("invalid genesis block")

	// ErrNotHeavier is returned when a candidate chain does not carry more
	// cumulative work than the local chain.
	ErrNotHeavier = errors.New("candidate chain is not heavier")

	// ErrDifficultyUnreachable is returned when mining is requested at a
	// difficulty no hash can satisfy.
	ErrDifficultyUnreachable = errors.New("difficulty unreachable")
)
