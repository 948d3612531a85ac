package database

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
)

// GenesisPrevHash is the sentinel previous hash carried by the genesis block.
// It is not the hash of any block.
const GenesisPrevHash = "cuc0123456789"

// MaxDifficulty is the number of hex characters in a block hash. A difficulty
// above this can never be solved.
const MaxDifficulty = 64

// EncodingVersion identifies the canonical field encoding used to hash blocks.
// Nodes hashing with different versions will not agree on block identity.
const EncodingVersion = 1

// =============================================================================

// Block represents a set of opaque payloads sealed by a proof of work.
type Block struct {
	Index         uint64   `json:"index"`         // Position in the chain, genesis is 0.
	Transactions  []string `json:"transactions"`  // Opaque payloads, never interpreted here.
	TimeStamp     uint64   `json:"timestamp"`     // Unix milliseconds (UTC) when the block was built.
	PrevBlockHash string   `json:"previous_hash"` // Hash of the previous block, sentinel for genesis.
	Difficulty    uint     `json:"difficulty"`    // Number of leading 0's the hash must have.
	Nonce         uint64   `json:"nonce"`         // Value varied by the POW search.
}

// NewGenesis constructs the trusted first block of a chain.
func NewGenesis(timeStamp time.Time, difficulty uint) Block {
	return Block{
		Index:         0,
		Transactions:  []string{},
		TimeStamp:     uint64(timeStamp.UTC().UnixMilli()),
		PrevBlockHash: GenesisPrevHash,
		Difficulty:    difficulty,
		Nonce:         0,
	}
}

// Hash returns the unique hash for the Block. Every field takes part in the
// hash, including the nonce and difficulty.
func (b Block) Hash() string {
	return signature.Hash(b.Encode())
}

// Encode returns the canonical (version 1) byte representation of the block
// used for hashing. Keys are written in lexicographic order, integers in
// decimal, the timestamp in integer milliseconds and a nil transaction list
// as an empty array. Wire framing may differ, this encoding may not.
func (b Block) Encode() []byte {
	trans := b.Transactions
	if trans == nil {
		trans = []string{}
	}

	// Field order here is the key order of the encoding.
	cb := struct {
		Difficulty    uint     `json:"difficulty"`
		Index         uint64   `json:"index"`
		Nonce         uint64   `json:"nonce"`
		PrevBlockHash string   `json:"previous_hash"`
		TimeStamp     uint64   `json:"timestamp"`
		Transactions  []string `json:"transactions"`
	}{
		Difficulty:    b.Difficulty,
		Index:         b.Index,
		Nonce:         b.Nonce,
		PrevBlockHash: b.PrevBlockHash,
		TimeStamp:     b.TimeStamp,
		Transactions:  trans,
	}

	// Marshaling integers and strings can't fail.
	data, _ := json.Marshal(cb)
	return data
}

// Clone returns a copy of the block that shares no memory with the original.
func (b Block) Clone() Block {
	b.Transactions = slices.Clone(b.Transactions)
	return b
}

// Time returns the block timestamp as a time value.
func (b Block) Time() time.Time {
	return time.UnixMilli(int64(b.TimeStamp)).UTC()
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]: prev[%s]: diff[%d]: nonce[%d]: trans[%d]", b.Index, b.PrevBlockHash, b.Difficulty, b.Nonce, len(b.Transactions))
}

// ValidateBlock takes a block and validates it to be the next block after the
// specified previous block. The returned error wraps ErrIndexMismatch,
// ErrBrokenLinkage or ErrInvalidProof.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	ev := safeEv(evHandler)

	ev("database: ValidateBlock: validate: blk[%d]: check: block index is the next index", b.Index)

	nextIndex := previousBlock.Index + 1
	if b.Index != nextIndex {
		return fmt.Errorf("%w: got %d, exp %d", ErrIndexMismatch, b.Index, nextIndex)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", b.Index)

	prevHash := previousBlock.Hash()
	if b.PrevBlockHash != prevHash {
		return fmt.Errorf("%w: got %s, exp %s", ErrBrokenLinkage, b.PrevBlockHash, prevHash)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	hash := b.Hash()
	if !isHashSolved(b.Difficulty, hash) {
		return fmt.Errorf("%w: hash %s, difficulty %d", ErrInvalidProof, hash, b.Difficulty)
	}

	return nil
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000000000000000000000000000000000000000000000000000"

	if len(hash) != len(match) || difficulty > MaxDifficulty {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}

// safeEv returns a handler that can be called even if none was provided.
func safeEv(evHandler func(v string, args ...any)) func(v string, args ...any) {
	if evHandler != nil {
		return evHandler
	}
	return func(string, ...any) {}
}
