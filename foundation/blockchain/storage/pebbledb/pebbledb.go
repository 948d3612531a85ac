// Package pebbledb implements the ability to read and write blocks to a
// pebble key/value store with one key per block index.
package pebbledb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/cockroachdb/pebble"
)

// prefixBlocks is the key prefix for blocks. Indexes are big endian so the
// keys sort in chain order.
const prefixBlocks = "blk:"

// PebbleDB represents the serialization implementation for reading and storing
// blocks in a pebble database. This implements the database.Storage interface.
type PebbleDB struct {
	db *pebble.DB
}

// New opens or creates the pebble database at the specified path.
func New(dbPath string) (*PebbleDB, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &PebbleDB{db: db}, nil
}

// Close flushes and releases the database.
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// Write stores the block under its index key.
func (p *PebbleDB) Write(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	return p.db.Set(blockKey(block.Index), data, pebble.Sync)
}

// ReadAll returns every stored block in index order.
func (p *PebbleDB) ReadAll() ([]database.Block, error) {
	lower, upper := blockBounds()

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var blocks []database.Block
	for iter.First(); iter.Valid(); iter.Next() {
		var block database.Block
		if err := json.Unmarshal(iter.Value(), &block); err != nil {
			return nil, fmt.Errorf("decoding block key %x: %w", iter.Key(), err)
		}
		blocks = append(blocks, block)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return blocks, nil
}

// Reset removes every stored block.
func (p *PebbleDB) Reset() error {
	lower, upper := blockBounds()
	return p.db.DeleteRange(lower, upper, pebble.Sync)
}

// =============================================================================

// blockKey forms the key for the specified block index.
func blockKey(index uint64) []byte {
	key := make([]byte, len(prefixBlocks)+8)
	copy(key, prefixBlocks)
	binary.BigEndian.PutUint64(key[len(prefixBlocks):], index)
	return key
}

// blockBounds returns the key range holding every block.
func blockBounds() (lower []byte, upper []byte) {
	lower = []byte(prefixBlocks)
	upper = []byte(prefixBlocks)
	upper[len(upper)-1]++
	return lower, upper
}
