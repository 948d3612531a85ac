// Package database implements the consensus rules of the blockchain: block
// hashing, proof of work mining, difficulty retargeting, chain validation and
// the cumulative work fork choice.
package database

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(block Block) error
	ReadAll() ([]Block, error)
	Reset() error
	Close() error
}
