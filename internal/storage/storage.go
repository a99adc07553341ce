// Package storage defines the durable state contract a partition runs on:
// named collections of key/value records, mutated inside transactions.
package storage

import "context"

// Pair is one record of a collection.
type Pair struct {
	Key   string
	Value []byte
}

// Store is a transactional collection store. All reads and writes go
// through a Tx so multi-collection updates land atomically.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one transaction. A Tx must end in exactly one Commit or Rollback;
// Rollback after Commit is a no-op so it can sit in a defer.
type Tx interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	Set(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	// Enumerate returns every record of a collection in ascending key order.
	Enumerate(ctx context.Context, collection string) ([]Pair, error)
	Commit() error
	Rollback() error
}
