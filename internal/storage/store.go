// Package storage defines the contract the engine persists game records
// through. The backing store is a plain key-value surface: whole-value reads
// and writes, no partial updates, no transactions. Implementations may be
// eventually consistent; callers must not assume read-your-writes across
// instances.
package storage

import "context"

// Store is the key-value contract every backend implements. Get returns
// (nil, nil) for a missing key. Put replaces the whole value under the key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
