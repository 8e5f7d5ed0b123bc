// Package kvstore abstracts the durable key-value store snapshots are
// persisted to. All backends expose plain string get/set/remove with a
// nil-on-missing convention; partitioning between identities happens
// entirely in the keys chosen by the caller.
package kvstore

import (
	"context"
	"fmt"
)

// Store is the durable key-value store consumed by the persistence
// adapter. Get returns ok=false for a missing key; that is the normal
// empty case, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// StorageError reports a durable-store read or write failure. It is
// non-fatal: sessions keep operating in memory with persistence
// degraded.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
