// Package kvstore provides the key-value backends behind the settings store.
//
// A backend persists raw values under fully-qualified keys and reports every
// write it knows about through Watch. World-scoped backends (NATS JetStream
// KV, a shared MemoryHub) report writes made by any process; process-local
// backends (SQLite, a private MemoryHub) report their own writes only.
package kvstore

import "context"

// Change is one observed write.
type Change struct {
	Key   string
	Value []byte
}

// Backend is a namespaced key-value store with change notification.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put durably stores value under key. It returns once the write is acknowledged.
	Put(ctx context.Context, key string, value []byte) error
	// Watch streams every subsequent write, in order, until ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)
	// Name identifies the backend kind in logs.
	Name() string
	Close() error
}
