// internal/kv/kv.go
//
// Key/value persistence used in place of browser local storage.
// Two implementations live in this package:
//   - Memory: process-local map, for tests and throwaway servers.
//   - SQLite: durable single-table store (see sqlite.go).
//
// Semantics mirror localStorage: a missing key is not an error, Get reports ok=false.

package kv

import "context"

// Store is the minimal key/value contract.
type Store interface {
	// Get returns the value under key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or overwrites key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
