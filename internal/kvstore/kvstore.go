// Package kvstore provides the string key/value storage the record store
// persists into: a durable file-backed implementation with a byte capacity
// and an in-memory fallback used when the file cannot be opened.
package kvstore

import (
	"errors"
)

var (
	// ErrQuotaExceeded is returned by Set when the write would push the
	// store past its configured capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KV is a flat string key/value store. Implementations are safe for use by
// multiple goroutines.
type KV interface {
	// Get returns the value for key and whether the key exists.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string)

	// Keys returns a snapshot of every stored key.
	Keys() []string
}
