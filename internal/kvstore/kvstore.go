// Package kvstore provides a small TTL key-value store used for short-lived
// server-side state: password-reset OTPs and OAuth2 flow state. Values expire
// on their own; callers never need a cleanup pass.
package kvstore

import (
	"context"
	"time"
)

// Store is the capability surface services consume. Implementations must be
// safe for concurrent use.
type Store interface {
	// Put stores value under key for at most ttl. A ttl of zero or less
	// is rejected: every entry in this store is meant to expire.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
