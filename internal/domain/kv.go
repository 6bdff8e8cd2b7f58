package domain

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for missing or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the small-record store shared across processes: the
// distributed lock, the currently-running marker, and the history/stats/
// latest-pointer records. Values are JSON blobs; a zero ttl means no expiry.
// No multi-key transactions are offered, so read-modify-write callers must
// tolerate last-writer-wins races.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX atomically sets key only if it does not already exist and
	// reports whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Del(ctx context.Context, key string) error
}
