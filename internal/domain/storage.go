package domain

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object as reported by a bucket listing.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// ObjectStore is the durable sink for backup artifacts. Operations either
// fully succeed or fail; there is no partial-success signaling.
type ObjectStore interface {
	Upload(ctx context.Context, key string, localPath string) error
	Download(ctx context.Context, key string, destPath string) error
	Delete(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
