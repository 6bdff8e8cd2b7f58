package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aegisdb/aegis/internal/domain"
)

const (
	lockKey = "aegis:backup:lock"

	// Generous on purpose: the TTL only exists so a crashed process cannot
	// block backups forever, and dumps can legitimately run for a long time.
	lockTTL = 2 * time.Hour
)

// BackupLock is the fleet-wide mutual exclusion for backup attempts. One
// global key, owner identity is the attempt id, acquisition is a single
// atomic set-if-absent.
type BackupLock struct {
	kv domain.KeyValueStore
}

func NewBackupLock(kv domain.KeyValueStore) *BackupLock {
	return &BackupLock{kv: kv}
}

// Acquire takes the lock for ownerID or fails with domain.ErrLockHeld. The
// error is definite: this call never retries.
func (l *BackupLock) Acquire(ctx context.Context, ownerID string) error {
	ok, err := l.kv.SetNX(ctx, lockKey, []byte(ownerID), lockTTL)
	if err != nil {
		return fmt.Errorf("acquire backup lock: %w", err)
	}
	if !ok {
		return domain.ErrLockHeld
	}
	return nil
}

// Release drops the lock only if ownerID still holds it, so a slow attempt
// that outlived its TTL cannot delete a newer attempt's lock.
func (l *BackupLock) Release(ctx context.Context, ownerID string) error {
	value, err := l.kv.Get(ctx, lockKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read backup lock: %w", err)
	}
	if string(value) != ownerID {
		return nil
	}
	if err := l.kv.Del(ctx, lockKey); err != nil {
		return fmt.Errorf("release backup lock: %w", err)
	}
	return nil
}
