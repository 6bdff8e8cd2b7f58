package domain

import (
	"fmt"
	"time"
)

type BackupType string

const (
	TypeFull       BackupType = "full"
	TypeSchemaOnly BackupType = "schema-only"
	TypeDataOnly   BackupType = "data-only"
)

type BackupTier string

const (
	TierDaily   BackupTier = "daily"
	TierWeekly  BackupTier = "weekly"
	TierMonthly BackupTier = "monthly"
)

type BackupStatus string

const (
	StatusPending    BackupStatus = "pending"
	StatusInProgress BackupStatus = "in_progress"
	StatusCompleted  BackupStatus = "completed"
	StatusVerified   BackupStatus = "verified"
	StatusFailed     BackupStatus = "failed"
)

// BackupRecord is one backup attempt. It is created in memory with status
// in_progress and persisted on every status transition. A terminal record is
// never mutated again, except the single completed -> verified promotion.
type BackupRecord struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	Type       BackupType   `json:"type"`
	Tier       BackupTier   `json:"tier"`
	SizeBytes  int64        `json:"sizeBytes"`
	Checksum   string       `json:"checksum"`
	StorageKey string       `json:"storageKey"`
	DurationMs int64        `json:"durationMs"`
	Status     BackupStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	VerifiedAt *time.Time   `json:"verifiedAt,omitempty"`
}

// BackupStats are running aggregates over all attempts, persisted alongside
// the history list. Advisory only: concurrent writers are last-writer-wins.
type BackupStats struct {
	TotalCount      int64      `json:"totalCount"`
	TotalBytes      int64      `json:"totalBytes"`
	TotalDurationMs int64      `json:"totalDurationMs"`
	AvgDurationMs   int64      `json:"avgDurationMs"`
	LastSuccessAt   *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt   *time.Time `json:"lastFailureAt,omitempty"`
}

// DetermineTier maps a calendar date onto a retention tier. The day-of-month
// check runs first: the 1st is monthly even when it falls on a Sunday.
func DetermineTier(t time.Time) BackupTier {
	if t.Day() == 1 {
		return TierMonthly
	}
	if t.Weekday() == time.Sunday {
		return TierWeekly
	}
	return TierDaily
}

// StorageKey derives the object key for a backup. The format is shared with
// other consumers of the bucket and must stay bit-exact:
// backups/<tier>/<YYYY>/<MM>/<DD>/<type>-<id>.sql.gz
func StorageKey(tier BackupTier, typ BackupType, id string, ts time.Time) string {
	return fmt.Sprintf("backups/%s/%04d/%02d/%02d/%s-%s.sql.gz",
		tier, ts.Year(), int(ts.Month()), ts.Day(), typ, id)
}

// TierPrefix is the listing prefix covering every object in a tier.
func TierPrefix(tier BackupTier) string {
	return fmt.Sprintf("backups/%s/", tier)
}

func (s BackupStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusVerified || s == StatusFailed
}
