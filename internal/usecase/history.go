package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aegisdb/aegis/internal/domain"
)

const (
	latestKey  = "aegis:backup:latest"
	historyKey = "aegis:backup:history"
	statsKey   = "aegis:backup:stats"
	runningKey = "aegis:backup:running"

	historyCap = 100
)

// HistoryStore persists backup records into the key-value collaborator:
// a latest pointer, a bounded newest-first history list, running aggregate
// stats, and a short-lived currently-running marker. All records are plain
// JSON blobs with no transactional guarantee; concurrent writers are
// last-writer-wins and history is advisory, not authoritative.
type HistoryStore struct {
	kv domain.KeyValueStore
}

func NewHistoryStore(kv domain.KeyValueStore) *HistoryStore {
	return &HistoryStore{kv: kv}
}

// SaveRecord writes the latest pointer and upserts the record into the
// bounded history list. Called on every status transition, so an existing
// entry with the same id is replaced in place rather than duplicated.
func (h *HistoryStore) SaveRecord(ctx context.Context, rec *domain.BackupRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal backup record: %w", err)
	}
	if err := h.kv.Set(ctx, latestKey, blob, 0); err != nil {
		return fmt.Errorf("save latest record: %w", err)
	}

	history, err := h.History(ctx)
	if err != nil {
		return err
	}

	updated := false
	for i := range history {
		if history[i].ID == rec.ID {
			history[i] = *rec
			updated = true
			break
		}
	}
	if !updated {
		history = append([]domain.BackupRecord{*rec}, history...)
	}
	if len(history) > historyCap {
		history = history[:historyCap]
	}

	blob, err = json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := h.kv.Set(ctx, historyKey, blob, 0); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// UpdateStats folds one terminal record into the aggregate counters.
func (h *HistoryStore) UpdateStats(ctx context.Context, rec *domain.BackupRecord) error {
	stats, err := h.Stats(ctx)
	if err != nil {
		return err
	}

	stats.TotalCount++
	stats.TotalBytes += rec.SizeBytes
	stats.TotalDurationMs += rec.DurationMs
	stats.AvgDurationMs = stats.TotalDurationMs / stats.TotalCount

	now := time.Now().UTC()
	if rec.Status == domain.StatusFailed {
		stats.LastFailureAt = &now
	} else {
		stats.LastSuccessAt = &now
	}

	blob, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := h.kv.Set(ctx, statsKey, blob, 0); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Latest returns the most recently saved record, or nil before the first
// backup has run.
func (h *HistoryStore) Latest(ctx context.Context) (*domain.BackupRecord, error) {
	var rec domain.BackupRecord
	err := h.load(ctx, latestKey, &rec)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (h *HistoryStore) History(ctx context.Context) ([]domain.BackupRecord, error) {
	var history []domain.BackupRecord
	err := h.load(ctx, historyKey, &history)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (h *HistoryStore) Stats(ctx context.Context) (*domain.BackupStats, error) {
	var stats domain.BackupStats
	err := h.load(ctx, statsKey, &stats)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return &domain.BackupStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetRunning marks an attempt as currently executing. The marker expires on
// its own if the process dies mid-attempt.
func (h *HistoryStore) SetRunning(ctx context.Context, rec *domain.BackupRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal running record: %w", err)
	}
	if err := h.kv.Set(ctx, runningKey, blob, lockTTL); err != nil {
		return fmt.Errorf("save running record: %w", err)
	}
	return nil
}

func (h *HistoryStore) ClearRunning(ctx context.Context) error {
	return h.kv.Del(ctx, runningKey)
}

// Running returns the in-flight attempt, or nil when none is marked.
func (h *HistoryStore) Running(ctx context.Context) (*domain.BackupRecord, error) {
	var rec domain.BackupRecord
	err := h.load(ctx, runningKey, &rec)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (h *HistoryStore) load(ctx context.Context, key string, out any) error {
	blob, err := h.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return err
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
