package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aegisdb/aegis/internal/domain"
	"github.com/aegisdb/aegis/internal/infrastructure/metrics"
)

const dumpTimeout = time.Hour

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// BackupOptions select what one attempt produces. Zero values mean a full
// backup with the tier derived from the calendar date.
type BackupOptions struct {
	Type domain.BackupType
	Tier domain.BackupTier
}

// Backup owns the full lifecycle of one backup attempt: coordination entry
// (in-process counter plus fleet-wide lock), the dump -> compress -> hash ->
// upload pipeline, record persistence, temp cleanup and advisory
// verification.
type Backup struct {
	db         domain.Database
	store      domain.ObjectStore
	compressor domain.Compressor
	lock       *BackupLock
	history    *HistoryStore
	verifier   *Verification
	logger     Logger

	compress      bool
	verify        bool
	maxConcurrent int64
	running       atomic.Int64
}

func NewBackup(
	db domain.Database,
	store domain.ObjectStore,
	compressor domain.Compressor,
	lock *BackupLock,
	history *HistoryStore,
	verifier *Verification,
	logger Logger,
	compress bool,
	verify bool,
	maxConcurrent int,
) *Backup {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Backup{
		db:            db,
		store:         store,
		compressor:    compressor,
		lock:          lock,
		history:       history,
		verifier:      verifier,
		logger:        logger,
		compress:      compress,
		verify:        verify,
		maxConcurrent: int64(maxConcurrent),
	}
}

// Execute runs one backup attempt. Coordination failures reject the attempt
// before it starts; pipeline failures return the failed record together with
// the stage error. The counter decrement and lock release always run.
func (uc *Backup) Execute(ctx context.Context, opts BackupOptions) (*domain.BackupRecord, error) {
	if n := uc.running.Add(1); n > uc.maxConcurrent {
		uc.running.Add(-1)
		return nil, domain.ErrTooManyBackups
	}
	defer uc.running.Add(-1)

	typ := opts.Type
	if typ == "" {
		typ = domain.TypeFull
	}

	start := time.Now().UTC()
	id := uuid.NewString()

	tier := opts.Tier
	if tier == "" {
		tier = domain.DetermineTier(start)
	}

	rec := &domain.BackupRecord{
		ID:        id,
		Timestamp: start,
		Type:      typ,
		Tier:      tier,
		Status:    domain.StatusPending,
	}

	if err := uc.lock.Acquire(ctx, id); err != nil {
		return nil, err
	}
	defer func() {
		if err := uc.lock.Release(ctx, id); err != nil {
			uc.logger.Errorf("[%s] Failed to release backup lock: %v", id, err)
		}
		if err := uc.history.ClearRunning(ctx); err != nil {
			uc.logger.Warnf("[%s] Failed to clear running marker: %v", id, err)
		}
	}()

	uc.logger.Infof("[%s] Starting %s backup (tier: %s)", id, typ, tier)

	rec.Status = domain.StatusInProgress
	uc.persist(ctx, rec)
	if err := uc.history.SetRunning(ctx, rec); err != nil {
		uc.logger.Warnf("[%s] Failed to set running marker: %v", id, err)
	}

	err := uc.runPipeline(ctx, rec)
	rec.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		rec.Status = domain.StatusFailed
		rec.Error = err.Error()
		uc.finish(ctx, rec)
		uc.logger.Errorf("[%s] Backup failed after %s: %v", id, time.Since(start).Round(time.Second), err)
		return rec, err
	}

	rec.Status = domain.StatusCompleted
	uc.finish(ctx, rec)

	uc.logger.Infof("[%s] Backup completed in %s: %s (%.2f MB)",
		id, time.Since(start).Round(time.Second), rec.StorageKey,
		float64(rec.SizeBytes)/(1024*1024))

	if uc.verify && typ == domain.TypeFull && uc.verifier != nil {
		uc.verifyCompleted(ctx, rec)
	}

	return rec, nil
}

// BackupStatus is a point-in-time view of the subsystem for status surfaces.
type BackupStatus struct {
	Latest  *domain.BackupRecord `json:"latest,omitempty"`
	Running *domain.BackupRecord `json:"running,omitempty"`
	Stats   *domain.BackupStats  `json:"stats"`
}

// Status reports the latest record, the currently running attempt (if any)
// and the aggregate stats.
func (uc *Backup) Status(ctx context.Context) (*BackupStatus, error) {
	latest, err := uc.history.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest record: %w", err)
	}
	running, err := uc.history.Running(ctx)
	if err != nil {
		return nil, fmt.Errorf("load running marker: %w", err)
	}
	stats, err := uc.history.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &BackupStatus{Latest: latest, Running: running, Stats: stats}, nil
}

// runPipeline executes the stages that can fail the attempt. Temp files are
// removed whatever happens; removal failures are logged, never escalated.
func (uc *Backup) runPipeline(ctx context.Context, rec *domain.BackupRecord) error {
	dumpPath := filepath.Join(os.TempDir(), fmt.Sprintf("aegis-%s.sql", rec.ID))

	tempPaths := []string{dumpPath}
	defer func() {
		for _, path := range tempPaths {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				uc.logger.Warnf("[%s] Failed to remove temp file %s: %v", rec.ID, path, err)
			}
		}
	}()

	dumpCtx, cancel := context.WithTimeout(ctx, dumpTimeout)
	defer cancel()
	if err := uc.db.Dump(dumpCtx, dumpPath, rec.Type); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	artifactPath := dumpPath
	if uc.compress {
		compressedPath := dumpPath + ".gz"
		if err := uc.compressor.Compress(dumpPath, compressedPath); err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		tempPaths = append(tempPaths, compressedPath)
		artifactPath = compressedPath
	}

	checksum, err := fileSHA256(artifactPath)
	if err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	rec.Checksum = checksum

	info, err := os.Stat(artifactPath)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	rec.SizeBytes = info.Size()

	key := domain.StorageKey(rec.Tier, rec.Type, rec.ID, rec.Timestamp)
	if err := uc.store.Upload(ctx, key, artifactPath); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	// Populated only after the upload succeeded.
	rec.StorageKey = key

	return nil
}

// verifyCompleted runs advisory verification. Failure leaves the record
// completed and only logs a warning.
func (uc *Backup) verifyCompleted(ctx context.Context, rec *domain.BackupRecord) {
	result, err := uc.verifier.Execute(ctx, rec)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("failure").Inc()
		uc.logger.Warnf("[%s] Verification failed, backup stays completed: %v", rec.ID, err)
		return
	}

	metrics.VerificationsTotal.WithLabelValues("success").Inc()

	now := time.Now().UTC()
	rec.Status = domain.StatusVerified
	rec.VerifiedAt = &now
	uc.persist(ctx, rec)

	uc.logger.Infof("[%s] Verification succeeded: %d tables, ~%d live rows",
		rec.ID, result.TableCount, result.LiveRows)
}

// finish persists a terminal record and folds it into the aggregates.
func (uc *Backup) finish(ctx context.Context, rec *domain.BackupRecord) {
	uc.persist(ctx, rec)
	if err := uc.history.UpdateStats(ctx, rec); err != nil {
		uc.logger.Warnf("[%s] Failed to update backup stats: %v", rec.ID, err)
	}

	metrics.BackupsTotal.WithLabelValues(string(rec.Status), string(rec.Tier), string(rec.Type)).Inc()
	metrics.BackupDuration.Observe(float64(rec.DurationMs) / 1000)
	if rec.Status != domain.StatusFailed {
		metrics.BackupBytes.Add(float64(rec.SizeBytes))
	}
}

func (uc *Backup) persist(ctx context.Context, rec *domain.BackupRecord) {
	if err := uc.history.SaveRecord(ctx, rec); err != nil {
		uc.logger.Errorf("[%s] Failed to persist backup record: %v", rec.ID, err)
	}
}
