package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aegisdb/aegis/internal/domain"
)

const restoreTimeout = 30 * time.Minute

// VerifyResult reports what the structural validation found in the restored
// database.
type VerifyResult struct {
	TableCount int
	LiveRows   int64
}

// Verification proves a backup artifact restores cleanly: download,
// decompress, restore into an ephemeral database, then validate the restored
// schema. The ephemeral database and temp files are removed whatever the
// outcome.
type Verification struct {
	db         domain.Database
	store      domain.ObjectStore
	compressor domain.Compressor
	logger     Logger
}

func NewVerification(
	db domain.Database,
	store domain.ObjectStore,
	compressor domain.Compressor,
	logger Logger,
) *Verification {
	return &Verification{
		db:         db,
		store:      store,
		compressor: compressor,
		logger:     logger,
	}
}

// EphemeralDBName derives the throwaway database name from the record id.
// Deterministic so it cannot collide across records and stays discoverable
// for manual cleanup after a crash.
func EphemeralDBName(recordID string) string {
	return "aegis_verify_" + strings.ReplaceAll(recordID, "-", "_")
}

// Execute verifies one completed backup. Success requires a strictly
// positive table count in the restored schema.
func (uc *Verification) Execute(ctx context.Context, rec *domain.BackupRecord) (*VerifyResult, error) {
	if rec.Status != domain.StatusCompleted && rec.Status != domain.StatusVerified {
		return nil, fmt.Errorf("cannot verify backup in status %s", rec.Status)
	}
	if rec.StorageKey == "" {
		return nil, fmt.Errorf("backup %s has no storage key", rec.ID)
	}

	uc.logger.Infof("[%s] Verifying backup %s", rec.ID, rec.StorageKey)

	archivePath := filepath.Join(os.TempDir(), fmt.Sprintf("aegis-verify-%s.sql.gz", rec.ID))
	sqlPath := strings.TrimSuffix(archivePath, ".gz")
	defer uc.removeTemp(rec.ID, archivePath, sqlPath)

	if err := uc.store.Download(ctx, rec.StorageKey, archivePath); err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}

	if err := uc.compressor.Decompress(archivePath, sqlPath); err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}

	dbName := EphemeralDBName(rec.ID)
	if err := uc.db.CreateDatabase(ctx, dbName); err != nil {
		return nil, fmt.Errorf("create verification database: %w", err)
	}
	defer func() {
		if err := uc.db.DropDatabase(ctx, dbName); err != nil {
			uc.logger.Errorf("[%s] Failed to drop verification database %s: %v", rec.ID, dbName, err)
		}
	}()

	restoreCtx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()
	if err := uc.db.Restore(restoreCtx, sqlPath, dbName); err != nil {
		return nil, fmt.Errorf("restore into %s: %w", dbName, err)
	}

	tableCount, err := uc.db.TableCount(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("validate restored schema: %w", err)
	}
	if tableCount == 0 {
		return nil, fmt.Errorf("restored database %s contains no tables", dbName)
	}

	liveRows, err := uc.db.LiveRowEstimate(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("estimate restored rows: %w", err)
	}

	return &VerifyResult{TableCount: tableCount, LiveRows: liveRows}, nil
}

func (uc *Verification) removeTemp(id string, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			uc.logger.Warnf("[%s] Failed to remove temp file %s: %v", id, path, err)
		}
	}
}
