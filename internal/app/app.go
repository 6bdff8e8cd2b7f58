package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aegisdb/aegis/internal/adapter/compressor"
	"github.com/aegisdb/aegis/internal/adapter/database"
	"github.com/aegisdb/aegis/internal/adapter/kvstore"
	"github.com/aegisdb/aegis/internal/adapter/storage"
	"github.com/aegisdb/aegis/internal/config"
	"github.com/aegisdb/aegis/internal/domain"
	"github.com/aegisdb/aegis/internal/infrastructure/logger"
	"github.com/aegisdb/aegis/internal/infrastructure/metrics"
	"github.com/aegisdb/aegis/internal/infrastructure/scheduler"
	"github.com/aegisdb/aegis/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	kv        *kvstore.BadgerStore
	backupUC  *usecase.Backup
	retention *usecase.Retention
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	kv, err := kvstore.NewBadger(cfg.KV.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kv store: %w", err)
	}

	db := database.NewPostgreSQL(&cfg.Database)
	if err := db.Ping(context.Background()); err != nil {
		log.Errorf("Failed to reach database %s: %v", cfg.Database.Database, err)
	} else {
		log.Infof("✓ Connected to %s@%s:%d", cfg.Database.Database, cfg.Database.Host, cfg.Database.Port)
	}

	store := storage.NewS3(&cfg.ObjectStore)
	if cfg.ObjectStore.Endpoint != "" {
		log.Infof("✓ Object store: %s (bucket: %s, path-style)", cfg.ObjectStore.Endpoint, cfg.ObjectStore.Bucket)
	} else {
		log.Infof("✓ Object store: s3.%s.amazonaws.com (bucket: %s)", cfg.ObjectStore.Region, cfg.ObjectStore.Bucket)
	}

	comp := compressor.NewGzip()
	lock := usecase.NewBackupLock(kv)
	history := usecase.NewHistoryStore(kv)
	verifier := usecase.NewVerification(db, store, comp, log)

	backupUC := usecase.NewBackup(
		db,
		store,
		comp,
		lock,
		history,
		verifier,
		log,
		cfg.Backup.Compress,
		cfg.Backup.Verify,
		cfg.Backup.MaxConcurrent,
	)

	retention := usecase.NewRetention(store, log, usecase.RetentionPolicy{
		DailyDays:     cfg.Retention.DailyDays,
		WeeklyWeeks:   cfg.Retention.WeeklyWeeks,
		MonthlyMonths: cfg.Retention.MonthlyMonths,
	})

	return &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(),
		kv:        kv,
		backupUC:  backupUC,
		retention: retention,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	backupType := domain.BackupType(a.config.Backup.Type)

	if a.config.Backup.Schedule != "" {
		if err := a.scheduler.AddJob(a.config.Backup.Schedule, func(ctx context.Context) error {
			a.logger.Infof("=== Triggered scheduled %s backup ===", backupType)
			_, err := a.backupUC.Execute(ctx, usecase.BackupOptions{Type: backupType})
			return err
		}); err != nil {
			return fmt.Errorf("failed to schedule backup: %w", err)
		}
		a.logger.Infof("✓ Scheduled backup: %s", a.config.Backup.Schedule)
	}

	if a.config.Retention.Schedule != "" {
		if err := a.scheduler.AddJob(a.config.Retention.Schedule, func(ctx context.Context) error {
			_, err := a.retention.Execute(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("failed to schedule retention: %w", err)
		}
		a.logger.Infof("✓ Scheduled retention: %s", a.config.Retention.Schedule)
	}

	if a.config.Metrics.Addr != "" {
		a.serveMetrics(ctx)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started")

	<-ctx.Done()
	return nil
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: a.config.Metrics.Addr, Handler: mux}

	go func() {
		a.logger.Infof("✓ Metrics listening on %s", a.config.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Errorf("Metrics server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Backup triggers one immediate attempt, outside any schedule.
func (a *App) Backup(ctx context.Context, typ domain.BackupType) (*domain.BackupRecord, error) {
	return a.backupUC.Execute(ctx, usecase.BackupOptions{Type: typ})
}

// Status reports the latest record, running attempt and aggregate stats.
func (a *App) Status(ctx context.Context) (*usecase.BackupStatus, error) {
	return a.backupUC.Status(ctx)
}

// EnforceRetention runs one immediate retention sweep.
func (a *App) EnforceRetention(ctx context.Context) (*usecase.RetentionResult, error) {
	return a.retention.Execute(ctx)
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	if err := a.kv.Close(); err != nil {
		a.logger.Errorf("Failed to close kv store: %v", err)
	}
	a.logger.Close()
}
