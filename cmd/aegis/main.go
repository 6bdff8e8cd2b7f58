package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegisdb/aegis/internal/app"
	"github.com/aegisdb/aegis/internal/config"
	"github.com/aegisdb/aegis/internal/domain"
	"github.com/aegisdb/aegis/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single backup and exit")
	sweep := flag.Bool("enforce-retention", false, "run one retention sweep and exit")
	status := flag.Bool("status", false, "print backup status as JSON and exit")
	walConfig := flag.Bool("wal-config", false, "print the WAL archiving config snippet and exit")
	pitrTarget := flag.String("pitr-target", "", "RFC3339 timestamp; print a PITR recovery snippet for it and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *walConfig {
		fmt.Print(usecase.RenderWALArchiveConfig(cfg.WAL.Enabled, cfg.WAL.ArchiveCommand))
		return nil
	}
	if *pitrTarget != "" {
		target, err := time.Parse(time.RFC3339, *pitrTarget)
		if err != nil {
			return fmt.Errorf("parse pitr target: %w", err)
		}
		fmt.Print(usecase.RenderPITRConfig(target, cfg.WAL.RestoreCommand))
		return nil
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		_, err := application.Backup(ctx, domain.BackupType(cfg.Backup.Type))
		return err
	}
	if *sweep {
		_, err := application.EnforceRetention(ctx)
		return err
	}
	if *status {
		st, err := application.Status(ctx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	return application.Run(ctx)
}
