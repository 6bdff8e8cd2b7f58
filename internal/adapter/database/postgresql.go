package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/aegisdb/aegis/internal/config"
	"github.com/aegisdb/aegis/internal/domain"
)

// PostgreSQLDatabase shells out to the postgres client tools. The contract
// is narrow: produce a plain-text logical dump, apply one, and answer two
// read-only validation queries. Non-zero exit is the only failure signal.
type PostgreSQLDatabase struct {
	config *config.DatabaseConfig
}

func NewPostgreSQL(cfg *config.DatabaseConfig) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{config: cfg}
}

func (p *PostgreSQLDatabase) Dump(ctx context.Context, outputPath string, typ domain.BackupType) error {
	args := []string{
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--format=plain",
		fmt.Sprintf("--file=%s", outputPath),
	}

	switch typ {
	case domain.TypeSchemaOnly:
		args = append(args, "--schema-only")
	case domain.TypeDataOnly:
		args = append(args, "--data-only")
	}

	args = append(args, p.config.Database)

	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) Restore(ctx context.Context, sqlPath string, database string) error {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		fmt.Sprintf("--dbname=%s", database),
		"--set=ON_ERROR_STOP=1",
		fmt.Sprintf("--file=%s", sqlPath),
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("psql restore failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) CreateDatabase(ctx context.Context, name string) error {
	if err := p.run(ctx, "postgres", fmt.Sprintf("CREATE DATABASE %q", name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

func (p *PostgreSQLDatabase) DropDatabase(ctx context.Context, name string) error {
	if err := p.run(ctx, "postgres", fmt.Sprintf("DROP DATABASE IF EXISTS %q", name)); err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	return nil
}

func (p *PostgreSQLDatabase) TableCount(ctx context.Context, database string) (int, error) {
	out, err := p.query(ctx, database,
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'")
	if err != nil {
		return 0, fmt.Errorf("table count query: %w", err)
	}

	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected table count output %q: %w", out, err)
	}
	return count, nil
}

func (p *PostgreSQLDatabase) LiveRowEstimate(ctx context.Context, database string) (int64, error) {
	out, err := p.query(ctx, database,
		"SELECT coalesce(sum(n_live_tup), 0) FROM pg_stat_user_tables")
	if err != nil {
		return 0, fmt.Errorf("live row query: %w", err)
	}

	rows, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected live row output %q: %w", out, err)
	}
	return rows, nil
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	if err := p.run(ctx, "postgres", "SELECT 1"); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	return nil
}

// query runs a single statement through psql and returns the trimmed
// tuples-only output.
func (p *PostgreSQLDatabase) query(ctx context.Context, database, sql string) (string, error) {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		fmt.Sprintf("--dbname=%s", database),
		"--tuples-only", "--no-align",
		"-c", sql,
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("psql query failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (p *PostgreSQLDatabase) run(ctx context.Context, database, sql string) error {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		fmt.Sprintf("--dbname=%s", database),
		"-c", sql,
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w, output: %s", err, string(output))
	}
	return nil
}
