package domain

import "context"

// Database shells out to the database client tools. Failure is a non-zero
// process exit; the tools' own diagnostics are captured into the error.
type Database interface {
	// Dump writes a plain-text logical dump restricted to the requested
	// backup type to outputPath.
	Dump(ctx context.Context, outputPath string, typ BackupType) error

	// Restore applies a plain-text SQL file to the named database.
	Restore(ctx context.Context, sqlPath string, database string) error

	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error

	// TableCount counts tables in the named database's public schema.
	TableCount(ctx context.Context, database string) (int, error)

	// LiveRowEstimate sums live-row estimates across user tables.
	LiveRowEstimate(ctx context.Context, database string) (int64, error)

	Ping(ctx context.Context) error
}
