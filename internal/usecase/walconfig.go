package usecase

import (
	"fmt"
	"time"
)

// RenderWALArchiveConfig returns a server configuration snippet enabling
// write-ahead-log archiving with the given archive command. When archiving
// is disabled a comment-only snippet is returned. Pure text rendering: no
// state, no I/O.
func RenderWALArchiveConfig(enabled bool, archiveCommand string) string {
	if !enabled {
		return "# WAL archiving disabled\n"
	}

	return fmt.Sprintf(`# WAL archiving for point-in-time recovery
wal_level = replica
archive_mode = on
archive_command = '%s'
archive_timeout = 300
`, archiveCommand)
}

// RenderPITRConfig returns a recovery configuration snippet targeting the
// given point in time, replaying archived segments via restoreCommand.
func RenderPITRConfig(target time.Time, restoreCommand string) string {
	return fmt.Sprintf(`# Point-in-time recovery
restore_command = '%s'
recovery_target_time = '%s'
recovery_target_action = 'promote'
`, restoreCommand, target.UTC().Format("2006-01-02 15:04:05 UTC"))
}
