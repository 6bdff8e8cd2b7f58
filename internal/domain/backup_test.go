package domain

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDetermineTier(t *testing.T) {
	Convey("Given calendar dates", t, func() {
		Convey("The 1st of the month is monthly", func() {
			// 2025-07-01 is a Tuesday
			So(DetermineTier(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)), ShouldEqual, TierMonthly)
		})

		Convey("A Sunday that is also the 1st is monthly, day-of-month wins", func() {
			// 2025-06-01 is a Sunday
			So(DetermineTier(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, TierMonthly)
		})

		Convey("Any other Sunday is weekly", func() {
			// 2025-06-08 is a Sunday
			So(DetermineTier(time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC)), ShouldEqual, TierWeekly)
		})

		Convey("Everything else is daily", func() {
			// 2025-06-11 is a Wednesday
			So(DetermineTier(time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC)), ShouldEqual, TierDaily)
		})
	})
}

func TestStorageKey(t *testing.T) {
	Convey("Given a backup's identity", t, func() {
		ts := time.Date(2025, 3, 7, 4, 30, 0, 0, time.UTC)

		Convey("The key follows the shared format bit-exact", func() {
			key := StorageKey(TierDaily, TypeFull, "abc-123", ts)
			So(key, ShouldEqual, "backups/daily/2025/03/07/full-abc-123.sql.gz")
		})

		Convey("Type and tier are embedded verbatim", func() {
			key := StorageKey(TierMonthly, TypeSchemaOnly, "x", ts)
			So(key, ShouldEqual, "backups/monthly/2025/03/07/schema-only-x.sql.gz")
		})

		Convey("Tier prefixes cover the whole tier", func() {
			So(TierPrefix(TierWeekly), ShouldEqual, "backups/weekly/")
			So(StorageKey(TierWeekly, TypeDataOnly, "id", ts), ShouldStartWith, TierPrefix(TierWeekly))
		})
	})
}

func TestBackupStatusTerminal(t *testing.T) {
	Convey("Terminal statuses are completed, verified and failed", t, func() {
		So(StatusCompleted.Terminal(), ShouldBeTrue)
		So(StatusVerified.Terminal(), ShouldBeTrue)
		So(StatusFailed.Terminal(), ShouldBeTrue)
		So(StatusPending.Terminal(), ShouldBeFalse)
		So(StatusInProgress.Terminal(), ShouldBeFalse)
	})
}
