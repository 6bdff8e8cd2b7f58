package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRetentionExecute(t *testing.T) {
	policy := RetentionPolicy{DailyDays: 7, WeeklyWeeks: 4, MonthlyMonths: 12}

	Convey("Given objects on both sides of every tier cutoff", t, func() {
		ctx := context.Background()
		store := newFakeObjectStore()
		logger := &testLogger{}

		now := time.Now()
		store.put("backups/daily/old", []byte("x"), now.AddDate(0, 0, -10))
		store.put("backups/daily/new", []byte("x"), now.AddDate(0, 0, -1))
		store.put("backups/weekly/old", []byte("x"), now.AddDate(0, 0, -35))
		store.put("backups/weekly/new", []byte("x"), now.AddDate(0, 0, -14))
		store.put("backups/monthly/old", []byte("x"), now.AddDate(0, 0, -400))
		store.put("backups/monthly/new", []byte("x"), now.AddDate(0, 0, -200))

		retention := NewRetention(store, logger, policy)

		Convey("When enforcement runs", func() {
			result, err := retention.Execute(ctx)

			Convey("Exactly the expired objects are deleted", func() {
				So(err, ShouldBeNil)
				So(result.Deleted, ShouldEqual, 3)
				So(result.Errors, ShouldEqual, 0)

				_, oldDaily := store.objects["backups/daily/old"]
				So(oldDaily, ShouldBeFalse)
				_, newDaily := store.objects["backups/daily/new"]
				So(newDaily, ShouldBeTrue)
				_, newWeekly := store.objects["backups/weekly/new"]
				So(newWeekly, ShouldBeTrue)
				_, newMonthly := store.objects["backups/monthly/new"]
				So(newMonthly, ShouldBeTrue)
			})

			Convey("A second run is idempotent: nothing left to delete", func() {
				So(err, ShouldBeNil)
				again, err2 := retention.Execute(ctx)
				So(err2, ShouldBeNil)
				So(again.Deleted, ShouldEqual, 0)
				So(again.Errors, ShouldEqual, 0)
			})
		})

		Convey("When one delete fails, the sweep continues", func() {
			store.failDelete = map[string]bool{"backups/daily/old": true}

			result, err := retention.Execute(ctx)

			So(err, ShouldBeNil)
			So(result.Errors, ShouldEqual, 1)
			So(result.Deleted, ShouldEqual, 2)
			So(logger.contains("delete"), ShouldBeTrue)

			Convey("Rerunning picks up what is still eligible", func() {
				store.failDelete = nil
				again, err2 := retention.Execute(ctx)
				So(err2, ShouldBeNil)
				So(again.Deleted, ShouldEqual, 1)
			})
		})

		Convey("When listing fails, each tier counts one error and the sweep goes on", func() {
			store.listErr = errors.New("connection refused")

			result, err := retention.Execute(ctx)

			So(err, ShouldBeNil)
			So(result.Deleted, ShouldEqual, 0)
			So(result.Errors, ShouldEqual, 3)
		})
	})

	Convey("Given an empty bucket", t, func() {
		retention := NewRetention(newFakeObjectStore(), &testLogger{}, policy)

		result, err := retention.Execute(context.Background())
		So(err, ShouldBeNil)
		So(result.Deleted, ShouldEqual, 0)
		So(result.Errors, ShouldEqual, 0)
	})
}
