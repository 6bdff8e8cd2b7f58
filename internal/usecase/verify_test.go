package usecase

import (
	"bytes"
	"compress/gzip"
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/aegisdb/aegis/internal/adapter/compressor"
	"github.com/aegisdb/aegis/internal/domain"
)

func gzipped(content []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(content)
	_ = w.Close()
	return buf.Bytes()
}

func TestVerificationExecute(t *testing.T) {
	Convey("Given a completed backup in the object store", t, func() {
		ctx := context.Background()

		db := &fakeDatabase{tableCount: 4, liveRows: 1200}
		store := newFakeObjectStore()
		logger := &testLogger{}
		verifier := NewVerification(db, store, compressor.NewGzip(), logger)

		rec := &domain.BackupRecord{
			ID:         "11111111-2222-3333-4444-555555555555",
			Timestamp:  time.Now().UTC(),
			Type:       domain.TypeFull,
			Tier:       domain.TierDaily,
			Status:     domain.StatusCompleted,
			StorageKey: "backups/daily/2025/03/07/full-11111111-2222-3333-4444-555555555555.sql.gz",
		}
		store.put(rec.StorageKey, gzipped([]byte("CREATE TABLE a (id int);\nCREATE TABLE b (id int);\n")), time.Now())

		Convey("When verification runs", func() {
			result, err := verifier.Execute(ctx, rec)

			Convey("It restores into the deterministic ephemeral database and validates", func() {
				So(err, ShouldBeNil)
				So(result.TableCount, ShouldEqual, 4)
				So(result.LiveRows, ShouldEqual, 1200)

				name := EphemeralDBName(rec.ID)
				So(name, ShouldEqual, "aegis_verify_11111111_2222_3333_4444_555555555555")
				So(db.created, ShouldResemble, []string{name})
				So(db.restored, ShouldResemble, []string{name})
				So(db.dropped, ShouldResemble, []string{name})
			})
		})

		Convey("Verification is reproducible", func() {
			first, err1 := verifier.Execute(ctx, rec)
			second, err2 := verifier.Execute(ctx, rec)

			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(first.TableCount, ShouldEqual, second.TableCount)
			// The ephemeral database was dropped after each run.
			So(db.dropped, ShouldHaveLength, 2)
		})

		Convey("A restored database with zero tables is the reported failure", func() {
			db.tableCount = 0
			_, err := verifier.Execute(ctx, rec)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "contains no tables")
			// Guaranteed cleanup still dropped the database.
			So(db.dropped, ShouldHaveLength, 1)
		})

		Convey("A missing artifact fails the download stage", func() {
			rec.StorageKey = "backups/daily/2025/03/07/full-gone.sql.gz"
			_, err := verifier.Execute(ctx, rec)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "download artifact")
			So(db.created, ShouldBeEmpty)
		})

		Convey("Only completed or verified records are accepted", func() {
			rec.Status = domain.StatusInProgress
			_, err := verifier.Execute(ctx, rec)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "cannot verify backup in status in_progress")
		})
	})
}
