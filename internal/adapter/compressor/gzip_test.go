package compressor

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGzipCompressor(t *testing.T) {
	Convey("Given a GzipCompressor", t, func() {
		compressor := NewGzip()

		Convey("Compress method", func() {
			Convey("When compressing a valid file", func() {
				inputContent := []byte("-- PostgreSQL database dump\nCREATE TABLE accounts (id serial);\n")
				inputPath := filepath.Join(t.TempDir(), "dump.sql")
				So(os.WriteFile(inputPath, inputContent, 0o644), ShouldBeNil)

				outputPath := inputPath + ".gz"

				Convey("It should produce a valid gzip stream with the same content", func() {
					So(compressor.Compress(inputPath, outputPath), ShouldBeNil)

					gzipFile, err := os.Open(outputPath)
					So(err, ShouldBeNil)
					defer gzipFile.Close()

					gzipReader, err := gzip.NewReader(gzipFile)
					So(err, ShouldBeNil)
					defer gzipReader.Close()

					var decompressed bytes.Buffer
					_, err = decompressed.ReadFrom(gzipReader)
					So(err, ShouldBeNil)
					So(decompressed.Bytes(), ShouldResemble, inputContent)
				})
			})

			Convey("When the source file does not exist", func() {
				err := compressor.Compress("nonexistent.sql", filepath.Join(t.TempDir(), "out.gz"))
				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to open source file")
				})
			})

			Convey("When the destination path is invalid", func() {
				inputPath := filepath.Join(t.TempDir(), "in.sql")
				So(os.WriteFile(inputPath, []byte("x"), 0o644), ShouldBeNil)

				err := compressor.Compress(inputPath, "/invalid/path/out.gz")
				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create dest file")
				})
			})
		})

		Convey("Decompress method", func() {
			Convey("When round-tripping through compress and decompress", func() {
				inputContent := []byte("INSERT INTO accounts VALUES (1), (2), (3);\n")
				inputPath := filepath.Join(t.TempDir(), "dump.sql")
				So(os.WriteFile(inputPath, inputContent, 0o644), ShouldBeNil)

				gzPath := inputPath + ".gz"
				outPath := filepath.Join(t.TempDir(), "restored.sql")

				So(compressor.Compress(inputPath, gzPath), ShouldBeNil)
				So(compressor.Decompress(gzPath, outPath), ShouldBeNil)

				restored, err := os.ReadFile(outPath)
				So(err, ShouldBeNil)
				So(restored, ShouldResemble, inputContent)
			})

			Convey("When the source file is not a valid gzip stream", func() {
				badPath := filepath.Join(t.TempDir(), "plain.txt")
				So(os.WriteFile(badPath, []byte("not gzip"), 0o644), ShouldBeNil)

				err := compressor.Decompress(badPath, filepath.Join(t.TempDir(), "out.sql"))
				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create gzip reader")
				})
			})
		})
	})
}
