// Package backup implements the data-file backup and restore core: it
// copies a fixed-page relation file into a compact per-backup stream file
// (optionally restricted to changed blocks and independently compressed
// per page), and later replays a chain of such stream files, oldest to
// newest, to reconstruct the original file.
//
// The package owns four collaborating pieces:
//
//   - PageReader (reader.go) reads one page with bounded retry under
//     torn-read conditions and applies the DELTA/PTRACK skip rules.
//   - BlockFramer (frame.go) serializes a page into the stream's binary
//     frame format and parses frames back, maintaining a rolling checksum.
//   - BackupFileWriter (writer.go) orchestrates PageReader, the codec
//     package, and BlockFramer across one relation file.
//   - RestoreFileReader (restore.go) and BackupFileValidator (validate.go)
//     replay a stream, writing it out or merely re-verifying it.
//
// Non-data files (everything that is not a fixed-block relation) are
// handled separately and far more simply by nondata.go.
package backup
