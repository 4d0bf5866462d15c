package backup

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/KilimcininKorOglu/pbcore/internal/logging"
)

// nonDataChecksumTable is the polynomial used for whole-file dedup CRCs;
// non-data files carry no producer-version history of their own, so there
// is no legacy band to dispatch on (§4.5).
var nonDataChecksumTable = crc32.MakeTable(crc32.Castagnoli)

// ParentInfo describes the parent backup's copy of a non-data file, used
// for the dedup check in NonDataFile.Copy.
type ParentInfo struct {
	ModTime time.Time
	CRC     uint32
}

// NonDataFile copies one non-relation file (configuration, the engine's
// control file, anything not laid out in fixed BlockSize pages)
// byte-for-byte with a rolling CRC, no framing and no compression,
// published through the same atomic-rename discipline as
// BackupFileWriter (§4.5).
type NonDataFile struct {
	Logger logging.Logger
}

// NewNonDataFile returns a NonDataFile. A nil logger is replaced with a
// no-op logger.
func NewNonDataFile(logger logging.Logger) *NonDataFile {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NonDataFile{Logger: logger}
}

// Copy copies srcPath to destPath. When parent is non-nil, alwaysCopy is
// false, srcPath's mtime is at or before backupStart, and the whole-file
// CRC matches parent.CRC, the copy is skipped and rec.WriteSize is set to
// BytesInvalid. alwaysCopy forces a fresh copy regardless of parent (the
// engine's control file is always re-copied, per §4.5).
func (f *NonDataFile) Copy(
	ctx context.Context,
	srcPath, destPath string,
	rec *FileRecord,
	parent *ParentInfo,
	backupStart time.Time,
	alwaysCopy bool,
	missingOK bool,
) error {
	if rec == nil {
		return ErrNilFileRecord
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			if missingOK {
				rec.WriteSize = FileNotFound
				return nil
			}
			return fmt.Errorf("%w: %s", ErrSourceMissing, srcPath)
		}
		return classifyIOErr("stat", srcPath, err)
	}
	rec.Size = info.Size()

	if !alwaysCopy && parent != nil && !info.ModTime().After(backupStart) {
		crc, err := fileCRC(srcPath)
		if err != nil {
			return err
		}
		if crc == parent.CRC {
			rec.WriteSize = BytesInvalid
			rec.CRC = crc
			return nil
		}
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return classifyIOErr("open", srcPath, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	publishDone := make(chan error, 1)
	go func() {
		publishDone <- atomic.WriteFile(destPath, pr)
	}()

	hasher := crc32.New(nonDataChecksumTable)
	mw := io.MultiWriter(pw, hasher)

	n, copyErr := io.Copy(mw, &contextReader{ctx: ctx, r: src})
	if copyErr != nil {
		pw.CloseWithError(copyErr)
		<-publishDone
		return copyErr
	}

	if n == 0 {
		rec.WriteSize = BytesInvalid
		pw.CloseWithError(errEmptyOutput)
		<-publishDone
		return nil
	}

	rec.WriteSize = n
	if err := pw.Close(); err != nil {
		return err
	}
	if err := <-publishDone; err != nil {
		return err
	}
	rec.CRC = hasher.Sum32()
	return nil
}

// fileCRC computes the whole-file CRC used for the parent-dedup check.
func fileCRC(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, classifyIOErr("open", path, err)
	}
	defer f.Close()

	h := crc32.New(nonDataChecksumTable)
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// contextReader wraps an io.Reader with a cancellation check at every
// Read, the copy-loop equivalent of PageReader's block-boundary check for
// a file with no block structure of its own.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
