package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"

	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/logging"
)

// errStopIteration is an internal control-flow sentinel for "the block
// loop hit TRUNCATED and should end the file cleanly"; it never escapes
// WriteFile.
var errStopIteration = errors.New("backup: stop iteration")

// errEmptyOutput aborts the temp-file side of the atomic publish when the
// pass decided the destination should not exist at all (zero bytes
// written); the pipe reader sees this as a write error and
// natefinch/atomic never renames a temp file into place.
var errEmptyOutput = errors.New("backup: discarding empty output")

// BackupFileWriter drives the per-file backup protocol of §4.4: reading
// selected blocks through a PageReader, framing each one through
// WriteFrame and a RollingChecksum, and publishing the result atomically
// via natefinch/atomic so a crash mid-write never leaves a half-written
// stream file at the destination path.
type BackupFileWriter struct {
	Reader        *PageReader
	CompressAlg   codec.Algorithm
	CompressLevel int
	Version       ProducerVersion
	Logger        logging.Logger
}

// NewBackupFileWriter returns a BackupFileWriter. A nil logger is replaced
// with a no-op logger.
func NewBackupFileWriter(reader *PageReader, alg codec.Algorithm, level int, version ProducerVersion, logger logging.Logger) *BackupFileWriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackupFileWriter{Reader: reader, CompressAlg: alg, CompressLevel: level, Version: version, Logger: logger}
}

// WriteFile backs up one relation file from srcPath to destPath, mutating
// rec in place per the FileRecord.WriteSize sentinel rules of §6.
//
// prevStartLSN is the parent backup's start LSN, consulted only in Delta
// mode. tracker/trackerVersion/schema are only consulted in Ptrack mode
// with a legacy tracker version; pass nil/0/"" otherwise.
func (w *BackupFileWriter) WriteFile(
	ctx context.Context,
	srcPath, destPath string,
	rec *FileRecord,
	mode Mode,
	missingOK bool,
	tracker ChangeTracker,
	trackerVersion int,
	schema string,
	prevStartLSN uint64,
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
	rec.NBlocks = rec.Size / BlockSize

	pagemapDriven := mode == Page || mode == Ptrack

	// "Nothing changed since parent": a present, non-absent, empty pagemap
	// for a file that existed in the parent backup. Exit before opening
	// any output.
	if pagemapDriven && rec.ExistsInPrev && !rec.Pagemap.IsAbsent() && rec.Pagemap.IsEmpty() {
		rec.WriteSize = BytesInvalid
		return nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return classifyIOErr("open", srcPath, err)
	}
	defer src.Close()

	usePagemap := pagemapDriven && rec.Pagemap.Usable(rec.ExistsInPrev)

	pr, pw := io.Pipe()
	publishDone := make(chan error, 1)
	go func() {
		publishDone <- atomic.WriteFile(destPath, pr)
	}()

	rc := NewRollingChecksum(w.Version)
	buf := make([]byte, BlockSize)
	scratch := make([]byte, BlockSize)

	var readSize, writeSize int64

	writeBlock := func(block uint32) error {
		state, rerr := w.Reader.ReadBlock(ctx, src, rec, block, mode, prevStartLSN, rec.ExistsInPrev, trackerVersion, schema, tracker, buf)
		if rerr != nil {
			return rerr
		}
		if state == StateTruncated {
			return errStopIteration
		}

		readSize += BlockSize

		if state == StateSkip || state == StateCorrupted {
			return nil
		}

		payload := buf
		compressedSize := int32(BlockSize)
		if w.CompressAlg != codec.None {
			n, cerr := codec.Compress(scratch, buf, w.CompressAlg, w.CompressLevel)
			if cerr != nil {
				return cerr
			}
			if n > 0 && n < BlockSize {
				payload = scratch[:n]
				compressedSize = int32(n)
			}
		}

		written, werr := WriteFrame(pw, rc, block, payload, compressedSize)
		if werr != nil {
			return werr
		}
		writeSize += written
		return nil
	}

	var abortErr error
	if usePagemap {
		it := rec.Pagemap.Iterator()
		for it.HasNext() {
			if err := writeBlock(it.Next()); err != nil {
				if err != errStopIteration {
					abortErr = err
				}
				break
			}
		}
	} else {
		for b := uint32(0); int64(b) < rec.NBlocks; b++ {
			if err := writeBlock(b); err != nil {
				if err != errStopIteration {
					abortErr = err
				}
				break
			}
		}
	}

	if abortErr != nil {
		pw.CloseWithError(abortErr)
		<-publishDone
		return abortErr
	}

	if mode == Full || mode == Delta {
		rec.NBlocks = readSize / BlockSize
	}
	rec.ReadSize = readSize

	if writeSize == 0 {
		// Only an incremental backup of a file that existed in the parent
		// and still has blocks promotes "nothing written" to BytesInvalid
		// ("unchanged since parent"); a FULL backup of a genuinely empty
		// file just has WriteSize 0. Either way there is no point storing
		// an empty stream file.
		if mode != Full && rec.ExistsInPrev && rec.NBlocks > 0 {
			rec.WriteSize = BytesInvalid
		} else {
			rec.WriteSize = 0
		}
		pw.CloseWithError(errEmptyOutput)
		<-publishDone
		return nil
	}

	rec.WriteSize = writeSize
	if err := pw.Close(); err != nil {
		return err
	}
	if err := <-publishDone; err != nil {
		return err
	}
	rec.CRC = rc.Sum()
	return nil
}
