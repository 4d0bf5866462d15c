package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/KilimcininKorOglu/pbcore/internal/logging"
	"github.com/KilimcininKorOglu/pbcore/internal/page"
)

// ReadState is the outcome of PageReader.ReadBlock.
type ReadState int

const (
	// StateOK means buf now holds the block to back up.
	StateOK ReadState = iota
	// StateTruncated means the source (or, on PTRACK, the live engine)
	// reports the block no longer exists.
	StateTruncated
	// StateSkip means the block is valid but this backup mode decided not
	// to copy it (DELTA: older than the parent's start LSN).
	StateSkip
	// StateCorrupted means retries were exhausted in non-strict mode; the
	// caller should record the block as invalid and move on.
	StateCorrupted
)

// String renders a ReadState for logging.
func (s ReadState) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateTruncated:
		return "truncated"
	case StateSkip:
		return "skip"
	case StateCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// PageReader reads and classifies one block at a time from a relation
// file, tolerating torn reads (§4.3) and applying the PTRACK live-buffer
// replacement and DELTA lsn filtering rules.
type PageReader struct {
	Strict           bool
	ChecksumsEnabled bool
	Logger           logging.Logger
}

// NewPageReader returns a PageReader. A nil logger is replaced with a
// no-op logger.
func NewPageReader(strict, checksumsEnabled bool, logger logging.Logger) *PageReader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PageReader{Strict: strict, ChecksumsEnabled: checksumsEnabled, Logger: logger}
}

// ReadBlock fills buf, which must be exactly BlockSize, with the contents
// of absoluteBlock read from src at block_no*BlockSize. rec identifies the
// relation for the PTRACK change-tracker call; it is read, never mutated.
//
// trackerVersion and schema are only consulted when mode is Ptrack; pass
// zero/empty when not applicable.
func (r *PageReader) ReadBlock(
	ctx context.Context,
	src io.ReaderAt,
	rec *FileRecord,
	absoluteBlock uint32,
	mode Mode,
	prevStartLSN uint64,
	existsInPrev bool,
	trackerVersion int,
	schema string,
	tracker ChangeTracker,
	buf []byte,
) (ReadState, error) {
	if rec == nil {
		return StateCorrupted, ErrNilFileRecord
	}
	if len(buf) != BlockSize {
		return StateCorrupted, fmt.Errorf("buffer size %d does not match block size %d", len(buf), BlockSize)
	}

	lsn, state, err := r.readWithRetry(ctx, src, absoluteBlock, buf)
	if state != StateOK {
		return state, err
	}

	if mode == Ptrack && trackerVersion >= legacyPtrackMinVersion && trackerVersion < legacyPtrackMaxVersion {
		state, err = r.fetchFromChangeTracker(ctx, rec, absoluteBlock, trackerVersion, schema, tracker, buf)
		if state != StateOK {
			return state, err
		}
	}

	// Nullified pages must be copied by DELTA backup, just to be safe.
	if mode == Delta && existsInPrev && lsn != 0 && lsn < prevStartLSN {
		return StateSkip, nil
	}

	return StateOK, nil
}

// readWithRetry implements the torn-read-tolerant positional read loop: up
// to PageReadAttempts attempts, retrying on short reads and on
// HeaderInvalid/ChecksumMismatch classifications (a concurrent writer may
// be mid-update), exhausting into either a fatal error (strict) or a
// logged StateCorrupted (non-strict).
func (r *PageReader) readWithRetry(ctx context.Context, src io.ReaderAt, absoluteBlock uint32, buf []byte) (uint64, ReadState, error) {
	offset := int64(absoluteBlock) * int64(BlockSize)

	var lastErr error
	for attempt := 0; attempt < PageReadAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, StateCorrupted, err
		}

		n, err := src.ReadAt(buf, offset)
		switch {
		case n == 0 && errors.Is(err, io.EOF):
			return 0, StateTruncated, nil
		case n == 0 && err != nil:
			return 0, StateCorrupted, classifyIOErr("read", "", err)
		case n < BlockSize:
			r.Logger.Debug("short read, retrying", "block", absoluteBlock, "n", n, "attempt", attempt)
			lastErr = fmt.Errorf("%w: read %d of %d bytes", ErrOddSizePage, n, BlockSize)
			continue
		}

		classification, lsn, verr := page.Validate(buf, absoluteBlock, 0, r.ChecksumsEnabled)
		switch classification {
		case page.Zeroed:
			return 0, StateOK, nil
		case page.Valid:
			return lsn, StateOK, nil
		case page.HeaderInvalid, page.ChecksumMismatch:
			lastErr = verr
			r.Logger.Debug("page validation failed, retrying", "block", absoluteBlock, "attempt", attempt, "error", verr)
			continue
		default:
			lastErr = verr
		}
	}

	if lastErr == nil {
		lastErr = ErrBackupBroken
	}
	if r.Strict {
		return 0, StateCorrupted, fmt.Errorf("block %d: %w", absoluteBlock, lastErr)
	}
	r.Logger.Warn("block failed validation after all retries, continuing in non-strict mode",
		"block", absoluteBlock, "error", lastErr)
	return 0, StateCorrupted, nil
}

// fetchFromChangeTracker replaces buf with the engine's live copy of the
// block for legacy ptrack versions (§4.3, §9). A HeaderInvalid result is
// fatal even in non-strict mode; ChecksumMismatch is tolerated because the
// live buffer copy legitimately carries a stale checksum.
func (r *PageReader) fetchFromChangeTracker(
	ctx context.Context,
	rec *FileRecord,
	absoluteBlock uint32,
	trackerVersion int,
	schema string,
	tracker ChangeTracker,
	buf []byte,
) (ReadState, error) {
	if tracker == nil {
		return StateCorrupted, fmt.Errorf("%w: no change tracker configured", ErrChangeTrackerFail)
	}

	fetched, ok, err := tracker.GetBlock(ctx, rec.DBOID, rec.TablespaceOID, rec.RelOID, absoluteBlock, trackerVersion, schema)
	if err != nil {
		return StateCorrupted, fmt.Errorf("%w: %v", ErrChangeTrackerFail, err)
	}
	if !ok {
		return StateTruncated, nil
	}
	if len(fetched) != BlockSize {
		return StateCorrupted, fmt.Errorf("%w: change tracker returned %d bytes, want %d", ErrChangeTrackerFail, len(fetched), BlockSize)
	}
	copy(buf, fetched)

	classification, _, verr := page.Validate(buf, absoluteBlock, 0, false)
	if classification == page.HeaderInvalid {
		return StateCorrupted, fmt.Errorf("change tracker returned invalid page for block %d: %w", absoluteBlock, verr)
	}

	if r.ChecksumsEnabled {
		page.SetChecksum(buf, page.Checksum(buf, absoluteBlock))
	}
	return StateOK, nil
}
