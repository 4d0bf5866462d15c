package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/logging"
	"github.com/KilimcininKorOglu/pbcore/internal/page"
)

// CompressedWriterAt is an optional capability a restore destination may
// implement: accepting a still-compressed payload and a Truncate call
// directly, so RestoreFileReader can skip an extra decompress-then-copy
// when the sink already knows how to write a compressed page through.
// Destinations that don't implement it get pages decompressed by the core
// before WriteAt.
type CompressedWriterAt interface {
	io.WriterAt
	WriteCompressedAt(payload []byte, alg codec.Algorithm, off int64) error
	Truncate(size int64) error
}

// BackupSource is one backup in a restore chain's view of a single
// relation file: a way to open its stream and look up the FileRecord the
// backup recorded for it. Stream returns (nil, nil) when this backup never
// touched the file.
type BackupSource struct {
	Stream func(relPath string) (io.ReadCloser, error)
	Record func(relPath string) (*FileRecord, ProducerVersion, bool)
}

// RestoreFileReader replays an ordered chain of backups (oldest first) for
// one destination file, per §4.6: later backups' frames overwrite earlier
// ones for the same block, which is correct because replay proceeds
// oldest to newest.
type RestoreFileReader struct {
	CompressAlg codec.Algorithm
	Logger      logging.Logger
}

// NewRestoreFileReader returns a RestoreFileReader. A nil logger is
// replaced with a no-op logger.
func NewRestoreFileReader(alg codec.Algorithm, logger logging.Logger) *RestoreFileReader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RestoreFileReader{CompressAlg: alg, Logger: logger}
}

// Restore replays chain, oldest backup first, for relPath onto dest.
// nBlocks is the destination's expected block count if known; pass 0 when
// unknown (restore onto a fresh, unsized destination).
//
// Go's io.WriterAt makes the original tool's seek-avoidance bookkeeping
// unnecessary: every write already carries an absolute offset, and a FULL
// backup's strictly ascending blocks naturally produce strictly ascending
// offsets with no seek syscall in between.
func (r *RestoreFileReader) Restore(ctx context.Context, chain []BackupSource, relPath string, dest io.WriterAt, nBlocks int64) error {
	destCW, _ := dest.(CompressedWriterAt)

	for _, bk := range chain {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, version, found := bk.Record(relPath)
		if !found || rec == nil || rec.WriteSize == BytesInvalid || rec.WriteSize == 0 {
			continue
		}

		stream, err := bk.Stream(relPath)
		if err != nil {
			return err
		}
		if stream == nil {
			continue
		}

		err = r.replayStream(ctx, stream, version, dest, destCW, nBlocks)
		closeErr := stream.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// replayStream replays one backup's stream file for one relation onto
// dest, applying the §4.6 frame rules.
func (r *RestoreFileReader) replayStream(ctx context.Context, stream io.Reader, version ProducerVersion, dest io.WriterAt, destCW CompressedWriterAt, nBlocks int64) error {
	scratch := make([]byte, BlockSize)
	var prevBlock uint32
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := ReadFrameHeader(stream)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrOddSizePage, err)
		}

		if hdr.Block == 0 && hdr.CompressedSize == 0 {
			r.Logger.Warn("legacy empty marker frame, skipping")
			continue
		}

		if hdr.CompressedSize == TruncatedMarker {
			if destCW != nil {
				return destCW.Truncate(int64(hdr.Block) * BlockSize)
			}
			if tr, ok := dest.(interface{ Truncate(int64) error }); ok {
				return tr.Truncate(int64(hdr.Block) * BlockSize)
			}
			return nil
		}

		if !first && hdr.Block < prevBlock {
			return fmt.Errorf("%w: block %d follows block %d", ErrOutOfOrderBlock, hdr.Block, prevBlock)
		}
		first = false
		prevBlock = hdr.Block

		if nBlocks > 0 && int64(hdr.Block) >= nBlocks {
			return nil
		}

		if hdr.CompressedSize > BlockSize {
			return fmt.Errorf("%w: %d", ErrOversizedFrame, hdr.CompressedSize)
		}

		padded, err := ReadFramePayload(stream, hdr.CompressedSize)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOddSizePage, err)
		}
		actual := padded[:hdr.CompressedSize]
		off := int64(hdr.Block) * BlockSize

		if hdr.CompressedSize != BlockSize || isLegacyCompressedFullBlock(version, actual, r.CompressAlg) {
			if destCW != nil {
				if err := destCW.WriteCompressedAt(actual, r.CompressAlg, off); err != nil {
					return err
				}
				continue
			}
			n, err := codec.Decompress(scratch, actual, r.CompressAlg)
			if err != nil {
				return err
			}
			if n != BlockSize {
				return fmt.Errorf("%w: got %d", ErrDecompressedSize, n)
			}
			if _, err := dest.WriteAt(scratch[:BlockSize], off); err != nil {
				return err
			}
			continue
		}

		if _, err := dest.WriteAt(actual, off); err != nil {
			return err
		}
	}
}

// isLegacyCompressedFullBlock implements the §4.7 heuristic: producer
// versions before the cutoff mis-recorded a page whose compressed form
// was exactly BlockSize bytes as uncompressed. payload is the exact
// compressed_size bytes (not the MAXALIGN-padded read).
func isLegacyCompressedFullBlock(v ProducerVersion, payload []byte, alg codec.Algorithm) bool {
	if v.AtLeast(legacyCompressedPageHeuristicCutoff) {
		return false
	}
	if len(payload) != BlockSize {
		return false
	}
	ok, _ := page.CheckHeaderInvariants(payload)
	if ok {
		// Structurally a legitimate page: not the misrecorded case.
		return false
	}
	if alg == codec.Zlib {
		return payload[0] == 0x78
	}
	return true
}
