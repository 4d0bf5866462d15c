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

// ValidationResult is the per-file outcome of BackupFileValidator.Validate.
type ValidationResult struct {
	Valid         bool
	BlocksRead    int64
	InvalidBlocks []uint32
	RecomputedCRC uint32
}

// BackupFileValidator independently re-verifies one backup stream file
// against the FileRecord its writer produced, per §4.8.
type BackupFileValidator struct {
	CompressAlg codec.Algorithm
	Logger      logging.Logger
}

// NewBackupFileValidator returns a BackupFileValidator. A nil logger is
// replaced with a no-op logger.
func NewBackupFileValidator(alg codec.Algorithm, logger logging.Logger) *BackupFileValidator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackupFileValidator{CompressAlg: alg, Logger: logger}
}

// Validate reads stream end to end, recomputing the rolling checksum with
// the polynomial appropriate for version and re-running PageValidator on
// every reconstructed page against stopLSN. A HEADER_INVALID or
// CHECKSUM_MISMATCH page downgrades the file to invalid but validation
// continues; a framing error (short read, out-of-order block, a
// decompressed size that isn't exactly BlockSize) terminates early and
// returns invalid. A final checksum mismatch against rec.CRC also marks
// the file invalid.
func (v *BackupFileValidator) Validate(ctx context.Context, stream io.Reader, rec *FileRecord, version ProducerVersion, stopLSN uint64, checksumsEnabled bool) (ValidationResult, error) {
	result := ValidationResult{Valid: true}

	rc := NewRollingChecksum(version)
	tr := io.TeeReader(stream, rc)
	scratch := make([]byte, BlockSize)
	var prevBlock uint32
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hdr, err := ReadFrameHeader(tr)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			result.Valid = false
			return result, fmt.Errorf("%w: %v", ErrOddSizePage, err)
		}

		if hdr.Block == 0 && hdr.CompressedSize == 0 {
			continue
		}
		if hdr.CompressedSize == TruncatedMarker {
			break
		}

		if !first && hdr.Block < prevBlock {
			result.Valid = false
			return result, fmt.Errorf("%w: block %d follows block %d", ErrOutOfOrderBlock, hdr.Block, prevBlock)
		}
		first = false
		prevBlock = hdr.Block

		if hdr.CompressedSize > BlockSize {
			result.Valid = false
			return result, fmt.Errorf("%w: %d", ErrOversizedFrame, hdr.CompressedSize)
		}

		padded, err := ReadFramePayload(tr, hdr.CompressedSize)
		if err != nil {
			result.Valid = false
			return result, fmt.Errorf("%w: %v", ErrOddSizePage, err)
		}
		actual := padded[:hdr.CompressedSize]

		var pageBuf []byte
		if hdr.CompressedSize != BlockSize || isLegacyCompressedFullBlock(version, actual, v.CompressAlg) {
			n, derr := codec.Decompress(scratch, actual, v.CompressAlg)
			if derr != nil {
				result.Valid = false
				return result, derr
			}
			if n != BlockSize {
				result.Valid = false
				return result, fmt.Errorf("%w: got %d", ErrDecompressedSize, n)
			}
			pageBuf = scratch
		} else {
			pageBuf = actual
		}

		classification, _, verr := page.Validate(pageBuf, hdr.Block, stopLSN, checksumsEnabled)
		if classification == page.HeaderInvalid || classification == page.ChecksumMismatch {
			result.Valid = false
			result.InvalidBlocks = append(result.InvalidBlocks, hdr.Block)
			v.Logger.Warn("block failed validation", "block", hdr.Block, "error", verr)
		}

		result.BlocksRead++
	}

	result.RecomputedCRC = rc.Sum()
	if rec != nil && result.RecomputedCRC != rec.CRC {
		result.Valid = false
	}
	return result, nil
}
