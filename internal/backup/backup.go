package backup

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/page"
	"github.com/KilimcininKorOglu/pbcore/internal/pagemap"
)

// PageReadAttempts bounds how many times PageReader retries a single block
// before giving up on a torn read.
const PageReadAttempts = 100

// BlockSize mirrors page.BlockSize for callers that only import backup.
const BlockSize = page.BlockSize

// Sentinel values for FileRecord.WriteSize.
const (
	// BytesInvalid means "reuse the parent backup's copy of this file":
	// nothing changed since the parent. A FULL pass over a file with no
	// blocks records WriteSize 0 instead.
	BytesInvalid int64 = -1
	// FileNotFound means the source file vanished during the backup pass.
	FileNotFound int64 = -2
)

// TruncatedMarker is the legacy in-stream sentinel for "file ends here".
// New streams omit trailing blocks instead of emitting this marker, but
// RestoreFileReader and BackupFileValidator must still recognize it.
const TruncatedMarker int32 = -1

// Mode selects which blocks a backup pass selects for a given file.
type Mode int

const (
	// Full copies every block unconditionally.
	Full Mode = iota
	// Delta copies blocks whose LSN is at least the parent backup's start
	// LSN.
	Delta
	// Page copies blocks selected by a pagemap built from WAL analysis.
	Page
	// Ptrack copies blocks selected by a pagemap built from the engine's
	// change-tracking extension.
	Ptrack
)

// String renders a Mode for logging and CLI echoing.
func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Delta:
		return "delta"
	case Page:
		return "page"
	case Ptrack:
		return "ptrack"
	default:
		return "unknown"
	}
}

// ParseMode maps a config/CLI string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full":
		return Full, nil
	case "delta":
		return Delta, nil
	case "page":
		return Page, nil
	case "ptrack":
		return Ptrack, nil
	default:
		return Full, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// ProducerVersion is the parsed major.minor.patch of the tool that wrote a
// backup stream. Both the legacy compressed-page heuristic (§4.7) and the
// rolling checksum's polynomial choice (§4.8) dispatch on it.
type ProducerVersion struct {
	Major, Minor, Patch int
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, ordered lexicographically by (Major, Minor, Patch).
func (v ProducerVersion) Compare(other ProducerVersion) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Before reports whether v sorts strictly before other.
func (v ProducerVersion) Before(other ProducerVersion) bool { return v.Compare(other) < 0 }

// AtLeast reports whether v sorts at or after other.
func (v ProducerVersion) AtLeast(other ProducerVersion) bool { return v.Compare(other) >= 0 }

// String renders the version as "major.minor.patch".
func (v ProducerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// legacyCompressedPageHeuristicCutoff is the first producer version that no
// longer mis-records a full-block compressed page as uncompressed (§4.7).
var legacyCompressedPageHeuristicCutoff = ProducerVersion{2, 0, 23}

// legacyPtrackMinVersion and legacyPtrackMaxVersion bound the ptrack versions that use the
// fetch-from-shared-buffer path in PageReader (§4.3).
const (
	legacyPtrackMinVersion = 15
	legacyPtrackMaxVersion = 20 // exclusive
)

// FileRecord is the per-file state a backup pass reads and mutates. It is
// owned by the outer scheduler and touched by at most one worker at a time;
// this package never shares a single FileRecord between goroutines.
type FileRecord struct {
	// Relation identity.
	DBOID, TablespaceOID, RelOID uint32
	Segment                      int
	RelPath                      string

	Size             int64
	NBlocks          int64
	ReadSize         int64
	WriteSize        int64
	UncompressedSize int64

	// CRC is the rolling per-file checksum of the backup stream, finalized
	// once the pass completes. It is not stored inside the stream itself.
	CRC uint32

	ExistsInPrev bool
	Pagemap      *pagemap.Map

	CompressAlg   codec.Algorithm
	CompressLevel int
}

// IsUnchanged reports whether this record's write size records "reuse the
// parent backup's copy".
func (f *FileRecord) IsUnchanged() bool {
	return f.WriteSize == BytesInvalid
}

// IsMissing reports whether this record's write size records "vanished
// during backup".
func (f *FileRecord) IsMissing() bool {
	return f.WriteSize == FileNotFound
}

// Errors returned by this package's configuration and orchestration paths.
var (
	ErrInvalidMode       = errors.New("invalid backup mode")
	ErrNilFileRecord     = errors.New("file record is nil")
	ErrSourceMissing     = errors.New("source file does not exist")
	ErrBackupBroken      = errors.New("backup is broken")
	ErrOddSizePage       = errors.New("odd size page found, probably backup is broken")
	ErrOutOfOrderBlock   = errors.New("block numbers in stream are out of order")
	ErrOversizedFrame    = errors.New("compressed size exceeds block size")
	ErrDecompressedSize  = errors.New("decompressed page size does not equal block size")
	ErrCancelled         = errors.New("backup pass was cancelled")
	ErrChangeTrackerFail = errors.New("change-tracking fetch failed")
)
