package backup

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/logging"
)

func streamOf(t *testing.T, frames ...func(*bytes.Buffer)) io.ReadCloser {
	t.Helper()
	var buf bytes.Buffer
	for _, f := range frames {
		f(&buf)
	}
	return io.NopCloser(&buf)
}

func frameOf(t *testing.T, block uint32, payload []byte, compressedSize int32) func(*bytes.Buffer) {
	t.Helper()
	return func(buf *bytes.Buffer) {
		rc := NewRollingChecksum(ProducerVersion{2, 0, 25})
		if _, err := WriteFrame(buf, rc, block, payload, compressedSize); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
}

// Scenario 6: a legacy stream's truncation marker truncates the
// destination and stops the stream.
func TestRestoreTruncationMarker(t *testing.T) {
	dest := &memFile{data: make([]byte, 10*BlockSize)}
	rec := &FileRecord{WriteSize: 1}

	chain := []BackupSource{{
		Stream: func(relPath string) (io.ReadCloser, error) {
			return streamOf(t, frameOf(t, 5, nil, TruncatedMarker)), nil
		},
		Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
			return rec, ProducerVersion{2, 0, 25}, true
		},
	}}

	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	if err := restorer.Restore(bgctx(), chain, "rel", dest, 0); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	want := int64(5) * BlockSize
	if int64(len(dest.data)) != want {
		t.Fatalf("destination has %d bytes, want exactly %d", len(dest.data), want)
	}
}

// Scenario 5: chain replay. A (FULL) writes {0,1,2}; B (DELTA) writes a
// new block 1. Restoring {A,B} yields A's block 0, B's block 1, A's
// block 2.
func TestRestoreChainReplayNewestWins(t *testing.T) {
	blockA0 := bytes.Repeat([]byte{0xA0}, BlockSize)
	blockA1 := bytes.Repeat([]byte{0xA1}, BlockSize)
	blockA2 := bytes.Repeat([]byte{0xA2}, BlockSize)
	blockB1 := bytes.Repeat([]byte{0xB1}, BlockSize)

	recA := &FileRecord{WriteSize: 1}
	recB := &FileRecord{WriteSize: 1}

	chain := []BackupSource{
		{
			Stream: func(relPath string) (io.ReadCloser, error) {
				return streamOf(t,
					frameOf(t, 0, blockA0, BlockSize),
					frameOf(t, 1, blockA1, BlockSize),
					frameOf(t, 2, blockA2, BlockSize),
				), nil
			},
			Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
				return recA, ProducerVersion{2, 0, 25}, true
			},
		},
		{
			Stream: func(relPath string) (io.ReadCloser, error) {
				return streamOf(t, frameOf(t, 1, blockB1, BlockSize)), nil
			},
			Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
				return recB, ProducerVersion{2, 0, 25}, true
			},
		},
	}

	dest := &memFile{}
	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	if err := restorer.Restore(bgctx(), chain, "rel", dest, 3); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !bytes.Equal(dest.data[0:BlockSize], blockA0) {
		t.Error("block 0 should be A's copy")
	}
	if !bytes.Equal(dest.data[BlockSize:2*BlockSize], blockB1) {
		t.Error("block 1 should be B's (newer) copy")
	}
	if !bytes.Equal(dest.data[2*BlockSize:3*BlockSize], blockA2) {
		t.Error("block 2 should be A's copy")
	}
}

func TestRestoreSkipsUnchangedBackups(t *testing.T) {
	calls := 0
	chain := []BackupSource{
		{
			Stream: func(relPath string) (io.ReadCloser, error) {
				calls++
				return nil, nil
			},
			Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
				return &FileRecord{WriteSize: BytesInvalid}, ProducerVersion{2, 0, 25}, true
			},
		},
	}

	dest := &memFile{}
	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	if err := restorer.Restore(bgctx(), chain, "rel", dest, 0); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if calls != 0 {
		t.Fatalf("Stream should not be opened for a BytesInvalid record, called %d times", calls)
	}
}

func TestRestoreOutOfOrderBlockIsFatal(t *testing.T) {
	chain := []BackupSource{{
		Stream: func(relPath string) (io.ReadCloser, error) {
			return streamOf(t,
				frameOf(t, 2, bytes.Repeat([]byte{1}, BlockSize), BlockSize),
				frameOf(t, 1, bytes.Repeat([]byte{2}, BlockSize), BlockSize),
			), nil
		},
		Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
			return &FileRecord{WriteSize: 1}, ProducerVersion{2, 0, 25}, true
		},
	}}

	dest := &memFile{}
	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	err := restorer.Restore(bgctx(), chain, "rel", dest, 0)
	if !errors.Is(err, ErrOutOfOrderBlock) {
		t.Fatalf("got %v, want ErrOutOfOrderBlock", err)
	}
}

func TestRestoreOversizedFrameIsFatal(t *testing.T) {
	chain := []BackupSource{{
		Stream: func(relPath string) (io.ReadCloser, error) {
			var buf bytes.Buffer
			rc := NewRollingChecksum(ProducerVersion{2, 0, 25})
			hdr := FrameHeader{Block: 0, CompressedSize: BlockSize + 1}
			enc := hdr.Encode()
			buf.Write(enc[:])
			rc.Write(enc[:])
			return io.NopCloser(&buf), nil
		},
		Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
			return &FileRecord{WriteSize: 1}, ProducerVersion{2, 0, 25}, true
		},
	}}

	dest := &memFile{}
	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	err := restorer.Restore(bgctx(), chain, "rel", dest, 0)
	if !errors.Is(err, ErrOversizedFrame) {
		t.Fatalf("got %v, want ErrOversizedFrame", err)
	}
}

func TestRestoreLegacyEmptyMarkerSkipped(t *testing.T) {
	real := bytes.Repeat([]byte{0x42}, BlockSize)
	chain := []BackupSource{{
		Stream: func(relPath string) (io.ReadCloser, error) {
			return streamOf(t,
				frameOf(t, 0, nil, 0),
				frameOf(t, 0, real, BlockSize),
			), nil
		},
		Record: func(relPath string) (*FileRecord, ProducerVersion, bool) {
			return &FileRecord{WriteSize: 1}, ProducerVersion{2, 0, 25}, true
		},
	}}

	dest := &memFile{}
	restorer := NewRestoreFileReader(codec.None, logging.NewNop())
	if err := restorer.Restore(bgctx(), chain, "rel", dest, 1); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !bytes.Equal(dest.data[:BlockSize], real) {
		t.Fatal("block 0's real frame should have been applied after the empty marker was skipped")
	}
}

func TestIsLegacyCompressedFullBlockHeuristic(t *testing.T) {
	oldVersion := ProducerVersion{2, 0, 20}
	newVersion := ProducerVersion{2, 0, 25}

	zlibPayload := make([]byte, BlockSize)
	zlibPayload[0] = 0x78 // zlib magic byte, and not a valid page header

	if !isLegacyCompressedFullBlock(oldVersion, zlibPayload, codec.Zlib) {
		t.Error("old producer + zlib-magic + invalid header should trigger the heuristic")
	}
	if isLegacyCompressedFullBlock(newVersion, zlibPayload, codec.Zlib) {
		t.Error("producer at or after the cutoff must never trigger the heuristic")
	}

	validPage := newTestPage(t, 0x100, 0)
	if isLegacyCompressedFullBlock(oldVersion, validPage, codec.Zlib) {
		t.Error("a structurally valid page must never be treated as compressed")
	}
}
