package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/logging"
)

// Checksum fidelity: the validator's recomputed rolling checksum equals
// the writer's recorded checksum for a file it produced.
func TestValidateChecksumFidelity(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	destPath := filepath.Join(dir, "dest")

	var src []byte
	for b := uint32(0); b < 4; b++ {
		src = append(src, newTestPage(t, uint64(b+1), b)...)
	}
	if err := os.WriteFile(srcPath, src, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &FileRecord{}
	w := newFullWriter(codec.None, true)
	if err := w.WriteFile(bgctx(), srcPath, destPath, rec, Full, false, nil, 0, "", 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	stream, err := os.Open(destPath)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	v := NewBackupFileValidator(codec.None, logging.NewNop())
	result, err := v.Validate(bgctx(), stream, rec, ProducerVersion{2, 0, 25}, 0, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("result should be valid, invalid blocks: %v", result.InvalidBlocks)
	}
	if result.RecomputedCRC != rec.CRC {
		t.Fatalf("recomputed CRC %d != writer's recorded CRC %d", result.RecomputedCRC, rec.CRC)
	}
	if result.BlocksRead != 4 {
		t.Fatalf("BlocksRead = %d, want 4", result.BlocksRead)
	}
}

func TestValidateDetectsCorruptPageButContinues(t *testing.T) {
	good := newTestPage(t, 0x100, 0)
	corrupt := newTestPage(t, 0x100, 1)
	corrupt[10] ^= 0xFF // illegal flag bits -> HeaderInvalid

	var buf bytes.Buffer
	rc := NewRollingChecksum(ProducerVersion{2, 0, 25})
	if _, err := WriteFrame(&buf, rc, 0, good, BlockSize); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteFrame(&buf, rc, 1, corrupt, BlockSize); err != nil {
		t.Fatal(err)
	}
	rec := &FileRecord{CRC: rc.Sum()}

	v := NewBackupFileValidator(codec.None, logging.NewNop())
	result, err := v.Validate(bgctx(), &buf, rec, ProducerVersion{2, 0, 25}, 0, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Fatal("result should be invalid: one block failed header validation")
	}
	if result.BlocksRead != 2 {
		t.Fatalf("BlocksRead = %d, want 2 (validation continues past a bad block)", result.BlocksRead)
	}
	if len(result.InvalidBlocks) != 1 || result.InvalidBlocks[0] != 1 {
		t.Fatalf("InvalidBlocks = %v, want [1]", result.InvalidBlocks)
	}
}

func TestValidateOutOfOrderTerminatesEarly(t *testing.T) {
	p0 := newTestPage(t, 0x100, 0)
	p1 := newTestPage(t, 0x100, 1)

	var buf bytes.Buffer
	rc := NewRollingChecksum(ProducerVersion{2, 0, 25})
	if _, err := WriteFrame(&buf, rc, 2, p1, BlockSize); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteFrame(&buf, rc, 1, p0, BlockSize); err != nil {
		t.Fatal(err)
	}

	v := NewBackupFileValidator(codec.None, logging.NewNop())
	result, err := v.Validate(bgctx(), &buf, &FileRecord{}, ProducerVersion{2, 0, 25}, 0, false)
	if err == nil {
		t.Fatal("expected a framing error for an out-of-order block")
	}
	if result.Valid {
		t.Fatal("result should be marked invalid on a framing error")
	}
}
