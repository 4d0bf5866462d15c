package backup

import (
	"context"
	"testing"

	"github.com/KilimcininKorOglu/pbcore/internal/page"
)

func validPageHeader() page.Header {
	return page.Header{
		Lower:           page.HeaderSize,
		Upper:           page.BlockSize,
		Special:         page.BlockSize,
		PagesizeVersion: page.NewPagesizeVersion(page.BlockSize, page.LayoutVersion),
	}
}

// newTestPage builds a structurally valid page with the given lsn and a
// checksum computed for absoluteBlock.
func newTestPage(t *testing.T, lsn uint64, absoluteBlock uint32) []byte {
	t.Helper()
	buf := make([]byte, page.BlockSize)
	h := validPageHeader()
	h.LSN = lsn
	page.PutHeader(buf, h)
	h.Checksum = page.Checksum(buf, absoluteBlock)
	page.PutHeader(buf, h)
	return buf
}

// newFillPage is like newTestPage but fills the payload area with a
// compressible pattern: the first half zero, the second half 0xFF.
func newFillPage(t *testing.T, lsn uint64, absoluteBlock uint32) []byte {
	t.Helper()
	buf := newTestPage(t, lsn, absoluteBlock)
	half := len(buf) / 2
	for i := page.HeaderSize; i < half; i++ {
		buf[i] = 0x00
	}
	for i := half; i < len(buf); i++ {
		buf[i] = 0xFF
	}
	h := page.ParseHeader(buf)
	h.Checksum = page.Checksum(buf, absoluteBlock)
	page.PutHeader(buf, h)
	return buf
}

// scriptedReaderAt simulates a torn-read sequence: each call to ReadAt
// returns the next scripted buffer, clamped to the last entry once
// exhausted. It satisfies io.ReaderAt and ignores off (tests only read one
// block at offset 0).
type scriptedReaderAt struct {
	reads [][]byte
	errs  []error
	calls int
}

func (s *scriptedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	i := s.calls
	if i >= len(s.reads) {
		i = len(s.reads) - 1
	}
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	n := copy(p, s.reads[i])
	return n, err
}

type fakeTracker struct {
	page []byte
	ok   bool
	err  error
}

func (f *fakeTracker) GetBlock(ctx context.Context, dbOID, tablespaceOID, relOID, absoluteBlock uint32, trackerVersion int, schema string) ([]byte, bool, error) {
	return f.page, f.ok, f.err
}

// memFile is an in-memory io.WriterAt with Truncate, used as a restore
// destination in tests.
type memFile struct {
	data []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memFile) Truncate(size int64) error {
	if size < int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.data)
	m.data = grown
	return nil
}

func bgctx() context.Context { return context.Background() }
