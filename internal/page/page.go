package page

import "encoding/binary"

const (
	// BlockSize is the fixed on-disk page size of the relation engine.
	BlockSize = 8192

	// HeaderSize is the size, in bytes, of the leading Header every page carries.
	HeaderSize = 24

	// MaxAlign is the engine's fundamental alignment.
	MaxAlign = 8

	// LayoutVersion is the page layout version this codebase understands.
	LayoutVersion = 4

	// ValidFlagBits is the mask of legal bits in Header.Flags; any other bit
	// set marks the page as structurally invalid.
	ValidFlagBits = 0x0007
)

// MaxAlignUp rounds n up to the nearest multiple of MaxAlign.
func MaxAlignUp(n int32) int32 {
	return (n + (MaxAlign - 1)) &^ (MaxAlign - 1)
}

// Header is the leading HeaderSize bytes of every Page. It is always
// read from and written to a raw byte buffer through Parse/PutHeader;
// it is never aliased over page memory as a struct pointer.
type Header struct {
	LSN             uint64
	Checksum        uint16
	Flags           uint16
	Lower           uint16
	Upper           uint16
	Special         uint16
	PagesizeVersion uint16
}

// PageSize extracts the encoded block size from PagesizeVersion.
func (h Header) PageSize() uint16 {
	return h.PagesizeVersion &^ 0x0007
}

// Version extracts the encoded layout version from PagesizeVersion.
func (h Header) Version() uint16 {
	return h.PagesizeVersion & 0x0007
}

// NewPagesizeVersion packs a block size and layout version into a single
// field the way Header.PagesizeVersion stores them on disk.
func NewPagesizeVersion(blockSize uint16, version uint16) uint16 {
	return (blockSize &^ 0x0007) | (version & 0x0007)
}

// ParseHeader reads a Header from the first HeaderSize bytes of buf.
// buf must be at least HeaderSize bytes long.
func ParseHeader(buf []byte) Header {
	_ = buf[HeaderSize-1]
	return Header{
		LSN:             binary.LittleEndian.Uint64(buf[0:8]),
		Checksum:        binary.LittleEndian.Uint16(buf[8:10]),
		Flags:           binary.LittleEndian.Uint16(buf[10:12]),
		Lower:           binary.LittleEndian.Uint16(buf[12:14]),
		Upper:           binary.LittleEndian.Uint16(buf[14:16]),
		Special:         binary.LittleEndian.Uint16(buf[16:18]),
		PagesizeVersion: binary.LittleEndian.Uint16(buf[18:20]),
		// bytes 20-23 are reserved padding, currently unused.
	}
}

// PutHeader writes h into the first HeaderSize bytes of buf.
// buf must be at least HeaderSize bytes long.
func PutHeader(buf []byte, h Header) {
	_ = buf[HeaderSize-1]
	binary.LittleEndian.PutUint64(buf[0:8], h.LSN)
	binary.LittleEndian.PutUint16(buf[8:10], h.Checksum)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	binary.LittleEndian.PutUint16(buf[12:14], h.Lower)
	binary.LittleEndian.PutUint16(buf[14:16], h.Upper)
	binary.LittleEndian.PutUint16(buf[16:18], h.Special)
	binary.LittleEndian.PutUint16(buf[18:20], h.PagesizeVersion)
	for i := 20; i < HeaderSize; i++ {
		buf[i] = 0
	}
}

// SetChecksum patches just the checksum field of a page buffer in place,
// used by the PTRACK path to stamp a freshly computed checksum onto a
// page fetched from the engine's shared buffer.
func SetChecksum(buf []byte, checksum uint16) {
	binary.LittleEndian.PutUint16(buf[8:10], checksum)
}

// IsZeroed reports whether every byte of buf is zero.
func IsZeroed(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
