package backup

import (
	"encoding/binary"
	"io"

	"github.com/KilimcininKorOglu/pbcore/internal/page"
)

// FrameHeaderSize is the encoded size, in bytes, of a FrameHeader.
const FrameHeaderSize = 8

// FrameHeader is the fixed 8-byte record that precedes every page's payload
// in a backup stream file.
type FrameHeader struct {
	Block          uint32
	CompressedSize int32
}

// Encode writes h in the stream's little-endian wire format.
func (h FrameHeader) Encode() [FrameHeaderSize]byte {
	var buf [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Block)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.CompressedSize))
	return buf
}

// DecodeFrameHeader parses a FrameHeader from its wire format. buf must be
// at least FrameHeaderSize bytes.
func DecodeFrameHeader(buf []byte) FrameHeader {
	_ = buf[FrameHeaderSize-1]
	return FrameHeader{
		Block:          binary.LittleEndian.Uint32(buf[0:4]),
		CompressedSize: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}

// WriteFrame emits one BackupPageFrame to w: the header followed by
// MAXALIGN(compressedSize) bytes of payload (payload is padded with zeros
// when its length is not already aligned). The entire emitted frame is fed
// through rc. compressedSize == TruncatedMarker writes only the header,
// with no payload. It returns the total number of bytes written.
func WriteFrame(w io.Writer, rc *RollingChecksum, block uint32, payload []byte, compressedSize int32) (int64, error) {
	hdr := FrameHeader{Block: block, CompressedSize: compressedSize}.Encode()
	mw := io.MultiWriter(w, rc)

	if _, err := mw.Write(hdr[:]); err != nil {
		return 0, err
	}
	total := int64(FrameHeaderSize)

	if compressedSize == TruncatedMarker {
		return total, nil
	}

	padded := page.MaxAlignUp(compressedSize)
	buf := make([]byte, padded)
	copy(buf, payload)
	if _, err := mw.Write(buf); err != nil {
		return total, err
	}
	return total + int64(padded), nil
}

// ReadFrameHeader reads one FrameHeader from r. An io.EOF returned with no
// bytes consumed is a normal end of stream; io.ErrUnexpectedEOF (a short
// read mid-header) means the stream is truncated mid-frame.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var buf [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FrameHeader{}, err
	}
	return DecodeFrameHeader(buf[:]), nil
}

// ReadFramePayload reads MAXALIGN(compressedSize) bytes of payload from r.
func ReadFramePayload(r io.Reader, compressedSize int32) ([]byte, error) {
	padded := page.MaxAlignUp(compressedSize)
	buf := make([]byte, padded)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
