package codec

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a page compression scheme.
type Algorithm int

const (
	// None means pages are stored uncompressed. Never a valid choice to
	// pass to Compress/Decompress; it is a sentinel the caller checks
	// before deciding whether to call this package at all.
	None Algorithm = iota
	// Undefined is the zero-value-adjacent sentinel for "algorithm not
	// yet chosen". Also never valid.
	Undefined
	// LZ4 compresses with an aggressive, tool-defined LZ4 strategy.
	LZ4
	// Zlib compresses with DEFLATE via the standard library's zlib
	// implementation, which is always built in.
	Zlib
)

// String renders an Algorithm for logging and config echoing.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zlib:
		return "zlib"
	default:
		return "undefined"
	}
}

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zlib":
		return Zlib, nil
	default:
		return Undefined, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, s)
	}
}

// ErrInvalidAlgorithm is returned when None, Undefined, or an unknown
// algorithm identifier is passed to Compress or Decompress.
var ErrInvalidAlgorithm = errors.New("invalid compression algorithm")

// MinCompressionLevel and MaxCompressionLevel bound the level parameter
// accepted by Compress; callers outside this range get ErrInvalidLevel.
const (
	MinCompressionLevel = 1
	MaxCompressionLevel = 9
)

// ErrInvalidLevel is returned when level falls outside
// [MinCompressionLevel, MaxCompressionLevel].
var ErrInvalidLevel = errors.New("invalid compression level")

// Compress writes a compressed copy of src into dst using alg at the given
// level, returning the number of bytes written. Compression is
// best-effort: a return of (0, nil) means the compressor judged the input
// incompressible and the caller should store the page uncompressed
// instead of treating this as an error.
func Compress(dst, src []byte, alg Algorithm, level int) (int, error) {
	switch alg {
	case None, Undefined:
		return 0, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	case LZ4:
		return compressLZ4(dst, src, level)
	case Zlib:
		return compressZlib(dst, src, level)
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
}

// Decompress writes the decompressed contents of src into dst, returning
// the number of bytes written. dst must be large enough to hold the
// decompressed data or an error is returned.
func Decompress(dst, src []byte, alg Algorithm) (int, error) {
	switch alg {
	case None, Undefined:
		return 0, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	case LZ4:
		return lz4.UncompressBlock(src, dst)
	case Zlib:
		return decompressZlib(dst, src)
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
}

func compressLZ4(dst, src []byte, level int) (int, error) {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	c := lz4.CompressorHC{Level: lz4.CompressionLevel(1 << uint(level+4))}
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return 0, err
	}
	// n == 0 means lz4 judged the block incompressible: best-effort, not
	// an error. The caller stores the page raw in that case.
	return n, nil
}

func compressZlib(dst, src []byte, level int) (int, error) {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(src); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	if buf.Len() > len(dst) {
		// Too large to matter: the caller will store the page raw.
		return 0, nil
	}
	return copy(dst, buf.Bytes()), nil
}

func decompressZlib(dst, src []byte) (int, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, dst)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, err
	}
	// A short read is fine as long as the reader is now exhausted: it
	// means the decompressed payload was smaller than dst.
	extra := make([]byte, 1)
	if m, _ := r.Read(extra); m > 0 {
		return n, fmt.Errorf("decompressed payload exceeds destination buffer")
	}
	return n, nil
}
