package page

import "fmt"

// Classification is the outcome of validating a single page buffer.
type Classification int

const (
	// NotFound means the caller supplied no page at all (a nil buffer).
	NotFound Classification = iota
	// Zeroed means the page's header invariants failed but every byte is
	// zero: a legitimate "never written" page.
	Zeroed
	// Valid means the page passed every applicable check.
	Valid
	// HeaderInvalid means the header invariants failed on a non-zero page.
	HeaderInvalid
	// ChecksumMismatch means the header was sane but the stored checksum
	// does not match the computed one.
	ChecksumMismatch
	// LSNFromFuture means the page's LSN is ahead of the caller-supplied
	// stop LSN.
	LSNFromFuture
)

// String renders a Classification for logging.
func (c Classification) String() string {
	switch c {
	case NotFound:
		return "not_found"
	case Zeroed:
		return "zeroed"
	case Valid:
		return "valid"
	case HeaderInvalid:
		return "header_invalid"
	case ChecksumMismatch:
		return "checksum_mismatch"
	case LSNFromFuture:
		return "lsn_from_future"
	default:
		return "unknown"
	}
}

// Validate classifies buf, a candidate BlockSize page read at absoluteBlock.
// stopLSN of 0 disables the future-LSN check. It returns the classification,
// the LSN extracted from the header (zero when the header could not be
// parsed at all), and, for HeaderInvalid/ChecksumMismatch, an error
// describing the specific invariant that failed. The error text is part of
// the observable contract and callers should not reword it.
func Validate(buf []byte, absoluteBlock uint32, stopLSN uint64, checksumsEnabled bool) (Classification, uint64, error) {
	if buf == nil {
		return NotFound, 0, nil
	}

	ok, msg := checkHeaderInvariants(buf)
	if !ok {
		if IsZeroed(buf) {
			return Zeroed, 0, nil
		}
		h := ParseHeader(buf)
		return HeaderInvalid, h.LSN, fmt.Errorf("%s", msg)
	}

	h := ParseHeader(buf)

	if checksumsEnabled {
		computed := Checksum(buf, absoluteBlock)
		if computed != h.Checksum {
			return ChecksumMismatch, h.LSN, fmt.Errorf(
				"page verification failed, calculated checksum %d but expected %d",
				computed, h.Checksum)
		}
	}

	if stopLSN > 0 && h.LSN > stopLSN {
		return LSNFromFuture, h.LSN, nil
	}

	return Valid, h.LSN, nil
}

// CheckHeaderInvariants exposes the structural header check used by
// Validate for callers (the legacy compressed-page heuristic, §4.7) that
// need to probe a candidate page without the checksum/LSN parts of the full
// classification.
func CheckHeaderInvariants(buf []byte) (bool, string) {
	return checkHeaderInvariants(buf)
}

// checkHeaderInvariants applies the structural rules every page header must
// satisfy, independent of checksums. It returns the first invariant that
// fails with a message naming it.
func checkHeaderInvariants(buf []byte) (bool, string) {
	if len(buf) != BlockSize {
		return false, fmt.Sprintf("page size %d is not the expected %d", len(buf), BlockSize)
	}

	h := ParseHeader(buf)

	if h.PageSize() != NewPagesizeVersion(BlockSize, 0) {
		return false, fmt.Sprintf("page header invalid, pagesize %d does not match expected %d", h.PageSize(), BlockSize)
	}

	if h.Flags&^ValidFlagBits != 0 {
		return false, fmt.Sprintf("page header invalid, illegal flag bits 0x%04x set", h.Flags&^ValidFlagBits)
	}

	if h.Lower < HeaderSize {
		return false, fmt.Sprintf("page header invalid, lower %d is less than header size %d", h.Lower, HeaderSize)
	}

	if h.Lower > h.Upper {
		return false, fmt.Sprintf("page header invalid, lower %d is greater than upper %d", h.Lower, h.Upper)
	}

	if h.Upper > h.Special {
		return false, fmt.Sprintf("page header invalid, upper %d is greater than special %d", h.Upper, h.Special)
	}

	if h.Special > BlockSize {
		return false, fmt.Sprintf("page header invalid, special %d is greater than block size %d", h.Special, BlockSize)
	}

	if uint16(MaxAlignUp(int32(h.Special))) != h.Special {
		return false, fmt.Sprintf("page header invalid, special %d is not maximally aligned", h.Special)
	}

	return true, ""
}
