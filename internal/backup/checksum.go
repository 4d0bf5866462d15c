package backup

import "hash/crc32"

// RollingChecksum accumulates the per-file checksum of a backup stream as
// frames are written or replayed, one Write call per emitted frame.
type RollingChecksum struct {
	crc   uint32
	table *crc32.Table
}

// NewRollingChecksum returns a RollingChecksum using the polynomial
// appropriate for the given producer version (§4.8): the CRC algorithm
// switched at versions 2.0.22-24, so the newer Castagnoli polynomial
// applies for versions at or below 2.0.21 or at or above 2.0.25, and the
// legacy IEEE polynomial applies only to the 2.0.22-24 band.
func NewRollingChecksum(v ProducerVersion) *RollingChecksum {
	return &RollingChecksum{table: ChecksumTable(v)}
}

// ChecksumTable returns the crc32 table appropriate for v, per the
// version-conditional polynomial rule in §4.8.
func ChecksumTable(v ProducerVersion) *crc32.Table {
	lo := ProducerVersion{2, 0, 22}
	hi := ProducerVersion{2, 0, 24}
	if v.Compare(lo) >= 0 && v.Compare(hi) <= 0 {
		return crc32.IEEETable
	}
	return crc32.MakeTable(crc32.Castagnoli)
}

// Write feeds p through the rolling checksum. It never returns an error;
// the signature matches io.Writer so a RollingChecksum can be wrapped with
// io.MultiWriter where convenient.
func (r *RollingChecksum) Write(p []byte) (int, error) {
	r.crc = crc32.Update(r.crc, r.table, p)
	return len(p), nil
}

// Sum returns the checksum accumulated so far.
func (r *RollingChecksum) Sum() uint32 {
	return r.crc
}
