package page

import "hash/crc32"

// castagnoliTable is the CRC-32C table used by Checksum. internal/backup
// builds its own table for the same polynomial for the rolling checksum of
// current producer versions.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the per-page checksum: CRC-32C over the page with its
// own checksum field (bytes 8-9) left out, so the function is stable
// whether it is called before or after the field has been stamped. blockNo
// is folded in so a page silently relocated to a different block number
// still fails verification, and the 32-bit result is folded to 16 bits.
// This is the package's own formula, not PostgreSQL's page checksum
// algorithm.
func Checksum(buf []byte, blockNo uint32) uint16 {
	crc := crc32.Checksum(buf[:8], castagnoliTable)
	crc = crc32.Update(crc, castagnoliTable, buf[10:])

	var blkBuf [4]byte
	blkBuf[0] = byte(blockNo)
	blkBuf[1] = byte(blockNo >> 8)
	blkBuf[2] = byte(blockNo >> 16)
	blkBuf[3] = byte(blockNo >> 24)
	crc = crc32.Update(crc, castagnoliTable, blkBuf[:])

	folded := uint16(crc>>16) ^ uint16(crc)
	if folded == 0 {
		// Never collide with the "no checksum stored" sentinel value.
		folded = 1
	}
	return folded
}
