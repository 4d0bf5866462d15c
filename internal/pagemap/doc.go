// Package pagemap represents the set of block numbers a backup pass should
// copy. It wraps a roaring bitmap the same way wal-g's incremental page
// file reader represents its delta block set, but adds the "absent vs
// empty" distinction the backup core needs: an absent map means "back up
// every block"; a present-but-empty map means "nothing changed".
package pagemap
