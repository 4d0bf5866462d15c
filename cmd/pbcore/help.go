package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `pbcore - page-level backup and restore core

Usage:
  pbcore <command> [options]

Commands:
  backup      Copy relation files out of a data directory
  restore     Replay a backup chain onto a data directory
  validate    Independently re-verify a backup's stream files
  version     Show version information

Use "pbcore <command> --help" for more information about a command.
`)
}

// printBackupUsage prints the backup command usage.
func printBackupUsage(w io.Writer) {
	fmt.Fprint(w, `Copy relation files out of a data directory

Usage:
  pbcore backup [options]

Options:
  --config string
        Path to a YAML configuration file
  --data-dir string
        Data directory to back up (overrides config)
  --backup-dir string
        Destination directory for the backup (overrides config)
  --mode string
        Backup mode: full, delta, page, ptrack (overrides config)
  --compress-algorithm string
        Compression algorithm: none, lz4, zlib (overrides config)
  --compress-level int
        Compression level (overrides config)
  --workers int
        Number of files to back up concurrently (overrides config)
  --strict
        Treat a torn or corrupt page as fatal instead of logging and
        continuing (overrides config)
  --missing-ok
        Tolerate a source file vanishing mid-backup (overrides config)
  -h, --help
        Show this help message
`)
}

// printRestoreUsage prints the restore command usage.
func printRestoreUsage(w io.Writer) {
	fmt.Fprint(w, `Replay a backup onto a data directory

Usage:
  pbcore restore [options]

Options:
  --backup-dir string
        Backup directory to restore from (required)
  --data-dir string
        Destination data directory (required)
  --compress-algorithm string
        Compression algorithm the backup was written with: none, lz4, zlib
  -h, --help
        Show this help message
`)
}

// printValidateUsage prints the validate command usage.
func printValidateUsage(w io.Writer) {
	fmt.Fprint(w, `Independently re-verify a backup's stream files

Usage:
  pbcore validate [options]

Options:
  --backup-dir string
        Backup directory to validate (required)
  --compress-algorithm string
        Compression algorithm the backup was written with: none, lz4, zlib
  --checksums
        Re-run page checksum validation in addition to structural checks
  -h, --help
        Show this help message
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  pbcore version [options]

Options:
  --short
        Show only version number
  -h, --help
        Show this help message
`)
}
