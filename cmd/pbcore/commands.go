// Package main provides CLI commands for the pbcore backup tool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/KilimcininKorOglu/pbcore/internal/backup"
	"github.com/KilimcininKorOglu/pbcore/internal/codec"
	"github.com/KilimcininKorOglu/pbcore/internal/config"
	"github.com/KilimcininKorOglu/pbcore/internal/logging"
)

// withSignalCancel returns a context cancelled on SIGINT/SIGTERM, the
// idiomatic Go rendering of the core's "poll a global interrupt flag at
// every block boundary" design (§9): the core itself never looks at
// signals, it only ever checks ctx.Err().
func withSignalCancel() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// loadEffectiveConfig loads configFile if given, falling back to defaults.
func loadEffectiveConfig(configFile string) (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configFile)
}

// listRegularFiles walks root and returns every regular file's path
// relative to root, in lexical order.
func listRegularFiles(root string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	return rels, err
}

// backupStats accumulates the summary a backup run reports.
type backupStats struct {
	filesTotal     int64
	filesUnchanged int64
	filesMissing   int64
	bytesRead      int64
	bytesWritten   int64
}

// backupCmd handles the backup command.
func backupCmd(args []string) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to a YAML configuration file")
	dataDir := fs.String("data-dir", "", "Data directory to back up")
	backupDir := fs.String("backup-dir", "", "Destination directory for the backup")
	mode := fs.String("mode", "", "Backup mode: full, delta, page, ptrack")
	compressAlg := fs.String("compress-algorithm", "", "Compression algorithm: none, lz4, zlib")
	compressLevel := fs.Int("compress-level", 0, "Compression level")
	workers := fs.Int("workers", 0, "Number of files to back up concurrently")
	strict := fs.Bool("strict", false, "Treat a torn or corrupt page as fatal")
	missingOK := fs.Bool("missing-ok", false, "Tolerate a vanished source file")
	help := fs.BoolP("help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help {
		printBackupUsage(os.Stdout)
		return 0
	}

	cfg, err := loadEffectiveConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}
	if *backupDir != "" {
		cfg.Paths.BackupDir = *backupDir
	}
	if *mode != "" {
		cfg.Backup.Mode = *mode
	}
	if *compressAlg != "" {
		cfg.Backup.CompressAlgorithm = *compressAlg
	}
	if *compressLevel != 0 {
		cfg.Backup.CompressLevel = *compressLevel
	}
	if *workers != 0 {
		cfg.Backup.Workers = *workers
	}
	if *strict {
		cfg.Backup.Strict = true
	}
	if *missingOK {
		cfg.Backup.MissingOK = true
	}

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", errs[0])
		return 1
	}
	if cfg.Paths.DataDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --data-dir is required")
		return 1
	}
	if cfg.Paths.BackupDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --backup-dir is required")
		return 1
	}

	backupMode, err := backup.ParseMode(cfg.Backup.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	alg, err := codec.ParseAlgorithm(cfg.Backup.CompressAlgorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	runID := fmt.Sprintf("backup-%d", time.Now().Unix())
	log = log.WithRunID(runID)

	if err := os.MkdirAll(cfg.Paths.BackupDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating backup directory: %v\n", err)
		return 1
	}

	files, err := listRegularFiles(cfg.Paths.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing data directory: %v\n", err)
		return 1
	}

	fmt.Printf("Starting backup\n")
	fmt.Printf("  Data dir:   %s\n", cfg.Paths.DataDir)
	fmt.Printf("  Backup dir: %s\n", cfg.Paths.BackupDir)
	fmt.Printf("  Mode:       %s\n", backupMode)
	fmt.Printf("  Compress:   %s\n", cfg.Backup.CompressAlgorithm)
	fmt.Printf("  Files:      %d\n", len(files))
	fmt.Printf("  Workers:    %d\n", cfg.Backup.Workers)

	ctx, cancel := withSignalCancel()
	defer cancel()

	reader := backup.NewPageReader(cfg.Backup.Strict, cfg.Backup.ChecksumsEnabled, log)
	startTime := time.Now()

	stats := &backupStats{}
	workerCount := cfg.Backup.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	sem := make(chan struct{}, workerCount)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for _, rel := range files {
		rel := rel
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			srcPath := filepath.Join(cfg.Paths.DataDir, rel)
			destPath := filepath.Join(cfg.Paths.BackupDir, rel)
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}

			rec := &backup.FileRecord{RelPath: rel, CompressAlg: alg, CompressLevel: cfg.Backup.CompressLevel}
			writer := backup.NewBackupFileWriter(reader, alg, cfg.Backup.CompressLevel, backup.ProducerVersion{Major: 2, Minor: 0, Patch: 25}, log.WithFields("file", rel))

			if err := writer.WriteFile(ctx, srcPath, destPath, rec, backupMode, cfg.Backup.MissingOK, nil, 0, cfg.Ptrack.Schema, 0); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", rel, err)
				}
				errMu.Unlock()
				return
			}

			atomic.AddInt64(&stats.filesTotal, 1)
			atomic.AddInt64(&stats.bytesRead, rec.ReadSize)
			switch {
			case rec.IsMissing():
				atomic.AddInt64(&stats.filesMissing, 1)
			case rec.IsUnchanged():
				atomic.AddInt64(&stats.filesUnchanged, 1)
			default:
				atomic.AddInt64(&stats.bytesWritten, rec.WriteSize)
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		fmt.Fprintf(os.Stderr, "Backup failed: %v\n", firstErr)
		return 1
	}

	fmt.Printf("\nBackup completed successfully!\n")
	fmt.Printf("  Files backed up: %d\n", stats.filesTotal)
	fmt.Printf("  Unchanged:       %d\n", stats.filesUnchanged)
	fmt.Printf("  Missing:         %d\n", stats.filesMissing)
	fmt.Printf("  Bytes read:      %d\n", stats.bytesRead)
	fmt.Printf("  Bytes written:   %d\n", stats.bytesWritten)
	fmt.Printf("  Duration:        %v\n", time.Since(startTime).Round(time.Millisecond))

	return 0
}

// restoreCmd handles the restore command.
func restoreCmd(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	backupDir := fs.String("backup-dir", "", "Backup directory to restore from")
	dataDir := fs.String("data-dir", "", "Destination data directory")
	compressAlg := fs.String("compress-algorithm", "none", "Compression algorithm the backup was written with")
	help := fs.BoolP("help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help {
		printRestoreUsage(os.Stdout)
		return 0
	}
	if *backupDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --backup-dir is required")
		return 1
	}
	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --data-dir is required")
		return 1
	}

	alg, err := codec.ParseAlgorithm(*compressAlg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	files, err := listRegularFiles(*backupDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing backup directory: %v\n", err)
		return 1
	}

	fmt.Printf("Restoring backup\n")
	fmt.Printf("  Backup dir: %s\n", *backupDir)
	fmt.Printf("  Data dir:   %s\n", *dataDir)
	fmt.Printf("  Files:      %d\n", len(files))

	ctx, cancel := withSignalCancel()
	defer cancel()

	log := logging.NewDefault()
	restorer := backup.NewRestoreFileReader(alg, log)
	startTime := time.Now()
	var filesRestored int64

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Restore cancelled: %v\n", err)
			return 1
		}

		streamPath := filepath.Join(*backupDir, rel)
		destPath := filepath.Join(*dataDir, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", filepath.Dir(destPath), err)
			return 1
		}

		dest, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", destPath, err)
			return 1
		}

		rec := &backup.FileRecord{RelPath: rel, WriteSize: 1}
		chain := []backup.BackupSource{{
			Stream: func(string) (io.ReadCloser, error) {
				return os.Open(streamPath)
			},
			Record: func(string) (*backup.FileRecord, backup.ProducerVersion, bool) {
				return rec, backup.ProducerVersion{Major: 2, Minor: 0, Patch: 25}, true
			},
		}}

		err = restorer.Restore(ctx, chain, rel, dest, 0)
		closeErr := dest.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring %s: %v\n", rel, err)
			return 1
		}
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error closing %s: %v\n", destPath, closeErr)
			return 1
		}
		filesRestored++
	}

	fmt.Printf("\nRestore completed successfully!\n")
	fmt.Printf("  Files restored: %d\n", filesRestored)
	fmt.Printf("  Duration:       %v\n", time.Since(startTime).Round(time.Millisecond))

	return 0
}

// validateCmd handles the validate command.
func validateCmd(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	backupDir := fs.String("backup-dir", "", "Backup directory to validate")
	compressAlg := fs.String("compress-algorithm", "none", "Compression algorithm the backup was written with")
	checksumsEnabled := fs.Bool("checksums", false, "Re-run page checksum validation")
	help := fs.BoolP("help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help {
		printValidateUsage(os.Stdout)
		return 0
	}
	if *backupDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --backup-dir is required")
		return 1
	}

	alg, err := codec.ParseAlgorithm(*compressAlg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	files, err := listRegularFiles(*backupDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing backup directory: %v\n", err)
		return 1
	}

	ctx, cancel := withSignalCancel()
	defer cancel()

	log := logging.NewDefault()
	validator := backup.NewBackupFileValidator(alg, log)
	startTime := time.Now()

	var invalidFiles int
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Validation cancelled: %v\n", err)
			return 1
		}

		streamPath := filepath.Join(*backupDir, rel)
		stream, err := os.Open(streamPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", streamPath, err)
			return 1
		}

		result, err := validator.Validate(ctx, stream, nil, backup.ProducerVersion{Major: 2, Minor: 0, Patch: 25}, 0, *checksumsEnabled)
		closeErr := stream.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: validation error: %v\n", rel, err)
			invalidFiles++
			continue
		}
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error closing %s: %v\n", streamPath, closeErr)
			return 1
		}
		if !result.Valid {
			invalidFiles++
			fmt.Printf("INVALID  %s (blocks read: %d, bad blocks: %v)\n", rel, result.BlocksRead, result.InvalidBlocks)
		}
	}

	fmt.Printf("\nValidation completed\n")
	fmt.Printf("  Files checked: %d\n", len(files))
	fmt.Printf("  Invalid files: %d\n", invalidFiles)
	fmt.Printf("  Duration:      %v\n", time.Since(startTime).Round(time.Millisecond))

	if invalidFiles > 0 {
		return 1
	}
	return 0
}
