// Package config provides configuration parsing and management for the
// backup core and its CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KilimcininKorOglu/pbcore/internal/backup"
	"github.com/KilimcininKorOglu/pbcore/internal/codec"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateBackupConfig(&config.Backup)...)
	errs = append(errs, validatePathsConfig(&config.Paths)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validatePtrackConfig(&config.Ptrack)...)

	return errs
}

// validateBackupConfig validates block-selection and compression settings.
func validateBackupConfig(config *BackupConfig) []error {
	var errs []error

	if config.Mode != "" {
		if _, err := backup.ParseMode(config.Mode); err != nil {
			errs = append(errs, ValidationError{
				Field:   "backup.mode",
				Message: err.Error(),
			})
		}
	}

	if config.CompressAlgorithm != "" {
		if _, err := codec.ParseAlgorithm(config.CompressAlgorithm); err != nil {
			errs = append(errs, ValidationError{
				Field:   "backup.compressAlgorithm",
				Message: err.Error(),
			})
		}
	}

	if config.CompressLevel != 0 &&
		(config.CompressLevel < codec.MinCompressionLevel || config.CompressLevel > codec.MaxCompressionLevel) {
		errs = append(errs, ValidationError{
			Field:   "backup.compressLevel",
			Message: fmt.Sprintf("must be between %d and %d", codec.MinCompressionLevel, codec.MaxCompressionLevel),
		})
	}

	if config.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "backup.workers",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validatePathsConfig validates the filesystem locations a backup run
// reads from and writes to.
func validatePathsConfig(config *PathsConfig) []error {
	var errs []error

	if config.DataDir == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.dataDir",
			Message: "data directory is required",
		})
	} else if !filepath.IsAbs(config.DataDir) {
		errs = append(errs, ValidationError{
			Field:   "paths.dataDir",
			Message: "must be an absolute path",
		})
	}

	if config.BackupDir == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.backupDir",
			Message: "backup directory is required",
		})
	} else if !filepath.IsAbs(config.BackupDir) {
		errs = append(errs, ValidationError{
			Field:   "paths.backupDir",
			Message: "must be an absolute path",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	// Validate log format
	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	// Validate output
	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		// Check if it's a valid file path
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

// validatePtrackConfig validates settings for the PTRACK change-tracking
// backup mode.
func validatePtrackConfig(config *PtrackConfig) []error {
	var errs []error

	if config.TrackerVersion < 0 {
		errs = append(errs, ValidationError{
			Field:   "ptrack.trackerVersion",
			Message: "must be non-negative",
		})
	}

	return errs
}
