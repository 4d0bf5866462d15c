// Package config provides configuration parsing and management for the
// backup core and its CLI.
//
// # Overview
//
// The config package handles loading, parsing, and validating tool
// configuration from YAML files and environment variables. It supports:
//
//   - YAML configuration files
//   - Environment variable overrides
//   - Default values for all settings
//   - Configuration validation
//
// # Configuration Structure
//
// The main Config struct contains all tool settings:
//
//	type Config struct {
//	    Backup  BackupConfig  // Mode, compression, and block-selection settings
//	    Paths   PathsConfig   // Data and backup directory locations
//	    Logging LogConfig     // Logging settings
//	    Ptrack  PtrackConfig  // Change-tracking settings
//	}
//
// # Loading Configuration
//
// Load configuration from a YAML file:
//
//	cfg, err := config.LoadConfig("/etc/pbcore/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or use defaults:
//
//	cfg := config.DefaultConfig()
//
// # Environment Variables
//
// Configuration values can reference environment variables with
// ${VAR} or ${VAR:-default} syntax, substituted before YAML parsing:
//
//	paths:
//	  backupDir: "${PBCORE_BACKUP_DIR:-/var/backups/pbcore}"
//
// # Example Configuration
//
// A typical configuration file:
//
//	backup:
//	  mode: "delta"
//	  compressAlgorithm: "lz4"
//	  compressLevel: 4
//	  strict: true
//	  workers: 4
//	  checksumsEnabled: true
//
//	paths:
//	  dataDir: "/var/lib/pgdata"
//	  backupDir: "/var/backups/pbcore"
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stdout"
//
//	ptrack:
//	  schema: "pg_catalog"
//	  trackerVersion: 20
package config
