// Package config provides configuration parsing and management for the
// backup core and its CLI.
package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Backup: BackupConfig{
			Mode:              "full",
			CompressAlgorithm: "none",
			CompressLevel:     1,
			Strict:            true,
			MissingOK:         false,
			Workers:           1,
			ChecksumsEnabled:  true,
		},
		Paths: PathsConfig{
			DataDir:   "/var/lib/pgdata",
			BackupDir: "/var/backups/pbcore",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Ptrack: PtrackConfig{
			Schema:         "pg_catalog",
			TrackerVersion: 0,
		},
	}
}
