package constants

import "time"

const (
	AppName            = "healthchain"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/healthchain/healthchain.db"
	Version            = "v0.1.0"

	// ConnectionEnvVar holds a database or redis URL when no keyring entry is set
	ConnectionEnvVar = "HEALTHCHAIN_DB_CONNECTION"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "healthchain-"
	BackupFileSuffix = ".db"

	// Lockfile used by file-backed stores to keep a single writer process
	LockfileSuffix = ".lock"

	// SimulatedLatency is the delay the mock identity provider adds to each call
	SimulatedLatency = 1500 * time.Millisecond

	// API server defaults
	DefaultListenAddr = "127.0.0.1:8787"
)
