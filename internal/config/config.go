// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// note-sync client. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings: client identity, master password
	// and log level.
	App App `envPrefix:"APP_"`

	// Target describes the remote storage backend to synchronize with.
	Target Target `envPrefix:"TARGET_"`

	// Storage holds configuration of the local item database and the local
	// resource blob directory.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds tuning knobs of the sync session: locking, retries,
	// decryption attempts and delta paging.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds process-level configuration values.
type App struct {
	// ClientID identifies this installation in lock files. When empty a
	// persistent id is generated by the local store.
	// Env: APP_CLIENT_ID
	ClientID string `env:"CLIENT_ID"`

	// MasterPassword unlocks the master keys stored in the local database.
	// Must be kept confidential.
	// Env: APP_MASTER_PASSWORD
	MasterPassword string `env:"MASTER_PASSWORD"`

	// LogLevel is a zerolog level name ("debug", "info", ...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`
}

// Target describes one remote storage backend.
type Target struct {
	// ID is the host-side identifier of the target; sync contexts and
	// per-item sync records are keyed by it.
	// Env: TARGET_ID
	ID string `env:"ID"`

	// Kind selects the backend: "filesystem", "memory", "webdav" or "s3".
	// Env: TARGET_KIND
	Kind string `env:"KIND"`

	// Path is the root directory (filesystem) or key prefix (s3).
	// Env: TARGET_PATH
	Path string `env:"PATH"`

	// URL is the WebDAV base URL or the S3 endpoint ("host:port").
	// Env: TARGET_URL
	URL string `env:"URL"`

	// Username is the WebDAV user or the S3 access key.
	// Env: TARGET_USERNAME
	Username string `env:"USERNAME"`

	// Password is the WebDAV password or the S3 secret key.
	// Env: TARGET_PASSWORD
	Password string `env:"PASSWORD"`

	// Bucket is the S3 bucket name.
	// Env: TARGET_BUCKET
	Bucket string `env:"BUCKET"`

	// Region is the S3 region.
	// Env: TARGET_REGION
	Region string `env:"REGION"`

	// UseSSL enables TLS for the S3 endpoint.
	// Env: TARGET_USE_SSL
	UseSSL bool `env:"USE_SSL"`

	// RequestTimeout bounds a single backend request (e.g. "30s").
	// Env: TARGET_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Storage groups the configuration of the local persistence layer.
type Storage struct {
	// DB holds the local SQLite database settings.
	DB DB `envPrefix:"DB_"`

	// Files holds the local resource blob directory settings.
	Files Files `envPrefix:"FILES_"`
}

// DB holds connection settings for the local database.
type DB struct {
	// DSN is the SQLite file path (e.g. "./notes.sqlite").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Files holds file-system settings for resource blobs.
type Files struct {
	// ResourceDir is the directory where downloaded resource blobs are
	// stored.
	// Env: STORAGE_FILES_RESOURCE_DIR
	ResourceDir string `env:"RESOURCE_DIR"`
}

// Sync holds session tuning parameters.
type Sync struct {
	// LockStaleAfter is the age after which a lock is treated as abandoned.
	// Env: SYNC_LOCK_STALE_AFTER
	LockStaleAfter time.Duration `env:"LOCK_STALE_AFTER"`

	// LockSettleDelay is how long a lock winner waits before confirming
	// that a concurrently written lock has been withdrawn.
	// Env: SYNC_LOCK_SETTLE_DELAY
	LockSettleDelay time.Duration `env:"LOCK_SETTLE_DELAY"`

	// MaxRetries bounds retries of transient backend failures.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Env: SYNC_RETRY_BASE_DELAY
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY"`

	// MaxDecryptionAttempts is how many failed decryptions disable an item.
	// Env: SYNC_MAX_DECRYPTION_ATTEMPTS
	MaxDecryptionAttempts int `env:"MAX_DECRYPTION_ATTEMPTS"`

	// DeltaPageSize is the number of changes returned per delta page.
	// Env: SYNC_DELTA_PAGE_SIZE
	DeltaPageSize int `env:"DELTA_PAGE_SIZE"`

	// EncryptionEnabled turns on end-to-end encryption of pushed items.
	// Env: SYNC_ENCRYPTION_ENABLED
	EncryptionEnabled bool `env:"ENCRYPTION_ENABLED"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval defines how often the periodic sync job runs.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// ResourceFetchConcurrency bounds parallel resource blob downloads.
	// Env: WORKERS_RESOURCE_FETCH_CONCURRENCY
	ResourceFetchConcurrency int `env:"RESOURCE_FETCH_CONCURRENCY"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  0. Built-in defaults
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags().
		withJSON().
		build()
}
