package config

import "time"

// Default values applied before any other configuration source.
const (
	DefaultTargetID                 = "default"
	DefaultTargetKind               = "filesystem"
	DefaultRequestTimeout           = 30 * time.Second
	DefaultLockStaleAfter           = 3 * time.Minute
	DefaultLockSettleDelay          = 2 * time.Second
	DefaultMaxRetries               = 3
	DefaultRetryBaseDelay           = 500 * time.Millisecond
	DefaultMaxDecryptionAttempts    = 3
	DefaultDeltaPageSize            = 100
	DefaultSyncInterval             = 5 * time.Minute
	DefaultResourceFetchConcurrency = 4
)

func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{LogLevel: "info"},
		Target: Target{
			ID:             DefaultTargetID,
			Kind:           DefaultTargetKind,
			RequestTimeout: DefaultRequestTimeout,
		},
		Sync: Sync{
			LockStaleAfter:        DefaultLockStaleAfter,
			LockSettleDelay:       DefaultLockSettleDelay,
			MaxRetries:            DefaultMaxRetries,
			RetryBaseDelay:        DefaultRetryBaseDelay,
			MaxDecryptionAttempts: DefaultMaxDecryptionAttempts,
			DeltaPageSize:         DefaultDeltaPageSize,
		},
		Workers: Workers{
			SyncInterval:             DefaultSyncInterval,
			ResourceFetchConcurrency: DefaultResourceFetchConcurrency,
		},
	}
}
