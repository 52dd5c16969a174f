package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// ClientID identifies this installation; may be empty until the local
	// store generates one.
	ClientID string
	// MasterPassword unlocks locally stored master keys.
	MasterPassword string
	// LogLevel is the zerolog level name.
	LogLevel string
}

// ClientTarget holds the remote backend settings used by the driver registry.
type ClientTarget struct {
	ID             string
	Kind           string
	Path           string
	URL            string
	Username       string
	Password       string
	Bucket         string
	Region         string
	UseSSL         bool
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// ResourceDir is where downloaded resource blobs are written.
	ResourceDir string
}

// ClientSync contains the sync session tuning parameters.
type ClientSync struct {
	LockStaleAfter        time.Duration
	LockSettleDelay       time.Duration
	MaxRetries            int
	RetryBaseDelay        time.Duration
	MaxDecryptionAttempts int
	DeltaPageSize         int
	EncryptionEnabled     bool
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often client sync workers should run.
	SyncInterval time.Duration
	// ResourceFetchConcurrency bounds parallel blob downloads.
	ResourceFetchConcurrency int
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Target describes the remote backend.
	Target ClientTarget
	// Storage contains client storage settings.
	Storage ClientStorage
	// Sync contains session tuning.
	Sync ClientSync
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)

	return clientCfg, clientCfg.validate()
}

// NewClientConfig maps a merged [StructuredConfig] to the client view
// without validating it.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			ClientID:       cfg.App.ClientID,
			MasterPassword: cfg.App.MasterPassword,
			LogLevel:       cfg.App.LogLevel,
		},
		Target: ClientTarget{
			ID:             cfg.Target.ID,
			Kind:           cfg.Target.Kind,
			Path:           cfg.Target.Path,
			URL:            cfg.Target.URL,
			Username:       cfg.Target.Username,
			Password:       cfg.Target.Password,
			Bucket:         cfg.Target.Bucket,
			Region:         cfg.Target.Region,
			UseSSL:         cfg.Target.UseSSL,
			RequestTimeout: cfg.Target.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
			ResourceDir: cfg.Storage.Files.ResourceDir,
		},
		Sync: ClientSync{
			LockStaleAfter:        cfg.Sync.LockStaleAfter,
			LockSettleDelay:       cfg.Sync.LockSettleDelay,
			MaxRetries:            cfg.Sync.MaxRetries,
			RetryBaseDelay:        cfg.Sync.RetryBaseDelay,
			MaxDecryptionAttempts: cfg.Sync.MaxDecryptionAttempts,
			DeltaPageSize:         cfg.Sync.DeltaPageSize,
			EncryptionEnabled:     cfg.Sync.EncryptionEnabled,
		},
		Workers: ClientWorkers{
			SyncInterval:             cfg.Workers.SyncInterval,
			ResourceFetchConcurrency: cfg.Workers.ResourceFetchConcurrency,
		},
	}
}
