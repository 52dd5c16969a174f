package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
)

// ClientStorages groups the host-side stores into a single value that can
// be passed to the sync service.
type ClientStorages struct {
	// Items is the SQLite-backed item database with its sync bookkeeping.
	Items *ItemStore
	// Contexts persists the sync context of each target.
	Contexts *ContextStore
	// Settings holds host-level values such as the client id.
	Settings *SettingsStore
	// Blobs is the local resource blob directory.
	Blobs *BlobDir

	db *DB
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to cfg.DB.DSN, creating the database file
//     if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Opens the resource blob directory; an empty cfg.ResourceDir keeps
//     blobs in memory.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	blobs := NewMemoryBlobDir()
	if cfg.ResourceDir != "" {
		if blobs, err = NewBlobDir(cfg.ResourceDir); err != nil {
			db.Close()
			return nil, err
		}
	}

	return newClientStorages(db, blobs, logger), nil
}

func newClientStorages(db *DB, blobs *BlobDir, logger *logger.Logger) *ClientStorages {
	return &ClientStorages{
		Items:    NewItemStore(db, logger),
		Contexts: NewContextStore(db, logger),
		Settings: NewSettingsStore(db, logger),
		Blobs:    blobs,
		db:       db,
	}
}

// Close closes the database connection.
func (s *ClientStorages) Close() error {
	return s.db.Close()
}
