package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-note-sync/internal/logger"
)

const clientIDKey = "client_id"

// SettingsStore is a small key/value table for host-level values that must
// survive restarts.
type SettingsStore struct {
	db     *DB
	logger *logger.Logger
}

func NewSettingsStore(db *DB, logger *logger.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: logger}
}

// ClientID returns the persistent id of this installation, storing the value
// produced by generate on first use.
func (s *SettingsStore) ClientID(ctx context.Context, generate func() string) (string, error) {
	var id string
	err := s.db.withTx(ctx, "SettingsStore.ClientID", func(ctx context.Context, tx *sql.Tx) error {
		row, err := queryRow(ctx, tx, builder.Select("value").From("settings").Where(sq.Eq{"key": clientIDKey}))
		if err != nil {
			return err
		}
		err = row.Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		id = generate()
		_, err = exec(ctx, tx, builder.Insert("settings").Columns("key", "value").Values(clientIDKey, id))
		return err
	})
	if err != nil {
		s.logger.Err(err).Str("func", "SettingsStore.ClientID").Msg("failed to read client id")
		return "", fmt.Errorf("failed to read client id: %w", err)
	}
	return id, nil
}
