package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-note-sync/internal/logger"
)

// ContextStore keeps the opaque sync context of each target.
type ContextStore struct {
	db     *DB
	now    func() time.Time
	logger *logger.Logger
}

func NewContextStore(db *DB, logger *logger.Logger) *ContextStore {
	return &ContextStore{db: db, now: time.Now, logger: logger}
}

// LoadContext returns the saved context of targetID, or "" when none was
// saved.
func (s *ContextStore) LoadContext(ctx context.Context, targetID string) (string, error) {
	stmt := builder.Select("context").From("sync_contexts").Where(sq.Eq{"target_id": targetID})

	var value string
	err := s.db.retry(ctx, "ContextStore.LoadContext", func(ctx context.Context) error {
		row, err := queryRow(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		switch err = row.Scan(&value); {
		case errors.Is(err, sql.ErrNoRows):
			value = ""
			return nil
		case err != nil:
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ContextStore.LoadContext").
			Str("target_id", targetID).
			Msg("failed to load sync context")
		return "", fmt.Errorf("failed to load sync context: %w", err)
	}
	return value, nil
}

func (s *ContextStore) SaveContext(ctx context.Context, targetID, value string) error {
	stmt := builder.Insert("sync_contexts").
		Columns("target_id", "context", "updated_time").
		Values(targetID, value, s.now().UnixMilli()).
		Suffix("ON CONFLICT (target_id) DO UPDATE SET context = excluded.context, updated_time = excluded.updated_time")

	err := s.db.retry(ctx, "ContextStore.SaveContext", func(ctx context.Context) error {
		_, err := exec(ctx, s.db, stmt)
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ContextStore.SaveContext").
			Str("target_id", targetID).
			Msg("failed to save sync context")
		return fmt.Errorf("failed to save sync context: %w", err)
	}
	return nil
}
