package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/migrations"
)

const (
	defaultBusyRetries   = 5
	defaultBusyBaseDelay = 20 * time.Millisecond
)

// builder renders squirrel statements with SQLite's "?" placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger

	retries   uint64
	baseDelay time.Duration
}

// Migrate brings the schema up to date.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := migrations.Migrate(ctx, db.DB)
	if err != nil {
		return err
	}
	db.logger.Debug().Str("func", "DB.Migrate").Int64("version", version).Msg("database schema is up to date")
	return nil
}

// runner is implemented by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) backoff() retry.Backoff {
	b := retry.NewExponential(db.baseDelay)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(db.retries, b)
}

// retry runs f again while it fails with an error the classifier marks
// [Retryable].
func (db *DB) retry(ctx context.Context, op string, f func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, db.backoff(), func(ctx context.Context) error {
		attempt++
		err := f(ctx)
		if err != nil && db.errorClassificator.Classify(err) == Retryable {
			db.logger.Warn().Err(err).
				Str("func", op).
				Int("attempt", attempt).
				Msg("database is busy, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

// withTx runs f inside a transaction, retrying the whole transaction when
// the database is busy.
func (db *DB) withTx(ctx context.Context, op string, f func(ctx context.Context, tx *sql.Tx) error) error {
	return db.retry(ctx, op, func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
		}

		if err = f(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
		}
		return nil
	})
}

func exec(ctx context.Context, r runner, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	res, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res, nil
}

func query(ctx context.Context, r runner, stmt sq.Sqlizer) (*sql.Rows, error) {
	q, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	rows, err := r.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return rows, nil
}

func queryRow(ctx context.Context, r runner, stmt sq.Sqlizer) (*sql.Row, error) {
	q, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.QueryRowContext(ctx, q, args...), nil
}
