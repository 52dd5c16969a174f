package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-sync/internal/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db := newDB(conn, logger.Nop())
	db.retries = 3
	db.baseDelay = time.Millisecond
	return db, mock
}

func TestDB_RetriesBusyStatement(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewContextStore(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_contexts").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	mock.ExpectExec("INSERT INTO sync_contexts").WillReturnError(sqlite3.Error{Code: sqlite3.ErrLocked})
	mock.ExpectExec("INSERT INTO sync_contexts").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveContext(context.Background(), "default", "{}"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_DoesNotRetryConstraintError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewContextStore(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_contexts").WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

	err := s.SaveContext(context.Background(), "default", "{}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutingStatement))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_GivesUpAfterMaxRetries(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewContextStore(db, logger.Nop())

	for range 4 {
		mock.ExpectExec("INSERT INTO sync_contexts").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	}

	err := s.SaveContext(context.Background(), "default", "{}")
	require.Error(t, err)

	var sqliteErr sqlite3.Error
	require.True(t, errors.As(err, &sqliteErr))
	assert.Equal(t, sqlite3.ErrBusy, sqliteErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_RetriesWholeTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewItemStore(db, logger.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM deleted_items").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM deleted_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM sync_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ClearDeleted(context.Background(), "default", testID(1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_BeginFailure(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewItemStore(db, logger.Nop())

	mock.ExpectBegin().WillReturnError(errors.New("disk I/O"))

	err := s.ClearDeleted(context.Background(), "default", testID(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBeginningTransaction))
}
