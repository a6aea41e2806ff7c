package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newMockedKVStore(t *testing.T) (*sqliteKVStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	s := NewSQLiteKVStore(&DB{DB: db, logger: logger.Nop()}).(*sqliteKVStore)
	s.now = func() time.Time { return time.Unix(0, 7) }
	return s, mock
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

// ── Get ───────────────────────────────────────────────────────────────────────

func TestSQLiteKVStore_Get(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv WHERE bucket = ? AND key = ?")).
		WithArgs("cache", "poi:1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"1"}`)))

	value, err := s.Get(testContext(), "cache", "poi:1")

	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"1"}`), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteKVStore_Get_NotFound(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := s.Get(testContext(), "cache", "poi:404")

	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorIs(t, err, models.ErrEntityNotFound)
}

func TestSQLiteKVStore_Get_DBError(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv")).
		WillReturnError(errors.New("database is locked"))

	_, err := s.Get(testContext(), "cache", "poi:1")

	assert.ErrorIs(t, err, ErrExecutingQuery)
}

// ── Set / Delete / Clear ──────────────────────────────────────────────────────

func TestSQLiteKVStore_Set(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv (bucket,key,value,updated_at) VALUES (?,?,?,?) ON CONFLICT(bucket, key)")).
		WithArgs("tx_queue", "tx-1", []byte("{}"), int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Set(testContext(), "tx_queue", "tx-1", []byte("{}")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteKVStore_Set_DBError(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv")).WillReturnError(errors.New("disk full"))

	err := s.Set(testContext(), "tx_queue", "tx-1", []byte("{}"))

	assert.ErrorIs(t, err, ErrExecutingStatement)
}

func TestSQLiteKVStore_Delete(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv WHERE bucket = ? AND key = ?")).
		WithArgs("cache", "poi:1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(testContext(), "cache", "poi:1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteKVStore_Clear(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv WHERE bucket = ?")).
		WithArgs("media").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, s.Clear(testContext(), "media"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── Scan ──────────────────────────────────────────────────────────────────────

func TestSQLiteKVStore_Scan(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value FROM kv WHERE bucket = ? ORDER BY key ASC")).
		WithArgs("cache").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("poi:1", []byte("a")).
			AddRow("poi:2", []byte("b")))

	kvs, err := s.Scan(testContext(), "cache")

	require.NoError(t, err)
	assert.Equal(t, []KV{{Key: "poi:1", Value: []byte("a")}, {Key: "poi:2", Value: []byte("b")}}, kvs)
}

func TestSQLiteKVStore_Scan_RowError(t *testing.T) {
	s, mock := newMockedKVStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value FROM kv")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("poi:1", []byte("a")).
			RowError(0, errors.New("io error")))

	_, err := s.Scan(testContext(), "cache")

	assert.ErrorIs(t, err, ErrScanningRows)
}
