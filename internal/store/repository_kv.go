package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// sqliteKVStore is the SQLite implementation of [KeyValueStore] on the kv
// table.
type sqliteKVStore struct {
	*DB
	now func() time.Time
}

// NewSQLiteKVStore returns a [KeyValueStore] backed by db.
func NewSQLiteKVStore(db *DB) KeyValueStore {
	return &sqliteKVStore{DB: db, now: time.Now}
}

func (s *sqliteKVStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildGetQuery(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	err = s.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrKeyNotFound, bucket, key)
	}
	if err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Get").
			Str("bucket", bucket).
			Str("key", key).
			Msg("failed to read value")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return value, nil
}

func (s *sqliteKVStore) Set(ctx context.Context, bucket, key string, value []byte) error {
	log := logger.FromContext(ctx)

	query, args, err := buildUpsertQuery(bucket, key, value, s.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Set").
			Str("bucket", bucket).
			Str("key", key).
			Int("size", len(value)).
			Msg("failed to write value")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (s *sqliteKVStore) Delete(ctx context.Context, bucket, key string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteQuery(bucket, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Delete").
			Str("bucket", bucket).
			Str("key", key).
			Msg("failed to delete value")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (s *sqliteKVStore) Scan(ctx context.Context, bucket string) ([]KV, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildScanQuery(bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Scan").
			Str("bucket", bucket).
			Msg("failed to scan bucket")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	result := make([]KV, 0, 64)
	for rows.Next() {
		var kv KV
		if err = rows.Scan(&kv.Key, &kv.Value); err != nil {
			log.Err(err).
				Str("func", "sqliteKVStore.Scan").
				Str("bucket", bucket).
				Msg("failed to scan kv row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		result = append(result, kv)
	}

	if err = rows.Err(); err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Scan").
			Str("bucket", bucket).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return result, nil
}

func (s *sqliteKVStore) Clear(ctx context.Context, bucket string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildClearQuery(bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "sqliteKVStore.Clear").
			Str("bucket", bucket).
			Msg("failed to clear bucket")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
