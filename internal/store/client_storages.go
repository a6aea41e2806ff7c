package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// ClientStorages groups the client's durable storage.
type ClientStorages struct {
	// KV is the SQLite-backed key-value store shared by the cache, the
	// queues and the sync bookkeeping.
	KV KeyValueStore

	// SyncState holds watermarks and the sync history.
	SyncState *LocalStorageService

	db *DB
}

// NewClientStorages opens the SQLite database at cfg.DSN (creating it when
// missing), applies the schema and wires the stores on top of it.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Str("func", "NewClientStorages").Str("dsn", cfg.DSN).Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	kv := NewSQLiteKVStore(db)
	return &ClientStorages{
		KV:        kv,
		SyncState: NewLocalStorageService(kv, DefaultHistoryLimit, log),
		db:        db,
	}, nil
}

// Close closes the database.
func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
