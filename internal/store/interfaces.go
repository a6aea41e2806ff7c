package store

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Buckets of the key-value store. Each component owns one or more of them.
const (
	BucketCache          = "cache"
	BucketMedia          = "media"
	BucketTxQueue        = "tx_queue"
	BucketAnalyticsQueue = "analytics_queue"
	BucketSyncState      = "sync_state"
	BucketSyncHistory    = "sync_history"
)

// KV is one record returned by [KeyValueStore.Scan].
type KV struct {
	Key   string
	Value []byte
}

// KeyValueStore is the durable storage every component persists through.
//
// Keys are unique within a bucket. Scan returns the records of a bucket in
// ascending key order. Get returns [ErrKeyNotFound] for a missing key, which
// matches models.ErrEntityNotFound as well. Delete of a missing key is not an
// error. Implementations must be safe for concurrent use.
type KeyValueStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Set(ctx context.Context, bucket, key string, value []byte) error
	Delete(ctx context.Context, bucket, key string) error
	Scan(ctx context.Context, bucket string) ([]KV, error)
	Clear(ctx context.Context, bucket string) error
}

// LocalStorage keeps the sync bookkeeping: per-kind watermarks and the
// append-only history of sync cycles.
type LocalStorage interface {
	// Watermarks returns the stored watermarks, zero for kinds never synced.
	Watermarks(ctx context.Context) (models.Watermarks, error)
	// SaveWatermarks persists w.
	SaveWatermarks(ctx context.Context, w models.Watermarks) error
	// AppendHistory records one cycle. Only the most recent records are kept.
	AppendHistory(ctx context.Context, record models.SyncHistoryRecord) error
	// History returns up to limit records, newest first. limit <= 0 means all.
	History(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error)
}
