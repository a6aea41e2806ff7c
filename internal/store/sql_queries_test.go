package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueries(t *testing.T) {
	now := time.Unix(0, 42)

	tests := []struct {
		name     string
		build    func() (string, []any, error)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "get",
			build:    func() (string, []any, error) { return buildGetQuery("cache", "poi:1") },
			wantSQL:  "SELECT value FROM kv WHERE bucket = ? AND key = ?",
			wantArgs: []any{"cache", "poi:1"},
		},
		{
			name:     "upsert",
			build:    func() (string, []any, error) { return buildUpsertQuery("cache", "poi:1", []byte("{}"), now) },
			wantSQL:  "INSERT INTO kv (bucket,key,value,updated_at) VALUES (?,?,?,?) ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
			wantArgs: []any{"cache", "poi:1", []byte("{}"), int64(42)},
		},
		{
			name:     "delete",
			build:    func() (string, []any, error) { return buildDeleteQuery("tx_queue", "tx-1") },
			wantSQL:  "DELETE FROM kv WHERE bucket = ? AND key = ?",
			wantArgs: []any{"tx_queue", "tx-1"},
		},
		{
			name:     "scan",
			build:    func() (string, []any, error) { return buildScanQuery("sync_history") },
			wantSQL:  "SELECT key, value FROM kv WHERE bucket = ? ORDER BY key ASC",
			wantArgs: []any{"sync_history"},
		},
		{
			name:     "clear",
			build:    func() (string, []any, error) { return buildClearQuery("media") },
			wantSQL:  "DELETE FROM kv WHERE bucket = ?",
			wantArgs: []any{"media"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
