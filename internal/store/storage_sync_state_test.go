package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageService_Watermarks(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorageService(NewMemoryKVStore(), 0, logger.Nop())

	w, err := s.Watermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Watermarks{}, w)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w.Set(models.KindPOI, ts)
	w.Set(models.KindReward, ts.Add(time.Minute))
	require.NoError(t, s.SaveWatermarks(ctx, w))

	got, err := s.Watermarks(ctx)
	require.NoError(t, err)
	assert.True(t, got.Get(models.KindPOI).Equal(ts))
	assert.True(t, got.Rewards.Equal(ts.Add(time.Minute)))
	assert.True(t, got.Profile.IsZero())
}

func TestLocalStorageService_CorruptedWatermarks(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, BucketSyncState, watermarksKey, []byte("{broken")))

	w, err := NewLocalStorageService(kv, 0, logger.Nop()).Watermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Watermarks{}, w)
}

func TestLocalStorageService_History(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorageService(NewMemoryKVStore(), 3, logger.Nop())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendHistory(ctx, models.SyncHistoryRecord{
			ID:        fmt.Sprintf("h-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Status:    models.SyncSuccess,
			Synced:    i,
		}))
	}

	all, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3, "only the newest records are retained")
	assert.Equal(t, "h-4", all[0].ID)
	assert.Equal(t, "h-3", all[1].ID)
	assert.Equal(t, "h-2", all[2].ID)

	latest, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 4, latest[0].Synced)
}
