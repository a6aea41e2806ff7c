package service

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/cache"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/network"
	"github.com/MKhiriev/go-offline-sync/internal/queue"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

// ClientServices is the fully wired client side: durable storage, the
// backend adapter, the connectivity monitor and the orchestrator on top.
type ClientServices struct {
	Storages *store.ClientStorages
	Adapter  adapter.ServerAdapter
	Monitor  *network.Monitor
	Sync     OfflineSyncService
}

// NewClientServices opens the local database under cfg.Storage and builds
// every client component from cfg. Media bytes are written to the OS
// filesystem. Call Close when done.
func NewClientServices(ctx context.Context, cfg config.ClientConfig, log *logger.Logger) (*ClientServices, error) {
	storages, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, cfg.App, log)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("server adapter: %w", err)
	}

	monitor := network.NewMonitor(serverAdapter, cfg.Network.ProbeInterval, cfg.Network.OnlineDebounce, log)

	cacheManager := cache.NewCacheManager(storages.KV, cache.CacheOptions{
		MaxBytes:  cfg.Storage.MaxCacheBytes,
		EntityTTL: cfg.Storage.EntityTTL,
		MediaTTL:  cfg.Storage.MediaTTL,
	}, log)
	media := cache.NewMediaCacheService(afero.NewOsFs(), cfg.Storage.MediaDir, storages.KV,
		cfg.Storage.MaxMediaBytes, cfg.Storage.MediaTTL, log)
	queues := queue.NewQueueManager(storages.KV, queue.Options{
		MaxTransactions: cfg.Queue.MaxTransactions,
		MaxEvents:       cfg.Queue.MaxEvents,
		RetryAttempts:   cfg.Queue.RetryAttempts,
	}, log)

	syncSvc, err := NewOfflineSyncService(SyncDeps{
		Cache:   cacheManager,
		Media:   media,
		Queue:   queues,
		Local:   storages.SyncState,
		Adapter: serverAdapter,
		Network: monitor,
	}, SyncOptions{
		UserID:       cfg.App.UserID,
		SyncInterval: cfg.Workers.SyncInterval,
	}, log)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("offline sync service: %w", err)
	}

	return &ClientServices{
		Storages: storages,
		Adapter:  serverAdapter,
		Monitor:  monitor,
		Sync:     syncSvc,
	}, nil
}

// Close stops the orchestrator and closes the database.
func (c *ClientServices) Close() error {
	c.Sync.Stop()
	return c.Storages.Close()
}
