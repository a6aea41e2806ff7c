package client

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/backend"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	httphandler "github.com/MKhiriev/go-offline-sync/internal/handler/http"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/models"
)

const testHashKey = "app-test-key"

func startBackend(t *testing.T) (*httptest.Server, *backend.Ledger) {
	t.Helper()

	cfg := config.ServerConfig{
		HashKey:       testHashKey,
		TokenSignKey:  "sign",
		TokenIssuer:   "offline-sync-test",
		TokenDuration: time.Hour,
		Version:       "test",
	}
	ledger := backend.NewLedger(logger.Nop())
	ledger.Seed(backend.Catalog{
		Balances: []models.LoyaltyBalance{{SyncableEntity: models.SyncableEntity{ID: "u1"}, Points: 100}},
	})

	svcs, err := service.NewServices(ledger, cfg, logger.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(httphandler.NewHandler(svcs, cfg, logger.Nop()).Init())
	t.Cleanup(srv.Close)
	return srv, ledger
}

func testClientConfig(t *testing.T, serverURL string) *config.ClientConfig {
	dir := t.TempDir()
	return &config.ClientConfig{
		App: config.ClientApp{UserID: "u1", HashKey: testHashKey, Version: "test", Headless: true},
		Adapter: config.ClientAdapter{
			HTTPAddress:    serverURL,
			RequestTimeout: 2 * time.Second,
			RetryAttempts:  2,
			RetryBackoff:   10 * time.Millisecond,
		},
		Storage: config.ClientStorage{
			DSN:           filepath.Join(dir, "client.db"),
			MediaDir:      filepath.Join(dir, "media"),
			MaxCacheBytes: 1 << 20,
			MaxMediaBytes: 1 << 20,
			EntityTTL:     time.Hour,
			MediaTTL:      time.Hour,
		},
		Queue:   config.Queue{MaxTransactions: 50, MaxEvents: 50, RetryAttempts: 3, RetryBackoff: 10 * time.Millisecond},
		Workers: config.Workers{SyncInterval: 100 * time.Millisecond, CleanupInterval: time.Hour},
		Network: config.Network{ProbeInterval: 50 * time.Millisecond},
	}
}

func TestApp_SyncsQueuedWorkWhenBackendIsReachable(t *testing.T) {
	srv, ledger := startBackend(t)
	cfg := testClientConfig(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, cfg, models.NewAppBuildInfo("test", "", ""), logger.Nop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close()) }()

	_, err = app.services.Sync.QueueTransaction(ctx, "u1", models.EarnPayload{Points: 25})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ledger.Balance("u1").Points == 125
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_InvalidStorage(t *testing.T) {
	cfg := testClientConfig(t, "http://127.0.0.1:1")
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	cfg.Storage.DSN = filepath.Join(blocker, "client.db")

	_, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, logger.Nop())
	assert.Error(t, err)
}
