package cli

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/models"
)

// SyncClient is the part of the orchestrator the commands use.
type SyncClient interface {
	Preload(ctx context.Context, seed models.ServerUpdates) error
	PerformSync(ctx context.Context, force bool) (models.SyncResult, error)
	ClearCache(ctx context.Context, kinds ...models.EntityKind) error
	ResolveConflict(ctx context.Context, txID string, strategy models.Strategy) (models.Resolution, error)
	Conflicts() []*models.QueuedTransaction
	SyncHistory(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error)
	Stats(ctx context.Context) (models.SyncStats, error)
	Health(ctx context.Context) (models.HealthReport, error)
}

// Session is an opened client: the orchestrator, a one-shot connectivity
// probe and the function releasing both.
type Session struct {
	Sync  SyncClient
	Probe func(ctx context.Context) models.NetworkStatus
	Close func() error
}

// Opener opens a session for the given config file.
type Opener func(ctx context.Context, configPath string) (*Session, error)

// OpenClient returns the Opener used by the syncctl binary. Online
// debouncing is disabled since the process only lives for one command.
func OpenClient(log *logger.Logger) Opener {
	return func(ctx context.Context, configPath string) (*Session, error) {
		cfg, err := config.LoadClientConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.Network.OnlineDebounce = 0

		services, err := service.NewClientServices(ctx, *cfg, log)
		if err != nil {
			return nil, err
		}
		if err = services.Sync.Start(ctx); err != nil {
			_ = services.Close()
			return nil, fmt.Errorf("start sync service: %w", err)
		}

		return &Session{
			Sync:  services.Sync,
			Probe: services.Monitor.Refresh,
			Close: services.Close,
		}, nil
	}
}

// withSession opens a session, runs fn and closes the session again.
func withSession(ctx context.Context, open Opener, opts *RootOptions, fn func(s *Session) error) (err error) {
	s, err := open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()
	return fn(s)
}
