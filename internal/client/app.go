package client

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/tui"
	"github.com/MKhiriev/go-offline-sync/internal/workers"
	"github.com/MKhiriev/go-offline-sync/models"
)

// App is the sync client process: the connectivity monitor, the sync
// orchestrator, periodic maintenance and, unless headless, the dashboard.
type App struct {
	cfg      *config.ClientConfig
	services *service.ClientServices
	tui      *tui.TUI
	info     models.AppBuildInfo
	logger   *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.ClientConfig, info models.AppBuildInfo, log *logger.Logger) (*App, error) {
	services, err := service.NewClientServices(ctx, *cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create client services: %w", err)
	}

	app := &App{
		cfg:      cfg,
		services: services,
		info:     info,
		logger:   log.WithComponent("client"),
	}
	if !cfg.App.Headless {
		app.tui = tui.New(services.Sync, info, log)
	}
	return app, nil
}

// Run blocks until ctx is cancelled or the operator quits the dashboard.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group := workers.NewWorkers(
		workers.WorkerFunc(a.services.Monitor.Run),
		workers.Lifecycle(a.services.Sync.Start, a.services.Sync.Stop),
		workers.Periodic("maintenance", a.cfg.Workers.CleanupInterval, a.services.Sync.Maintain, a.logger),
	)
	if a.tui != nil {
		group.Add(workers.WorkerFunc(func(ctx context.Context) error {
			defer cancel()
			return a.tui.Run(ctx)
		}))
	}

	a.logger.Info().
		Str("func", "App.Run").
		Str("user_id", a.cfg.App.UserID).
		Str("build", a.info.String()).
		Bool("headless", a.tui == nil).
		Msg("client started")

	err := group.Run(ctx)
	a.logger.Info().Str("func", "App.Run").Msg("client stopped")
	return err
}

// Close releases the local database.
func (a *App) Close() error {
	return a.services.Close()
}
