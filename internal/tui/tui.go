// Package tui is the operator dashboard of the sync client: live queue and
// cache stats, health issues and the recent sync history, with keys to sync
// now and clear the cache.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// DefaultRefresh is how often the dashboard reloads its data.
const DefaultRefresh = time.Second

// SyncService is the part of the orchestrator the dashboard drives.
type SyncService interface {
	PerformSync(ctx context.Context, force bool) (models.SyncResult, error)
	ClearCache(ctx context.Context, kinds ...models.EntityKind) error
	Stats(ctx context.Context) (models.SyncStats, error)
	Health(ctx context.Context) (models.HealthReport, error)
	SyncHistory(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error)
}

type TUI struct {
	svc     SyncService
	info    models.AppBuildInfo
	refresh time.Duration
	logger  *logger.Logger
}

func New(svc SyncService, info models.AppBuildInfo, logger *logger.Logger) *TUI {
	return &TUI{
		svc:     svc,
		info:    info,
		refresh: DefaultRefresh,
		logger:  logger,
	}
}

// Run shows the dashboard until the operator quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	model := newDashboardModel(ctx, t.svc, t.info, t.refresh)

	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		t.logger.Err(err).Str("func", "TUI.Run").Msg("dashboard stopped")
	}
	return err
}
