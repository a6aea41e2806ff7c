package tui

import "github.com/MKhiriev/go-offline-sync/models"

type snapshotMsg struct {
	stats   models.SyncStats
	health  models.HealthReport
	history []models.SyncHistoryRecord
	err     error
}

type syncDoneMsg struct {
	result models.SyncResult
	err    error
}

type cacheClearedMsg struct {
	err error
}

type tickMsg struct{}
