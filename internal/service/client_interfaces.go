// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service holds the business logic of both sides of the sync
// protocol: the client orchestrator with its sync engine and scheduler, and
// the device auth and app info services of the reference backend.
package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/network"
	"github.com/MKhiriev/go-offline-sync/models"
)

// SyncEngine exchanges one bounded batch with the backend.
type SyncEngine interface {
	// BuildBatch collects the oldest pending transactions and analytics
	// events, bounded by the per-cycle limits, and tags the request with the
	// stored watermarks. userID identifies the device user; every
	// transaction still carries its own user id.
	BuildBatch(ctx context.Context, userID string) (models.SyncBatch, error)

	// Submit sends batch and matches the response back to it. Outcomes are
	// ordered as the batch. Results for ids that are not in the batch are
	// ignored. An item without a result is reported with
	// models.ErrMissingResult. The returned error is set only when the
	// exchange itself failed.
	Submit(ctx context.Context, batch models.SyncBatch) (models.BatchOutcome, error)
}

// Receipt is returned when a mutation is queued.
type Receipt struct {
	Transaction *models.QueuedTransaction
	// EstimatedSync is now when online, otherwise the next scheduler tick.
	EstimatedSync time.Time
}

// OfflineSyncService is the facade the application talks to. It owns the
// caches and the queues and is the only component that mutates them.
type OfflineSyncService interface {
	// Start loads persisted state, subscribes to connectivity events and
	// starts the background scheduler.
	Start(ctx context.Context) error

	// Stop stops the scheduler and unsubscribes from connectivity events.
	// It waits for a running scheduled cycle to finish.
	Stop()

	// Preload seeds the caches, typically from a bundle shipped with the
	// app. Expired entries are cleaned up first. Stale entities are skipped.
	Preload(ctx context.Context, seed models.ServerUpdates) error

	// QueueTransaction queues a mutation and applies its optimistic update
	// to the cache. It never blocks on the network.
	QueueTransaction(ctx context.Context, userID string, payload models.Payload) (Receipt, error)

	// QueueAnalyticsEvent queues a telemetry event.
	QueueAnalyticsEvent(ctx context.Context, eventType string, props map[string]any) (*models.QueuedAnalyticsEvent, error)

	// PerformSync runs one sync cycle. Without force it fails with
	// models.ErrNetworkUnavailable while offline. A call made while a cycle
	// is running returns models.ErrAlreadySyncing at once. Per-item failures
	// are listed in the result and are not returned as the error.
	PerformSync(ctx context.Context, force bool) (models.SyncResult, error)

	// GetCached returns a cached entity. Misses and tombstones yield
	// models.ErrEntityNotFound.
	GetCached(ctx context.Context, kind models.EntityKind, id string) (models.Entity, error)

	// GetMedia returns a cached media asset with its bytes.
	GetMedia(ctx context.Context, id string) (models.MediaAsset, []byte, error)

	// ClearCache drops the cached entities of kinds, or every cache when no
	// kind is given. Queues are untouched.
	ClearCache(ctx context.Context, kinds ...models.EntityKind) error

	// ResolveConflict resolves an unresolved conflict of transaction txID
	// with strategy and applies the resolved data.
	ResolveConflict(ctx context.Context, txID string, strategy models.Strategy) (models.Resolution, error)

	// Conflicts lists transactions with unresolved conflicts.
	Conflicts() []*models.QueuedTransaction

	// SyncHistory returns up to limit cycle records, newest first.
	SyncHistory(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error)

	// Stats reports queue, cache and scheduler state.
	Stats(ctx context.Context) (models.SyncStats, error)

	// Health lists conditions an operator should look at.
	Health(ctx context.Context) (models.HealthReport, error)

	// State returns the position in the sync state machine.
	State() models.SyncState

	// Maintain runs the periodic housekeeping: TTL cleanup of both caches,
	// integrity validation and pruning of completed queue entries.
	Maintain(ctx context.Context) error
}

// ClientSyncJob runs sync cycles in the background.
type ClientSyncJob interface {
	// Start launches the background goroutine. It ticks every interval,
	// defaulting to 5 minutes if interval is zero or negative. Any previously
	// running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Trigger requests an immediate run. It never blocks; requests made
	// while one is already waiting are coalesced.
	Trigger()

	// NextRun returns the time of the next scheduled tick, zero when the job
	// is not running.
	NextRun() time.Time

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}

// Connectivity is the part of the network monitor the orchestrator needs.
type Connectivity interface {
	IsOnline() bool
	Status() models.NetworkStatus
	Subscribe(fn network.Listener) (unsubscribe func())
}
