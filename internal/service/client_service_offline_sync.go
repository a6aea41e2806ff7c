// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/cache"
	"github.com/MKhiriev/go-offline-sync/internal/conflict"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/queue"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// DefaultRetention is how long completed queue entries are kept.
const DefaultRetention = 24 * time.Hour

// SyncOptions configures an offlineSyncService.
type SyncOptions struct {
	// UserID is the device user sent with every batch.
	UserID string
	// SyncInterval is the scheduler period, 5 minutes when zero.
	SyncInterval time.Duration
	// Strategy resolves conflicts automatically, server_wins when empty.
	Strategy models.Strategy
	// Retention is how long completed queue entries are kept, 24h when zero.
	Retention time.Duration
}

// SyncDeps are the collaborators of an offlineSyncService.
type SyncDeps struct {
	Cache   *cache.CacheManager
	Media   *cache.MediaCacheService
	Queue   *queue.QueueManager
	Local   store.LocalStorage
	Adapter adapter.ServerAdapter
	Network Connectivity
	Engine  SyncEngine
}

type offlineSyncService struct {
	cache   *cache.CacheManager
	media   *cache.MediaCacheService
	queue   *queue.QueueManager
	local   store.LocalStorage
	adapter adapter.ServerAdapter
	network Connectivity
	engine  SyncEngine
	job     ClientSyncJob

	opts SyncOptions

	syncing atomic.Bool

	mu          sync.RWMutex
	state       models.SyncState
	lastSync    time.Time
	lastStatus  models.SyncStatus
	unsubscribe func()

	ids    queue.IDGenerator
	now    func() time.Time
	logger *logger.Logger
}

// NewOfflineSyncService wires the orchestrator. The scheduler is created
// here but only started by Start.
func NewOfflineSyncService(deps SyncDeps, opts SyncOptions, log *logger.Logger) (OfflineSyncService, error) {
	return newOfflineSyncService(deps, opts, log)
}

func newOfflineSyncService(deps SyncDeps, opts SyncOptions, log *logger.Logger) (*offlineSyncService, error) {
	if deps.Cache == nil || deps.Media == nil || deps.Queue == nil || deps.Local == nil ||
		deps.Adapter == nil || deps.Network == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrInvalidDataProvided)
	}
	if opts.UserID == "" {
		return nil, ErrNoUserID
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	if opts.Strategy == "" {
		opts.Strategy = conflict.DefaultStrategy
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}

	s := &offlineSyncService{
		cache:   deps.Cache,
		media:   deps.Media,
		queue:   deps.Queue,
		local:   deps.Local,
		adapter: deps.Adapter,
		network: deps.Network,
		engine:  deps.Engine,
		opts:    opts,
		state:   models.StateIdle,
		ids:     utils.NewUUIDGenerator(),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log.WithComponent("offline_sync"),
	}
	if s.engine == nil {
		s.engine = NewSyncEngine(deps.Queue, deps.Local, deps.Adapter, 0, 0, log)
	}
	s.job = NewClientSyncJob(s.scheduledSync)

	return s, nil
}

func (s *offlineSyncService) Start(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	if err := s.media.Load(ctx); err != nil {
		return fmt.Errorf("load media cache: %w", err)
	}
	if err := s.queue.Load(ctx); err != nil {
		return fmt.Errorf("load queues: %w", err)
	}
	s.cache.SetPinned(s.queue.PendingEntityRefs)

	unsubscribe := s.network.Subscribe(func(e models.NetworkEvent) {
		if e.Kind == models.NetworkOnline {
			s.job.Trigger()
		}
	})

	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.job.Start(ctx, s.opts.SyncInterval)

	s.logger.Info().
		Str("func", "offlineSyncService.Start").
		Str("user_id", s.opts.UserID).
		Dur("interval", s.opts.SyncInterval).
		Msg("offline sync started")
	return nil
}

func (s *offlineSyncService) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.job.Stop()
}

// scheduledSync is the scheduler callback: it syncs only when online and
// idle.
func (s *offlineSyncService) scheduledSync(ctx context.Context) {
	if !s.network.IsOnline() || s.syncing.Load() {
		return
	}

	result, err := s.PerformSync(ctx, false)
	switch {
	case errors.Is(err, models.ErrAlreadySyncing), errors.Is(err, models.ErrNetworkUnavailable):
		return
	case err != nil:
		s.logger.Err(err).Str("func", "offlineSyncService.scheduledSync").Msg("scheduled sync failed")
		return
	}

	if result.Backlog {
		s.job.Trigger()
	}
}

func (s *offlineSyncService) Preload(ctx context.Context, seed models.ServerUpdates) error {
	if _, err := s.cache.CleanupExpired(ctx); err != nil {
		return fmt.Errorf("cleanup cache before preload: %w", err)
	}
	if _, err := s.media.CleanupExpired(ctx); err != nil {
		return fmt.Errorf("cleanup media before preload: %w", err)
	}

	if errs := s.applyUpdates(ctx, seed); len(errs) > 0 {
		return fmt.Errorf("preload: %w", errors.Join(errs...))
	}
	return nil
}

func (s *offlineSyncService) QueueTransaction(ctx context.Context, userID string, payload models.Payload) (Receipt, error) {
	if userID == "" {
		return Receipt{}, ErrNoUserID
	}

	priority := 0
	if payload != nil && payload.TransactionKind().Monetary() {
		priority = 1
	}

	tx, evicted, err := s.queue.EnqueueTransaction(ctx, userID, payload, priority)
	s.dropEvicted(ctx, evicted)
	if err != nil {
		return Receipt{}, fmt.Errorf("enqueue transaction: %w", err)
	}

	if err = s.applyOptimistic(ctx, tx, nil); err != nil {
		// the mutation is queued; the cache catches up on the next sync
		s.logger.Warn().
			Err(err).
			Str("func", "offlineSyncService.QueueTransaction").
			Str("tx_id", tx.ID).
			Msg("optimistic update not applied")
	}

	receipt := Receipt{Transaction: tx}
	if s.network.IsOnline() {
		receipt.EstimatedSync = s.now()
		s.job.Trigger()
	} else {
		receipt.EstimatedSync = s.job.NextRun()
	}
	return receipt, nil
}

func (s *offlineSyncService) QueueAnalyticsEvent(ctx context.Context, eventType string, props map[string]any) (*models.QueuedAnalyticsEvent, error) {
	ev, err := s.queue.EnqueueAnalyticsEvent(ctx, models.AnalyticsEventPayload{EventType: eventType, Properties: props})
	if err != nil {
		return nil, fmt.Errorf("enqueue analytics event: %w", err)
	}
	return ev, nil
}

func (s *offlineSyncService) GetCached(ctx context.Context, kind models.EntityKind, id string) (models.Entity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityKind, kind)
	}
	if kind == models.KindMedia {
		asset, _, err := s.GetMedia(ctx, id)
		if err != nil {
			return nil, err
		}
		return &asset, nil
	}

	entry, ok, err := s.cache.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if !ok || entry.Entity.Meta().Deleted {
		return nil, fmt.Errorf("%w: %s", models.ErrEntityNotFound, models.CacheKey(kind, id))
	}
	return entry.Entity, nil
}

func (s *offlineSyncService) GetMedia(ctx context.Context, id string) (models.MediaAsset, []byte, error) {
	asset, data, ok, err := s.media.Open(ctx, id)
	if err != nil {
		return models.MediaAsset{}, nil, fmt.Errorf("read media cache: %w", err)
	}
	if !ok {
		return models.MediaAsset{}, nil, fmt.Errorf("%w: %s", models.ErrEntityNotFound, models.CacheKey(models.KindMedia, id))
	}
	return asset, data, nil
}

func (s *offlineSyncService) ClearCache(ctx context.Context, kinds ...models.EntityKind) error {
	if len(kinds) == 0 {
		if err := s.cache.Clear(ctx); err != nil {
			return err
		}
		return s.media.Clear(ctx)
	}

	entityKinds := make([]models.EntityKind, 0, len(kinds))
	for _, k := range kinds {
		switch {
		case !k.Valid():
			return fmt.Errorf("%w: %q", models.ErrUnknownEntityKind, k)
		case k == models.KindMedia:
			if err := s.media.Clear(ctx); err != nil {
				return err
			}
		default:
			entityKinds = append(entityKinds, k)
		}
	}
	if len(entityKinds) == 0 {
		return nil
	}
	return s.cache.Clear(ctx, entityKinds...)
}

func (s *offlineSyncService) ResolveConflict(ctx context.Context, txID string, strategy models.Strategy) (models.Resolution, error) {
	tx, ok := s.queue.Get(txID)
	if !ok {
		return models.Resolution{}, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	if !tx.Unresolved() {
		return models.Resolution{}, fmt.Errorf("%w: %s", queue.ErrNotInConflict, txID)
	}

	c, err := s.buildConflict(ctx, tx)
	if err != nil {
		return models.Resolution{}, err
	}
	res, err := conflict.Resolve(c, strategy)
	if err != nil {
		return models.Resolution{}, err
	}
	if len(res.Data) == 0 {
		return res, nil
	}

	if err = s.applyResolution(ctx, tx, c, res); err != nil {
		return models.Resolution{}, err
	}
	return res, nil
}

func (s *offlineSyncService) Conflicts() []*models.QueuedTransaction {
	return s.queue.Conflicts()
}

func (s *offlineSyncService) SyncHistory(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error) {
	return s.local.History(ctx, limit)
}

func (s *offlineSyncService) State() models.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *offlineSyncService) setState(state models.SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *offlineSyncService) Stats(ctx context.Context) (models.SyncStats, error) {
	watermarks, err := s.local.Watermarks(ctx)
	if err != nil {
		return models.SyncStats{}, fmt.Errorf("read watermarks: %w", err)
	}
	txCounts, eventCounts := s.queue.Counts()

	s.mu.RLock()
	stats := models.SyncStats{
		State:        s.state,
		Online:       s.network.IsOnline(),
		LastStatus:   s.lastStatus,
		NextSync:     s.job.NextRun(),
		Transactions: txCounts,
		Events:       eventCounts,
		Cache:        s.cache.Stats(),
		Media:        s.media.Stats(),
		Watermarks:   watermarks,
	}
	if !s.lastSync.IsZero() {
		last := s.lastSync
		stats.LastSync = &last
	}
	s.mu.RUnlock()

	return stats, nil
}

// healthQueueRatio is the pending share of capacity reported as near full.
const healthQueueRatio = 0.9

func (s *offlineSyncService) Health(ctx context.Context) (models.HealthReport, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return models.HealthReport{}, err
	}
	maxTxs, maxEvents := s.queue.Capacity()

	var issues []string
	if float64(stats.Transactions.Pending) >= healthQueueRatio*float64(maxTxs) {
		issues = append(issues, fmt.Sprintf("transaction queue near capacity: %d/%d", stats.Transactions.Pending, maxTxs))
	}
	if float64(stats.Events.Pending) >= healthQueueRatio*float64(maxEvents) {
		issues = append(issues, fmt.Sprintf("analytics queue near capacity: %d/%d", stats.Events.Pending, maxEvents))
	}
	if stats.Transactions.Failed > 0 {
		issues = append(issues, fmt.Sprintf("%d transactions failed permanently", stats.Transactions.Failed))
	}
	if stats.Transactions.Conflict > 0 {
		issues = append(issues, fmt.Sprintf("%d conflicts await resolution", stats.Transactions.Conflict))
	}
	if stats.Cache.MaxBytes > 0 && stats.Cache.Bytes > stats.Cache.MaxBytes {
		issues = append(issues, fmt.Sprintf("entity cache over budget: %d/%d bytes", stats.Cache.Bytes, stats.Cache.MaxBytes))
	}
	if stats.Media.MaxBytes > 0 && stats.Media.Bytes > stats.Media.MaxBytes {
		issues = append(issues, fmt.Sprintf("media cache over budget: %d/%d bytes", stats.Media.Bytes, stats.Media.MaxBytes))
	}
	if stats.LastStatus == models.SyncFailed {
		issues = append(issues, "last sync cycle failed")
	}

	return models.HealthReport{Healthy: len(issues) == 0, Issues: issues}, nil
}

func (s *offlineSyncService) Maintain(ctx context.Context) error {
	log := s.logger.With().Str("func", "offlineSyncService.Maintain").Logger()

	expired, err := s.cache.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup cache: %w", err)
	}
	expiredMedia, err := s.media.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup media: %w", err)
	}
	corrupted, err := s.cache.ValidateIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("validate cache: %w", err)
	}
	corruptedMedia, err := s.media.ValidateIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("validate media: %w", err)
	}
	pruned, err := s.queue.PruneCompleted(ctx, s.opts.Retention)
	if err != nil {
		return fmt.Errorf("prune queues: %w", err)
	}

	log.Debug().
		Int("expired", expired).
		Int("expired_media", expiredMedia).
		Int("corrupted", corrupted).
		Int("corrupted_media", corruptedMedia).
		Int("pruned", pruned).
		Msg("maintenance done")
	return nil
}
