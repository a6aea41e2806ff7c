package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/conflict"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// PerformSync runs one cycle: build a batch, exchange it, apply the
// outcomes in queue order, merge server updates, advance watermarks and
// record history.
//
// The single-flight flag is taken before any I/O. Once the batch is built
// the cycle runs on a context detached from the caller's cancellation, so a
// cycle either completes or fails as a whole.
func (s *offlineSyncService) PerformSync(ctx context.Context, force bool) (models.SyncResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return models.SyncResult{Status: models.SyncAlreadySyncing}, models.ErrAlreadySyncing
	}
	defer s.syncing.Store(false)

	if !force && !s.network.IsOnline() {
		return models.SyncResult{Status: models.SyncFailed, Errors: []error{models.ErrNetworkUnavailable}}, models.ErrNetworkUnavailable
	}

	s.setState(models.StateSyncing)

	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("func", "offlineSyncService.PerformSync").Logger()
	ctx = log.WithContext(ctx)

	result := models.SyncResult{StartedAt: s.now()}
	err := s.runCycle(ctx, &result)
	result.Duration = s.now().Sub(result.StartedAt)

	switch {
	case err != nil:
		result.Status = models.SyncFailed
		result.Errors = append(result.Errors, err)
	case len(result.Errors) > 0 || result.Conflicts > 0:
		result.Status = models.SyncPartial
	default:
		result.Status = models.SyncSuccess
	}

	s.finishCycle(ctx, result, err)

	log.Info().
		Str("status", string(result.Status)).
		Int("synced", result.Synced).
		Int("resolved", result.Resolved).
		Int("conflicts", result.Conflicts).
		Int("failed", result.Failed).
		Int("events_sent", result.EventsSent).
		Dur("duration", result.Duration).
		Msg("sync cycle finished")

	return result, err
}

func (s *offlineSyncService) runCycle(ctx context.Context, result *models.SyncResult) error {
	batch, err := s.engine.BuildBatch(ctx, s.opts.UserID)
	if err != nil {
		return fmt.Errorf("build batch: %w", err)
	}

	outcome, err := s.engine.Submit(ctx, batch)
	if err != nil {
		return err
	}

	for _, o := range outcome.Transactions {
		s.applyTransactionOutcome(ctx, o, result)
	}
	for _, o := range outcome.Events {
		s.applyEventOutcome(ctx, o, result)
	}

	written, errs := s.mergeUpdates(ctx, outcome.Updates)
	result.Errors = append(result.Errors, errs...)
	if len(written) > 0 {
		if err = s.rebase(ctx, written); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	if err = s.advanceWatermarks(ctx, outcome.ServerTime); err != nil {
		result.Errors = append(result.Errors, err)
	}

	result.Backlog = s.hasBacklog(batch)

	return nil
}

// hasBacklog reports whether pending work exists that was not part of batch.
func (s *offlineSyncService) hasBacklog(batch models.SyncBatch) bool {
	inBatch := make(map[string]struct{}, len(batch.Transactions)+len(batch.Events))
	for _, tx := range batch.Transactions {
		inBatch[tx.ID] = struct{}{}
	}
	for _, ev := range batch.Events {
		inBatch[ev.ID] = struct{}{}
	}

	for _, tx := range s.queue.PendingTransactions(0) {
		if _, ok := inBatch[tx.ID]; !ok {
			return true
		}
	}
	for _, ev := range s.queue.PendingAnalyticsEvents(0) {
		if _, ok := inBatch[ev.ID]; !ok {
			return true
		}
	}
	return false
}

func (s *offlineSyncService) applyTransactionOutcome(ctx context.Context, o models.TransactionOutcome, result *models.SyncResult) {
	log := logger.FromContext(ctx)
	tx := o.Transaction

	switch o.Result.Status {
	case models.TxSynced:
		if err := s.queue.MarkSynced(ctx, tx.ID); err != nil {
			result.Errors = append(result.Errors, err)
			return
		}
		result.Synced++

	case models.TxConflict:
		info := models.ConflictInfo{Kind: models.ConflictVersion, ServerData: o.Result.ServerData, DetectedAt: s.now()}
		if o.Result.ServerData != nil && o.Result.ServerData.ConflictKind != "" {
			info.Kind = o.Result.ServerData.ConflictKind
		}
		if err := s.queue.MarkConflict(ctx, tx.ID, info); err != nil {
			result.Errors = append(result.Errors, err)
			return
		}
		tx.Status = models.TxConflict
		tx.Conflict = &info

		resolved, err := s.autoResolve(ctx, tx)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("tx_id", tx.ID).Msg("conflict left for manual resolution")
			result.Errors = append(result.Errors, fmt.Errorf("transaction %s: %w", tx.ID, err))
			result.Conflicts++
		case resolved:
			result.Resolved++
		default:
			result.Conflicts++
		}

	default:
		status, err := s.queue.IncrementRetry(ctx, tx.ID, o.Err)
		if err != nil {
			result.Errors = append(result.Errors, err)
			return
		}
		if status == models.TxFailed {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%w: %w", models.ErrRetriesExhausted, o.Err))
			return
		}
		result.Errors = append(result.Errors, o.Err)
	}
}

func (s *offlineSyncService) applyEventOutcome(ctx context.Context, o models.EventOutcome, result *models.SyncResult) {
	if o.Result.Status == models.EventSent {
		if err := s.queue.MarkEventSent(ctx, o.Event.ID); err != nil {
			result.Errors = append(result.Errors, err)
			return
		}
		result.EventsSent++
		return
	}

	status, err := s.queue.IncrementEventRetry(ctx, o.Event.ID, o.Err)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	if status == models.EventFailed {
		result.Errors = append(result.Errors, fmt.Errorf("%w: %w", models.ErrRetriesExhausted, o.Err))
		return
	}
	result.Errors = append(result.Errors, o.Err)
}

// autoResolve resolves a fresh conflict with the configured strategy. It
// reports false when the strategy needs the user to decide.
func (s *offlineSyncService) autoResolve(ctx context.Context, tx *models.QueuedTransaction) (bool, error) {
	c, err := s.buildConflict(ctx, tx)
	if err != nil {
		return false, err
	}
	res, err := conflict.Resolve(c, s.opts.Strategy)
	if err != nil {
		return false, err
	}
	if !res.AutoApply || len(res.Data) == 0 {
		return false, nil
	}
	if err = s.applyResolution(ctx, tx, c, res); err != nil {
		return false, err
	}
	return true, nil
}

func (s *offlineSyncService) advanceWatermarks(ctx context.Context, serverTime time.Time) error {
	if serverTime.IsZero() {
		serverTime = s.now()
	}

	watermarks, err := s.local.Watermarks(ctx)
	if err != nil {
		return fmt.Errorf("read watermarks: %w", err)
	}
	for _, kind := range models.EntityKinds {
		watermarks.Set(kind, serverTime)
	}
	if err = s.local.SaveWatermarks(ctx, watermarks); err != nil {
		return fmt.Errorf("save watermarks: %w", err)
	}
	return nil
}

// finishCycle moves the state machine and appends the history record.
func (s *offlineSyncService) finishCycle(ctx context.Context, result models.SyncResult, cycleErr error) {
	record := models.SyncHistoryRecord{
		ID:        s.ids.Generate(),
		Timestamp: result.StartedAt,
		Status:    result.Status,
		Synced:    result.Synced,
		Resolved:  result.Resolved,
		Conflicts: result.Conflicts,
		Failed:    result.Failed,
		Duration:  result.Duration,
	}
	switch {
	case cycleErr != nil:
		record.Error = cycleErr.Error()
	case len(result.Errors) > 0:
		record.Error = errors.Join(result.Errors...).Error()
	}

	if err := s.local.AppendHistory(ctx, record); err != nil {
		logger.FromContext(ctx).Err(err).Msg("failed to append sync history")
	}

	state := models.StateSuccessIdle
	switch result.Status {
	case models.SyncPartial:
		state = models.StatePartialIdle
	case models.SyncFailed:
		state = models.StateFailedIdle
	}

	s.mu.Lock()
	s.state = state
	s.lastSync = result.StartedAt
	s.lastStatus = result.Status
	s.mu.Unlock()
}
