// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package queue implements the durable, bounded queues of the sync client:
// one for mutations that need a server verdict and one for best-effort
// analytics events.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Defaults used when [Options] leaves a field at zero.
const (
	DefaultMaxTransactions = 500
	DefaultMaxEvents       = 1000
	DefaultRetryAttempts   = 5
)

// Options bound the queues.
type Options struct {
	MaxTransactions int
	MaxEvents       int
	RetryAttempts   int
}

// QueueManager owns both queues. Entries are kept in memory and written
// through to the key-value store on every change; Load restores them.
//
// Capacity bounds the pending backlog. When a new entry would exceed it,
// the oldest pending entries are evicted. Entries that already have a
// verdict are never evicted this way; PruneCompleted removes them once they
// are old enough.
type QueueManager struct {
	mu     sync.Mutex
	kv     store.KeyValueStore
	txs    map[string]*models.QueuedTransaction
	events map[string]*models.QueuedAnalyticsEvent
	seq    int64

	opts   Options
	ids    IDGenerator
	now    func() time.Time
	logger *logger.Logger
}

// NewQueueManager returns empty queues persisting to kv.
func NewQueueManager(kv store.KeyValueStore, opts Options, log *logger.Logger) *QueueManager {
	if opts.MaxTransactions <= 0 {
		opts.MaxTransactions = DefaultMaxTransactions
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	return &QueueManager{
		kv:     kv,
		txs:    make(map[string]*models.QueuedTransaction),
		events: make(map[string]*models.QueuedAnalyticsEvent),
		opts:   opts,
		ids:    utils.NewUUIDGenerator(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithComponent("queue"),
	}
}

// EnqueueTransaction validates payload and appends a pending transaction.
// When the queue is full the oldest pending transactions are dropped to make
// room and returned as evicted; they will never reach the server.
func (q *QueueManager) EnqueueTransaction(ctx context.Context, userID string, payload models.Payload, priority int) (tx *models.QueuedTransaction, evicted []*models.QueuedTransaction, err error) {
	if payload == nil {
		return nil, nil, fmt.Errorf("%w: payload is nil", models.ErrInvalidPayload)
	}
	if err = payload.Validate(); err != nil {
		return nil, nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if overflow := q.pendingTxCountLocked() + 1 - q.opts.MaxTransactions; overflow > 0 {
		if evicted, err = q.evictOldestLocked(ctx, overflow); err != nil {
			return nil, evicted, err
		}
		q.logger.Warn().
			Str("func", "QueueManager.EnqueueTransaction").
			Strs("evicted", txIDs(evicted)).
			Msg("transaction queue full, evicted oldest pending entries")
	}

	now := q.now()
	q.seq++
	tx = &models.QueuedTransaction{
		ID:        q.ids.Generate(),
		UserID:    userID,
		Kind:      payload.TransactionKind(),
		Payload:   payload,
		Status:    models.TxPending,
		CreatedAt: now,
		UpdatedAt: now,
		Priority:  priority,
		Seq:       q.seq,
	}
	if err = q.saveTxLocked(ctx, tx); err != nil {
		q.seq--
		return nil, evicted, err
	}
	q.txs[tx.ID] = tx

	return cloneTx(tx), evicted, nil
}

// EnqueueAnalyticsEvent appends a pending analytics event.
func (q *QueueManager) EnqueueAnalyticsEvent(ctx context.Context, payload models.AnalyticsEventPayload) (*models.QueuedAnalyticsEvent, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if overflow := q.pendingEventCountLocked() + 1 - q.opts.MaxEvents; overflow > 0 {
		for _, ev := range q.pendingEventsLocked(overflow) {
			if err := q.deleteLocked(ctx, store.BucketAnalyticsQueue, ev.ID); err != nil {
				return nil, err
			}
			delete(q.events, ev.ID)
		}
		q.logger.Warn().
			Str("func", "QueueManager.EnqueueAnalyticsEvent").
			Int("evicted", overflow).
			Msg("analytics queue full, evicted oldest pending events")
	}

	now := q.now()
	q.seq++
	ev := &models.QueuedAnalyticsEvent{
		ID:        q.ids.Generate(),
		Payload:   payload,
		Status:    models.EventPending,
		CreatedAt: now,
		UpdatedAt: now,
		Seq:       q.seq,
	}
	if err := q.saveEventLocked(ctx, ev); err != nil {
		q.seq--
		return nil, err
	}
	q.events[ev.ID] = ev

	e := *ev
	return &e, nil
}

// PendingTransactions returns up to limit pending transactions, oldest
// first. limit <= 0 means all.
func (q *QueueManager) PendingTransactions(limit int) []*models.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.pendingTxsLocked(limit)
	result := make([]*models.QueuedTransaction, 0, len(pending))
	for _, tx := range pending {
		result = append(result, cloneTx(tx))
	}
	return result
}

// PendingAnalyticsEvents returns up to limit pending events, oldest first.
func (q *QueueManager) PendingAnalyticsEvents(limit int) []*models.QueuedAnalyticsEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.pendingEventsLocked(limit)
	result := make([]*models.QueuedAnalyticsEvent, 0, len(pending))
	for _, ev := range pending {
		e := *ev
		result = append(result, &e)
	}
	return result
}

// MarkSynced records the server acknowledgement of a transaction.
func (q *QueueManager) MarkSynced(ctx context.Context, id string) error {
	return q.updateTx(ctx, id, func(tx *models.QueuedTransaction) error {
		tx.Status = models.TxSynced
		tx.LastError = ""
		return nil
	})
}

// MarkConflict records a server-reported conflict. The entry stays visible
// until it is resolved.
func (q *QueueManager) MarkConflict(ctx context.Context, id string, info models.ConflictInfo) error {
	return q.updateTx(ctx, id, func(tx *models.QueuedTransaction) error {
		tx.Status = models.TxConflict
		tx.Conflict = &info
		tx.ResolvedAt = nil
		return nil
	})
}

// MarkResolved closes the conflict of a transaction.
func (q *QueueManager) MarkResolved(ctx context.Context, id string) error {
	return q.updateTx(ctx, id, func(tx *models.QueuedTransaction) error {
		if !tx.Unresolved() {
			return fmt.Errorf("%w: %s", ErrNotInConflict, id)
		}
		resolvedAt := q.now()
		tx.ResolvedAt = &resolvedAt
		return nil
	})
}

// IncrementRetry records a transient failure. The transaction becomes
// terminally failed once the retry ceiling is reached. The new status is
// returned.
func (q *QueueManager) IncrementRetry(ctx context.Context, id string, cause error) (models.TransactionStatus, error) {
	var status models.TransactionStatus
	err := q.updateTx(ctx, id, func(tx *models.QueuedTransaction) error {
		if tx.Status != models.TxPending {
			return fmt.Errorf("%w: %s is %s", ErrNotPending, id, tx.Status)
		}
		tx.RetryCount++
		if cause != nil {
			tx.LastError = cause.Error()
		}
		if tx.RetryCount >= q.opts.RetryAttempts {
			tx.Status = models.TxFailed
		}
		status = tx.Status
		return nil
	})
	return status, err
}

// MarkEventSent records that the server accepted an event.
func (q *QueueManager) MarkEventSent(ctx context.Context, id string) error {
	return q.updateEvent(ctx, id, func(ev *models.QueuedAnalyticsEvent) {
		ev.Status = models.EventSent
		ev.LastError = ""
	})
}

// IncrementEventRetry records a failed delivery. The event is dropped from
// future batches once the retry ceiling is reached.
func (q *QueueManager) IncrementEventRetry(ctx context.Context, id string, cause error) (models.EventStatus, error) {
	var status models.EventStatus
	err := q.updateEvent(ctx, id, func(ev *models.QueuedAnalyticsEvent) {
		ev.RetryCount++
		if cause != nil {
			ev.LastError = cause.Error()
		}
		if ev.RetryCount >= q.opts.RetryAttempts {
			ev.Status = models.EventFailed
		}
		status = ev.Status
	})
	return status, err
}

// EvictOldest removes the n oldest pending transactions and returns them.
func (q *QueueManager) EvictOldest(ctx context.Context, n int) ([]*models.QueuedTransaction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evictOldestLocked(ctx, n)
}

func (q *QueueManager) evictOldestLocked(ctx context.Context, n int) ([]*models.QueuedTransaction, error) {
	victims := q.pendingTxsLocked(n)
	evicted := make([]*models.QueuedTransaction, 0, len(victims))
	for _, tx := range victims {
		if err := q.deleteLocked(ctx, store.BucketTxQueue, tx.ID); err != nil {
			return evicted, err
		}
		delete(q.txs, tx.ID)
		evicted = append(evicted, cloneTx(tx))
	}
	return evicted, nil
}

func txIDs(txs []*models.QueuedTransaction) []string {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}

// PruneCompleted removes entries whose verdict is older than olderThan:
// synced and failed transactions, resolved conflicts, sent and failed
// events. It returns how many entries were removed.
func (q *QueueManager) PruneCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-olderThan)
	removed := 0

	for id, tx := range q.txs {
		done := tx.Status == models.TxSynced || tx.Status == models.TxFailed ||
			(tx.Status == models.TxConflict && tx.ResolvedAt != nil)
		if !done || !tx.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := q.deleteLocked(ctx, store.BucketTxQueue, id); err != nil {
			return removed, err
		}
		delete(q.txs, id)
		removed++
	}

	for id, ev := range q.events {
		if ev.Status == models.EventPending || !ev.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := q.deleteLocked(ctx, store.BucketAnalyticsQueue, id); err != nil {
			return removed, err
		}
		delete(q.events, id)
		removed++
	}

	return removed, nil
}

// PendingEntityRefs returns the cache keys touched by transactions that are
// still pending or in an unresolved conflict.
func (q *QueueManager) PendingEntityRefs() map[string]struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	refs := make(map[string]struct{})
	for _, tx := range q.txs {
		if tx.Status != models.TxPending && !tx.Unresolved() {
			continue
		}
		for _, ref := range tx.EntityRefs() {
			refs[ref] = struct{}{}
		}
	}
	return refs
}

// Counts breaks both queues down by status. Resolved conflicts count as
// synced.
func (q *QueueManager) Counts() (txs models.QueueCounts, events models.QueueCounts) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, tx := range q.txs {
		switch {
		case tx.Status == models.TxPending:
			txs.Pending++
		case tx.Status == models.TxSynced, tx.Status == models.TxConflict && tx.ResolvedAt != nil:
			txs.Synced++
		case tx.Status == models.TxConflict:
			txs.Conflict++
		case tx.Status == models.TxFailed:
			txs.Failed++
		}
	}
	for _, ev := range q.events {
		switch ev.Status {
		case models.EventPending:
			events.Pending++
		case models.EventSent:
			events.Synced++
		case models.EventFailed:
			events.Failed++
		}
	}
	return txs, events
}

// Capacity returns the configured queue bounds.
func (q *QueueManager) Capacity() (maxTransactions, maxEvents int) {
	return q.opts.MaxTransactions, q.opts.MaxEvents
}

// Get returns a copy of the transaction with the given id.
func (q *QueueManager) Get(id string) (*models.QueuedTransaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tx, ok := q.txs[id]
	if !ok {
		return nil, false
	}
	return cloneTx(tx), true
}

// Conflicts returns the transactions waiting for a resolution, oldest first.
func (q *QueueManager) Conflicts() []*models.QueuedTransaction {
	return q.filterTxs(func(tx *models.QueuedTransaction) bool { return tx.Unresolved() })
}

// Failed returns the terminally failed transactions, oldest first.
func (q *QueueManager) Failed() []*models.QueuedTransaction {
	return q.filterTxs(func(tx *models.QueuedTransaction) bool { return tx.Status == models.TxFailed })
}

func (q *QueueManager) filterTxs(keep func(*models.QueuedTransaction) bool) []*models.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []*models.QueuedTransaction
	for _, tx := range sortedTxs(q.txs) {
		if keep(tx) {
			result = append(result, cloneTx(tx))
		}
	}
	return result
}

// Load restores both queues from durable storage. Undecodable records are
// dropped.
func (q *QueueManager) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	txRecords, err := q.kv.Scan(ctx, store.BucketTxQueue)
	if err != nil {
		return fmt.Errorf("scan transaction queue: %w", err)
	}
	evRecords, err := q.kv.Scan(ctx, store.BucketAnalyticsQueue)
	if err != nil {
		return fmt.Errorf("scan analytics queue: %w", err)
	}

	q.txs = make(map[string]*models.QueuedTransaction, len(txRecords))
	q.events = make(map[string]*models.QueuedAnalyticsEvent, len(evRecords))
	q.seq = 0

	for _, rec := range txRecords {
		var tx models.QueuedTransaction
		if err = json.Unmarshal(rec.Value, &tx); err != nil {
			q.logger.Err(err).Str("func", "QueueManager.Load").Str("id", rec.Key).Msg("dropping undecodable transaction")
			if err = q.deleteLocked(ctx, store.BucketTxQueue, rec.Key); err != nil {
				return err
			}
			continue
		}
		q.txs[tx.ID] = &tx
		q.seq = max(q.seq, tx.Seq)
	}

	for _, rec := range evRecords {
		var ev models.QueuedAnalyticsEvent
		if err = json.Unmarshal(rec.Value, &ev); err != nil {
			q.logger.Err(err).Str("func", "QueueManager.Load").Str("id", rec.Key).Msg("dropping undecodable event")
			if err = q.deleteLocked(ctx, store.BucketAnalyticsQueue, rec.Key); err != nil {
				return err
			}
			continue
		}
		q.events[ev.ID] = &ev
		q.seq = max(q.seq, ev.Seq)
	}

	q.logger.Info().
		Str("func", "QueueManager.Load").
		Int("transactions", len(q.txs)).
		Int("events", len(q.events)).
		Msg("queues loaded")
	return nil
}

func (q *QueueManager) updateTx(ctx context.Context, id string, mutate func(*models.QueuedTransaction) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, ok := q.txs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	next := cloneTx(current)
	if err := mutate(next); err != nil {
		return err
	}
	next.UpdatedAt = q.now()

	if err := q.saveTxLocked(ctx, next); err != nil {
		return err
	}
	q.txs[id] = next
	return nil
}

func (q *QueueManager) updateEvent(ctx context.Context, id string, mutate func(*models.QueuedAnalyticsEvent)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, ok := q.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	next := *current
	mutate(&next)
	next.UpdatedAt = q.now()

	if err := q.saveEventLocked(ctx, &next); err != nil {
		return err
	}
	q.events[id] = &next
	return nil
}

func (q *QueueManager) saveTxLocked(ctx context.Context, tx *models.QueuedTransaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}
	if err = q.kv.Set(ctx, store.BucketTxQueue, tx.ID, raw); err != nil {
		q.logger.Err(err).Str("func", "QueueManager.saveTx").Str("id", tx.ID).Msg("failed to persist transaction")
		return fmt.Errorf("persist transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (q *QueueManager) saveEventLocked(ctx context.Context, ev *models.QueuedAnalyticsEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	if err = q.kv.Set(ctx, store.BucketAnalyticsQueue, ev.ID, raw); err != nil {
		q.logger.Err(err).Str("func", "QueueManager.saveEvent").Str("id", ev.ID).Msg("failed to persist event")
		return fmt.Errorf("persist event %s: %w", ev.ID, err)
	}
	return nil
}

func (q *QueueManager) deleteLocked(ctx context.Context, bucket, id string) error {
	if err := q.kv.Delete(ctx, bucket, id); err != nil {
		return fmt.Errorf("delete %s entry %s: %w", bucket, id, err)
	}
	return nil
}

func (q *QueueManager) pendingTxCountLocked() int {
	n := 0
	for _, tx := range q.txs {
		if tx.Status == models.TxPending {
			n++
		}
	}
	return n
}

func (q *QueueManager) pendingEventCountLocked() int {
	n := 0
	for _, ev := range q.events {
		if ev.Status == models.EventPending {
			n++
		}
	}
	return n
}

func (q *QueueManager) pendingTxsLocked(limit int) []*models.QueuedTransaction {
	var pending []*models.QueuedTransaction
	for _, tx := range sortedTxs(q.txs) {
		if tx.Status != models.TxPending {
			continue
		}
		pending = append(pending, tx)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending
}

func (q *QueueManager) pendingEventsLocked(limit int) []*models.QueuedAnalyticsEvent {
	list := make([]*models.QueuedAnalyticsEvent, 0, len(q.events))
	for _, ev := range q.events {
		if ev.Status == models.EventPending {
			list = append(list, ev)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func sortedTxs(txs map[string]*models.QueuedTransaction) []*models.QueuedTransaction {
	list := make([]*models.QueuedTransaction, 0, len(txs))
	for _, tx := range txs {
		list = append(list, tx)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list
}

func cloneTx(tx *models.QueuedTransaction) *models.QueuedTransaction {
	c := *tx
	if tx.Conflict != nil {
		info := *tx.Conflict
		c.Conflict = &info
	}
	if tx.ResolvedAt != nil {
		at := *tx.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}
