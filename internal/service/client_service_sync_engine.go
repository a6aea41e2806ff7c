package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/queue"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Per-cycle batch limits.
const (
	DefaultBatchTransactions = 50
	DefaultBatchEvents       = 100
)

type syncEngine struct {
	queue   *queue.QueueManager
	local   store.LocalStorage
	adapter adapter.ServerAdapter

	maxTransactions int
	maxEvents       int

	logger *logger.Logger
}

// NewSyncEngine returns a SyncEngine reading from q and local and talking to
// the backend through serverAdapter. Non-positive limits fall back to 50
// transactions and 100 events.
func NewSyncEngine(q *queue.QueueManager, local store.LocalStorage, serverAdapter adapter.ServerAdapter, maxTransactions, maxEvents int, log *logger.Logger) SyncEngine {
	if maxTransactions <= 0 {
		maxTransactions = DefaultBatchTransactions
	}
	if maxEvents <= 0 {
		maxEvents = DefaultBatchEvents
	}
	return &syncEngine{
		queue:           q,
		local:           local,
		adapter:         serverAdapter,
		maxTransactions: maxTransactions,
		maxEvents:       maxEvents,
		logger:          log.WithComponent("sync_engine"),
	}
}

func (e *syncEngine) BuildBatch(ctx context.Context, userID string) (models.SyncBatch, error) {
	watermarks, err := e.local.Watermarks(ctx)
	if err != nil {
		return models.SyncBatch{}, fmt.Errorf("read watermarks: %w", err)
	}

	txs := e.queue.PendingTransactions(e.maxTransactions)
	events := e.queue.PendingAnalyticsEvents(e.maxEvents)

	batch := models.SyncBatch{
		Request: models.SyncBatchRequest{
			UserID:       userID,
			Transactions: make([]models.WireTransaction, 0, len(txs)),
			Events:       make([]models.WireEvent, 0, len(events)),
			Watermarks:   watermarks,
		},
		Transactions: txs,
		Events:       events,
	}

	for _, tx := range txs {
		wire, err := tx.Wire()
		if err != nil {
			return models.SyncBatch{}, err
		}
		batch.Request.Transactions = append(batch.Request.Transactions, wire)
	}
	for _, ev := range events {
		wire, err := ev.Wire()
		if err != nil {
			return models.SyncBatch{}, fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		batch.Request.Events = append(batch.Request.Events, wire)
	}

	return batch, nil
}

func (e *syncEngine) Submit(ctx context.Context, batch models.SyncBatch) (models.BatchOutcome, error) {
	log := e.logger.With().Str("func", "syncEngine.Submit").Logger()

	resp, err := e.adapter.SubmitBatch(ctx, batch.Request)
	if err != nil {
		log.Err(err).
			Int("transactions", len(batch.Transactions)).
			Int("events", len(batch.Events)).
			Msg("batch exchange failed")
		return models.BatchOutcome{}, fmt.Errorf("submit batch: %w", err)
	}

	txResults := make(map[string]models.TransactionResult, len(resp.Transactions))
	for _, r := range resp.Transactions {
		txResults[r.QueueID] = r
	}
	eventResults := make(map[string]models.EventResult, len(resp.Events))
	for _, r := range resp.Events {
		eventResults[r.EventID] = r
	}

	outcome := models.BatchOutcome{
		Transactions: make([]models.TransactionOutcome, 0, len(batch.Transactions)),
		Events:       make([]models.EventOutcome, 0, len(batch.Events)),
		Updates:      resp.Updates,
		ServerTime:   resp.ServerTime,
	}

	for _, tx := range batch.Transactions {
		r, ok := txResults[tx.ID]
		delete(txResults, tx.ID)
		outcome.Transactions = append(outcome.Transactions, transactionOutcome(tx, r, ok))
	}
	for _, ev := range batch.Events {
		r, ok := eventResults[ev.ID]
		delete(eventResults, ev.ID)
		outcome.Events = append(outcome.Events, eventOutcome(ev, r, ok))
	}

	if len(txResults) > 0 || len(eventResults) > 0 {
		log.Warn().
			Int("transactions", len(txResults)).
			Int("events", len(eventResults)).
			Msg("ignoring results for items that were not in the batch")
	}

	return outcome, nil
}

func transactionOutcome(tx *models.QueuedTransaction, r models.TransactionResult, ok bool) models.TransactionOutcome {
	if !ok {
		return models.TransactionOutcome{
			Transaction: tx,
			Result:      models.TransactionResult{QueueID: tx.ID, Status: models.TxFailed},
			Err:         fmt.Errorf("%w: transaction %s", models.ErrMissingResult, tx.ID),
		}
	}

	out := models.TransactionOutcome{Transaction: tx, Result: r}
	switch r.Status {
	case models.TxSynced, models.TxConflict:
	case models.TxFailed:
		out.Err = fmt.Errorf("%w: transaction %s: %s", ErrServerRejected, tx.ID, r.Error)
	default:
		out.Result.Status = models.TxFailed
		out.Err = fmt.Errorf("%w: transaction %s: unexpected status %q", ErrServerRejected, tx.ID, r.Status)
	}
	return out
}

func eventOutcome(ev *models.QueuedAnalyticsEvent, r models.EventResult, ok bool) models.EventOutcome {
	if !ok {
		return models.EventOutcome{
			Event:  ev,
			Result: models.EventResult{EventID: ev.ID, Status: models.EventFailed},
			Err:    fmt.Errorf("%w: event %s", models.ErrMissingResult, ev.ID),
		}
	}

	out := models.EventOutcome{Event: ev, Result: r}
	if r.Status != models.EventSent {
		out.Result.Status = models.EventFailed
		out.Err = fmt.Errorf("%w: event %s: %s", ErrServerRejected, ev.ID, r.Error)
	}
	return out
}
