package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/backend"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

type syncService struct {
	ledger *backend.Ledger
	logger *logger.Logger
}

func NewSyncService(ledger *backend.Ledger, logger *logger.Logger) SyncService {
	return &syncService{
		ledger: ledger,
		logger: logger.WithComponent("sync_service"),
	}
}

// ProcessBatch decides the items of req in order. A transaction written for
// another member fails on its own; the rest of the batch is still decided.
func (s *syncService) ProcessBatch(ctx context.Context, userID string, req models.SyncBatchRequest) (models.SyncBatchResponse, error) {
	log := logger.FromContext(ctx)

	if userID == "" {
		return models.SyncBatchResponse{}, ErrNoUserID
	}
	if req.UserID != "" && req.UserID != userID {
		log.Warn().
			Str("func", "syncService.ProcessBatch").
			Str("token_user_id", userID).
			Str("batch_user_id", req.UserID).
			Msg("batch user does not match token")
		return models.SyncBatchResponse{}, fmt.Errorf("%w: batch is for another user", ErrUnauthorizedAccess)
	}

	resp := models.SyncBatchResponse{
		Transactions: make([]models.TransactionResult, 0, len(req.Transactions)),
		Events:       make([]models.EventResult, 0, len(req.Events)),
	}

	for _, tx := range req.Transactions {
		if tx.UserID != "" && tx.UserID != userID {
			resp.Transactions = append(resp.Transactions, models.TransactionResult{
				QueueID: tx.ID,
				Status:  models.TxFailed,
				Error:   ErrUnauthorizedAccess.Error(),
			})
			continue
		}
		resp.Transactions = append(resp.Transactions, s.ledger.Apply(ctx, userID, tx))
	}

	for _, ev := range req.Events {
		resp.Events = append(resp.Events, s.ledger.RecordEvent(ev))
	}

	resp.Updates, resp.ServerTime = s.ledger.UpdatesSince(userID, req.Watermarks)

	log.Info().
		Str("func", "syncService.ProcessBatch").
		Str("user_id", userID).
		Int("transactions", len(resp.Transactions)).
		Int("events", len(resp.Events)).
		Msg("sync batch processed")
	return resp, nil
}
