package service

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/backend"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

func newLedgerSyncService(t *testing.T) (SyncService, *backend.Ledger) {
	t.Helper()
	ledger := backend.NewLedger(logger.Nop())
	ledger.Seed(backend.Catalog{
		Balances: []models.LoyaltyBalance{{SyncableEntity: models.SyncableEntity{ID: "u1"}, Points: 50}},
	})
	return NewSyncService(ledger, logger.Nop()), ledger
}

func earnTx(t *testing.T, id, userID string, points int64) models.WireTransaction {
	t.Helper()
	raw, err := json.Marshal(models.EarnPayload{Points: points})
	require.NoError(t, err)
	return models.WireTransaction{ID: id, UserID: userID, Kind: models.TxEarn, Payload: raw}
}

func TestSyncService_ProcessBatch(t *testing.T) {
	svc, ledger := newLedgerSyncService(t)

	resp, err := svc.ProcessBatch(context.Background(), "u1", models.SyncBatchRequest{
		UserID: "u1",
		Transactions: []models.WireTransaction{
			earnTx(t, "a", "u1", 10),
			earnTx(t, "b", "someone-else", 10),
		},
		Events: []models.WireEvent{{ID: "e1", Type: "view"}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, models.TxSynced, resp.Transactions[0].Status)
	assert.Equal(t, "b", resp.Transactions[1].QueueID)
	assert.Equal(t, models.TxFailed, resp.Transactions[1].Status)

	require.Len(t, resp.Events, 1)
	assert.Equal(t, models.EventSent, resp.Events[0].Status)

	require.NotNil(t, resp.Updates.Loyalty)
	assert.Equal(t, int64(60), resp.Updates.Loyalty.Points)
	assert.False(t, resp.ServerTime.IsZero())
	assert.Equal(t, int64(60), ledger.Balance("u1").Points)
}

func TestSyncService_ProcessBatch_Replay(t *testing.T) {
	svc, ledger := newLedgerSyncService(t)
	req := models.SyncBatchRequest{Transactions: []models.WireTransaction{earnTx(t, "a", "u1", 10)}}

	_, err := svc.ProcessBatch(context.Background(), "u1", req)
	require.NoError(t, err)
	resp, err := svc.ProcessBatch(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, models.TxSynced, resp.Transactions[0].Status)
	assert.Equal(t, int64(60), ledger.Balance("u1").Points)
}

func TestSyncService_ProcessBatch_Rejects(t *testing.T) {
	svc, _ := newLedgerSyncService(t)

	_, err := svc.ProcessBatch(context.Background(), "", models.SyncBatchRequest{})
	assert.ErrorIs(t, err, ErrNoUserID)

	_, err = svc.ProcessBatch(context.Background(), "u1", models.SyncBatchRequest{UserID: "u2"})
	assert.ErrorIs(t, err, ErrUnauthorizedAccess)
}
