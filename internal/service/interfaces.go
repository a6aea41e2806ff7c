package service

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

// AuthService issues and verifies device tokens of the reference backend.
type AuthService interface {
	CreateToken(ctx context.Context, userID string) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// SyncService answers sync batches on the reference backend.
type SyncService interface {
	// ProcessBatch decides every transaction and event of req on behalf of
	// userID and returns the verdicts together with the updates newer than
	// the request watermarks.
	ProcessBatch(ctx context.Context, userID string, req models.SyncBatchRequest) (models.SyncBatchResponse, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
