// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter talks to the sync backend.
//
// [ServerAdapter] decouples the sync engine from the protocol. The package
// ships an HTTP implementation ([NewHTTPServerAdapter]) built on resty.
// Status codes are mapped to the sentinel errors of errors.go so callers can
// use [errors.Is]; a backend that cannot be reached at all yields
// models.ErrNetworkUnavailable.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter is the transport used by the sync engine.
type ServerAdapter interface {
	// SetToken stores the device token attached to authenticated requests.
	SetToken(token string)

	// Token returns the stored device token, or an empty string.
	Token() string

	// Authenticate obtains a device token for userID and stores it.
	Authenticate(ctx context.Context, userID string) error

	// SubmitBatch sends one sync batch and returns the server verdicts.
	// Transient failures are retried with exponential backoff; the request
	// is idempotent on the server side, so resending is safe.
	SubmitBatch(ctx context.Context, req models.SyncBatchRequest) (models.SyncBatchResponse, error)

	// Probe checks that the backend is reachable.
	Probe(ctx context.Context) (models.NetworkStatus, error)

	// Version returns the backend build version.
	Version(ctx context.Context) (string, error)

	// FetchMedia downloads the bytes of a media asset.
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}
