// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every sync component. Callers match with errors.Is.
var (
	// ErrNetworkUnavailable is returned when a sync is attempted while offline
	// and not forced, or when the backend cannot be reached at all.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrStorageQuotaExceeded is returned when a cache write does not fit the
	// byte budget even after eviction.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	// ErrSyncConflict marks a server-reported version or state mismatch.
	ErrSyncConflict = errors.New("sync conflict")
	// ErrEntityNotFound is returned for unknown queue entries and cache keys.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrOfflineSync is the generic failure for malformed configuration or input.
	ErrOfflineSync = errors.New("offline sync error")

	ErrStaleWrite          = errors.New("stale write rejected")
	ErrAlreadySyncing      = errors.New("sync already in progress")
	ErrUnsupportedStrategy = errors.New("unsupported conflict resolution strategy")
	ErrUnsupportedConflict = errors.New("unsupported conflict kind")
	ErrMissingResult       = errors.New("no result returned for queued item")
	ErrRetriesExhausted    = errors.New("retry ceiling reached")

	ErrUnknownEntityKind      = fmt.Errorf("%w: unknown entity kind", ErrOfflineSync)
	ErrUnknownTransactionKind = fmt.Errorf("%w: unknown transaction kind", ErrOfflineSync)
	ErrInvalidPayload         = fmt.Errorf("%w: invalid payload", ErrOfflineSync)
)
