// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"

	"github.com/MKhiriev/go-offline-sync/models"
)

// humanizeSyncError turns the errors a manual sync can return into a status
// line for the operator.
func humanizeSyncError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrAlreadySyncing):
		return "A sync is already running"
	case errors.Is(err, models.ErrNetworkUnavailable):
		return "No network or the server is unavailable"
	default:
		return err.Error()
	}
}
