package queue

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

var (
	// ErrEntryNotFound is returned for an unknown queue id.
	ErrEntryNotFound = fmt.Errorf("%w: queue entry", models.ErrEntityNotFound)
	// ErrNotPending is returned when a transition requires a pending entry.
	ErrNotPending = errors.New("queue entry is not pending")
	// ErrNotInConflict is returned when resolving an entry that has no open
	// conflict.
	ErrNotInConflict = errors.New("queue entry has no open conflict")
)
