package cache

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

var (
	// ErrEntryTooLarge is returned when a single entry exceeds the whole budget.
	ErrEntryTooLarge = fmt.Errorf("%w: entry larger than the cache budget", models.ErrStorageQuotaExceeded)
	// ErrCorruptedEntry marks a stored record that fails its checksum or
	// cannot be decoded.
	ErrCorruptedEntry = errors.New("corrupted cache entry")
	// ErrEmptyID is returned when an entity without an id is written.
	ErrEmptyID = fmt.Errorf("%w: entity id is empty", models.ErrOfflineSync)
)
