package store

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// ErrKeyNotFound is returned by [KeyValueStore.Get] for a missing key.
var ErrKeyNotFound = fmt.Errorf("%w: key not found", models.ErrEntityNotFound)

// Low-level database operation errors, wrapped around the driver error.
var (
	// ErrBuildingSQLQuery is returned when squirrel cannot render a query.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when an INSERT or DELETE fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when reading a result set fails.
	ErrScanningRows = errors.New("failed to scan kv rows")

	// ErrEncodingRecord is returned when a bookkeeping record cannot be
	// encoded or decoded.
	ErrEncodingRecord = errors.New("failed to encode record")
)
