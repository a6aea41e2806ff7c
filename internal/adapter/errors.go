package adapter

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Errors mapped from HTTP status codes by mapHTTPError.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = fmt.Errorf("%w: not found", models.ErrEntityNotFound)
	ErrConflict            = fmt.Errorf("%w: conflict", models.ErrSyncConflict)
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")
	ErrServiceUnavailable  = errors.New("service unavailable")
)

var (
	// ErrIntegrityCheck is returned when a response body does not match its
	// HashSHA256 header.
	ErrIntegrityCheck = errors.New("response integrity check failed")
	// ErrNoToken is returned when an authenticated call is made before
	// Authenticate succeeded.
	ErrNoToken = fmt.Errorf("%w: no device token", ErrUnauthorized)
)
