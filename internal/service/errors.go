package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")

	// ErrUnauthorizedAccess is returned when a batch names a member other
	// than the one the device token was issued for.
	ErrUnauthorizedAccess = errors.New("unauthorized access")

	// ErrServerRejected wraps the error text the server attached to a failed
	// transaction or event.
	ErrServerRejected = errors.New("rejected by server")

	ErrUnknownTransaction = fmt.Errorf("%w: unknown transaction", models.ErrEntityNotFound)
	ErrNoUserID           = fmt.Errorf("%w: user id is empty", models.ErrOfflineSync)
	ErrNotStarted         = fmt.Errorf("%w: service is not started", models.ErrOfflineSync)
)
