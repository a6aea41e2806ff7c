package config

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Validation errors. All of them match models.ErrOfflineSync.
var (
	ErrInvalidAdapterConfigs = fmt.Errorf("%w: invalid adapter configuration", models.ErrOfflineSync)
	ErrInvalidStorageConfigs = fmt.Errorf("%w: invalid storage configuration", models.ErrOfflineSync)
	ErrInvalidAppConfigs     = fmt.Errorf("%w: invalid app configuration", models.ErrOfflineSync)
	ErrInvalidWorkerConfigs  = fmt.Errorf("%w: invalid worker configuration", models.ErrOfflineSync)
	ErrInvalidQueueConfigs   = fmt.Errorf("%w: invalid queue configuration", models.ErrOfflineSync)
	ErrInvalidServerConfigs  = fmt.Errorf("%w: invalid server configuration", models.ErrOfflineSync)

	ErrUnsupportedConfigFormat = errors.New("unsupported config file format")
)
