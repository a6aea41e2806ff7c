package http

import (
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

type Handler struct {
	services *service.Services

	// hashKey signs batch bodies; signatures are not checked when empty.
	hashKey        string
	allowedOrigins []string

	logger *logger.Logger
}

// NewHandler builds the HTTP handler and keys the shared HMAC pool with
// cfg.HashKey.
func NewHandler(services *service.Services, cfg config.ServerConfig, logger *logger.Logger) *Handler {
	utils.InitHasherPool(cfg.HashKey)

	logger.Info().Msg("http handler created")
	return &Handler{
		services:       services,
		hashKey:        cfg.HashKey,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}
