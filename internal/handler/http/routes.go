package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

const (
	healthPath  = "/api/health"
	versionPath = "/api/version/"
	devicePath  = "/api/auth/device"
	batchPath   = "/api/sync/batch"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Content-Encoding", hashHeader, traceIDHeader},
		ExposedHeaders: []string{"Authorization", hashHeader, traceIDHeader},
	}).Handler)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get(healthPath, h.health)
		r.Get(versionPath, h.getServerVersion)
		r.Post(devicePath, h.deviceAuth)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth, h.verifyHash)
		r.Post(batchPath, h.syncBatch)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
