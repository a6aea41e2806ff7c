package http

import (
	"encoding/hex"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/MKhiriev/go-offline-sync/internal/app"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// maxBatchBytes caps the decoded body of a sync batch.
const maxBatchBytes = 8 << 20

func (h *Handler) syncBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.syncBatch").Msg("no user ID was given")
		http.Error(w, app.MsgNoUserIDProvided, http.StatusUnauthorized)
		return
	}

	var req models.SyncBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes)).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.syncBatch").Msg("Invalid JSON was passed")
		http.Error(w, app.MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	resp, err := h.services.SyncService.ProcessBatch(ctx, userID, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.syncBatch").Msg("error processing sync batch")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	h.writeSignedJSON(w, resp, http.StatusOK)
}

// writeSignedJSON writes data as JSON with the HMAC of the exact body in the
// HashSHA256 header.
func (h *Handler) writeSignedJSON(w http.ResponseWriter, data any, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Err(err).Str("func", "*Handler.writeSignedJSON").Msg("failed to encode response")
		http.Error(w, app.MsgInternalServerError, http.StatusInternalServerError)
		return
	}

	if h.hashKey != "" {
		w.Header().Set(hashHeader, hex.EncodeToString(utils.Hash(body)))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}
