package http

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/MKhiriev/go-offline-sync/internal/app"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

type deviceAuthRequest struct {
	UserID string `json:"user_id"`
}

// deviceAuth issues a device token for the member named in the body. The
// token is returned in the Authorization header.
func (h *Handler) deviceAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req deviceAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.deviceAuth").Msg("Invalid JSON was passed")
		http.Error(w, app.MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	token, err := h.services.AuthService.CreateToken(ctx, req.UserID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.deviceAuth").Msg("creation of token failed")
		status := statusFromError(err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	log.Debug().Str("user_id", req.UserID).Msg("device token issued")
	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token.SignedString))
	w.WriteHeader(http.StatusOK)
}
